package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"modelgate/internal/media"
	"modelgate/internal/models"
	"modelgate/internal/ui"
)

func newTranscribeCmd(a *app) *cobra.Command {
	var (
		model       string
		format      string
		prompt      string
		temperature float64
	)

	cmd := &cobra.Command{
		Use:   "transcribe <provider> <audio-file>",
		Short: "Transcribe an audio file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := media.Open(args[1])
			if err != nil {
				return err
			}

			req := models.TranscriptionRequest{
				AttachedFile:   file,
				Model:          model,
				ResponseFormat: models.ResponseFormat(format),
				Prompt:         prompt,
			}
			if cmd.Flags().Changed("temperature") {
				t := temperature
				req.Temperature = &t
			}

			rt, err := a.router(cmd.Context())
			if err != nil {
				return err
			}

			sp := ui.NewSpinner(cmd.ErrOrStderr(), "Transcribing "+file.Name()+"...")
			sp.Start()
			resp, err := rt.Transcribe(cmd.Context(), args[0], req)
			if err != nil {
				sp.Fail("transcription failed")
				return err
			}
			sp.Success(resp.Provider + "/" + resp.Model)

			return printTranscription(cmd, resp)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&model, "model", "m", "", "model id (defaults to the provider's transcription default)")
	flags.StringVarP(&format, "format", "f", "", "response format: text, json, srt or verbose_json")
	flags.StringVar(&prompt, "prompt", "", "hint passed to providers that accept one")
	flags.Float64VarP(&temperature, "temperature", "t", 0, "sampling temperature between 0 and 1")
	return cmd
}

func printTranscription(cmd *cobra.Command, resp *models.TranscriptionResponse) error {
	out := cmd.OutOrStdout()
	if text, ok := resp.Transcription.(string); ok {
		_, err := fmt.Fprintln(out, text)
		return err
	}
	data, err := json.MarshalIndent(resp.Transcription, "", "  ")
	if err != nil {
		return fmt.Errorf("encode transcription: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
