package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"modelgate/internal/media"
	"modelgate/internal/models"
	"modelgate/internal/router"
	"modelgate/internal/translator"
	"modelgate/internal/ui"
)

type completeOptions struct {
	model       string
	system      string
	image       string
	temperature float64
	maxTokens   int
	stream      bool
	stats       bool
	webSearch   bool
	reasoning   bool
	asJSON      bool
}

func newCompleteCmd(a *app) *cobra.Command {
	opts := &completeOptions{}

	cmd := &cobra.Command{
		Use:   "complete <provider> [prompt...]",
		Short: "Send a prompt to a provider and print the answer",
		Long: `Send a single user prompt to a provider. The prompt is read from the
remaining arguments, or from stdin when none are given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.TrimSpace(strings.Join(args[1:], " "))
			if prompt == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read prompt: %w", err)
				}
				prompt = strings.TrimSpace(string(data))
			}
			if prompt == "" {
				return errors.New("a prompt is required")
			}

			req, err := opts.request(cmd, prompt)
			if err != nil {
				return err
			}

			rt, err := a.router(cmd.Context())
			if err != nil {
				return err
			}

			out, meta := cmd.OutOrStdout(), cmd.ErrOrStderr()
			sp := ui.NewSpinner(meta, "Waiting for "+args[0]+"...")
			sp.Start()
			completion, err := rt.Complete(cmd.Context(), args[0], req)
			sp.Stop()
			if err != nil {
				return err
			}

			if opts.asJSON {
				return printCompletionJSON(out, completion, opts.stats)
			}

			if completion.Stream != nil {
				_, usage, err := ui.RenderStream(out, meta, completion.Stream, "")
				if err != nil {
					return err
				}
				if opts.stats {
					model := req.Model
					if model == "" {
						model = "default"
					}
					ui.RenderUsage(meta, args[0], model, usage)
				}
				return nil
			}

			resp := completion.Response
			ui.RenderResponse(out, meta, resp, "")
			if opts.stats {
				ui.RenderUsage(meta, resp.Provider, resp.Model, resp.Usage)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.model, "model", "m", "", "model id (defaults to the provider's default)")
	flags.StringVarP(&opts.system, "system", "s", "", "system message to send before the prompt")
	flags.StringVarP(&opts.image, "image", "i", "", "path to an image to attach")
	flags.Float64VarP(&opts.temperature, "temperature", "t", 0, "sampling temperature between 0 and 1")
	flags.IntVar(&opts.maxTokens, "max-tokens", 0, "maximum tokens to generate")
	flags.BoolVar(&opts.stream, "stream", false, "stream the answer as it is generated")
	flags.BoolVar(&opts.stats, "stats", false, "report token usage")
	flags.BoolVar(&opts.webSearch, "web-search", false, "ground the answer in web search")
	flags.BoolVar(&opts.reasoning, "reasoning", false, "request the model's reasoning")
	flags.BoolVar(&opts.asJSON, "json", false, "print the response body the HTTP API would return")
	return cmd
}

// printCompletionJSON writes the API response shape; streams are drained
// into one response first.
func printCompletionJSON(w io.Writer, completion router.Completion, showStats bool) error {
	resp := completion.Response
	if completion.Stream != nil {
		collected, err := completion.Stream.Collect()
		if err != nil {
			return err
		}
		resp = collected
	}
	data, err := json.MarshalIndent(translator.FromUnified(resp, showStats), "", "  ")
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func (o *completeOptions) request(cmd *cobra.Command, prompt string) (models.CompletionRequest, error) {
	var messages []models.Message
	if o.system != "" {
		messages = append(messages, models.Message{Role: models.RoleSystem, Content: o.system})
	}
	messages = append(messages, models.Message{Role: models.RoleUser, Content: prompt})

	req := models.CompletionRequest{
		Messages:  messages,
		Model:     o.model,
		Stream:    o.stream,
		ShowStats: o.stats,
		WebSearch: o.webSearch,
		Reasoning: o.reasoning,
	}
	if cmd.Flags().Changed("temperature") {
		t := o.temperature
		req.Temperature = &t
	}
	if cmd.Flags().Changed("max-tokens") {
		n := o.maxTokens
		req.MaxTokens = &n
	}
	if o.image != "" {
		file, err := media.Open(o.image)
		if err != nil {
			return models.CompletionRequest{}, err
		}
		req.AttachedFile = file
	}
	return req, nil
}
