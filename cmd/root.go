package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"modelgate/internal/config"
	"modelgate/internal/provider/factory"
	"modelgate/internal/router"
)

// app carries the flags shared by every command and the state derived from
// them before a command runs.
type app struct {
	cfgPath  string
	logLevel string
	envFiles []string

	cfg config.Config
}

// Execute runs the CLI with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "modelgate",
		Short: "One interface to many LLM and speech-to-text vendors",
		Long: `modelgate routes completion and transcription requests to OpenAI, Claude,
Gemini, Groq, Grok, DeepSeek, Perplexity, AssemblyAI and ElevenLabs
through a single request shape.

Credentials are read from the config file or the usual environment
variables (OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY, ...), which
may also live in a .env file.

Examples:
  modelgate serve --port 8080
  modelgate complete openai "Explain goroutines in one line"
  modelgate complete claude --stream --stats "Write a haiku about Go"
  modelgate transcribe openai meeting.mp3 --format verbose_json
  modelgate models gemini`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgPath, "config", "c", "", "path to YAML configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
	flags.StringSliceVar(&a.envFiles, "env-file", []string{".env"}, "dotenv files to load before reading credentials")

	root.AddCommand(
		newServeCmd(a),
		newCompleteCmd(a),
		newTranscribeCmd(a),
		newModelsCmd(a),
		newProvidersCmd(a),
	)
	return root
}

// setup loads env files and configuration and installs the default logger.
func (a *app) setup(logOut io.Writer) error {
	if err := config.LoadEnvFiles(a.envFiles...); err != nil {
		return err
	}

	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Server.LogLevel = a.logLevel
	}

	level, err := config.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level})))

	a.cfg = cfg
	return nil
}

func (a *app) router(ctx context.Context) (*router.Router, error) {
	registry, err := factory.BuildRegistry(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	if registry.Len() == 0 {
		return nil, fmt.Errorf("no providers configured: set an api key in the config file or environment")
	}
	return router.New(registry, slog.Default()), nil
}
