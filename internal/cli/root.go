// Package cli implements the docquiz command line: generating questions from
// local documents, inspecting or resetting the bank and playing a quiz in the
// terminal.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docquiz/internal/bank"
	"github.com/dgallion1/docquiz/internal/config"
	"github.com/dgallion1/docquiz/internal/generate"
	"github.com/dgallion1/docquiz/internal/pipeline"
	"github.com/spf13/cobra"
)

type app struct {
	cfg config.Config
	log *slog.Logger

	verbose    bool
	bankDriver string
	bankPath   string
	bankDSN    string

	// newGenerator builds the generation backend; tests swap it out.
	newGenerator func(cfg config.Config, log *slog.Logger) pipeline.Generator
}

func newApp() *app {
	return &app{newGenerator: openAIGenerator}
}

func openAIGenerator(cfg config.Config, log *slog.Logger) pipeline.Generator {
	return generate.NewClient(generate.Options{
		APIKey:            cfg.OpenAIAPIKey,
		Model:             cfg.OpenAIModel,
		BaseURL:           cfg.OpenAIBaseURL,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.RequestBurst,
		Logger:            log,
	})
}

// NewRootCmd builds the docquiz command tree.
func NewRootCmd() *cobra.Command {
	return newApp().rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "docquiz",
		Short:        "Turn documents into multiple-choice quizzes",
		Long:         `Generate multiple-choice questions from documents, keep them in a question bank and quiz yourself on them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&a.bankDriver, "bank-driver", "", "Question bank backend: memory, file, sqlite or postgres")
	pf.StringVar(&a.bankPath, "bank-path", "", "Question bank file for the file backend")
	pf.StringVar(&a.bankDSN, "bank-dsn", "", "Connection string for the sqlite and postgres backends")

	root.AddCommand(a.generateCmd())
	root.AddCommand(a.bankCmd())
	root.AddCommand(a.playCmd())
	return root
}

// setup loads configuration and builds the stderr logger. Flags override the
// environment and the config file.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.bankDriver != "" {
		cfg.BankDriver = a.bankDriver
	}
	if a.bankPath != "" {
		cfg.BankPath = a.bankPath
	}
	if a.bankDSN != "" {
		cfg.BankDSN = a.bankDSN
	}
	a.cfg = cfg

	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// openBank opens the configured store. The returned close func must be
// called when the command is done.
func (a *app) openBank(ctx context.Context) (*bank.Assembler, func(), error) {
	store, err := bank.Open(ctx, bank.Options{
		Driver: bank.Driver(a.cfg.BankDriver),
		Path:   a.cfg.BankPath,
		DSN:    a.cfg.BankDSN,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open question bank: %w", err)
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			a.log.Warn("close question bank", "error", err)
		}
	}
	return bank.NewAssembler(store, a.log), closeFn, nil
}
