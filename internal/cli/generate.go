package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/dgallion1/docquiz/internal/pipeline"
	"github.com/dgallion1/docquiz/internal/question"
	"github.com/spf13/cobra"
)

func (a *app) generateCmd() *cobra.Command {
	var (
		count      int
		difficulty string
	)
	cmd := &cobra.Command{
		Use:   "generate FILE...",
		Short: "Generate questions from documents into the bank",
		Long: `Extracts text from each FILE (pdf, docx, md, html, csv, txt), splits it into
units and asks the model for one question per unit. Accepted questions are
appended to the question bank; failures are reported and skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("count") {
				count = a.cfg.DefaultQuestionCount
			}
			if !cmd.Flags().Changed("difficulty") {
				difficulty = a.cfg.DefaultDifficulty
			}
			return a.runGenerate(cmd, args, count, difficulty)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 10, "Target number of questions")
	cmd.Flags().StringVarP(&difficulty, "difficulty", "d", "medium", "Question difficulty: easy, medium or hard")
	return cmd
}

func (a *app) runGenerate(cmd *cobra.Command, files []string, count int, difficulty string) error {
	d, err := question.ParseDifficulty(difficulty)
	if err != nil {
		return err
	}
	qcfg := question.Configuration{TargetQuestionCount: count, Difficulty: d}
	if err := qcfg.Validate(); err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	uploads := make([]pipeline.Upload, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		uploads = append(uploads, pipeline.Upload{Filename: filepath.Base(path), Data: data})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	asm, closeBank, err := a.openBank(ctx)
	if err != nil {
		return err
	}
	defer closeBank()

	orch := pipeline.NewOrchestrator(a.newGenerator(a.cfg, a.log), asm, a.log, pipeline.Options{
		MaxConcurrent:     a.cfg.MaxConcurrentGenerate,
		MaxRetries:        a.cfg.MaxRetries,
		CallTimeout:       a.cfg.GenerateTimeout,
		MinExtractChars:   a.cfg.MinExtractChars,
		PdftotextFallback: a.cfg.PDFFallbackPdftotext,
	})
	report, err := orch.Run(ctx, pipeline.Request{Documents: uploads, Config: qcfg})
	if err != nil {
		return err
	}
	printReport(cmd, report)
	return nil
}

func printReport(cmd *cobra.Command, r pipeline.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Generated %d question(s) from %d document(s), %d unit(s)\n", r.Accepted, r.Documents, r.Units)
	if n := r.FailureCount(); n > 0 {
		fmt.Fprintf(out, "Failures: %d (extraction %d, generation %d, validation %d)\n",
			n, r.ExtractionFailures, r.GenerationFailures, r.ValidationFailures)
		for _, f := range r.Failures {
			fmt.Fprintf(out, "  - %s\n", f)
		}
	}
	fmt.Fprintf(out, "Question bank now holds %d question(s)\n", len(r.Bank))
}
