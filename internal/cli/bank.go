package cli

import (
	"encoding/json"
	"fmt"

	"github.com/dgallion1/docquiz/internal/question"
	"github.com/spf13/cobra"
)

func (a *app) bankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bank",
		Short: "Inspect or reset the question bank",
	}

	var asJSON bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Print every question in the bank",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asm, closeBank, err := a.openBank(cmd.Context())
			if err != nil {
				return err
			}
			defer closeBank()

			b, err := asm.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load question bank: %w", err)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(b)
			}
			printBank(cmd, b)
			return nil
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "Print the bank as JSON")

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Remove every question from the bank",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asm, closeBank, err := a.openBank(cmd.Context())
			if err != nil {
				return err
			}
			defer closeBank()

			if err := asm.Reset(cmd.Context()); err != nil {
				return fmt.Errorf("failed to reset question bank: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Question bank reset")
			return nil
		},
	}

	cmd.AddCommand(show, reset)
	return cmd
}

func printBank(cmd *cobra.Command, b question.Bank) {
	out := cmd.OutOrStdout()
	if len(b) == 0 {
		fmt.Fprintln(out, "Question bank is empty")
		return
	}
	for i, q := range b {
		fmt.Fprintf(out, "%d. %s\n", i+1, q.Prompt)
		for j, opt := range q.Options {
			fmt.Fprintf(out, "   %s) %s\n", question.Letter(j), opt)
		}
		fmt.Fprintf(out, "   Answer: %s\n", q.CorrectLetter())
		if q.Source != "" {
			fmt.Fprintf(out, "   Source: %s\n", q.Source)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "Total: %d question(s)\n", len(b))
}
