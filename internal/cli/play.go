package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docquiz/internal/question"
	"github.com/dgallion1/docquiz/internal/quiz"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const playHelp = "Type a letter to answer, n/p to move, s to submit, q to quit."

func (a *app) playCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Take a quiz over the question bank",
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
			if len(b) == 0 {
				return errors.New("question bank is empty, run docquiz generate first")
			}
			return play(cmd.InOrStdin(), cmd.OutOrStdout(), quiz.New(uuid.NewString(), b))
		},
	}
}

// play drives s from line-oriented input until the quiz is submitted or the
// player quits. Answering moves to the next question except on the last one.
func play(in io.Reader, out io.Writer, s *quiz.Session) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, playHelp)

	for s.State() == quiz.Answering {
		if err := showQuestion(out, s); err != nil {
			return err
		}
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			fmt.Fprintln(out, "\nQuiz abandoned")
			return nil
		}

		switch input := strings.ToLower(strings.TrimSpace(scanner.Text())); input {
		case "":
		case "n", "next":
			s.Navigate(quiz.Next)
		case "p", "prev", "previous":
			s.Navigate(quiz.Previous)
		case "s", "submit":
			if unanswered := s.Len() - s.Progress(); unanswered > 0 {
				fmt.Fprintf(out, "%d question(s) unanswered, they count as wrong\n", unanswered)
			}
			showGrade(out, s, s.Submit())
		case "q", "quit":
			fmt.Fprintln(out, "Quiz abandoned")
			return nil
		case "?", "h", "help":
			fmt.Fprintln(out, playHelp)
		default:
			if err := s.SelectAnswer(s.CurrentIndex(), input); err != nil {
				if errors.Is(err, quiz.ErrInvalidOption) {
					fmt.Fprintf(out, "Not an option: %s\n", input)
					continue
				}
				return err
			}
			if s.CurrentIndex() < s.Len()-1 {
				s.Navigate(quiz.Next)
			}
		}
	}
	return nil
}

func showQuestion(out io.Writer, s *quiz.Session) error {
	q, err := s.Current()
	if err != nil {
		return err
	}
	selected := s.Answers()[s.CurrentIndex()]
	fmt.Fprintf(out, "\nQuestion %d/%d (%d answered):\n%s\n\n", s.CurrentIndex()+1, s.Len(), s.Progress(), q.Prompt)
	for i, opt := range q.Options {
		marker := " "
		if question.Letter(i) == selected {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s) %s\n", marker, question.Letter(i), opt)
	}
	return nil
}

func showGrade(out io.Writer, s *quiz.Session, g quiz.Grade) {
	answers := s.Answers()
	fmt.Fprintln(out, "\nResults:")
	for i, mark := range g.Results {
		q, err := s.Question(i)
		if err != nil {
			continue
		}
		chosen := answers[i]
		if chosen == "" {
			chosen = "-"
		}
		fmt.Fprintf(out, "%d. %s: you chose %s, correct is %s\n", i+1, mark, chosen, q.CorrectLetter())
		if mark == quiz.Wrong && q.Explanation != "" {
			fmt.Fprintf(out, "   %s\n", q.Explanation)
		}
	}
	fmt.Fprintf(out, "\nScore: %d/%d\n", g.Score, g.Total)
}
