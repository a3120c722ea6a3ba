package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/pavilion/internal/controller"
)

var quizAnswer int

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask the AI scholar directly",
	Long:  "Run one AI-backed portal flow against the configured gateway without starting the server.",
}

var askSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for books by title, author or theme",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAskSearch,
}

var askGuideCmd = &cobra.Command{
	Use:   "guide <title>",
	Short: "Get a reading guide for a book",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAskGuide,
}

var askChatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send one message to the scholar",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAskChat,
}

var askWisdomCmd = &cobra.Command{
	Use:   "wisdom",
	Short: "Show today's wisdom card",
	Args:  cobra.NoArgs,
	RunE:  runAskWisdom,
}

var askQuizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Show today's quiz, optionally answering it",
	Args:  cobra.NoArgs,
	RunE:  runAskQuiz,
}

func init() {
	askQuizCmd.Flags().IntVar(&quizAnswer, "answer", -1, "Option to pick (0-3)")

	askCmd.AddCommand(askSearchCmd)
	askCmd.AddCommand(askGuideCmd)
	askCmd.AddCommand(askChatCmd)
	askCmd.AddCommand(askWisdomCmd)
	askCmd.AddCommand(askQuizCmd)
}

func runAskSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	return withController(cmd, sessionOrDefault(), func(ctx context.Context, ctrl *controller.Controller) error {
		res, err := ctrl.Search(ctx, query)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}

		out := cmd.OutOrStdout()
		if res.Summary != "" {
			fmt.Fprintln(out, res.Summary)
			fmt.Fprintln(out)
		}
		if len(res.Books) > 0 {
			w := newTabWriter(out)
			fmt.Fprintln(w, "TITLE\tAUTHOR\tCATEGORY\tSOURCE")
			for _, b := range res.Books {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.Title, orDash(b.Author), b.Category, orDash(b.SourceURL))
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
		if len(res.Citations) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Sources:")
			for _, c := range res.Citations {
				fmt.Fprintf(out, "  %s %s\n", c.URL, c.Title)
			}
		}
		return nil
	})
}

func runAskGuide(cmd *cobra.Command, args []string) error {
	title := strings.Join(args, " ")
	return withController(cmd, sessionOrDefault(), func(ctx context.Context, ctrl *controller.Controller) error {
		res, err := ctrl.Guide(ctx, title)
		if err != nil {
			return fmt.Errorf("guide: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "《%s》\n\n%s\n", res.Title, res.Guide)
		return nil
	})
}

func runAskChat(cmd *cobra.Command, args []string) error {
	message := strings.Join(args, " ")
	return withController(cmd, oneShotSession(), func(ctx context.Context, ctrl *controller.Controller) error {
		res, err := ctrl.Chat(ctx, message)
		if err != nil {
			return fmt.Errorf("chat: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Reply)
		return nil
	})
}

func runAskWisdom(cmd *cobra.Command, args []string) error {
	return withController(cmd, sessionOrDefault(), func(ctx context.Context, ctrl *controller.Controller) error {
		res, err := ctrl.LoadWisdom(ctx)
		if err != nil {
			return fmt.Errorf("wisdom: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n    ——%s\n\n%s\n", res.Text, res.Source, res.Interpretation)
		return nil
	})
}

func runAskQuiz(cmd *cobra.Command, args []string) error {
	return withController(cmd, sessionOrDefault(), func(ctx context.Context, ctrl *controller.Controller) error {
		state, err := ctrl.LoadQuiz(ctx)
		if err != nil {
			return fmt.Errorf("quiz: %w", err)
		}
		if quizAnswer >= 0 {
			if state, err = ctrl.AnswerQuiz(quizAnswer); err != nil {
				return fmt.Errorf("answer: %w", err)
			}
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), state)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, state.Quiz.Question)
		for i, opt := range state.Quiz.Options {
			fmt.Fprintf(out, "  %d. %s\n", i, opt)
		}
		if state.Correct != nil {
			verdict := "Wrong"
			if *state.Correct {
				verdict = "Correct"
			}
			fmt.Fprintf(out, "\n%s. The answer is %d.\n%s\n", verdict, state.Quiz.Answer, state.Quiz.Explanation)
		}
		return nil
	})
}
