package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nhle/voice-mail/internal/session"
	"github.com/nhle/voice-mail/internal/ui"
)

// runCmd starts the interactive console.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the interactive console",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole(cmd.Context())
	},
}

// sayCmd handles utterances without the console, one per argument or one
// per line of stdin.
var sayCmd = &cobra.Command{
	Use:   "say [utterance...]",
	Short: "Handle utterances and print the responses",
	Long: `Handle each argument as one utterance, in order, within a single session.
With no arguments, utterances are read from standard input, one per line.

Example:
  voicemail say "email john@example.com" "subject lunch" "say see you at noon" "send it" "yes"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sess, err := application.NewSession(ctx)
		if err != nil {
			return err
		}

		if len(args) > 0 {
			for _, utterance := range args {
				printTurn(cmd.OutOrStdout(), sess.Handle(ctx, utterance))
			}
			return nil
		}
		return sayLines(ctx, sess, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func runConsole(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := application.NewSession(ctx)
	if err != nil {
		return err
	}
	application.Logger.Info("console started")
	return ui.RunConsole(ctx, sess)
}

func sayLines(ctx context.Context, sess *session.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		printTurn(out, sess.Handle(ctx, line))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading utterances: %w", err)
	}
	return nil
}

func printTurn(out io.Writer, turn session.Turn) {
	if strings.TrimSpace(turn.Response) == "" {
		return
	}
	fmt.Fprintf(out, "> %s\n%s\n", turn.Utterance, turn.Response)
}
