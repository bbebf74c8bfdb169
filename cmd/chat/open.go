package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PaulBabatuyi/marketchat/internal/inbox"
)

const quitCommand = "/quit"

var openCmd = &cobra.Command{
	Use:   "open <thread-id>",
	Short: "Open a conversation and chat",
	Long: `open prints the thread's history, follows new messages as they arrive
and sends every line you type. Type /quit or press Ctrl-C to leave.`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

var startCmd = &cobra.Command{
	Use:   "start <listing-id> <seller-id>",
	Short: "Message the seller of a listing",
	Long: `start opens your conversation with the seller about a listing, creating
it on first contact, and then behaves like open.`,
	Args: cobra.ExactArgs(2),
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(openCmd, startCmd)
}

func runOpen(cmd *cobra.Command, args []string) error {
	return withChat(cmd, func(ctx context.Context, view *inbox.View) (string, error) {
		threadID := args[0]
		if err := view.Open(ctx, threadID); err != nil {
			return "", err
		}
		return threadID, nil
	})
}

func runStart(cmd *cobra.Command, args []string) error {
	return withChat(cmd, func(ctx context.Context, view *inbox.View) (string, error) {
		conv, err := view.StartConversation(ctx, args[0], args[1])
		if err != nil {
			return "", err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "conversation %s\n", conv.ID)
		return conv.ID, nil
	})
}

// withChat builds a view whose updates are printed, lets attach open a
// thread, and then runs the composer until the user quits.
func withChat(cmd *cobra.Command, attach func(context.Context, *inbox.View) (string, error)) error {
	ctx := cmd.Context()
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	out := cmd.OutOrStdout()
	tr := newTranscript(out, sess.userID)
	var view *inbox.View
	view = sess.newView(inbox.Options{
		OnUpdate: func(u inbox.Update) {
			if u.Kind == inbox.UpdateMessages {
				tr.show(view.Messages())
			}
		},
	})
	defer view.Close()

	// Names only; the thread still opens when the directory is unavailable.
	if threads, err := view.LoadDirectory(ctx); err != nil {
		sess.log.Warn().Err(err).Msg("could not load conversations")
	} else {
		for _, t := range threads {
			tr.setName(t.Counterpart.ID, t.Counterpart.Username)
		}
	}

	threadID, err := attach(ctx, view)
	if err != nil {
		return err
	}
	if !view.Live() {
		fmt.Fprintln(out, "(live updates unavailable; reopen the thread to see new messages)")
	}
	return compose(ctx, view, threadID, cmd.InOrStdin(), out)
}

// compose sends each non-empty line read from in until in ends, the user
// types /quit or ctx is done.
func compose(ctx context.Context, view *inbox.View, threadID string, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == quitCommand {
				return nil
			}
			_, err := view.Send(ctx, threadID, line)
			switch {
			case err == nil, errors.Is(err, inbox.ErrEmptyMessage):
			case errors.Is(err, inbox.ErrClosed):
				return nil
			default:
				fmt.Fprintf(out, "not sent: %v\n", err)
			}
		}
	}
}
