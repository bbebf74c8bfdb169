package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/PaulBabatuyi/marketchat/internal/inbox"
)

var threadsCmd = &cobra.Command{
	Use:     "threads",
	Aliases: []string{"ls"},
	Short:   "List your conversations, most recent first",
	Args:    cobra.NoArgs,
	RunE:    runThreads,
}

func init() {
	rootCmd.AddCommand(threadsCmd)
}

func runThreads(cmd *cobra.Command, _ []string) error {
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	view := sess.newView(inbox.Options{})
	defer view.Close()

	threads, err := view.LoadDirectory(cmd.Context())
	if err != nil {
		return err
	}
	renderThreads(cmd.OutOrStdout(), threads, sess.userID, time.Now())
	return nil
}
