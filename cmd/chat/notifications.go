package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/PaulBabatuyi/marketchat/internal/inbox"
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"bell"},
	Short:   "Show your recent notifications",
	Args:    cobra.NoArgs,
	RunE:    runNotifications,
}

func init() {
	notificationsCmd.Flags().StringSlice("mark", nil, "mark these notification ids read")
	notificationsCmd.Flags().Bool("mark-all", false, "mark every notification read")
	notificationsCmd.Flags().Bool("watch", false, "keep running and print the list whenever it changes")
	rootCmd.AddCommand(notificationsCmd)
}

func runNotifications(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	mark, err := cmd.Flags().GetStringSlice("mark")
	if err != nil {
		return err
	}
	markAll, err := cmd.Flags().GetBool("mark-all")
	if err != nil {
		return err
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return err
	}

	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	out := cmd.OutOrStdout()
	opts := inbox.BellOptions{
		Logger: &sess.log,
		Limit:  sess.settings.NotificationLimit,
	}
	if watch {
		opts.OnChange = func(state inbox.BellState) {
			renderNotifications(out, state, time.Now())
		}
	}
	bell := inbox.NewBell(sess.client, sess.userID, opts)
	if err := bell.Start(ctx); err != nil {
		return err
	}
	defer bell.Stop()

	for _, id := range mark {
		if err := bell.MarkRead(ctx, id); err != nil {
			return err
		}
	}
	if markAll {
		if err := bell.MarkAllRead(ctx); err != nil {
			return err
		}
	}

	if !watch {
		renderNotifications(out, bell.Snapshot(), time.Now())
		return nil
	}
	<-ctx.Done()
	return nil
}
