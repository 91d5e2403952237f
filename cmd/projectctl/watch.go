package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/go-sim-projects/internal/auth"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/livesync"
)

func newWatchCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the project list every time it changes",
		Long: `Subscribe to the user's projects and reprint the full list on every change.

Examples:
  projectctl watch --user=u1
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			e, err := open(ctx)
			if err != nil {
				return err
			}
			defer e.store.Close()

			sync := livesync.New(e.store, livesync.WithLogger(e.log))
			out := cmd.OutOrStdout()
			cancel := sync.OnChange(func(v livesync.View) {
				fmt.Fprintln(out, "----")
				render(out, v)
			})
			defer cancel()

			err = sync.Follow(ctx, auth.NewSession(e.user))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
