package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	firebase "firebase.google.com/go/v4"
	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/go-sim-projects/config"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/auth"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/bootstrap"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/logging"
)

// env carries what every subcommand needs once the store is open.
type env struct {
	cfg   *config.Config
	log   *slog.Logger
	store *bootstrap.Store
	user  string
}

func newRootCmd() *cobra.Command {
	var user string

	root := &cobra.Command{
		Use:           "projectctl",
		Short:         "Watch and edit projects",
		Long:          `projectctl talks to the configured project store (STORE_BACKEND) as a single user.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&user, "user", "u", os.Getenv("PROJECTS_USER"), "owner id to act as (defaults to $PROJECTS_USER)")

	open := func(ctx context.Context) (*env, error) {
		if user == "" {
			return nil, fmt.Errorf("--user is required")
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		log := logging.New(os.Stderr, cfg.App.LogLevel)

		var app *firebase.App
		if cfg.Store.Backend == config.BackendFirestore {
			app, err = auth.InitializeFirebase(ctx, &cfg.Firebase)
			if err != nil {
				return nil, err
			}
		}
		store, err := bootstrap.OpenStore(ctx, cfg, app, log)
		if err != nil {
			return nil, err
		}
		return &env{cfg: cfg, log: log, store: store, user: user}, nil
	}

	root.AddCommand(
		newWatchCmd(open),
		newCreateCmd(open),
		newDeleteCmd(open),
	)
	return root
}

type opener func(ctx context.Context) (*env, error)
