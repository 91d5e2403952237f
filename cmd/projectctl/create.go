package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/go-sim-projects/internal/auth"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/service"
)

func newCreateCmd(open opener) *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Long: `Create a project owned by --user.

Examples:
  projectctl create --user=u1 --name="Demo" --description="First try"
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := open(ctx)
			if err != nil {
				return err
			}
			defer e.store.Close()

			svc := service.NewProjectService(e.store, auth.StaticOwner(e.user), service.WithLogger(e.log))
			id, err := svc.Create(ctx, strings.TrimSpace(name), strings.TrimSpace(description))
			if err != nil {
				return fmt.Errorf("failed to create project: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Project name (required)")
	cmd.Flags().StringVar(&description, "description", "", "Project description (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}
