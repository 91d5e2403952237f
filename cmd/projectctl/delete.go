package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/go-sim-projects/internal/auth"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/service"
)

const confirmPrompt = "Are you sure you want to delete this project?"

func newDeleteCmd(open opener) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project",
		Long: `Delete a project by id (asks for confirmation unless --yes).

Deleting an id that does not exist succeeds.

Examples:
  projectctl delete --user=u1 proj-12345-6789
  projectctl delete --user=u1 proj-12345-6789 --yes
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout()) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}

			ctx := cmd.Context()
			e, err := open(ctx)
			if err != nil {
				return err
			}
			defer e.store.Close()

			svc := service.NewProjectService(e.store, auth.StaticOwner(e.user), service.WithLogger(e.log))
			if err := svc.Delete(ctx, strings.TrimSpace(args[0])); err != nil {
				return fmt.Errorf("failed to delete project: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}

// confirm asks the delete question and accepts y or yes.
func confirm(in io.Reader, out io.Writer) bool {
	fmt.Fprintf(out, "%s (y/N): ", confirmPrompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
