package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loomkit/loom/internal/model"
)

// NewPolicyCommand creates the policy command group.
func NewPolicyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Get or set an artifact's trigger policy",
	}
	cmd.AddCommand(newPolicyGetCommand(rootOpts))
	cmd.AddCommand(newPolicySetCommand(rootOpts))
	return cmd
}

func newPolicyGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <artifact>",
		Short:         "Show the trigger policy",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			ctx := cmd.Context()

			e, err := openEnv(rootOpts)
			if err != nil {
				return err
			}
			defer e.close()

			artifact, err := e.resolveArtifact(ctx, args[0])
			if err != nil {
				return err
			}
			policy, err := e.store.GetPolicy(ctx, artifact.ID)
			if err != nil {
				return formatter.Fail(err)
			}

			if formatter.Format == "json" {
				return formatter.Success(map[string]any{
					"artifact": artifact.Name,
					"policy":   string(policy),
				})
			}
			fmt.Fprintln(formatter.Writer, policy)
			return nil
		},
	}
}

func newPolicySetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "set <artifact> <AUTO|NOTIFY|MANUAL>",
		Short:         "Set the trigger policy",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			ctx := cmd.Context()

			policy := model.TriggerPolicy(strings.ToUpper(args[1]))
			if !policy.Valid() {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid policy %q", args[1]))
			}

			e, err := openEnv(rootOpts)
			if err != nil {
				return err
			}
			defer e.close()

			artifact, err := e.resolveArtifact(ctx, args[0])
			if err != nil {
				return err
			}
			if err := e.store.SetPolicy(ctx, artifact.ID, policy); err != nil {
				return formatter.Fail(err)
			}

			if formatter.Format == "json" {
				return formatter.Success(map[string]any{
					"artifact": artifact.Name,
					"policy":   string(policy),
				})
			}
			fmt.Fprintf(formatter.Writer, "Policy for %s set to %s\n", artifact.Name, policy)
			return nil
		},
	}
}
