package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRollbackCommand creates the rollback command.
func NewRollbackCommand(rootOpts *RootOptions) *cobra.Command {
	var actor string
	var showDiff bool

	cmd := &cobra.Command{
		Use:   "rollback <artifact> <version>",
		Short: "Restore a prior version's content as a new version",
		Long: `Restore the target version's inputs and code as a new active version.
The target may be a version id or a semantic version like "1.0.0". The
history is not rewritten: the restore appends a patch-bumped version whose
parent is the version being rolled back from.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRollback(rootOpts, cmd, args[0], args[1], actor, showDiff)
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "creator recorded on the version (default: system)")
	cmd.Flags().BoolVar(&showDiff, "diff", false, "print the code diff")
	return cmd
}

func runRollback(opts *RootOptions, cmd *cobra.Command, ref, targetRef, actor string, showDiff bool) error {
	formatter := newFormatter(opts, cmd)
	ctx := cmd.Context()

	e, err := openEnv(opts)
	if err != nil {
		return err
	}
	defer e.close()

	artifact, err := e.resolveArtifact(ctx, ref)
	if err != nil {
		return err
	}
	target, err := e.resolveVersion(ctx, artifact.ID, targetRef)
	if err != nil {
		return err
	}

	res, err := e.service.Rollback(ctx, artifact.ID, target.ID, actor)
	if err != nil {
		return formatter.Fail(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{
			"previous_version": res.Previous.SemVer.String(),
			"new_version":      res.Version.SemVer.String(),
			"new_version_id":   res.Version.ID,
			"restored":         target.SemVer.String(),
			"code_diff":        res.CodeDiff,
		})
	}

	fmt.Fprintf(formatter.Writer, "Rolled back: %s -> %s (restores %s)\n",
		res.Previous.SemVer, res.Version.SemVer, target.SemVer)
	if showDiff && len(res.CodeDiff) > 0 {
		for _, line := range res.CodeDiff {
			fmt.Fprintln(formatter.Writer, line)
		}
	}
	return nil
}
