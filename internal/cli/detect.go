package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomkit/loom/internal/model"
)

// NewDetectCommand creates the detect command.
func NewDetectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect <artifact>",
		Short: "Compare an artifact's upstream inputs against its active version",
		Long: `Fetch the artifact's current inputs from the design source and report
the differences against the active version. Read-only: nothing is
regenerated or persisted.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runDetect(opts *RootOptions, cmd *cobra.Command, ref string) error {
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
	if artifact.CurrentVersionID == "" {
		return NewExitError(ExitCommandError, fmt.Sprintf("artifact %q has no active version", ref))
	}
	active, err := e.store.GetVersion(ctx, artifact.CurrentVersionID)
	if err != nil {
		return formatter.Fail(err)
	}

	res, err := e.detector.Detect(ctx, artifact, active)
	if err != nil {
		return formatter.Fail(err)
	}

	if formatter.Format == "json" {
		changes := model.ChangeSet{}
		if res != nil {
			changes = res.Changes
		}
		return formatter.Success(map[string]any{
			"artifact": artifact.Name,
			"active":   active.SemVer.String(),
			"changed":  res != nil,
			"changes":  changes,
		})
	}

	if res == nil {
		fmt.Fprintf(formatter.Writer, "%s: inputs unchanged at %s\n", artifact.Name, active.SemVer)
		return nil
	}

	fmt.Fprintf(formatter.Writer, "%s: %s\n", artifact.Name, res.Changes.Summary())
	for _, c := range res.Changes {
		switch c.Kind {
		case model.ChangeAdded:
			fmt.Fprintf(formatter.Writer, "  + %s = %s\n", c.Path, c.New)
		case model.ChangeRemoved:
			fmt.Fprintf(formatter.Writer, "  - %s (was %s)\n", c.Path, c.Old)
		case model.ChangeModified:
			fmt.Fprintf(formatter.Writer, "  ~ %s: %s -> %s\n", c.Path, c.Old, c.New)
		}
	}
	return nil
}
