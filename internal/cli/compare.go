package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomkit/loom/internal/diff"
	"github.com/loomkit/loom/internal/model"
)

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <artifact> <version-a> <version-b>",
		Short: "Diff two versions of an artifact",
		Long: `Diff two versions of an artifact: a unified diff of the generated code
plus the per-key input differences. Versions may be ids or semantic
versions like "1.0.0".`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(rootOpts, cmd, args[0], args[1], args[2])
		},
	}
	return cmd
}

func runCompare(opts *RootOptions, cmd *cobra.Command, ref, refA, refB string) error {
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
	a, err := e.resolveVersion(ctx, artifact.ID, refA)
	if err != nil {
		return err
	}
	b, err := e.resolveVersion(ctx, artifact.ID, refB)
	if err != nil {
		return err
	}

	d := diff.CompareVersions(a, b)

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{
			"artifact": artifact.Name,
			"from":     a.SemVer.String(),
			"to":       b.SemVer.String(),
			"inputs":   d.Inputs,
			"code":     d.Code,
		})
	}

	fmt.Fprintf(formatter.Writer, "%s: %s -> %s\n\n", artifact.Name, a.SemVer, b.SemVer)
	if len(d.Inputs) == 0 {
		fmt.Fprintln(formatter.Writer, "Inputs: unchanged")
	} else {
		fmt.Fprintf(formatter.Writer, "Inputs (%s):\n", d.Inputs.Summary())
		for _, c := range d.Inputs {
			switch c.Kind {
			case model.ChangeAdded:
				fmt.Fprintf(formatter.Writer, "  + %s = %s\n", c.Path, c.New)
			case model.ChangeRemoved:
				fmt.Fprintf(formatter.Writer, "  - %s (was %s)\n", c.Path, c.Old)
			case model.ChangeModified:
				fmt.Fprintf(formatter.Writer, "  ~ %s: %s -> %s\n", c.Path, c.Old, c.New)
			}
		}
	}

	fmt.Fprintln(formatter.Writer)
	if len(d.Code) == 0 {
		fmt.Fprintln(formatter.Writer, "Code: unchanged")
	} else {
		for _, line := range d.Code {
			fmt.Fprintln(formatter.Writer, line)
		}
	}
	return nil
}
