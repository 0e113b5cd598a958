package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loomkit/loom/internal/model"
	"github.com/loomkit/loom/internal/regen"
)

// NewRegenerateCommand creates the regenerate command.
func NewRegenerateCommand(rootOpts *RootOptions) *cobra.Command {
	var actor string
	var keepInputs bool
	var showDiff bool

	cmd := &cobra.Command{
		Use:   "regenerate <artifact>",
		Short: "Regenerate an artifact from its current design inputs",
		Long: `Fetch the artifact's inputs from the design source and build a new
version. With --keep-inputs the active version's stored inputs are reused
instead, regenerating code without an input change.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegenerate(rootOpts, cmd, args[0], actor, keepInputs, showDiff)
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "creator recorded on the version (default: system)")
	cmd.Flags().BoolVar(&keepInputs, "keep-inputs", false, "reuse the active version's inputs")
	cmd.Flags().BoolVar(&showDiff, "diff", false, "print the code diff")
	return cmd
}

func runRegenerate(opts *RootOptions, cmd *cobra.Command, ref, actor string, keepInputs, showDiff bool) error {
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

	regenOpts := regen.Options{Trigger: model.TriggerManual, Actor: actor}
	if !keepInputs {
		tokens, reqs, err := e.source.Fetch(ctx, artifact)
		if err != nil {
			return formatter.Fail(err)
		}
		regenOpts.Tokens = tokens
		regenOpts.Requirements = reqs
	}

	res, err := e.service.Regenerate(ctx, artifact.ID, regenOpts)
	if err != nil {
		return formatter.Fail(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(regenResultJSON(res))
	}
	printRegenResult(formatter, res, showDiff)
	return nil
}

func regenResultJSON(res *regen.Result) map[string]any {
	return map[string]any{
		"previous_version": res.Previous.SemVer.String(),
		"new_version":      res.Version.SemVer.String(),
		"new_version_id":   res.Version.ID,
		"bump":             string(res.Bump),
		"changes":          res.Changes,
		"code_diff":        res.CodeDiff,
	}
}

func printRegenResult(f *OutputFormatter, res *regen.Result, showDiff bool) {
	fmt.Fprintf(f.Writer, "%s -> %s (%s bump, %s)\n",
		res.Previous.SemVer, res.Version.SemVer, res.Bump, res.Changes.Summary())
	for _, c := range res.Changes {
		switch c.Kind {
		case model.ChangeAdded:
			fmt.Fprintf(f.Writer, "  + %s = %s\n", c.Path, c.New)
		case model.ChangeRemoved:
			fmt.Fprintf(f.Writer, "  - %s (was %s)\n", c.Path, c.Old)
		case model.ChangeModified:
			fmt.Fprintf(f.Writer, "  ~ %s: %s -> %s\n", c.Path, c.Old, c.New)
		}
	}
	if showDiff && len(res.CodeDiff) > 0 {
		fmt.Fprintln(f.Writer)
		fmt.Fprintln(f.Writer, strings.Join(res.CodeDiff, "\n"))
	}
}
