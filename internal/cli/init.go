package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/loomkit/loom/internal/model"
	"github.com/loomkit/loom/internal/regen"
)

// NewInitCommand creates the init command: register an artifact and run
// its initial generation.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	var kind string
	var policy string
	var actor string

	cmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Register an artifact and generate version 1.0.0",
		Long: `Register an artifact, fetch its inputs from the design source, and
generate its first version. The first version becomes active at 1.0.0.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, cmd, args[0], kind, policy, actor)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "component", "artifact kind, e.g. component/button")
	cmd.Flags().StringVar(&policy, "policy", string(model.PolicyManual), "trigger policy (AUTO|NOTIFY|MANUAL)")
	cmd.Flags().StringVar(&actor, "actor", model.SystemActor, "creator recorded on the version")
	return cmd
}

func runInit(opts *RootOptions, cmd *cobra.Command, name, kind, policy, actor string) error {
	formatter := newFormatter(opts, cmd)
	ctx := cmd.Context()

	e, err := openEnv(opts)
	if err != nil {
		return err
	}
	defer e.close()

	p := model.TriggerPolicy(policy)
	if !p.Valid() {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid policy %q", policy))
	}

	a := &model.Artifact{
		ID:        model.NewArtifactID(),
		Name:      name,
		Kind:      kind,
		CreatedAt: time.Now(),
	}

	tokens, reqs, err := e.source.Fetch(ctx, a)
	if err != nil {
		return formatter.Fail(err)
	}

	payload, err := regen.TemplateGenerator{}.Generate(ctx, a, tokens, reqs)
	if err != nil {
		return formatter.Fail(err)
	}

	v := &model.Version{
		ID:              model.NewVersionID(),
		ArtifactID:      a.ID,
		SemVer:          model.SemVer{Major: 1},
		CreatedAt:       time.Now(),
		CreatedBy:       actor,
		Trigger:         model.TriggerManual,
		TokenHash:       model.MustHashTokens(tokens),
		RequirementHash: model.MustHashRequirements(reqs),
		Tokens:          tokens,
		Requirements:    reqs,
		Code:            payload.Code,
		Aux:             payload.Aux,
	}

	if err := e.store.CreateArtifact(ctx, a, v); err != nil {
		return formatter.Fail(err)
	}
	if err := e.store.SetPolicy(ctx, a.ID, p); err != nil {
		return formatter.Fail(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{
			"artifact_id": a.ID,
			"name":        a.Name,
			"version":     v.SemVer.String(),
			"version_id":  v.ID,
			"policy":      string(p),
		})
	}
	fmt.Fprintf(formatter.Writer, "Registered %s (%s) at %s, policy %s\n",
		a.Name, a.ID, v.SemVer, p)
	return nil
}

// newFormatter builds the output formatter for a command invocation.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
