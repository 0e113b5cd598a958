package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/loomkit/loom/internal/model"
	"github.com/loomkit/loom/internal/store"
)

// NewVersionsCommand creates the versions command.
func NewVersionsCommand(rootOpts *RootOptions) *cobra.Command {
	var status string
	var tag string
	var trigger string
	var limit int

	cmd := &cobra.Command{
		Use:           "versions <artifact>",
		Short:         "List an artifact's version history",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := store.Filter{
				Status:  model.Status(status),
				Tag:     tag,
				Trigger: model.Trigger(trigger),
				Limit:   limit,
			}
			return runVersions(rootOpts, cmd, args[0], f)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (draft|active|archived)")
	cmd.Flags().StringVar(&tag, "tag", "", "filter by tag")
	cmd.Flags().StringVar(&trigger, "trigger", "", "filter by trigger kind")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of versions")
	return cmd
}

func runVersions(opts *RootOptions, cmd *cobra.Command, ref string, f store.Filter) error {
	formatter := newFormatter(opts, cmd)
	ctx := cmd.Context()

	if f.Status != "" && !f.Status.Valid() {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid status %q", f.Status))
	}
	if f.Trigger != "" && !f.Trigger.Valid() {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid trigger %q", f.Trigger))
	}

	e, err := openEnv(opts)
	if err != nil {
		return err
	}
	defer e.close()

	artifact, err := e.resolveArtifact(ctx, ref)
	if err != nil {
		return err
	}

	versions, err := e.store.ListVersions(ctx, artifact.ID, f)
	if err != nil {
		return formatter.Fail(err)
	}

	if formatter.Format == "json" {
		type row struct {
			ID        string `json:"id"`
			SemVer    string `json:"semver"`
			Status    string `json:"status"`
			Trigger   string `json:"trigger"`
			CreatedBy string `json:"created_by"`
			CreatedAt string `json:"created_at"`
			Tags      string `json:"tags,omitempty"`
			ParentID  string `json:"parent_id,omitempty"`
		}
		rows := make([]row, 0, len(versions))
		for _, v := range versions {
			rows = append(rows, row{
				ID:        v.ID,
				SemVer:    v.SemVer.String(),
				Status:    string(v.Status),
				Trigger:   string(v.Trigger),
				CreatedBy: v.CreatedBy,
				CreatedAt: v.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
				Tags:      strings.Join(v.Tags, ","),
				ParentID:  v.ParentID,
			})
		}
		return formatter.Success(map[string]any{
			"artifact": artifact.Name,
			"versions": rows,
		})
	}

	w := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATUS\tTRIGGER\tCREATED BY\tCREATED AT\tTAGS")
	for _, v := range versions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			v.SemVer,
			v.Status,
			v.Trigger,
			v.CreatedBy,
			v.CreatedAt.Format("2006-01-02 15:04:05"),
			strings.Join(v.Tags, ","),
		)
	}
	return w.Flush()
}
