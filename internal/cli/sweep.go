package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomkit/loom/internal/logging"
	"github.com/loomkit/loom/internal/trigger"
)

// NewSweepCommand creates the sweep command: one synchronous detection
// pass over every artifact, honoring each artifact's policy. The daemon
// runs the same pass on a timer; this is the on-demand variant.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sweep",
		Short:         "Run one detection pass over all artifacts",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(rootOpts, cmd)
		},
	}
	return cmd
}

func runSweep(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	ctx := cmd.Context()

	e, err := openEnv(opts)
	if err != nil {
		return err
	}
	defer e.close()

	log := logging.Nop()
	if opts.Verbose {
		log = logging.New(logging.Config{Level: "debug", Pretty: true, Output: cmd.ErrOrStderr()})
	}

	// One-shot: no cooldown, queue sized to the config, workers drain it
	// to completion before the command returns.
	queue := trigger.NewQueue(e.cfg.QueueCapacity)
	cooldown := trigger.NewCooldown(0, nil)
	engine := trigger.NewEngine(e.store, e.detector, queue, cooldown, nil, log, nil)
	sweeper := trigger.NewSweeper(e.store, engine, e.cfg.SweepInterval.Std(), log)

	sweeper.Sweep(ctx)
	queued := queue.Len()

	pool := trigger.NewPool(queue, e.service, cooldown, e.cfg.Workers, e.cfg.RequestTimeout.Std(), log, nil)
	pool.Start(ctx)
	queue.Close()
	pool.Wait()

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{"regenerated": queued})
	}
	fmt.Fprintf(formatter.Writer, "Sweep complete: %d artifact(s) regenerated\n", queued)
	return nil
}
