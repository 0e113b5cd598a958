// Package cli implements the loom command line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose      bool
	Format       string // "json" | "text"
	ConfigPath   string
	DBPath       string // overrides config
	DesignSource string // overrides config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the loom CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "loom",
		Short: "loom - component regeneration and versioning",
		Long: "Tracks design-token and requirement inputs per generated component,\n" +
			"regenerates code when they change, and keeps an immutable semantic\n" +
			"version history with safe rollback.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "database file (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.DesignSource, "source", "", "design source file (overrides config)")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewRegenerateCommand(opts))
	cmd.AddCommand(NewRollbackCommand(opts))
	cmd.AddCommand(NewVersionsCommand(opts))
	cmd.AddCommand(NewCompareCommand(opts))
	cmd.AddCommand(NewPolicyCommand(opts))
	cmd.AddCommand(NewDetectCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
