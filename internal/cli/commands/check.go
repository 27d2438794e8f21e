package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowmon-io/flowmon/internal/source"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check data source availability",
		Long: `Probe the run-history database and scan for CSV exports, then report
which source a load would use. Nothing is loaded.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd)
		},
	}
	return cmd
}

func runCheck(cmd *cobra.Command) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	dbCfg := &cc.Cfg.Database
	if missing := dbCfg.MissingCredentials(); len(missing) > 0 {
		fmt.Fprintf(out, "database:  not configured (missing %v)\n", missing)
	} else {
		fmt.Fprintf(out, "database:  %s\n", dbCfg.Redacted())
	}

	csvPath, csvErr := cc.Selector.DiscoverCSV()
	if csvErr != nil {
		fmt.Fprintf(out, "csv:       none found in %v\n", cc.Cfg.CSVSearchPaths())
	} else {
		fmt.Fprintf(out, "csv:       %s\n", csvPath)
	}

	decision, err := cc.Selector.Select(cmd.Context())
	switch decision.Outcome {
	case source.OutcomeUseDatabase:
		fmt.Fprintln(out, "selected:  database")
	case source.OutcomeFallbackToCSV:
		fmt.Fprintf(out, "selected:  csv (%s)\n", decision.Descriptor.CSVPath)
		fmt.Fprintf(out, "reason:    %s\n", decision.Cause)
	case source.OutcomeUnavailable:
		fmt.Fprintln(out, "selected:  none")
		return err
	}
	return nil
}
