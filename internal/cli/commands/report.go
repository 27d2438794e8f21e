package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/flowmon-io/flowmon/internal/aggregate"
	"github.com/flowmon-io/flowmon/internal/flow"
	"github.com/flowmon-io/flowmon/internal/loader"
)

// ReportOptions holds options for the report command.
type ReportOptions struct {
	GroupBy string
	Project string
	Status  string
	Matrix  bool
}

// NewReportCommand creates the report command.
func NewReportCommand() *cobra.Command {
	opts := &ReportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Load flow runs for a day and print an aggregate view",
		Example: `  # Today's runs grouped by project
  flowmon report

  # A specific day, grouped by status, as JSON
  flowmon report --day 2024-01-05 --group-by status -o json

  # Hourly status matrix for one project
  flowmon report --matrix --project "AMZ"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.GroupBy, "group-by", "g", string(aggregate.ByProject), "Grouping dimension (project|status|day|hour)")
	cmd.Flags().StringVar(&opts.Project, "project", "", "Only include runs of this project")
	cmd.Flags().StringVar(&opts.Status, "status", "", "Only include runs with this status")
	cmd.Flags().BoolVar(&opts.Matrix, "matrix", false, "Print the flow-by-hour status matrix instead of a summary")

	return cmd
}

func runReport(cmd *cobra.Command, opts *ReportOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	day, err := cc.reportDay()
	if err != nil {
		return err
	}

	groupBy, err := aggregate.ParseGroupBy(opts.GroupBy)
	if err != nil {
		return err
	}

	decision, err := cc.Selector.Select(cmd.Context())
	if err != nil {
		return err
	}

	loadOpts := loader.Options{Day: day, Project: opts.Project}
	if opts.Status != "" {
		status, ok := flow.LookupStatus(opts.Status)
		if !ok {
			return fmt.Errorf("unknown status %q", opts.Status)
		}
		loadOpts.Status = status
	}

	ds, status, err := cc.Loader.Load(cmd.Context(), decision.Descriptor, loadOpts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	switch status {
	case flow.LoadEmptyResult:
		fmt.Fprintf(out, "No data for %s (source: %s)\n", day.Format("2006-01-02"), ds.Source)
		return nil
	case flow.LoadPartialSuccess:
		fmt.Fprintf(out, "Warning: %d of %d rows skipped by validation\n", ds.RowsSkipped, ds.RowCountRaw)
	}

	if opts.Matrix {
		return renderMatrix(out, aggregate.HourlyMatrix(ds, aggregate.DefaultMaxMatrixRows), cc.Cfg.Output)
	}

	view, err := aggregate.Aggregate(ds, groupBy)
	if err != nil {
		return err
	}
	return renderView(out, ds, view, cc.Cfg.Output)
}

func renderView(w io.Writer, ds *flow.Dataset, view *aggregate.View, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := table.Row{string(view.GroupBy), "total"}
	for _, s := range flow.AllStatuses() {
		header = append(header, string(s))
	}
	header = append(header, "success rate")
	t.AppendHeader(header)

	for _, g := range view.Groups {
		row := table.Row{g.Key, g.Total}
		for _, s := range flow.AllStatuses() {
			row = append(row, g.Counts[s])
		}
		row = append(row, formatRate(g.SuccessRate))
		t.AppendRow(row)
	}
	t.Render()

	fmt.Fprintf(w, "source: %s (%s), %d/%d rows valid\n",
		ds.Source, ds.SourceIdentifier, ds.RowCountValid, ds.RowCountRaw)
	return nil
}

func renderMatrix(w io.Writer, m *aggregate.Matrix, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := table.Row{"flow"}
	for _, h := range m.Hours {
		header = append(header, fmt.Sprintf("%02d", h))
	}
	t.AppendHeader(header)

	for _, row := range m.Rows {
		r := table.Row{row.DisplayName}
		for _, cell := range row.Cells {
			r = append(r, abbreviate(cell))
		}
		t.AppendRow(r)
	}
	t.Render()
	return nil
}

// abbreviate shortens a status for matrix cells.
func abbreviate(cell string) string {
	switch cell {
	case aggregate.CellNoRun:
		return "."
	case string(flow.StatusSucceeded):
		return "S"
	case string(flow.StatusFailed):
		return "F"
	case string(flow.StatusRunning):
		return "R"
	case string(flow.StatusCancelled):
		return "C"
	default:
		return "?"
	}
}

func formatRate(rate *float64) string {
	if rate == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *rate*100)
}
