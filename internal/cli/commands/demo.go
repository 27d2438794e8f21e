package commands

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowmon-io/flowmon/internal/flow"
)

// Demo fixtures, shaped like real tenant data.
var (
	demoFlows = []string{
		"AMZ - Order Processing",
		"C2D - Data Integration",
		"PS - Report Generation",
		"WF - System Check",
		"BI - Data Analytics",
	}
	demoOwners = []string{
		"powerautomate",
		"powerautomate02 serviceaccount",
		"powerautomate03 serviceaccount",
		"powerautomate04",
	}
)

// NewDemoCommand creates the demo command.
func NewDemoCommand() *cobra.Command {
	var day string
	var seed int64

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Write a sample flow_data CSV for local development",
		Long: `Generate a flow_data_<date>.csv in the data directory so the dashboard
can be exercised without database access. Roughly 70% of the generated
runs succeed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			target := time.Now().UTC()
			if day != "" {
				target, err = time.Parse("2006-01-02", day)
				if err != nil {
					return fmt.Errorf("invalid day %q (want YYYY-MM-DD)", day)
				}
			}

			dir := cc.Cfg.CSVSearchPaths()[1]
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}

			path := filepath.Join(dir, fmt.Sprintf("flow_data_%s.csv", target.Format("2006-01-02")))
			n, err := writeDemoCSV(path, target, rand.New(rand.NewSource(seed)))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d sample runs to %s\n", n, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&day, "for", "", "Date to generate runs for (YYYY-MM-DD, default: today)")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "Random seed")

	return cmd
}

func writeDemoCSV(path string, day time.Time, rng *rand.Rand) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"flow_name", "project", "owner", "trigger_type", "status", "start_time", "end_time", "duration_seconds"}); err != nil {
		return 0, err
	}

	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	var count int
	for _, name := range demoFlows {
		for hour := 0; hour < 24; hour++ {
			// Half the flows run hourly, the rest every other hour.
			if hour%2 != 0 && name[0] >= 'P' {
				continue
			}

			start := midnight.Add(time.Duration(hour)*time.Hour + time.Duration(rng.Intn(50))*time.Minute)
			duration := time.Duration(1+rng.Intn(14)) * time.Minute
			status := demoStatus(rng)

			row := []string{
				name,
				flow.ExtractProject(name),
				demoOwners[rng.Intn(len(demoOwners))],
				demoTrigger(rng),
				string(status),
				start.Format(time.RFC3339),
				"",
				strconv.FormatFloat(duration.Seconds(), 'f', 0, 64),
			}
			if status != flow.StatusRunning {
				row[6] = start.Add(duration).Format(time.RFC3339)
			}
			if err := w.Write(row); err != nil {
				return count, err
			}
			count++
		}
	}

	w.Flush()
	return count, w.Error()
}

// demoStatus draws a status with a realistic distribution: 70% succeeded,
// 15% failed, 10% running, 5% cancelled.
func demoStatus(rng *rand.Rand) flow.Status {
	switch p := rng.Float64(); {
	case p < 0.70:
		return flow.StatusSucceeded
	case p < 0.85:
		return flow.StatusFailed
	case p < 0.95:
		return flow.StatusRunning
	default:
		return flow.StatusCancelled
	}
}

func demoTrigger(rng *rand.Rand) string {
	if rng.Float64() < 0.8 {
		return "Recurrence"
	}
	return "manual"
}
