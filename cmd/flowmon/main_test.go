// Package main provides tests for the flowmon CLI.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flowmon-io/flowmon/internal/cli"
)

func TestVersionCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Errorf("version command error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "flowmon") {
		t.Errorf("version output should contain 'flowmon', got: %s", output)
	}
}

func TestHelpCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Errorf("help command error = %v", err)
	}

	output := buf.String()
	expectedCommands := []string{"report", "serve", "check", "demo", "version"}
	for _, expected := range expectedCommands {
		if !strings.Contains(output, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, output)
		}
	}
}

// workspace creates a temp project dir holding a config file and one CSV
// export, returning the config file path to pass via --config.
func workspace(t *testing.T, csv string) string {
	t.Helper()
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "flowmon.yaml")
	if err := os.WriteFile(cfgPath, []byte("day: \"2024-01-05\"\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if csv != "" {
		csvPath := filepath.Join(dir, "flow_data_2024-01-05.csv")
		if err := os.WriteFile(csvPath, []byte(csv), 0o644); err != nil {
			t.Fatalf("failed to write csv: %v", err)
		}
	}
	return cfgPath
}

const reportCSV = "flow_name,project,owner,status,start_time,end_time\n" +
	"AMZ - Order Sync,AMZ,alice,Succeeded,2024-01-05T09:00:00Z,2024-01-05T09:05:00Z\n" +
	"AMZ - Refund Check,AMZ,alice,Failed,2024-01-05T10:00:00Z,2024-01-05T10:01:00Z\n"

func TestReportCommand(t *testing.T) {
	cfgPath := workspace(t, reportCSV)

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"report", "--config", cfgPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("report command error = %v", err)
	}

	output := buf.String()
	for _, expected := range []string{"AMZ", "50.0%", "2/2 rows valid"} {
		if !strings.Contains(output, expected) {
			t.Errorf("report output should contain '%s', got: %s", expected, output)
		}
	}
}

func TestReportCommandJSON(t *testing.T) {
	cfgPath := workspace(t, reportCSV)

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"report", "--config", cfgPath, "-o", "json", "--group-by", "status"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("report command error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, `"group_by": "status"`) {
		t.Errorf("json output should contain group_by, got: %s", output)
	}
}

func TestReportCommandMatrix(t *testing.T) {
	cfgPath := workspace(t, reportCSV)

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"report", "--config", cfgPath, "--matrix"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("report command error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Alice | AMZ | AMZ - Order Sync") {
		t.Errorf("matrix output should list the flow, got: %s", output)
	}
}

func TestCheckCommandNoSources(t *testing.T) {
	cfgPath := workspace(t, "")

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"check", "--config", cfgPath})

	if err := cmd.Execute(); err == nil {
		t.Error("check should fail when no data source is available")
	}
}

func TestDemoCommand(t *testing.T) {
	cfgPath := workspace(t, "")

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"demo", "--config", cfgPath, "--for", "2024-01-05", "--seed", "1"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("demo command error = %v", err)
	}

	dataDir := filepath.Join(filepath.Dir(cfgPath), "data")
	matches, err := filepath.Glob(filepath.Join(dataDir, "flow_data_*.csv"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("demo should write one csv export, got %v (err %v)", matches, err)
	}

	content, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("failed to read generated csv: %v", err)
	}
	if !strings.HasPrefix(string(content), "flow_name,") {
		t.Errorf("generated csv should start with the canonical header, got: %.80s", content)
	}
}
