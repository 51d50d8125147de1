package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"po-outstanding-dashboard/cmd/podash/config"
	"po-outstanding-dashboard/internal/dashboard"
	"po-outstanding-dashboard/internal/reconciler"
	"po-outstanding-dashboard/pkg/errors"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

func writeSources(t *testing.T, dir string) {
	t.Helper()

	files := map[string]string{
		reconciler.DefaultLedgerFile: "PO Number,Vendor name,Posting date,PO Balance,PO Total Amount\n" +
			"A,Vendor A,01.01.2024,100,200\n" +
			"B,Vendor B,02.01.2024,0,50\n" +
			"C,Vendor C,03.01.2024,50,60\n",
		reconciler.DefaultSystemMappingFile: "PO Number,PTJ Number\n" +
			"A,U9\n" +
			"B,U2\n",
		reconciler.DefaultManualMappingFile: "PO Number,PTJ Number\n" +
			"A,U1\n",
		reconciler.DefaultDimensionFile: "PTJ NO,SEKTOR,BAHAGIAN/UNIT,PTJ\n" +
			"U1,S1,D1,P1\n" +
			"U2,S2,D2,P2\n",
	}

	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

// run executes a fresh command tree with args and captures its output
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--env-file", "", "--log-format", "json"}, args...))

	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestSummaryConsole(t *testing.T) {
	dir := t.TempDir()
	writeSources(t, dir)

	out, _, err := run(t, "summary", "--data-dir", dir)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}

	for _, want := range []string{
		"Jumlah Pesanan Tempatan:      2",
		"Baki Pesanan Tempatan (RM):   150.00",
		"P1",
		"PO: A, Vendor: Vendor A",
		"PO: C, Vendor: Vendor C",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "PO: B,") {
		t.Errorf("zero balance PO B should not be listed")
	}
}

func TestSummaryJSONWithFilters(t *testing.T) {
	dir := t.TempDir()
	writeSources(t, dir)

	out, _, err := run(t, "summary", "--data-dir", dir, "--format", "json", "--sector", "S1")
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}

	var report dashboard.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}

	if len(report.Rows) != 1 || report.Rows[0].PONumber != "A" {
		t.Errorf("rows = %+v", report.Rows)
	}
	if report.Levels[0].Selected != "S1" {
		t.Errorf("sector selection = %q", report.Levels[0].Selected)
	}
	if report.SnapshotID == "" {
		t.Error("snapshot id missing")
	}
}

func TestSummaryInvalidFormat(t *testing.T) {
	dir := t.TempDir()
	writeSources(t, dir)

	_, _, err := run(t, "summary", "--data-dir", dir, "--format", "csv")
	if err == nil {
		t.Fatal("expected error for csv summary")
	}

	dashErr, ok := errors.AsDashboardError(err)
	if !ok || dashErr.Category != errors.CategoryValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestSummaryMissingSources(t *testing.T) {
	dir := t.TempDir()
	writeSources(t, dir)
	os.Remove(filepath.Join(dir, reconciler.DefaultLedgerFile))
	os.Remove(filepath.Join(dir, reconciler.DefaultDimensionFile))

	_, _, err := run(t, "summary", "--data-dir", dir)
	if err == nil {
		t.Fatal("expected missing source error")
	}

	var stderr bytes.Buffer
	code := NewCLIErrorHandler(&stderr).HandleError(err)
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}

	msg := stderr.String()
	for _, name := range []string{reconciler.DefaultLedgerFile, reconciler.DefaultDimensionFile} {
		if !strings.Contains(msg, name) {
			t.Errorf("error output should list %s:\n%s", name, msg)
		}
	}
}

func TestSummaryMissingDimensionColumn(t *testing.T) {
	dir := t.TempDir()
	writeSources(t, dir)
	if err := os.WriteFile(filepath.Join(dir, reconciler.DefaultDimensionFile), []byte("UNIT,SEKTOR\nU1,S1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := run(t, "summary", "--data-dir", dir)
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if code := NewCLIErrorHandler(&bytes.Buffer{}).HandleError(err); code != 4 {
		t.Errorf("exit code = %d, want 4", code)
	}
	if !strings.Contains(err.Error(), "PTJ NO") {
		t.Errorf("error should name the column: %v", err)
	}
}

func TestExportCSVFile(t *testing.T) {
	dir := t.TempDir()
	writeSources(t, dir)
	output := filepath.Join(t.TempDir(), "out.csv")

	_, stderr, err := run(t, "export", "--data-dir", dir, "--output", output)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.Contains(stderr, "Exported 2 rows") {
		t.Errorf("stderr = %q", stderr)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	want := "\uFEFFNo.,PO Number,Vendor name,Posting date,PO Balance,BAHAGIAN/UNIT\n" +
		"1,A,Vendor A,01.01.2024,RM 100.00,D1\n" +
		"2,C,Vendor C,03.01.2024,RM 50.00,\n"
	if string(data) != want {
		t.Errorf("csv = %q, want %q", data, want)
	}
}

func TestExportXLSXToStdout(t *testing.T) {
	dir := t.TempDir()
	writeSources(t, dir)

	out, _, err := run(t, "export", "--data-dir", dir, "--format", "xlsx", "--output", "-", "--vendor", "Vendor C")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	f, err := excelize.OpenReader(strings.NewReader(out))
	if err != nil {
		t.Fatalf("stdout is not a workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][1] != "C" {
		t.Errorf("rows = %v", rows)
	}
}

func TestExportInvalidFormat(t *testing.T) {
	_, _, err := run(t, "export", "--format", "json")
	if err == nil {
		t.Fatal("expected error for json export")
	}
	if code := NewCLIErrorHandler(&bytes.Buffer{}).HandleError(err); code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
}

func TestConfigCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PODASH_CURRENCY_PREFIX", "MYR")

	out, _, err := run(t, "config", "--data-dir", dir)
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}

	var settings config.Settings
	if err := yaml.Unmarshal([]byte(out), &settings); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if settings.DataDir != dir {
		t.Errorf("data-dir = %q, want %q", settings.DataDir, dir)
	}
	if settings.CurrencyPrefix != "MYR" {
		t.Errorf("currency-prefix = %q, want MYR from the environment", settings.CurrencyPrefix)
	}
	if settings.Sources.Dimension != reconciler.DefaultDimensionFile {
		t.Errorf("dimension = %q", settings.Sources.Dimension)
	}
	if settings.Log.Format != "json" {
		t.Errorf("log format = %q", settings.Log.Format)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "podash.yaml")
	content := "currency-prefix: USD\n" +
		"sources:\n" +
		"  ledger: ledger.xlsx\n" +
		"server:\n" +
		"  addr: 127.0.0.1:9000\n" +
		"column-aliases:\n" +
		"  PO Number: Purchasing Document\n"
	if err := os.WriteFile(cfg, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := run(t, "config", "--config", cfg)
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}

	var settings config.Settings
	if err := yaml.Unmarshal([]byte(out), &settings); err != nil {
		t.Fatal(err)
	}
	if settings.CurrencyPrefix != "USD" || settings.Sources.Ledger != "ledger.xlsx" || settings.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("config file not applied: %+v", settings)
	}
	if settings.ColumnAliases["PO Number"] != "Purchasing Document" {
		t.Errorf("aliases = %v", settings.ColumnAliases)
	}
}

func TestConfigFileMissing(t *testing.T) {
	_, _, err := run(t, "config", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if code := NewCLIErrorHandler(&bytes.Buffer{}).HandleError(err); code != 4 {
		t.Errorf("exit code = %d, want 4", code)
	}
}

func TestCommandHelp(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"summary", "export", "serve", "config"} {
		sub, _, err := root.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Errorf("command %s not registered", name)
			continue
		}

		var help bytes.Buffer
		sub.SetOut(&help)
		sub.Help()
		if !strings.Contains(help.String(), "Examples:") {
			t.Errorf("%s help should contain examples", name)
		}
	}

	summary, _, _ := root.Find([]string{"summary"})
	for _, flag := range []string{"sector", "division", "vendor", "format"} {
		if summary.Flags().Lookup(flag) == nil {
			t.Errorf("summary flag --%s not found", flag)
		}
	}
}
