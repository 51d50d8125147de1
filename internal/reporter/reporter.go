// Package reporter renders dashboard reports for terminals and programs and
// exports the detail table as downloadable files.
//
// Supported output formats:
//   - Console: human-readable sections for terminal display
//   - JSON: the full report for programmatic consumption
//   - CSV: the detail table, UTF-8 with a byte order mark
//   - XLSX: the detail table as a single-sheet workbook
//
// Example usage:
//
//	gen, err := reporter.NewReportGenerator(reporter.DefaultReportConfig())
//	if err != nil {
//		return err
//	}
//	report := reporter.FromSnapshot(snapshot, filters, "RM")
//	err = gen.GenerateReport(report, os.Stdout)
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"po-outstanding-dashboard/internal/dashboard"
	"po-outstanding-dashboard/internal/reconciler"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
	FormatXLSX    OutputFormat = "xlsx"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV, FormatXLSX:
		return true
	default:
		return false
	}
}

// IsExport reports whether the format produces a detail table download
func (f OutputFormat) IsExport() bool {
	return f == FormatCSV || f == FormatXLSX
}

// FileName returns the default download name for an export format
func (f OutputFormat) FileName() string {
	return dashboard.DetailFileName + "." + string(f)
}

// FromSnapshot builds the dashboard report of a snapshot for the given
// filters and stamps it with the snapshot identity
func FromSnapshot(snapshot *reconciler.Snapshot, filters []dashboard.Filter, currencyPrefix string) *dashboard.Report {
	report := dashboard.BuildReport(snapshot.Records, filters, currencyPrefix)
	report.SnapshotID = snapshot.ID
	report.LastUpdated = snapshot.LastUpdated
	return report
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Console options
	IncludeOptions bool `json:"include_options"`
	IncludeUnits   bool `json:"include_units"`
	IncludeRows    bool `json:"include_rows"`
	MaxRows        int  `json:"max_rows"`
	MaxOptions     int  `json:"max_options"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVBOM       bool `json:"csv_bom"`

	SheetName string `json:"sheet_name"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:         FormatConsole,
		IncludeOptions: true,
		IncludeUnits:   true,
		IncludeRows:    true,
		MaxRows:        20,
		MaxOptions:     10,
		CSVDelimiter:   ',',
		CSVBOM:         true,
		SheetName:      "Butiran",
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	if c.MaxRows < 0 {
		return fmt.Errorf("max rows cannot be negative, got %d", c.MaxRows)
	}

	if c.MaxOptions < 0 {
		return fmt.Errorf("max options cannot be negative, got %d", c.MaxOptions)
	}

	if c.Format == FormatCSV {
		switch c.CSVDelimiter {
		case 0, '\r', '\n', '"':
			return fmt.Errorf("invalid CSV delimiter: %q", c.CSVDelimiter)
		}
	}

	if c.Format == FormatXLSX && strings.TrimSpace(c.SheetName) == "" {
		return fmt.Errorf("sheet name cannot be empty")
	}

	return nil
}

// ReportGenerator generates dashboard reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
	}, nil
}

// GenerateReport writes the report to the provided writer in the configured format
func (rg *ReportGenerator) GenerateReport(report *dashboard.Report, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(report, writer)
	case FormatJSON:
		return rg.generateJSONReport(report, writer)
	case FormatCSV:
		return WriteCSV(writer, report.Rows, rg.config.CSVDelimiter, rg.config.CSVBOM)
	case FormatXLSX:
		return WriteXLSX(writer, report.Rows, rg.config.SheetName)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) generateConsoleReport(report *dashboard.Report, writer io.Writer) error {
	ew := &errWriter{w: writer}

	ew.printf("LAPORAN TUNGGAKAN PESANAN TEMPATAN\n")
	ew.printf("Last updated: %s\n", valueOr(report.LastUpdated, "N/A"))
	if report.SnapshotID != "" {
		ew.printf("Snapshot:     %s\n", report.SnapshotID)
	}
	ew.printf("\n")

	ew.printf("=== SUMMARY ===\n")
	rg.printSummary(report.Summary, ew)
	ew.printf("\n")

	ew.printf("=== FILTERS ===\n")
	rg.printFilters(report.Levels, ew)
	ew.printf("\n")

	if rg.config.IncludeUnits {
		ew.printf("=== BAKI MENGIKUT PTJ ===\n")
		rg.printUnits(report.Units, ew)
		ew.printf("\n")
	}

	if rg.config.IncludeRows {
		ew.printf("=== BUTIRAN PESANAN TEMPATAN ===\n")
		rg.printRows(report.Rows, ew)
	}

	return ew.err
}

func (rg *ReportGenerator) generateJSONReport(report *dashboard.Report, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(report)
}

func (rg *ReportGenerator) printSummary(summary dashboard.Summary, ew *errWriter) {
	ew.printf("Jumlah Pesanan Tempatan:      %s\n", summary.POCountText)
	ew.printf("Baki Pesanan Tempatan (RM):   %s\n", summary.BalanceText)
	ew.printf("Rows:                         %d\n", summary.Rows)
}

func (rg *ReportGenerator) printFilters(levels []dashboard.CascadeLevel, ew *errWriter) {
	for _, level := range levels {
		marker := ""
		if !level.IsValidSelection() {
			marker = " (not in options)"
		}
		ew.printf("%-15s %s%s\n", level.Field+":", level.Selected, marker)

		if !rg.config.IncludeOptions {
			continue
		}

		options := level.Options
		more := 0
		if rg.config.MaxOptions > 0 && len(options) > rg.config.MaxOptions {
			more = len(options) - rg.config.MaxOptions
			options = options[:rg.config.MaxOptions]
		}
		ew.printf("  options (%d): %s", len(level.Options), strings.Join(options, ", "))
		if more > 0 {
			ew.printf(" ... and %d more", more)
		}
		ew.printf("\n")
	}
}

func (rg *ReportGenerator) printUnits(units []dashboard.UnitTotal, ew *errWriter) {
	if len(units) == 0 {
		ew.printf("No mapped balances\n")
		return
	}

	width := 0
	for _, u := range units {
		if len(u.Unit) > width {
			width = len(u.Unit)
		}
	}

	for i, u := range units {
		ew.printf("  %2d. %-*s %8s  %s\n", i+1, width, u.Unit, u.Label, dashboard.FormatNumber(u.Total, 2))
	}
}

func (rg *ReportGenerator) printRows(rows []dashboard.DetailRow, ew *errWriter) {
	ew.printf("Total rows: %d\n\n", len(rows))

	limit := len(rows)
	if rg.config.MaxRows > 0 && limit > rg.config.MaxRows {
		limit = rg.config.MaxRows
	}

	for _, row := range rows[:limit] {
		ew.printf("  %d. PO: %s, Vendor: %s, Date: %s, Balance: %s, Division: %s\n",
			row.No,
			row.PONumber,
			valueOr(row.VendorName, "-"),
			valueOr(row.PostingDate, "-"),
			row.Balance,
			valueOr(row.Division, "-"))
	}

	if limit < len(rows) {
		ew.printf("  ... and %d more\n", len(rows)-limit)
	}
}

// UpdateConfiguration updates the report generator configuration
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}

	rg.config = config
	return nil
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}

// errWriter keeps the first write error so the console sections can be
// printed without checking every call
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func valueOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
