package cmd

import (
	"bufio"
	"fmt"

	"po-outstanding-dashboard/internal/reporter"
	"po-outstanding-dashboard/pkg/errors"
	"po-outstanding-dashboard/pkg/logger"

	"github.com/spf13/cobra"
)

// stdoutOutput writes the export to standard output
const stdoutOutput = "-"

func newExportCmd(a *app) *cobra.Command {
	var (
		filters filterFlags
		format  string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the detail table as CSV or XLSX",
		Long: `Export writes the detail table of the selected view: running number, PO
number, vendor, posting date, formatted balance and division. CSV files start
with a UTF-8 byte order mark so spreadsheet tools detect the encoding.

Examples:
  podash export
  podash export --format xlsx --output baki.xlsx
  podash export --sector "SEKTOR A" --output - > sektor_a.csv`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if !reporter.OutputFormat(format).IsExport() {
				return errors.ValidationError(errors.CodeInvalidValue, "format", format, nil).
					WithSuggestion("use csv or xlsx")
			}
			if output == "" {
				output = reporter.OutputFormat(format).FileName()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := a.buildSnapshot(cmd.Context())
			if err != nil {
				return err
			}

			config := reporter.DefaultReportConfig()
			config.Format = reporter.OutputFormat(format)

			generator, err := reporter.NewSafeReportGenerator(config, logger.GetGlobalLogger())
			if err != nil {
				return err
			}

			report := reporter.FromSnapshot(snapshot, filters.filters(), a.settings.CurrencyPrefix)

			if output == stdoutOutput {
				w := bufio.NewWriter(cmd.OutOrStdout())
				if err := generator.GenerateReportSafely(report, w); err != nil {
					return err
				}
				return w.Flush()
			}

			written, err := generator.ExportToFile(report, output)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d rows to %s\n", len(report.Rows), written)
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", string(reporter.FormatCSV), "export format: csv, xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for stdout (default butiran_pesanan_tempatan.<format>)`)

	return cmd
}
