package cmd

import (
	"po-outstanding-dashboard/internal/dashboard"
	"po-outstanding-dashboard/internal/reporter"
	"po-outstanding-dashboard/pkg/errors"
	"po-outstanding-dashboard/pkg/logger"

	"github.com/spf13/cobra"
)

// filterFlags holds the cascade selection given on the command line
type filterFlags struct {
	sector   string
	division string
	vendor   string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.sector, "sector", dashboard.All, "SEKTOR to show")
	cmd.Flags().StringVar(&f.division, "division", dashboard.All, "BAHAGIAN/UNIT to show")
	cmd.Flags().StringVar(&f.vendor, "vendor", dashboard.All, "vendor name to show")
}

func (f *filterFlags) filters() []dashboard.Filter {
	return dashboard.Selection(f.sector, f.division, f.vendor)
}

func newSummaryCmd(a *app) *cobra.Command {
	var (
		filters  filterFlags
		format   string
		maxRows  int
		showRows bool
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show KPIs, filter options and per-unit balances",
		Long: `Summary loads the four extracts, reconciles them and prints the dashboard
for the selected sector, division and vendor: outstanding PO count, total
outstanding balance, the options left at each filter level, balances per PTJ
and the first rows of the detail table.

Examples:
  podash summary
  podash summary --sector "SEKTOR A" --division "BAHAGIAN KEWANGAN"
  podash summary --format json`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			switch reporter.OutputFormat(format) {
			case reporter.FormatConsole, reporter.FormatJSON:
			default:
				return errors.ValidationError(errors.CodeInvalidValue, "format", format, nil).
					WithSuggestion("use console or json; the detail table is exported with 'podash export'")
			}
			if maxRows < 0 {
				return errors.ValidationError(errors.CodeInvalidValue, "rows", maxRows, nil)
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
			config.MaxRows = maxRows
			config.IncludeRows = showRows

			generator, err := reporter.NewSafeReportGenerator(config, logger.GetGlobalLogger())
			if err != nil {
				return err
			}

			report := reporter.FromSnapshot(snapshot, filters.filters(), a.settings.CurrencyPrefix)

			a.logger.WithFields(logger.Fields{
				"snapshot": snapshot.ID,
				"rows":     report.Summary.Rows,
				"po_count": report.Summary.POCount,
			}).Debug("Report built")

			return generator.GenerateReportSafely(report, cmd.OutOrStdout())
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", string(reporter.FormatConsole), "output format: console, json")
	cmd.Flags().IntVar(&maxRows, "rows", 20, "detail rows to print in console output (0 prints all)")
	cmd.Flags().BoolVar(&showRows, "show-rows", true, "print the detail table in console output")

	return cmd
}
