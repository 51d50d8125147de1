package dashboard

import (
	"po-outstanding-dashboard/internal/models"
)

// Report is everything one dashboard render needs
type Report struct {
	SnapshotID  string         `json:"snapshot_id,omitempty"`
	LastUpdated string         `json:"last_updated,omitempty"`
	Levels      []CascadeLevel `json:"filters"`
	Summary     Summary        `json:"summary"`
	Units       []UnitTotal    `json:"units"`
	Rows        []DetailRow    `json:"rows"`
}

// BuildReport runs the cascade for the given filters and derives the KPIs,
// unit totals and detail rows from the resulting view
func BuildReport(records []models.ReconciledRecord, filters []Filter, currencyPrefix string) *Report {
	cascade := Cascade(records, filters)

	return &Report{
		Levels:  cascade.Levels,
		Summary: Summarize(cascade.View),
		Units:   UnitTotals(cascade.View),
		Rows:    DetailRowsWithPrefix(cascade.View, currencyPrefix),
	}
}
