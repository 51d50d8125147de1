// Package reconciler builds the unified PO dataset: the ledger left-joined to
// the resolved unit mapping and then to the unit dimension, with numeric
// balances derived from the ledger text.
//
// The Service loads the four source tables and runs the join; the Cache
// memoizes the result until one of the source files changes on disk.
//
// Example usage:
//
//	service, err := reconciler.NewService(nil)
//	cache := reconciler.NewCache(service, reconciler.SourcesIn("data"))
//	snapshot, err := cache.Get(ctx)
package reconciler

import (
	"fmt"
	"sort"

	"po-outstanding-dashboard/internal/mapping"
	"po-outstanding-dashboard/internal/models"
	"po-outstanding-dashboard/internal/normalize"
	"po-outstanding-dashboard/pkg/errors"
	"po-outstanding-dashboard/pkg/logger"
)

// Stats summarizes one reconciliation run
type Stats struct {
	LedgerRows              int           `json:"ledger_rows"`
	MappedRows              int           `json:"mapped_rows"`
	UnmappedRows            int           `json:"unmapped_rows"`
	DimensionMatched        int           `json:"dimension_matched"`
	DuplicateDimensionUnits int           `json:"duplicate_dimension_units"`
	UnparsableAmounts       int           `json:"unparsable_amounts"`
	Mapping                 mapping.Stats `json:"mapping"`
}

// Reconcile joins every ledger row to its resolved unit and that unit's
// dimension attributes. The output has exactly one record per ledger row, in
// ledger order. A non-empty dimension value wins; otherwise the ledger's own
// SEKTOR, BAHAGIAN/UNIT and PTJ are kept, so rows without a mapping or
// without a dimension match carry whatever the ledger names.
func Reconcile(ledger []models.PurchaseOrder, resolution *mapping.Resolution, dimension []models.UnitDimension) ([]models.ReconciledRecord, *Stats, error) {
	if resolution == nil {
		return nil, nil, errors.ProcessingError(
			errors.CodeJoinFailed,
			"reconcile",
			fmt.Errorf("no unit mapping resolution supplied"),
		)
	}

	log := logger.GetGlobalLogger().WithComponent("reconciler")
	index := NewDimensionIndex(dimension)

	stats := &Stats{
		LedgerRows:              len(ledger),
		DuplicateDimensionUnits: index.DuplicateRows(),
		Mapping:                 resolution.Stats(),
	}

	if stats.DuplicateDimensionUnits > 0 {
		log.WithFields(logger.Fields{
			"duplicate_rows": stats.DuplicateDimensionUnits,
			"unit_ids":       index.DuplicateUnits(),
		}).Warn("Dimension table repeats unit IDs, keeping the first row of each")
	}

	records := make([]models.ReconciledRecord, len(ledger))
	for i := range ledger {
		po := &ledger[i]
		record := &records[i]

		record.PONumber = po.PONumber
		record.VendorName = po.VendorName
		record.PostingDate = po.PostingDate
		record.Balance = po.Balance
		record.Extra = copyExtra(po.Extra)

		if po.HasBalance {
			record.BalanceAmount = amount(po.Balance, po, "balance", stats, log)
		}
		if po.HasTotalAmount {
			record.TotalAmount = amount(po.TotalAmount, po, "total_amount", stats, log)
		}

		if m, ok := resolution.Lookup(po.PONumber); ok {
			record.UnitID = normalize.UnitIdentifier(m.UnitID)
			if record.UnitID != "" {
				record.UnitSource = m.Provenance
			}
		}

		record.Sector = po.Sector
		record.Division = po.Division
		record.UnitCode = po.UnitCode

		if !record.IsMapped() {
			stats.UnmappedRows++
			continue
		}
		stats.MappedRows++

		unit, ok := index.Lookup(record.UnitID)
		if !ok {
			continue
		}
		stats.DimensionMatched++

		record.Sector = preferred(unit.Sector, record.Sector)
		record.Division = preferred(unit.Division, record.Division)
		record.UnitCode = preferred(unit.UnitCode, record.UnitCode)
		for key, value := range unit.Extra {
			if _, exists := record.Extra[key]; !exists {
				if record.Extra == nil {
					record.Extra = make(map[string]string)
				}
				record.Extra[key] = value
			}
		}
	}

	log.WithFields(logger.Fields{
		"ledger_rows":        stats.LedgerRows,
		"mapped_rows":        stats.MappedRows,
		"unmapped_rows":      stats.UnmappedRows,
		"dimension_matched":  stats.DimensionMatched,
		"unparsable_amounts": stats.UnparsableAmounts,
	}).Info("Reconciled ledger with unit mapping and dimension")

	return records, stats, nil
}

// amount parses a ledger amount; malformed text is counted and becomes 0
func amount(raw string, po *models.PurchaseOrder, field string, stats *Stats, log logger.Logger) float64 {
	value, ok := normalize.ParseAmount(raw)
	if !ok && !isBlank(raw) {
		stats.UnparsableAmounts++
		log.WithFields(logger.Fields{
			"po_number": po.PONumber,
			"line":      po.Line,
			"field":     field,
			"value":     raw,
		}).Debug("Unparsable amount treated as 0")
	}
	return value
}

// preferred returns the dimension value unless it is empty
func preferred(dimension, ledger string) string {
	if dimension != "" {
		return dimension
	}
	return ledger
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != ',' {
			return false
		}
	}
	return true
}

func copyExtra(extra map[string]string) map[string]string {
	if len(extra) == 0 {
		return nil
	}
	out := make(map[string]string, len(extra))
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func sortedStrings(values []string) []string {
	sort.Strings(values)
	return values
}
