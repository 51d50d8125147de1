package dashboard

import (
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Summary holds the headline KPIs of a view
type Summary struct {
	POCount      int     `json:"po_count"`
	Rows         int     `json:"rows"`
	TotalBalance float64 `json:"total_balance"`
	POCountText  string  `json:"po_count_text"`
	BalanceText  string  `json:"balance_text"`
}

// Summarize counts distinct non-empty PO numbers and sums the balances of a
// view. The sum is accumulated in decimal so that row order cannot change
// the displayed cents.
func Summarize(view FilteredView) Summary {
	pos := make(map[string]struct{}, len(view.Records))
	total := decimal.Zero

	for i := range view.Records {
		r := &view.Records[i]
		if r.PONumber != "" {
			pos[r.PONumber] = struct{}{}
		}
		total = total.Add(decimalAmount(r.BalanceAmount))
	}

	balance := total.InexactFloat64()
	return Summary{
		POCount:      len(pos),
		Rows:         len(view.Records),
		TotalBalance: balance,
		POCountText:  FormatCount(len(pos)),
		BalanceText:  FormatNumber(balance, 2),
	}
}

// UnitTotal is one bar of the per-unit chart
type UnitTotal struct {
	Unit  string  `json:"unit"`
	Total float64 `json:"total"`
	Label string  `json:"label"`
}

// UnitTotals sums balances by unit display code. Rows without a unit code
// are left out. Bars are ordered by total, largest first, and by code when
// totals tie.
func UnitTotals(view FilteredView) []UnitTotal {
	sums := make(map[string]decimal.Decimal)
	for i := range view.Records {
		r := &view.Records[i]
		unit := strings.TrimSpace(r.UnitCode)
		if unit == "" {
			continue
		}
		sums[unit] = sums[unit].Add(decimalAmount(r.BalanceAmount))
	}

	totals := make([]UnitTotal, 0, len(sums))
	for unit, sum := range sums {
		value := sum.InexactFloat64()
		totals = append(totals, UnitTotal{
			Unit:  unit,
			Total: value,
			Label: ShortForm(value),
		})
	}

	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Total != totals[j].Total {
			return totals[i].Total > totals[j].Total
		}
		return totals[i].Unit < totals[j].Unit
	})

	return totals
}

// decimalAmount converts a balance for summing. Non-finite values count as 0.
func decimalAmount(v float64) decimal.Decimal {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
