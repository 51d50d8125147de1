package dashboard

import (
	"math"
	"reflect"
	"testing"

	"po-outstanding-dashboard/internal/models"
)

func rec(po, sector, division, vendor, unit string, balance float64) models.ReconciledRecord {
	return models.ReconciledRecord{
		PONumber:      po,
		Sector:        sector,
		Division:      division,
		VendorName:    vendor,
		UnitCode:      unit,
		BalanceAmount: balance,
	}
}

func sampleRecords() []models.ReconciledRecord {
	return []models.ReconciledRecord{
		rec("1", "S1", "D1", "V1", "P1", 100),
		rec("2", "S1", "D1", "V2", "P1", 200),
		rec("3", "S1", "D2", "V3", "P2", 300),
		rec("4", "S2", "D3", "V1", "P3", 400),
		rec("5", "S2", "D3", "V4", "P3", 0),
		rec("6", "S2", "", "V5", "", 50),
		rec("7", "", "D4", " ", "P4", -10),
		rec("8", "  ", "D4", "V6", "P4", 25),
	}
}

func TestApplyFilters_BaseFilterAlwaysApplied(t *testing.T) {
	filterSets := [][]Filter{
		nil,
		Selection("", "", ""),
		Selection("S2", "", ""),
		Selection("S2", "D3", "V4"),
		{{Field: models.ColumnVendorName, Value: "V1"}},
	}

	for _, filters := range filterSets {
		view := ApplyFilters(sampleRecords(), filters)
		for _, r := range view.Records {
			if r.BalanceAmount <= 0 {
				t.Errorf("filters %v: view contains non-outstanding record %+v", filters, r)
			}
		}
	}
}

func TestApplyFilters(t *testing.T) {
	tests := []struct {
		name    string
		filters []Filter
		wantPOs []string
	}{
		{"no filters", nil, []string{"1", "2", "3", "4", "6", "8"}},
		{"all", Selection(All, All, All), []string{"1", "2", "3", "4", "6", "8"}},
		{"sector", Selection("S1", "", ""), []string{"1", "2", "3"}},
		{"sector and division", Selection("S1", "D1", ""), []string{"1", "2"}},
		{"vendor only", Selection("", "", "V1"), []string{"1", "4"}},
		{"zero balance excluded", Selection("S2", "D3", "V4"), []string{}},
		{"case sensitive", Selection("s1", "", ""), []string{}},
		{"unknown value", Selection("S9", "", ""), []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := ApplyFilters(sampleRecords(), tt.filters)
			got := make([]string, 0, view.Len())
			for _, r := range view.Records {
				got = append(got, r.PONumber)
			}
			if !reflect.DeepEqual(got, tt.wantPOs) {
				t.Errorf("ApplyFilters() POs = %v, want %v", got, tt.wantPOs)
			}
		})
	}
}

func TestApplyFilters_DoesNotMutateInput(t *testing.T) {
	records := sampleRecords()
	before := len(records)
	_ = ApplyFilters(records, Selection("S1", "", ""))
	if len(records) != before || records[4].BalanceAmount != 0 {
		t.Error("input records were modified")
	}
}

func TestOptions(t *testing.T) {
	got := Options(Outstanding(sampleRecords()), models.ColumnSector)
	want := []string{"S1", "S2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Options(outstanding) = %v, want %v", got, want)
	}

	vendors := Options(sampleRecords(), models.ColumnVendorName)
	for _, v := range vendors {
		if v == " " || v == "" {
			t.Errorf("blank option leaked: %q", vendors)
		}
	}
}

func TestCascade_OptionsNarrowByEarlierLevels(t *testing.T) {
	result := Cascade(sampleRecords(), Selection("S1", "D1", ""))

	if len(result.Levels) != 3 {
		t.Fatalf("expected 3 levels, got %d", len(result.Levels))
	}

	if want := []string{"S1", "S2"}; !reflect.DeepEqual(result.Levels[0].Options, want) {
		t.Errorf("sector options = %v, want %v", result.Levels[0].Options, want)
	}
	if want := []string{"D1", "D2"}; !reflect.DeepEqual(result.Levels[1].Options, want) {
		t.Errorf("division options = %v, want %v", result.Levels[1].Options, want)
	}
	if want := []string{"V1", "V2"}; !reflect.DeepEqual(result.Levels[2].Options, want) {
		t.Errorf("vendor options = %v, want %v", result.Levels[2].Options, want)
	}
	if result.Levels[2].Selected != All {
		t.Errorf("empty vendor selection should read as All, got %q", result.Levels[2].Selected)
	}
	if result.View.Len() != 2 {
		t.Errorf("expected 2 rows in view, got %d", result.View.Len())
	}
}

func TestCascade_OptionListsNeverGrow(t *testing.T) {
	records := sampleRecords()
	sectors := append([]string{All}, Options(Outstanding(records), models.ColumnSector)...)

	for _, sector := range sectors {
		base := Cascade(records, Selection(sector, "", ""))
		for _, division := range base.Levels[1].Choices() {
			narrowed := Cascade(records, Selection(sector, division, ""))
			if len(narrowed.Levels[2].Options) > len(base.Levels[2].Options) {
				t.Errorf("sector=%s division=%s: vendor options grew from %d to %d",
					sector, division, len(base.Levels[2].Options), len(narrowed.Levels[2].Options))
			}
		}

		all := Cascade(records, Selection(All, "", ""))
		if len(base.Levels[1].Options) > len(all.Levels[1].Options) {
			t.Errorf("sector=%s: division options grew beyond the unfiltered list", sector)
		}
	}
}

func TestCascadeLevel_Selection(t *testing.T) {
	level := CascadeLevel{Field: models.ColumnSector, Options: []string{"S1"}, Selected: "S1"}
	if !level.IsValidSelection() {
		t.Error("S1 should be a valid selection")
	}
	level.Selected = "S9"
	if level.IsValidSelection() {
		t.Error("S9 should be stale")
	}
	if got := level.Choices(); !reflect.DeepEqual(got, []string{All, "S1"}) {
		t.Errorf("Choices() = %v", got)
	}
}

func TestSummarize(t *testing.T) {
	records := []models.ReconciledRecord{
		rec("A", "", "", "", "", 0.1),
		rec("A", "", "", "", "", 0.2),
		rec("B", "", "", "", "", 30960),
		rec("", "", "", "", "", 5),
	}

	s := Summarize(FilteredView{Records: records})

	if s.POCount != 2 {
		t.Errorf("POCount = %d, want 2", s.POCount)
	}
	if s.Rows != 4 {
		t.Errorf("Rows = %d, want 4", s.Rows)
	}
	if s.TotalBalance != 30965.3 {
		t.Errorf("TotalBalance = %v, want 30965.3", s.TotalBalance)
	}
	if s.BalanceText != "30,965.30" {
		t.Errorf("BalanceText = %q", s.BalanceText)
	}
}

func TestAggregates_NonFiniteBalance(t *testing.T) {
	records := []models.ReconciledRecord{
		rec("A", "S1", "D1", "V1", "P1", 100),
		rec("B", "S1", "D1", "V1", "P1", math.Inf(1)),
	}

	report := BuildReport(records, Selection(All, All, All), DefaultCurrencyPrefix)

	if report.Summary.TotalBalance != 100 {
		t.Errorf("TotalBalance = %v, want 100", report.Summary.TotalBalance)
	}
	if len(report.Units) != 1 || report.Units[0].Total != 100 {
		t.Errorf("Units = %+v", report.Units)
	}
}

func TestUnitTotals(t *testing.T) {
	view := ApplyFilters(sampleRecords(), nil)
	got := UnitTotals(view)

	want := []UnitTotal{
		{Unit: "P3", Total: 400, Label: "400"},
		{Unit: "P1", Total: 300, Label: "300"},
		{Unit: "P2", Total: 300, Label: "300"},
		{Unit: "P4", Total: 25, Label: "25"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UnitTotals() = %+v, want %+v", got, want)
	}
}

func TestShortForm(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{999, "999"},
		{999.99, "999"},
		{0, "0"},
		{1000, "1k"},
		{1499, "1k"},
		{1500, "2k"},
		{25400, "25k"},
		{1_000_000, "1m"},
		{1_500_000, "1.5m"},
		{2_000_000, "2m"},
		{12_345_678, "12.3m"},
		{math.NaN(), ""},
		{math.Inf(1), ""},
	}

	for _, tt := range tests {
		if got := ShortForm(tt.v); got != tt.want {
			t.Errorf("ShortForm(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{30960, "RM 30,960.00"},
		{1234.5, "RM 1,234.50"},
		{0, "RM 0.00"},
		{999.999, "RM 1,000.00"},
		{1234567.891, "RM 1,234,567.89"},
		{-1234.5, "RM -1,234.50"},
	}

	for _, tt := range tests {
		if got := FormatCurrency(tt.v); got != tt.want {
			t.Errorf("FormatCurrency(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}

	if got := FormatMoney("", 12.5); got != "12.50" {
		t.Errorf("FormatMoney without prefix = %q", got)
	}
}

func TestFormatCount(t *testing.T) {
	tests := map[int]string{0: "0", 999: "999", 1000: "1,000", 1234567: "1,234,567", -4500: "-4,500"}
	for n, want := range tests {
		if got := FormatCount(n); got != want {
			t.Errorf("FormatCount(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestDetailRows(t *testing.T) {
	view := ApplyFilters([]models.ReconciledRecord{
		{PONumber: "A", VendorName: "V1", PostingDate: "15.01.2024", Division: "D1", BalanceAmount: 30960},
		{PONumber: "B", VendorName: "V2", BalanceAmount: 0},
		{PONumber: "C", VendorName: "V3", BalanceAmount: 1234.5},
	}, nil)

	rows := DetailRows(view)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	want := []string{"1", "A", "V1", "15.01.2024", "RM 30,960.00", "D1"}
	if got := rows[0].Cells(); !reflect.DeepEqual(got, want) {
		t.Errorf("Cells() = %v, want %v", got, want)
	}
	if rows[1].No != 2 || rows[1].Balance != "RM 1,234.50" {
		t.Errorf("unexpected second row: %+v", rows[1])
	}
	if len(DetailColumns) != len(rows[0].Cells()) {
		t.Error("header and cell counts differ")
	}
}

func TestBuildReport_EndToEnd(t *testing.T) {
	records := []models.ReconciledRecord{
		{PONumber: "A", UnitID: "U1", UnitCode: "P1", Sector: "S1", BalanceAmount: 100},
		{PONumber: "B", UnitID: "U2", UnitCode: "P2", Sector: "S2", BalanceAmount: 0},
		{PONumber: "C", BalanceAmount: 50},
	}

	report := BuildReport(records, Selection("", "", ""), "RM")

	if report.Summary.POCount != 2 || report.Summary.TotalBalance != 150 {
		t.Errorf("unexpected summary: %+v", report.Summary)
	}
	if len(report.Rows) != 2 || report.Rows[0].PONumber != "A" || report.Rows[1].PONumber != "C" {
		t.Errorf("unexpected rows: %+v", report.Rows)
	}
	if len(report.Units) != 1 || report.Units[0].Unit != "P1" || report.Units[0].Total != 100 {
		t.Errorf("unmapped PO must be left out of unit totals: %+v", report.Units)
	}
	if !reflect.DeepEqual(report.Levels[0].Options, []string{"S1"}) {
		t.Errorf("sector options = %v", report.Levels[0].Options)
	}
}
