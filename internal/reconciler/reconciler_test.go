package reconciler

import (
	"fmt"
	"testing"

	"po-outstanding-dashboard/internal/dashboard"
	"po-outstanding-dashboard/internal/mapping"
	"po-outstanding-dashboard/internal/models"
)

func order(po, vendor, balance string) models.PurchaseOrder {
	return models.PurchaseOrder{
		PONumber:   po,
		VendorName: vendor,
		Balance:    balance,
		HasBalance: true,
	}
}

func TestReconcile_EndToEnd(t *testing.T) {
	ledger := []models.PurchaseOrder{
		order("A", "V1", "100"),
		order("B", "V2", "0"),
		order("C", "V3", "50"),
	}
	system := []models.UnitMapping{
		{PONumber: "A", UnitID: "U9", Provenance: models.ProvenanceSystem},
		{PONumber: "B", UnitID: "U2", Provenance: models.ProvenanceSystem},
	}
	manual := []models.UnitMapping{
		{PONumber: "A", UnitID: "U1", Provenance: models.ProvenanceManual},
	}
	dimension := []models.UnitDimension{
		{UnitID: "U1", Sector: "S1", Division: "D1", UnitCode: "P1"},
		{UnitID: "U2", Sector: "S2", Division: "D2", UnitCode: "P2"},
	}

	records, stats, err := Reconcile(ledger, mapping.Resolve(system, manual), dimension)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}

	a := records[0]
	if a.UnitID != "U1" || a.UnitSource != models.ProvenanceManual || a.Sector != "S1" || a.UnitCode != "P1" {
		t.Errorf("A should resolve to the manual unit U1: %+v", a)
	}
	if a.BalanceAmount != 100 {
		t.Errorf("A balance = %v, want 100", a.BalanceAmount)
	}

	b := records[1]
	if b.UnitID != "U2" || b.BalanceAmount != 0 || b.IsOutstanding() {
		t.Errorf("B should be mapped with zero balance: %+v", b)
	}

	c := records[2]
	if c.IsMapped() || c.Sector != "" || c.UnitCode != "" || c.UnitSource != "" {
		t.Errorf("C should be unmapped with empty attributes: %+v", c)
	}
	if c.BalanceAmount != 50 {
		t.Errorf("C balance = %v, want 50", c.BalanceAmount)
	}

	if stats.MappedRows != 2 || stats.UnmappedRows != 1 || stats.DimensionMatched != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Mapping.OverridesApplied != 1 {
		t.Errorf("expected 1 override in mapping stats, got %d", stats.Mapping.OverridesApplied)
	}
}

func TestReconcile_PreservesLedgerRowsAndOrder(t *testing.T) {
	for _, n := range []int{0, 1, 7, 50} {
		t.Run(fmt.Sprintf("rows=%d", n), func(t *testing.T) {
			ledger := make([]models.PurchaseOrder, n)
			var system []models.UnitMapping
			for i := range ledger {
				po := fmt.Sprintf("45%08d", i%5)
				ledger[i] = order(po, "V", "1")
				if i%2 == 0 {
					system = append(system, models.UnitMapping{PONumber: po, UnitID: "U1", Provenance: models.ProvenanceSystem})
				}
			}
			dimension := []models.UnitDimension{{UnitID: "U1"}, {UnitID: "U1"}}

			records, stats, err := Reconcile(ledger, mapping.Resolve(system, nil), dimension)
			if err != nil {
				t.Fatalf("Reconcile failed: %v", err)
			}
			if len(records) != len(ledger) {
				t.Fatalf("len(records) = %d, want %d", len(records), len(ledger))
			}
			for i := range ledger {
				if records[i].PONumber != ledger[i].PONumber {
					t.Errorf("record %d out of order: %s != %s", i, records[i].PONumber, ledger[i].PONumber)
				}
			}
			if stats.LedgerRows != n || stats.MappedRows+stats.UnmappedRows != n {
				t.Errorf("unexpected stats: %+v", stats)
			}
		})
	}
}

func TestReconcile_DuplicateDimensionFirstWins(t *testing.T) {
	ledger := []models.PurchaseOrder{order("A", "V1", "10")}
	system := []models.UnitMapping{{PONumber: "A", UnitID: "U1", Provenance: models.ProvenanceSystem}}
	dimension := []models.UnitDimension{
		{UnitID: "U1", Sector: "FIRST"},
		{UnitID: "U1", Sector: "SECOND"},
		{UnitID: "U1", Sector: "THIRD"},
	}

	records, stats, err := Reconcile(ledger, mapping.Resolve(system, nil), dimension)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if records[0].Sector != "FIRST" {
		t.Errorf("expected first dimension row to win, got %q", records[0].Sector)
	}
	if stats.DuplicateDimensionUnits != 2 {
		t.Errorf("expected 2 duplicate rows, got %d", stats.DuplicateDimensionUnits)
	}
}

func TestReconcile_EmptyUnitNeverMatchesDimension(t *testing.T) {
	ledger := []models.PurchaseOrder{order("A", "V1", "10")}
	system := []models.UnitMapping{{PONumber: "A", UnitID: "", Provenance: models.ProvenanceSystem}}
	dimension := []models.UnitDimension{{UnitID: "", Sector: "BLANK"}}

	records, stats, err := Reconcile(ledger, mapping.Resolve(system, nil), dimension)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if records[0].Sector != "" || records[0].IsMapped() {
		t.Errorf("empty unit must not join: %+v", records[0])
	}
	if stats.UnmappedRows != 1 {
		t.Errorf("expected unmapped row, got %+v", stats)
	}
}

func TestReconcile_Amounts(t *testing.T) {
	ledger := []models.PurchaseOrder{
		{PONumber: "A", Balance: "30,960.00", TotalAmount: "40,000.00", HasBalance: true, HasTotalAmount: true},
		{PONumber: "B", Balance: "abc", TotalAmount: "", HasBalance: true, HasTotalAmount: true},
		{PONumber: "C", Balance: "1234", HasBalance: true},
		{PONumber: "D", Balance: "-5", HasBalance: true},
	}

	records, stats, err := Reconcile(ledger, mapping.Resolve(nil, nil), nil)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	tests := []struct {
		po      string
		balance float64
		total   float64
	}{
		{"A", 30960, 40000},
		{"B", 0, 0},
		{"C", 1234, 0},
		{"D", -5, 0},
	}
	for i, tt := range tests {
		if records[i].BalanceAmount != tt.balance || records[i].TotalAmount != tt.total {
			t.Errorf("%s: balance=%v total=%v, want %v/%v", tt.po,
				records[i].BalanceAmount, records[i].TotalAmount, tt.balance, tt.total)
		}
	}

	if stats.UnparsableAmounts != 1 {
		t.Errorf("expected 1 unparsable amount, got %d", stats.UnparsableAmounts)
	}
}

func TestReconcile_MissingBalanceColumn(t *testing.T) {
	ledger := []models.PurchaseOrder{
		{PONumber: "A", Balance: "999"},
		{PONumber: "B"},
	}

	records, _, err := Reconcile(ledger, mapping.Resolve(nil, nil), nil)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	for _, r := range records {
		if r.BalanceAmount != 0 || r.TotalAmount != 0 {
			t.Errorf("absent amount columns must yield 0: %+v", r)
		}
	}
}

func TestReconcile_PassthroughColumns(t *testing.T) {
	ledger := []models.PurchaseOrder{{
		PONumber: "A",
		Extra:    map[string]string{"Plant": "P01", "SEKTOR": "LEDGER COPY"},
	}}
	system := []models.UnitMapping{{PONumber: "A", UnitID: "U1", Provenance: models.ProvenanceSystem}}
	dimension := []models.UnitDimension{{
		UnitID: "U1",
		Sector: "DIM SECTOR",
		Extra:  map[string]string{"Ketua": "Ali", "Plant": "DIM PLANT"},
	}}

	records, _, err := Reconcile(ledger, mapping.Resolve(system, nil), dimension)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	r := records[0]
	if r.Field(models.ColumnSector) != "DIM SECTOR" {
		t.Errorf("dimension sector must win, got %q", r.Field(models.ColumnSector))
	}
	if r.Extra["Plant"] != "P01" || r.Extra["Ketua"] != "Ali" {
		t.Errorf("unexpected passthrough: %v", r.Extra)
	}

	ledger[0].Extra["Plant"] = "mutated"
	if r.Extra["Plant"] != "P01" {
		t.Error("record passthrough must not alias the ledger map")
	}
}

func TestReconcile_LedgerOrganisationColumns(t *testing.T) {
	withUnit := func(po, sector, division, code string) models.PurchaseOrder {
		o := order(po, "V1", "100")
		o.Sector, o.Division, o.UnitCode = sector, division, code
		return o
	}

	ledger := []models.PurchaseOrder{
		withUnit("A", "S1", "D1", "P1"),
		withUnit("B", "S2", "D2", "P2"),
		withUnit("C", "S3", "D3", "P3"),
	}
	system := []models.UnitMapping{
		{PONumber: "A", UnitID: "U1", Provenance: models.ProvenanceSystem},
		{PONumber: "C", UnitID: "U3", Provenance: models.ProvenanceSystem},
	}
	// U1 has no attributes at all; U3 names only its sector
	dimension := []models.UnitDimension{
		{UnitID: "U1", Extra: map[string]string{"Nama": "Unit Satu"}},
		{UnitID: "U3", Sector: "DIM S3"},
	}

	records, stats, err := Reconcile(ledger, mapping.Resolve(system, nil), dimension)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if stats.DimensionMatched != 2 || stats.UnmappedRows != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	tests := []struct {
		po, sector, division, code string
	}{
		{"A", "S1", "D1", "P1"},
		{"B", "S2", "D2", "P2"},
		{"C", "DIM S3", "D3", "P3"},
	}
	for i, tt := range tests {
		r := records[i]
		if r.PONumber != tt.po || r.Sector != tt.sector || r.Division != tt.division || r.UnitCode != tt.code {
			t.Errorf("record %d = %s %q %q %q, want %s %q %q %q",
				i, r.PONumber, r.Sector, r.Division, r.UnitCode, tt.po, tt.sector, tt.division, tt.code)
		}
	}

	report := dashboard.BuildReport(records, dashboard.Selection("S1", "", ""), dashboard.DefaultCurrencyPrefix)
	if got := report.Levels[0].Options; len(got) != 3 || got[0] != "DIM S3" || got[1] != "S1" {
		t.Errorf("sector options = %v", got)
	}
	if len(report.Rows) != 1 || report.Rows[0].PONumber != "A" || report.Rows[0].Division != "D1" {
		t.Errorf("rows = %+v", report.Rows)
	}
	if len(report.Units) != 1 || report.Units[0].Unit != "P1" {
		t.Errorf("units = %+v", report.Units)
	}
}

func TestReconcile_NilResolution(t *testing.T) {
	if _, _, err := Reconcile(nil, nil, nil); err == nil {
		t.Error("expected error for nil resolution")
	}
}

func TestDimensionIndex(t *testing.T) {
	index := NewDimensionIndex([]models.UnitDimension{
		{UnitID: "U2"}, {UnitID: "U1"}, {UnitID: "U2"}, {UnitID: ""}, {UnitID: "U1"}, {UnitID: "U1"},
	})

	if index.Len() != 2 {
		t.Errorf("expected 2 units, got %d", index.Len())
	}
	if index.DuplicateRows() != 3 {
		t.Errorf("expected 3 duplicate rows, got %d", index.DuplicateRows())
	}
	units := index.DuplicateUnits()
	if len(units) != 2 || units[0] != "U1" || units[1] != "U2" {
		t.Errorf("unexpected duplicate units: %v", units)
	}
	if _, ok := index.Lookup(""); ok {
		t.Error("empty unit must not match")
	}
}
