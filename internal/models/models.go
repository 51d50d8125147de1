// Package models defines the record types that flow through the dashboard
// pipeline, one named type per stage.
package models

import (
	"fmt"
	"sort"
)

// Source column names as exported by the procurement system.
const (
	ColumnPONumber    = "PO Number"
	ColumnPTJNumber   = "PTJ Number"
	ColumnPOBalance   = "PO Balance"
	ColumnPOTotal     = "PO Total Amount"
	ColumnVendorName  = "Vendor name"
	ColumnPostingDate = "Posting date"
	ColumnDivision    = "BAHAGIAN/UNIT"
	ColumnSector      = "SEKTOR"
	ColumnUnitCode    = "PTJ"
	ColumnDimUnitID   = "PTJ NO"
)

// Provenance tags where a unit mapping came from
type Provenance string

const (
	// ProvenanceSystem is a mapping derived from the PO-to-unit extract
	ProvenanceSystem Provenance = "system"
	// ProvenanceManual is a human-curated override
	ProvenanceManual Provenance = "manual"
)

// String returns the string representation of Provenance
func (p Provenance) String() string {
	return string(p)
}

// IsValid checks if the provenance is one of the known values
func (p Provenance) IsValid() bool {
	return p == ProvenanceSystem || p == ProvenanceManual
}

// Rank orders provenances so that manual sorts after system. The resolver
// keeps the last entry per PO, so a higher rank wins.
func (p Provenance) Rank() int {
	switch p {
	case ProvenanceManual:
		return 1
	default:
		return 0
	}
}

// PurchaseOrder is one ledger row. Balance and TotalAmount hold the raw text;
// HasBalance/HasTotalAmount record whether the column existed at all.
// Sector, Division and UnitCode are the ledger's own organisational columns,
// used when the dimension table has no value for the row.
type PurchaseOrder struct {
	PONumber       string            `json:"po_number"`
	VendorName     string            `json:"vendor_name"`
	PostingDate    string            `json:"posting_date"`
	Balance        string            `json:"balance"`
	TotalAmount    string            `json:"total_amount"`
	Sector         string            `json:"sector,omitempty"`
	Division       string            `json:"division,omitempty"`
	UnitCode       string            `json:"unit_code,omitempty"`
	HasBalance     bool              `json:"-"`
	HasTotalAmount bool              `json:"-"`
	Extra          map[string]string `json:"extra,omitempty"`
	Line           int               `json:"-"`
}

// UnitMapping assigns a PO to an organizational unit (PTJ)
type UnitMapping struct {
	PONumber   string     `json:"po_number"`
	UnitID     string     `json:"unit_id"`
	Provenance Provenance `json:"provenance"`
	Line       int        `json:"-"`
}

// Validate performs basic validation on the UnitMapping
func (m *UnitMapping) Validate() error {
	if !m.Provenance.IsValid() {
		return fmt.Errorf("invalid mapping provenance: %q", m.Provenance)
	}
	return nil
}

// UnitDimension holds the descriptive attributes of one unit
type UnitDimension struct {
	UnitID   string            `json:"unit_id"`
	Sector   string            `json:"sector"`
	Division string            `json:"division"`
	UnitCode string            `json:"unit_code"`
	Extra    map[string]string `json:"extra,omitempty"`
	Line     int               `json:"-"`
}

// ReconciledRecord is a ledger row joined to its resolved unit and that
// unit's dimension attributes. BalanceAmount and TotalAmount are always set.
type ReconciledRecord struct {
	PONumber      string            `json:"po_number"`
	VendorName    string            `json:"vendor_name"`
	PostingDate   string            `json:"posting_date"`
	Balance       string            `json:"balance"`
	UnitID        string            `json:"unit_id"`
	UnitSource    Provenance        `json:"unit_source,omitempty"`
	Sector        string            `json:"sector"`
	Division      string            `json:"division"`
	UnitCode      string            `json:"unit_code"`
	BalanceAmount float64           `json:"balance_amount"`
	TotalAmount   float64           `json:"total_amount"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// IsMapped reports whether the row resolved to a unit
func (r *ReconciledRecord) IsMapped() bool {
	return r.UnitID != ""
}

// IsOutstanding reports whether the PO still has an unpaid balance
func (r *ReconciledRecord) IsOutstanding() bool {
	return r.BalanceAmount > 0
}

// Field returns the value of a named categorical column. Unknown names fall
// back to the passthrough columns.
func (r *ReconciledRecord) Field(name string) string {
	switch name {
	case ColumnPONumber:
		return r.PONumber
	case ColumnVendorName:
		return r.VendorName
	case ColumnPostingDate:
		return r.PostingDate
	case ColumnSector:
		return r.Sector
	case ColumnDivision:
		return r.Division
	case ColumnUnitCode:
		return r.UnitCode
	case ColumnPTJNumber:
		return r.UnitID
	default:
		return r.Extra[name]
	}
}

// SortedKeys returns the keys of a passthrough map in ascending order
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
