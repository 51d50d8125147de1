// Package dashboard computes everything the dashboard shows from the unified
// dataset: the outstanding view, cascading filter options, KPIs, per-unit
// totals and the detail table. All functions are pure and never mutate the
// records they are given.
package dashboard

import (
	"sort"
	"strings"

	"po-outstanding-dashboard/internal/models"
)

// All is the filter value that selects every option
const All = "All"

// DefaultLevels is the cascade order of the categorical filters
var DefaultLevels = []string{
	models.ColumnSector,
	models.ColumnDivision,
	models.ColumnVendorName,
}

// Filter is one equality predicate on a categorical column. A Value of All
// (or empty) does not narrow the view.
type Filter struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// IsActive reports whether the filter narrows the view
func (f Filter) IsActive() bool {
	return f.Value != "" && f.Value != All
}

// Matches applies the filter to one record; comparison is exact
func (f Filter) Matches(r *models.ReconciledRecord) bool {
	if !f.IsActive() {
		return true
	}
	return r.Field(f.Field) == f.Value
}

// FilteredView is the outstanding subset after the active filters
type FilteredView struct {
	Records []models.ReconciledRecord `json:"-"`
	Filters []Filter                  `json:"filters"`
}

// Len returns the number of rows in the view
func (v FilteredView) Len() int {
	return len(v.Records)
}

// Outstanding keeps the records with a positive balance. Every view the
// dashboard shows starts from this subset.
func Outstanding(records []models.ReconciledRecord) []models.ReconciledRecord {
	out := make([]models.ReconciledRecord, 0, len(records))
	for i := range records {
		if records[i].IsOutstanding() {
			out = append(out, records[i])
		}
	}
	return out
}

// ApplyFilters narrows the outstanding records by every filter in order
func ApplyFilters(records []models.ReconciledRecord, filters []Filter) FilteredView {
	view := Outstanding(records)
	for _, f := range filters {
		view = narrow(view, f)
	}
	return FilteredView{Records: view, Filters: copyFilters(filters)}
}

func narrow(records []models.ReconciledRecord, f Filter) []models.ReconciledRecord {
	if !f.IsActive() {
		return records
	}
	out := make([]models.ReconciledRecord, 0, len(records))
	for i := range records {
		if f.Matches(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

// Options returns the distinct non-blank values of a column, ascending
func Options(records []models.ReconciledRecord, field string) []string {
	seen := make(map[string]struct{})
	options := make([]string, 0)
	for i := range records {
		value := records[i].Field(field)
		if strings.TrimSpace(value) == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		options = append(options, value)
	}
	sort.Strings(options)
	return options
}

// CascadeLevel is one filter control: its options are computed from the
// view already narrowed by every earlier level
type CascadeLevel struct {
	Field    string   `json:"field"`
	Options  []string `json:"options"`
	Selected string   `json:"selected"`
}

// Choices returns the options as shown in a selector, All first
func (l CascadeLevel) Choices() []string {
	return append([]string{All}, l.Options...)
}

// IsValidSelection reports whether the selection is All or one of the options
func (l CascadeLevel) IsValidSelection() bool {
	if l.Selected == All {
		return true
	}
	for _, o := range l.Options {
		if o == l.Selected {
			return true
		}
	}
	return false
}

// CascadeResult holds every level and the final view
type CascadeResult struct {
	Levels []CascadeLevel `json:"levels"`
	View   FilteredView   `json:"view"`
}

// Cascade evaluates the filters level by level. Each level's options come
// from the outstanding records narrowed by the levels before it, so option
// lists never grow as the user drills down. Filters are applied in the
// order given; use Selection to build them in the default order.
func Cascade(records []models.ReconciledRecord, filters []Filter) *CascadeResult {
	view := Outstanding(records)
	result := &CascadeResult{Levels: make([]CascadeLevel, 0, len(filters))}

	for _, f := range filters {
		selected := f.Value
		if selected == "" {
			selected = All
		}
		result.Levels = append(result.Levels, CascadeLevel{
			Field:    f.Field,
			Options:  Options(view, f.Field),
			Selected: selected,
		})
		view = narrow(view, f)
	}

	result.View = FilteredView{Records: view, Filters: copyFilters(filters)}
	return result
}

// Selection builds the default sector, division and vendor filters. Empty
// values mean All.
func Selection(sector, division, vendor string) []Filter {
	values := []string{sector, division, vendor}
	filters := make([]Filter, len(DefaultLevels))
	for i, field := range DefaultLevels {
		value := values[i]
		if value == "" {
			value = All
		}
		filters[i] = Filter{Field: field, Value: value}
	}
	return filters
}

func copyFilters(filters []Filter) []Filter {
	out := make([]Filter, len(filters))
	copy(out, filters)
	return out
}
