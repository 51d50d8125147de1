package reconciler

import (
	"po-outstanding-dashboard/internal/models"
)

// DimensionIndex looks up unit dimension rows by normalized unit ID
type DimensionIndex struct {
	byUnit     map[string]*models.UnitDimension
	duplicates map[string]int
	blank      int
}

// NewDimensionIndex indexes dimension rows. When a unit ID appears more than
// once the first row in file order is kept and the rest are counted. Rows
// without a unit ID are never indexed.
func NewDimensionIndex(units []models.UnitDimension) *DimensionIndex {
	index := &DimensionIndex{
		byUnit:     make(map[string]*models.UnitDimension, len(units)),
		duplicates: make(map[string]int),
	}

	for i := range units {
		unit := &units[i]
		if unit.UnitID == "" {
			index.blank++
			continue
		}
		if _, exists := index.byUnit[unit.UnitID]; exists {
			index.duplicates[unit.UnitID]++
			continue
		}
		index.byUnit[unit.UnitID] = unit
	}

	return index
}

// Lookup returns the dimension row for a unit ID. The empty ID never matches.
func (idx *DimensionIndex) Lookup(unitID string) (*models.UnitDimension, bool) {
	if unitID == "" {
		return nil, false
	}
	unit, ok := idx.byUnit[unitID]
	return unit, ok
}

// Len returns the number of distinct indexed units
func (idx *DimensionIndex) Len() int {
	return len(idx.byUnit)
}

// DuplicateRows returns how many rows were dropped because their unit ID was
// already indexed
func (idx *DimensionIndex) DuplicateRows() int {
	total := 0
	for _, n := range idx.duplicates {
		total += n
	}
	return total
}

// DuplicateUnits returns the unit IDs that appeared more than once
func (idx *DimensionIndex) DuplicateUnits() []string {
	units := make([]string, 0, len(idx.duplicates))
	for unit := range idx.duplicates {
		units = append(units, unit)
	}
	return sortedStrings(units)
}
