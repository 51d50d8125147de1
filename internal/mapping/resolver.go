// Package mapping resolves the authoritative PO-to-unit assignment from the
// system extract and the manual override template.
package mapping

import (
	"sort"

	"po-outstanding-dashboard/internal/models"
	"po-outstanding-dashboard/pkg/logger"
)

// Stats describes how a resolution was reached
type Stats struct {
	SystemEntries    int `json:"system_entries"`
	ManualEntries    int `json:"manual_entries"`
	ManualDiscarded  int `json:"manual_discarded"`
	EmptyPODiscarded int `json:"empty_po_discarded"`
	OverridesApplied int `json:"overrides_applied"`
	ManualOnly       int `json:"manual_only"`
	SystemOnly       int `json:"system_only"`
}

// Resolution is the authoritative PO-to-unit map. It holds exactly one entry
// per PO number and is read-only once built.
type Resolution struct {
	entries []models.UnitMapping
	index   map[string]int
	stats   Stats
}

// Lookup returns the resolved mapping for a normalized PO number
func (r *Resolution) Lookup(po string) (models.UnitMapping, bool) {
	if r == nil || po == "" {
		return models.UnitMapping{}, false
	}
	i, ok := r.index[po]
	if !ok {
		return models.UnitMapping{}, false
	}
	return r.entries[i], true
}

// Len returns the number of resolved POs
func (r *Resolution) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Entries returns the resolved mappings ordered by PO number
func (r *Resolution) Entries() []models.UnitMapping {
	if r == nil {
		return nil
	}
	out := make([]models.UnitMapping, len(r.entries))
	copy(out, r.entries)
	return out
}

// Stats returns the counters gathered while resolving
func (r *Resolution) Stats() Stats {
	if r == nil {
		return Stats{}
	}
	return r.stats
}

// FilterManual keeps the override rows that actually name a unit. A blank
// override means "no opinion" and must not hide the system value.
func FilterManual(manual []models.UnitMapping) []models.UnitMapping {
	kept := make([]models.UnitMapping, 0, len(manual))
	for _, m := range manual {
		if m.UnitID != "" {
			kept = append(kept, m)
		}
	}
	return kept
}

// Resolve merges system and manual mappings into one entry per PO. Inputs
// must already carry normalized identifiers. Manual rows with an empty unit
// are discarded first. The remaining rows are ordered by PO and provenance
// (manual after system) and the last row per PO wins, so a manual override
// beats the system value and, within one source, the later row in file order
// beats the earlier one. POs absent from the ledger are kept.
func Resolve(system, manual []models.UnitMapping) *Resolution {
	log := logger.GetGlobalLogger().WithComponent("mapping_resolver")

	filtered := FilterManual(manual)

	stats := Stats{
		SystemEntries:   len(system),
		ManualEntries:   len(filtered),
		ManualDiscarded: len(manual) - len(filtered),
	}

	combined := make([]models.UnitMapping, 0, len(system)+len(filtered))
	for _, group := range [][]models.UnitMapping{system, filtered} {
		for _, m := range group {
			if m.PONumber == "" {
				stats.EmptyPODiscarded++
				continue
			}
			combined = append(combined, m)
		}
	}

	sort.SliceStable(combined, func(i, j int) bool {
		if combined[i].PONumber != combined[j].PONumber {
			return combined[i].PONumber < combined[j].PONumber
		}
		return combined[i].Provenance.Rank() < combined[j].Provenance.Rank()
	})

	resolution := &Resolution{
		entries: make([]models.UnitMapping, 0, len(combined)),
		index:   make(map[string]int, len(combined)),
	}

	for start := 0; start < len(combined); {
		end := start
		hasSystem, hasManual := false, false
		for end < len(combined) && combined[end].PONumber == combined[start].PONumber {
			switch combined[end].Provenance {
			case models.ProvenanceSystem:
				hasSystem = true
			case models.ProvenanceManual:
				hasManual = true
			}
			end++
		}

		winner := combined[end-1]
		resolution.index[winner.PONumber] = len(resolution.entries)
		resolution.entries = append(resolution.entries, winner)

		switch {
		case hasSystem && hasManual:
			stats.OverridesApplied++
		case hasManual:
			stats.ManualOnly++
		default:
			stats.SystemOnly++
		}

		start = end
	}

	resolution.stats = stats

	log.WithFields(logger.Fields{
		"system_entries":    stats.SystemEntries,
		"manual_entries":    stats.ManualEntries,
		"manual_discarded":  stats.ManualDiscarded,
		"resolved_pos":      resolution.Len(),
		"overrides_applied": stats.OverridesApplied,
		"manual_only":       stats.ManualOnly,
		"system_only":       stats.SystemOnly,
	}).Info("Resolved PO unit mappings")

	if stats.EmptyPODiscarded > 0 {
		log.WithField("count", stats.EmptyPODiscarded).Warn("Ignored mapping rows without a PO number")
	}

	return resolution
}
