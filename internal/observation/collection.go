package observation

import (
	"sort"
	"strings"
)

// Merge applies the submit policy: existing observations sharing a
// date|ticker key with an incoming one are dropped, then incoming is
// appended. Within incoming, a later entry replaces an earlier one with the
// same key in place.
func Merge(existing, incoming []Observation) []Observation {
	batch := make([]Observation, 0, len(incoming))
	pos := make(map[string]int, len(incoming))
	for _, o := range incoming {
		if i, ok := pos[o.Key()]; ok {
			batch[i] = o
			continue
		}
		pos[o.Key()] = len(batch)
		batch = append(batch, o)
	}

	merged := make([]Observation, 0, len(existing)+len(batch))
	for _, o := range existing {
		if _, replaced := pos[o.Key()]; replaced {
			continue
		}
		merged = append(merged, o)
	}
	return append(merged, batch...)
}

// SortByDateDesc returns a copy ordered newest first. Equal dates keep their
// relative order.
func SortByDateDesc(obs []Observation) []Observation {
	sorted := append([]Observation(nil), obs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date > sorted[j].Date
	})
	return sorted
}

// Search keeps observations whose ticker code, name, comment or any tag
// contains term, ignoring case.
func Search(obs []Observation, term string) []Observation {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return obs
	}

	var out []Observation
	for _, o := range obs {
		if matches(o, term) {
			out = append(out, o)
		}
	}
	return out
}

func matches(o Observation, term string) bool {
	if strings.Contains(strings.ToLower(o.TickerCode), term) ||
		strings.Contains(strings.ToLower(o.TickerName), term) ||
		strings.Contains(strings.ToLower(o.Comment), term) {
		return true
	}
	for _, tag := range o.IndustryTags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	for _, tag := range o.ConceptTags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// FindByID returns the observation with the given id, if any.
func FindByID(obs []Observation, id string) (Observation, bool) {
	for _, o := range obs {
		if o.ID == id {
			return o, true
		}
	}
	return Observation{}, false
}

// DistinctDates counts the different dates present.
func DistinctDates(obs []Observation) int {
	seen := make(map[string]struct{})
	for _, o := range obs {
		seen[o.Date] = struct{}{}
	}
	return len(seen)
}
