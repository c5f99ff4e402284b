// Package analysis derives the recency-window view of the journal: which
// tickers recur across the most recent observation dates, how their price
// moved, and which tags come up most.
package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TobiSchelling/stockdiary/internal/observation"
)

// DefaultWindow is the number of distinct observation dates kept.
const DefaultWindow = 10

// TickerSummary describes one ticker seen more than once in the window.
type TickerSummary struct {
	TickerCode string  `json:"stockNumber"`
	TickerName string  `json:"stockName"`
	FirstPrice float64 `json:"firstPrice"`
	LastPrice  float64 `json:"lastPrice"`
	Count      int     `json:"count"`
}

// TagCount is the number of windowed observations carrying a tag.
type TagCount struct {
	Tag   string `json:"text"`
	Count int    `json:"value"`
}

// Result is the full analysis over one window.
type Result struct {
	Window            []string        `json:"window"`
	PerTicker         []TickerSummary `json:"perTicker"`
	IndustryTagCounts []TagCount      `json:"industryTagCounts"`
	ConceptTagCounts  []TagCount      `json:"conceptTagCounts"`
}

// Aggregate analyses the DefaultWindow most recent distinct dates.
func Aggregate(obs []observation.Observation) Result {
	return AggregateWindow(obs, DefaultWindow)
}

// AggregateWindow analyses the size most recent distinct dates.
func AggregateWindow(obs []observation.Observation, size int) Result {
	r := Result{
		Window:            []string{},
		PerTicker:         []TickerSummary{},
		IndustryTagCounts: []TagCount{},
		ConceptTagCounts:  []TagCount{},
	}
	if len(obs) == 0 || size <= 0 {
		return r
	}

	r.Window = RecentDates(obs, size)
	recent := inWindow(obs, r.Window)

	groups := make(map[string][]observation.Observation)
	var order []string
	for _, o := range recent {
		if _, ok := groups[o.TickerCode]; !ok {
			order = append(order, o.TickerCode)
		}
		groups[o.TickerCode] = append(groups[o.TickerCode], o)
	}

	for _, code := range order {
		group := groups[code]
		if len(group) < 2 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			return dateBefore(group[i].Date, group[j].Date)
		})
		first, last := group[0], group[len(group)-1]
		r.PerTicker = append(r.PerTicker, TickerSummary{
			TickerCode: first.TickerCode,
			TickerName: first.TickerName,
			FirstPrice: first.Price,
			LastPrice:  last.Price,
			Count:      len(group),
		})
	}
	sort.SliceStable(r.PerTicker, func(i, j int) bool {
		a, b := r.PerTicker[i], r.PerTicker[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.TickerCode < b.TickerCode
	})

	r.IndustryTagCounts = countTags(recent, func(o observation.Observation) []string { return o.IndustryTags })
	r.ConceptTagCounts = countTags(recent, func(o observation.Observation) []string { return o.ConceptTags })
	return r
}

// RecentDates returns up to size distinct dates, newest first.
func RecentDates(obs []observation.Observation, size int) []string {
	seen := make(map[string]struct{})
	var dates []string
	for _, o := range obs {
		if _, ok := seen[o.Date]; ok {
			continue
		}
		seen[o.Date] = struct{}{}
		dates = append(dates, o.Date)
	}

	sort.Slice(dates, func(i, j int) bool {
		return dateBefore(dates[j], dates[i])
	})
	if len(dates) > size {
		dates = dates[:size]
	}
	return dates
}

// WindowTickers returns the distinct ticker codes observed in the window, in
// order of first appearance.
func WindowTickers(obs []observation.Observation, size int) []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, o := range inWindow(obs, RecentDates(obs, size)) {
		if _, ok := seen[o.TickerCode]; ok {
			continue
		}
		seen[o.TickerCode] = struct{}{}
		codes = append(codes, o.TickerCode)
	}
	return codes
}

// ChangePercent returns the move from first to last price in percent.
// ok is false when the first price is zero or a price is not finite.
func (s TickerSummary) ChangePercent() (pct decimal.Decimal, ok bool) {
	if s.FirstPrice == 0 || !finite(s.FirstPrice) || !finite(s.LastPrice) {
		return decimal.Zero, false
	}
	first := decimal.NewFromFloat(s.FirstPrice)
	last := decimal.NewFromFloat(s.LastPrice)
	return last.Sub(first).Div(first).Mul(decimal.NewFromInt(100)), true
}

// ChangeText renders the change as "12.34%", or "-" when not computable.
func (s TickerSummary) ChangeText() string {
	pct, ok := s.ChangePercent()
	if !ok {
		return "-"
	}
	return pct.StringFixed(2) + "%"
}

// Rising reports whether the change is computable and not negative.
func (s TickerSummary) Rising() bool {
	pct, ok := s.ChangePercent()
	return ok && !pct.IsNegative()
}

// TotalTags sums the counts of a tag frequency table.
func TotalTags(counts []TagCount) int {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	return total
}

func inWindow(obs []observation.Observation, window []string) []observation.Observation {
	keep := make(map[string]struct{}, len(window))
	for _, d := range window {
		keep[d] = struct{}{}
	}
	var recent []observation.Observation
	for _, o := range obs {
		if _, ok := keep[o.Date]; ok {
			recent = append(recent, o)
		}
	}
	return recent
}

func countTags(obs []observation.Observation, tags func(observation.Observation) []string) []TagCount {
	counts := make(map[string]int)
	for _, o := range obs {
		for _, tag := range tags(o) {
			counts[tag]++
		}
	}

	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// dateBefore orders calendar dates. Dates that do not parse sort before
// every valid date, and among themselves lexically.
func dateBefore(a, b string) bool {
	ta, errA := time.Parse(observation.DateLayout, a)
	tb, errB := time.Parse(observation.DateLayout, b)
	switch {
	case errA == nil && errB == nil:
		if ta.Equal(tb) {
			return a < b
		}
		return ta.Before(tb)
	case errA != nil && errB != nil:
		return a < b
	default:
		return errA != nil
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
