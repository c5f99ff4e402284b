package analysis

import (
	"fmt"
	"testing"

	"github.com/TobiSchelling/stockdiary/internal/observation"
)

func obs(date, code string, price float64, industry, concept []string) observation.Observation {
	return observation.Observation{
		ID: date + code, Date: date, TickerCode: code, TickerName: "N" + code, Price: price,
		IndustryTags: industry, ConceptTags: concept, Forecast: observation.ForecastNone,
	}
}

func day(n int) string {
	return fmt.Sprintf("2024-01-%02d", n)
}

func TestAggregateEmpty(t *testing.T) {
	r := Aggregate(nil)
	if len(r.Window) != 0 || len(r.PerTicker) != 0 || len(r.IndustryTagCounts) != 0 || len(r.ConceptTagCounts) != 0 {
		t.Errorf("expected empty result, got %+v", r)
	}
	if r.PerTicker == nil {
		t.Error("expected non-nil empty slices for JSON output")
	}
}

func TestWindowKeepsTenMostRecentDates(t *testing.T) {
	var list []observation.Observation
	for d := 1; d <= 12; d++ {
		list = append(list, obs(day(d), "Y", float64(d), nil, nil))
	}

	r := Aggregate(list)
	if len(r.Window) != 10 {
		t.Fatalf("expected window of 10 dates, got %d", len(r.Window))
	}
	if r.Window[0] != day(12) || r.Window[9] != day(3) {
		t.Errorf("expected window %s..%s, got %s..%s", day(12), day(3), r.Window[0], r.Window[9])
	}
	excluded := []string{day(1), day(2)}
	for _, in := range r.Window {
		for _, out := range excluded {
			if in < out {
				t.Errorf("window date %s older than excluded %s", in, out)
			}
		}
	}
}

func TestWindowCountsDatesNotRecords(t *testing.T) {
	// Twelve distinct dates, ticker X on eleven of them (missing day 7),
	// plus several tickers sharing the latest date.
	var list []observation.Observation
	for d := 1; d <= 12; d++ {
		if d != 7 {
			list = append(list, obs(day(d), "X", float64(d), nil, nil))
		}
	}
	list = append(list, obs(day(7), "Q", 1, nil, nil))
	for _, code := range []string{"A", "B", "C", "D"} {
		list = append(list, obs(day(12), code, 1, nil, nil))
	}

	r := Aggregate(list)
	var x *TickerSummary
	for i := range r.PerTicker {
		if r.PerTicker[i].TickerCode == "X" {
			x = &r.PerTicker[i]
		}
	}
	if x == nil {
		t.Fatal("expected X in per-ticker output")
	}
	// Window is days 3..12; X is missing on day 7.
	if x.Count != 9 {
		t.Errorf("expected count 9, got %d", x.Count)
	}
	if x.FirstPrice != 3 || x.LastPrice != 12 {
		t.Errorf("expected first 3 last 12, got %v %v", x.FirstPrice, x.LastPrice)
	}
}

func TestSingletonTickerExcluded(t *testing.T) {
	list := []observation.Observation{
		obs(day(1), "X", 1, nil, nil),
		obs(day(2), "X", 2, nil, nil),
		obs(day(2), "Y", 5, nil, nil),
	}
	r := Aggregate(list)
	if len(r.PerTicker) != 1 || r.PerTicker[0].TickerCode != "X" {
		t.Errorf("expected only X, got %+v", r.PerTicker)
	}
}

func TestFirstLastIndependentOfInputOrder(t *testing.T) {
	list := []observation.Observation{
		obs(day(5), "X", 50, nil, nil),
		obs(day(1), "X", 10, nil, nil),
		obs(day(9), "X", 90, nil, nil),
		obs(day(3), "X", 30, nil, nil),
	}
	list[1].TickerName = "Earliest"

	r := Aggregate(list)
	if len(r.PerTicker) != 1 {
		t.Fatalf("expected one summary, got %d", len(r.PerTicker))
	}
	s := r.PerTicker[0]
	if s.FirstPrice != 10 || s.LastPrice != 90 || s.Count != 4 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.TickerName != "Earliest" {
		t.Errorf("expected name from earliest member, got %q", s.TickerName)
	}
}

func TestDuplicateDatesCollapse(t *testing.T) {
	var list []observation.Observation
	for i := 0; i < 15; i++ {
		list = append(list, obs(day(20), fmt.Sprintf("T%d", i), 1, nil, nil))
	}
	list = append(list, obs(day(1), "T0", 2, nil, nil))

	r := Aggregate(list)
	if len(r.Window) != 2 {
		t.Errorf("expected 2 window dates, got %v", r.Window)
	}
	if len(r.PerTicker) != 1 || r.PerTicker[0].TickerCode != "T0" {
		t.Errorf("expected only T0 to recur, got %+v", r.PerTicker)
	}
}

func TestTagCountsCoverWholeWindow(t *testing.T) {
	list := []observation.Observation{
		obs(day(1), "X", 1, []string{"银行"}, []string{"破净"}),
		obs(day(2), "X", 2, []string{"银行", "保险"}, []string{"破净"}),
		obs(day(2), "Y", 3, []string{"券商"}, []string{"高股息", "破净"}),
	}

	r := Aggregate(list)
	if TotalTags(r.IndustryTagCounts) != 4 {
		t.Errorf("expected 4 industry tag occurrences, got %d", TotalTags(r.IndustryTagCounts))
	}
	if TotalTags(r.ConceptTagCounts) != 4 {
		t.Errorf("expected 4 concept tag occurrences, got %d", TotalTags(r.ConceptTagCounts))
	}
	if r.IndustryTagCounts[0].Tag != "银行" || r.IndustryTagCounts[0].Count != 2 {
		t.Errorf("expected 银行 x2 first, got %+v", r.IndustryTagCounts[0])
	}

	// Y is a singleton but its tags still count.
	found := false
	for _, c := range r.IndustryTagCounts {
		if c.Tag == "券商" {
			found = true
		}
	}
	if !found {
		t.Error("expected tags of singleton tickers to be counted")
	}
}

func TestTagCountsIgnoreOutsideWindow(t *testing.T) {
	var list []observation.Observation
	list = append(list, obs(day(1), "OLD", 1, []string{"old"}, []string{"old"}))
	for d := 2; d <= 11; d++ {
		list = append(list, obs(day(d), "X", 1, []string{"new"}, []string{"new"}))
	}
	r := Aggregate(list)
	for _, c := range r.IndustryTagCounts {
		if c.Tag == "old" {
			t.Error("expected tags outside the window to be ignored")
		}
	}
}

func TestPerTickerOrdering(t *testing.T) {
	list := []observation.Observation{
		obs(day(1), "B", 1, nil, nil), obs(day(2), "B", 1, nil, nil),
		obs(day(1), "A", 1, nil, nil), obs(day(2), "A", 1, nil, nil),
		obs(day(1), "C", 1, nil, nil), obs(day(2), "C", 1, nil, nil), obs(day(3), "C", 1, nil, nil),
	}
	r := Aggregate(list)
	got := r.PerTicker[0].TickerCode + r.PerTicker[1].TickerCode + r.PerTicker[2].TickerCode
	if got != "CAB" {
		t.Errorf("expected CAB, got %s", got)
	}
}

func TestCalendarOrderingWithInvalidDates(t *testing.T) {
	list := []observation.Observation{
		obs("not-a-date", "X", 5, nil, nil),
		obs(day(2), "X", 2, nil, nil),
		obs(day(1), "X", 1, nil, nil),
	}
	dates := RecentDates(list, 10)
	if dates[0] != day(2) || dates[2] != "not-a-date" {
		t.Errorf("expected invalid date last, got %v", dates)
	}

	r := Aggregate(list)
	if r.PerTicker[0].FirstPrice != 5 || r.PerTicker[0].LastPrice != 2 {
		t.Errorf("expected invalid date to sort as earliest, got %+v", r.PerTicker[0])
	}
}

func TestChangePercent(t *testing.T) {
	s := TickerSummary{FirstPrice: 10, LastPrice: 12.5}
	pct, ok := s.ChangePercent()
	if !ok {
		t.Fatal("expected computable change")
	}
	if pct.StringFixed(2) != "25.00" {
		t.Errorf("expected 25.00, got %s", pct.StringFixed(2))
	}
	if s.ChangeText() != "25.00%" || !s.Rising() {
		t.Errorf("unexpected text %q", s.ChangeText())
	}

	down := TickerSummary{FirstPrice: 3, LastPrice: 2}
	if down.ChangeText() != "-33.33%" || down.Rising() {
		t.Errorf("expected -33.33%%, got %q", down.ChangeText())
	}
}

func TestChangePercentZeroFirstPrice(t *testing.T) {
	s := TickerSummary{FirstPrice: 0, LastPrice: 5}
	if _, ok := s.ChangePercent(); ok {
		t.Error("expected change to be not computable")
	}
	if s.ChangeText() != "-" {
		t.Errorf("expected '-', got %q", s.ChangeText())
	}
	if s.Rising() {
		t.Error("expected not rising when not computable")
	}
}

func TestWindowTickers(t *testing.T) {
	var list []observation.Observation
	list = append(list, obs(day(1), "OLD", 1, nil, nil))
	for d := 2; d <= 11; d++ {
		list = append(list, obs(day(d), "600000", 1, nil, nil))
	}
	list = append(list, obs(day(11), "300750", 1, nil, nil))

	codes := WindowTickers(list, DefaultWindow)
	if len(codes) != 2 || codes[0] != "600000" || codes[1] != "300750" {
		t.Errorf("expected [600000 300750], got %v", codes)
	}
}
