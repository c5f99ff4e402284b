package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/TobiSchelling/stockdiary/internal/analysis"
	"github.com/TobiSchelling/stockdiary/internal/observation"
	"github.com/TobiSchelling/stockdiary/internal/quote"
)

func TestPrintAnalysis(t *testing.T) {
	obs := []observation.Observation{
		{ID: "a", Date: "2024-01-01", TickerCode: "600000", TickerName: "PF", Price: 10,
			IndustryTags: []string{"银行"}, ConceptTags: []string{"破净"}},
		{ID: "b", Date: "2024-01-02", TickerCode: "600000", TickerName: "PF", Price: 11,
			IndustryTags: []string{"银行"}, ConceptTags: []string{"破净"}},
	}
	var buf bytes.Buffer
	printAnalysis(&buf, analysis.Aggregate(obs))

	out := buf.String()
	if !strings.Contains(out, "10.00%") {
		t.Errorf("expected change column, got:\n%s", out)
	}
	if !strings.Contains(out, "银行") {
		t.Errorf("expected industry tag, got:\n%s", out)
	}
}

func TestPrintAnalysisEmpty(t *testing.T) {
	var buf bytes.Buffer
	printAnalysis(&buf, analysis.Aggregate(nil))
	if !strings.Contains(buf.String(), "No observations") {
		t.Errorf("expected empty message, got %q", buf.String())
	}
}

func TestPrintQuotes(t *testing.T) {
	l, _ := quote.LayoutFor(quote.FormatTencent)
	var buf bytes.Buffer
	printQuotes(&buf, l.Decode(`v_s_sh600000="1~PF~600000~10.50~~";`))
	out := buf.String()
	if !strings.Contains(out, "10.50") || !strings.Contains(out, "-") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestMissingRequired(t *testing.T) {
	in := observation.Input{Date: "2024-01-01", TickerCode: "600000", TickerName: "PF", Price: "1",
		Industry: []string{"银行"}, Concept: []string{" "}}
	if !missingRequired(in) {
		t.Error("expected blank concept tag to count as missing")
	}
	in.Concept = []string{"破净"}
	if missingRequired(in) {
		t.Error("expected complete input")
	}
}

func TestPad(t *testing.T) {
	if got := pad("浦发", 6); got != "浦发  " {
		t.Errorf("expected wide runes counted as two cells, got %q", got)
	}
}
