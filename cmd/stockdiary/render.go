package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/TobiSchelling/stockdiary/internal/analysis"
	"github.com/TobiSchelling/stockdiary/internal/observation"
	"github.com/TobiSchelling/stockdiary/internal/quote"
)

// A-share convention: red is up, green is down.
var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6"))
	upStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	downStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// pad left-aligns s in a column of width display cells.
func pad(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s + " "
	}
	return s + strings.Repeat(" ", width-w)
}

func printObservations(w io.Writer, obs []observation.Observation) {
	fmt.Fprintln(w, headerStyle.Render(
		pad("Date", 12)+pad("Code", 10)+pad("Name", 12)+pad("Price", 10)+pad("Forecast", 10)+"Tags"))
	for _, o := range obs {
		tags := strings.Join(o.IndustryTags, ",") + " | " + strings.Join(o.ConceptTags, ",")
		fmt.Fprintln(w, pad(o.Date, 12)+pad(o.TickerCode, 10)+pad(o.TickerName, 12)+
			pad(fmt.Sprintf("%.2f", o.Price), 10)+pad(o.Forecast.Label(), 10)+mutedStyle.Render(tags))
		if c := strings.TrimSpace(o.Comment); c != "" {
			fmt.Fprintln(w, "  "+mutedStyle.Render(firstLine(c)))
		}
	}
}

func printDrafts(w io.Writer, drafts []observation.Observation) {
	fmt.Fprintln(w, headerStyle.Render(pad("UUID", 38)+pad("Date", 12)+pad("Code", 10)+pad("Name", 12)+"Price"))
	for _, d := range drafts {
		fmt.Fprintln(w, pad(d.ID, 38)+pad(d.Date, 12)+pad(d.TickerCode, 10)+pad(d.TickerName, 12)+
			fmt.Sprintf("%.2f", d.Price))
	}
}

func printAnalysis(w io.Writer, r analysis.Result) {
	if len(r.Window) == 0 {
		fmt.Fprintln(w, "No observations.")
		return
	}
	fmt.Fprintf(w, "Window: %d dates, %s back to %s\n\n", len(r.Window), r.Window[0], r.Window[len(r.Window)-1])

	fmt.Fprintln(w, headerStyle.Render(pad("Code", 10)+pad("Name", 12)+pad("Count", 7)+pad("First", 10)+pad("Last", 10)+"Change"))
	if len(r.PerTicker) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No ticker was observed more than once."))
	}
	for _, t := range r.PerTicker {
		change := t.ChangeText()
		switch _, ok := t.ChangePercent(); {
		case !ok:
			change = mutedStyle.Render(change)
		case t.Rising():
			change = upStyle.Render(change)
		default:
			change = downStyle.Render(change)
		}
		fmt.Fprintln(w, pad(t.TickerCode, 10)+pad(t.TickerName, 12)+pad(fmt.Sprint(t.Count), 7)+
			pad(fmt.Sprintf("%.2f", t.FirstPrice), 10)+pad(fmt.Sprintf("%.2f", t.LastPrice), 10)+change)
	}

	printTags(w, "Industry", r.IndustryTagCounts)
	printTags(w, "Concept", r.ConceptTagCounts)
}

func printTags(w io.Writer, title string, counts []analysis.TagCount) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render(title))
	if len(counts) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  none"))
		return
	}
	for _, c := range counts {
		fmt.Fprintf(w, "  %s%d\n", pad(c.Tag, 16), c.Count)
	}
}

func printQuotes(w io.Writer, rows []quote.Row) {
	fmt.Fprintln(w, headerStyle.Render(pad("Code", 10)+pad("Name", 12)+pad("Price", 10)+pad("Change", 10)+"Change %"))
	for _, r := range rows {
		style := mutedStyle
		if r.ChangePercent.Valid {
			if r.ChangePercent.Decimal.IsNegative() {
				style = downStyle
			} else if r.ChangePercent.Decimal.IsPositive() {
				style = upStyle
			}
		}
		pct := "-"
		if r.ChangePercent.Valid {
			pct = r.ChangePercent.Decimal.StringFixed(2) + "%"
		}
		fmt.Fprintln(w, pad(r.Code, 10)+pad(r.Name, 12)+pad(fixed(r.Price), 10)+pad(fixed(r.Change), 10)+style.Render(pct))
	}
}

func fixed(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(2)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
