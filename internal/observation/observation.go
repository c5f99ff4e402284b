// Package observation defines the journal record and the rules applied when
// one is entered, merged or searched.
package observation

import (
	"fmt"
	"strings"
)

// DateLayout is the calendar date format used throughout the journal.
const DateLayout = "2006-01-02"

// Forecast is a directional prediction attached to an observation.
type Forecast string

const (
	ForecastLong  Forecast = "long"
	ForecastShort Forecast = "short"
	ForecastNone  Forecast = "none"
)

// ParseForecast accepts long, short or none in any case. Empty input means none.
func ParseForecast(s string) (Forecast, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ForecastNone, nil
	case "long":
		return ForecastLong, nil
	case "short":
		return ForecastShort, nil
	case "none", "unknown":
		return ForecastNone, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidForecast, s)
}

// Label returns the display name of the forecast.
func (f Forecast) Label() string {
	switch f {
	case ForecastLong:
		return "Long"
	case ForecastShort:
		return "Short"
	}
	return "Unknown"
}

// Observation is one recorded (date, ticker, price, tags, forecast, comment) tuple.
// JSON names match the journal file written by earlier versions of the app.
type Observation struct {
	ID           string   `json:"uuid"`
	Date         string   `json:"date"`
	TickerCode   string   `json:"stockNumber"`
	TickerName   string   `json:"stockName"`
	Price        float64  `json:"price"`
	IndustryTags []string `json:"industry"`
	ConceptTags  []string `json:"notion"`
	Forecast     Forecast `json:"future"`
	Comment      string   `json:"comment"`
}

// Key identifies an observation by date and ticker code.
func (o Observation) Key() string {
	return o.Date + "|" + o.TickerCode
}
