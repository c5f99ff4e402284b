package observation

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingFields   = errors.New("please fill in all required fields")
	ErrInvalidPrice    = errors.New("please enter a valid price")
	ErrInvalidDate     = errors.New("please enter a date as YYYY-MM-DD")
	ErrInvalidForecast = errors.New("forecast must be long, short or none")
)

// Input is the raw, unvalidated content of the entry form.
type Input struct {
	Date       string   `json:"date" form:"date"`
	TickerCode string   `json:"stockNumber" form:"stockNumber"`
	TickerName string   `json:"stockName" form:"stockName"`
	Price      string   `json:"price" form:"price"`
	Industry   []string `json:"industry" form:"industry"`
	Concept    []string `json:"notion" form:"notion"`
	Forecast   string   `json:"future" form:"future"`
	Comment    string   `json:"comment" form:"comment"`
}

// FromObservation turns a stored observation back into form input for editing.
func FromObservation(o Observation) Input {
	return Input{
		Date:       o.Date,
		TickerCode: o.TickerCode,
		TickerName: o.TickerName,
		Price:      strconv.FormatFloat(o.Price, 'f', -1, 64),
		Industry:   append([]string(nil), o.IndustryTags...),
		Concept:    append([]string(nil), o.ConceptTags...),
		Forecast:   string(o.Forecast),
		Comment:    o.Comment,
	}
}

// New validates input and builds an observation. An empty id gets a fresh
// UUID; a non-empty id is kept so edits never reassign identity.
func New(in Input, id string) (Observation, error) {
	date := strings.TrimSpace(in.Date)
	code := strings.TrimSpace(in.TickerCode)
	name := strings.TrimSpace(in.TickerName)
	industry := NormalizeTags(in.Industry)
	concept := NormalizeTags(in.Concept)

	if date == "" || code == "" || name == "" || len(industry) == 0 || len(concept) == 0 {
		return Observation{}, ErrMissingFields
	}

	if _, err := time.Parse(DateLayout, date); err != nil {
		return Observation{}, ErrInvalidDate
	}

	price, err := parsePrice(in.Price)
	if err != nil {
		return Observation{}, err
	}

	forecast, err := ParseForecast(in.Forecast)
	if err != nil {
		return Observation{}, err
	}

	if id == "" {
		id = uuid.NewString()
	}

	return Observation{
		ID:           id,
		Date:         date,
		TickerCode:   code,
		TickerName:   name,
		Price:        price,
		IndustryTags: industry,
		ConceptTags:  concept,
		Forecast:     forecast,
		Comment:      in.Comment,
	}, nil
}

func parsePrice(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidPrice
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, ErrInvalidPrice
	}
	return price, nil
}

// ParseTags splits a free-text tag field on commas (ASCII or full-width),
// semicolons and newlines.
func ParseTags(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', '，', ';', '；', '\n', '\r':
			return true
		}
		return false
	})
	return NormalizeTags(parts)
}

// NormalizeTags trims tags, drops blanks and keeps the first occurrence of
// each duplicate.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
