package observation

import (
	"encoding/json"
	"fmt"
	"io"
)

// document is the on-disk shape of the journal file.
type document struct {
	StockData []Observation `json:"stockData"`
}

// Decode reads a journal document. A missing stockData list decodes as empty.
func Decode(r io.Reader) ([]Observation, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return []Observation{}, nil
		}
		return nil, fmt.Errorf("decoding journal: %w", err)
	}

	obs := doc.StockData
	if obs == nil {
		obs = []Observation{}
	}
	for i := range obs {
		if obs[i].Forecast == "" {
			obs[i].Forecast = ForecastNone
		}
		if obs[i].IndustryTags == nil {
			obs[i].IndustryTags = []string{}
		}
		if obs[i].ConceptTags == nil {
			obs[i].ConceptTags = []string{}
		}
	}
	return obs, nil
}

// Encode writes a journal document indented by two spaces, without HTML
// escaping.
func Encode(w io.Writer, obs []Observation) error {
	if obs == nil {
		obs = []Observation{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(document{StockData: obs}); err != nil {
		return fmt.Errorf("encoding journal: %w", err)
	}
	return nil
}
