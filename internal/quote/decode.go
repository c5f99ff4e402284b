package quote

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Row is one decoded quote line. Numbers the feed does not carry, or that
// fail to parse, are left invalid.
type Row struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Code string `json:"code"`

	Price         decimal.NullDecimal `json:"price"`
	Open          decimal.NullDecimal `json:"open"`
	PrevClose     decimal.NullDecimal `json:"prevClose"`
	High          decimal.NullDecimal `json:"high"`
	Low           decimal.NullDecimal `json:"low"`
	Change        decimal.NullDecimal `json:"change"`
	ChangePercent decimal.NullDecimal `json:"changePercent"`
	Volume        decimal.NullDecimal `json:"volume"`
	Turnover      decimal.NullDecimal `json:"turnover"`
	MarketCap     decimal.NullDecimal `json:"marketCap"`

	Date string `json:"date,omitempty"`
	Time string `json:"time,omitempty"`
}

var hundred = decimal.NewFromInt(100)

func (l Layout) pattern() *regexp.Regexp {
	return regexp.MustCompile(`^(?:var )?` + regexp.QuoteMeta(l.VarPrefix) + `(\w+)="(.*)";`)
}

// Decode parses every well-formed line of raw, skipping the rest.
func (l Layout) Decode(raw string) []Row {
	rows, _ := l.DecodeLines(raw)
	return rows
}

// DecodeLines parses raw and also reports how many non-blank lines were
// skipped because they did not match or carried an empty payload.
func (l Layout) DecodeLines(raw string) (rows []Row, skipped int) {
	re := l.pattern()
	rows = []Row{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := re.FindStringSubmatch(line)
		if m == nil || m[2] == "" {
			skipped++
			continue
		}
		rows = append(rows, l.row(m[1], strings.Split(m[2], l.Delimiter)))
	}
	return rows, skipped
}

func (l Layout) row(key string, parts []string) Row {
	text := func(f Field) string {
		i, ok := l.Fields[f]
		if !ok || i < 0 || i >= len(parts) {
			return ""
		}
		return strings.TrimSpace(parts[i])
	}
	num := func(f Field) decimal.NullDecimal {
		s := text(f)
		if s == "" {
			return decimal.NullDecimal{}
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(d)
	}
	volume := num(FieldVolume)
	if volume.Valid && l.VolumeLot > 1 {
		volume = decimal.NewNullDecimal(volume.Decimal.Div(decimal.NewFromInt(l.VolumeLot)))
	}

	r := Row{
		Key:           key,
		Name:          text(FieldName),
		Code:          text(FieldCode),
		Price:         num(FieldPrice),
		Open:          num(FieldOpen),
		PrevClose:     num(FieldPrevClose),
		High:          num(FieldHigh),
		Low:           num(FieldLow),
		Change:        num(FieldChange),
		ChangePercent: num(FieldChangePercent),
		Volume:        volume,
		Turnover:      num(FieldTurnover),
		MarketCap:     num(FieldMarketCap),
		Date:          text(FieldDate),
		Time:          text(FieldTime),
	}
	if r.Code == "" {
		r.Code = stripMarket(key)
	}

	if _, carried := l.Fields[FieldChange]; !carried && r.Price.Valid && r.PrevClose.Valid {
		r.Change = decimal.NewNullDecimal(r.Price.Decimal.Sub(r.PrevClose.Decimal))
	}
	if _, carried := l.Fields[FieldChangePercent]; !carried && r.Change.Valid && r.PrevClose.Valid && !r.PrevClose.Decimal.IsZero() {
		r.ChangePercent = decimal.NewNullDecimal(r.Change.Decimal.Div(r.PrevClose.Decimal).Mul(hundred))
	}
	return r
}

// SortByChange orders rows by change percent, highest first. Rows without a
// change percent go last, keeping their relative order.
func SortByChange(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].ChangePercent, rows[j].ChangePercent
		if !a.Valid || !b.Valid {
			return a.Valid && !b.Valid
		}
		return a.Decimal.GreaterThan(b.Decimal)
	})
}
