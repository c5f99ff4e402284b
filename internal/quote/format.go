// Package quote decodes the line-oriented text answered by the public
// Chinese quote feeds and fetches it over HTTP.
package quote

import (
	"fmt"
	"strings"
)

// Format names a quote feed wire format.
type Format string

const (
	FormatTencent Format = "tencent"
	FormatSina    Format = "sina"
)

// Field is a quote value carried at a fixed position of a payload.
type Field int

const (
	FieldName Field = iota
	FieldCode
	FieldPrice
	FieldOpen
	FieldPrevClose
	FieldHigh
	FieldLow
	FieldChange
	FieldChangePercent
	FieldVolume
	FieldTurnover
	FieldMarketCap
	FieldDate
	FieldTime
)

// Layout describes where each field sits in one feed's payload.
type Layout struct {
	Format    Format
	VarPrefix string
	Delimiter string
	Fields    map[Field]int

	// VolumeLot divides the raw volume field.
	VolumeLot int64

	// BaseURL and Referer are the feed's public defaults.
	BaseURL string
	Referer string
}

var layouts = map[Format]Layout{
	FormatTencent: {
		Format:    FormatTencent,
		VarPrefix: "v_s_",
		Delimiter: "~",
		Fields: map[Field]int{
			FieldName:          1,
			FieldCode:          2,
			FieldPrice:         3,
			FieldChange:        4,
			FieldChangePercent: 5,
			FieldVolume:        6,
			FieldTurnover:      7,
			FieldMarketCap:     9,
		},
		VolumeLot: 100,
		BaseURL: "https://qt.gtimg.cn",
		Referer: "https://stock.qq.com/",
	},
	FormatSina: {
		Format:    FormatSina,
		VarPrefix: "hq_str_",
		Delimiter: ",",
		Fields: map[Field]int{
			FieldName:      0,
			FieldOpen:      1,
			FieldPrevClose: 2,
			FieldPrice:     3,
			FieldHigh:      4,
			FieldLow:       5,
			FieldVolume:    8,
			FieldTurnover:  9,
			FieldDate:      30,
			FieldTime:      31,
		},
		BaseURL: "https://hq.sinajs.cn",
		Referer: "https://finance.sina.com.cn/",
	},
}

// ParseFormat accepts a feed name in any case.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := layouts[f]; !ok {
		return "", fmt.Errorf("unknown quote feed %q (want tencent or sina)", s)
	}
	return f, nil
}

// LayoutFor returns the layout of a known feed format.
func LayoutFor(f Format) (Layout, error) {
	l, ok := layouts[f]
	if !ok {
		return Layout{}, fmt.Errorf("unknown quote feed %q", f)
	}
	return l, nil
}

// Path builds the request path asking for the given market keys.
func (l Layout) Path(keys []string) string {
	switch l.Format {
	case FormatTencent:
		prefixed := make([]string, len(keys))
		for i, k := range keys {
			prefixed[i] = "s_" + k
		}
		return "/q=" + strings.Join(prefixed, ",")
	default:
		return "/list=" + strings.Join(keys, ",")
	}
}

// MarketKey maps a bare ticker code to the key the feeds expect:
// 6xxxxx trades in Shanghai, 0xxxxx and 3xxxxx in Shenzhen. Anything else is
// returned unchanged.
func MarketKey(code string) string {
	code = strings.TrimSpace(code)
	switch {
	case strings.HasPrefix(code, "6"):
		return "sh" + code
	case strings.HasPrefix(code, "0"), strings.HasPrefix(code, "3"):
		return "sz" + code
	}
	return code
}

func stripMarket(key string) string {
	lower := strings.ToLower(key)
	if strings.HasPrefix(lower, "sh") || strings.HasPrefix(lower, "sz") {
		return key[2:]
	}
	return key
}
