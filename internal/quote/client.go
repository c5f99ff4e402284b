package quote

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/TobiSchelling/stockdiary/internal/config"
	"github.com/TobiSchelling/stockdiary/internal/metrics"
)

// HTTPError is returned when the feed answers with a non-2xx status.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("quote feed returned HTTP %d", e.Status)
}

// Client fetches quote lines from one feed.
type Client struct {
	http   *resty.Client
	layout Layout
	log    zerolog.Logger
}

// NewClient creates a client for the configured feed. base_url and referer
// fall back to the feed's public defaults.
func NewClient(cfg config.Quotes, log zerolog.Logger) (*Client, error) {
	format, err := ParseFormat(cfg.Feed)
	if err != nil {
		return nil, err
	}
	layout, err := LayoutFor(format)
	if err != nil {
		return nil, err
	}

	baseURL := layout.BaseURL
	if cfg.BaseURL != "" {
		baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	referer := layout.Referer
	if cfg.Referer != "" {
		referer = cfg.Referer
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(cfg.Timeout())
	client.SetHeader("Referer", referer)

	return &Client{
		http:   client,
		layout: layout,
		log:    log.With().Str("feed", string(format)).Logger(),
	}, nil
}

// FetchRaw requests the given market keys and returns the body as UTF-8.
func (c *Client) FetchRaw(ctx context.Context, keys []string) (string, error) {
	if len(keys) == 0 {
		return "", nil
	}

	path := c.layout.Path(keys)
	c.log.Debug().Str("path", path).Msg("fetching quotes")

	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return "", fmt.Errorf("fetching quotes: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return "", &HTTPError{Status: resp.StatusCode(), Body: resp.String()}
	}

	body, err := simplifiedchinese.GBK.NewDecoder().Bytes(resp.Body())
	if err != nil {
		return "", fmt.Errorf("decoding quote response: %w", err)
	}
	return string(body), nil
}

// Fetch maps ticker codes to market keys, fetches and decodes them.
func (c *Client) Fetch(ctx context.Context, codes []string) ([]Row, error) {
	if len(codes) == 0 {
		return []Row{}, nil
	}
	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = MarketKey(code)
	}

	feed := string(c.layout.Format)
	raw, err := c.FetchRaw(ctx, keys)
	metrics.QuoteFetches.WithLabelValues(feed, metrics.Result(err)).Inc()
	if err != nil {
		c.log.Warn().Err(err).Int("keys", len(keys)).Msg("quote fetch failed")
		return nil, err
	}

	rows, skipped := c.layout.DecodeLines(raw)
	if skipped > 0 {
		metrics.QuoteLinesSkipped.WithLabelValues(feed).Add(float64(skipped))
		c.log.Debug().Int("skipped", skipped).Msg("skipped undecodable quote lines")
	}
	return rows, nil
}
