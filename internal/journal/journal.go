// Package journal coordinates the remote journal file, the local draft
// batch and the derived views built from them.
package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/TobiSchelling/stockdiary/internal/analysis"
	"github.com/TobiSchelling/stockdiary/internal/database"
	"github.com/TobiSchelling/stockdiary/internal/metrics"
	"github.com/TobiSchelling/stockdiary/internal/observation"
	"github.com/TobiSchelling/stockdiary/internal/quote"
	"github.com/TobiSchelling/stockdiary/internal/store"
)

// ErrNothingToSubmit is returned by Submit when there are no drafts.
var ErrNothingToSubmit = errors.New("no draft observations to submit")

// ErrNoQuoteFeed is returned by Quotes when no feed client is configured.
var ErrNoQuoteFeed = errors.New("no quote feed configured")

// DraftStore holds the local batch of unsubmitted observations.
type DraftStore interface {
	SaveDraft(o observation.Observation) error
	GetDrafts() ([]observation.Observation, error)
	GetDraft(id string) (*observation.Observation, error)
	DeleteDraft(id string) (bool, error)
	DeleteDrafts(ids []string) (int, error)
	ClearDrafts() error
	LastDate() (string, error)
	SetLastDate(date string) error
}

// QuoteFetcher fetches quote rows for ticker codes.
type QuoteFetcher interface {
	Fetch(ctx context.Context, codes []string) ([]quote.Row, error)
}

// Service owns the in-memory copy of the remote journal.
type Service struct {
	store  store.Store
	drafts DraftStore
	quotes QuoteFetcher
	window int
	log    zerolog.Logger

	mu   sync.Mutex
	held *store.Snapshot
}

// SubmitResult describes a successful submit.
type SubmitResult struct {
	Submitted int    `json:"submitted"`
	Total     int    `json:"total"`
	Revision  string `json:"revision"`
}

// Status summarizes the journal and the pending drafts.
type Status struct {
	Observations int    `json:"observations"`
	Dates        int    `json:"dates"`
	Revision     string `json:"revision"`
	Drafts       int    `json:"drafts"`
}

// New creates a journal service. quotes may be nil; window <= 0 uses the
// default analysis window.
func New(st store.Store, drafts DraftStore, quotes QuoteFetcher, window int, log zerolog.Logger) *Service {
	if window <= 0 {
		window = analysis.DefaultWindow
	}
	return &Service{
		store:  st,
		drafts: drafts,
		quotes: quotes,
		window: window,
		log:    log,
	}
}

// Current returns the held copy, reading the remote file on first use.
func (s *Service) Current(ctx context.Context) (*store.Snapshot, error) {
	s.mu.Lock()
	held := s.held
	s.mu.Unlock()
	if held != nil {
		return held, nil
	}
	return s.Refresh(ctx)
}

// Refresh re-reads the remote file. On failure the held copy is dropped and
// an empty snapshot is returned with the error.
func (s *Service) Refresh(ctx context.Context) (*store.Snapshot, error) {
	snap, err := s.store.Read(ctx)
	if err != nil {
		s.replace(nil)
		s.log.Error().Err(err).Msg("reading journal failed")
		return &store.Snapshot{Observations: []observation.Observation{}}, fmt.Errorf("reading journal: %w", err)
	}
	s.replace(snap)
	s.log.Debug().Int("observations", len(snap.Observations)).Str("revision", snap.Revision).Msg("journal loaded")
	return snap, nil
}

func (s *Service) replace(snap *store.Snapshot) {
	s.mu.Lock()
	s.held = snap
	s.mu.Unlock()
}

// Observations returns held observations matching term, newest first.
func (s *Service) Observations(ctx context.Context, term string) ([]observation.Observation, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return []observation.Observation{}, err
	}
	return observation.SortByDateDesc(observation.Search(snap.Observations, term)), nil
}

// Observation looks up one held observation by id.
func (s *Service) Observation(ctx context.Context, id string) (observation.Observation, bool, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return observation.Observation{}, false, err
	}
	o, ok := observation.FindByID(snap.Observations, id)
	return o, ok, nil
}

// AddDraft validates input and stores it as a new draft.
func (s *Service) AddDraft(ctx context.Context, in observation.Input) (observation.Observation, error) {
	return s.SaveDraft(ctx, "", in)
}

// SaveDraft validates input and stores it under id, creating a new draft
// when id is empty.
func (s *Service) SaveDraft(ctx context.Context, id string, in observation.Input) (observation.Observation, error) {
	o, err := observation.New(in, id)
	if err != nil {
		return observation.Observation{}, err
	}
	if err := s.drafts.SaveDraft(o); err != nil {
		return observation.Observation{}, err
	}
	if err := s.drafts.SetLastDate(o.Date); err != nil {
		s.log.Warn().Err(err).Msg("remembering last date failed")
	}
	s.log.Info().Str("uuid", o.ID).Str("ticker", o.TickerCode).Str("date", o.Date).Msg("draft saved")
	return o, nil
}

// Drafts returns the pending drafts in entry order.
func (s *Service) Drafts() ([]observation.Observation, error) {
	return s.drafts.GetDrafts()
}

// Draft returns one draft, or nil when it does not exist.
func (s *Service) Draft(id string) (*observation.Observation, error) {
	return s.drafts.GetDraft(id)
}

// RemoveDraft drops a draft. It reports whether one was removed.
func (s *Service) RemoveDraft(id string) (bool, error) {
	return s.drafts.DeleteDraft(id)
}

// ClearDrafts drops every draft.
func (s *Service) ClearDrafts() error {
	return s.drafts.ClearDrafts()
}

// LastDate returns the date to pre-fill the entry form with: the last one
// entered, or today.
func (s *Service) LastDate() string {
	d, err := s.drafts.LastDate()
	if err != nil {
		s.log.Warn().Err(err).Msg("reading last date failed")
	}
	if d == "" {
		return database.GetToday()
	}
	return d
}

// Submit merges the drafts into the remote file. The write is based on the
// revision just read; a concurrent change yields store.ErrConflict and the
// drafts are kept.
func (s *Service) Submit(ctx context.Context) (*SubmitResult, error) {
	drafts, err := s.drafts.GetDrafts()
	if err != nil {
		return nil, fmt.Errorf("loading drafts: %w", err)
	}
	if len(drafts) == 0 {
		return nil, ErrNothingToSubmit
	}

	snap, err := s.store.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	s.replace(snap)

	merged := observation.Merge(snap.Observations, drafts)
	revision, err := s.store.Write(ctx, merged, snap.Revision)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			s.log.Warn().Str("revision", snap.Revision).Msg("journal changed during submit")
			return nil, err
		}
		return nil, fmt.Errorf("writing journal: %w", err)
	}

	s.replace(&store.Snapshot{Observations: merged, Revision: revision})
	ids := make([]string, len(drafts))
	for i, d := range drafts {
		ids[i] = d.ID
	}
	if _, err := s.drafts.DeleteDrafts(ids); err != nil {
		s.log.Error().Err(err).Msg("removing submitted drafts failed")
	}
	metrics.DraftsSubmitted.Add(float64(len(drafts)))
	s.log.Info().Int("submitted", len(drafts)).Int("total", len(merged)).Str("revision", revision).Msg("drafts submitted")

	return &SubmitResult{Submitted: len(drafts), Total: len(merged), Revision: revision}, nil
}

// Analysis aggregates the held copy over the configured window.
func (s *Service) Analysis(ctx context.Context) (analysis.Result, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return analysis.AggregateWindow(nil, s.window), err
	}
	return analysis.AggregateWindow(snap.Observations, s.window), nil
}

// Quotes fetches live quotes for the tickers in the analysis window, highest
// change first.
func (s *Service) Quotes(ctx context.Context) ([]quote.Row, error) {
	if s.quotes == nil {
		return []quote.Row{}, ErrNoQuoteFeed
	}
	snap, err := s.Current(ctx)
	if err != nil {
		return []quote.Row{}, err
	}
	codes := analysis.WindowTickers(snap.Observations, s.window)
	rows, err := s.quotes.Fetch(ctx, codes)
	if err != nil {
		return []quote.Row{}, fmt.Errorf("fetching quotes: %w", err)
	}
	quote.SortByChange(rows)
	return rows, nil
}

// Status reports counts for the held copy and the draft batch.
func (s *Service) Status(ctx context.Context) (Status, error) {
	drafts, err := s.drafts.GetDrafts()
	if err != nil {
		return Status{}, err
	}
	snap, err := s.Current(ctx)
	if err != nil {
		return Status{Drafts: len(drafts)}, err
	}
	return Status{
		Observations: len(snap.Observations),
		Dates:        observation.DistinctDates(snap.Observations),
		Revision:     snap.Revision,
		Drafts:       len(drafts),
	}, nil
}
