package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/TobiSchelling/stockdiary/internal/database"
	"github.com/TobiSchelling/stockdiary/internal/observation"
	"github.com/TobiSchelling/stockdiary/internal/quote"
	"github.com/TobiSchelling/stockdiary/internal/store"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func input(date, code string) observation.Input {
	return observation.Input{
		Date: date, TickerCode: code, TickerName: "Name " + code, Price: "10.5",
		Industry: []string{"银行"}, Concept: []string{"破净"}, Forecast: "long",
	}
}

func existing(id, date, code string) observation.Observation {
	return observation.Observation{
		ID: id, Date: date, TickerCode: code, TickerName: "Old " + code, Price: 9,
		IndustryTags: []string{"银行"}, ConceptTags: []string{"破净"}, Forecast: observation.ForecastNone,
	}
}

// failingStore fails every call.
type failingStore struct{}

func (failingStore) Read(context.Context) (*store.Snapshot, error) {
	return nil, errors.New("network down")
}

func (failingStore) Write(context.Context, []observation.Observation, string) (string, error) {
	return "", errors.New("network down")
}

// racingStore lets another writer in between each read and write.
type racingStore struct {
	*store.Memory
}

func (r racingStore) Write(ctx context.Context, obs []observation.Observation, revision string) (string, error) {
	snap, _ := r.Memory.Read(ctx)
	other := append(snap.Observations, existing("other", "2024-02-01", "000002"))
	if _, err := r.Memory.Write(ctx, other, snap.Revision); err != nil {
		return "", err
	}
	return r.Memory.Write(ctx, obs, revision)
}

// lateDraftStore saves a draft through svc while the write is in flight.
type lateDraftStore struct {
	*store.Memory
	svc *Service
}

func (l *lateDraftStore) Write(ctx context.Context, obs []observation.Observation, revision string) (string, error) {
	if _, err := l.svc.AddDraft(ctx, input("2024-01-04", "300750")); err != nil {
		return "", err
	}
	return l.Memory.Write(ctx, obs, revision)
}

type fakeQuotes struct {
	codes []string
	rows  []quote.Row
	err   error
}

func (f *fakeQuotes) Fetch(ctx context.Context, codes []string) ([]quote.Row, error) {
	f.codes = codes
	return f.rows, f.err
}

func TestAddDraftValidates(t *testing.T) {
	svc := New(store.NewMemory(), openTestDB(t), nil, 0, zerolog.Nop())

	in := input("2024-01-02", "600000")
	in.Industry = nil
	if _, err := svc.AddDraft(context.Background(), in); !errors.Is(err, observation.ErrMissingFields) {
		t.Errorf("expected ErrMissingFields, got %v", err)
	}
	drafts, _ := svc.Drafts()
	if len(drafts) != 0 {
		t.Errorf("expected no drafts, got %d", len(drafts))
	}
}

func TestAddDraftRemembersDate(t *testing.T) {
	svc := New(store.NewMemory(), openTestDB(t), nil, 0, zerolog.Nop())

	if d := svc.LastDate(); d != database.GetToday() {
		t.Errorf("expected today before any entry, got %q", d)
	}
	o, err := svc.AddDraft(context.Background(), input("2024-01-02", "600000"))
	if err != nil {
		t.Fatalf("AddDraft: %v", err)
	}
	if o.ID == "" {
		t.Error("expected generated id")
	}
	if d := svc.LastDate(); d != "2024-01-02" {
		t.Errorf("expected last date 2024-01-02, got %q", d)
	}
}

func TestSaveDraftKeepsIdentity(t *testing.T) {
	svc := New(store.NewMemory(), openTestDB(t), nil, 0, zerolog.Nop())
	ctx := context.Background()

	o, _ := svc.AddDraft(ctx, input("2024-01-02", "600000"))
	edit := input("2024-01-02", "600000")
	edit.Price = "11"
	updated, err := svc.SaveDraft(ctx, o.ID, edit)
	if err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if updated.ID != o.ID {
		t.Errorf("expected id %s kept, got %s", o.ID, updated.ID)
	}
	drafts, _ := svc.Drafts()
	if len(drafts) != 1 || drafts[0].Price != 11 {
		t.Errorf("expected single updated draft, got %+v", drafts)
	}
}

func TestSubmitNothing(t *testing.T) {
	svc := New(store.NewMemory(), openTestDB(t), nil, 0, zerolog.Nop())
	if _, err := svc.Submit(context.Background()); !errors.Is(err, ErrNothingToSubmit) {
		t.Errorf("expected ErrNothingToSubmit, got %v", err)
	}
}

func TestSubmitMergesAndClears(t *testing.T) {
	mem := store.NewMemory(
		existing("a", "2024-01-01", "600000"),
		existing("b", "2024-01-02", "600000"),
	)
	svc := New(mem, openTestDB(t), nil, 0, zerolog.Nop())
	ctx := context.Background()

	svc.AddDraft(ctx, input("2024-01-02", "600000"))
	svc.AddDraft(ctx, input("2024-01-03", "000001"))

	res, err := svc.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Submitted != 2 || res.Total != 3 {
		t.Errorf("expected 2 submitted of 3 total, got %+v", res)
	}
	if res.Revision != mem.Revision() {
		t.Errorf("expected revision %s, got %s", mem.Revision(), res.Revision)
	}

	drafts, _ := svc.Drafts()
	if len(drafts) != 0 {
		t.Errorf("expected drafts cleared, got %d", len(drafts))
	}

	snap, _ := mem.Read(ctx)
	for _, o := range snap.Observations {
		if o.ID == "b" {
			t.Error("expected same-key observation to be replaced")
		}
	}

	held, _ := svc.Current(ctx)
	if held.Revision != res.Revision || len(held.Observations) != 3 {
		t.Errorf("expected held copy replaced, got %+v", held)
	}
}

func TestSubmitKeepsDraftAddedDuringWrite(t *testing.T) {
	st := &lateDraftStore{Memory: store.NewMemory()}
	svc := New(st, openTestDB(t), nil, 0, zerolog.Nop())
	st.svc = svc
	ctx := context.Background()

	svc.AddDraft(ctx, input("2024-01-03", "000001"))
	res, err := svc.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Submitted != 1 {
		t.Errorf("expected 1 submitted, got %d", res.Submitted)
	}

	drafts, _ := svc.Drafts()
	if len(drafts) != 1 || drafts[0].TickerCode != "300750" {
		t.Errorf("expected the late draft kept, got %+v", drafts)
	}
}

func TestObservationByID(t *testing.T) {
	svc := New(store.NewMemory(existing("a", "2024-01-01", "600000")), openTestDB(t), nil, 0, zerolog.Nop())
	ctx := context.Background()

	o, ok, err := svc.Observation(ctx, "a")
	if err != nil || !ok || o.TickerCode != "600000" {
		t.Errorf("expected observation a, got %+v %v %v", o, ok, err)
	}
	if _, ok, _ := svc.Observation(ctx, "zzz"); ok {
		t.Error("expected unknown id to be missing")
	}
}

func TestSubmitConflictKeepsDrafts(t *testing.T) {
	mem := store.NewMemory(existing("a", "2024-01-01", "600000"))
	svc := New(racingStore{mem}, openTestDB(t), nil, 0, zerolog.Nop())
	ctx := context.Background()

	svc.AddDraft(ctx, input("2024-01-03", "000001"))
	_, err := svc.Submit(ctx)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	drafts, _ := svc.Drafts()
	if len(drafts) != 1 {
		t.Errorf("expected drafts kept, got %d", len(drafts))
	}
	snap, _ := mem.Read(ctx)
	if len(snap.Observations) != 2 {
		t.Errorf("expected only the other writer's change, got %d observations", len(snap.Observations))
	}
}

func TestSubmitWithoutToken(t *testing.T) {
	svc := New(tokenlessStore{store.NewMemory()}, openTestDB(t), nil, 0, zerolog.Nop())
	ctx := context.Background()
	svc.AddDraft(ctx, input("2024-01-03", "000001"))

	if _, err := svc.Submit(ctx); !errors.Is(err, store.ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
}

type tokenlessStore struct {
	*store.Memory
}

func (tokenlessStore) Write(context.Context, []observation.Observation, string) (string, error) {
	return "", store.ErrNoToken
}

func TestRefreshFailureClearsHeldCopy(t *testing.T) {
	svc := New(store.NewMemory(existing("a", "2024-01-01", "600000")), openTestDB(t), nil, 0, zerolog.Nop())
	ctx := context.Background()
	if _, err := svc.Current(ctx); err != nil {
		t.Fatalf("Current: %v", err)
	}

	svc.store = failingStore{}
	snap, err := svc.Refresh(ctx)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(snap.Observations) != 0 {
		t.Errorf("expected empty snapshot, got %d", len(snap.Observations))
	}
	if _, err := svc.Current(ctx); err == nil {
		t.Error("expected held copy cleared so Current re-reads")
	}
}

func TestObservationsSearchNewestFirst(t *testing.T) {
	mem := store.NewMemory(
		existing("a", "2024-01-01", "600000"),
		existing("b", "2024-01-03", "600000"),
		existing("c", "2024-01-02", "000001"),
	)
	svc := New(mem, openTestDB(t), nil, 0, zerolog.Nop())

	got, err := svc.Observations(context.Background(), "6000")
	if err != nil {
		t.Fatalf("Observations: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Errorf("unexpected result %+v", got)
	}
}

func TestAnalysisUsesWindow(t *testing.T) {
	mem := store.NewMemory(
		existing("a", "2024-01-01", "600000"),
		existing("b", "2024-01-02", "600000"),
		existing("c", "2024-01-03", "600000"),
	)
	svc := New(mem, openTestDB(t), nil, 2, zerolog.Nop())

	r, err := svc.Analysis(context.Background())
	if err != nil {
		t.Fatalf("Analysis: %v", err)
	}
	if len(r.Window) != 2 || len(r.PerTicker) != 1 || r.PerTicker[0].Count != 2 {
		t.Errorf("unexpected analysis %+v", r)
	}
}

func TestQuotesForWindowTickers(t *testing.T) {
	mem := store.NewMemory(
		existing("a", "2024-01-01", "600000"),
		existing("b", "2024-01-02", "000001"),
	)
	l, _ := quote.LayoutFor(quote.FormatTencent)
	fq := &fakeQuotes{rows: l.Decode(
		`v_s_sh600000="1~A~600000~1~0~-1";` + "\n" + `v_s_sz000001="51~B~000001~1~0~3";`)}
	svc := New(mem, openTestDB(t), fq, 0, zerolog.Nop())

	rows, err := svc.Quotes(context.Background())
	if err != nil {
		t.Fatalf("Quotes: %v", err)
	}
	if len(fq.codes) != 2 {
		t.Errorf("expected 2 codes requested, got %v", fq.codes)
	}
	if len(rows) != 2 || rows[0].Code != "000001" {
		t.Errorf("expected rows sorted by change, got %+v", rows)
	}
}

func TestQuotesFeedFailure(t *testing.T) {
	svc := New(store.NewMemory(existing("a", "2024-01-01", "600000")), openTestDB(t),
		&fakeQuotes{err: errors.New("timeout")}, 0, zerolog.Nop())
	rows, err := svc.Quotes(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("expected empty board, got %v", rows)
	}
}

func TestQuotesWithoutFeed(t *testing.T) {
	svc := New(store.NewMemory(), openTestDB(t), nil, 0, zerolog.Nop())
	if _, err := svc.Quotes(context.Background()); !errors.Is(err, ErrNoQuoteFeed) {
		t.Errorf("expected ErrNoQuoteFeed, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	mem := store.NewMemory(existing("a", "2024-01-01", "600000"), existing("b", "2024-01-01", "000001"))
	svc := New(mem, openTestDB(t), nil, 0, zerolog.Nop())
	svc.AddDraft(context.Background(), input("2024-01-03", "000001"))

	st, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Observations != 2 || st.Dates != 1 || st.Drafts != 1 || st.Revision == "" {
		t.Errorf("unexpected status %+v", st)
	}
}
