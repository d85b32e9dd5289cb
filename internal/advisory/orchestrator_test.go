package advisory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"VitalSage_V0.1/internal/locale"
)

/* =================================================================================
							TEST DOUBLES
=================================================================================*/

type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	prompts []Prompt

	delay   time.Duration
	err     error
	payload []byte
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt Prompt) ([]byte, error) {
	g.mu.Lock()
	g.calls++
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.payload, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *fakeGenerator) lastPrompt() Prompt {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return Prompt{}
	}
	return g.prompts[len(g.prompts)-1]
}

type fakeHistory struct {
	mu      sync.Mutex
	records []HistoryRecord
	saved   chan struct{}
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{saved: make(chan struct{}, 64)}
}

func (h *fakeHistory) SaveAnalysis(_ context.Context, rec HistoryRecord) error {
	h.mu.Lock()
	h.records = append(h.records, rec)
	h.mu.Unlock()
	h.saved <- struct{}{}
	return nil
}

func (h *fakeHistory) ListAnalysesSince(_ context.Context, userID string, since time.Time) ([]HistoryRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []HistoryRecord
	for _, rec := range h.records {
		if rec.UserID == userID && !rec.CreatedAt.Before(since) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func newTestEngine(gen TextGenerator, history HistoryStore) (*Orchestrator, *UsageGovernor) {
	catalog := locale.NewCatalog()
	asm := NewContextAssembler(nil, nil)
	// Pin the clock so the time-of-day bucket is stable across a test.
	asm.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }

	governor := NewUsageGovernor()
	engine := NewOrchestrator(Config{
		Assembler: asm,
		Resolver:  NewConflictResolver(),
		Prompts:   NewPromptBuilder(catalog),
		Cache:     NewCacheManager(nil),
		Validator: NewResponseValidator(),
		Governor:  governor,
		Static:    NewStaticSynthesizer(catalog),
		Generator: gen,
		History:   history,
	})
	return engine, governor
}

func analyzeInput(energy int) AnalyzeInput {
	e := energy
	return AnalyzeInput{
		UserID:      "u1",
		EnergyLevel: &e,
		Preferences: PreferenceModel{ActiveTags: []FocusTag{TagBeauty, TagWork}},
		BiologicalContext: map[string]float64{
			"hrv":         54,
			"sleep_hours": 6.5,
		},
		EnvironmentalContext: map[string]float64{"uv_index": 7},
	}
}

/* =================================================================================
							SCENARIOS
=================================================================================*/

func TestAnalyze_LowEnergyForcesOverridePrompt(t *testing.T) {
	gen := &fakeGenerator{payload: []byte(wellFormedPayload)}
	engine, governor := newTestEngine(gen, nil)

	result, err := engine.Analyze(context.Background(), analyzeInput(15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Source != SourceFresh {
		t.Fatalf("expected fresh result, got %s", result.Source)
	}

	prompt := gen.lastPrompt()
	if prompt.Mode != ResolutionOverride {
		t.Fatalf("energy 15 must resolve to override mode, got %s", prompt.Mode)
	}
	if !strings.Contains(prompt.System, "Rest Guardian") {
		t.Fatal("override prompt must carry the rest persona")
	}
	if governor.Ledger("u1").RequestCount != 1 {
		t.Fatal("fresh generation must be charged to the ledger")
	}
}

func TestAnalyze_IdenticalRequestServedFromCache(t *testing.T) {
	gen := &fakeGenerator{payload: []byte(wellFormedPayload)}
	engine, governor := newTestEngine(gen, nil)

	first, err := engine.Analyze(context.Background(), analyzeInput(70))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := engine.Analyze(context.Background(), analyzeInput(70))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Source != SourceFresh || second.Source != SourceCache {
		t.Fatalf("expected fresh then cache, got %s then %s", first.Source, second.Source)
	}
	if gen.callCount() != 1 {
		t.Fatalf("expected one generator call, got %d", gen.callCount())
	}
	if governor.Ledger("u1").RequestCount != 1 {
		t.Fatal("cache hits must not consume budget")
	}
}

func TestAnalyze_GeneratorFailureDegradesToStatic(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("upstream 503")}
	engine, _ := newTestEngine(gen, nil)

	result, err := engine.Analyze(context.Background(), analyzeInput(70))
	if err != nil {
		t.Fatalf("generator failure must never surface as an error, got %v", err)
	}
	if result.Source != SourceStaticFallback {
		t.Fatalf("expected static fallback, got %s", result.Source)
	}
	if result.Confidence > 0.5 {
		t.Fatalf("static fallback confidence must not exceed 0.5, got %f", result.Confidence)
	}
	if len(result.TagInsights) == 0 {
		t.Fatal("static fallback must still carry advice")
	}
}

func TestAnalyze_UnusableResponseDegradesToStatic(t *testing.T) {
	gen := &fakeGenerator{payload: []byte("I'm sorry, I can't help with that.")}
	engine, _ := newTestEngine(gen, nil)

	result, err := engine.Analyze(context.Background(), analyzeInput(70))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Source != SourceStaticFallback {
		t.Fatalf("expected static fallback, got %s", result.Source)
	}
}

func TestAnalyze_BudgetDenialAdaptsContextualEntry(t *testing.T) {
	gen := &fakeGenerator{payload: []byte(wellFormedPayload)}
	engine, governor := newTestEngine(gen, nil)
	governor.maxPerDay = 1

	first, err := engine.Analyze(context.Background(), analyzeInput(80))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Slightly different energy: new cache key, but the budget is spent so
	// the tier-2 neighbor gets adapted instead.
	second, err := engine.Analyze(context.Background(), analyzeInput(75))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Source != SourceCache {
		t.Fatalf("expected adapted cache result, got %s", second.Source)
	}
	if second.Confidence >= first.Confidence {
		t.Fatalf("adapted confidence %f must sit below the original %f", second.Confidence, first.Confidence)
	}
	if gen.callCount() != 1 {
		t.Fatalf("denied request must not reach the generator, got %d calls", gen.callCount())
	}
}

func TestAnalyze_BudgetDenialFallsBackToUserEntry(t *testing.T) {
	gen := &fakeGenerator{payload: []byte(wellFormedPayload)}
	engine, governor := newTestEngine(gen, nil)
	governor.maxPerDay = 1

	if _, err := engine.Analyze(context.Background(), analyzeInput(80)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Different tag set: no tier-2 neighbor has this shape, so the user's
	// tier-3 entry is the last cached resort.
	input := analyzeInput(80)
	input.Preferences.ActiveTags = []FocusTag{TagChill}
	result, err := engine.Analyze(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Source != SourceCache {
		t.Fatalf("expected tier-3 cache result, got %s", result.Source)
	}
	if gen.callCount() != 1 {
		t.Fatalf("expected one generator call, got %d", gen.callCount())
	}
}

func TestAnalyze_ConcurrentIdenticalRequestsShareOneGeneration(t *testing.T) {
	gen := &fakeGenerator{payload: []byte(wellFormedPayload), delay: 100 * time.Millisecond}
	engine, _ := newTestEngine(gen, nil)

	const waiters = 8
	var wg sync.WaitGroup
	results := make([]AnalysisResult, waiters)
	errs := make([]error, waiters)

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = engine.Analyze(context.Background(), analyzeInput(70))
		}(i)
	}
	wg.Wait()

	for i := 0; i < waiters; i++ {
		if errs[i] != nil {
			t.Fatalf("waiter %d failed: %v", i, errs[i])
		}
		if results[i].Source != SourceFresh && results[i].Source != SourceCache {
			t.Fatalf("waiter %d got unexpected source %s", i, results[i].Source)
		}
	}
	if gen.callCount() != 1 {
		t.Fatalf("identical concurrent requests must share one generation, got %d", gen.callCount())
	}
}

func TestAnalyze_CancelledCallerDetachesWhileFlightCompletes(t *testing.T) {
	gen := &fakeGenerator{payload: []byte(wellFormedPayload), delay: 150 * time.Millisecond}
	engine, _ := newTestEngine(gen, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := engine.Analyze(ctx, analyzeInput(70))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("cancelled caller must get its own context error, got %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("cancelled caller must detach promptly, not wait for the flight")
	}

	// A second caller joins the still-running flight and gets the result.
	joined, err := engine.Analyze(context.Background(), analyzeInput(70))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if joined.Source != SourceFresh {
		t.Fatalf("joining waiter should receive the fresh result, got %s", joined.Source)
	}

	// By now the flight has populated the cache.
	cached, err := engine.Analyze(context.Background(), analyzeInput(70))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cached.Source != SourceCache {
		t.Fatalf("expected cache hit after the flight completed, got %s", cached.Source)
	}
	if gen.callCount() != 1 {
		t.Fatalf("cancellation must not duplicate the generation, got %d calls", gen.callCount())
	}
}

func TestAnalyze_InvalidRequestIsTheOnlyHardError(t *testing.T) {
	gen := &fakeGenerator{payload: []byte(wellFormedPayload)}
	engine, _ := newTestEngine(gen, nil)

	input := AnalyzeInput{
		UserID:      "u1",
		Preferences: PreferenceModel{ActiveTags: []FocusTag{TagWork}},
	}
	_, err := engine.Analyze(context.Background(), input)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if gen.callCount() != 0 {
		t.Fatal("invalid requests must never reach the generator")
	}
}

func TestAnalyze_ArchivesTerminalResults(t *testing.T) {
	gen := &fakeGenerator{payload: []byte(wellFormedPayload)}
	history := newFakeHistory()
	engine, _ := newTestEngine(gen, history)

	if _, err := engine.Analyze(context.Background(), analyzeInput(70)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-history.saved:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the result to be archived")
	}

	history.mu.Lock()
	defer history.mu.Unlock()
	if len(history.records) != 1 {
		t.Fatalf("expected one archived record, got %d", len(history.records))
	}
	rec := history.records[0]
	if rec.UserID != "u1" || rec.Result.Source != SourceFresh {
		t.Fatalf("unexpected archived record: %+v", rec)
	}
	if rec.Request.EnergyLevel != 70 {
		t.Fatalf("archived request must carry the normalized energy, got %d", rec.Request.EnergyLevel)
	}
}
