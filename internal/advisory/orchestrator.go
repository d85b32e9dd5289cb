package advisory

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

/* =================================================================================
							ORCHESTRATOR
	The engine façade. Drives assemble -> resolve -> cache lookup ->
	[budget -> prompt -> generate -> validate] -> store, and guarantees a
	terminal AnalysisResult for every expected degraded condition. The only
	error it ever returns is a caller contract violation or the caller's own
	cancellation.

	Concurrent identical requests share one generation through per-key
	single-flight; a caller that cancels while waiting detaches immediately
	while the in-flight generation completes and populates the cache for
	the remaining waiters.
=================================================================================*/

const (
	// defaultGenerationTimeout bounds one external generator call.
	defaultGenerationTimeout = 3000 * time.Millisecond

	// defaultCostPerGenerationUSD is the ledger charge per fresh call.
	defaultCostPerGenerationUSD = 0.002
)

// TextGenerator is the pluggable LLM boundary. The orchestrator is
// generator-agnostic; all output parsing lives in ResponseValidator.
type TextGenerator interface {
	Generate(ctx context.Context, prompt Prompt) ([]byte, error)
}

// HistoryRecord is one archived analysis, consumed by PredictiveAnalytics.
type HistoryRecord struct {
	UserID    string          `json:"user_id"`
	Request   AnalysisRequest `json:"request"`
	Result    AnalysisResult  `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}

// HistoryStore archives terminal results. Optional; a nil store disables
// history and trend analytics.
type HistoryStore interface {
	SaveAnalysis(ctx context.Context, rec HistoryRecord) error
	ListAnalysesSince(ctx context.Context, userID string, since time.Time) ([]HistoryRecord, error)
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Assembler *ContextAssembler
	Resolver  *ConflictResolver
	Prompts   *PromptBuilder
	Cache     *CacheManager
	Validator *ResponseValidator
	Governor  *UsageGovernor
	Static    *StaticSynthesizer
	Generator TextGenerator

	// History is optional.
	History HistoryStore

	// GenerationTimeout defaults to 3000ms when zero.
	GenerationTimeout time.Duration

	// CostPerGenerationUSD defaults to the engine's flat estimate when zero.
	CostPerGenerationUSD float64
}

// Orchestrator owns the request lifecycle.
type Orchestrator struct {
	assembler *ContextAssembler
	resolver  *ConflictResolver
	prompts   *PromptBuilder
	cache     *CacheManager
	validator *ResponseValidator
	governor  *UsageGovernor
	static    *StaticSynthesizer
	generator TextGenerator
	history   HistoryStore

	genTimeout time.Duration
	genCostUSD float64
	flight     singleflight.Group
	now        func() time.Time
}

// NewOrchestrator assembles the engine from its components.
func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = defaultGenerationTimeout
	}
	if cfg.CostPerGenerationUSD <= 0 {
		cfg.CostPerGenerationUSD = defaultCostPerGenerationUSD
	}
	return &Orchestrator{
		assembler:  cfg.Assembler,
		resolver:   cfg.Resolver,
		prompts:    cfg.Prompts,
		cache:      cfg.Cache,
		validator:  cfg.Validator,
		governor:   cfg.Governor,
		static:     cfg.Static,
		generator:  cfg.Generator,
		history:    cfg.History,
		genTimeout: cfg.GenerationTimeout,
		genCostUSD: cfg.CostPerGenerationUSD,
		now:        time.Now,
	}
}

// Analyze runs one request through the full state machine.
func (o *Orchestrator) Analyze(ctx context.Context, input AnalyzeInput) (AnalysisResult, error) {
	// 1. Normalize. The only hard-error exit.
	req, err := o.assembler.Assemble(ctx, input)
	if err != nil {
		return AnalysisResult{}, err
	}

	// 2. Resolve the strategy; cheap, computed fresh per request.
	strategy := o.resolver.Resolve(req.ActiveTags, req.EnergyLevel)
	key := req.CacheKey()

	// 3. Exact cache check (tiers 1 and 2).
	if entry, tier, ok := o.cache.Lookup(key); ok {
		result := entry.Payload
		result.Source = SourceCache
		o.governor.RecordServed(req.UserID, req)
		log.Debug().Str("user_id", req.UserID).Str("tier", string(tier)).Msg("Served analysis from cache")
		return result, nil
	}

	// 4. Single-flight the generation path per cache key. The shared call
	// runs detached from this caller's cancellation so other waiters still
	// get a cached result if we bail out.
	ch := o.flight.DoChan(key, func() (interface{}, error) {
		return o.generate(context.WithoutCancel(ctx), req, strategy, key), nil
	})

	select {
	case <-ctx.Done():
		return AnalysisResult{}, ctx.Err()
	case res := <-ch:
		result := res.Val.(AnalysisResult)
		o.governor.RecordServed(req.UserID, req)
		return result, nil
	}
}

// Trends exposes the analytics consumer; see analytics.go.
func (o *Orchestrator) Trends(ctx context.Context, userID string) (TrendReport, error) {
	return NewPredictiveAnalytics(o.history).WeeklyTrends(ctx, userID)
}

/* =================================================================================
							GENERATION PATH
=================================================================================*/

// generate is the cache-miss path: budget check, prompt, external call,
// validation, store. Every exit produces a terminal result.
func (o *Orchestrator) generate(ctx context.Context, req AnalysisRequest, strategy ResolutionStrategy, key string) AnalysisResult {
	decision := o.governor.ShouldGenerateFresh(req.UserID, req)
	if !decision.Allowed {
		log.Info().Str("user_id", req.UserID).Str("reason", decision.Reason).Msg("Fresh generation denied, degrading to cache")
		return o.degrade(ctx, req, strategy)
	}

	prompt := o.prompts.Build(req, strategy)

	genCtx, cancel := context.WithTimeout(ctx, o.genTimeout)
	raw, err := o.generator.Generate(genCtx, prompt)
	cancel()
	if err != nil {
		// Upstream failure: recovered locally, never surfaced.
		log.Warn().Err(err).Str("user_id", req.UserID).Msg("Generator call failed, degrading to cache")
		return o.degrade(ctx, req, strategy)
	}

	result, ok := o.validator.Validate(raw)
	if !ok {
		log.Warn().Str("user_id", req.UserID).Int("raw_bytes", len(raw)).Msg("Generator response unusable after repair, degrading to cache")
		return o.degrade(ctx, req, strategy)
	}
	result.Source = SourceFresh
	result.GeneratedAt = o.now()

	entry := CacheEntry{
		Payload:     result,
		CreatedAt:   result.GeneratedAt,
		Fingerprint: req.Fingerprint(strategy.Mode),
	}
	o.cache.Store(key, entry, TierInstant)
	o.cache.Store(key, entry, TierContextual)
	o.cache.StoreFallback(ctx, req.UserID, entry)

	o.governor.RecordGeneration(req.UserID, o.genCostUSD)
	o.archive(req, result)
	return result
}

// degrade walks the fallback ladder: adapt a tier-2 neighbor, then the
// user's tier-3 entry, then static synthesis. Always returns a result.
func (o *Orchestrator) degrade(ctx context.Context, req AnalysisRequest, strategy ResolutionStrategy) AnalysisResult {
	fp := req.Fingerprint(strategy.Mode)

	if entry, ok := o.cache.FindAdaptable(fp); ok {
		log.Debug().Str("user_id", req.UserID).Msg("Adapted contextual cache entry")
		result := entry.Payload
		o.archive(req, result)
		return result
	}

	if entry, ok := o.cache.LookupFallback(ctx, req.UserID); ok {
		result := entry.Payload
		result.Source = SourceCache
		o.archive(req, result)
		return result
	}

	result := o.static.Synthesize(req, strategy)
	o.archive(req, result)
	return result
}

// archive persists the terminal result for trend analytics, best effort.
func (o *Orchestrator) archive(req AnalysisRequest, result AnalysisResult) {
	if o.history == nil {
		return
	}
	rec := HistoryRecord{
		UserID:    req.UserID,
		Request:   req,
		Result:    result,
		CreatedAt: o.now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.history.SaveAnalysis(ctx, rec); err != nil {
			log.Warn().Err(err).Str("user_id", rec.UserID).Msg("Failed to archive analysis result")
		}
	}()
}
