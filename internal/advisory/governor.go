package advisory

import (
	"math"
	"sync"
	"time"
)

/* =================================================================================
							USAGE GOVERNOR
	Per-user daily budget enforcement. The governor exclusively owns the
	usage ledger; the day boundary is UTC. Locking is per user so in-flight
	requests for different users never contend.
=================================================================================*/

const (
	// defaultMaxFreshPerDay caps fresh generations per user per UTC day.
	defaultMaxFreshPerDay = 5

	// sameContextReuseWindow is how long a near-identical request must
	// reuse cache instead of triggering a new generation.
	sameContextReuseWindow = 3600 * time.Second

	// meaningfulChangeRatio is the relative delta in any tracked metric
	// that counts as a real context change.
	meaningfulChangeRatio = 0.10
)

// GenerationDecision explains why fresh generation was allowed or denied.
type GenerationDecision struct {
	Allowed bool
	Reason  string
}

// UsageLedger tracks one user's consumption for the current UTC day.
type UsageLedger struct {
	Day                   string    `json:"day"`
	RequestCount          int       `json:"request_count"`
	EstimatedCostUSD      float64   `json:"estimated_cost_usd"`
	LastFreshGenerationAt time.Time `json:"last_fresh_generation_at"`
}

type userLedger struct {
	mu         sync.Mutex
	ledger     UsageLedger
	lastServed *AnalysisRequest
	servedAt   time.Time
}

// UsageGovernor decides whether a request deserves a fresh generation.
type UsageGovernor struct {
	mu        sync.RWMutex
	users     map[string]*userLedger
	maxPerDay int
	now       func() time.Time
}

// NewUsageGovernor returns a governor with the default daily budget.
func NewUsageGovernor() *UsageGovernor {
	return &UsageGovernor{
		users:     make(map[string]*userLedger),
		maxPerDay: defaultMaxFreshPerDay,
		now:       time.Now,
	}
}

func (ug *UsageGovernor) user(userID string) *userLedger {
	ug.mu.RLock()
	ul, ok := ug.users[userID]
	ug.mu.RUnlock()
	if ok {
		return ul
	}
	ug.mu.Lock()
	defer ug.mu.Unlock()
	if ul, ok = ug.users[userID]; ok {
		return ul
	}
	ul = &userLedger{}
	ug.users[userID] = ul
	return ul
}

// rollover resets the ledger when the UTC day has changed. Caller holds ul.mu.
func (ug *UsageGovernor) rollover(ul *userLedger) {
	day := ug.now().UTC().Format("2006-01-02")
	if ul.ledger.Day != day {
		ul.ledger = UsageLedger{Day: day}
	}
}

// ShouldGenerateFresh applies the budget rules:
// deny when the daily budget is spent, regardless of how much the context
// changed; deny when the request differs from the last served one by less
// than the meaningful-change threshold within the reuse window.
func (ug *UsageGovernor) ShouldGenerateFresh(userID string, req AnalysisRequest) GenerationDecision {
	ul := ug.user(userID)
	ul.mu.Lock()
	defer ul.mu.Unlock()
	ug.rollover(ul)

	if ul.ledger.RequestCount >= ug.maxPerDay {
		return GenerationDecision{Allowed: false, Reason: "daily generation budget exhausted"}
	}

	if ul.lastServed != nil && ug.now().Sub(ul.servedAt) < sameContextReuseWindow {
		if !meaningfulChange(*ul.lastServed, req) {
			return GenerationDecision{Allowed: false, Reason: "context unchanged within reuse window"}
		}
	}

	return GenerationDecision{Allowed: true, Reason: "within budget"}
}

// RecordGeneration charges one fresh generation to the user's ledger.
func (ug *UsageGovernor) RecordGeneration(userID string, costUSD float64) {
	ul := ug.user(userID)
	ul.mu.Lock()
	defer ul.mu.Unlock()
	ug.rollover(ul)
	ul.ledger.RequestCount++
	ul.ledger.EstimatedCostUSD += costUSD
	ul.ledger.LastFreshGenerationAt = ug.now()
}

// RecordServed remembers the last request served to the user so the
// meaningful-change check has a baseline. Called on every terminal result.
func (ug *UsageGovernor) RecordServed(userID string, req AnalysisRequest) {
	ul := ug.user(userID)
	ul.mu.Lock()
	defer ul.mu.Unlock()
	ul.lastServed = &req
	ul.servedAt = ug.now()
}

// Ledger returns a snapshot of the user's current-day ledger.
func (ug *UsageGovernor) Ledger(userID string) UsageLedger {
	ul := ug.user(userID)
	ul.mu.Lock()
	defer ul.mu.Unlock()
	ug.rollover(ul)
	return ul.ledger
}

// meaningfulChange reports whether any tracked biometric or environmental
// field (or the energy level) moved by at least the threshold ratio, or the
// request shape itself changed.
func meaningfulChange(prev, next AnalysisRequest) bool {
	if prev.TimeOfDay != next.TimeOfDay || prev.Language != next.Language {
		return true
	}
	if len(prev.ActiveTags) != len(next.ActiveTags) {
		return true
	}
	for i := range prev.ActiveTags {
		if prev.ActiveTags[i] != next.ActiveTags[i] {
			return true
		}
	}
	if relativeDelta(float64(prev.EnergyLevel), float64(next.EnergyLevel)) >= meaningfulChangeRatio {
		return true
	}
	if mapsDiffer(prev.BiologicalContext, next.BiologicalContext) {
		return true
	}
	return mapsDiffer(prev.EnvironmentalContext, next.EnvironmentalContext)
}

func mapsDiffer(prev, next map[string]float64) bool {
	for name, nv := range next {
		pv, ok := prev[name]
		if !ok {
			return true
		}
		if relativeDelta(pv, nv) >= meaningfulChangeRatio {
			return true
		}
	}
	for name := range prev {
		if _, ok := next[name]; !ok {
			return true
		}
	}
	return false
}

func relativeDelta(prev, next float64) float64 {
	diff := math.Abs(next - prev)
	base := math.Max(math.Abs(prev), 1e-9)
	return diff / base
}
