package advisory

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
)

/* =================================================================================
							THREE-TIER CACHE
	Tier 1 (instant):    exact key match, short TTL, kills repeat-request latency.
	Tier 2 (contextual): fuzzy match, longer TTL, entries are adapted on hit
	                     with a confidence decay proportional to context drift.
	Tier 3 (fallback):   one entry per user, no TTL, overwritten by every
	                     successful fresh generation; used only when both upper
	                     tiers miss and the generator is unavailable.
=================================================================================*/

const (
	tier1TTL        = 3600 * time.Second
	tier2TTL        = 14400 * time.Second
	tier1MaxEntries = 1024
	tier2MaxEntries = 4096

	// adaptEnergyTolerance is the maximum energy distance tier 2 will bridge.
	adaptEnergyTolerance = 10

	// adaptDecayPerPoint reduces adapted-entry confidence per point of
	// energy drift, so a 10-point bridge costs 20% confidence.
	adaptDecayPerPoint = 0.02
)

// FallbackStore optionally persists tier-3 entries so they survive restarts.
type FallbackStore interface {
	SaveFallback(ctx context.Context, userID string, entry CacheEntry) error
	LoadFallback(ctx context.Context, userID string) (CacheEntry, bool, error)
}

// CacheManager owns all cache entry storage. TTL expiry on tiers 1 and 2 is
// handled lazily by the expirable LRU on lookup, and LRU eviction bounds the
// entry count. Safe for concurrent use; lookups and stores for different
// keys do not serialize against each other beyond the LRU's internal locking.
type CacheManager struct {
	tier1 *expirable.LRU[string, CacheEntry]
	tier2 *expirable.LRU[string, CacheEntry]

	mu       sync.RWMutex
	fallback map[string]CacheEntry

	store FallbackStore
}

// NewCacheManager builds the three tiers. store may be nil, in which case
// tier-3 entries are memory-only.
func NewCacheManager(store FallbackStore) *CacheManager {
	return &CacheManager{
		tier1:    expirable.NewLRU[string, CacheEntry](tier1MaxEntries, nil, tier1TTL),
		tier2:    expirable.NewLRU[string, CacheEntry](tier2MaxEntries, nil, tier2TTL),
		fallback: make(map[string]CacheEntry),
		store:    store,
	}
}

// Lookup checks tier 1 and tier 2 for an exact key match, in that order.
func (cm *CacheManager) Lookup(key string) (CacheEntry, CacheTier, bool) {
	if entry, ok := cm.tier1.Get(key); ok {
		return entry, TierInstant, true
	}
	if entry, ok := cm.tier2.Get(key); ok {
		return entry, TierContextual, true
	}
	return CacheEntry{}, "", false
}

// Store writes an entry into the given tier. Writes are whole-entry
// overwrites, never partial updates.
func (cm *CacheManager) Store(key string, entry CacheEntry, tier CacheTier) {
	entry.Key = key
	entry.Tier = tier
	switch tier {
	case TierInstant:
		cm.tier1.Add(key, entry)
	case TierContextual:
		cm.tier2.Add(key, entry)
	case TierFallback:
		cm.StoreFallback(context.Background(), entry.Fingerprint.UserID, entry)
	}
}

// FindAdaptable scans tier 2 for an entry with the same tags, mode, language
// and time-of-day bucket whose energy level is within the tolerance. On a hit
// the entry is adapted: confidence decays proportionally to the energy drift
// and the source is re-marked as cache. The stored entry is not mutated.
func (cm *CacheManager) FindAdaptable(fp RequestFingerprint) (CacheEntry, bool) {
	best := CacheEntry{}
	bestDrift := adaptEnergyTolerance + 1
	found := false

	for _, entry := range cm.tier2.Values() {
		if !entry.Fingerprint.SameShape(fp) {
			continue
		}
		drift := absInt(entry.Fingerprint.EnergyLevel - fp.EnergyLevel)
		if drift > adaptEnergyTolerance {
			continue
		}
		if !found || drift < bestDrift {
			best = entry
			bestDrift = drift
			found = true
		}
	}
	if !found {
		return CacheEntry{}, false
	}

	adapted := best
	adapted.Payload.Confidence *= 1 - adaptDecayPerPoint*float64(bestDrift)
	adapted.Payload.Source = SourceCache
	return adapted, true
}

// StoreFallback overwrites the user's single tier-3 entry. Tier-3 entries are
// never time-evicted.
func (cm *CacheManager) StoreFallback(ctx context.Context, userID string, entry CacheEntry) {
	entry.Tier = TierFallback
	cm.mu.Lock()
	cm.fallback[userID] = entry
	cm.mu.Unlock()

	if cm.store != nil {
		if err := cm.store.SaveFallback(ctx, userID, entry); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to persist fallback cache entry")
		}
	}
}

// LookupFallback returns the user's tier-3 entry, loading it from the
// persistent store on a memory miss.
func (cm *CacheManager) LookupFallback(ctx context.Context, userID string) (CacheEntry, bool) {
	cm.mu.RLock()
	entry, ok := cm.fallback[userID]
	cm.mu.RUnlock()
	if ok {
		return entry, true
	}

	if cm.store == nil {
		return CacheEntry{}, false
	}
	entry, ok, err := cm.store.LoadFallback(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to load fallback cache entry")
		return CacheEntry{}, false
	}
	if ok {
		cm.mu.Lock()
		cm.fallback[userID] = entry
		cm.mu.Unlock()
	}
	return entry, ok
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
