// Package cached wraps any memory.Store with a ristretto read-through
// cache for brand contexts. Reads of a brand context hit the cache;
// every mutation of a brand invalidates its entry so the inner store
// stays authoritative.
package cached

import (
	"context"
	"fmt"
	"log"

	"github.com/dgraph-io/ristretto"

	"github.com/domocarroll/subfracture-go/memory"
)

// Store caches GetBrandContext results in front of an inner store. All
// other operations pass through, invalidating the cached brand on any
// write. Cached contexts are cloned on every hit so callers cannot mutate
// the cached copy.
type Store struct {
	memory.Store

	cache *ristretto.Cache
}

// contextCost approximates one cached brand context for ristretto's cost
// accounting. Contexts vary in size; a flat cost keeps the hot-brand
// working set bounded by count rather than bytes.
const contextCost = 1

// New wraps the inner store with a brand context cache.
func New(inner memory.Store) (*Store, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 10,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Store{Store: inner, cache: cache}, nil
}

// Shutdown closes the cache and shuts down the inner store.
func (s *Store) Shutdown(ctx context.Context) error {
	s.cache.Close()
	return s.Store.Shutdown(ctx)
}

// GetBrandContext serves from cache when possible.
func (s *Store) GetBrandContext(ctx context.Context, brandID string) (*memory.BrandContext, error) {
	if v, ok := s.cache.Get(brandID); ok {
		if bc, ok := v.(*memory.BrandContext); ok {
			return bc.Clone(), nil
		}
	}

	bc, err := s.Store.GetBrandContext(ctx, brandID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(brandID, bc.Clone(), contextCost)
	return bc, nil
}

func (s *Store) CreateBrandContext(ctx context.Context, brandID, brandName string, initial memory.InitialContext) (*memory.BrandContext, error) {
	bc, err := s.Store.CreateBrandContext(ctx, brandID, brandName, initial)
	if err != nil {
		return nil, err
	}
	s.cache.Del(brandID)
	return bc, nil
}

func (s *Store) UpdateBrandContext(ctx context.Context, brandID string, update memory.ContextUpdate) (*memory.BrandContext, error) {
	bc, err := s.Store.UpdateBrandContext(ctx, brandID, update)
	if err != nil {
		return nil, err
	}
	s.cache.Del(brandID)
	return bc, nil
}

func (s *Store) DeleteBrandContext(ctx context.Context, brandID string) error {
	if err := s.Store.DeleteBrandContext(ctx, brandID); err != nil {
		return err
	}
	s.cache.Del(brandID)
	log.Printf("[CACHED] Brand invalidated: brand=%s", brandID)
	return nil
}

func (s *Store) StoreInsight(ctx context.Context, brandID string, insight *memory.Insight) (string, error) {
	id, err := s.Store.StoreInsight(ctx, brandID, insight)
	if err != nil {
		return "", err
	}
	s.cache.Del(brandID)
	return id, nil
}

func (s *Store) UpdateInsight(ctx context.Context, brandID string, req memory.UpdateRequest) (*memory.Insight, error) {
	in, err := s.Store.UpdateInsight(ctx, brandID, req)
	if err != nil {
		return nil, err
	}
	s.cache.Del(brandID)
	return in, nil
}

func (s *Store) DeleteInsight(ctx context.Context, brandID, insightID string) error {
	if err := s.Store.DeleteInsight(ctx, brandID, insightID); err != nil {
		return err
	}
	s.cache.Del(brandID)
	return nil
}

func (s *Store) StoreInteraction(ctx context.Context, brandID string, interaction *memory.Interaction) (string, error) {
	id, err := s.Store.StoreInteraction(ctx, brandID, interaction)
	if err != nil {
		return "", err
	}
	s.cache.Del(brandID)
	return id, nil
}

func (s *Store) StoreStrategicMemory(ctx context.Context, brandID string, m *memory.StrategicMemory) (string, error) {
	id, err := s.Store.StoreStrategicMemory(ctx, brandID, m)
	if err != nil {
		return "", err
	}
	s.cache.Del(brandID)
	return id, nil
}

func (s *Store) StoreCreativeMemory(ctx context.Context, brandID string, m *memory.CreativeMemory) (string, error) {
	id, err := s.Store.StoreCreativeMemory(ctx, brandID, m)
	if err != nil {
		return "", err
	}
	s.cache.Del(brandID)
	return id, nil
}

func (s *Store) CleanupOldMemories(ctx context.Context, brandID string, retentionDays int) (int, error) {
	removed, err := s.Store.CleanupOldMemories(ctx, brandID, retentionDays)
	if err != nil {
		return 0, err
	}
	s.cache.Del(brandID)
	return removed, nil
}

func (s *Store) RestoreBrandMemories(ctx context.Context, brandID, backupID string) error {
	if err := s.Store.RestoreBrandMemories(ctx, brandID, backupID); err != nil {
		return err
	}
	s.cache.Del(brandID)
	return nil
}

// Wait blocks until pending cache writes are applied. Intended for tests.
func (s *Store) Wait() {
	s.cache.Wait()
}
