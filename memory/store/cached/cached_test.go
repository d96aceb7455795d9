package cached_test

import (
	"context"
	"errors"
	"testing"

	"github.com/domocarroll/subfracture-go/memory"
	"github.com/domocarroll/subfracture-go/memory/store/cached"
	"github.com/domocarroll/subfracture-go/memory/store/chromem"
)

func newTestStore(t *testing.T) *cached.Store {
	t.Helper()
	ctx := context.Background()

	store, err := cached.New(chromem.New())
	if err != nil {
		t.Fatalf("Failed to create cached store: %v", err)
	}
	if err := store.Initialize(ctx, nil); err != nil {
		t.Fatalf("Failed to initialize store: %v", err)
	}
	t.Cleanup(func() { store.Shutdown(ctx) })
	return store
}

func TestReadThrough(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.CreateBrandContext(ctx, "b1", "Cache Co", memory.InitialContext{}); err != nil {
		t.Fatalf("Failed to create brand: %v", err)
	}

	first, err := store.GetBrandContext(ctx, "b1")
	if err != nil {
		t.Fatalf("First read failed: %v", err)
	}
	store.Wait()

	second, err := store.GetBrandContext(ctx, "b1")
	if err != nil {
		t.Fatalf("Cached read failed: %v", err)
	}
	if second.BrandID != first.BrandID || second.BrandName != first.BrandName {
		t.Fatalf("Cached read differs: %+v vs %+v", second, first)
	}

	// Mutating a returned context must not poison the cache.
	second.BrandName = "mutated"
	store.Wait()
	third, _ := store.GetBrandContext(ctx, "b1")
	if third.BrandName != "Cache Co" {
		t.Fatalf("Cache served mutated copy: %q", third.BrandName)
	}
}

func TestWriteInvalidates(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.CreateBrandContext(ctx, "b1", "Cache Co", memory.InitialContext{}); err != nil {
		t.Fatalf("Failed to create brand: %v", err)
	}

	// Prime the cache.
	if _, err := store.GetBrandContext(ctx, "b1"); err != nil {
		t.Fatalf("Prime read failed: %v", err)
	}
	store.Wait()

	_, err := store.StoreInsight(ctx, "b1", &memory.Insight{
		InsightID:       "i1",
		Type:            memory.TypeStrategic,
		Content:         "New insight",
		ConfidenceScore: 0.7,
		Source:          "test",
	})
	if err != nil {
		t.Fatalf("Failed to store insight: %v", err)
	}
	store.Wait()

	bc, err := store.GetBrandContext(ctx, "b1")
	if err != nil {
		t.Fatalf("Read after write failed: %v", err)
	}
	if bc.TotalInsights != 1 {
		t.Fatalf("Stale read: TotalInsights = %d, want 1", bc.TotalInsights)
	}
}

func TestDeleteInvalidates(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.CreateBrandContext(ctx, "b1", "Cache Co", memory.InitialContext{}); err != nil {
		t.Fatalf("Failed to create brand: %v", err)
	}
	if _, err := store.GetBrandContext(ctx, "b1"); err != nil {
		t.Fatalf("Prime read failed: %v", err)
	}
	store.Wait()

	if err := store.DeleteBrandContext(ctx, "b1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	store.Wait()

	if _, err := store.GetBrandContext(ctx, "b1"); !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got: %v", err)
	}
}

func TestPassThroughOperations(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.CreateBrandContext(ctx, "b1", "Cache Co", memory.InitialContext{}); err != nil {
		t.Fatalf("Failed to create brand: %v", err)
	}

	// Operations without overrides reach the inner store unchanged.
	health, err := store.HealthCheck(ctx)
	if err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
	if health.Backend != "chromem" {
		t.Fatalf("Backend = %q, want chromem", health.Backend)
	}

	if _, err := store.QueryInsights(ctx, "b1", memory.Query{}); err != nil {
		t.Fatalf("QueryInsights failed: %v", err)
	}
}
