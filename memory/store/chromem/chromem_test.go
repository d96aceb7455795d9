package chromem_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/domocarroll/subfracture-go/memory"
	"github.com/domocarroll/subfracture-go/memory/embedder/mock"
	"github.com/domocarroll/subfracture-go/memory/store/chromem"
)

func newTestStore(t *testing.T, opts ...chromem.Option) *chromem.Store {
	t.Helper()
	ctx := context.Background()

	store := chromem.New(opts...)
	if err := store.Initialize(ctx, nil); err != nil {
		t.Fatalf("Failed to initialize store: %v", err)
	}
	t.Cleanup(func() { store.Shutdown(ctx) })
	return store
}

func newBrand(t *testing.T, store *chromem.Store, brandID string) {
	t.Helper()
	if _, err := store.CreateBrandContext(context.Background(), brandID, "Test Brand", memory.InitialContext{}); err != nil {
		t.Fatalf("Failed to create brand: %v", err)
	}
}

func storeInsight(t *testing.T, store *chromem.Store, brandID, id, content string) {
	t.Helper()
	_, err := store.StoreInsight(context.Background(), brandID, &memory.Insight{
		InsightID:       id,
		Type:            memory.TypeStrategic,
		Content:         content,
		ConfidenceScore: 0.8,
		Source:          "test",
	})
	if err != nil {
		t.Fatalf("Failed to store insight %s: %v", id, err)
	}
}

func TestStoreRequiresInitialization(t *testing.T) {
	ctx := context.Background()
	store := chromem.New()

	if _, err := store.GetBrandContext(ctx, "b1"); !errors.Is(err, memory.ErrNotInitialized) {
		t.Fatalf("Expected ErrNotInitialized, got: %v", err)
	}
	if _, err := store.CreateBrandContext(ctx, "b1", "X", memory.InitialContext{}); !errors.Is(err, memory.ErrNotInitialized) {
		t.Fatalf("Expected ErrNotInitialized, got: %v", err)
	}
}

func TestBrandContextLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.GetBrandContext(ctx, "b1"); !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound before create, got: %v", err)
	}

	newBrand(t, store, "b1")
	if _, err := store.CreateBrandContext(ctx, "b1", "Again", memory.InitialContext{}); !errors.Is(err, memory.ErrAlreadyExists) {
		t.Fatalf("Expected ErrAlreadyExists, got: %v", err)
	}

	name := "Renamed"
	updated, err := store.UpdateBrandContext(ctx, "b1", memory.ContextUpdate{BrandName: &name})
	if err != nil {
		t.Fatalf("Failed to update brand: %v", err)
	}
	if updated.BrandName != "Renamed" {
		t.Fatalf("BrandName = %q, want Renamed", updated.BrandName)
	}

	// An empty update changes nothing observable except LastUpdated.
	before, _ := store.GetBrandContext(ctx, "b1")
	after, err := store.UpdateBrandContext(ctx, "b1", memory.ContextUpdate{})
	if err != nil {
		t.Fatalf("Empty update failed: %v", err)
	}
	if after.BrandName != before.BrandName || after.TotalInsights != before.TotalInsights ||
		len(after.GravityHistory) != len(before.GravityHistory) {
		t.Fatal("Empty update mutated brand state")
	}

	if err := store.DeleteBrandContext(ctx, "b1"); err != nil {
		t.Fatalf("Failed to delete brand: %v", err)
	}
	if _, err := store.GetBrandContext(ctx, "b1"); !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got: %v", err)
	}
}

func TestReturnedContextIsIsolated(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	newBrand(t, store, "b1")
	storeInsight(t, store, "b1", "i1", "Original content")

	bc, _ := store.GetBrandContext(ctx, "b1")
	bc.Insights["i1"].Content = "mutated"
	bc.BrandName = "mutated"

	fresh, _ := store.GetBrandContext(ctx, "b1")
	if fresh.Insights["i1"].Content != "Original content" || fresh.BrandName != "Test Brand" {
		t.Fatal("Caller mutation leaked into authoritative state")
	}
}

func TestInsightCRUD(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	newBrand(t, store, "b1")

	storeInsight(t, store, "b1", "i1", "Positioning around human-centered design")

	got, err := store.GetInsight(ctx, "b1", "i1")
	if err != nil {
		t.Fatalf("Failed to get insight: %v", err)
	}
	if got.Content != "Positioning around human-centered design" {
		t.Fatalf("Content = %q", got.Content)
	}

	// Duplicate IDs are rejected.
	_, err = store.StoreInsight(ctx, "b1", &memory.Insight{
		InsightID: "i1", Type: memory.TypeStrategic, ConfidenceScore: 0.5, Source: "test",
	})
	if !errors.Is(err, memory.ErrAlreadyExists) {
		t.Fatalf("Expected ErrAlreadyExists, got: %v", err)
	}

	newContent := "Refined positioning statement"
	updated, err := store.UpdateInsight(ctx, "b1", memory.UpdateRequest{
		InsightID: "i1",
		Updates:   memory.InsightUpdate{Content: &newContent},
		UpdatedBy: "tester",
	})
	if err != nil {
		t.Fatalf("Failed to update insight: %v", err)
	}
	if updated.Content != newContent {
		t.Fatalf("Updated content = %q", updated.Content)
	}

	if err := store.DeleteInsight(ctx, "b1", "i1"); err != nil {
		t.Fatalf("Failed to delete insight: %v", err)
	}
	if _, err := store.GetInsight(ctx, "b1", "i1"); !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got: %v", err)
	}

	bc, _ := store.GetBrandContext(ctx, "b1")
	if bc.TotalInsights != 0 {
		t.Fatalf("TotalInsights after delete = %d, want 0", bc.TotalInsights)
	}
}

func TestUpdateInsightEmptyUpdateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, chromem.WithEmbedder(mock.New()))
	newBrand(t, store, "b1")
	storeInsight(t, store, "b1", "i1", "Premium positioning for the launch market")

	before, err := store.GetInsight(ctx, "b1", "i1")
	if err != nil {
		t.Fatalf("Failed to get insight: %v", err)
	}

	after, err := store.UpdateInsight(ctx, "b1", memory.UpdateRequest{InsightID: "i1"})
	if err != nil {
		t.Fatalf("Empty update failed: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("Empty update changed the insight:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestStrategicAndCreativeMemories(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	newBrand(t, store, "b1")

	strategicID, err := store.StoreStrategicMemory(ctx, "b1", &memory.StrategicMemory{
		PositioningStatements: []string{"Own the independent tier"},
		CompetitiveAdvantages: []string{"Human-led intelligence"},
		StrategicPriorities:   []string{"differentiation"},
	})
	if err != nil {
		t.Fatalf("Failed to store strategic memory: %v", err)
	}
	if !strings.HasPrefix(strategicID, "strategic_") {
		t.Fatalf("Strategic memory ID = %q, want strategic_ prefix", strategicID)
	}

	sm, err := store.GetStrategicMemory(ctx, "b1", strategicID)
	if err != nil {
		t.Fatalf("Failed to get strategic memory: %v", err)
	}
	if len(sm.PositioningStatements) != 1 || sm.StrategicPriorities[0] != "differentiation" {
		t.Fatalf("Strategic memory round trip = %+v", sm)
	}
	if sm.Timestamp.IsZero() {
		t.Fatal("Strategic memory timestamp should be backfilled")
	}

	creativeID, err := store.StoreCreativeMemory(ctx, "b1", &memory.CreativeMemory{
		PersonalityTraits:   []string{"bold", "irreverent"},
		CreativeTerritories: []string{"anti-corporate"},
		ResonanceScores:     map[string]float64{"anti-corporate": 0.8},
	})
	if err != nil {
		t.Fatalf("Failed to store creative memory: %v", err)
	}
	cm, err := store.GetCreativeMemory(ctx, "b1", creativeID)
	if err != nil {
		t.Fatalf("Failed to get creative memory: %v", err)
	}
	if len(cm.PersonalityTraits) != 2 || cm.ResonanceScores["anti-corporate"] != 0.8 {
		t.Fatalf("Creative memory round trip = %+v", cm)
	}

	if _, err := store.GetStrategicMemory(ctx, "b1", "strategic_missing"); !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for missing strategic memory, got: %v", err)
	}
	if _, err := store.GetCreativeMemory(ctx, "b1", "creative_missing"); !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for missing creative memory, got: %v", err)
	}
}

func TestRelatedMemoriesExcludesSeed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, chromem.WithEmbedder(mock.New()))
	newBrand(t, store, "b1")
	storeInsight(t, store, "b1", "i1", "Premium positioning against legacy incumbents")
	storeInsight(t, store, "b1", "i2", "Positioning the brand as the premium alternative")
	storeInsight(t, store, "b1", "i3", "Visual identity leans on bold typography")

	related, err := store.RelatedMemories(ctx, "b1", "i1", 5)
	if err != nil {
		t.Fatalf("RelatedMemories failed: %v", err)
	}
	if len(related) == 0 {
		t.Fatal("Expected at least one related insight")
	}
	for _, in := range related {
		if in.InsightID == "i1" {
			t.Fatal("Related results should not contain the seed insight")
		}
	}

	if _, err := store.RelatedMemories(ctx, "b1", "i_missing", 5); !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for missing seed, got: %v", err)
	}
}

func TestQueryInsightsFilters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	newBrand(t, store, "b1")

	for i, conf := range []float64{0.3, 0.6, 0.9} {
		_, err := store.StoreInsight(ctx, "b1", &memory.Insight{
			InsightID:       fmt.Sprintf("i%d", i),
			Type:            memory.TypeStrategic,
			Content:         fmt.Sprintf("Insight number %d", i),
			ConfidenceScore: conf,
			Source:          "test",
		})
		if err != nil {
			t.Fatalf("Failed to store insight %d: %v", i, err)
		}
	}

	results, err := store.QueryInsights(ctx, "b1", memory.Query{MinConfidence: 0.5})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Confidence-floor results = %d, want 2", len(results))
	}

	results, err = store.QueryInsights(ctx, "b1", memory.Query{Limit: 1})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Limited results = %d, want 1", len(results))
	}
}

func TestRecentInteractionsOrdering(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	newBrand(t, store, "b1")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		_, err := store.StoreInteraction(ctx, "b1", &memory.Interaction{
			InteractionID: fmt.Sprintf("w%d", i),
			SessionID:     fmt.Sprintf("s%d", i),
			Timestamp:     base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Failed to store interaction %d: %v", i, err)
		}
	}

	recent, err := store.RecentInteractions(ctx, "b1", 2)
	if err != nil {
		t.Fatalf("RecentInteractions failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent count = %d, want 2", len(recent))
	}
	if recent[0].InteractionID != "w2" || recent[1].InteractionID != "w1" {
		t.Fatalf("Ordering wrong: %s, %s", recent[0].InteractionID, recent[1].InteractionID)
	}
}

func TestSemanticSearchDegradesWithoutEmbedder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t) // no embedder
	newBrand(t, store, "b1")
	storeInsight(t, store, "b1", "i1", "Premium positioning")

	results, err := store.SemanticSearch(ctx, "b1", "positioning", nil, 5)
	if err != nil {
		t.Fatalf("Degraded search should not error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Degraded search results = %d, want 0", len(results))
	}
}

func TestSemanticSearchWithEmbedder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, chromem.WithEmbedder(mock.New()))
	newBrand(t, store, "b1")
	storeInsight(t, store, "b1", "i1", "Premium positioning for founders")
	storeInsight(t, store, "b1", "i2", "Creative direction with bold typography")

	results, err := store.SemanticSearch(ctx, "b1", "positioning", nil, 5)
	if err != nil {
		t.Fatalf("Semantic search failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Expected at least one semantic hit")
	}
	for _, r := range results {
		if r.InsightID == "" {
			t.Fatalf("Hit missing insight ID: %+v", r)
		}
	}

	// Requesting more results than documents must not error.
	results, err = store.SemanticSearch(ctx, "b1", "positioning", nil, 50)
	if err != nil {
		t.Fatalf("Over-limit search failed: %v", err)
	}
	if len(results) > 2 {
		t.Fatalf("Got %d hits from 2 documents", len(results))
	}
}

func TestCleanupOldMemories(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, chromem.WithEmbedder(mock.New()))
	newBrand(t, store, "b1")

	old := &memory.Insight{
		InsightID:       "old",
		Type:            memory.TypeStrategic,
		Content:         "Stale insight",
		ConfidenceScore: 0.5,
		Source:          "test",
		Timestamp:       time.Now().AddDate(0, 0, -120),
	}
	if _, err := store.StoreInsight(ctx, "b1", old); err != nil {
		t.Fatalf("Failed to store old insight: %v", err)
	}
	storeInsight(t, store, "b1", "fresh", "Current insight")

	_, err := store.StoreInteraction(ctx, "b1", &memory.Interaction{
		InteractionID: "old_w",
		SessionID:     "s",
		Timestamp:     time.Now().AddDate(0, 0, -120),
	})
	if err != nil {
		t.Fatalf("Failed to store old interaction: %v", err)
	}

	removed, err := store.CleanupOldMemories(ctx, "b1", 90)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("Removed = %d, want 2", removed)
	}

	if _, err := store.GetInsight(ctx, "b1", "old"); !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("Old insight should be gone, got: %v", err)
	}
	if _, err := store.GetInsight(ctx, "b1", "fresh"); err != nil {
		t.Fatalf("Fresh insight should survive: %v", err)
	}

	// The rebuilt index still serves the surviving insight.
	results, err := store.SemanticSearch(ctx, "b1", "current", nil, 5)
	if err != nil {
		t.Fatalf("Search after cleanup failed: %v", err)
	}
	for _, r := range results {
		if r.InsightID == "old" {
			t.Fatal("Cleaned insight still in index")
		}
	}
}

func TestBackupAndRestore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, chromem.WithEmbedder(mock.New()))
	newBrand(t, store, "b1")
	storeInsight(t, store, "b1", "i1", "Keep this insight")

	backupID, err := store.BackupBrandMemories(ctx, "b1")
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	storeInsight(t, store, "b1", "i2", "Post-backup insight")
	if err := store.RestoreBrandMemories(ctx, "b1", backupID); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	bc, _ := store.GetBrandContext(ctx, "b1")
	if bc.TotalInsights != 1 {
		t.Fatalf("TotalInsights after restore = %d, want 1", bc.TotalInsights)
	}
	if _, err := store.GetInsight(ctx, "b1", "i2"); !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("Post-backup insight should be gone, got: %v", err)
	}

	if err := store.RestoreBrandMemories(ctx, "b1", "backup_missing"); !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for unknown backup, got: %v", err)
	}
}

func TestMemoryAnalytics(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	newBrand(t, store, "b1")
	storeInsight(t, store, "b1", "i1", "One")
	storeInsight(t, store, "b1", "i2", "Two")

	analytics, err := store.MemoryAnalytics(ctx, "b1")
	if err != nil {
		t.Fatalf("Analytics failed: %v", err)
	}
	if analytics.TotalInsights != 2 {
		t.Fatalf("TotalInsights = %d, want 2", analytics.TotalInsights)
	}
	if analytics.InsightsByType[memory.TypeStrategic] != 2 {
		t.Fatalf("Strategic count = %d, want 2", analytics.InsightsByType[memory.TypeStrategic])
	}
	if analytics.RecentActivity != 2 {
		t.Fatalf("RecentActivity = %d, want 2", analytics.RecentActivity)
	}
}

func TestHealthAndStatistics(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	newBrand(t, store, "b1")
	storeInsight(t, store, "b1", "i1", "One")

	health, err := store.HealthCheck(ctx)
	if err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
	if health.Status != "healthy" || !health.Initialized || health.Brands != 1 {
		t.Fatalf("Health = %+v", health)
	}

	stats, err := store.StoreStatistics(ctx)
	if err != nil {
		t.Fatalf("StoreStatistics failed: %v", err)
	}
	if stats.TotalBrands != 1 || stats.TotalInsights != 1 {
		t.Fatalf("Statistics = %+v", stats)
	}
}
