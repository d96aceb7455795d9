// Package chromem implements memory.Store on chromem-go, a pure Go
// embedded vector database. Brand contexts are held as authoritative
// in-memory aggregates; insight content is additionally indexed into one
// chromem collection per brand when an embedder is attached.
//
// Without an embedder the store runs with full CRUD capability and
// semantic search degrades to empty results.
package chromem

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/domocarroll/subfracture-go/memory"
)

const backendName = "chromem"

// brandSnapshot is one backup: a deep copy of the brand context plus the
// embeddings needed to rebuild its collection on restore.
type brandSnapshot struct {
	context    *memory.BrandContext
	embeddings map[string][]float32
	takenAt    time.Time
}

// Store implements memory.Store on chromem-go.
type Store struct {
	mu sync.RWMutex

	db          *chromem.DB
	embedder    memory.Embedder
	cfg         *memory.Config
	initialized bool

	// brands is the authoritative state; all returned contexts are clones.
	brands      map[string]*memory.BrandContext
	collections map[string]*chromem.Collection

	// embeddings caches insight vectors per brand so collections can be
	// rebuilt after deletes (chromem-go has no delete-by-ID).
	embeddings map[string]map[string][]float32

	backups map[string]*brandSnapshot
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithEmbedder attaches an embedder, enabling semantic search.
func WithEmbedder(e memory.Embedder) Option {
	return func(s *Store) { s.embedder = e }
}

// New creates an uninitialized chromem store.
func New(opts ...Option) *Store {
	s := &Store{
		brands:      make(map[string]*memory.BrandContext),
		collections: make(map[string]*chromem.Collection),
		embeddings:  make(map[string]map[string][]float32),
		backups:     make(map[string]*brandSnapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize sets up the chromem database. Idempotent.
func (s *Store) Initialize(ctx context.Context, cfg *memory.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	if cfg == nil {
		cfg = memory.DefaultConfig
	}
	if cfg.Namespace == "" {
		cfg.Namespace = memory.DefaultNamespace
	}

	s.cfg = cfg
	s.db = chromem.NewDB()
	s.initialized = true

	mode := "degraded (no embedder)"
	if s.embedder != nil {
		mode = fmt.Sprintf("semantic (%d dims)", s.embedder.Dimensions())
	}
	log.Printf("[CHROMEM] Store initialized: namespace=%s search=%s", cfg.Namespace, mode)
	return nil
}

// Shutdown drops all in-memory state. Safe to call multiple times.
func (s *Store) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = false
	s.db = nil
	s.brands = make(map[string]*memory.BrandContext)
	s.collections = make(map[string]*chromem.Collection)
	s.embeddings = make(map[string]map[string][]float32)
	log.Printf("[CHROMEM] Store shutdown completed")
	return nil
}

func (s *Store) CreateBrandContext(ctx context.Context, brandID, brandName string, initial memory.InitialContext) (*memory.BrandContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, memory.ErrNotInitialized
	}
	if brandID == "" {
		return nil, fmt.Errorf("brand ID required: %w", memory.ErrValidation)
	}
	if _, exists := s.brands[brandID]; exists {
		return nil, fmt.Errorf("brand %s: %w", brandID, memory.ErrAlreadyExists)
	}

	bc := memory.NewBrandContext(brandID, brandName)
	bc.OperatorProfile = initial.OperatorProfile
	bc.CommunicationPreferences = initial.CommunicationPreferences
	bc.BusinessContext = initial.BusinessContext

	s.brands[brandID] = bc
	s.embeddings[brandID] = make(map[string][]float32)

	log.Printf("[CHROMEM] Brand context created: brand=%s name=%q", brandID, brandName)
	return bc.Clone(), nil
}

func (s *Store) GetBrandContext(ctx context.Context, brandID string) (*memory.BrandContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bc, err := s.brandLocked(brandID)
	if err != nil {
		return nil, err
	}
	return bc.Clone(), nil
}

func (s *Store) UpdateBrandContext(ctx context.Context, brandID string, update memory.ContextUpdate) (*memory.BrandContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bc, err := s.brandLocked(brandID)
	if err != nil {
		return nil, err
	}

	if update.BrandName != nil {
		bc.BrandName = *update.BrandName
	}
	if update.OperatorProfile != nil {
		bc.OperatorProfile = *update.OperatorProfile
	}
	if update.CommunicationPreferences != nil {
		bc.CommunicationPreferences = update.CommunicationPreferences
	}
	if update.BusinessContext != nil {
		bc.BusinessContext = update.BusinessContext
	}
	if update.CurrentGravityIndex != nil {
		bc.CurrentGravityIndex = *update.CurrentGravityIndex
	}
	if update.AppendGravity != nil {
		bc.GravityHistory = append(bc.GravityHistory, *update.AppendGravity)
	}
	if update.ActiveSessions != nil {
		bc.ActiveSessions = update.ActiveSessions
	}
	bc.LastUpdated = time.Now()

	return bc.Clone(), nil
}

// DeleteBrandContext removes the brand and everything under it, including
// its vector collection and cached embeddings. Backups survive.
func (s *Store) DeleteBrandContext(ctx context.Context, brandID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.brandLocked(brandID); err != nil {
		return err
	}

	delete(s.brands, brandID)
	delete(s.embeddings, brandID)
	if _, ok := s.collections[brandID]; ok {
		if err := s.db.DeleteCollection(s.collectionName(brandID)); err != nil {
			log.Printf("[CHROMEM] Collection delete failed: brand=%s err=%v", brandID, err)
		}
		delete(s.collections, brandID)
	}

	log.Printf("[CHROMEM] Brand context deleted: brand=%s", brandID)
	return nil
}

func (s *Store) StoreInsight(ctx context.Context, brandID string, insight *memory.Insight) (string, error) {
	if err := insight.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bc, err := s.brandLocked(brandID)
	if err != nil {
		return "", err
	}
	if _, exists := bc.Insights[insight.InsightID]; exists {
		return "", fmt.Errorf("insight %s: %w", insight.InsightID, memory.ErrAlreadyExists)
	}

	stored := insight.Clone()
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now()
	}
	bc.AddInsight(stored)

	if err := s.indexInsightLocked(ctx, brandID, stored); err != nil {
		// Vector indexing is an enhancement over the authoritative map.
		log.Printf("[CHROMEM] Insight indexing failed: brand=%s id=%s err=%v",
			brandID, stored.InsightID, err)
	}

	return stored.InsightID, nil
}

func (s *Store) GetInsight(ctx context.Context, brandID, insightID string) (*memory.Insight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bc, err := s.brandLocked(brandID)
	if err != nil {
		return nil, err
	}
	in, ok := bc.Insights[insightID]
	if !ok {
		return nil, fmt.Errorf("insight %s: %w", insightID, memory.ErrNotFound)
	}
	return in.Clone(), nil
}

func (s *Store) QueryInsights(ctx context.Context, brandID string, q memory.Query) ([]*memory.Insight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bc, err := s.brandLocked(brandID)
	if err != nil {
		return nil, err
	}

	var matched []*memory.Insight
	for _, in := range bc.Insights {
		if q.Matches(in) {
			matched = append(matched, in.Clone())
		}
	}
	q.Sort(matched)

	if limit := q.EffectiveLimit(); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *Store) UpdateInsight(ctx context.Context, brandID string, req memory.UpdateRequest) (*memory.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bc, err := s.brandLocked(brandID)
	if err != nil {
		return nil, err
	}
	in, ok := bc.Insights[req.InsightID]
	if !ok {
		return nil, fmt.Errorf("insight %s: %w", req.InsightID, memory.ErrNotFound)
	}

	oldContent := in.Content
	if err := req.Apply(in); err != nil {
		return nil, err
	}
	bc.LastUpdated = time.Now()

	if in.Content != oldContent {
		delete(s.embeddings[brandID], in.InsightID)
		if err := s.indexInsightLocked(ctx, brandID, in); err != nil {
			log.Printf("[CHROMEM] Insight re-indexing failed: brand=%s id=%s err=%v",
				brandID, in.InsightID, err)
		}
	}

	log.Printf("[CHROMEM] Insight updated: brand=%s id=%s by=%s", brandID, in.InsightID, req.UpdatedBy)
	return in.Clone(), nil
}

func (s *Store) DeleteInsight(ctx context.Context, brandID, insightID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bc, err := s.brandLocked(brandID)
	if err != nil {
		return err
	}
	if _, ok := bc.Insights[insightID]; !ok {
		return fmt.Errorf("insight %s: %w", insightID, memory.ErrNotFound)
	}

	delete(bc.Insights, insightID)
	bc.TotalInsights--
	bc.LastUpdated = time.Now()

	delete(s.embeddings[brandID], insightID)
	if err := s.rebuildCollectionLocked(ctx, brandID); err != nil {
		log.Printf("[CHROMEM] Collection rebuild failed: brand=%s err=%v", brandID, err)
	}
	return nil
}

func (s *Store) StoreInteraction(ctx context.Context, brandID string, interaction *memory.Interaction) (string, error) {
	if err := interaction.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bc, err := s.brandLocked(brandID)
	if err != nil {
		return "", err
	}
	if _, exists := bc.Interactions[interaction.InteractionID]; exists {
		return "", fmt.Errorf("interaction %s: %w", interaction.InteractionID, memory.ErrAlreadyExists)
	}

	stored := interaction.Clone()
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now()
	}
	bc.AddInteraction(stored)

	log.Printf("[CHROMEM] Interaction stored: brand=%s id=%s session=%s",
		brandID, stored.InteractionID, stored.SessionID)
	return stored.InteractionID, nil
}

func (s *Store) GetInteraction(ctx context.Context, brandID, interactionID string) (*memory.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bc, err := s.brandLocked(brandID)
	if err != nil {
		return nil, err
	}
	it, ok := bc.Interactions[interactionID]
	if !ok {
		return nil, fmt.Errorf("interaction %s: %w", interactionID, memory.ErrNotFound)
	}
	return it.Clone(), nil
}

func (s *Store) RecentInteractions(ctx context.Context, brandID string, limit int) ([]*memory.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bc, err := s.brandLocked(brandID)
	if err != nil {
		return nil, err
	}

	interactions := make([]*memory.Interaction, 0, len(bc.Interactions))
	for _, it := range bc.Interactions {
		interactions = append(interactions, it.Clone())
	}
	sort.Slice(interactions, func(i, j int) bool {
		return interactions[i].Timestamp.After(interactions[j].Timestamp)
	})

	if limit > 0 && len(interactions) > limit {
		interactions = interactions[:limit]
	}
	return interactions, nil
}

func (s *Store) StoreStrategicMemory(ctx context.Context, brandID string, m *memory.StrategicMemory) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bc, err := s.brandLocked(brandID)
	if err != nil {
		return "", err
	}

	stored := m.Clone()
	if stored.MemoryID == "" {
		stored.MemoryID = "strategic_" + shortID(8)
	}
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now()
	}
	if _, exists := bc.StrategicMemories[stored.MemoryID]; exists {
		return "", fmt.Errorf("strategic memory %s: %w", stored.MemoryID, memory.ErrAlreadyExists)
	}

	bc.StrategicMemories[stored.MemoryID] = stored
	bc.LastUpdated = time.Now()
	return stored.MemoryID, nil
}

func (s *Store) GetStrategicMemory(ctx context.Context, brandID, memoryID string) (*memory.StrategicMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bc, err := s.brandLocked(brandID)
	if err != nil {
		return nil, err
	}
	m, ok := bc.StrategicMemories[memoryID]
	if !ok {
		return nil, fmt.Errorf("strategic memory %s: %w", memoryID, memory.ErrNotFound)
	}
	return m.Clone(), nil
}

func (s *Store) StoreCreativeMemory(ctx context.Context, brandID string, m *memory.CreativeMemory) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bc, err := s.brandLocked(brandID)
	if err != nil {
		return "", err
	}

	stored := m.Clone()
	if stored.MemoryID == "" {
		stored.MemoryID = "creative_" + shortID(8)
	}
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now()
	}
	if _, exists := bc.CreativeMemories[stored.MemoryID]; exists {
		return "", fmt.Errorf("creative memory %s: %w", stored.MemoryID, memory.ErrAlreadyExists)
	}

	bc.CreativeMemories[stored.MemoryID] = stored
	bc.LastUpdated = time.Now()
	return stored.MemoryID, nil
}

func (s *Store) GetCreativeMemory(ctx context.Context, brandID, memoryID string) (*memory.CreativeMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bc, err := s.brandLocked(brandID)
	if err != nil {
		return nil, err
	}
	m, ok := bc.CreativeMemories[memoryID]
	if !ok {
		return nil, fmt.Errorf("creative memory %s: %w", memoryID, memory.ErrNotFound)
	}
	return m.Clone(), nil
}

// SemanticSearch ranks indexed insights against the query text. Without an
// embedder it returns empty results; that is the declared degraded mode,
// not an error.
func (s *Store) SemanticSearch(ctx context.Context, brandID, queryText string, types []memory.MemoryType, limit int) ([]memory.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bc, err := s.brandLocked(brandID)
	if err != nil {
		return nil, err
	}
	if s.embedder == nil {
		log.Printf("[CHROMEM] Semantic search degraded (no embedder): brand=%s", brandID)
		return nil, nil
	}
	col, ok := s.collections[brandID]
	if !ok {
		return nil, nil
	}
	if limit <= 0 {
		limit = memory.DefaultQueryLimit
	}

	embedding, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// chromem-go requires nResults <= collection size; retry with smaller
	// limits until it fits. Over-fetch so post-filtering by type still
	// fills the limit.
	fetch := limit
	if len(types) > 0 {
		fetch = limit * 4
	}
	var results []chromem.Result
	for currentLimit := fetch; currentLimit >= 1; currentLimit-- {
		results, err = col.QueryEmbedding(ctx, embedding, currentLimit, nil, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if currentLimit == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	wanted := make(map[memory.MemoryType]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}

	var hits []memory.SearchResult
	for _, r := range results {
		hit := resultToSearchHit(r, bc)
		if len(wanted) > 0 && !wanted[hit.MemoryType] {
			continue
		}
		hits = append(hits, hit)
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

func (s *Store) MemoryAnalytics(ctx context.Context, brandID string) (*memory.Analytics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bc, err := s.brandLocked(brandID)
	if err != nil {
		return nil, err
	}

	byType := make(map[memory.MemoryType]int)
	for _, in := range bc.Insights {
		byType[in.Type]++
	}

	return &memory.Analytics{
		TotalInsights:       bc.TotalInsights,
		TotalInteractions:   bc.TotalInteractions,
		MemoryQualityScore:  bc.CalculateMemoryQuality(),
		LastSessionDate:     bc.LastSessionDate,
		CurrentGravityIndex: bc.CurrentGravityIndex,
		InsightsByType:      byType,
		RecentActivity:      len(bc.RecentInsights(7)),
	}, nil
}

// RelatedMemories finds insights similar to the given one, excluding the
// seed itself.
func (s *Store) RelatedMemories(ctx context.Context, brandID, insightID string, limit int) ([]*memory.Insight, error) {
	seed, err := s.GetInsight(ctx, brandID, insightID)
	if err != nil {
		return nil, err
	}

	hits, err := s.SemanticSearch(ctx, brandID, seed.Content, nil, limit+1)
	if err != nil {
		return nil, err
	}

	var related []*memory.Insight
	for _, hit := range hits {
		if hit.InsightID == "" || hit.InsightID == insightID {
			continue
		}
		in, err := s.GetInsight(ctx, brandID, hit.InsightID)
		if err != nil {
			continue
		}
		related = append(related, in)
		if len(related) == limit {
			break
		}
	}
	return related, nil
}

// CleanupOldMemories deletes insights and interactions older than
// retentionDays and rebuilds the brand's vector collection.
func (s *Store) CleanupOldMemories(ctx context.Context, brandID string, retentionDays int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bc, err := s.brandLocked(brandID)
	if err != nil {
		return 0, err
	}
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention days must be positive: %w", memory.ErrValidation)
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0

	for id, in := range bc.Insights {
		if in.Timestamp.Before(cutoff) {
			delete(bc.Insights, id)
			delete(s.embeddings[brandID], id)
			bc.TotalInsights--
			removed++
		}
	}
	for id, it := range bc.Interactions {
		if it.Timestamp.Before(cutoff) {
			delete(bc.Interactions, id)
			bc.TotalInteractions--
			removed++
		}
	}

	if removed > 0 {
		bc.LastUpdated = time.Now()
		if err := s.rebuildCollectionLocked(ctx, brandID); err != nil {
			log.Printf("[CHROMEM] Collection rebuild failed: brand=%s err=%v", brandID, err)
		}
	}

	log.Printf("[CHROMEM] Cleanup completed: brand=%s removed=%d retention=%dd",
		brandID, removed, retentionDays)
	return removed, nil
}

// BackupBrandMemories snapshots the brand's full state. The returned ID is
// only valid against this store instance.
func (s *Store) BackupBrandMemories(ctx context.Context, brandID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bc, err := s.brandLocked(brandID)
	if err != nil {
		return "", err
	}

	embeddings := make(map[string][]float32, len(s.embeddings[brandID]))
	for id, vec := range s.embeddings[brandID] {
		embeddings[id] = vec
	}

	backupID := fmt.Sprintf("backup_%s_%s", brandID, shortID(8))
	s.backups[backupID] = &brandSnapshot{
		context:    bc.Clone(),
		embeddings: embeddings,
		takenAt:    time.Now(),
	}

	log.Printf("[CHROMEM] Backup created: brand=%s backup=%s insights=%d",
		brandID, backupID, bc.TotalInsights)
	return backupID, nil
}

// RestoreBrandMemories replaces the brand's state with the snapshot and
// rebuilds its vector collection.
func (s *Store) RestoreBrandMemories(ctx context.Context, brandID, backupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return memory.ErrNotInitialized
	}
	snap, ok := s.backups[backupID]
	if !ok {
		return fmt.Errorf("backup %s: %w", backupID, memory.ErrNotFound)
	}
	if snap.context.BrandID != brandID {
		return fmt.Errorf("backup %s does not belong to brand %s: %w",
			backupID, brandID, memory.ErrValidation)
	}

	s.brands[brandID] = snap.context.Clone()
	embeddings := make(map[string][]float32, len(snap.embeddings))
	for id, vec := range snap.embeddings {
		embeddings[id] = vec
	}
	s.embeddings[brandID] = embeddings

	if err := s.rebuildCollectionLocked(ctx, brandID); err != nil {
		log.Printf("[CHROMEM] Collection rebuild failed: brand=%s err=%v", brandID, err)
	}

	log.Printf("[CHROMEM] Backup restored: brand=%s backup=%s", brandID, backupID)
	return nil
}

func (s *Store) HealthCheck(ctx context.Context) (*memory.Health, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := "healthy"
	if !s.initialized {
		status = "unhealthy"
	}
	return &memory.Health{
		Status:      status,
		Backend:     backendName,
		Initialized: s.initialized,
		Brands:      len(s.brands),
		Timestamp:   time.Now(),
	}, nil
}

func (s *Store) StoreStatistics(ctx context.Context) (*memory.Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, memory.ErrNotInitialized
	}

	stats := &memory.Statistics{
		TotalBrands: len(s.brands),
		Backend:     backendName,
		Timestamp:   time.Now(),
	}
	for _, bc := range s.brands {
		stats.TotalInsights += bc.TotalInsights
		stats.TotalInteractions += bc.TotalInteractions
	}
	return stats, nil
}

// brandLocked returns the authoritative context. Caller holds s.mu.
func (s *Store) brandLocked(brandID string) (*memory.BrandContext, error) {
	if !s.initialized {
		return nil, memory.ErrNotInitialized
	}
	bc, ok := s.brands[brandID]
	if !ok {
		return nil, fmt.Errorf("brand %s: %w", brandID, memory.ErrNotFound)
	}
	return bc, nil
}

func (s *Store) collectionName(brandID string) string {
	return fmt.Sprintf("%s_%s", s.cfg.Namespace, brandID)
}

// collectionLocked returns the brand's collection, creating it on first
// use. Caller holds s.mu for writing.
func (s *Store) collectionLocked(brandID string) (*chromem.Collection, error) {
	if col, ok := s.collections[brandID]; ok {
		return col, nil
	}
	col, err := s.db.CreateCollection(s.collectionName(brandID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.collections[brandID] = col
	return col, nil
}

// indexInsightLocked embeds the insight content and adds it to the brand's
// collection. No-op without an embedder. Caller holds s.mu for writing.
func (s *Store) indexInsightLocked(ctx context.Context, brandID string, in *memory.Insight) error {
	if s.embedder == nil {
		return nil
	}

	embedding, err := s.embedder.Embed(ctx, in.Content)
	if err != nil {
		return fmt.Errorf("embed insight: %w", err)
	}
	s.embeddings[brandID][in.InsightID] = embedding

	col, err := s.collectionLocked(brandID)
	if err != nil {
		return err
	}
	if err := col.AddDocument(ctx, insightDocument(in, embedding)); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// rebuildCollectionLocked drops and recreates the brand's collection from
// cached embeddings. chromem-go has no delete-by-ID, so removals are
// expressed by rebuilding. Caller holds s.mu for writing.
func (s *Store) rebuildCollectionLocked(ctx context.Context, brandID string) error {
	if s.embedder == nil {
		return nil
	}
	if _, ok := s.collections[brandID]; ok {
		if err := s.db.DeleteCollection(s.collectionName(brandID)); err != nil {
			return fmt.Errorf("delete collection: %w", err)
		}
		delete(s.collections, brandID)
	}

	bc, ok := s.brands[brandID]
	if !ok {
		return nil
	}
	if len(s.embeddings[brandID]) == 0 {
		return nil
	}

	col, err := s.collectionLocked(brandID)
	if err != nil {
		return err
	}
	for id, embedding := range s.embeddings[brandID] {
		in, ok := bc.Insights[id]
		if !ok {
			continue
		}
		if err := col.AddDocument(ctx, insightDocument(in, embedding)); err != nil {
			return fmt.Errorf("re-add document %s: %w", id, err)
		}
	}
	return nil
}

// insightDocument builds the chromem document for one insight.
func insightDocument(in *memory.Insight, embedding []float32) chromem.Document {
	return chromem.Document{
		ID:        in.InsightID,
		Content:   in.Content,
		Embedding: embedding,
		Metadata: map[string]string{
			"insight_id":  in.InsightID,
			"memory_type": string(in.Type),
			"timestamp":   in.Timestamp.Format(time.RFC3339),
			"tags":        strings.Join(in.Tags, ","),
		},
	}
}

// resultToSearchHit converts one chromem match, preferring live insight
// fields over indexed metadata when the insight still exists.
func resultToSearchHit(r chromem.Result, bc *memory.BrandContext) memory.SearchResult {
	hit := memory.SearchResult{
		Content:         r.Content,
		SimilarityScore: float64(r.Similarity),
		MemoryType:      memory.MemoryType(r.Metadata["memory_type"]),
		InsightID:       r.Metadata["insight_id"],
	}
	if ts, err := time.Parse(time.RFC3339, r.Metadata["timestamp"]); err == nil {
		hit.Timestamp = ts
	}
	if tags := r.Metadata["tags"]; tags != "" {
		hit.Tags = strings.Split(tags, ",")
	}
	if in, ok := bc.Insights[hit.InsightID]; ok {
		hit.MemoryType = in.Type
		hit.Timestamp = in.Timestamp
		hit.Tags = append([]string(nil), in.Tags...)
	}
	return hit
}

// isInsufficientDocsError matches chromem-go's error for nResults larger
// than the collection.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}

// shortID returns n hex characters of a random UUID.
func shortID(n int) string {
	id := fmt.Sprintf("%x", [16]byte(uuid.New()))
	if n > len(id) {
		n = len(id)
	}
	return id[:n]
}
