package memory

import (
	"context"
	"time"

	"github.com/domocarroll/subfracture-go/core"
)

// DefaultNamespace isolates this application's memories inside a shared
// backend.
const DefaultNamespace = "subfracture_brand_intelligence"

// Config holds store configuration. Unrecognized backend-specific options
// travel in Additional verbatim.
type Config struct {
	// Namespace prefixes all stored keys/collections.
	// Default: DefaultNamespace.
	Namespace string

	// EmbeddingModel identifies the embedding model; meaning is
	// backend-specific.
	EmbeddingModel string

	// Backend names the concrete backend ("chromem", "cached", ...).
	// Informational; selection happens at construction time.
	Backend string

	// Additional is passed through to the backend untouched.
	Additional map[string]string
}

// DefaultConfig returns sensible defaults for local use.
var DefaultConfig = &Config{
	Namespace: DefaultNamespace,
}

// InitialContext seeds a newly created brand context.
type InitialContext struct {
	OperatorProfile          core.OperatorContext
	CommunicationPreferences map[string]string
	BusinessContext          map[string]string
}

// SearchResult is one semantic search hit, ordered by descending
// similarity.
type SearchResult struct {
	Content         string     `json:"content"`
	SimilarityScore float64    `json:"similarity_score"`
	MemoryType      MemoryType `json:"memory_type"`
	InsightID       string     `json:"insight_id,omitempty"`
	Timestamp       time.Time  `json:"timestamp"`
	Tags            []string   `json:"tags,omitempty"`
}

// Analytics aggregates per-brand memory statistics.
type Analytics struct {
	TotalInsights       int                `json:"total_insights"`
	TotalInteractions   int                `json:"total_interactions"`
	MemoryQualityScore  float64            `json:"memory_quality_score"`
	LastSessionDate     *time.Time         `json:"last_session_date,omitempty"`
	CurrentGravityIndex float64            `json:"current_gravity_index"`
	InsightsByType      map[MemoryType]int `json:"insights_by_type"`

	// RecentActivity counts insights from the trailing 7 days.
	RecentActivity int `json:"recent_activity"`
}

// Health reports store liveness. Introspection only; never mutates.
type Health struct {
	Status      string    `json:"status"` // "healthy" or "unhealthy"
	Backend     string    `json:"backend"`
	Initialized bool      `json:"initialized"`
	Brands      int       `json:"brands"`
	Timestamp   time.Time `json:"timestamp"`
}

// Statistics reports store-wide totals. Introspection only; never mutates.
type Statistics struct {
	TotalBrands       int       `json:"total_brands"`
	TotalInsights     int       `json:"total_insights"`
	TotalInteractions int       `json:"total_interactions"`
	Backend           string    `json:"backend"`
	Timestamp         time.Time `json:"timestamp"`
}

// Store is the pluggable persistence backend for brand memory.
// Implementations: chromem.Store (local, embedded vector search),
// cached.Store (ristretto read-through wrapper), or a production
// document/relational adapter.
//
// Contract notes:
//   - Initialize must be called before any other operation; everything else
//     fails with ErrNotInitialized first.
//   - Getters report absence with ErrNotFound; mutating operations fail with
//     the taxonomy in errors.go on invariant violations.
//   - SemanticSearch may degrade to empty results when the backend has no
//     embedding capability. That is a declared capability gap, not an error.
//   - Transport/backend failures surface as ErrBackendUnavailable and are
//     never swallowed into empty results, except for the declared search
//     degradation.
type Store interface {
	// Initialize performs idempotent setup. A nil config means
	// DefaultConfig.
	Initialize(ctx context.Context, cfg *Config) error

	// Shutdown releases backend resources. Safe to call multiple times.
	Shutdown(ctx context.Context) error

	// Brand context operations.
	CreateBrandContext(ctx context.Context, brandID, brandName string, initial InitialContext) (*BrandContext, error)
	GetBrandContext(ctx context.Context, brandID string) (*BrandContext, error)
	UpdateBrandContext(ctx context.Context, brandID string, update ContextUpdate) (*BrandContext, error)
	// DeleteBrandContext removes the context and cascades to all child
	// collections.
	DeleteBrandContext(ctx context.Context, brandID string) error

	// Insight operations.
	StoreInsight(ctx context.Context, brandID string, insight *Insight) (string, error)
	GetInsight(ctx context.Context, brandID, insightID string) (*Insight, error)
	QueryInsights(ctx context.Context, brandID string, q Query) ([]*Insight, error)
	UpdateInsight(ctx context.Context, brandID string, req UpdateRequest) (*Insight, error)
	DeleteInsight(ctx context.Context, brandID, insightID string) error

	// Interaction operations.
	StoreInteraction(ctx context.Context, brandID string, interaction *Interaction) (string, error)
	GetInteraction(ctx context.Context, brandID, interactionID string) (*Interaction, error)
	// RecentInteractions returns at most limit interactions, newest first.
	RecentInteractions(ctx context.Context, brandID string, limit int) ([]*Interaction, error)

	// Strategic / creative memory operations.
	StoreStrategicMemory(ctx context.Context, brandID string, m *StrategicMemory) (string, error)
	GetStrategicMemory(ctx context.Context, brandID, memoryID string) (*StrategicMemory, error)
	StoreCreativeMemory(ctx context.Context, brandID string, m *CreativeMemory) (string, error)
	GetCreativeMemory(ctx context.Context, brandID, memoryID string) (*CreativeMemory, error)

	// SemanticSearch ranks stored memories against the query text,
	// descending by similarity, returning at most limit results.
	SemanticSearch(ctx context.Context, brandID, queryText string, types []MemoryType, limit int) ([]SearchResult, error)

	// MemoryAnalytics aggregates stats for one brand.
	MemoryAnalytics(ctx context.Context, brandID string) (*Analytics, error)

	// RelatedMemories finds insights similar to the given one, excluding
	// the seed insight itself.
	RelatedMemories(ctx context.Context, brandID, insightID string, limit int) ([]*Insight, error)

	// CleanupOldMemories irreversibly deletes insights and interactions
	// older than retentionDays, returning the number removed.
	CleanupOldMemories(ctx context.Context, brandID string, retentionDays int) (int, error)

	// BackupBrandMemories snapshots one brand, returning an opaque backup
	// identifier; RestoreBrandMemories replaces the brand's state with the
	// snapshot. Restore fails with ErrNotFound for an unknown backup ID.
	BackupBrandMemories(ctx context.Context, brandID string) (string, error)
	RestoreBrandMemories(ctx context.Context, brandID, backupID string) error

	// Introspection.
	HealthCheck(ctx context.Context) (*Health, error)
	StoreStatistics(ctx context.Context) (*Statistics, error)
}

// Embedder converts text to vector embeddings. It is an injectable
// capability: stores that receive one gain real semantic search, stores
// without one degrade as declared above.
//
// Implementations: mock.Embedder (testing, deterministic), onnx.Embedder
// (local all-MiniLM-L6-v2), or an API-based production embedder.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}
