// Package memory provides persistent brand intelligence for SUBFRACTURE
// workshops.
//
// A brand's memory is an aggregate BrandContext holding typed insights,
// interaction records, strategic and creative memory bundles, and a gravity
// history. Contexts are stored behind a backend-polymorphic Store interface
// and orchestrated by a Service that adds business-level operations the
// store does not provide (profile creation, gravity tracking, workshop
// session recording, intelligence summaries).
//
// Architecture:
//   - Store: persistence backend (chromem-go locally, swappable for a
//     document or relational adapter in production)
//   - Embedder: text-to-vector conversion, injected into capable stores
//   - Service: validation, enrichment, and composition of store calls
//
// Local implementation:
//   - store/chromem: authoritative in-memory maps plus a chromem-go
//     collection per brand for semantic search
//   - store/cached: advisory ristretto read-through cache over any Store
//   - embedder/mock and embedder/onnx (all-MiniLM-L6-v2, offline)
package memory
