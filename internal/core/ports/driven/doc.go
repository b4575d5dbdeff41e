// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - EmbeddingStore: Loads the index-aligned corpus of a run
//   - ResultStore: Persists the result record (atomically)
//   - RunStore: Run history persistence
//   - ConfigStore: Application configuration
//   - TaxonomyStore: The closed category set
//   - Reducer, Partitioner, DensityClusterer: The clustering algorithms
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Annotator: Cluster classification and naming. Without it, every cluster
//     receives its fallback name and the default category.
//   - LLMService: Language model backing the Annotator.
//   - EmbeddingService: Fills missing embeddings for `casemap embed`.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
