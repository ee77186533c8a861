// Package ingestion orchestrates one corpus run per modality.
//
// The Coordinator type manages the ingestion workflow for a modality:
//   - Draining the source adapter and normalizing raw documents
//   - Reconciling against the current snapshot with atomic rotation
//   - Chunking newly accepted document versions
//   - Running the four enrichment stages over a worker pool
//
// At most one run per modality is active at any instant; a trigger
// arriving during an active run is coalesced into a no-op. Per-item
// failures (one document, one chunk, one stage) are recorded and
// skipped; run-level failures abort the run with the prior snapshot
// intact.
package ingestion
