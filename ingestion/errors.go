package ingestion

import "errors"

var (
	// ErrCorpusStoreRequired is returned when a corpus store is not provided.
	ErrCorpusStoreRequired = errors.New("corpus store required")

	// ErrChunkStoreRequired is returned when a chunk store is not provided.
	ErrChunkStoreRequired = errors.New("chunk store required")

	// ErrChunkerRequired is returned when a chunker is not provided.
	ErrChunkerRequired = errors.New("chunker required")

	// ErrProviderRequired is returned when an AI provider is not provided.
	ErrProviderRequired = errors.New("AI provider required")

	// ErrNoAdapter is returned when a run is triggered for a modality
	// that has no registered source adapter.
	ErrNoAdapter = errors.New("no adapter registered for modality")

	// ErrRunInProgress is returned by Run when the modality already has
	// an active run. Trigger reports the same condition as a coalesced
	// no-op instead of an error.
	ErrRunInProgress = errors.New("ingestion run already in progress")
)
