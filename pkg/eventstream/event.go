package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypePassageIndexed is emitted after a passage is embedded and
	// written to the vector index.
	EventTypePassageIndexed = "stacks.passage.indexed"
)

// PassageIndexedEvent is a transport-neutral event payload for an indexed passage.
type PassageIndexedEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Passage       PassageMeta  `json:"passage"`
	Embedding     EmbeddingRef `json:"embedding"`
}

// PassageMeta identifies the indexed passage without carrying its full text.
type PassageMeta struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Page   *int   `json:"page,omitempty"`
	Chars  int    `json:"chars"`
}

// EmbeddingRef records which model produced the stored embedding.
type EmbeddingRef struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}
