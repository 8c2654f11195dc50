package domain

import "context"

// Document represents a single source file loaded into the system.
type Document struct {
	ID       string
	Path     string
	FileType string
	Content  string
}

// SkippedDocument records a document that could not be read during ingestion.
// Skipping is not fatal; the remaining documents are still ingested.
type SkippedDocument struct {
	Path   string
	Reason string
}

// Chunk is a contiguous window of a document's text used as the unit of retrieval.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Text       string
	// Index is the ordinal position of the chunk within its document.
	Index int
	// Offset is where the chunk starts within the document: a rune offset for
	// window chunks, a sentence offset for sentence chunks.
	Offset int
}

// Metadata is stored alongside every vector in the index.
type Metadata struct {
	Text       string
	Source     string
	DocumentID string
	ChunkIndex int
	// Position is the ordinal of the chunk within the ingest call that produced it.
	Position   int
	Attributes map[string]string
}

// SearchResult is a stored entry ranked by its distance to a query.
// Smaller distances are more relevant.
type SearchResult struct {
	RowID    int
	Metadata Metadata
	Distance float64
}

// IngestReport summarizes one ingest call.
type IngestReport struct {
	Documents int
	Chunks    int
	Skipped   []SkippedDocument
	// Total is the number of entries held by the index after the call.
	Total   int
	Summary string
}

// Answer is a generated response together with the context it was built from.
type Answer struct {
	Question string
	Text     string
	Sources  []SearchResult
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// DocumentSource lists and reads the documents of a directory.
type DocumentSource interface {
	Load(ctx context.Context, dir string) ([]Document, []SkippedDocument, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// Generator turns a prompt into generated text using an external model.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// HistoryRecorder appends prompt/response pairs to an audit log.
type HistoryRecorder interface {
	Record(ctx context.Context, prompt, response, language string) error
}
