package chunker

import (
	"strconv"

	"knowledgebase/internal/domain"
)

// Default window parameters, measured in characters.
const (
	DefaultChunkSize = 500
	DefaultOverlap   = 50
)

// WindowChunker splits text into fixed-size character windows that overlap
// by a fixed number of characters.
type WindowChunker struct {
	chunkSize int
	overlap   int
}

// NewWindowChunker validates the window parameters. An overlap that would
// keep the window from advancing is rejected rather than clamped.
func NewWindowChunker(chunkSize, overlap int) (*WindowChunker, error) {
	if err := validateWindow(chunkSize, overlap); err != nil {
		return nil, err
	}
	return &WindowChunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk splits the document content into overlapping windows.
func (c *WindowChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	spans := windows([]rune(document.Content), c.chunkSize, c.overlap)
	if len(spans) == 0 {
		return nil, nil
	}
	chunks := make([]domain.Chunk, len(spans))
	for i, s := range spans {
		chunks[i] = domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    document.ID + ":" + strconv.Itoa(i),
			Text:       s.text,
			Index:      i,
			Offset:     s.start,
		}
	}
	return chunks, nil
}

// SplitText returns the overlapping windows of text. Windows are measured in
// runes; the last window may be shorter than chunkSize. Empty text yields no
// windows.
func SplitText(text string, chunkSize, overlap int) ([]string, error) {
	if err := validateWindow(chunkSize, overlap); err != nil {
		return nil, err
	}
	spans := windows([]rune(text), chunkSize, overlap)
	if len(spans) == 0 {
		return nil, nil
	}
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.text
	}
	return out, nil
}

type span struct {
	start int
	text  string
}

func windows(runes []rune, chunkSize, overlap int) []span {
	if len(runes) == 0 {
		return nil
	}
	step := chunkSize - overlap
	spans := make([]span, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		spans = append(spans, span{start: start, text: string(runes[start:end])})
		if end == len(runes) {
			break
		}
	}
	return spans
}

func validateWindow(chunkSize, overlap int) error {
	if chunkSize <= 0 {
		return domain.NewValidationError("chunk_size", strconv.Itoa(chunkSize), domain.ErrInvalidChunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return domain.NewValidationError("overlap", strconv.Itoa(overlap)+" with chunk_size "+strconv.Itoa(chunkSize), domain.ErrInvalidOverlap)
	}
	return nil
}
