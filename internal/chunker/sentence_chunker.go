package chunker

import (
	"strconv"
	"strings"

	"knowledgebase/internal/domain"
	"knowledgebase/internal/textutil"
)

// SentenceChunker groups whole sentences into chunks with a sentence overlap.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
}

// NewSentenceChunker validates the grouping parameters.
func NewSentenceChunker(sentencesPerChunk, overlapSentences int) (*SentenceChunker, error) {
	if sentencesPerChunk <= 0 {
		return nil, domain.NewValidationError("sentences_per_chunk", strconv.Itoa(sentencesPerChunk), domain.ErrInvalidChunkSize)
	}
	if overlapSentences < 0 || overlapSentences >= sentencesPerChunk {
		return nil, domain.NewValidationError("overlap_sentences", strconv.Itoa(overlapSentences), domain.ErrInvalidOverlap)
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
	}, nil
}

// Chunk joins consecutive sentences of the document into chunks.
func (c *SentenceChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	sentences := textutil.Sentences(document.Content)
	if len(sentences) == 0 {
		return nil, nil
	}
	var chunks []domain.Chunk
	step := c.sentencesPerChunk - c.overlapSentences
	for i, idx := 0, 0; i < len(sentences); i, idx = i+step, idx+1 {
		end := i + c.sentencesPerChunk
		if end > len(sentences) {
			end = len(sentences)
		}
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    document.ID + ":" + strconv.Itoa(idx),
			Text:       strings.Join(sentences[i:end], " "),
			Index:      idx,
			Offset:     i,
		})
		if end == len(sentences) {
			break
		}
	}
	return chunks, nil
}
