package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"knowledgebase/internal/domain"
	"knowledgebase/internal/embedding"
	"knowledgebase/internal/vectorstore"
)

// Deps are the collaborators a Pipeline is built from. Summarizer,
// Generator, History and Logger are optional.
type Deps struct {
	Source     domain.DocumentSource
	Chunker    domain.Chunker
	Embedder   embedding.Embedder
	Store      vectorstore.Storage
	Summarizer domain.Summarizer
	Generator  domain.Generator
	History    domain.HistoryRecorder
	Logger     log.FieldLogger
}

// Options tune pipeline behaviour.
type Options struct {
	SummaryMaxSentences int
	SystemPrompt        string
	// Language is recorded with every generated answer.
	Language string
}

// Pipeline ingests documents into a vector index and answers queries against it.
type Pipeline struct {
	source     domain.DocumentSource
	chunker    domain.Chunker
	embedder   embedding.Embedder
	store      vectorstore.Storage
	summarizer domain.Summarizer
	generator  domain.Generator
	history    domain.HistoryRecorder
	log        log.FieldLogger
	opts       Options
}

// NewPipeline wires a pipeline. The embedder and the store must agree on
// the vector dimension.
func NewPipeline(deps Deps, opts Options) (*Pipeline, error) {
	switch {
	case deps.Source == nil:
		return nil, errors.New("service: document source is required")
	case deps.Chunker == nil:
		return nil, errors.New("service: chunker is required")
	case deps.Embedder == nil:
		return nil, errors.New("service: embedder is required")
	case deps.Store == nil:
		return nil, errors.New("service: vector store is required")
	}
	if deps.Embedder.Dimension() != deps.Store.Dimension() {
		return nil, fmt.Errorf("service: %w",
			domain.NewDimensionError("embedder", deps.Store.Dimension(), deps.Embedder.Dimension()))
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Pipeline{
		source:     deps.Source,
		chunker:    deps.Chunker,
		embedder:   deps.Embedder,
		store:      deps.Store,
		summarizer: deps.Summarizer,
		generator:  deps.Generator,
		history:    deps.History,
		log:        logger,
		opts:       opts,
	}, nil
}

// CanAnswer reports whether a generator is configured.
func (p *Pipeline) CanAnswer() bool { return p.generator != nil }

// Count returns the number of chunks held by the index.
func (p *Pipeline) Count() int { return p.store.Count() }

// Ingest loads every document in dir, chunks it, embeds all chunks in one
// batch and adds them to the index. An unreadable directory is logged and
// yields an empty report.
func (p *Pipeline) Ingest(ctx context.Context, dir string) (*domain.IngestReport, error) {
	report := &domain.IngestReport{}
	docs, skipped, err := p.source.Load(ctx, dir)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.log.WithField("dir", dir).WithError(err).Warn("Cannot read document directory")
		report.Total = p.store.Count()
		return report, nil
	}
	report.Documents = len(docs)
	report.Skipped = skipped

	var (
		texts     []string
		metadatas []domain.Metadata
		corpus    strings.Builder
	)
	for _, d := range docs {
		chunks, err := p.chunker.Chunk(d)
		if err != nil {
			return nil, fmt.Errorf("service: chunk %s: %w", d.Path, err)
		}
		for _, ch := range chunks {
			metadatas = append(metadatas, domain.Metadata{
				Text:       ch.Text,
				Source:     d.Path,
				DocumentID: d.ID,
				ChunkIndex: ch.Index,
				Position:   len(texts),
				Attributes: map[string]string{"file_type": d.FileType},
			})
			texts = append(texts, ch.Text)
		}
		corpus.WriteString(d.Content)
		corpus.WriteString("\n")
	}
	report.Chunks = len(texts)

	if len(texts) > 0 {
		vectors, err := p.embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("service: embed chunks: %w", err)
		}
		if err := p.store.Add(vectors, metadatas); err != nil {
			return nil, fmt.Errorf("service: add to index: %w", err)
		}
	}
	report.Total = p.store.Count()
	report.Summary = p.summarize(corpus.String())

	p.log.WithFields(log.Fields{
		"dir":       dir,
		"documents": report.Documents,
		"chunks":    report.Chunks,
		"skipped":   len(report.Skipped),
		"total":     report.Total,
	}).Info("Ingested documents")
	return report, nil
}

// Retrieve returns up to k chunks nearest to query, nearest first.
func (p *Pipeline) Retrieve(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		return nil, domain.NewValidationError("k", strconv.Itoa(k), domain.ErrInvalidK)
	}
	if p.store.Count() == 0 {
		return []domain.SearchResult{}, nil
	}
	vectors, err := p.embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("service: embed query: %w", err)
	}
	results, err := p.store.Search(vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("service: search: %w", err)
	}
	return results, nil
}

// Answer retrieves context for question and asks the generator to answer
// it. The exchange is recorded in the history log when one is configured;
// a failure to record is logged only.
func (p *Pipeline) Answer(ctx context.Context, question string, k int) (*domain.Answer, error) {
	if p.generator == nil {
		return nil, domain.ErrGeneratorDisabled
	}
	sources, err := p.Retrieve(ctx, question, k)
	if err != nil {
		return nil, err
	}
	text, err := p.generator.Generate(ctx, p.opts.SystemPrompt, BuildPrompt(question, sources))
	if err != nil {
		return nil, fmt.Errorf("service: generate: %w", err)
	}
	if p.history != nil {
		if err := p.history.Record(ctx, question, text, p.opts.Language); err != nil {
			p.log.WithError(err).Warn("Failed to record answer history")
		}
	}
	return &domain.Answer{Question: question, Text: text, Sources: sources}, nil
}

// BuildPrompt formats retrieved chunks as numbered context for question.
func BuildPrompt(question string, sources []domain.SearchResult) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	if len(sources) == 0 {
		b.WriteString("(no relevant documents)\n")
	}
	for i, r := range sources {
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, r.Metadata.Source, strings.TrimSpace(r.Metadata.Text))
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	return b.String()
}

// embed calls the embedder and checks it returned one vector per text.
// Backend failures are reported as *domain.EmbedError.
func (p *Pipeline) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		var ee *domain.EmbedError
		if errors.As(err, &ee) || ctx.Err() != nil {
			return nil, err
		}
		return nil, &domain.EmbedError{Backend: p.embedder.Name(), Err: err}
	}
	if len(vectors) != len(texts) {
		return nil, domain.NewValidationError("embeddings",
			fmt.Sprintf("requested %d, got %d", len(texts), len(vectors)),
			domain.ErrLengthMismatch)
	}
	return vectors, nil
}

func (p *Pipeline) summarize(text string) string {
	if p.summarizer == nil || strings.TrimSpace(text) == "" {
		return ""
	}
	summary, err := p.summarizer.Summarize(text, p.opts.SummaryMaxSentences)
	if err != nil {
		p.log.WithError(err).Warn("Failed to summarize documents")
		return ""
	}
	return summary
}
