package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"knowledgebase/internal/chunker"
	"knowledgebase/internal/config"
	"knowledgebase/internal/domain"
	"knowledgebase/internal/embedding"
	"knowledgebase/internal/embedding/hashing"
	"knowledgebase/internal/embedding/openai"
	"knowledgebase/internal/generator"
	"knowledgebase/internal/history"
	"knowledgebase/internal/loader"
	"knowledgebase/internal/logging"
	"knowledgebase/internal/service"
	"knowledgebase/internal/summarizer"
	"knowledgebase/internal/tui"
	"knowledgebase/internal/vectorstore/memory"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath     string
		topK        int
		query       string
		historySize int
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/rag/config.yaml if not provided)")
	flag.IntVar(&topK, "k", 0, "Number of chunks to retrieve (default from config)")
	flag.StringVar(&query, "query", "", "Run a single query and print the results instead of starting the UI")
	flag.IntVar(&historySize, "history", 0, "Print the N most recent generated answers and exit")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if topK > 0 {
		cfg.Retrieval.TopK = topK
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	// the UI owns the terminal, so interactive runs log to a file
	if query == "" && historySize == 0 && cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(os.TempDir(), "rag.log")
	}
	logCloser, err := logging.Setup(cfg.Log)
	if err != nil {
		log.Fatal(err)
	}
	defer logCloser.Close()

	ctx := context.Background()

	if historySize > 0 {
		if err := printHistory(ctx, cfg.History.Path, historySize); err != nil {
			log.Fatal(err)
		}
		return
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Println("Usage: rag [-config=config.yaml] [-k=3] [-query=text] [-history=N] <doc_dir>")
		os.Exit(1)
	}
	dir := args[0]
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		fmt.Fprintf(os.Stderr, "%s is not a directory\n", dir)
		os.Exit(1)
	}

	var hist *history.Store
	if cfg.History.Enabled {
		hist, err = history.Open(ctx, cfg.History.Path)
		if err != nil {
			log.Fatalf("history init failed: %v", err)
		}
		defer hist.Close()
	}

	pipeline, err := build(cfg, hist)
	if err != nil {
		log.Fatal(err)
	}

	report, err := pipeline.Ingest(ctx, dir)
	if err != nil {
		log.Fatalf("ingest failed: %v", err)
	}
	for _, s := range report.Skipped {
		fmt.Fprintf(os.Stderr, "skipped %s: %s\n", s.Path, s.Reason)
	}

	if query != "" {
		if err := printResults(ctx, os.Stdout, pipeline, query, cfg.Retrieval.TopK); err != nil {
			log.Fatal(err)
		}
		return
	}

	m := tui.New(pipeline, report, cfg.Retrieval.TopK)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}

// build assembles the pipeline from configuration.
func build(cfg *config.AppConfig, hist *history.Store) (*service.Pipeline, error) {
	var emb embedding.Embedder
	switch cfg.Embedder.Type {
	case "hashing":
		e, err := hashing.NewEmbedder(cfg.Embedder.Dimension)
		if err != nil {
			return nil, err
		}
		emb = e
	case "openai":
		oc := cfg.Embedder.OpenAI
		client, err := openai.NewClient(openai.Config{
			BaseURL:           oc.BaseURL,
			APIKeyEnv:         oc.APIKeyEnv,
			Model:             oc.Model,
			Dimension:         cfg.Embedder.Dimension,
			BatchSize:         oc.BatchSize,
			Timeout:           time.Duration(oc.TimeoutSecs) * time.Second,
			RequestsPerSecond: oc.RequestsPerSecond,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		emb = client
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	var ch domain.Chunker
	var err error
	switch cfg.Chunker.Type {
	case "window":
		ch, err = chunker.NewWindowChunker(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap)
	case "sentence":
		ch, err = chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)
	default:
		err = fmt.Errorf("unknown chunker: %s", cfg.Chunker.Type)
	}
	if err != nil {
		return nil, err
	}

	store, err := memory.NewStorage(cfg.Embedder.Dimension)
	if err != nil {
		return nil, err
	}

	deps := service.Deps{
		Source:   loader.NewSource(log.StandardLogger()),
		Chunker:  ch,
		Embedder: emb,
		Store:    store,
		Logger:   log.StandardLogger(),
	}
	if cfg.Summarizer.Type == "frequency" {
		deps.Summarizer = summarizer.NewFrequencySummarizer()
	}
	if cfg.Generator.Type == "openai" {
		gen, err := generator.NewClient(generator.Config{
			BaseURL:   cfg.Generator.BaseURL,
			APIKeyEnv: cfg.Generator.APIKeyEnv,
			Model:     cfg.Generator.Model,
			Timeout:   time.Duration(cfg.Generator.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("generator init failed: %w", err)
		}
		deps.Generator = gen
	}
	if hist != nil {
		deps.History = history.Recorder{Store: hist}
	}

	return service.NewPipeline(deps, service.Options{
		SummaryMaxSentences: cfg.Summarizer.MaxSentences,
		SystemPrompt:        cfg.Generator.SystemPrompt,
		Language:            cfg.Generator.Language,
	})
}

func printResults(ctx context.Context, w io.Writer, p *service.Pipeline, query string, k int) error {
	results, err := p.Retrieve(ctx, query, k)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(w, "No matching chunks.")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(w, "%d. [%.4f] %s #%d\n%s\n\n", i+1, r.Distance, r.Metadata.Source, r.Metadata.ChunkIndex, r.Metadata.Text)
	}
	return nil
}

func printHistory(ctx context.Context, path string, n int) error {
	store, err := history.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()
	entries, err := store.List(ctx, n)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("#%d %s [%s]\nQ: %s\nA: %s\n\n", e.ID, e.CreatedAt.Local().Format(time.DateTime), e.Language, e.Prompt, e.Response)
	}
	return nil
}
