package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"knowledgebase/internal/embedding/openai"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	BatchSize         int     `yaml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string                `yaml:"type"`
	Dimension int                   `yaml:"dimension"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	ChunkSize         int    `yaml:"chunk_size"`
	Overlap           int    `yaml:"overlap"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// VectorStoreConfig selects the vector store implementation.
type VectorStoreConfig struct {
	Type string `yaml:"type"`
}

// RetrievalConfig configures query-time behaviour.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// GeneratorConfig configures the optional answer generator.
type GeneratorConfig struct {
	Type         string `yaml:"type"`
	BaseURL      string `yaml:"base_url"`
	APIKeyEnv    string `yaml:"api_key_env"`
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`
	Language     string `yaml:"language"`
	TimeoutSecs  int    `yaml:"timeout_secs"`
}

// HistoryConfig configures the prompt/response log.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LogConfig configures application logging.
type LogConfig struct {
	Level string `yaml:"level"`
	// File receives log output. Empty means stderr.
	File string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Generator   GeneratorConfig   `yaml:"generator"`
	History     HistoryConfig     `yaml:"history"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Environment variables in the file are expanded; unknown keys are rejected.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	data = []byte(os.ExpandEnv(string(data)))

	// keys missing from the file keep their default values
	cfg := defaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/rag/config.yaml.
// If neither exists, it writes defaults to ~/.config/rag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the configuration before any component is built.
func (c *AppConfig) Validate() error {
	var errs []error
	switch c.Chunker.Type {
	case "window":
		if c.Chunker.ChunkSize <= 0 {
			errs = append(errs, fmt.Errorf("chunker.chunk_size must be positive, got %d", c.Chunker.ChunkSize))
		}
		if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.ChunkSize {
			errs = append(errs, fmt.Errorf("chunker.overlap must be in [0, chunk_size), got %d", c.Chunker.Overlap))
		}
	case "sentence":
		if c.Chunker.SentencesPerChunk <= 0 {
			errs = append(errs, fmt.Errorf("chunker.sentences_per_chunk must be positive, got %d", c.Chunker.SentencesPerChunk))
		}
		if c.Chunker.OverlapSentences < 0 || c.Chunker.OverlapSentences >= c.Chunker.SentencesPerChunk {
			errs = append(errs, fmt.Errorf("chunker.overlap_sentences must be in [0, sentences_per_chunk), got %d", c.Chunker.OverlapSentences))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown chunker.type %q", c.Chunker.Type))
	}

	switch c.Embedder.Type {
	case "hashing", "openai":
	default:
		errs = append(errs, fmt.Errorf("unknown embedder.type %q", c.Embedder.Type))
	}
	if c.Embedder.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("embedder.dimension must be positive, got %d", c.Embedder.Dimension))
	}
	if c.VectorStore.Type != "memory" {
		errs = append(errs, fmt.Errorf("unknown vector_store.type %q", c.VectorStore.Type))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK))
	}
	if c.Summarizer.Type != "frequency" && c.Summarizer.Type != "none" {
		errs = append(errs, fmt.Errorf("unknown summarizer.type %q", c.Summarizer.Type))
	}
	if c.Generator.Type != "none" && c.Generator.Type != "openai" {
		errs = append(errs, fmt.Errorf("unknown generator.type %q", c.Generator.Type))
	}
	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, errors.New("history.path is required when history is enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "rag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Embedder: EmbedderConfig{Type: "hashing", Dimension: 384},
		Chunker: ChunkerConfig{
			Type:              "window",
			ChunkSize:         500,
			Overlap:           50,
			SentencesPerChunk: 5,
			OverlapSentences:  1,
		},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Retrieval:   RetrievalConfig{TopK: 3},
		Summarizer:  SummarizerConfig{Type: "frequency", MaxSentences: 3},
		Generator: GeneratorConfig{
			Type:         "none",
			BaseURL:      "https://api.openai.com/v1",
			APIKeyEnv:    "OPENAI_API_KEY",
			Model:        "gpt-4o-mini",
			SystemPrompt: "Answer the question using only the provided context. If the context is not sufficient, say so.",
			Language:     "english",
			TimeoutSecs:  60,
		},
		History: HistoryConfig{Path: "generated_content.db"},
		Log:     LogConfig{Level: "info"},
	}
}

// applyConfigDefaults fills the optional openai embedder block, which is
// absent from the defaults written to disk.
func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type != "openai" {
		return
	}
	if cfg.Embedder.OpenAI == nil {
		cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
	}
	oc := cfg.Embedder.OpenAI
	if oc.BaseURL == "" {
		oc.BaseURL = openai.DefaultBaseURL
	}
	if oc.APIKeyEnv == "" {
		oc.APIKeyEnv = "OPENAI_API_KEY"
	}
	if oc.Model == "" {
		oc.Model = openai.DefaultModel
	}
	if oc.TimeoutSecs == 0 {
		oc.TimeoutSecs = int(openai.DefaultTimeout / time.Second)
	}
	if oc.BatchSize == 0 {
		oc.BatchSize = openai.DefaultBatchSize
	}
}
