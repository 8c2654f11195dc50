package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	log "github.com/sirupsen/logrus"

	"knowledgebase/internal/domain"
)

// File types recognised by the loader.
const (
	TypeText     = "text"
	TypeMarkdown = "markdown"
	TypePDF      = "pdf"
)

var fileTypes = map[string]string{
	".txt": TypeText,
	".md":  TypeMarkdown,
	".pdf": TypePDF,
}

// ErrInvalidUTF8 is returned for text files that are not UTF-8 encoded.
var ErrInvalidUTF8 = errors.New("file is not valid UTF-8")

// Entry is a readable file found in a document directory.
type Entry struct {
	Path     string
	FileType string
}

// List returns the supported files directly inside dir, sorted by name.
// Symlinks to files are included; subdirectories are not descended into.
func List(dir string) ([]Entry, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("loader: list %s: %w", dir, err)
	}
	var entries []Entry
	for _, it := range items {
		ft, ok := fileTypes[strings.ToLower(filepath.Ext(it.Name()))]
		if !ok {
			continue
		}
		path := filepath.Join(dir, it.Name())
		if !isRegular(it, path) {
			continue
		}
		entries = append(entries, Entry{Path: path, FileType: ft})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// isRegular reports whether the entry is a regular file, following symlinks.
// Dangling links are not files.
func isRegular(it os.DirEntry, path string) bool {
	if it.Type()&os.ModeSymlink == 0 {
		return it.Type().IsRegular()
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ReadDocument returns the text content of a listed file.
func ReadDocument(ctx context.Context, e Entry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch e.FileType {
	case TypeText, TypeMarkdown:
		data, err := os.ReadFile(e.Path)
		if err != nil {
			return "", err
		}
		if !utf8.Valid(data) {
			return "", ErrInvalidUTF8
		}
		return string(data), nil
	case TypePDF:
		return readPDF(e.Path)
	default:
		return "", fmt.Errorf("unsupported file type %q", e.FileType)
	}
}

func readPDF(path string) (text string, err error) {
	// the pdf parser panics on some malformed input
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DocumentID derives a stable identifier from a file path.
func DocumentID(path string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(path)).String()
}

// Source loads documents from a local directory.
type Source struct {
	log log.FieldLogger
}

// NewSource creates a Source. A nil logger uses the standard logrus logger.
func NewSource(logger log.FieldLogger) *Source {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Source{log: logger}
}

// Load reads every supported file in dir. Files that cannot be read are
// reported as skipped and logged; empty files are dropped silently.
func (s *Source) Load(ctx context.Context, dir string) ([]domain.Document, []domain.SkippedDocument, error) {
	entries, err := List(dir)
	if err != nil {
		return nil, nil, err
	}
	var (
		docs    []domain.Document
		skipped []domain.SkippedDocument
	)
	for _, e := range entries {
		content, err := ReadDocument(ctx, e)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			s.log.WithField("path", e.Path).WithError(err).Warn("Skipping unreadable document")
			skipped = append(skipped, domain.SkippedDocument{Path: e.Path, Reason: err.Error()})
			continue
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		docs = append(docs, domain.Document{
			ID:       DocumentID(e.Path),
			Path:     e.Path,
			FileType: e.FileType,
			Content:  content,
		})
	}
	return docs, skipped, nil
}
