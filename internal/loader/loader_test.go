package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestList_SortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", []byte("b"))
	writeFile(t, dir, "a.md", []byte("a"))
	writeFile(t, dir, "c.PDF", []byte("c"))
	writeFile(t, dir, "image.png", []byte("png"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.txt"), 0o755))

	entries, err := List(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, Entry{Path: filepath.Join(dir, "a.md"), FileType: TypeMarkdown}, entries[0])
	assert.Equal(t, Entry{Path: filepath.Join(dir, "b.txt"), FileType: TypeText}, entries[1])
	assert.Equal(t, TypePDF, entries[2].FileType)
}

func TestList_FollowsSymlinks(t *testing.T) {
	target := writeFile(t, t.TempDir(), "real.txt", []byte("Linked content."))
	dir := t.TempDir()
	if err := os.Symlink(target, filepath.Join(dir, "linked.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone.txt"), filepath.Join(dir, "dangling.txt")))
	require.NoError(t, os.Symlink(t.TempDir(), filepath.Join(dir, "folder.md")))

	entries, err := List(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Entry{Path: filepath.Join(dir, "linked.txt"), FileType: TypeText}, entries[0])

	text, err := ReadDocument(context.Background(), entries[0])
	require.NoError(t, err)
	assert.Equal(t, "Linked content.", text)
}

func TestReadDocument_PDF(t *testing.T) {
	text, err := ReadDocument(context.Background(), Entry{Path: filepath.Join("testdata", "hello.pdf"), FileType: TypePDF})
	require.NoError(t, err)
	assert.Contains(t, text, "Hello from a PDF document.")
}

func TestSource_LoadPDF(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "hello.pdf"))
	require.NoError(t, err)
	dir := t.TempDir()
	p := writeFile(t, dir, "hello.pdf", data)

	docs, skipped, err := NewSource(nil).Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, docs, 1)
	assert.Equal(t, p, docs[0].Path)
	assert.Equal(t, TypePDF, docs[0].FileType)
	assert.Contains(t, docs[0].Content, "Hello from a PDF document.")
}

func TestList_MissingDir(t *testing.T) {
	_, err := List(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestReadDocument_RejectsInvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "bad.txt", []byte{0xff, 0xfe, 0x00})

	_, err := ReadDocument(context.Background(), Entry{Path: p, FileType: TypeText})
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestSource_Load(t *testing.T) {
	dir := t.TempDir()
	cats := writeFile(t, dir, "cats.txt", []byte("Cats are furry."))
	writeFile(t, dir, "dogs.md", []byte("# Dogs\nDogs are loyal."))
	writeFile(t, dir, "empty.txt", []byte("   \n"))
	broken := writeFile(t, dir, "broken.pdf", []byte("this is not a pdf"))

	logger, hook := test.NewNullLogger()
	docs, skipped, err := NewSource(logger).Load(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, cats, docs[0].Path)
	assert.Equal(t, "Cats are furry.", docs[0].Content)
	assert.Equal(t, TypeText, docs[0].FileType)
	assert.Equal(t, DocumentID(cats), docs[0].ID)
	assert.Equal(t, TypeMarkdown, docs[1].FileType)

	require.Len(t, skipped, 1)
	assert.Equal(t, broken, skipped[0].Path)
	assert.NotEmpty(t, skipped[0].Reason)

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, broken, hook.LastEntry().Data["path"])
}

func TestSource_LoadMissingDir(t *testing.T) {
	_, _, err := NewSource(nil).Load(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestDocumentID_Stable(t *testing.T) {
	assert.Equal(t, DocumentID("/docs/a.txt"), DocumentID("/docs/a.txt"))
	assert.NotEqual(t, DocumentID("/docs/a.txt"), DocumentID("/docs/b.txt"))
}
