package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledgebase/internal/domain"
)

type fakePort struct {
	results   []domain.SearchResult
	err       error
	canAnswer bool
	gotK      int
}

func (f *fakePort) Retrieve(_ context.Context, _ string, k int) ([]domain.SearchResult, error) {
	f.gotK = k
	return f.results, f.err
}

func (f *fakePort) Answer(_ context.Context, q string, k int) (*domain.Answer, error) {
	f.gotK = k
	return &domain.Answer{Question: q, Text: "Dogs are the loyal ones.", Sources: f.results}, nil
}

func (f *fakePort) CanAnswer() bool { return f.canAnswer }

func result(row int, text string, dist float64) domain.SearchResult {
	return domain.SearchResult{
		RowID:    row,
		Distance: dist,
		Metadata: domain.Metadata{Text: text, Source: "/docs/animals.txt", ChunkIndex: row},
	}
}

func typeQuery(t *testing.T, m Model, q string) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(q)})
	return next.(Model)
}

// press sends a key and feeds the resulting command's message back in.
func press(t *testing.T, m Model, key tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(key)
	require.NotNil(t, cmd)
	next, _ = next.Update(cmd())
	return next.(Model)
}

func TestEnterRetrievesAndCycles(t *testing.T) {
	port := &fakePort{results: []domain.SearchResult{
		result(1, "Dogs are loyal.", 1),
		result(0, "Cats are furry.", 2),
	}}
	m := typeQuery(t, New(port, &domain.IngestReport{Documents: 2, Total: 2}, 3), "loyal")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, 3, port.gotK)
	require.Len(t, m.results, 2)
	assert.Contains(t, m.status, "loyal")
	assert.Contains(t, m.renderCurrentResult(), "distance=1.0000")
	assert.Contains(t, m.renderCurrentResult(), "animals.txt #1")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 1, m.cursor)
	assert.Contains(t, m.renderCurrentResult(), "Cats are furry.")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 0, next.(Model).cursor)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, next.(Model).cursor)
	assert.Contains(t, next.(Model).View(), "Knowledge Base Search")
}

func TestEnterShowsErrors(t *testing.T) {
	port := &fakePort{err: errors.New("embedding backend down")}
	m := typeQuery(t, New(port, nil, 3), "anything")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.status, "embedding backend down")
	assert.Empty(t, m.results)
}

func TestCtrlAWithoutGenerator(t *testing.T) {
	m := typeQuery(t, New(&fakePort{}, nil, 3), "question")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlA})
	assert.Nil(t, cmd)
	assert.Contains(t, next.(Model).status, "not configured")
}

func TestCtrlAAnswers(t *testing.T) {
	port := &fakePort{canAnswer: true, results: []domain.SearchResult{result(1, "Dogs are loyal.", 1)}}
	m := typeQuery(t, New(port, nil, 2), "who is loyal")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlA})
	require.NotNil(t, m.answer)
	assert.Contains(t, m.renderContent(), "Dogs are the loyal ones.")
	assert.Contains(t, m.renderContent(), "Dogs are loyal.")
	assert.Equal(t, 2, port.gotK)
}

func TestDescribeReport(t *testing.T) {
	s := describe(&domain.IngestReport{
		Documents: 3,
		Total:     10,
		Skipped:   []domain.SkippedDocument{{Path: "x.pdf"}},
		Summary:   "Cats are furry.",
	})
	assert.Equal(t, "3 documents, 10 chunks indexed, 1 skipped  Cats are furry.", s)
}

func TestHighlightBestSentence(t *testing.T) {
	out := highlightBestSentence("Cats are furry. Dogs are loyal.", "loyal dogs")
	assert.Contains(t, out, "Cats are furry.")
	assert.Contains(t, out, "Dogs are loyal.")
	assert.Equal(t, "Cats are furry. Dogs are loyal.", highlightBestSentence("Cats are furry. Dogs are loyal.", ""))
}
