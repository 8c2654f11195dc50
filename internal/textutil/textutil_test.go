package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokens_DropsStopwords(t *testing.T) {
	assert.Equal(t, []string{"dogs", "loyal"}, Tokens("Dogs are loyal."))
	assert.Equal(t, []string{"world", "war", "ii", "1939"}, Tokens("The World War II in 1939"))
	assert.Nil(t, Tokens("   "))
}

func TestWords_KeepsApostrophes(t *testing.T) {
	assert.Equal(t, []string{"don't", "panic"}, Words("Don't panic"))
}

func TestSentences(t *testing.T) {
	assert.Equal(t, []string{"Cats are furry.", "Dogs bark!", "Why?"}, Sentences("Cats are furry. Dogs bark! Why?"))
	assert.Equal(t, []string{"no punctuation here"}, Sentences("  no punctuation here "))
	assert.Nil(t, Sentences(""))
}

func TestTokenSet(t *testing.T) {
	set := TokenSet("the cat and the hat")
	assert.Len(t, set, 4)
	assert.Contains(t, set, "hat")
}
