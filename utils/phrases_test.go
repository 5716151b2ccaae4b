package utils

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var phraseShape = regexp.MustCompile(`^[a-z]+-[a-z]+-\d{2}$`)

func TestPhrasesGenerateDistinct(t *testing.T) {
	gen := NewPhrases()

	batch := gen.Generate(50)
	assert.Len(t, batch, 50)

	seen := make(map[string]bool, len(batch))
	for _, phrase := range batch {
		assert.Regexp(t, phraseShape, phrase)
		assert.False(t, seen[phrase], "phrase %q repeated in batch", phrase)
		seen[phrase] = true
	}
}

func TestPhrasesGenerateZero(t *testing.T) {
	assert.Empty(t, NewPhrases().Generate(0))
}

// A request beyond the adjective×noun×number space must return short rather
// than loop forever hunting for tokens that cannot exist.
func TestPhrasesGenerateBeyondSpaceTerminates(t *testing.T) {
	space := len(phraseAdjectives) * len(phraseNouns) * 90

	done := make(chan []string, 1)
	go func() {
		done <- NewPhrases().Generate(space + 1)
	}()

	select {
	case batch := <-done:
		assert.NotEmpty(t, batch)
		assert.Less(t, len(batch), space+1)
		seen := make(map[string]bool, len(batch))
		for _, phrase := range batch {
			assert.False(t, seen[phrase], "phrase %q repeated in batch", phrase)
			seen[phrase] = true
		}
	case <-time.After(30 * time.Second):
		t.Fatal("Generate did not terminate for an over-space request")
	}
}
