package letters

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextLetters(t *testing.T) {
	tests := []struct {
		current string
		want    string
	}{
		{"", "S"},
		{"S", "SK"},
		{"SK", "SKA"},
		{"SKA", "SKAT"},
		{"SKAT", "SKATE"},
		{"SKATE", "SKATE"},
		{"sk", "SKA"},
		{"S-K", "SKA"},
		{"xyz", "S"},
		{"SKATEE", "SKATE"},
		{"KA", "S"},
		{"SS", "SK"},
	}

	for _, tt := range tests {
		t.Run(tt.current, func(t *testing.T) {
			assert.Equal(t, tt.want, NextLetters(tt.current))
		})
	}
}

func TestNextLettersIsMonotonicAndBounded(t *testing.T) {
	letters := ""
	for i := 0; i < 10; i++ {
		next := NextLetters(letters)
		assert.GreaterOrEqual(t, len(next), len(letters))
		assert.LessOrEqual(t, len(next), len(Word))
		assert.Equal(t, Word[:len(next)], next)
		letters = next
	}
	assert.Equal(t, Word, letters)
}

func TestIsFinished(t *testing.T) {
	assert.True(t, IsFinished("SKATE"))
	assert.True(t, IsFinished("skate"))
	assert.False(t, IsFinished("SKAT"))
	assert.False(t, IsFinished(""))
	assert.False(t, IsFinished("SKATEE"))
	assert.False(t, IsFinished("ESKAT"))
	assert.True(t, IsFinished("S-K-A-T-E"))
	assert.True(t, IsFinished(" skate!"))
	assert.False(t, IsFinished("S.K.A.T"))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "", Sanitize(""))
	assert.Equal(t, "SKA", Sanitize(" s k a "))
	assert.Equal(t, "S", Sanitize("SA"))
	assert.Equal(t, Word, Sanitize("SKATEEEE"))
}
