package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountWords(t *testing.T) {
	cases := map[string]struct {
		text string
		want int
	}{
		"empty":           {"", 0},
		"only whitespace": {" \n\t ", 0},
		"single":          {"hello", 1},
		"mixed spacing":   {"  morning   pages\n\nare\tgood ", 4},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, CountWords(tc.text))
		})
	}
}

func TestProgressAndLegend(t *testing.T) {
	assert.Equal(t, 0.0, Progress(0))
	assert.Equal(t, 0.0, Progress(-5))
	assert.InDelta(t, 0.5, Progress(55), 0.01)
	assert.Equal(t, 1.0, Progress(LegendThreshold))
	assert.Equal(t, 1.0, Progress(500))

	assert.False(t, IsLegend(110))
	assert.True(t, IsLegend(111))
	assert.True(t, IsLegend(150))
}
