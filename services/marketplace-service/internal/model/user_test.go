package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKarmaFromRating(t *testing.T) {
	tests := []struct {
		name      string
		average   float64
		completed int
		want      int
	}{
		{"neutral newcomer", NeutralRating, 0, DefaultKarmaScore},
		{"neutral with work", NeutralRating, 3, 56},
		{"five stars", 5, 1, 72},
		{"one star", 1, 0, 30},
		{"clamped high", 5, 40, 100},
		{"zero average", 0, 0, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KarmaFromRating(tt.average, tt.completed))
		})
	}
}
