package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrengthFromEdge(t *testing.T) {
	cases := []struct {
		edge float64
		want SignalStrength
	}{
		{0.0, StrengthWeak},
		{0.029, StrengthWeak},
		{0.03, StrengthModerate}, // boundary lands in the higher bucket
		{0.069, StrengthModerate},
		{0.07, StrengthStrong},
		{0.119, StrengthStrong},
		{0.12, StrengthVeryStrong},
		{0.5, StrengthVeryStrong},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, StrengthFromEdge(tc.edge), "edge=%v", tc.edge)
		// Sign never matters.
		assert.Equal(t, tc.want, StrengthFromEdge(-tc.edge), "edge=%v", -tc.edge)
	}
}

func TestStrengthMonotonic(t *testing.T) {
	edges := []float64{0.0, 0.01, 0.03, 0.05, 0.07, 0.1, 0.12, 0.2, 0.9}

	for i, lo := range edges {
		for _, hi := range edges[i:] {
			assert.True(t, StrengthFromEdge(hi).AtLeast(StrengthFromEdge(lo)),
				"strength(%v) should be >= strength(%v)", hi, lo)
		}
	}
}
