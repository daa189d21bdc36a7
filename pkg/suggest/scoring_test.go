package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func set(items ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, item := range items {
		out[item] = struct{}{}
	}
	return out
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name     string
		a        map[string]struct{}
		b        map[string]struct{}
		expected float64
	}{
		{
			name:     "identical sets",
			a:        set("TP53", "BAX"),
			b:        set("TP53", "BAX"),
			expected: 1.0,
		},
		{
			name:     "partial overlap",
			a:        set("TP53", "BAX", "CASP3"),
			b:        set("TP53", "MDM2"),
			expected: 0.25,
		},
		{
			name:     "no overlap",
			a:        set("TP53"),
			b:        set("MDM2"),
			expected: 0.0,
		},
		{
			name:     "empty left",
			a:        nil,
			b:        set("TP53"),
			expected: 0.0,
		},
		{
			name:     "both empty",
			a:        nil,
			b:        nil,
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Jaccard(tt.a, tt.b), 1e-9)
			// symmetric
			assert.InDelta(t, tt.expected, Jaccard(tt.b, tt.a), 1e-9)
		})
	}
}

func TestOverlapCoefficient(t *testing.T) {
	// |a∩b| / min(|a|,|b|): full containment of the smaller set scores 1
	a := set("TP53", "BAX", "CASP3")
	b := set("TP53", "BAX")
	assert.InDelta(t, 1.0, OverlapCoefficient(a, b), 1e-9)

	c := set("TP53", "MDM2")
	assert.InDelta(t, 0.5, OverlapCoefficient(a, c), 1e-9)

	assert.Zero(t, OverlapCoefficient(nil, a))
}

func TestGeneSet(t *testing.T) {
	got := GeneSet([]string{" tp53 ", "BAX", "", "bax"})
	assert.Equal(t, set("TP53", "BAX"), got)
}

func TestTokenize(t *testing.T) {
	got := Tokenize("The apoptotic signaling pathway, via TP53.")
	assert.Contains(t, got, "apoptotic")
	assert.Contains(t, got, "signaling")
	assert.Contains(t, got, "pathway")
	assert.Contains(t, got, "tp53")
	assert.NotContains(t, got, "the")
	assert.NotContains(t, got, "via")

	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("a of the"))
}
