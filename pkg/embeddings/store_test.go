package embeddings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/models"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"empty left", nil, []float32{1}, 0.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Cosine(tt.a, tt.b), 1e-6)
		})
	}
}

func TestQueryVector(t *testing.T) {
	store := NewStore(nil, map[string]KeyEventVector{
		"KE:1": {Full: []float32{1, 0}, Title: []float32{0, 1}},
		"KE:2": {Title: []float32{0, 1}},
		"KE:3": {},
	}, 1)

	vec, nameOnly, ok := store.QueryVector("KE:1")
	require.True(t, ok)
	assert.False(t, nameOnly)
	assert.Equal(t, []float32{1, 0}, vec)

	vec, nameOnly, ok = store.QueryVector("KE:2")
	require.True(t, ok)
	assert.True(t, nameOnly)
	assert.Equal(t, []float32{0, 1}, vec)

	_, _, ok = store.QueryVector("KE:3")
	assert.False(t, ok)

	_, _, ok = store.QueryVector("KE:unknown")
	assert.False(t, ok)
}

func TestScoreAll(t *testing.T) {
	terms := []models.OntologyTerm{
		{ID: "T1", Embedding: []float32{1, 0}, NameEmbedding: []float32{0, 1}},
		{ID: "T2", Embedding: []float32{0, 1}},
		{ID: "T3", NameEmbedding: []float32{1, 0}},
		{ID: "T4"},
	}
	store := NewStore(terms, nil, 2)

	scores := store.ScoreAll([]float32{1, 0}, false)
	require.Len(t, scores, 4)
	assert.InDelta(t, 1.0, scores[0], 1e-6)
	assert.InDelta(t, 0.0, scores[1], 1e-6)
	// T3 has no full-text embedding; its name embedding serves as fallback
	assert.InDelta(t, 1.0, scores[2], 1e-6)
	assert.Zero(t, scores[3])

	// nameOnly flips the preference
	scores = store.ScoreAll([]float32{1, 0}, true)
	assert.InDelta(t, 0.0, scores[0], 1e-6)
	assert.InDelta(t, 0.0, scores[1], 1e-6)
	assert.InDelta(t, 1.0, scores[2], 1e-6)

	assert.Equal(t, make([]float64, 4), store.ScoreAll(nil, false))
}

func TestScoreAllClampsNegativeCosine(t *testing.T) {
	terms := []models.OntologyTerm{
		{ID: "T1", Embedding: []float32{-1, 0}},
		{ID: "T2", Embedding: []float32{1, -1}},
	}
	store := NewStore(terms, nil, 1)

	// Opposing vectors cosine at -1; scores must stay in [0,1]
	scores := store.ScoreAll([]float32{1, 0}, false)
	require.Len(t, scores, 2)
	for i, score := range scores {
		assert.GreaterOrEqual(t, score, 0.0, "term %d", i)
		assert.LessOrEqual(t, score, 1.0, "term %d", i)
	}
	assert.Zero(t, scores[0])
}

func TestScoreAllWorkerCounts(t *testing.T) {
	terms := make([]models.OntologyTerm, 17)
	for i := range terms {
		terms[i] = models.OntologyTerm{ID: string(rune('A' + i)), Embedding: []float32{1, 0}}
	}

	// Every worker count must produce the same result
	expected := NewStore(terms, nil, 1).ScoreAll([]float32{1, 0}, false)
	for _, workers := range []int{0, 2, 4, 32} {
		got := NewStore(terms, nil, workers).ScoreAll([]float32{1, 0}, false)
		assert.Equal(t, expected, got, "workers=%d", workers)
	}
}

func TestStoreLookup(t *testing.T) {
	terms := []models.OntologyTerm{
		{ID: "GO:0006915", Name: "apoptotic process"},
		{ID: "WP:WP254", Name: "apoptosis"},
	}
	store := NewStore(terms, nil, 1)

	assert.Equal(t, 2, store.Size())

	term, ok := store.Term("WP:WP254")
	require.True(t, ok)
	assert.Equal(t, "apoptosis", term.Name)

	_, ok = store.Term("WP:none")
	assert.False(t, ok)
}

func writeArtifact(t *testing.T, dir, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := ""
	for _, line := range lines {
		content += line + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	termPath := writeArtifact(t, dir, "terms.jsonl", []string{
		`{"id":"GO:0006915","kind":"go_bp","name":"apoptotic process","embedding":[0.1,0.2],"genes":["TP53"]}`,
		``,
		`{"id":"WP:WP254","kind":"pathway","name":"apoptosis","embedding":[0.3,0.4]}`,
	})
	kePath := writeArtifact(t, dir, "key_events.jsonl", []string{
		`{"id":"KE:55","embedding":[0.5,0.6],"title_embedding":[0.7,0.8]}`,
	})

	store, err := Load(LoaderConfig{TermArtifactPath: termPath, KeyEventArtifactPath: kePath, Workers: 2}, logger)
	require.NoError(t, err)

	assert.Equal(t, 2, store.Size())
	term, ok := store.Term("GO:0006915")
	require.True(t, ok)
	assert.Equal(t, models.TermKindGOBP, term.Kind)
	assert.Equal(t, []string{"TP53"}, term.Genes)

	vec, nameOnly, ok := store.QueryVector("KE:55")
	require.True(t, ok)
	assert.False(t, nameOnly)
	assert.Equal(t, []float32{0.5, 0.6}, vec)

	t.Run("missing term id fails", func(t *testing.T) {
		bad := writeArtifact(t, dir, "bad.jsonl", []string{`{"name":"no id"}`})
		_, err := Load(LoaderConfig{TermArtifactPath: bad}, logger)
		assert.Error(t, err)
	})

	t.Run("malformed line fails", func(t *testing.T) {
		bad := writeArtifact(t, dir, "malformed.jsonl", []string{`{not json`})
		_, err := Load(LoaderConfig{TermArtifactPath: bad}, logger)
		assert.Error(t, err)
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := Load(LoaderConfig{TermArtifactPath: filepath.Join(dir, "absent.jsonl")}, logger)
		assert.Error(t, err)
	})

	t.Run("key event artifact optional", func(t *testing.T) {
		store, err := Load(LoaderConfig{TermArtifactPath: termPath}, logger)
		require.NoError(t, err)
		_, _, ok := store.QueryVector("KE:55")
		assert.False(t, ok)
	})
}
