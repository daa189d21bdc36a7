// Package embeddings holds the read-only term vector store loaded once at
// process start and shared by reference across requests.
package embeddings

import (
	"math"
	"sync"

	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/models"
)

// Store is an immutable in-memory collection of ontology/pathway terms and
// precomputed Key Event text embeddings. Construct once via NewStore or the
// loader; never mutated afterwards, so it is safe to share across goroutines
// without locking.
type Store struct {
	terms []models.OntologyTerm
	byID  map[string]int

	keyEventVectors map[string]KeyEventVector

	workers int
}

// KeyEventVector holds the precomputed embeddings for one Key Event: one
// over its full text, one over the title alone.
type KeyEventVector struct {
	Full  []float32
	Title []float32
}

// NewStore builds a store from fully-populated terms and Key Event vectors.
// workers bounds the parallelism of bulk scoring; values < 1 mean serial.
func NewStore(terms []models.OntologyTerm, keyEventVectors map[string]KeyEventVector, workers int) *Store {
	byID := make(map[string]int, len(terms))
	for i, t := range terms {
		byID[t.ID] = i
	}
	if keyEventVectors == nil {
		keyEventVectors = map[string]KeyEventVector{}
	}
	if workers < 1 {
		workers = 1
	}
	return &Store{
		terms:           terms,
		byID:            byID,
		keyEventVectors: keyEventVectors,
		workers:         workers,
	}
}

// Size returns the number of terms in the corpus.
func (s *Store) Size() int {
	return len(s.terms)
}

// Terms returns the term corpus. Callers must treat it as read-only.
func (s *Store) Terms() []models.OntologyTerm {
	return s.terms
}

// Term returns the term with the given id.
func (s *Store) Term(id string) (models.OntologyTerm, bool) {
	i, ok := s.byID[id]
	if !ok {
		return models.OntologyTerm{}, false
	}
	return s.terms[i], true
}

// QueryVector returns the embedding to use for a Key Event query: the
// full-text embedding when available, else the title-only embedding.
// nameOnly reports that the title fallback was taken, in which case term
// name-only embeddings should be compared against.
func (s *Store) QueryVector(keID string) (vec []float32, nameOnly bool, ok bool) {
	v, ok := s.keyEventVectors[keID]
	if !ok {
		return nil, false, false
	}
	if len(v.Full) > 0 {
		return v.Full, false, true
	}
	if len(v.Title) > 0 {
		return v.Title, true, true
	}
	return nil, false, false
}

// ScoreAll computes cosine similarity between the query vector and every
// term. With nameOnly set the term's name-only embedding is preferred;
// otherwise its full-text embedding is. Either way the other embedding
// serves as fallback when the preferred one is absent. Negative cosines
// clamp to zero so every score stays in [0,1]. The result is indexed like
// Terms(). The corpus is split into chunks scored by a bounded worker pool.
func (s *Store) ScoreAll(query []float32, nameOnly bool) []float64 {
	scores := make([]float64, len(s.terms))
	if len(query) == 0 || len(s.terms) == 0 {
		return scores
	}

	chunk := (len(s.terms) + s.workers - 1) / s.workers
	var wg sync.WaitGroup
	for start := 0; start < len(s.terms); start += chunk {
		end := start + chunk
		if end > len(s.terms) {
			end = len(s.terms)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				vec := s.terms[i].Embedding
				alt := s.terms[i].NameEmbedding
				if nameOnly {
					vec, alt = alt, vec
				}
				if len(vec) == 0 {
					vec = alt
				}
				score := Cosine(query, vec)
				if score < 0 {
					score = 0
				}
				scores[i] = score
			}
		}(start, end)
	}
	wg.Wait()

	return scores
}

// Cosine returns the cosine similarity of two vectors, 0 when either is
// empty or zero-length.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		fa := float64(a[i])
		fb := float64(b[i])
		dot += fa * fb
		na += fa * fa
		nb += fb * fb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
