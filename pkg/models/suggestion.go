package models

// MethodWeights configures the contribution of each scoring method. All
// weights must be >= 0 and at least one must be positive.
type MethodWeights struct {
	GeneOverlap float64 `json:"gene_overlap"`
	Text        float64 `json:"text"`
	Semantic    float64 `json:"semantic"`
}

// Total returns the sum of all weights.
func (w MethodWeights) Total() float64 {
	return w.GeneOverlap + w.Text + w.Semantic
}

// Valid reports whether the weights are usable: none negative, at least one
// positive.
func (w MethodWeights) Valid() bool {
	if w.GeneOverlap < 0 || w.Text < 0 || w.Semantic < 0 {
		return false
	}
	return w.Total() > 0
}

// DefaultMethodWeights weighs the three methods equally.
func DefaultMethodWeights() MethodWeights {
	return MethodWeights{GeneOverlap: 1, Text: 1, Semantic: 1}
}

// MethodScores carries the raw per-method scores for one candidate, kept on
// every result row for transparency. A method whose weight is zero is never
// computed and reports zero here, regardless of the underlying overlap.
type MethodScores struct {
	GeneOverlap float64 `json:"gene_overlap"`
	Text        float64 `json:"text"`
	Semantic    float64 `json:"semantic"`
}

// Suggestion is one ranked candidate term for a Key Event query.
type Suggestion struct {
	TermID   string       `json:"term_id"`
	TermName string       `json:"term_name"`
	Kind     TermKind     `json:"kind"`
	Score    float64      `json:"score"`
	Methods  MethodScores `json:"methods"`
}

// SuggestionResult is the ordered candidate list for one query. Ephemeral:
// produced per request, never persisted.
type SuggestionResult struct {
	KeyEventID  string       `json:"key_event_id"`
	GeneCount   int          `json:"gene_count"`
	Suggestions []Suggestion `json:"suggestions"`
}
