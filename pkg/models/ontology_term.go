package models

// TermKind distinguishes the two target vocabularies
type TermKind string

const (
	TermKindPathway  TermKind = "pathway" // WikiPathways identifier
	TermKindGOBP     TermKind = "go_bp"   // Gene Ontology Biological Process
)

// OntologyTerm is one candidate target term. Terms are loaded in bulk at
// startup and are read-only for the process lifetime.
type OntologyTerm struct {
	ID         string    `json:"id"`
	Kind       TermKind  `json:"kind"`
	Name       string    `json:"name"`
	Definition string    `json:"definition"`
	// Embedding is computed over name + definition text
	Embedding []float32 `json:"embedding"`
	// NameEmbedding is computed over the name alone
	NameEmbedding []float32 `json:"name_embedding"`
	// Genes is the term's gene annotation set
	Genes []string `json:"genes"`
}
