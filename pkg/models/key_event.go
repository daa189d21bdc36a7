package models

// KeyEvent is a biological event node being mapped to pathway/ontology
// terms. It is fetched from its source of truth and treated as read-only.
type KeyEvent struct {
	ID              string `json:"id" validate:"required"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	BiologicalLevel string `json:"biological_level"` // e.g. molecular, cellular, organ
}
