package models

import "time"

// ConnectionType is the categorical relationship between a Key Event and its
// mapped term
type ConnectionType string

const (
	ConnectionTypeCausative  ConnectionType = "causative"
	ConnectionTypeResponsive ConnectionType = "responsive"
	ConnectionTypeUndefined  ConnectionType = "undefined"
)

// ValidConnectionType reports whether v is a member of the enumeration.
func ValidConnectionType(v ConnectionType) bool {
	switch v {
	case ConnectionTypeCausative, ConnectionTypeResponsive, ConnectionTypeUndefined:
		return true
	}
	return false
}

// ConfidenceLevel is the curator-assessed trust rating of a mapping
type ConfidenceLevel string

const (
	ConfidenceLevelLow    ConfidenceLevel = "low"
	ConfidenceLevelMedium ConfidenceLevel = "medium"
	ConfidenceLevelHigh   ConfidenceLevel = "high"
)

// ValidConfidenceLevel reports whether v is a member of the enumeration.
func ValidConfidenceLevel(v ConfidenceLevel) bool {
	switch v {
	case ConfidenceLevelLow, ConfidenceLevelMedium, ConfidenceLevelHigh:
		return true
	}
	return false
}

// Mapping is a persisted link between a Key Event and a pathway or ontology
// term. (SourceID, TargetID) is unique across all mappings.
type Mapping struct {
	ID              string          `json:"id" db:"id"`
	SourceID        string          `json:"source_id" db:"source_id"`
	TargetID        string          `json:"target_id" db:"target_id"`
	ConnectionType  ConnectionType  `json:"connection_type" db:"connection_type"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level" db:"confidence_level"`
	CreatedBy       string          `json:"created_by" db:"created_by"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// CreateMappingRequest is the validated input for a submission
type CreateMappingRequest struct {
	SourceID        string          `json:"source_id" validate:"required"`
	TargetID        string          `json:"target_id" validate:"required"`
	ConnectionType  ConnectionType  `json:"connection_type" validate:"required"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level" validate:"required"`
}

// CheckResult reports duplicate-detection state for a (source, target) pair.
// ExistingMatches lists other targets already mapped for the same source;
// they are context for the submitter, not a block.
type CheckResult struct {
	PairExists      bool      `json:"pair_exists"`
	SourceExists    bool      `json:"source_exists"`
	ExistingMatches []Mapping `json:"existing_matches"`
}
