package models

import "time"

// ProposalStatus is the moderation state of a proposal. Approved and
// rejected are terminal.
type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "pending"
	ProposalStatusApproved ProposalStatus = "approved"
	ProposalStatusRejected ProposalStatus = "rejected"
)

// ProposalMutation is the change a proposal requests on its mapping: either
// a delete, or new field values. Exactly one of the two forms is allowed.
type ProposalMutation struct {
	Delete          bool             `json:"delete"`
	ConnectionType  *ConnectionType  `json:"connection_type,omitempty"`
	ConfidenceLevel *ConfidenceLevel `json:"confidence_level,omitempty"`
}

// IsDelete reports whether the mutation requests removal of the mapping.
func (m ProposalMutation) IsDelete() bool { return m.Delete }

// HasFieldChanges reports whether any field value is proposed.
func (m ProposalMutation) HasFieldChanges() bool {
	return m.ConnectionType != nil || m.ConfidenceLevel != nil
}

// Proposal is a pending request to mutate or delete an existing Mapping,
// subject to privileged review. Immutable once non-pending.
type Proposal struct {
	ID        string         `json:"id" db:"id"`
	MappingID string         `json:"mapping_id" db:"mapping_id"`
	Submitter string         `json:"submitter" db:"submitter"`
	Contact   *string        `json:"contact,omitempty" db:"contact"`
	Reason    *string        `json:"reason,omitempty" db:"reason"`
	// Mutation fields, flattened for storage
	DeleteRequested    bool             `json:"delete_requested" db:"delete_requested"`
	NewConnectionType  *ConnectionType  `json:"new_connection_type,omitempty" db:"new_connection_type"`
	NewConfidenceLevel *ConfidenceLevel `json:"new_confidence_level,omitempty" db:"new_confidence_level"`
	Status             ProposalStatus   `json:"status" db:"status"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at" db:"updated_at"`
	ReviewedBy         *string          `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt         *time.Time       `json:"reviewed_at,omitempty" db:"reviewed_at"`
}

// Mutation reconstructs the proposed mutation from the flattened columns.
func (p *Proposal) Mutation() ProposalMutation {
	return ProposalMutation{
		Delete:          p.DeleteRequested,
		ConnectionType:  p.NewConnectionType,
		ConfidenceLevel: p.NewConfidenceLevel,
	}
}

// ReviewDecision is the reviewer's verdict on a proposal
type ReviewDecision string

const (
	ReviewDecisionApprove ReviewDecision = "approve"
	ReviewDecisionReject  ReviewDecision = "reject"
)

// ValidReviewDecision reports whether v is a member of the enumeration.
func ValidReviewDecision(v ReviewDecision) bool {
	return v == ReviewDecisionApprove || v == ReviewDecisionReject
}

// CreateProposalRequest is the validated input for proposing a change
type CreateProposalRequest struct {
	MappingID string           `json:"mapping_id" validate:"required"`
	Contact   *string          `json:"contact,omitempty"`
	Reason    *string          `json:"reason,omitempty"`
	Mutation  ProposalMutation `json:"mutation"`
}
