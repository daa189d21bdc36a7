// Package lifecycle owns creation, duplicate-checking, and moderated
// mutation of Key Event mappings through the proposal workflow.
package lifecycle

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/database"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/metrics"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/models"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/tracing"
)

// MappingStore is the mapping persistence surface the service needs
type MappingStore interface {
	Create(ctx context.Context, m *models.Mapping) (*models.Mapping, error)
	Get(ctx context.Context, id string) (*models.Mapping, error)
	GetByPair(ctx context.Context, sourceID, targetID string) (*models.Mapping, error)
	ListBySource(ctx context.Context, sourceID string) ([]models.Mapping, error)
	UpdateFields(ctx context.Context, id string, connectionType models.ConnectionType, confidenceLevel models.ConfidenceLevel) (*models.Mapping, error)
	Delete(ctx context.Context, id string) error
}

// ProposalStore is the proposal persistence surface the service needs
type ProposalStore interface {
	Create(ctx context.Context, p *models.Proposal) (*models.Proposal, error)
	Get(ctx context.Context, id string) (*models.Proposal, error)
	GetForReview(ctx context.Context, id string) (*models.Proposal, error)
	Resolve(ctx context.Context, id string, status models.ProposalStatus, reviewedBy string) error
}

// TxStarter begins or joins a datastore transaction
type TxStarter interface {
	GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error)
}

// Emitter publishes mapping lifecycle events
type Emitter interface {
	EmitMappingCreated(ctx context.Context, mapping *models.Mapping) error
	EmitMappingUpdated(ctx context.Context, mapping *models.Mapping, reviewer string, proposalID string) error
	EmitMappingDeleted(ctx context.Context, mapping *models.Mapping, reviewer string, proposalID string) error
}

// Service coordinates mapping submissions and the proposal review workflow
type Service struct {
	db        TxStarter
	mappings  MappingStore
	proposals ProposalStore
	emitter   Emitter
	logger    ectologger.Logger
	validate  *validator.Validate
}

// NewService creates a new lifecycle service. emitter may be nil when no
// broker is configured.
func NewService(db TxStarter, mappings MappingStore, proposals ProposalStore, emitter Emitter, logger ectologger.Logger) *Service {
	return &Service{
		db:        db,
		mappings:  mappings,
		proposals: proposals,
		emitter:   emitter,
		logger:    logger,
		validate:  validator.New(),
	}
}

// Check reports whether the exact (source, target) pair already exists and,
// when it does not, which other mappings the source already has. The existing
// matches are context for the submitter, not a block.
func (s *Service) Check(ctx context.Context, sourceID, targetID string) (*models.CheckResult, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.Check")
	defer span.End()

	if sourceID == "" || targetID == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "source_id and target_id are required")
	}

	existing, err := s.mappings.GetByPair(ctx, sourceID, targetID)
	if err != nil {
		return nil, err
	}

	sourceMappings, err := s.mappings.ListBySource(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	matches := make([]models.Mapping, 0, len(sourceMappings))
	for _, m := range sourceMappings {
		if m.TargetID != targetID {
			matches = append(matches, m)
		}
	}

	return &models.CheckResult{
		PairExists:      existing != nil,
		SourceExists:    len(sourceMappings) > 0,
		ExistingMatches: matches,
	}, nil
}

// Submit validates and inserts a new mapping. The unique constraint on
// (source_id, target_id) is the serialization point for concurrent
// submissions of the same pair.
func (s *Service) Submit(ctx context.Context, req models.CreateMappingRequest, creator string) (*models.Mapping, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.Submit")
	defer span.End()

	if creator == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "creator identity is required")
	}
	if err := s.validate.Struct(req); err != nil {
		metrics.MappingsSubmitted.WithLabelValues("invalid").Inc()
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid submission: %v", err)
	}
	if !models.ValidConnectionType(req.ConnectionType) {
		metrics.MappingsSubmitted.WithLabelValues("invalid").Inc()
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid connection type %q", req.ConnectionType)
	}
	if !models.ValidConfidenceLevel(req.ConfidenceLevel) {
		metrics.MappingsSubmitted.WithLabelValues("invalid").Inc()
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid confidence level %q", req.ConfidenceLevel)
	}

	mapping := &models.Mapping{
		SourceID:        req.SourceID,
		TargetID:        req.TargetID,
		ConnectionType:  req.ConnectionType,
		ConfidenceLevel: req.ConfidenceLevel,
		CreatedBy:       creator,
	}

	created, err := s.mappings.Create(ctx, mapping)
	if err != nil {
		if httperror.GetStatusCode(err) == http.StatusConflict {
			metrics.MappingsSubmitted.WithLabelValues("conflict").Inc()
		} else {
			metrics.MappingsSubmitted.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	metrics.MappingsSubmitted.WithLabelValues("created").Inc()

	if s.emitter != nil {
		// Emission is best effort; the mapping is already committed
		if err := s.emitter.EmitMappingCreated(ctx, created); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to emit mapping.created event")
		}
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"mapping_id": created.ID,
		"source_id":  created.SourceID,
		"target_id":  created.TargetID,
	}).Info("Created mapping")

	return created, nil
}

// Propose records a pending change request against an existing mapping
func (s *Service) Propose(ctx context.Context, req models.CreateProposalRequest, submitter string) (*models.Proposal, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.Propose")
	defer span.End()

	if submitter == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "submitter identity is required")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid proposal: %v", err)
	}

	mapping, err := s.mappings.Get(ctx, req.MappingID)
	if err != nil {
		return nil, err
	}

	if err := validateMutation(req.Mutation, mapping); err != nil {
		return nil, err
	}

	proposal := &models.Proposal{
		MappingID:          mapping.ID,
		Submitter:          submitter,
		Contact:            req.Contact,
		Reason:             req.Reason,
		DeleteRequested:    req.Mutation.Delete,
		NewConnectionType:  req.Mutation.ConnectionType,
		NewConfidenceLevel: req.Mutation.ConfidenceLevel,
	}

	created, err := s.proposals.Create(ctx, proposal)
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"proposal_id": created.ID,
		"mapping_id":  mapping.ID,
		"delete":      created.DeleteRequested,
	}).Info("Created proposal")

	return created, nil
}

// Review applies a terminal decision to a pending proposal. The proposal
// transition and the mapping mutation commit as one transaction; the row
// lock taken by GetForReview serializes concurrent reviews of the same
// proposal.
func (s *Service) Review(ctx context.Context, proposalID string, decision models.ReviewDecision, reviewer string) (*models.Proposal, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.Review")
	defer span.End()

	if reviewer == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "reviewer identity is required")
	}
	if !models.ValidReviewDecision(decision) {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid review decision %q", decision)
	}

	ctxTx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	// ctxTx marks the transaction open and turns Rollback into a no-op;
	// the deferred rollback must use the pre-transaction context
	defer tx.Rollback(ctx)

	proposal, err := s.proposals.GetForReview(ctxTx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status != models.ProposalStatusPending {
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "proposal %s is already %s", proposalID, proposal.Status)
	}

	mapping, err := s.mappings.Get(ctxTx, proposal.MappingID)
	if err != nil {
		return nil, err
	}

	var deleted bool
	var updated *models.Mapping
	if decision == models.ReviewDecisionApprove {
		mutation := proposal.Mutation()
		if mutation.IsDelete() {
			if err := s.mappings.Delete(ctxTx, mapping.ID); err != nil {
				return nil, err
			}
			deleted = true
		} else {
			connectionType, confidenceLevel := resolveFieldChanges(mutation, mapping)
			if !models.ValidConnectionType(connectionType) || !models.ValidConfidenceLevel(confidenceLevel) {
				return nil, httperror.NewHTTPErrorf(http.StatusUnprocessableEntity, "proposal %s carries values outside the current enumerations", proposalID)
			}
			updated, err = s.mappings.UpdateFields(ctxTx, mapping.ID, connectionType, confidenceLevel)
			if err != nil {
				return nil, err
			}
		}
	}

	status := models.ProposalStatusRejected
	if decision == models.ReviewDecisionApprove {
		status = models.ProposalStatusApproved
	}
	if err := s.proposals.Resolve(ctxTx, proposalID, status, reviewer); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctxTx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit review")
	}
	metrics.ProposalDecisions.WithLabelValues(string(decision)).Inc()

	if s.emitter != nil && decision == models.ReviewDecisionApprove {
		if deleted {
			if err := s.emitter.EmitMappingDeleted(ctx, mapping, reviewer, proposalID); err != nil {
				s.logger.WithContext(ctx).WithError(err).Warn("Failed to emit mapping.deleted event")
			}
		} else if updated != nil {
			if err := s.emitter.EmitMappingUpdated(ctx, updated, reviewer, proposalID); err != nil {
				s.logger.WithContext(ctx).WithError(err).Warn("Failed to emit mapping.updated event")
			}
		}
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"proposal_id": proposalID,
		"decision":    decision,
		"mapping_id":  proposal.MappingID,
	}).Info("Reviewed proposal")

	return s.proposals.Get(ctx, proposalID)
}

// validateMutation rejects mutations that are structurally invalid or that
// would not change the mapping
func validateMutation(mutation models.ProposalMutation, mapping *models.Mapping) error {
	if mutation.IsDelete() && mutation.HasFieldChanges() {
		return httperror.NewHTTPError(http.StatusBadRequest, "a proposal cannot both delete the mapping and change its fields")
	}
	if !mutation.IsDelete() && !mutation.HasFieldChanges() {
		return httperror.NewHTTPError(http.StatusBadRequest, "proposal specifies no change")
	}
	if mutation.IsDelete() {
		return nil
	}

	if mutation.ConnectionType != nil && !models.ValidConnectionType(*mutation.ConnectionType) {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid connection type %q", *mutation.ConnectionType)
	}
	if mutation.ConfidenceLevel != nil && !models.ValidConfidenceLevel(*mutation.ConfidenceLevel) {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid confidence level %q", *mutation.ConfidenceLevel)
	}

	connectionType, confidenceLevel := resolveFieldChanges(mutation, mapping)
	if connectionType == mapping.ConnectionType && confidenceLevel == mapping.ConfidenceLevel {
		return httperror.NewHTTPError(http.StatusBadRequest, "proposal matches the current mapping state")
	}
	return nil
}

// resolveFieldChanges fills unchanged fields from the current mapping state
func resolveFieldChanges(mutation models.ProposalMutation, mapping *models.Mapping) (models.ConnectionType, models.ConfidenceLevel) {
	connectionType := mapping.ConnectionType
	if mutation.ConnectionType != nil {
		connectionType = *mutation.ConnectionType
	}
	confidenceLevel := mapping.ConfidenceLevel
	if mutation.ConfidenceLevel != nil {
		confidenceLevel = *mutation.ConfidenceLevel
	}
	return connectionType, confidenceLevel
}
