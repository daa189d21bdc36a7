package proposal

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/database"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/models"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/tracing"
)

const allColumns = "id, mapping_id, submitter, contact, reason, delete_requested, new_connection_type, new_confidence_level, status, created_at, updated_at, reviewed_by, reviewed_at"

// Repository handles proposal persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new proposal repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create persists a new pending proposal
func (r *Repository) Create(ctx context.Context, p *models.Proposal) (*models.Proposal, error) {
	ctx, span := tracing.StartSpan(ctx, "proposal.Repository.Create")
	defer span.End()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	p.Status = models.ProposalStatusPending

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("proposals")
	sb.Cols("id", "mapping_id", "submitter", "contact", "reason", "delete_requested", "new_connection_type", "new_confidence_level", "status", "created_at", "updated_at")
	sb.Values(p.ID, p.MappingID, p.Submitter, p.Contact, p.Reason, p.DeleteRequested, p.NewConnectionType, p.NewConfidenceLevel, p.Status, p.CreatedAt, p.UpdatedAt)

	query, args := sb.Build()
	if _, err := database.GetQuerier(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"proposal_id": p.ID}).Error("Failed to create proposal")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create proposal")
	}

	return p, nil
}

// Get retrieves a proposal by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Proposal, error) {
	ctx, span := tracing.StartSpan(ctx, "proposal.Repository.Get")
	defer span.End()

	query := fmt.Sprintf(`SELECT %s FROM proposals WHERE id = $1`, allColumns)
	return r.get(ctx, id, query)
}

// GetForReview retrieves a proposal by ID and locks its row for the duration
// of the surrounding transaction, so two concurrent reviews of the same
// proposal serialize instead of both reading it as pending.
func (r *Repository) GetForReview(ctx context.Context, id string) (*models.Proposal, error) {
	ctx, span := tracing.StartSpan(ctx, "proposal.Repository.GetForReview")
	defer span.End()

	query := fmt.Sprintf(`SELECT %s FROM proposals WHERE id = $1 FOR UPDATE`, allColumns)
	return r.get(ctx, id, query)
}

func (r *Repository) get(ctx context.Context, id string, query string) (*models.Proposal, error) {
	var p models.Proposal
	if err := database.GetQuerier(ctx, r.db).GetContext(ctx, &p, query, id); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "proposal %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get proposal")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get proposal")
	}

	return &p, nil
}

// ListPending retrieves pending proposals for review
func (r *Repository) ListPending(ctx context.Context, limit int) ([]models.Proposal, error) {
	ctx, span := tracing.StartSpan(ctx, "proposal.Repository.ListPending")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "mapping_id", "submitter", "contact", "reason", "delete_requested", "new_connection_type", "new_confidence_level", "status", "created_at", "updated_at", "reviewed_by", "reviewed_at")
	sb.From("proposals")
	sb.Where(sb.Equal("status", models.ProposalStatusPending))
	sb.OrderBy("created_at ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	var proposals []models.Proposal
	if err := database.GetQuerier(ctx, r.db).SelectContext(ctx, &proposals, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list pending proposals")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list pending proposals")
	}

	return proposals, nil
}

// ListByMapping retrieves all proposals referencing a mapping
func (r *Repository) ListByMapping(ctx context.Context, mappingID string) ([]models.Proposal, error) {
	ctx, span := tracing.StartSpan(ctx, "proposal.Repository.ListByMapping")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "mapping_id", "submitter", "contact", "reason", "delete_requested", "new_connection_type", "new_confidence_level", "status", "created_at", "updated_at", "reviewed_by", "reviewed_at")
	sb.From("proposals")
	sb.Where(sb.Equal("mapping_id", mappingID))
	sb.OrderBy("created_at DESC")

	query, args := sb.Build()
	var proposals []models.Proposal
	if err := database.GetQuerier(ctx, r.db).SelectContext(ctx, &proposals, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list proposals by mapping")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list proposals")
	}

	return proposals, nil
}

// Resolve transitions a pending proposal to its terminal status and records
// the reviewer. The status guard in the predicate makes a second resolution
// of the same proposal affect zero rows.
func (r *Repository) Resolve(ctx context.Context, id string, status models.ProposalStatus, reviewedBy string) error {
	ctx, span := tracing.StartSpan(ctx, "proposal.Repository.Resolve")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("proposals")
	sb.Set(
		sb.Assign("status", status),
		sb.Assign("reviewed_by", reviewedBy),
		sb.Assign("reviewed_at", now),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("status", models.ProposalStatusPending),
	)

	query, args := sb.Build()
	result, err := database.GetQuerier(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to resolve proposal")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve proposal")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusConflict, "proposal %s is not pending", id)
	}

	return nil
}
