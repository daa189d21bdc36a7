package mapping

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/database"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/models"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/tracing"
)

const allColumns = "id, source_id, target_id, connection_type, confidence_level, created_by, created_at, updated_at"

// Repository handles mapping persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new mapping repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new mapping. The unique constraint on (source_id,
// target_id) turns a concurrent duplicate submission into a conflict.
func (r *Repository) Create(ctx context.Context, m *models.Mapping) (*models.Mapping, error) {
	ctx, span := tracing.StartSpan(ctx, "mapping.Repository.Create")
	defer span.End()

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("mappings")
	sb.Cols("id", "source_id", "target_id", "connection_type", "confidence_level", "created_by", "created_at", "updated_at")
	sb.Values(m.ID, m.SourceID, m.TargetID, m.ConnectionType, m.ConfidenceLevel, m.CreatedBy, m.CreatedAt, m.UpdatedAt)

	query, args := sb.Build()
	if _, err := database.GetQuerier(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, httperror.NewHTTPErrorf(http.StatusConflict, "mapping for %s -> %s already exists", m.SourceID, m.TargetID)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"mapping_id": m.ID}).Error("Failed to create mapping")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create mapping")
	}

	return m, nil
}

// Get retrieves a mapping by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Mapping, error) {
	ctx, span := tracing.StartSpan(ctx, "mapping.Repository.Get")
	defer span.End()

	query := fmt.Sprintf(`SELECT %s FROM mappings WHERE id = $1`, allColumns)

	var m models.Mapping
	if err := database.GetQuerier(ctx, r.db).GetContext(ctx, &m, query, id); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "mapping %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get mapping")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get mapping")
	}

	return &m, nil
}

// GetByPair retrieves the mapping for an exact (source, target) pair.
// Returns nil without error when no such mapping exists.
func (r *Repository) GetByPair(ctx context.Context, sourceID, targetID string) (*models.Mapping, error) {
	ctx, span := tracing.StartSpan(ctx, "mapping.Repository.GetByPair")
	defer span.End()

	query := fmt.Sprintf(`SELECT %s FROM mappings WHERE source_id = $1 AND target_id = $2 LIMIT 1`, allColumns)

	var m models.Mapping
	if err := database.GetQuerier(ctx, r.db).GetContext(ctx, &m, query, sourceID, targetID); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get mapping by pair")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get mapping")
	}

	return &m, nil
}

// ListBySource retrieves all mappings recorded for a Key Event
func (r *Repository) ListBySource(ctx context.Context, sourceID string) ([]models.Mapping, error) {
	ctx, span := tracing.StartSpan(ctx, "mapping.Repository.ListBySource")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "source_id", "target_id", "connection_type", "confidence_level", "created_by", "created_at", "updated_at")
	sb.From("mappings")
	sb.Where(sb.Equal("source_id", sourceID))
	sb.OrderBy("target_id ASC")

	query, args := sb.Build()
	var mappings []models.Mapping
	if err := database.GetQuerier(ctx, r.db).SelectContext(ctx, &mappings, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list mappings by source")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list mappings")
	}

	return mappings, nil
}

// List retrieves mappings in stable order with a bounded page size
func (r *Repository) List(ctx context.Context, limit, offset int) ([]models.Mapping, error) {
	ctx, span := tracing.StartSpan(ctx, "mapping.Repository.List")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "source_id", "target_id", "connection_type", "confidence_level", "created_by", "created_at", "updated_at")
	sb.From("mappings")
	sb.OrderBy("created_at DESC", "id ASC")
	sb.Limit(limit)
	sb.Offset(offset)

	query, args := sb.Build()
	var mappings []models.Mapping
	if err := database.GetQuerier(ctx, r.db).SelectContext(ctx, &mappings, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list mappings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list mappings")
	}

	return mappings, nil
}

// UpdateFields applies new connection/confidence values to a mapping and
// bumps its modification timestamp
func (r *Repository) UpdateFields(ctx context.Context, id string, connectionType models.ConnectionType, confidenceLevel models.ConfidenceLevel) (*models.Mapping, error) {
	ctx, span := tracing.StartSpan(ctx, "mapping.Repository.UpdateFields")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("mappings")
	sb.Set(
		sb.Assign("connection_type", connectionType),
		sb.Assign("confidence_level", confidenceLevel),
		sb.Assign("updated_at", now),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	result, err := database.GetQuerier(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update mapping")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update mapping")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "mapping %s not found", id)
	}

	return r.Get(ctx, id)
}

// Delete removes a mapping
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "mapping.Repository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("mappings")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	result, err := database.GetQuerier(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete mapping")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete mapping")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "mapping %s not found", id)
	}

	return nil
}
