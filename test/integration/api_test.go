package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marvinm2/KE-WP-mapping-sub001/internal/handlers"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/assessment"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/database"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/embeddings"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/lifecycle"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/middleware"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/models"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/suggest"
)

// memMappingStore backs both the lifecycle store and the read endpoints.
type memMappingStore struct {
	byID map[string]*models.Mapping
}

func newMemMappingStore() *memMappingStore {
	return &memMappingStore{byID: make(map[string]*models.Mapping)}
}

func (s *memMappingStore) Create(ctx context.Context, m *models.Mapping) (*models.Mapping, error) {
	for _, existing := range s.byID {
		if existing.SourceID == m.SourceID && existing.TargetID == m.TargetID {
			return nil, httperror.NewHTTPErrorf(http.StatusConflict, "mapping for %s -> %s already exists", m.SourceID, m.TargetID)
		}
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt
	copied := *m
	s.byID[m.ID] = &copied
	return m, nil
}

func (s *memMappingStore) Get(ctx context.Context, id string) (*models.Mapping, error) {
	m, ok := s.byID[id]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "mapping %s not found", id)
	}
	copied := *m
	return &copied, nil
}

func (s *memMappingStore) GetByPair(ctx context.Context, sourceID, targetID string) (*models.Mapping, error) {
	for _, m := range s.byID {
		if m.SourceID == sourceID && m.TargetID == targetID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memMappingStore) ListBySource(ctx context.Context, sourceID string) ([]models.Mapping, error) {
	var out []models.Mapping
	for _, m := range s.byID {
		if m.SourceID == sourceID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memMappingStore) List(ctx context.Context, limit, offset int) ([]models.Mapping, error) {
	var out []models.Mapping
	for _, m := range s.byID {
		out = append(out, *m)
	}
	return out, nil
}

func (s *memMappingStore) UpdateFields(ctx context.Context, id string, connectionType models.ConnectionType, confidenceLevel models.ConfidenceLevel) (*models.Mapping, error) {
	m, ok := s.byID[id]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "mapping %s not found", id)
	}
	m.ConnectionType = connectionType
	m.ConfidenceLevel = confidenceLevel
	m.UpdatedAt = time.Now().UTC()
	copied := *m
	return &copied, nil
}

func (s *memMappingStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.byID[id]; !ok {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "mapping %s not found", id)
	}
	delete(s.byID, id)
	return nil
}

type memProposalStore struct {
	byID map[string]*models.Proposal
}

func newMemProposalStore() *memProposalStore {
	return &memProposalStore{byID: make(map[string]*models.Proposal)}
}

func (s *memProposalStore) Create(ctx context.Context, p *models.Proposal) (*models.Proposal, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.Status = models.ProposalStatusPending
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	copied := *p
	s.byID[p.ID] = &copied
	return p, nil
}

func (s *memProposalStore) Get(ctx context.Context, id string) (*models.Proposal, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "proposal %s not found", id)
	}
	copied := *p
	return &copied, nil
}

func (s *memProposalStore) GetForReview(ctx context.Context, id string) (*models.Proposal, error) {
	return s.Get(ctx, id)
}

func (s *memProposalStore) Resolve(ctx context.Context, id string, status models.ProposalStatus, reviewedBy string) error {
	p, ok := s.byID[id]
	if !ok || p.Status != models.ProposalStatusPending {
		return httperror.NewHTTPErrorf(http.StatusConflict, "proposal %s is not pending", id)
	}
	now := time.Now().UTC()
	p.Status = status
	p.ReviewedBy = &reviewedBy
	p.ReviewedAt = &now
	p.UpdatedAt = now
	return nil
}

func (s *memProposalStore) ListPending(ctx context.Context, limit int) ([]models.Proposal, error) {
	var out []models.Proposal
	for _, p := range s.byID {
		if p.Status == models.ProposalStatusPending {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *memProposalStore) ListByMapping(ctx context.Context, mappingID string) ([]models.Proposal, error) {
	var out []models.Proposal
	for _, p := range s.byID {
		if p.MappingID == mappingID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type memTx struct {
	done bool
}

func (t *memTx) IsOpen() bool                       { return !t.done }
func (t *memTx) Commit(ctx context.Context) error   { t.done = true; return nil }
func (t *memTx) Rollback(ctx context.Context) error { t.done = true; return nil }
func (t *memTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, nil
}
func (t *memTx) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}
func (t *memTx) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}
func (t *memTx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return nil
}

type memTxStarter struct{}

func (s *memTxStarter) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error) {
	return ctx, &memTx{}, nil
}

type staticGeneSource struct {
	genes map[string][]string
}

func (s *staticGeneSource) GenesForKeyEvent(ctx context.Context, keyEventID string) ([]string, error) {
	return s.genes[keyEventID], nil
}

// TestAPI wires the real handlers, engine, and lifecycle service over
// in-memory stores and drives them through the full echo stack.
type TestAPI struct {
	t *testing.T
	e *echo.Echo
}

func NewTestAPI(t *testing.T) *TestAPI {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	terms := []models.OntologyTerm{
		{
			ID:            "WP:WP4846",
			Kind:          models.TermKindPathway,
			Name:          "oxidative stress response",
			Definition:    "Cellular response to oxidative stress and reactive oxygen species",
			Embedding:     []float32{1, 0, 0},
			NameEmbedding: []float32{1, 0, 0},
			Genes:         []string{"NFE2L2", "HMOX1", "NQO1"},
		},
		{
			ID:            "GO:0006979",
			Kind:          models.TermKindGOBP,
			Name:          "response to oxidative stress",
			Definition:    "Any process resulting from a stimulus indicating oxidative stress",
			Embedding:     []float32{0.9, 0.1, 0},
			NameEmbedding: []float32{0.9, 0.1, 0},
			Genes:         []string{"NFE2L2", "CAT"},
		},
		{
			ID:            "WP:WP1545",
			Kind:          models.TermKindPathway,
			Name:          "vitamin metabolism",
			Definition:    "Metabolic pathways of vitamins",
			Embedding:     []float32{0, 0, 1},
			NameEmbedding: []float32{0, 0, 1},
			Genes:         []string{"TTPA"},
		},
	}
	vectors := map[string]embeddings.KeyEventVector{
		"KE:1392": {Full: []float32{1, 0, 0}, Title: []float32{1, 0, 0}},
	}
	store := embeddings.NewStore(terms, vectors, 2)

	engine := suggest.NewEngine(logger, store, suggest.EngineConfig{DefaultTopK: 10, MaxTopK: 100})
	genes := &staticGeneSource{genes: map[string][]string{
		"KE:1392": {"NFE2L2", "HMOX1"},
	}}

	mappings := newMemMappingStore()
	proposals := newMemProposalStore()
	service := lifecycle.NewService(&memTxStarter{}, mappings, proposals, nil, logger)

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(middleware.Context())

	api := e.Group("/api/v1")
	handlers.NewSuggestionHandler(engine, genes, logger).RegisterRoutes(api)
	handlers.NewMappingHandler(service, mappings).RegisterRoutes(api)
	handlers.NewProposalHandler(service, proposals).RegisterRoutes(api)
	handlers.NewAssessmentHandler().RegisterRoutes(api)

	return &TestAPI{t: t, e: e}
}

func (a *TestAPI) Request(method, path, user string, body any) *httptest.ResponseRecorder {
	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reqBody = bytes.NewBuffer(data)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(middleware.HeaderUserID, user)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSuggestions(t *testing.T) {
	api := NewTestAPI(t)

	rec := api.Request(http.MethodPost, "/api/v1/suggestions", "", map[string]any{
		"key_event": map[string]any{
			"id":          "KE:1392",
			"title":       "Oxidative stress",
			"description": "Increase in oxidative stress in cells",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[models.SuggestionResult](t, rec)
	assert.Equal(t, "KE:1392", result.KeyEventID)
	assert.Equal(t, 2, result.GeneCount)
	require.NotEmpty(t, result.Suggestions)
	assert.Equal(t, "WP:WP4846", result.Suggestions[0].TermID)

	for i := 1; i < len(result.Suggestions); i++ {
		assert.GreaterOrEqual(t, result.Suggestions[i-1].Score, result.Suggestions[i].Score)
	}

	t.Run("zero weights rejected", func(t *testing.T) {
		rec := api.Request(http.MethodPost, "/api/v1/suggestions", "", map[string]any{
			"key_event":      map[string]any{"id": "KE:1392"},
			"method_weights": map[string]any{"gene_overlap": 0, "text": 0, "semantic": 0},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("top_k above limit rejected", func(t *testing.T) {
		rec := api.Request(http.MethodPost, "/api/v1/suggestions", "", map[string]any{
			"key_event": map[string]any{"id": "KE:1392"},
			"top_k":     101,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing key event rejected", func(t *testing.T) {
		rec := api.Request(http.MethodPost, "/api/v1/suggestions", "", map[string]any{
			"key_event": map[string]any{"title": "no id"},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMappingLifecycle(t *testing.T) {
	api := NewTestAPI(t)

	check := func() models.CheckResult {
		rec := api.Request(http.MethodGet, "/api/v1/mappings/check?source_id=KE:1392&target_id=WP:WP4846", "", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decode[models.CheckResult](t, rec)
	}

	assert.False(t, check().PairExists)

	rec := api.Request(http.MethodPost, "/api/v1/mappings", "curator@example.org", map[string]any{
		"source_id":        "KE:1392",
		"target_id":        "WP:WP4846",
		"connection_type":  "causative",
		"confidence_level": "high",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	mapping := decode[models.Mapping](t, rec)
	assert.Equal(t, "curator@example.org", mapping.CreatedBy)

	assert.True(t, check().PairExists)

	t.Run("duplicate pair conflicts", func(t *testing.T) {
		rec := api.Request(http.MethodPost, "/api/v1/mappings", "curator@example.org", map[string]any{
			"source_id":        "KE:1392",
			"target_id":        "WP:WP4846",
			"connection_type":  "responsive",
			"confidence_level": "low",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("submit requires identity", func(t *testing.T) {
		rec := api.Request(http.MethodPost, "/api/v1/mappings", "", map[string]any{
			"source_id":        "KE:1392",
			"target_id":        "GO:0006979",
			"connection_type":  "causative",
			"confidence_level": "high",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	// Propose lowering the confidence, then approve it
	rec = api.Request(http.MethodPost, "/api/v1/proposals", "visitor@example.org", map[string]any{
		"mapping_id": mapping.ID,
		"reason":     "newer study weakens the causal claim",
		"mutation":   map[string]any{"confidence_level": "medium"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	proposal := decode[models.Proposal](t, rec)
	assert.Equal(t, models.ProposalStatusPending, proposal.Status)

	rec = api.Request(http.MethodPost, fmt.Sprintf("/api/v1/proposals/%s/review", proposal.ID), "admin@example.org", map[string]any{
		"decision": "approve",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reviewed := decode[models.Proposal](t, rec)
	assert.Equal(t, models.ProposalStatusApproved, reviewed.Status)

	rec = api.Request(http.MethodGet, "/api/v1/mappings/"+mapping.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[models.Mapping](t, rec)
	assert.Equal(t, models.ConfidenceLevelMedium, updated.ConfidenceLevel)

	t.Run("resolved proposal cannot be reviewed again", func(t *testing.T) {
		rec := api.Request(http.MethodPost, fmt.Sprintf("/api/v1/proposals/%s/review", proposal.ID), "admin@example.org", map[string]any{
			"decision": "reject",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	// Approved deletion removes the mapping
	rec = api.Request(http.MethodPost, "/api/v1/proposals", "visitor@example.org", map[string]any{
		"mapping_id": mapping.ID,
		"mutation":   map[string]any{"delete": true},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	deletion := decode[models.Proposal](t, rec)

	rec = api.Request(http.MethodPost, fmt.Sprintf("/api/v1/proposals/%s/review", deletion.ID), "admin@example.org", map[string]any{
		"decision": "approve",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.Request(http.MethodGet, "/api/v1/mappings/"+mapping.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, check().PairExists)
}

func TestAssessmentEndpoints(t *testing.T) {
	api := NewTestAPI(t)

	rec := api.Request(http.MethodPost, "/api/v1/assessments/evaluate", "", map[string]any{
		"answers": map[string]string{
			"step1":  "yes",
			"step2":  "yes",
			"step2b": "causative",
			"step3":  "yes",
			"step4":  "yes",
			"step5":  "high",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var outcome struct {
		Halted     bool                   `json:"halted"`
		Confidence models.ConfidenceLevel `json:"confidence_level"`
		Connection models.ConnectionType  `json:"connection_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.False(t, outcome.Halted)
	assert.Equal(t, models.ConfidenceLevelHigh, outcome.Confidence)
	assert.Equal(t, models.ConnectionTypeCausative, outcome.Connection)

	t.Run("incomplete answers rejected", func(t *testing.T) {
		rec := api.Request(http.MethodPost, "/api/v1/assessments/evaluate", "", map[string]any{
			"answers": map[string]string{"step1": "yes"},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("steps reports answerable progression", func(t *testing.T) {
		rec := api.Request(http.MethodPost, "/api/v1/assessments/steps", "", map[string]any{
			"answers": map[string]string{"step1": "yes"},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var steps handlers.StepsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &steps))
		assert.False(t, steps.Complete)
		assert.Contains(t, steps.Answerable, assessment.StepEvidenceType)
	})
}
