package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/metrics"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/models"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/suggest"
)

// GeneSource resolves the gene set for a Key Event
type GeneSource interface {
	GenesForKeyEvent(ctx context.Context, keyEventID string) ([]string, error)
}

// SuggestionHandler handles suggestion queries
type SuggestionHandler struct {
	engine *suggest.Engine
	genes  GeneSource
	logger ectologger.Logger
}

// NewSuggestionHandler creates a new suggestion handler. genes may be nil
// when no gene service is configured; the gene method then scores zero.
func NewSuggestionHandler(engine *suggest.Engine, genes GeneSource, logger ectologger.Logger) *SuggestionHandler {
	return &SuggestionHandler{
		engine: engine,
		genes:  genes,
		logger: logger,
	}
}

// RegisterRoutes registers the suggestion routes
func (h *SuggestionHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/suggestions", h.Suggest)
}

// SuggestRequest is the request body for a suggestion query
type SuggestRequest struct {
	KeyEvent models.KeyEvent       `json:"key_event"`
	TopK     int                   `json:"top_k,omitempty"`
	Weights  *models.MethodWeights `json:"method_weights,omitempty"`
}

// Suggest handles POST /suggestions
func (h *SuggestionHandler) Suggest(c echo.Context) error {
	ctx := c.Request().Context()

	var req SuggestRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}

	weights := models.DefaultMethodWeights()
	if req.Weights != nil {
		weights = *req.Weights
	}

	// Gene lookup failure degrades to an empty set; the other methods still
	// produce a ranking
	var geneSet []string
	if h.genes != nil && req.KeyEvent.ID != "" {
		genes, err := h.genes.GenesForKeyEvent(ctx, req.KeyEvent.ID)
		if err != nil {
			metrics.GeneLookupErrors.Inc()
			h.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"key_event_id": req.KeyEvent.ID,
			}).Warn("Gene lookup failed; scoring without gene overlap")
		} else {
			geneSet = genes
		}
	}

	result, err := h.engine.Suggest(ctx, suggest.Request{
		KeyEvent: req.KeyEvent,
		Genes:    geneSet,
		TopK:     req.TopK,
		Weights:  weights,
	})
	if err != nil {
		return err
	}

	return SuccessResponse(c, result)
}
