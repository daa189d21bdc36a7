package handlers

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/lifecycle"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/models"
)

// ProposalReader is the read surface for the moderation queue endpoints
type ProposalReader interface {
	Get(ctx context.Context, id string) (*models.Proposal, error)
	ListPending(ctx context.Context, limit int) ([]models.Proposal, error)
	ListByMapping(ctx context.Context, mappingID string) ([]models.Proposal, error)
}

// ProposalHandler handles proposal-related API requests
type ProposalHandler struct {
	service   *lifecycle.Service
	proposals ProposalReader
}

// NewProposalHandler creates a new proposal handler
func NewProposalHandler(service *lifecycle.Service, proposals ProposalReader) *ProposalHandler {
	return &ProposalHandler{
		service:   service,
		proposals: proposals,
	}
}

// RegisterRoutes registers the proposal routes. The review route is expected
// to carry the reviewer-role middleware when auth is enabled.
func (h *ProposalHandler) RegisterRoutes(g *echo.Group, reviewMiddleware ...echo.MiddlewareFunc) {
	proposals := g.Group("/proposals")
	proposals.POST("", h.Propose)
	proposals.GET("", h.List)
	proposals.GET("/:id", h.Get)
	proposals.POST("/:id/review", h.Review, reviewMiddleware...)
}

// Propose handles POST /proposals
func (h *ProposalHandler) Propose(c echo.Context) error {
	ctx := c.Request().Context()

	submitter, err := CallerID(c)
	if err != nil {
		return err
	}

	var req models.CreateProposalRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}

	proposal, err := h.service.Propose(ctx, req, submitter)
	if err != nil {
		return err
	}

	return CreatedResponse(c, proposal)
}

// List handles GET /proposals. With ?mapping_id= it lists the proposals on
// one mapping; the default is the pending moderation queue.
func (h *ProposalHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	if mappingID := c.QueryParam("mapping_id"); mappingID != "" {
		proposals, err := h.proposals.ListByMapping(ctx, mappingID)
		if err != nil {
			return err
		}
		return SuccessResponse(c, proposals)
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	proposals, err := h.proposals.ListPending(ctx, limit)
	if err != nil {
		return err
	}

	return SuccessResponse(c, proposals)
}

// Get handles GET /proposals/:id
func (h *ProposalHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := RequireParam(c, "id")
	if err != nil {
		return err
	}

	proposal, err := h.proposals.Get(ctx, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, proposal)
}

// ReviewRequest is the request body for reviewing a proposal
type ReviewRequest struct {
	Decision models.ReviewDecision `json:"decision"`
}

// Review handles POST /proposals/:id/review
func (h *ProposalHandler) Review(c echo.Context) error {
	ctx := c.Request().Context()

	reviewer, err := CallerID(c)
	if err != nil {
		return err
	}

	id, err := RequireParam(c, "id")
	if err != nil {
		return err
	}

	var req ReviewRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}

	proposal, err := h.service.Review(ctx, id, req.Decision, reviewer)
	if err != nil {
		return err
	}

	return SuccessResponse(c, proposal)
}
