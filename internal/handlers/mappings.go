package handlers

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/lifecycle"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/models"
)

// MappingReader is the read surface for mapping list/get endpoints
type MappingReader interface {
	Get(ctx context.Context, id string) (*models.Mapping, error)
	List(ctx context.Context, limit, offset int) ([]models.Mapping, error)
	ListBySource(ctx context.Context, sourceID string) ([]models.Mapping, error)
}

// MappingHandler handles mapping-related API requests
type MappingHandler struct {
	service  *lifecycle.Service
	mappings MappingReader
}

// NewMappingHandler creates a new mapping handler
func NewMappingHandler(service *lifecycle.Service, mappings MappingReader) *MappingHandler {
	return &MappingHandler{
		service:  service,
		mappings: mappings,
	}
}

// RegisterRoutes registers the mapping routes
func (h *MappingHandler) RegisterRoutes(g *echo.Group) {
	mappings := g.Group("/mappings")
	mappings.GET("/check", h.Check)
	mappings.POST("", h.Submit)
	mappings.GET("", h.List)
	mappings.GET("/:id", h.Get)
}

// Check handles GET /mappings/check
func (h *MappingHandler) Check(c echo.Context) error {
	ctx := c.Request().Context()

	sourceID := c.QueryParam("source_id")
	targetID := c.QueryParam("target_id")

	result, err := h.service.Check(ctx, sourceID, targetID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, result)
}

// Submit handles POST /mappings
func (h *MappingHandler) Submit(c echo.Context) error {
	ctx := c.Request().Context()

	creator, err := CallerID(c)
	if err != nil {
		return err
	}

	var req models.CreateMappingRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}

	mapping, err := h.service.Submit(ctx, req, creator)
	if err != nil {
		return err
	}

	return CreatedResponse(c, mapping)
}

// List handles GET /mappings. With ?source_id= it lists the mappings of a
// single Key Event; otherwise it pages through all mappings.
func (h *MappingHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	if sourceID := c.QueryParam("source_id"); sourceID != "" {
		mappings, err := h.mappings.ListBySource(ctx, sourceID)
		if err != nil {
			return err
		}
		return SuccessResponse(c, mappings)
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	mappings, err := h.mappings.List(ctx, limit, offset)
	if err != nil {
		return err
	}

	return SuccessResponse(c, mappings)
}

// Get handles GET /mappings/:id
func (h *MappingHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := RequireParam(c, "id")
	if err != nil {
		return err
	}

	mapping, err := h.mappings.Get(ctx, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, mapping)
}
