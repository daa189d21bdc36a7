package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/assessment"
)

// AssessmentHandler exposes the confidence questionnaire rules so the
// front-end step flow never duplicates them
type AssessmentHandler struct{}

// NewAssessmentHandler creates a new assessment handler
func NewAssessmentHandler() *AssessmentHandler {
	return &AssessmentHandler{}
}

// RegisterRoutes registers the assessment routes
func (h *AssessmentHandler) RegisterRoutes(g *echo.Group) {
	assessments := g.Group("/assessments")
	assessments.POST("/evaluate", h.Evaluate)
	assessments.POST("/steps", h.Steps)
}

// EvaluateRequest is the request body for evaluating an answer set
type EvaluateRequest struct {
	Answers assessment.Answers `json:"answers"`
}

// Evaluate handles POST /assessments/evaluate
func (h *AssessmentHandler) Evaluate(c echo.Context) error {
	var req EvaluateRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}

	outcome, err := assessment.Evaluate(req.Answers)
	if err != nil {
		return err
	}

	return SuccessResponse(c, outcome)
}

// StepsResponse reports which steps are currently answerable
type StepsResponse struct {
	Answerable []assessment.Step `json:"answerable"`
	Complete   bool              `json:"complete"`
}

// Steps handles POST /assessments/steps
func (h *AssessmentHandler) Steps(c echo.Context) error {
	var req EvaluateRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}

	return SuccessResponse(c, StepsResponse{
		Answerable: assessment.Answerable(req.Answers),
		Complete:   assessment.Complete(req.Answers),
	})
}
