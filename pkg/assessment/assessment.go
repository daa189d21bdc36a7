// Package assessment implements the guided confidence questionnaire that
// curators walk through when qualifying a mapping. Evaluation is a pure
// function of the answer set, so re-answering a step in any order produces
// the same classification.
package assessment

import (
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/models"
)

// Step identifies a single question in the questionnaire.
type Step string

const (
	StepBiologicalRelation Step = "step1"
	StepEvidenceType       Step = "step2"
	StepConnectionType     Step = "step2b"
	StepProcessCoverage    Step = "step3"
	StepGeneSupport        Step = "step4"
	StepOverallConfidence  Step = "step5"
	StepLiteratureSupport  Step = "step6"
)

// Answer values for the yes/no steps.
const (
	AnswerYes = "yes"
	AnswerNo  = "no"
)

// Answers holds the curator's responses keyed by step. Missing keys and
// empty values both mean "not answered yet".
type Answers map[Step]string

// Outcome is the result of a completed assessment. Halted is set when the
// curator decided at step1 that the pair is not biologically related; in
// that case the confidence and connection fields are empty.
type Outcome struct {
	Halted     bool                   `json:"halted"`
	Confidence models.ConfidenceLevel `json:"confidence_level,omitempty"`
	Connection models.ConnectionType  `json:"connection_type,omitempty"`
}

func (a Answers) answered(s Step) bool {
	return a[s] != ""
}

// Answerable reports which steps the curator may answer given the current
// answer set. Step1 is always open; later steps unlock in dependency order.
func Answerable(a Answers) []Step {
	steps := []Step{StepBiologicalRelation}
	if a[StepBiologicalRelation] != AnswerYes {
		return steps
	}
	steps = append(steps, StepEvidenceType)
	if !a.answered(StepEvidenceType) {
		return steps
	}
	steps = append(steps, StepConnectionType, StepProcessCoverage)
	if !a.answered(StepProcessCoverage) {
		return steps
	}
	steps = append(steps, StepGeneSupport)
	if !a.answered(StepGeneSupport) {
		return steps
	}
	steps = append(steps, StepOverallConfidence)
	if a[StepOverallConfidence] == string(models.ConfidenceLevelMedium) {
		steps = append(steps, StepLiteratureSupport)
	}
	return steps
}

// Complete reports whether every required step has been answered. Step6 is
// only required when step5 is medium; a halted assessment (step1 = no) is
// complete by itself.
func Complete(a Answers) bool {
	if !a.answered(StepBiologicalRelation) {
		return false
	}
	if a[StepBiologicalRelation] == AnswerNo {
		return true
	}
	required := []Step{StepEvidenceType, StepConnectionType, StepProcessCoverage, StepGeneSupport, StepOverallConfidence}
	for _, s := range required {
		if !a.answered(s) {
			return false
		}
	}
	if a[StepOverallConfidence] == string(models.ConfidenceLevelMedium) && !a.answered(StepLiteratureSupport) {
		return false
	}
	return true
}

// Evaluate classifies a complete answer set into a confidence level and
// connection type. It returns an unprocessable-entity error when required
// steps are unanswered, and a bad-request error when an answered step holds
// a value outside its enumeration.
func Evaluate(a Answers) (Outcome, error) {
	if !Complete(a) {
		return Outcome{}, httperror.NewHTTPError(http.StatusUnprocessableEntity, "assessment is incomplete: unanswered required steps")
	}
	if err := validateValues(a); err != nil {
		return Outcome{}, err
	}
	if a[StepBiologicalRelation] == AnswerNo {
		return Outcome{Halted: true}, nil
	}

	connection := models.ConnectionType(a[StepConnectionType])
	confidence := classify(a)
	return Outcome{Confidence: confidence, Connection: connection}, nil
}

func classify(a Answers) models.ConfidenceLevel {
	if a[StepProcessCoverage] == AnswerNo || a[StepOverallConfidence] == string(models.ConfidenceLevelLow) {
		return models.ConfidenceLevelLow
	}
	if a[StepOverallConfidence] == string(models.ConfidenceLevelMedium) {
		if a[StepLiteratureSupport] == AnswerYes {
			return models.ConfidenceLevelMedium
		}
		return models.ConfidenceLevelLow
	}
	if a[StepGeneSupport] == AnswerNo {
		return models.ConfidenceLevelMedium
	}
	return models.ConfidenceLevelHigh
}

func validateValues(a Answers) error {
	yesNo := []Step{StepBiologicalRelation, StepProcessCoverage, StepGeneSupport, StepLiteratureSupport}
	for _, s := range yesNo {
		if v := a[s]; v != "" && v != AnswerYes && v != AnswerNo {
			return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid answer for %s: %q", s, v))
		}
	}
	if v := a[StepConnectionType]; v != "" && !models.ValidConnectionType(models.ConnectionType(v)) {
		return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid connection type for %s: %q", StepConnectionType, v))
	}
	if v := a[StepOverallConfidence]; v != "" && !models.ValidConfidenceLevel(models.ConfidenceLevel(v)) {
		return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid confidence for %s: %q", StepOverallConfidence, v))
	}
	return nil
}
