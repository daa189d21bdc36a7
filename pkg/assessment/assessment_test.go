package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/models"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		answers    Answers
		expected   Outcome
		errMessage string
	}{
		{
			name: "high confidence causative",
			answers: Answers{
				StepBiologicalRelation: "yes",
				StepEvidenceType:       "experimental",
				StepConnectionType:     "causative",
				StepProcessCoverage:    "yes",
				StepGeneSupport:        "yes",
				StepOverallConfidence:  "high",
			},
			expected: Outcome{Confidence: models.ConfidenceLevelHigh, Connection: models.ConnectionTypeCausative},
		},
		{
			name: "process not covered forces low",
			answers: Answers{
				StepBiologicalRelation: "yes",
				StepEvidenceType:       "experimental",
				StepConnectionType:     "responsive",
				StepProcessCoverage:    "no",
				StepGeneSupport:        "yes",
				StepOverallConfidence:  "high",
			},
			expected: Outcome{Confidence: models.ConfidenceLevelLow, Connection: models.ConnectionTypeResponsive},
		},
		{
			name: "low self assessment forces low",
			answers: Answers{
				StepBiologicalRelation: "yes",
				StepEvidenceType:       "literature",
				StepConnectionType:     "causative",
				StepProcessCoverage:    "yes",
				StepGeneSupport:        "yes",
				StepOverallConfidence:  "low",
			},
			expected: Outcome{Confidence: models.ConfidenceLevelLow, Connection: models.ConnectionTypeCausative},
		},
		{
			name: "medium with literature support stays medium",
			answers: Answers{
				StepBiologicalRelation: "yes",
				StepEvidenceType:       "literature",
				StepConnectionType:     "causative",
				StepProcessCoverage:    "yes",
				StepGeneSupport:        "yes",
				StepOverallConfidence:  "medium",
				StepLiteratureSupport:  "yes",
			},
			expected: Outcome{Confidence: models.ConfidenceLevelMedium, Connection: models.ConnectionTypeCausative},
		},
		{
			name: "medium without literature support drops to low",
			answers: Answers{
				StepBiologicalRelation: "yes",
				StepEvidenceType:       "literature",
				StepConnectionType:     "undefined",
				StepProcessCoverage:    "yes",
				StepGeneSupport:        "yes",
				StepOverallConfidence:  "medium",
				StepLiteratureSupport:  "no",
			},
			expected: Outcome{Confidence: models.ConfidenceLevelLow, Connection: models.ConnectionTypeUndefined},
		},
		{
			name: "no gene support caps at medium",
			answers: Answers{
				StepBiologicalRelation: "yes",
				StepEvidenceType:       "experimental",
				StepConnectionType:     "responsive",
				StepProcessCoverage:    "yes",
				StepGeneSupport:        "no",
				StepOverallConfidence:  "high",
			},
			expected: Outcome{Confidence: models.ConfidenceLevelMedium, Connection: models.ConnectionTypeResponsive},
		},
		{
			name: "not biologically related halts",
			answers: Answers{
				StepBiologicalRelation: "no",
			},
			expected: Outcome{Halted: true},
		},
		{
			name: "medium without step6 is incomplete",
			answers: Answers{
				StepBiologicalRelation: "yes",
				StepEvidenceType:       "experimental",
				StepConnectionType:     "causative",
				StepProcessCoverage:    "yes",
				StepGeneSupport:        "yes",
				StepOverallConfidence:  "medium",
			},
			errMessage: "assessment is incomplete: unanswered required steps",
		},
		{
			name:       "empty answers is incomplete",
			answers:    Answers{},
			errMessage: "assessment is incomplete: unanswered required steps",
		},
		{
			name: "missing connection type is incomplete",
			answers: Answers{
				StepBiologicalRelation: "yes",
				StepEvidenceType:       "experimental",
				StepProcessCoverage:    "yes",
				StepGeneSupport:        "yes",
				StepOverallConfidence:  "high",
			},
			errMessage: "assessment is incomplete: unanswered required steps",
		},
		{
			name: "unknown connection type rejected",
			answers: Answers{
				StepBiologicalRelation: "yes",
				StepEvidenceType:       "experimental",
				StepConnectionType:     "correlated",
				StepProcessCoverage:    "yes",
				StepGeneSupport:        "yes",
				StepOverallConfidence:  "high",
			},
			errMessage: `invalid connection type for step2b: "correlated"`,
		},
		{
			name: "unknown confidence value rejected",
			answers: Answers{
				StepBiologicalRelation: "yes",
				StepEvidenceType:       "experimental",
				StepConnectionType:     "causative",
				StepProcessCoverage:    "yes",
				StepGeneSupport:        "yes",
				StepOverallConfidence:  "certain",
			},
			errMessage: `invalid confidence for step5: "certain"`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			outcome, err := Evaluate(test.answers)
			if test.errMessage != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), test.errMessage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expected, outcome)
		})
	}
}

func TestEvaluateIsPure(t *testing.T) {
	answers := Answers{
		StepBiologicalRelation: "yes",
		StepEvidenceType:       "experimental",
		StepConnectionType:     "causative",
		StepProcessCoverage:    "yes",
		StepGeneSupport:        "yes",
		StepOverallConfidence:  "high",
	}

	first, err := Evaluate(answers)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Evaluate(answers)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAnswerable(t *testing.T) {
	tests := []struct {
		name     string
		answers  Answers
		expected []Step
	}{
		{
			name:     "nothing answered",
			answers:  Answers{},
			expected: []Step{StepBiologicalRelation},
		},
		{
			name:     "halted at step1",
			answers:  Answers{StepBiologicalRelation: "no"},
			expected: []Step{StepBiologicalRelation},
		},
		{
			name:     "step1 yes opens step2",
			answers:  Answers{StepBiologicalRelation: "yes"},
			expected: []Step{StepBiologicalRelation, StepEvidenceType},
		},
		{
			name: "step2 opens branch and step3",
			answers: Answers{
				StepBiologicalRelation: "yes",
				StepEvidenceType:       "experimental",
			},
			expected: []Step{StepBiologicalRelation, StepEvidenceType, StepConnectionType, StepProcessCoverage},
		},
		{
			name: "medium confidence requires step6",
			answers: Answers{
				StepBiologicalRelation: "yes",
				StepEvidenceType:       "experimental",
				StepConnectionType:     "causative",
				StepProcessCoverage:    "yes",
				StepGeneSupport:        "yes",
				StepOverallConfidence:  "medium",
			},
			expected: []Step{
				StepBiologicalRelation, StepEvidenceType, StepConnectionType,
				StepProcessCoverage, StepGeneSupport, StepOverallConfidence, StepLiteratureSupport,
			},
		},
		{
			name: "high confidence skips step6",
			answers: Answers{
				StepBiologicalRelation: "yes",
				StepEvidenceType:       "experimental",
				StepConnectionType:     "causative",
				StepProcessCoverage:    "yes",
				StepGeneSupport:        "yes",
				StepOverallConfidence:  "high",
			},
			expected: []Step{
				StepBiologicalRelation, StepEvidenceType, StepConnectionType,
				StepProcessCoverage, StepGeneSupport, StepOverallConfidence,
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Answerable(test.answers))
		})
	}
}

func TestComplete(t *testing.T) {
	assert.False(t, Complete(Answers{}))
	assert.True(t, Complete(Answers{StepBiologicalRelation: "no"}))
	assert.False(t, Complete(Answers{StepBiologicalRelation: "yes"}))
}
