// Package suggest ranks candidate ontology/pathway terms for a Key Event by
// combining gene-overlap, lexical and semantic similarity signals.
package suggest

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/embeddings"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/metrics"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/models"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/tracing"
)

// EngineConfig contains configuration for the suggestion engine
type EngineConfig struct {
	DefaultTopK int // Used when the request leaves top_k unset (default: 20)
	MaxTopK     int // Upper bound on top_k (default: 100)

	// GeneMetric scores gene set overlap. Configurable; Jaccard by default.
	GeneMetric SetMetric
	// TextMetric scores token set overlap of KE text vs term text. Defaults
	// to Jaccard over normalized token sets.
	TextMetric SetMetric
}

// DefaultConfig returns default engine configuration
func DefaultConfig() EngineConfig {
	return EngineConfig{
		DefaultTopK: 20,
		MaxTopK:     100,
		GeneMetric:  Jaccard,
		TextMetric:  Jaccard,
	}
}

// Engine scores every term in the corpus against one Key Event per request.
// It holds no mutable state across calls and is safe for concurrent use.
type Engine struct {
	logger ectologger.Logger
	store  *embeddings.Store
	config EngineConfig

	// Per-term token and gene sets, precomputed once from the immutable
	// store so requests do not re-tokenize tens of thousands of terms.
	termTokens []map[string]struct{}
	termGenes  []map[string]struct{}
}

// NewEngine creates a new suggestion engine over the given store.
func NewEngine(logger ectologger.Logger, store *embeddings.Store, config EngineConfig) *Engine {
	if config.DefaultTopK <= 0 {
		config.DefaultTopK = 20
	}
	if config.MaxTopK <= 0 {
		config.MaxTopK = 100
	}
	if config.GeneMetric == nil {
		config.GeneMetric = Jaccard
	}
	if config.TextMetric == nil {
		config.TextMetric = Jaccard
	}

	terms := store.Terms()
	termTokens := make([]map[string]struct{}, len(terms))
	termGenes := make([]map[string]struct{}, len(terms))
	for i, t := range terms {
		termTokens[i] = Tokenize(t.Name + " " + t.Definition)
		termGenes[i] = GeneSet(t.Genes)
	}

	return &Engine{
		logger:     logger,
		store:      store,
		config:     config,
		termTokens: termTokens,
		termGenes:  termGenes,
	}
}

// Request is one suggestion query.
type Request struct {
	KeyEvent models.KeyEvent
	// Genes is the externally extracted gene set for the Key Event. May be
	// empty; the gene method then contributes zero for every term.
	Genes   []string
	TopK    int
	Weights models.MethodWeights
}

// Suggest ranks all corpus terms for the Key Event and returns the top K.
// Results are sorted by aggregate score descending; ties break by term id
// ascending so identical inputs always produce identical output.
func (e *Engine) Suggest(ctx context.Context, req Request) (*models.SuggestionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "suggest.Engine.Suggest")
	defer span.End()

	start := time.Now()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"key_event_id": req.KeyEvent.ID,
		"top_k":        req.TopK,
	})

	if req.KeyEvent.ID == "" {
		metrics.SuggestionsTotal.WithLabelValues("invalid").Inc()
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "key event id is required")
	}

	topK := req.TopK
	if topK == 0 {
		topK = e.config.DefaultTopK
	}
	if topK < 1 || topK > e.config.MaxTopK {
		metrics.SuggestionsTotal.WithLabelValues("invalid").Inc()
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "top_k must be between 1 and %d", e.config.MaxTopK)
	}

	if !req.Weights.Valid() {
		metrics.SuggestionsTotal.WithLabelValues("invalid_configuration").Inc()
		return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, "method weights must be non-negative with at least one positive")
	}

	terms := e.store.Terms()

	keGenes := GeneSet(req.Genes)
	keTokens := Tokenize(req.KeyEvent.Title + " " + req.KeyEvent.Description)

	// Semantic scores are computed in bulk over the whole corpus. A Key
	// Event without a precomputed embedding zeroes the method.
	var semantic []float64
	if query, nameOnly, ok := e.store.QueryVector(req.KeyEvent.ID); ok && req.Weights.Semantic > 0 {
		semantic = e.store.ScoreAll(query, nameOnly)
	} else {
		semantic = make([]float64, len(terms))
		if req.Weights.Semantic > 0 {
			log.Debug("No precomputed embedding for key event; semantic method contributes zero")
		}
	}

	totalWeight := req.Weights.Total()
	suggestions := make([]models.Suggestion, 0, len(terms))
	for i, term := range terms {
		scores := models.MethodScores{
			Semantic: semantic[i],
		}
		if req.Weights.GeneOverlap > 0 {
			scores.GeneOverlap = e.config.GeneMetric(keGenes, e.termGenes[i])
		}
		if req.Weights.Text > 0 {
			scores.Text = e.config.TextMetric(keTokens, e.termTokens[i])
		}

		aggregate := (req.Weights.GeneOverlap*scores.GeneOverlap +
			req.Weights.Text*scores.Text +
			req.Weights.Semantic*scores.Semantic) / totalWeight

		suggestions = append(suggestions, models.Suggestion{
			TermID:   term.ID,
			TermName: term.Name,
			Kind:     term.Kind,
			Score:    aggregate,
			Methods:  scores,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].TermID < suggestions[j].TermID
	})
	if len(suggestions) > topK {
		suggestions = suggestions[:topK]
	}

	metrics.SuggestionsTotal.WithLabelValues("ok").Inc()
	metrics.SuggestionDuration.Observe(time.Since(start).Seconds())

	log.WithFields(map[string]any{"result_count": len(suggestions)}).Debug("Scored suggestion query")

	return &models.SuggestionResult{
		KeyEventID:  req.KeyEvent.ID,
		GeneCount:   len(keGenes),
		Suggestions: suggestions,
	}, nil
}
