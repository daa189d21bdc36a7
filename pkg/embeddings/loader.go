package embeddings

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Gobusters/ectologger"

	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/models"
)

// keyEventRow is one line of the Key Event embedding artifact.
type keyEventRow struct {
	ID             string    `json:"id"`
	Embedding      []float32 `json:"embedding"`
	TitleEmbedding []float32 `json:"title_embedding"`
}

// LoaderConfig locates the embedding artifacts.
type LoaderConfig struct {
	TermArtifactPath     string
	KeyEventArtifactPath string
	Workers              int
}

// Load reads the term corpus and Key Event embeddings from their JSONL
// artifacts and returns an immutable store. The artifacts are produced
// offline; this process never writes them.
func Load(cfg LoaderConfig, logger ectologger.Logger) (*Store, error) {
	terms, err := loadTerms(cfg.TermArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("loading term artifact: %w", err)
	}

	keVectors := map[string]KeyEventVector{}
	if cfg.KeyEventArtifactPath != "" {
		keVectors, err = loadKeyEventVectors(cfg.KeyEventArtifactPath)
		if err != nil {
			return nil, fmt.Errorf("loading key event artifact: %w", err)
		}
	}

	logger.WithFields(map[string]any{
		"terms":      len(terms),
		"key_events": len(keVectors),
	}).Info("Loaded embedding artifacts")

	return NewStore(terms, keVectors, cfg.Workers), nil
}

func loadTerms(path string) ([]models.OntologyTerm, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var terms []models.OntologyTerm
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var term models.OntologyTerm
		if err := json.Unmarshal(raw, &term); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if term.ID == "" {
			return nil, fmt.Errorf("line %d: term is missing an id", line)
		}
		terms = append(terms, term)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return terms, nil
}

func loadKeyEventVectors(path string) (map[string]KeyEventVector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vectors := map[string]KeyEventVector{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var row keyEventRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if row.ID == "" {
			continue
		}
		vectors[row.ID] = KeyEventVector{Full: row.Embedding, Title: row.TitleEmbedding}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return vectors, nil
}
