// Package genes fetches the gene set associated with a Key Event from the
// external gene annotation service. Lookup failures are reported as errors;
// callers that only need the genes as a scoring signal may treat an error as
// an empty set.
package genes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Gobusters/ectologger"
)

const (
	// DefaultTimeout is the default request timeout
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize is the maximum response body size (4MB)
	MaxResponseSize = 4 * 1024 * 1024
)

// Config holds gene service client configuration
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
}

// DefaultConfig returns default gene service client configuration
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:         baseURL,
		Timeout:         DefaultTimeout,
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
	}
}

// Client queries the gene annotation service over HTTP
type Client struct {
	baseURL string
	client  *http.Client
	logger  ectologger.Logger
}

// NewClient creates a new gene service client
func NewClient(cfg Config, logger ectologger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:    cfg.MaxIdleConns,
		IdleConnTimeout: cfg.IdleConnTimeout,
	}

	return &Client{
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		logger: logger,
	}
}

type geneResponse struct {
	KeyEventID string   `json:"key_event_id"`
	Genes      []string `json:"genes"`
}

// GenesForKeyEvent returns the gene identifiers annotated on the given Key
// Event. An empty slice means the service knows the Key Event but has no
// gene data for it.
func (c *Client) GenesForKeyEvent(ctx context.Context, keyEventID string) ([]string, error) {
	start := time.Now()

	reqURL := fmt.Sprintf("%s/key-events/%s/genes", c.baseURL, url.PathEscape(keyEventID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Errorf("gene lookup failed for key event %s", keyEventID)
		return nil, fmt.Errorf("gene lookup failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response body too large: %d bytes (max %d)", len(body), MaxResponseSize)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		// No annotation data is an ordinary outcome, not a failure
		c.logger.WithContext(ctx).Debugf("no gene annotations for key event %s", keyEventID)
		return []string{}, nil
	default:
		return nil, fmt.Errorf("gene service returned status %d", resp.StatusCode)
	}

	var parsed geneResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode gene response: %w", err)
	}

	c.logger.WithContext(ctx).Debugf("gene lookup for %s -> %d genes (%s)",
		keyEventID, len(parsed.Genes), time.Since(start))

	if parsed.Genes == nil {
		return []string{}, nil
	}
	return parsed.Genes, nil
}
