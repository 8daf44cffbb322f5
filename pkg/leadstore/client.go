// Package leadstore wraps the lead profile vector store, which indexes
// enrichment documents keyed by contact address.
package leadstore

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/resilience"
)

// Client performs similarity searches against the profile store.
type Client interface {
	Search(ctx context.Context, query string, k int, filter map[string]string) ([]Document, error)
}

// Document is a single stored profile with its metadata.
type Document struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the store base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a profile store client.
func NewClient(baseURL, apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(10, 10),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchRequest struct {
	Query  string            `json:"query"`
	K      int               `json:"k"`
	Filter map[string]string `json:"filter,omitempty"`
}

type searchResponse struct {
	Documents []Document `json:"documents"`
}

func (c *httpClient) Search(ctx context.Context, query string, k int, filter map[string]string) ([]Document, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "leadstore: rate limit")
	}

	body, err := json.Marshal(searchRequest{Query: query, K: k, Filter: filter})
	if err != nil {
		return nil, eris.Wrap(err, "leadstore: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "leadstore: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "leadstore: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "leadstore: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err = eris.Errorf("leadstore: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var result searchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "leadstore: unmarshal response")
	}

	return result.Documents, nil
}
