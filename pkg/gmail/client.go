// Package gmail creates draft emails via the Gmail REST API.
package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://gmail.googleapis.com"

// Client creates draft emails in the connected mailbox.
type Client interface {
	CreateDraft(ctx context.Context, to, subject, body string) (string, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the API base URL.
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
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates a Gmail drafts client using an OAuth bearer token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type draftRequest struct {
	Message struct {
		Raw string `json:"raw"`
	} `json:"message"`
}

type draftResponse struct {
	ID string `json:"id"`
}

// CreateDraft builds an RFC 2822 message and stores it as a Gmail draft.
// Returns the draft ID.
func (c *httpClient) CreateDraft(ctx context.Context, to, subject, body string) (string, error) {
	raw := fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s", to, subject, body)

	var req draftRequest
	req.Message.Raw = base64.URLEncoding.EncodeToString([]byte(raw))

	payload, err := json.Marshal(req)
	if err != nil {
		return "", eris.Wrap(err, "gmail: marshal draft")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/gmail/v1/users/me/drafts", bytes.NewReader(payload))
	if err != nil {
		return "", eris.Wrap(err, "gmail: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", eris.Wrap(err, "gmail: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "gmail: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("gmail: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var out draftResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", eris.Wrap(err, "gmail: unmarshal response")
	}

	return out.ID, nil
}
