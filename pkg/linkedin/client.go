// Package linkedin queues LinkedIn connection-message drafts. When no
// queue endpoint is configured the draft is logged locally for manual
// sending, mirroring a manual SDR workflow.
package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Client queues LinkedIn message drafts for a recipient.
type Client interface {
	CreateMessageDraft(ctx context.Context, recipient, message string) error
}

// NewClient returns a queue-backed client when queueURL is set, otherwise
// a local client that logs drafts for manual sending.
func NewClient(queueURL string) Client {
	if queueURL == "" {
		return &localClient{}
	}
	return &queueClient{
		queueURL: queueURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// localClient logs drafts instead of sending them anywhere.
type localClient struct{}

func (c *localClient) CreateMessageDraft(_ context.Context, recipient, message string) error {
	zap.L().Info("linkedin: draft queued locally",
		zap.String("recipient", recipient),
		zap.String("message", message),
	)
	return nil
}

// queueClient posts drafts to an external message queue webhook.
type queueClient struct {
	queueURL string
	http     *http.Client
}

type queuedDraft struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

func (c *queueClient) CreateMessageDraft(ctx context.Context, recipient, message string) error {
	body, err := json.Marshal(queuedDraft{Recipient: recipient, Message: message})
	if err != nil {
		return eris.Wrap(err, "linkedin: marshal draft")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.queueURL, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "linkedin: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "linkedin: send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return eris.Errorf("linkedin: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
