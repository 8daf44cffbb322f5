// Package protect wraps the content guardrail service that evaluates
// generated outreach text against prioritized rulesets.
package protect

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the guardrail service operations used by the gate.
type Client interface {
	CreateProject(ctx context.Context, name string) (*Project, error)
	CreateStage(ctx context.Context, projectID, name string) (*Stage, error)
	Invoke(ctx context.Context, req InvokeRequest) (*InvokeResponse, error)
}

// Project is a guardrail project.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Stage is a guardrail evaluation stage within a project.
type Stage struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
}

// Payload carries the input/output pair to evaluate.
type Payload struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Rule is a single metric check within a ruleset.
type Rule struct {
	Metric      string `json:"metric"`
	Operator    string `json:"operator"`
	TargetValue any    `json:"target_value"`
}

// Action describes what the service does when a ruleset triggers.
type Action struct {
	Type    string   `json:"type"`
	Choices []string `json:"choices"`
}

// Ruleset pairs rules with their override action. Rulesets are evaluated
// in the order given; the first triggered ruleset's action wins.
type Ruleset struct {
	Rules  []Rule `json:"rules"`
	Action Action `json:"action"`
}

// InvokeRequest is the request body for POST /invoke.
type InvokeRequest struct {
	StageID             string    `json:"stage_id"`
	Payload             Payload   `json:"payload"`
	PrioritizedRulesets []Ruleset `json:"prioritized_rulesets"`
}

// TriggeredRule reports one rule that fired during evaluation.
type TriggeredRule struct {
	Metric    string   `json:"metric"`
	Value     *float64 `json:"value,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// InvokeResponse is the evaluation outcome.
type InvokeResponse struct {
	Overridden     bool            `json:"overridden"`
	Output         string          `json:"output"`
	TriggeredRules []TriggeredRule `json:"triggered_rules"`
}

// Option configures the client.
type Option func(*httpClient)

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
}

// NewClient creates a guardrail service client. Per-call deadlines are
// expected to come from the caller's context; the transport timeout is a
// backstop only.
func NewClient(baseURL, apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) CreateProject(ctx context.Context, name string) (*Project, error) {
	var out Project
	if err := c.post(ctx, "/v1/projects", map[string]string{"name": name}, &out); err != nil {
		return nil, eris.Wrap(err, "protect: create project")
	}
	return &out, nil
}

func (c *httpClient) CreateStage(ctx context.Context, projectID, name string) (*Stage, error) {
	var out Stage
	body := map[string]string{"project_id": projectID, "name": name}
	if err := c.post(ctx, "/v1/stages", body, &out); err != nil {
		return nil, eris.Wrap(err, "protect: create stage")
	}
	return &out, nil
}

func (c *httpClient) Invoke(ctx context.Context, req InvokeRequest) (*InvokeResponse, error) {
	var out InvokeResponse
	if err := c.post(ctx, "/v1/invoke", req, &out); err != nil {
		return nil, eris.Wrap(err, "protect: invoke")
	}
	return &out, nil
}

func (c *httpClient) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return eris.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}
