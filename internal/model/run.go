package model

import "time"

// RunStatus tracks a workflow run through its lifecycle.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is a persisted workflow execution record.
type Run struct {
	ID        string         `json:"id"`
	LeadID    string         `json:"lead_id"`
	Input     string         `json:"input"`
	Status    RunStatus      `json:"status"`
	State     *WorkflowState `json:"state,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
