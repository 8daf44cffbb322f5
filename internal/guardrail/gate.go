// Package guardrail validates generated outreach content against
// safety and compliance rules before it leaves the system.
package guardrail

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/protect"
)

const (
	validateTimeout   = 10 * time.Second
	inputCheckTimeout = 5 * time.Second

	toxicityStrict  = 0.7
	toxicityRelaxed = 0.85
)

// Config identifies the guardrail project and stage the gate evaluates
// against. ProjectName/StageName are used by Init when the IDs are not
// already known.
type Config struct {
	ProjectID   string
	StageID     string
	ProjectName string
	StageName   string
	StrictMode  bool
}

// Verdict is the outcome of validating one piece of content.
type Verdict struct {
	Safe         bool
	FilteredText string
	Violations   []Violation
	OriginalText string
	Err          string
}

// Violation reports one triggered rule.
type Violation struct {
	Metric    string
	Value     *float64
	Threshold *float64
}

// Gate validates drafts against the guardrail backend. Infrastructure
// failure is never mistaken for unsafe content: when the backend is
// unavailable or a call fails, the gate passes content through unchanged
// (fail-open) and records the error for observability.
type Gate struct {
	cfg     Config
	client  protect.Client
	breaker *resilience.CircuitBreaker

	mu          sync.Mutex
	stageID     string
	unavailable bool
}

// NewGate creates a gate. Init must be called once before Validate;
// a gate whose Init failed stays usable and passes everything through.
func NewGate(cfg Config, client protect.Client) *Gate {
	return &Gate{
		cfg:    cfg,
		client: client,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     time.Minute,
			OnStateChange: func(from, to resilience.CircuitState) {
				zap.L().Warn("guardrail: circuit state change",
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
	}
}

// Init resolves the evaluation stage, creating the project and stage when
// IDs are not configured. On failure the gate is marked unavailable and
// every later Validate call fails open; the error is returned so the
// caller can log it.
func (g *Gate) Init(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stageID != "" {
		return nil
	}

	if g.cfg.StageID != "" {
		g.stageID = g.cfg.StageID
		return nil
	}

	projectID := g.cfg.ProjectID
	if projectID == "" {
		name := g.cfg.ProjectName
		if name == "" {
			name = "outreach-assistant"
		}
		project, err := g.client.CreateProject(ctx, name)
		if err != nil {
			g.unavailable = true
			return eris.Wrap(err, "guardrail: create project")
		}
		projectID = project.ID
	}

	stageName := g.cfg.StageName
	if stageName == "" {
		stageName = "production"
	}
	stage, err := g.client.CreateStage(ctx, projectID, stageName)
	if err != nil {
		g.unavailable = true
		return eris.Wrap(err, "guardrail: create stage")
	}
	g.stageID = stage.ID

	zap.L().Info("guardrail: ready",
		zap.String("project_id", projectID),
		zap.String("stage_id", g.stageID),
	)
	return nil
}

// Available reports whether the gate has a usable evaluation stage.
func (g *Gate) Available() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.unavailable && g.stageID != ""
}

// Validate evaluates generated draft text. It never returns an error to
// the caller: every failure path degrades to a passing verdict.
func (g *Gate) Validate(ctx context.Context, text string, kind model.ArtifactKind, userInput string) Verdict {
	if !g.Available() {
		zap.L().Warn("guardrail: validation skipped, gate unavailable",
			zap.String("artifact", string(kind)),
		)
		return passOpen(text, "guardrail gate not initialized")
	}

	rulesets := buildRulesets(kind, g.cfg.StrictMode)

	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	input := userInput
	if input == "" {
		input = "Generate " + string(kind) + " for sales outreach"
	}

	resp, err := resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (*protect.InvokeResponse, error) {
		return g.client.Invoke(ctx, protect.InvokeRequest{
			StageID:             g.currentStageID(),
			Payload:             protect.Payload{Input: input, Output: text},
			PrioritizedRulesets: rulesets,
		})
	})
	if err != nil {
		zap.L().Warn("guardrail: validation error, failing open",
			zap.String("artifact", string(kind)),
			zap.Error(err),
		)
		return passOpen(text, err.Error())
	}

	verdict := Verdict{
		Safe:         !resp.Overridden,
		FilteredText: text,
		OriginalText: text,
		Violations:   toViolations(resp.TriggeredRules),
	}

	if resp.Overridden {
		// The highest-priority triggered ruleset's override text wins,
		// even when lower-priority rules also fired.
		verdict.FilteredText = firstOverride(rulesets, resp.TriggeredRules, resp.Output)
		metrics := make([]string, 0, len(verdict.Violations))
		for _, v := range verdict.Violations {
			metrics = append(metrics, v.Metric)
		}
		zap.L().Warn("guardrail: content blocked",
			zap.String("artifact", string(kind)),
			zap.Strings("metrics", metrics),
		)
	}

	return verdict
}

// CheckInput validates assembled lead data for sensitive information
// before drafting begins. Fail-open, observability only.
func (g *Gate) CheckInput(ctx context.Context, leadText string) Verdict {
	if !g.Available() {
		return passOpen(leadText, "")
	}

	ctx, cancel := context.WithTimeout(ctx, inputCheckTimeout)
	defer cancel()

	rulesets := []protect.Ruleset{{
		Rules: []protect.Rule{{
			Metric:      "pii",
			Operator:    "contains",
			TargetValue: []string{"ssn", "credit_card", "bank_account"},
		}},
		Action: protect.Action{
			Type:    "OVERRIDE",
			Choices: []string{"[SENSITIVE DATA DETECTED]"},
		},
	}}

	resp, err := resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (*protect.InvokeResponse, error) {
		return g.client.Invoke(ctx, protect.InvokeRequest{
			StageID:             g.currentStageID(),
			Payload:             protect.Payload{Output: leadText},
			PrioritizedRulesets: rulesets,
		})
	})
	if err != nil {
		zap.L().Warn("guardrail: input safety check error, failing open", zap.Error(err))
		return passOpen(leadText, err.Error())
	}

	return Verdict{
		Safe:         !resp.Overridden,
		FilteredText: leadText,
		OriginalText: leadText,
		Violations:   toViolations(resp.TriggeredRules),
	}
}

func (g *Gate) currentStageID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stageID
}

func passOpen(text, errMsg string) Verdict {
	return Verdict{
		Safe:         true,
		FilteredText: text,
		OriginalText: text,
		Err:          errMsg,
	}
}

// buildRulesets returns the prioritized rule list for one artifact kind:
// PII first, then toxicity, then unprofessional tone. Social messages get
// an extra negative-tone rule because their tight length budget makes any
// negative note disproportionately damaging.
func buildRulesets(kind model.ArtifactKind, strict bool) []protect.Ruleset {
	upper := strings.ToUpper(string(kind))

	toxicityThreshold := toxicityRelaxed
	if strict {
		toxicityThreshold = toxicityStrict
	}

	rulesets := []protect.Ruleset{
		{
			Rules: []protect.Rule{{
				Metric:      "pii",
				Operator:    "contains",
				TargetValue: "any",
			}},
			Action: protect.Action{
				Type: "OVERRIDE",
				Choices: []string{
					"[BLOCKED: PII detected in " + upper + ". Please regenerate without personal information.]",
				},
			},
		},
		{
			Rules: []protect.Rule{{
				Metric:      "toxicity",
				Operator:    "gt",
				TargetValue: toxicityThreshold,
			}},
			Action: protect.Action{
				Type: "OVERRIDE",
				Choices: []string{
					"[BLOCKED: Toxic content detected in " + upper + ". Please regenerate with professional language.]",
				},
			},
		},
		{
			Rules: []protect.Rule{{
				Metric:      "tone",
				Operator:    "contains",
				TargetValue: []string{"anger", "annoyance"},
			}},
			Action: protect.Action{
				Type: "OVERRIDE",
				Choices: []string{
					"[BLOCKED: Unprofessional tone in " + upper + ". Please regenerate with neutral/positive tone.]",
				},
			},
		},
	}

	if kind == model.ArtifactSocial {
		rulesets = append(rulesets, protect.Ruleset{
			Rules: []protect.Rule{{
				Metric:      "tone",
				Operator:    "contains",
				TargetValue: []string{"fear", "sadness"},
			}},
			Action: protect.Action{
				Type: "OVERRIDE",
				Choices: []string{
					"[BLOCKED: Negative tone in " + upper + ". Please regenerate with positive/professional tone.]",
				},
			},
		})
	}

	return rulesets
}

// firstOverride returns the override text of the highest-priority ruleset
// whose metric appears in the triggered rules. Falls back to the backend's
// own output when no ruleset matches.
func firstOverride(rulesets []protect.Ruleset, triggered []protect.TriggeredRule, backendOutput string) string {
	fired := make(map[string]bool, len(triggered))
	for _, r := range triggered {
		fired[r.Metric] = true
	}
	for _, rs := range rulesets {
		for _, rule := range rs.Rules {
			if fired[rule.Metric] && len(rs.Action.Choices) > 0 {
				return rs.Action.Choices[0]
			}
		}
	}
	return backendOutput
}

func toViolations(triggered []protect.TriggeredRule) []Violation {
	if len(triggered) == 0 {
		return nil
	}
	out := make([]Violation, len(triggered))
	for i, r := range triggered {
		out[i] = Violation{Metric: r.Metric, Value: r.Value, Threshold: r.Threshold}
	}
	return out
}
