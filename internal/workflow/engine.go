package workflow

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/guardrail"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/outputs"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
	"github.com/sells-group/outreach-cli/pkg/gmail"
	"github.com/sells-group/outreach-cli/pkg/leadstore"
	"github.com/sells-group/outreach-cli/pkg/linkedin"
	"github.com/sells-group/outreach-cli/pkg/tavily"
)

// Config holds generation settings for the draft nodes.
type Config struct {
	Model       string
	MaxTokens   int64
	Temperature float64
}

// ResearchPolicy decides the successor of the enrich node. The default
// always researches: profile-store data goes stale and the drafts lean on
// fresh signals. SkipWhenSufficient trades freshness for latency and
// search spend.
type ResearchPolicy func(*model.WorkflowState) Node

// AlwaysResearch routes every lead through web research.
func AlwaysResearch(*model.WorkflowState) Node { return NodeResearch }

// SkipWhenSufficient routes straight to drafting when the enrichment
// profile alone is complete enough.
func SkipWhenSufficient(s *model.WorkflowState) Node {
	if s.EnrichmentSufficient {
		return NodeDraftEmail
	}
	return NodeResearch
}

// Engine wires the outreach graph's nodes to their collaborators and
// executes runs.
type Engine struct {
	cfg       Config
	leads     leadstore.Client
	search    tavily.Client
	generator anthropic.Client
	gate      *guardrail.Gate
	mail      gmail.Client
	social    linkedin.Client
	scripts   outputs.Writer

	runs     store.Store
	policy   ResearchPolicy
	retryCfg resilience.RetryConfig
}

// Option configures an Engine.
type Option func(*Engine)

// WithResearchPolicy overrides the default always-research routing.
func WithResearchPolicy(p ResearchPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithRetryConfig overrides retry behavior for research searches.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(e *Engine) { e.retryCfg = cfg }
}

// WithRunStore enables run persistence. Without it runs are ephemeral.
func WithRunStore(st store.Store) Option {
	return func(e *Engine) { e.runs = st }
}

// New creates a workflow engine.
func New(
	cfg Config,
	leads leadstore.Client,
	search tavily.Client,
	generator anthropic.Client,
	gate *guardrail.Gate,
	mail gmail.Client,
	social linkedin.Client,
	scripts outputs.Writer,
	opts ...Option,
) *Engine {
	e := &Engine{
		cfg:       cfg,
		leads:     leads,
		search:    search,
		generator: generator,
		gate:      gate,
		mail:      mail,
		social:    social,
		scripts:   scripts,
		policy:    AlwaysResearch,
		retryCfg:  resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run validates raw lead input and executes the outreach graph for it.
// Invalid input fails before the graph starts; once the graph is running
// every downstream failure degrades to state content and Run still
// returns the final state.
func (e *Engine) Run(ctx context.Context, leadID, rawInput string) (*model.WorkflowState, error) {
	frag, err := Normalize(rawInput)
	if err != nil {
		return nil, eris.Wrap(err, "workflow: normalize input")
	}

	log := zap.L().With(zap.String("lead_id", leadID))
	log.Info("workflow: starting run", zap.String("mode", string(frag.Mode)))

	var run *model.Run
	if e.runs != nil {
		run, err = e.runs.CreateRun(ctx, leadID, rawInput)
		if err != nil {
			log.Warn("workflow: create run record failed", zap.Error(err))
			run = nil
		} else if err := e.runs.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
			log.Warn("workflow: mark run running failed", zap.Error(err))
		}
	}

	state := model.NewWorkflowState(leadID)
	x := newExecutor(state)
	e.buildGraph(frag).run(ctx, x)

	if e.runs != nil && run != nil {
		status := model.RunStatusComplete
		if len(state.Drafts) == 0 && state.Error != "" {
			status = model.RunStatusFailed
		}
		if err := e.runs.SaveRunState(ctx, run.ID, state, status); err != nil {
			log.Warn("workflow: save run state failed", zap.Error(err))
		}
	}

	log.Info("workflow: run complete",
		zap.Int("drafts", len(state.Drafts)),
		zap.Strings("status_log", state.StatusLog),
	)
	return state, nil
}

func (e *Engine) buildGraph(frag *InputFragment) *graph {
	return &graph{
		entry: NodeNormalize,
		nodes: map[Node]nodeFunc{
			NodeNormalize:   normalizeNode(frag),
			NodeEnrich:      e.enrichNode,
			NodeResearch:    e.researchNode,
			NodeDraftEmail:  e.draftEmailNode,
			NodeDraftSocial: e.draftSocialNode,
			NodeDraftCall:   e.draftCallScriptNode,
		},
		edges: map[Node][]Node{
			NodeNormalize:  {NodeEnrich},
			NodeResearch:   {NodeDraftEmail},
			NodeDraftEmail: {NodeDraftSocial, NodeDraftCall},
		},
		conditional: map[Node]func(*model.WorkflowState) Node{
			NodeEnrich: e.policy,
		},
	}
}
