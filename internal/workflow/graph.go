// Package workflow implements the outreach generation graph: a directed
// state machine that sequences enrichment lookup, web research, and
// parallel draft generation over a single WorkflowState.
package workflow

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Node names a vertex in the outreach graph.
type Node string

const (
	NodeNormalize   Node = "normalize"
	NodeEnrich      Node = "enrich"
	NodeResearch    Node = "research"
	NodeDraftEmail  Node = "draft_email"
	NodeDraftSocial Node = "draft_social"
	NodeDraftCall   Node = "draft_call_script"
)

// update is the set of WorkflowState writes produced by one node run.
// Zero-value fields are "no write"; the Done flags distinguish a write of
// an absent result from no write at all.
type update struct {
	fragment *InputFragment

	enrichment     *model.EnrichmentRecord
	sufficient     bool
	enrichmentDone bool

	research     *model.ResearchRecord
	researchDone bool
	hooks        map[model.HookKind]string

	drafts map[model.ArtifactKind]string

	status []string
	err    string
}

// nodeFunc executes one node against the current state and returns its
// writes. Node funcs never fail: every error is expressed as state
// content (a status token plus the err field).
type nodeFunc func(ctx context.Context, s *model.WorkflowState) update

// graph is a compiled workflow: node functions plus the edges between
// them. A node with a conditional picks exactly one successor at runtime;
// a node with multiple static edges fans out to all of them concurrently.
type graph struct {
	entry       Node
	nodes       map[Node]nodeFunc
	edges       map[Node][]Node
	conditional map[Node]func(*model.WorkflowState) Node
}

// executor applies node updates to the shared state. Concurrent branches
// write disjoint fields by construction; the executor enforces that
// contract and serializes the status-log appends so no token is lost.
type executor struct {
	mu     sync.Mutex
	state  *model.WorkflowState
	owners map[string]Node
}

func newExecutor(state *model.WorkflowState) *executor {
	return &executor{
		state:  state,
		owners: make(map[string]Node),
	}
}

// run walks the graph from its entry node and blocks until every reached
// branch has terminated. It never fails: partial results are always left
// in the state.
func (g *graph) run(ctx context.Context, x *executor) {
	g.runNode(ctx, x, g.entry)
}

func (g *graph) runNode(ctx context.Context, x *executor, n Node) {
	fn, ok := g.nodes[n]
	if !ok {
		zap.L().DPanic("workflow: unknown node", zap.String("node", string(n)))
		return
	}

	x.apply(n, fn(ctx, x.state))

	next := g.successors(n, x.state)
	switch len(next) {
	case 0:
		return
	case 1:
		g.runNode(ctx, x, next[0])
	default:
		// Fan-out: all successors run concurrently and the walk does not
		// return until each has completed its branch.
		var eg errgroup.Group
		for _, succ := range next {
			eg.Go(func() error {
				g.runNode(ctx, x, succ)
				return nil
			})
		}
		_ = eg.Wait()
	}
}

func (g *graph) successors(n Node, s *model.WorkflowState) []Node {
	if pick, ok := g.conditional[n]; ok {
		return []Node{pick(s)}
	}
	return g.edges[n]
}

// apply merges one node's writes into the state. Status tokens are
// appended in arrival order; scalar fields are single-owner and a second
// writer is a programming-contract violation.
func (x *executor) apply(n Node, u update) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if u.fragment != nil {
		x.claim("input", n)
		x.state.InputMode = u.fragment.Mode
		x.state.ContactAddress = u.fragment.ContactAddress
		x.state.PersonName = u.fragment.PersonName
		x.state.Organization = u.fragment.Organization
	}

	if u.enrichmentDone {
		x.claim("enrichment", n)
		x.state.Enrichment = u.enrichment
		x.state.EnrichmentSufficient = u.sufficient
	}

	if u.researchDone {
		x.claim("research", n)
		x.state.Research = u.research
	}

	if u.hooks != nil {
		x.claim("hooks", n)
		x.state.Hooks = u.hooks
	}

	for kind, draft := range u.drafts {
		x.claim("drafts."+string(kind), n)
		x.state.Drafts[kind] = draft
	}

	x.state.StatusLog = append(x.state.StatusLog, u.status...)

	if u.err != "" {
		x.state.Error = u.err
	}
}

func (x *executor) claim(field string, n Node) {
	if owner, ok := x.owners[field]; ok && owner != n {
		zap.L().DPanic("workflow: duplicate field write",
			zap.String("field", field),
			zap.String("owner", string(owner)),
			zap.String("writer", string(n)),
		)
	}
	x.owners[field] = n
}
