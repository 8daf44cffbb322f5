package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/guardrail"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
	"github.com/sells-group/outreach-cli/pkg/leadstore"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/pkg/protect"
	"github.com/sells-group/outreach-cli/pkg/tavily"
)

type mockLeadStore struct {
	mock.Mock
}

func (m *mockLeadStore) Search(ctx context.Context, query string, k int, filter map[string]string) ([]leadstore.Document, error) {
	args := m.Called(ctx, query, k, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]leadstore.Document), args.Error(1)
}

type mockSearch struct {
	mock.Mock
}

func (m *mockSearch) Search(ctx context.Context, req tavily.SearchRequest) (*tavily.SearchResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tavily.SearchResponse), args.Error(1)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

type mockMail struct {
	mock.Mock
}

func (m *mockMail) CreateDraft(ctx context.Context, to, subject, body string) (string, error) {
	args := m.Called(ctx, to, subject, body)
	return args.String(0), args.Error(1)
}

type mockSocial struct {
	mock.Mock
}

func (m *mockSocial) CreateMessageDraft(ctx context.Context, recipient, message string) error {
	args := m.Called(ctx, recipient, message)
	return args.Error(0)
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteCallScript(leadID, content string) (string, error) {
	args := m.Called(leadID, content)
	return args.String(0), args.Error(1)
}

type mockProtectClient struct {
	mock.Mock
}

func (m *mockProtectClient) CreateProject(ctx context.Context, name string) (*protect.Project, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*protect.Project), args.Error(1)
}

func (m *mockProtectClient) CreateStage(ctx context.Context, projectID, name string) (*protect.Stage, error) {
	args := m.Called(ctx, projectID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*protect.Stage), args.Error(1)
}

func (m *mockProtectClient) Invoke(ctx context.Context, req protect.InvokeRequest) (*protect.InvokeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*protect.InvokeResponse), args.Error(1)
}

type mockRunStore struct {
	mock.Mock
}

func (m *mockRunStore) CreateRun(ctx context.Context, leadID, input string) (*model.Run, error) {
	args := m.Called(ctx, leadID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockRunStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	return m.Called(ctx, runID, status).Error(0)
}

func (m *mockRunStore) SaveRunState(ctx context.Context, runID string, state *model.WorkflowState, status model.RunStatus) error {
	return m.Called(ctx, runID, state, status).Error(0)
}

func (m *mockRunStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockRunStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockRunStore) Migrate(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockRunStore) Close() error                      { return m.Called().Error(0) }

// testDeps bundles one mock per collaborator plus a gate backed by the
// protect mock.
type testDeps struct {
	leads     *mockLeadStore
	search    *mockSearch
	generator *mockGenerator
	mail      *mockMail
	social    *mockSocial
	writer    *mockWriter
	protect   *mockProtectClient
	gate      *guardrail.Gate
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	d := &testDeps{
		leads:     new(mockLeadStore),
		search:    new(mockSearch),
		generator: new(mockGenerator),
		mail:      new(mockMail),
		social:    new(mockSocial),
		writer:    new(mockWriter),
		protect:   new(mockProtectClient),
	}
	d.gate = guardrail.NewGate(guardrail.Config{StageID: "stage-1"}, d.protect)
	require.NoError(t, d.gate.Init(context.Background()))
	return d
}

func (d *testDeps) engine(opts ...Option) *Engine {
	return New(
		Config{Model: "claude-sonnet-4-5", MaxTokens: 1024, Temperature: 0.7},
		d.leads, d.search, d.generator, d.gate, d.mail, d.social, d.writer,
		opts...,
	)
}

// allowSafeGate makes every guardrail invocation pass.
func (d *testDeps) allowSafeGate() {
	d.protect.On("Invoke", mock.Anything, mock.Anything).
		Return(&protect.InvokeResponse{Overridden: false}, nil)
}
