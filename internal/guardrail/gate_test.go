package guardrail

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/pkg/protect"
)

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

func newReadyGate(t *testing.T, client protect.Client, strict bool) *Gate {
	t.Helper()
	g := NewGate(Config{StageID: "stage-1", StrictMode: strict}, client)
	require.NoError(t, g.Init(context.Background()))
	return g
}

func TestInit_CreatesProjectAndStage(t *testing.T) {
	client := new(mockProtectClient)
	client.On("CreateProject", mock.Anything, "outreach-assistant").
		Return(&protect.Project{ID: "proj-1"}, nil)
	client.On("CreateStage", mock.Anything, "proj-1", "production").
		Return(&protect.Stage{ID: "stage-1"}, nil)

	g := NewGate(Config{}, client)
	require.NoError(t, g.Init(context.Background()))
	assert.True(t, g.Available())

	// Second Init is a no-op.
	require.NoError(t, g.Init(context.Background()))
	client.AssertNumberOfCalls(t, "CreateProject", 1)
}

func TestInit_FailureMarksGateUnavailable(t *testing.T) {
	client := new(mockProtectClient)
	client.On("CreateProject", mock.Anything, mock.Anything).
		Return(nil, eris.New("service down"))

	g := NewGate(Config{}, client)
	require.Error(t, g.Init(context.Background()))
	assert.False(t, g.Available())

	// Unavailable gate fails open without calling Invoke.
	v := g.Validate(context.Background(), "some draft", model.ArtifactEmail, "")
	assert.True(t, v.Safe)
	assert.Equal(t, "some draft", v.FilteredText)
	assert.Empty(t, v.Violations)
	client.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestValidate_SafeContentPasses(t *testing.T) {
	client := new(mockProtectClient)
	client.On("Invoke", mock.Anything, mock.Anything).
		Return(&protect.InvokeResponse{Overridden: false, Output: "Hi Jane, congrats on the launch."}, nil)

	g := newReadyGate(t, client, true)
	v := g.Validate(context.Background(), "Hi Jane, congrats on the launch.", model.ArtifactEmail, "lead context")

	assert.True(t, v.Safe)
	assert.Equal(t, "Hi Jane, congrats on the launch.", v.FilteredText)
	assert.Equal(t, v.OriginalText, v.FilteredText)
	assert.Empty(t, v.Violations)
}

func TestValidate_FirstMatchPrecedence(t *testing.T) {
	// Both the PII rule and the toxicity rule trigger; the PII override
	// text wins because PII is the highest-priority ruleset, but both
	// violations are reported.
	val := 0.95
	thr := 0.7
	client := new(mockProtectClient)
	client.On("Invoke", mock.Anything, mock.Anything).
		Return(&protect.InvokeResponse{
			Overridden: true,
			Output:     "[backend override]",
			TriggeredRules: []protect.TriggeredRule{
				{Metric: "toxicity", Value: &val, Threshold: &thr},
				{Metric: "pii"},
			},
		}, nil)

	g := newReadyGate(t, client, true)
	v := g.Validate(context.Background(), "draft with ssn 123-45-6789", model.ArtifactEmail, "")

	assert.False(t, v.Safe)
	assert.Equal(t, "[BLOCKED: PII detected in EMAIL. Please regenerate without personal information.]", v.FilteredText)
	require.Len(t, v.Violations, 2)
	metrics := []string{v.Violations[0].Metric, v.Violations[1].Metric}
	assert.Contains(t, metrics, "pii")
	assert.Contains(t, metrics, "toxicity")
	assert.Equal(t, "draft with ssn 123-45-6789", v.OriginalText)
}

func TestValidate_FailOpenOnBackendError(t *testing.T) {
	client := new(mockProtectClient)
	client.On("Invoke", mock.Anything, mock.Anything).
		Return(nil, eris.New("request timeout"))

	g := newReadyGate(t, client, true)

	for _, text := range []string{"first draft", "second draft", "anything at all"} {
		v := g.Validate(context.Background(), text, model.ArtifactCallScript, "")
		assert.True(t, v.Safe)
		assert.Equal(t, text, v.FilteredText)
		assert.NotEmpty(t, v.Err)
	}
}

func TestValidate_CircuitOpenFailsOpen(t *testing.T) {
	client := new(mockProtectClient)
	client.On("Invoke", mock.Anything, mock.Anything).
		Return(nil, eris.New("connection refused"))

	g := newReadyGate(t, client, true)

	// Trip the breaker (threshold 3), then confirm calls stop reaching
	// the backend while verdicts still pass open.
	for i := 0; i < 5; i++ {
		v := g.Validate(context.Background(), "draft", model.ArtifactEmail, "")
		assert.True(t, v.Safe)
	}
	client.AssertNumberOfCalls(t, "Invoke", 3)
}

func TestBuildRulesets_Priorities(t *testing.T) {
	rs := buildRulesets(model.ArtifactEmail, true)
	require.Len(t, rs, 3)
	assert.Equal(t, "pii", rs[0].Rules[0].Metric)
	assert.Equal(t, "toxicity", rs[1].Rules[0].Metric)
	assert.Equal(t, 0.7, rs[1].Rules[0].TargetValue)
	assert.Equal(t, "tone", rs[2].Rules[0].Metric)

	relaxed := buildRulesets(model.ArtifactEmail, false)
	assert.Equal(t, 0.85, relaxed[1].Rules[0].TargetValue)

	// Social messages get the extra negative-tone ruleset.
	social := buildRulesets(model.ArtifactSocial, true)
	require.Len(t, social, 4)
	assert.Equal(t, []string{"fear", "sadness"}, social[3].Rules[0].TargetValue)
}

func TestCheckInput(t *testing.T) {
	client := new(mockProtectClient)
	client.On("Invoke", mock.Anything, mock.MatchedBy(func(req protect.InvokeRequest) bool {
		return len(req.PrioritizedRulesets) == 1 && req.PrioritizedRulesets[0].Rules[0].Metric == "pii"
	})).Return(&protect.InvokeResponse{
		Overridden:     true,
		Output:         "[SENSITIVE DATA DETECTED]",
		TriggeredRules: []protect.TriggeredRule{{Metric: "pii"}},
	}, nil)

	g := newReadyGate(t, client, true)
	v := g.CheckInput(context.Background(), "lead ssn 123-45-6789")
	assert.False(t, v.Safe)
	require.Len(t, v.Violations, 1)
	assert.Equal(t, "pii", v.Violations[0].Metric)
}

func TestCheckInput_FailOpen(t *testing.T) {
	client := new(mockProtectClient)
	client.On("Invoke", mock.Anything, mock.Anything).
		Return(nil, eris.New("backend 503"))

	g := newReadyGate(t, client, true)
	v := g.CheckInput(context.Background(), "lead text")
	assert.True(t, v.Safe)
}
