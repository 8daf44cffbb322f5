package workflow

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
	"github.com/sells-group/outreach-cli/pkg/leadstore"
	"github.com/sells-group/outreach-cli/pkg/protect"
	"github.com/sells-group/outreach-cli/pkg/tavily"
)

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}

func sufficientDocument() leadstore.Document {
	return leadstore.Document{
		Content: "Acme builds billing automation for outpatient clinics across the US. " +
			"The platform handles claims, eligibility, and payment posting end to end.",
		Metadata: map[string]string{
			model.MetaOrganization: "Acme",
			model.MetaSector:       "healthcare",
			model.MetaRoleTitle:    "VP Engineering",
		},
	}
}

func onGeneratorSystem(d *testDeps, system, text string) {
	d.generator.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.System == system
	})).Return(textResponse(text), nil)
}

func stubSearches(d *testDeps) {
	d.search.On("Search", mock.Anything, mock.MatchedBy(func(r tavily.SearchRequest) bool {
		return r.Days == eventWindowDays
	})).Return(&tavily.SearchResponse{Results: []tavily.Result{
		{Title: "Acme raises Series B", URL: "https://news.example/acme-b", Content: "Acme raised a Series B round to expand its clinics platform."},
	}}, nil)
	d.search.On("Search", mock.Anything, mock.MatchedBy(func(r tavily.SearchRequest) bool {
		return r.Days == 0
	})).Return(&tavily.SearchResponse{Results: []tavily.Result{
		{Title: "Billing compliance burden grows", URL: "https://news.example/compliance", Content: "Healthcare providers report rising compliance costs."},
	}}, nil)
}

func stubDelivery(d *testDeps) {
	d.mail.On("CreateDraft", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("gmail-draft-1", nil)
	d.social.On("CreateMessageDraft", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	d.writer.On("WriteCallScript", mock.Anything, mock.Anything).Return("outputs/call_script_lead-1.md", nil)
}

func TestRun_InvalidInputNeverStartsGraph(t *testing.T) {
	d := newTestDeps(t)
	e := d.engine()

	state, err := e.Run(context.Background(), "lead-1", "not-an-email")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Nil(t, state)

	d.leads.AssertNotCalled(t, "Search")
	d.search.AssertNotCalled(t, "Search")
	d.generator.AssertNotCalled(t, "CreateMessage")
}

func TestRun_ContactLead_FullGraph(t *testing.T) {
	d := newTestDeps(t)
	d.allowSafeGate()
	stubSearches(d)
	stubDelivery(d)
	d.leads.On("Search", mock.Anything, "jane.doe@acme.com", 1, mock.Anything).
		Return([]leadstore.Document{sufficientDocument()}, nil)
	onGeneratorSystem(d, emailSystemPrompt, "Subject: Acme billing\n\nHi Jane, saw the Series B news. Could we schedule a call?")
	onGeneratorSystem(d, socialSystemPrompt, "Congrats on the Series B! Would love to connect.")
	onGeneratorSystem(d, callScriptSystemPrompt, "# Opener\nHi Jane, this is Sam.")

	state, err := d.engine().Run(context.Background(), "lead-1", "jane.doe@acme.com")
	require.NoError(t, err)

	// Fan-out completeness: all three artifacts exist.
	assert.Len(t, state.Drafts, 3)
	assert.Contains(t, state.Drafts[model.ArtifactEmail], "Series B")
	assert.NotEmpty(t, state.Drafts[model.ArtifactSocial])
	assert.NotEmpty(t, state.Drafts[model.ArtifactCallScript])

	assert.Equal(t, "Acme", state.OrganizationName())
	assert.True(t, state.EnrichmentSufficient)
	require.NotNil(t, state.Research)
	assert.Equal(t, []string{"Acme raised a Series B round to expand its clinics platform."}, state.Research.RecentEvents)
	assert.Contains(t, state.Hooks[model.HookRecentEvent], "Series B")

	// Sources stay categorized by originating query.
	require.Len(t, state.Research.Sources, 2)
	assert.Equal(t, sourceCategoryEvents, state.Research.Sources[0].Category)
	assert.Equal(t, sourceCategoryPain, state.Research.Sources[1].Category)

	// Sequential prefix of the status log is ordered; the concurrent
	// tail may interleave but must contain both fan-out tokens.
	require.GreaterOrEqual(t, len(state.StatusLog), 6)
	assert.Equal(t, []string{"input_normalized", "enrichment_retrieved", "research_completed", "email_drafted"}, state.StatusLog[:4])
	assert.Contains(t, state.StatusLog, "social_message_drafted")
	assert.Contains(t, state.StatusLog, "call_script_drafted")

	assert.Empty(t, state.Error)
	d.mail.AssertCalled(t, "CreateDraft", mock.Anything, "jane.doe@acme.com", mock.Anything, mock.Anything)
	d.writer.AssertCalled(t, "WriteCallScript", "lead-1", mock.Anything)
}

func TestRun_NameOrgLead_SkipsEnrichment(t *testing.T) {
	d := newTestDeps(t)
	d.allowSafeGate()
	stubSearches(d)
	stubDelivery(d)
	onGeneratorSystem(d, emailSystemPrompt, "Hi Jane, quick question about Acme. Happy to chat.")
	onGeneratorSystem(d, socialSystemPrompt, "Hi Jane, would love to connect.")
	onGeneratorSystem(d, callScriptSystemPrompt, "# Opener")

	state, err := d.engine().Run(context.Background(), "lead-2", "jane doe - Acme")
	require.NoError(t, err)

	d.leads.AssertNotCalled(t, "Search")
	assert.Contains(t, state.StatusLog, "enrichment_skipped")
	assert.Nil(t, state.Enrichment)
	assert.False(t, state.EnrichmentSufficient)

	// Research still runs and drafting proceeds on parsed identity alone.
	require.NotNil(t, state.Research)
	assert.Equal(t, "jane doe", state.PersonName)
	assert.Equal(t, "Acme", state.OrganizationName())
	assert.Len(t, state.Drafts, 3)

	// Social delivery falls back to the person name without an address.
	d.social.AssertCalled(t, "CreateMessageDraft", mock.Anything, "jane doe", mock.Anything)
	d.mail.AssertNotCalled(t, "CreateDraft", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_ProfileStoreFailureDegrades(t *testing.T) {
	d := newTestDeps(t)
	d.allowSafeGate()
	stubSearches(d)
	stubDelivery(d)
	d.leads.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, eris.New("leadstore: connection refused"))
	onGeneratorSystem(d, emailSystemPrompt, "Hi, quick question. Happy to chat.")
	onGeneratorSystem(d, socialSystemPrompt, "Would love to connect.")
	onGeneratorSystem(d, callScriptSystemPrompt, "# Opener")

	state, err := d.engine().Run(context.Background(), "lead-3", "jane.doe@acme.com")
	require.NoError(t, err)

	assert.Contains(t, state.StatusLog, "enrichment_error")
	assert.Contains(t, state.Error, "connection refused")
	assert.Nil(t, state.Enrichment)

	// The run still completes with all three drafts.
	assert.Len(t, state.Drafts, 3)
}

func TestRun_SkipWhenSufficientPolicy(t *testing.T) {
	d := newTestDeps(t)
	d.allowSafeGate()
	stubDelivery(d)
	d.leads.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]leadstore.Document{sufficientDocument()}, nil)
	onGeneratorSystem(d, emailSystemPrompt, "Hi Jane, noticed Acme's work in healthcare. Happy to chat.")
	onGeneratorSystem(d, socialSystemPrompt, "Would love to connect.")
	onGeneratorSystem(d, callScriptSystemPrompt, "# Opener")

	state, err := d.engine(WithResearchPolicy(SkipWhenSufficient)).
		Run(context.Background(), "lead-4", "jane.doe@acme.com")
	require.NoError(t, err)

	d.search.AssertNotCalled(t, "Search")
	assert.Nil(t, state.Research)
	assert.Empty(t, state.Hooks)
	assert.NotContains(t, state.StatusLog, "research_completed")
	assert.Len(t, state.Drafts, 3)
}

func TestRun_GenerationFailureIsolatedToArtifact(t *testing.T) {
	d := newTestDeps(t)
	d.allowSafeGate()
	stubSearches(d)
	d.social.On("CreateMessageDraft", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	d.writer.On("WriteCallScript", mock.Anything, mock.Anything).Return("outputs/call_script_lead-5.md", nil)
	d.leads.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]leadstore.Document{sufficientDocument()}, nil)
	d.generator.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.System == emailSystemPrompt
	})).Return(nil, eris.New("anthropic: overloaded"))
	onGeneratorSystem(d, socialSystemPrompt, "Would love to connect.")
	onGeneratorSystem(d, callScriptSystemPrompt, "# Opener")

	state, err := d.engine().Run(context.Background(), "lead-5", "jane.doe@acme.com")
	require.NoError(t, err)

	_, hasEmail := state.Drafts[model.ArtifactEmail]
	assert.False(t, hasEmail)
	assert.Contains(t, state.StatusLog, "email_error")
	assert.Contains(t, state.Error, "overloaded")

	// The fan-out still runs and the other artifacts land.
	assert.NotEmpty(t, state.Drafts[model.ArtifactSocial])
	assert.NotEmpty(t, state.Drafts[model.ArtifactCallScript])
	d.mail.AssertNotCalled(t, "CreateDraft", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_GateOverrideBlocksDelivery(t *testing.T) {
	d := newTestDeps(t)
	d.protect.On("Invoke", mock.Anything, mock.Anything).
		Return(&protect.InvokeResponse{Overridden: true, Output: "Content removed."}, nil)
	stubSearches(d)
	d.leads.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]leadstore.Document{sufficientDocument()}, nil)
	onGeneratorSystem(d, emailSystemPrompt, "Unsafe draft")
	onGeneratorSystem(d, socialSystemPrompt, "Unsafe draft")
	onGeneratorSystem(d, callScriptSystemPrompt, "Unsafe draft")

	state, err := d.engine().Run(context.Background(), "lead-6", "jane.doe@acme.com")
	require.NoError(t, err)

	// Blocked drafts carry the gate's replacement text, and nothing is
	// handed to the delivery integrations.
	assert.Equal(t, "Content removed.", state.Drafts[model.ArtifactEmail])
	assert.Equal(t, "Content removed.", state.Drafts[model.ArtifactSocial])
	assert.Equal(t, "Content removed.", state.Drafts[model.ArtifactCallScript])
	assert.Contains(t, state.StatusLog, "email_blocked")
	assert.Contains(t, state.StatusLog, "social_message_blocked")
	assert.Contains(t, state.StatusLog, "call_script_blocked")

	d.mail.AssertNotCalled(t, "CreateDraft", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	d.social.AssertNotCalled(t, "CreateMessageDraft", mock.Anything, mock.Anything, mock.Anything)
	d.writer.AssertNotCalled(t, "WriteCallScript", mock.Anything, mock.Anything)
}

func TestRun_PersistsLifecycle(t *testing.T) {
	d := newTestDeps(t)
	d.allowSafeGate()
	stubSearches(d)
	stubDelivery(d)
	d.leads.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]leadstore.Document{sufficientDocument()}, nil)
	onGeneratorSystem(d, emailSystemPrompt, "Hi Jane. Happy to chat.")
	onGeneratorSystem(d, socialSystemPrompt, "Would love to connect.")
	onGeneratorSystem(d, callScriptSystemPrompt, "# Opener")

	st := new(mockRunStore)
	st.On("CreateRun", mock.Anything, "lead-7", "jane.doe@acme.com").
		Return(&model.Run{ID: "run-7"}, nil)
	st.On("UpdateRunStatus", mock.Anything, "run-7", model.RunStatusRunning).Return(nil)
	st.On("SaveRunState", mock.Anything, "run-7", mock.Anything, model.RunStatusComplete).Return(nil)

	_, err := d.engine(WithRunStore(st)).Run(context.Background(), "lead-7", "jane.doe@acme.com")
	require.NoError(t, err)
	st.AssertExpectations(t)
}
