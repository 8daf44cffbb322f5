package workflow

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
)

// contextSectionCap bounds each research section in the prompt so a noisy
// search result cannot crowd out the rest of the context.
const contextSectionCap = 200

// maxPromptHooks is the most hooks a draft prompt will carry.
const maxPromptHooks = 3

const emailSystemPrompt = `You are a sales development representative writing a cold outreach email.
Write a concise, specific email (under 150 words) with a clear subject line.
Open with the most compelling personalization hook, connect it to one concrete
way we can help, and close with a low-friction ask. No placeholder text.`

const socialSystemPrompt = `You are a sales development representative writing a LinkedIn connection
message. Write under 300 characters, conversational and specific. Reference one
personalization hook. No hashtags, no links, no placeholder text.`

const callScriptSystemPrompt = `You are a sales development representative preparing a cold call script.
Produce a markdown script with sections: Opener, Hook, Value Proposition,
Discovery Questions (3), Objection Handling (2 common objections), and Close.
Keep each section short enough to deliver naturally.`

// buildContextBlock assembles the lead context shared by every draft
// prompt: identity, enrichment profile, and categorized research capped
// per section.
func buildContextBlock(s *model.WorkflowState) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Lead: %s\n", s.Identifier())
	if org := s.OrganizationName(); org != "" {
		fmt.Fprintf(&b, "Organization: %s\n", org)
	}
	if sector := s.SectorName(); sector != "" {
		fmt.Fprintf(&b, "Sector: %s\n", sector)
	}
	if role := s.Enrichment.Meta(model.MetaRoleTitle); role != "" {
		fmt.Fprintf(&b, "Role: %s\n", role)
	}
	if loc := s.Enrichment.Meta(model.MetaLocation); loc != "" {
		fmt.Fprintf(&b, "Location: %s\n", loc)
	}
	if s.Enrichment != nil && s.Enrichment.Content != "" {
		fmt.Fprintf(&b, "\nProfile:\n%s\n", truncateRunes(s.Enrichment.Content, contextSectionCap))
	}
	if r := s.Research; r != nil {
		if len(r.RecentEvents) > 0 {
			fmt.Fprintf(&b, "\nRecent events:\n%s\n",
				truncateRunes(strings.Join(r.RecentEvents, " "), contextSectionCap))
		}
		if len(r.PainSignals) > 0 {
			fmt.Fprintf(&b, "\nPain signals:\n%s\n",
				truncateRunes(strings.Join(r.PainSignals, " "), contextSectionCap))
		}
	}
	return b.String()
}

// buildHookBlock renders up to maxPromptHooks hooks as prompt bullets in
// a fixed kind order so prompts are deterministic for a given state.
func buildHookBlock(s *model.WorkflowState) string {
	if len(s.Hooks) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Personalization hooks (reference at least one in the opening):\n")
	n := 0
	for _, kind := range []model.HookKind{model.HookRecentEvent, model.HookPainPoint, model.HookGrowthSignal} {
		hook, ok := s.Hooks[kind]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", strings.ReplaceAll(string(kind), "_", " "), hook)
		n++
		if n == maxPromptHooks {
			break
		}
	}
	return b.String()
}

func draftUserPrompt(s *model.WorkflowState, task string) string {
	var b strings.Builder
	b.WriteString(buildContextBlock(s))
	if hooks := buildHookBlock(s); hooks != "" {
		b.WriteString("\n")
		b.WriteString(hooks)
	}
	b.WriteString("\n")
	b.WriteString(task)
	return b.String()
}

// generateDraft runs one model call plus the validation gate for a
// single artifact. Generation failure leaves the artifact absent with a
// <kind>_error status; a gate override stores the replacement text with a
// <kind>_blocked status.
func (e *Engine) generateDraft(ctx context.Context, s *model.WorkflowState, kind model.ArtifactKind, system, task string) update {
	log := zap.L().With(
		zap.String("lead_id", s.LeadID),
		zap.String("artifact", string(kind)),
	)

	userPrompt := draftUserPrompt(s, task)
	resp, err := e.generator.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		System:      system,
		Messages:    []anthropic.Message{{Role: "user", Content: userPrompt}},
		Temperature: &e.cfg.Temperature,
	})
	if err != nil {
		log.Error("workflow: draft generation failed", zap.Error(err))
		return update{
			status: []string{string(kind) + "_error"},
			err:    err.Error(),
		}
	}

	text := strings.TrimSpace(resp.Text())
	verdict := e.gate.Validate(ctx, text, kind, userPrompt)
	if !verdict.Safe {
		log.Warn("workflow: draft blocked by validation gate",
			zap.Int("violations", len(verdict.Violations)))
		return update{
			drafts: map[model.ArtifactKind]string{kind: verdict.FilteredText},
			status: []string{string(kind) + "_blocked"},
		}
	}

	log.Info("workflow: draft accepted", zap.Int("chars", len(text)))
	return update{
		drafts: map[model.ArtifactKind]string{kind: text},
		status: []string{string(kind) + "_drafted"},
	}
}

func (e *Engine) draftEmailNode(ctx context.Context, s *model.WorkflowState) update {
	// Observability-only screen of the lead-derived context; the result
	// never blocks drafting.
	if v := e.gate.CheckInput(ctx, buildContextBlock(s)); !v.Safe {
		zap.L().Warn("workflow: lead context flagged by input screen",
			zap.String("lead_id", s.LeadID),
			zap.Int("violations", len(v.Violations)))
	}

	u := e.generateDraft(ctx, s, model.ArtifactEmail, emailSystemPrompt,
		"Write the outreach email now.")

	if draft, ok := u.drafts[model.ArtifactEmail]; ok && statusIs(u, "email_drafted") {
		e.saveGmailDraft(ctx, s, draft)
	}
	return u
}

func (e *Engine) draftSocialNode(ctx context.Context, s *model.WorkflowState) update {
	u := e.generateDraft(ctx, s, model.ArtifactSocial, socialSystemPrompt,
		"Write the LinkedIn connection message now.")

	if draft, ok := u.drafts[model.ArtifactSocial]; ok && statusIs(u, "social_message_drafted") {
		recipient := s.ContactAddress
		if recipient == "" {
			recipient = s.PersonName
		}
		if err := e.social.CreateMessageDraft(ctx, recipient, draft); err != nil {
			zap.L().Warn("workflow: linkedin draft queue failed",
				zap.String("lead_id", s.LeadID), zap.Error(err))
		}
	}
	return u
}

func (e *Engine) draftCallScriptNode(ctx context.Context, s *model.WorkflowState) update {
	u := e.generateDraft(ctx, s, model.ArtifactCallScript, callScriptSystemPrompt,
		"Write the call script now.")

	if draft, ok := u.drafts[model.ArtifactCallScript]; ok && statusIs(u, "call_script_drafted") {
		path, err := e.scripts.WriteCallScript(s.LeadID, draft)
		if err != nil {
			zap.L().Warn("workflow: call script write failed",
				zap.String("lead_id", s.LeadID), zap.Error(err))
		} else {
			zap.L().Info("workflow: call script written",
				zap.String("lead_id", s.LeadID), zap.String("path", path))
		}
	}
	return u
}

func (e *Engine) saveGmailDraft(ctx context.Context, s *model.WorkflowState, body string) {
	if s.ContactAddress == "" {
		return
	}
	subject := "Quick question"
	if org := s.OrganizationName(); org != "" {
		subject = fmt.Sprintf("Quick question about %s", org)
	}
	id, err := e.mail.CreateDraft(ctx, s.ContactAddress, subject, body)
	if err != nil {
		zap.L().Warn("workflow: gmail draft failed",
			zap.String("lead_id", s.LeadID), zap.Error(err))
		return
	}
	zap.L().Info("workflow: gmail draft created",
		zap.String("lead_id", s.LeadID), zap.String("draft_id", id))
}

func statusIs(u update, token string) bool {
	for _, st := range u.status {
		if st == token {
			return true
		}
	}
	return false
}
