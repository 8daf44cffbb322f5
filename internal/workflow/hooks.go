package workflow

import (
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
)

// maxHookLen caps each hook at a length that fits a prompt bullet.
const maxHookLen = 150

// ExtractHooks distills research findings into at most one hook per kind.
// Within a finding list the first entry containing any keyword wins, even
// when a later entry matches a keyword that appears earlier in the
// vocabulary: entry order reflects search ranking and outranks keyword
// order. The hook is the matched entry's first sentence containing the
// keyword, not the whole entry, so multi-sentence search results do not
// drag unrelated lead-in text into prompts. A nil record yields an empty
// map.
func ExtractHooks(r *model.ResearchRecord) map[model.HookKind]string {
	hooks := make(map[model.HookKind]string)
	if r == nil {
		return hooks
	}

	for _, event := range r.RecentEvents {
		if kw, ok := containsAny(event, keywords.RecentEvent); ok {
			hooks[model.HookRecentEvent] = truncateHook(keywordSentence(event, kw))
			break
		}
	}

	for _, pain := range r.PainSignals {
		if kw, ok := containsAny(pain, keywords.PainPoint); ok {
			hooks[model.HookPainPoint] = truncateHook(keywordSentence(pain, kw))
			break
		}
	}

	if kw, ok := containsAny(r.Summary, keywords.GrowthSignal); ok {
		hooks[model.HookGrowthSignal] = "Currently " + kw
	}

	// Last resort: mine the summary's opening sentences for a
	// technology angle so downstream prompts always have something
	// concrete to anchor on.
	if len(hooks) == 0 && r.Summary != "" {
		for _, sentence := range firstSentences(r.Summary, 3) {
			if _, ok := containsAny(sentence, keywords.Technology); ok {
				hooks[model.HookPainPoint] = focusHook(sentence)
				break
			}
		}
	}

	return hooks
}

// keywordSentence returns the first sentence of entry containing kw, so a
// multi-sentence search result contributes only the line that actually
// carries the signal. Falls back to the whole entry when the split loses
// the keyword, which happens when kw itself contains a period.
func keywordSentence(entry, kw string) string {
	for _, p := range strings.Split(entry, ".") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.Contains(strings.ToLower(p), strings.ToLower(kw)) {
			return p
		}
	}
	return entry
}

// focusHook wraps a technology sentence as "Focus on <sentence>...". The
// sentence is capped before the ellipsis is appended so the trailing "..."
// survives even for long sentences.
func focusHook(sentence string) string {
	const prefix, suffix = "Focus on ", "..."
	runes := []rune(strings.TrimSpace(sentence))
	if budget := maxHookLen - len(prefix) - len(suffix); len(runes) > budget {
		runes = runes[:budget]
	}
	return prefix + string(runes) + suffix
}

func firstSentences(text string, n int) []string {
	parts := strings.Split(text, ".")
	out := make([]string, 0, n)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
		if len(out) == n {
			break
		}
	}
	return out
}

func truncateHook(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= maxHookLen {
		return s
	}
	return string(runes[:maxHookLen])
}
