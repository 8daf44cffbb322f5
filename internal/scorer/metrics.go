// Package scorer computes offline quality metrics for workflow output.
// Scores are heuristic and consumed by operators comparing runs, not by
// the workflow itself.
package scorer

import (
	"math"
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
)

// RunMetrics holds scores for one completed run, keyed by metric name.
type RunMetrics map[string]float64

// draftLengthBounds holds the character range each artifact should land in.
var draftLengthBounds = map[model.ArtifactKind][2]int{
	model.ArtifactEmail:      {100, 200},
	model.ArtifactSocial:     {50, 300},
	model.ArtifactCallScript: {300, 1000},
}

var ctaKeywords = []string{"call", "meeting", "chat", "connect", "discuss", "schedule", "book"}

var professionalIndicators = []string{"thank", "appreciate", "would love", "happy to", "let me know"}

// PersonalizationScore measures how much a draft leans on the lead's
// enrichment data: organization and role mentions, vocabulary overlap
// with the profile body, and enough length to carry specifics.
func PersonalizationScore(draft string, enrichment *model.EnrichmentRecord) float64 {
	if draft == "" || enrichment == nil {
		return 0
	}

	var score float64
	draftLower := strings.ToLower(draft)

	if org := enrichment.Meta(model.MetaOrganization); org != "" && strings.Contains(draftLower, strings.ToLower(org)) {
		score += 0.3
	}

	sector := enrichment.Meta(model.MetaSector)
	role := enrichment.Meta(model.MetaRoleTitle)
	if (sector != "" && strings.Contains(draftLower, strings.ToLower(sector))) ||
		(role != "" && strings.Contains(draftLower, strings.ToLower(role))) {
		score += 0.2
	}

	if enrichment.Content != "" {
		overlap := wordOverlap(strings.ToLower(enrichment.Content), draftLower)
		score += math.Min(float64(overlap)/20, 0.3)
	}

	if len(draft) > 100 {
		score += 0.2
	}

	return round2(math.Min(score, 1))
}

// ResearchDepthScore measures how much material research gathered: half
// the score for a non-empty summary, half proportional to source count.
func ResearchDepthScore(research *model.ResearchRecord) float64 {
	if research == nil {
		return 0
	}

	var score float64
	if research.Summary != "" {
		score += 0.5
	}
	score += math.Min(float64(len(research.Sources))/3, 0.5)
	return round2(score)
}

// DraftQualityScore scores a single draft on length fit for its kind,
// presence of a call to action, and professional-tone markers.
func DraftQualityScore(draft string, kind model.ArtifactKind) float64 {
	if draft == "" {
		return 0
	}

	var score float64
	bounds, ok := draftLengthBounds[kind]
	if !ok {
		bounds = [2]int{100, 500}
	}
	minLen, maxLen := bounds[0], bounds[1]
	n := len(draft)

	switch {
	case n >= minLen && n <= maxLen:
		score += 0.4
	case n < minLen:
		score += 0.2 * float64(n) / float64(minLen)
	default:
		score += 0.2 * float64(maxLen) / float64(n)
	}

	draftLower := strings.ToLower(draft)
	for _, kw := range ctaKeywords {
		if strings.Contains(draftLower, kw) {
			score += 0.3
			break
		}
	}

	matches := 0
	for _, ind := range professionalIndicators {
		if strings.Contains(draftLower, ind) {
			matches++
		}
	}
	score += math.Min(float64(matches)/float64(len(professionalIndicators)), 0.3)

	return round2(math.Min(score, 1))
}

// EvaluateRun scores every produced draft plus research depth and the
// fraction of the three artifacts that were drafted.
func EvaluateRun(state *model.WorkflowState) RunMetrics {
	metrics := make(RunMetrics)
	if state == nil {
		return metrics
	}

	for kind, draft := range state.Drafts {
		metrics[string(kind)+"_quality"] = DraftQualityScore(draft, kind)
		metrics[string(kind)+"_personalization"] = PersonalizationScore(draft, state.Enrichment)
	}

	metrics["research_depth"] = ResearchDepthScore(state.Research)

	done := 0
	for _, kind := range []model.ArtifactKind{model.ArtifactEmail, model.ArtifactSocial, model.ArtifactCallScript} {
		if state.Drafts[kind] != "" {
			done++
		}
	}
	metrics["completion_rate"] = round2(float64(done) / 3)

	return metrics
}

func wordOverlap(a, b string) int {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(a) {
		set[w] = struct{}{}
	}
	seen := make(map[string]struct{})
	n := 0
	for _, w := range strings.Fields(b) {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := set[w]; ok {
			n++
		}
	}
	return n
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
