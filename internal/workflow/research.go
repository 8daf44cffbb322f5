package workflow

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/tavily"
)

const (
	sourceCategoryEvents = "recent_events"
	sourceCategoryPain   = "pain_signals"

	resultsPerQuery = 2
	eventWindowDays = 30
	maxSummaryLen   = 800
)

// researchNode runs two independent web searches, recent company events
// and sector pain signals, and distills the hits into a categorized
// record plus personalization hooks. The queries run concurrently and
// fail independently: one dead query still yields a usable record from
// the other.
func (e *Engine) researchNode(ctx context.Context, s *model.WorkflowState) update {
	subject := s.OrganizationName()
	if subject == "" {
		subject = s.Identifier()
	}
	sector := s.SectorName()

	log := zap.L().With(
		zap.String("lead_id", s.LeadID),
		zap.String("subject", subject),
	)
	log.Info("workflow: researching lead")

	var (
		eg       errgroup.Group
		events   *tavily.SearchResponse
		pain     *tavily.SearchResponse
		eventErr error
		painErr  error
	)

	eg.Go(func() error {
		events, eventErr = e.searchWithRetry(ctx, "recent_events", tavily.SearchRequest{
			Query:      fmt.Sprintf("%q funding OR launch OR hiring OR acquisition OR partnership news", subject),
			MaxResults: resultsPerQuery,
			Days:       eventWindowDays,
		})
		return nil
	})
	eg.Go(func() error {
		painQuery := fmt.Sprintf("%s %s industry challenges problems", subject, sector)
		pain, painErr = e.searchWithRetry(ctx, "pain_signals", tavily.SearchRequest{
			Query:      strings.Join(strings.Fields(painQuery), " "),
			MaxResults: resultsPerQuery,
		})
		return nil
	})
	_ = eg.Wait()

	rec := &model.ResearchRecord{}
	var summaries []string

	if eventErr != nil {
		log.Warn("workflow: recent-events search failed", zap.Error(eventErr))
	} else {
		for _, hit := range events.Results {
			rec.RecentEvents = append(rec.RecentEvents, hit.Content)
			rec.Sources = append(rec.Sources, model.SourceRef{
				Title:    hit.Title,
				URL:      hit.URL,
				Category: sourceCategoryEvents,
			})
			summaries = append(summaries, hit.Content)
		}
	}
	if painErr != nil {
		log.Warn("workflow: pain-signals search failed", zap.Error(painErr))
	} else {
		for _, hit := range pain.Results {
			rec.PainSignals = append(rec.PainSignals, hit.Content)
			rec.Sources = append(rec.Sources, model.SourceRef{
				Title:    hit.Title,
				URL:      hit.URL,
				Category: sourceCategoryPain,
			})
			summaries = append(summaries, hit.Content)
		}
	}
	rec.Summary = truncateRunes(strings.Join(summaries, " "), maxSummaryLen)

	u := update{
		research:     rec,
		researchDone: true,
		hooks:        ExtractHooks(rec),
		status:       []string{"research_completed"},
	}
	if eventErr != nil && painErr != nil {
		u.err = fmt.Sprintf("research: %v; %v", eventErr, painErr)
	} else if eventErr != nil {
		u.err = eventErr.Error()
	} else if painErr != nil {
		u.err = painErr.Error()
	}

	log.Info("workflow: research complete",
		zap.Int("recent_events", len(rec.RecentEvents)),
		zap.Int("pain_signals", len(rec.PainSignals)),
		zap.Int("hooks", len(u.hooks)),
	)
	return u
}

func (e *Engine) searchWithRetry(ctx context.Context, op string, req tavily.SearchRequest) (*tavily.SearchResponse, error) {
	cfg := e.retryCfg
	cfg.OnRetry = resilience.RetryLogger("tavily", op)
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*tavily.SearchResponse, error) {
		return e.search.Search(ctx, req)
	})
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
