package workflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
)

// minEnrichmentContent is the smallest profile body considered usable on
// its own; shorter profiles force the research branch regardless of
// metadata completeness.
const minEnrichmentContent = 100

// enrichNode looks the lead up in the profile store by contact address.
// Name/organization leads skip the lookup entirely: the store is keyed by
// address and a name search would return an unrelated profile. Lookup
// failures degrade to "no enrichment" so the graph keeps moving.
func (e *Engine) enrichNode(ctx context.Context, s *model.WorkflowState) update {
	if s.InputMode == model.InputByNameOrg {
		return update{
			enrichmentDone: true,
			status:         []string{"enrichment_skipped"},
		}
	}

	log := zap.L().With(zap.String("lead_id", s.LeadID))

	docs, err := e.leads.Search(ctx, s.ContactAddress, 1, map[string]string{
		"contact_email": s.ContactAddress,
	})
	if err != nil {
		log.Warn("workflow: enrichment lookup failed", zap.Error(err))
		return update{
			enrichmentDone: true,
			status:         []string{"enrichment_error"},
			err:            err.Error(),
		}
	}
	if len(docs) == 0 {
		log.Info("workflow: no enrichment profile found")
		return update{
			enrichmentDone: true,
			status:         []string{"enrichment_not_found"},
		}
	}

	rec := &model.EnrichmentRecord{
		Content:  docs[0].Content,
		Metadata: docs[0].Metadata,
	}
	sufficient := enrichmentSufficient(rec)
	log.Info("workflow: enrichment retrieved",
		zap.Int("content_len", len(rec.Content)),
		zap.Bool("sufficient", sufficient),
	)
	return update{
		enrichment:     rec,
		sufficient:     sufficient,
		enrichmentDone: true,
		status:         []string{"enrichment_retrieved"},
	}
}

// enrichmentSufficient reports whether a profile alone could support
// drafting: organization, sector, and role title are all present and the
// body is longer than minEnrichmentContent.
func enrichmentSufficient(rec *model.EnrichmentRecord) bool {
	if rec == nil {
		return false
	}
	return rec.Meta(model.MetaOrganization) != "" &&
		rec.Meta(model.MetaSector) != "" &&
		rec.Meta(model.MetaRoleTitle) != "" &&
		len(rec.Content) > minEnrichmentContent
}
