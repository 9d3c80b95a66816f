package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"leadngn_backend/internal/leads/domain"
	"leadngn_backend/internal/revalidation"
	"leadngn_backend/platform/ai/moonshot"
	"leadngn_backend/platform/apperr"
	"leadngn_backend/platform/logger"
)

const insightSystemPrompt = `You analyze B2B sales leads. Given a lead's company profile,
respond with a JSON object of the shape:
{"pain_points": ["..."], "decision_maker": true|false|null, "confidence": 0.0-1.0}
pain_points lists concrete operational problems this company likely has.
decision_maker states whether the named contact likely holds buying authority,
or null when there is no contact to judge. Respond with JSON only.`

// MoonshotInsights derives buying signals from lead data through the
// Moonshot chat completions API.
type MoonshotInsights struct {
	client        *moonshot.Client
	minConfidence float64
	log           *logger.Logger
}

// NewMoonshotInsights creates an insight provider. Signals below the
// confidence floor are discarded rather than written to leads.
func NewMoonshotInsights(client *moonshot.Client, log *logger.Logger) *MoonshotInsights {
	return &MoonshotInsights{client: client, minConfidence: 0.5, log: log}
}

type insightResponse struct {
	PainPoints    []string `json:"pain_points"`
	DecisionMaker *bool    `json:"decision_maker"`
	Confidence    float64  `json:"confidence"`
}

// EnrichLead asks the model for pain points and decision-maker signal.
// Transport and decode failures are Unavailable: the caller skips
// enrichment and the lead is scored without it.
func (m *MoonshotInsights) EnrichLead(ctx context.Context, lead *domain.Lead) (*revalidation.Insights, error) {
	raw, err := m.client.CompleteJSON(ctx, insightSystemPrompt, leadPrompt(lead))
	if err != nil {
		return nil, apperr.Unavailable("insight provider request failed", err)
	}

	var parsed insightResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, apperr.Unavailable("insight provider returned malformed JSON", err)
	}
	if parsed.Confidence < m.minConfidence {
		m.log.Debug("discarding low-confidence insights",
			"lead_id", lead.ID.String(), "confidence", parsed.Confidence)
		return nil, nil
	}

	return &revalidation.Insights{
		PainPointCount: len(parsed.PainPoints),
		DecisionMaker:  parsed.DecisionMaker,
	}, nil
}

func leadPrompt(lead *domain.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\nIndustry: %s\n", lead.CompanyName, lead.Industry)
	if lead.Website != nil {
		fmt.Fprintf(&b, "Website: %s\n", *lead.Website)
	}
	if lead.Location != nil {
		fmt.Fprintf(&b, "Location: %s\n", *lead.Location)
	}
	if lead.ContactName != nil {
		fmt.Fprintf(&b, "Contact: %s\n", *lead.ContactName)
	}
	if lead.Email != nil {
		fmt.Fprintf(&b, "Contact email: %s\n", *lead.Email)
	}
	if len(lead.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(lead.Tags, ", "))
	}
	return b.String()
}
