package agent

import (
	"context"

	"github.com/Breeganzo/RMD-Agent-Demo/internal/screening"
)

// Assessor adapts the chat client to the screening pipeline: it owns the
// prompt construction and the response parsing, so the orchestrator only
// ever sees validated results.
type Assessor struct {
	client *Client
}

func NewAssessor(client *Client) *Assessor {
	return &Assessor{client: client}
}

func (a *Assessor) Enabled() bool {
	return a.client.Enabled()
}

// Complete issues the reasoning request for one screening, feeding the
// rule-based tool output back to the model alongside the patient data.
func (a *Assessor) Complete(ctx context.Context, p *screening.PatientScreening, toolOutput string) (string, error) {
	userPrompt := BuildAssessmentPrompt(p)
	if toolOutput != "" {
		userPrompt = BuildToolAnalysisPrompt(p, toolOutput)
	}
	return a.client.Complete(ctx, SystemPrompt, userPrompt)
}

func (a *Assessor) Parse(raw string) (*screening.ReasoningResult, error) {
	return ParseAssessment(raw)
}
