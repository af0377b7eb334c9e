// Package notify delivers high-risk screening alerts to an external
// webhook so on-call clinicians hear about urgent referrals quickly.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Breeganzo/RMD-Agent-Demo/internal/screening"
)

type Client struct {
	webhookURL string
	httpClient *http.Client
}

// NewClient returns a webhook notifier. An empty URL disables delivery;
// every alert becomes a no-op.
func NewClient(webhookURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type alertPayload struct {
	Event            string    `json:"event"`
	AssessmentID     string    `json:"assessment_id"`
	PatientPseudonym string    `json:"patient_pseudonym"`
	RiskLevel        string    `json:"risk_level"`
	ConfidenceScore  float64   `json:"confidence_score"`
	RedFlags         []string  `json:"red_flags"`
	NextStep         string    `json:"next_step"`
	Timestamp        time.Time `json:"timestamp"`
}

// HighRiskAlert posts a JSON alert for one high-risk assessment. The
// payload carries the pseudonym only, never patient identifiers.
func (c *Client) HighRiskAlert(ctx context.Context, assessmentID, pseudonym string, a *screening.Assessment) error {
	if c.webhookURL == "" {
		return nil
	}

	payload := alertPayload{
		Event:            "HIGH_RISK_ASSESSMENT",
		AssessmentID:     assessmentID,
		PatientPseudonym: pseudonym,
		RiskLevel:        string(a.RiskLevel),
		ConfidenceScore:  a.ConfidenceScore,
		RedFlags:         a.RedFlagsIdentified,
		NextStep:         a.RecommendedNextStep,
		Timestamp:        a.CreatedAt,
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver high-risk alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var bodyBytes []byte
		if resp.Body != nil {
			bodyBytes, _ = io.ReadAll(resp.Body)
		}
		return fmt.Errorf("alert webhook returned status %s, body: %s", resp.Status, string(bodyBytes))
	}
	return nil
}
