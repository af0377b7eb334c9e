package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Breeganzo/RMD-Agent-Demo/internal/screening"
)

// ErrUnparseable is returned when no JSON object can be recovered from a
// reasoning response.
var ErrUnparseable = fmt.Errorf("no JSON object found in response")

var jsonPatterns = []*regexp.Regexp{
	regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```"),
	regexp.MustCompile("(?s)```\\s*(.*?)\\s*```"),
	regexp.MustCompile(`(?s)\{.*\}`),
}

// ExtractJSON recovers a JSON object from raw model output. Models return
// plain JSON, fenced code blocks, or JSON buried in prose; this is the one
// place that scanning happens.
func ExtractJSON(text string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &obj); err == nil {
		return obj, nil
	}

	for _, pattern := range jsonPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			candidate := match[0]
			if len(match) > 1 {
				candidate = match[1]
			}
			if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &obj); err == nil {
				return obj, nil
			}
		}
	}
	return nil, ErrUnparseable
}

// ParseAssessment extracts and validates an assessment payload from raw
// model output. Any missing or mistyped field fails the whole response so
// the orchestrator falls back to the rule-based path.
func ParseAssessment(text string) (*screening.ReasoningResult, error) {
	obj, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var payload screening.ReasoningResult
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("assessment fields have wrong types: %w", err)
	}

	var problems []string
	if !payload.RiskLevel.Valid() {
		problems = append(problems, fmt.Sprintf("invalid risk_level %q", payload.RiskLevel))
	}
	if strings.TrimSpace(payload.Reasoning) == "" {
		problems = append(problems, "missing reasoning")
	}
	if strings.TrimSpace(payload.RecommendedNextStep) == "" {
		problems = append(problems, "missing recommended_next_step")
	}
	if payload.ConfidenceScore < 0 || payload.ConfidenceScore > 1 {
		problems = append(problems, fmt.Sprintf("confidence_score %v outside [0,1]", payload.ConfidenceScore))
	}
	if _, ok := obj["confidence_score"]; !ok {
		problems = append(problems, "missing confidence_score")
	}
	if _, ok := obj["likely_conditions"]; !ok {
		problems = append(problems, "missing likely_conditions")
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid assessment structure: %s", strings.Join(problems, "; "))
	}
	return &payload, nil
}
