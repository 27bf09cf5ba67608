package analysis

import (
	"encoding/json"
	"strings"

	"bastion-icc/core/store"
)

type analysisPayload struct {
	Severity                string   `json:"severity"`
	ImmediateActions        []string `json:"immediate_actions"`
	ResourceRecommendations []string `json:"resource_recommendations"`
	Reasoning               string   `json:"reasoning"`
}

// ParseModelOutput extracts a structured assessment from whatever the
// model returned. Code fences and prose around the JSON object are
// tolerated. A second value of false means the fallback was used.
func ParseModelOutput(raw string) (*store.AIAnalysis, bool) {
	candidate := extractJSON(raw)
	if candidate == "" {
		return FallbackAnalysis(), false
	}
	var payload analysisPayload
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return FallbackAnalysis(), false
	}
	severity, ok := store.ParseSeverity(payload.Severity)
	if !ok {
		severity = store.SeverityMedium
	}
	result := &store.AIAnalysis{
		Severity:                severity,
		ImmediateActions:        trimAll(payload.ImmediateActions),
		ResourceRecommendations: trimAll(payload.ResourceRecommendations),
		Reasoning:               strings.TrimSpace(payload.Reasoning),
	}
	if len(result.ImmediateActions) == 0 && len(result.ResourceRecommendations) == 0 && result.Reasoning == "" {
		return FallbackAnalysis(), false
	}
	return result, true
}

// FallbackAnalysis is the deterministic assessment used when the model
// output cannot be understood. Medium severity keeps the incident in the
// operator's review queue without triggering critical escalation paths.
func FallbackAnalysis() *store.AIAnalysis {
	return &store.AIAnalysis{
		Severity: store.SeverityMedium,
		ImmediateActions: []string{
			"Ensure the immediate safety of everyone at the scene",
			"Contact the relevant emergency services for the incident type",
			"Keep the reporting channel open for status updates",
		},
		ResourceRecommendations: []string{
			"One field responder for on-site assessment",
			"Operations supervisor on standby",
		},
		Reasoning: "Automatic assessment was unavailable; default medium severity assigned pending operator review.",
	}
}

// extractJSON returns the outermost {...} block of the input with any
// markdown fences removed, or "" when no object is present.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func trimAll(items []string) []string {
	var out []string
	for _, item := range items {
		if t := strings.TrimSpace(item); t != "" {
			out = append(out, t)
		}
	}
	return out
}
