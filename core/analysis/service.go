// Package analysis runs AI incident assessment through an external model
// gateway and writes the result back with the service identity.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bastion-icc/config"
	"bastion-icc/core/apperr"
	"bastion-icc/core/rbac"
	"bastion-icc/core/store"
	"bastion-icc/core/utils"
)

type Service struct {
	cfg       *config.AppConfig
	incidents store.IncidentsStore
	audits    store.AuditStore
	policy    *rbac.Policy
	gateway   GatewayClient
	logger    *utils.Logger
}

func NewService(cfg *config.AppConfig, incidents store.IncidentsStore, audits store.AuditStore, policy *rbac.Policy, gateway GatewayClient, logger *utils.Logger) *Service {
	return &Service{cfg: cfg, incidents: incidents, audits: audits, policy: policy, gateway: gateway, logger: logger}
}

// Analyze assesses one incident. The caller must be able to run analysis
// and see the incident; severity and the structured result are persisted
// through the dedicated write path, never through a generic update.
func (s *Service) Analyze(ctx context.Context, actor rbac.Actor, incidentID int64) (*store.Incident, error) {
	if !s.policy.Allowed(actor.Roles, rbac.PermAnalysisRun) {
		return nil, apperr.ErrForbidden
	}
	incident, err := s.incidents.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	// Absent and inaccessible look identical to the caller.
	if incident == nil || !s.policy.Allowed(actor.Roles, rbac.PermIncidentsView) {
		return nil, apperr.ErrNotFound
	}
	raw, err := s.gateway.Generate(ctx, buildPrompt(incident))
	if err != nil {
		s.auditFailure(ctx, actor, incidentID, err)
		if errors.Is(err, apperr.ErrRateLimited) || errors.Is(err, apperr.ErrQuotaExhausted) {
			return nil, err
		}
		return nil, fmt.Errorf("analysis: generate: %w", err)
	}
	result, parsed := ParseModelOutput(raw)
	if !parsed {
		s.logger.Printf("ANALYSIS fallback incident=%d", incidentID)
	}
	updated, err := s.incidents.SetAnalysis(ctx, incidentID, result)
	if err != nil {
		s.auditFailure(ctx, actor, incidentID, err)
		return nil, fmt.Errorf("analysis: persist: %w", err)
	}
	if updated == nil {
		return nil, apperr.ErrNotFound
	}
	return updated, nil
}

func buildPrompt(incident *store.Incident) string {
	var b strings.Builder
	b.WriteString("You are an emergency dispatch analyst. Assess the incident below and answer ")
	b.WriteString("with a single JSON object holding severity (low|medium|high|critical), ")
	b.WriteString("immediate_actions (array of strings), resource_recommendations (array of strings) ")
	b.WriteString("and reasoning (string). No text outside the JSON object.\n\n")
	b.WriteString("Type: " + string(incident.Type) + "\n")
	if incident.LocationName != "" {
		b.WriteString("Location: " + incident.LocationName + "\n")
	}
	b.WriteString("Description: " + incident.Description + "\n")
	return b.String()
}

func (s *Service) auditFailure(ctx context.Context, actor rbac.Actor, incidentID int64, cause error) {
	entry := &store.AuditLogEntry{
		IncidentID: &incidentID,
		Action:     "ai_analysis_failed",
		ActorEmail: actor.Email,
		Metadata:   map[string]any{"reason": cause.Error()},
	}
	if actor.ID != 0 {
		entry.ActorID = &actor.ID
	}
	if _, err := s.audits.Append(ctx, entry); err != nil {
		s.logger.Errorf("analysis: audit failure append: %v", err)
	}
}
