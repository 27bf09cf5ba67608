// Package incidents implements the incident lifecycle: reporting,
// authorized status transitions and the audit trail around them.
package incidents

import (
	"context"
	"fmt"
	"strings"

	"bastion-icc/config"
	"bastion-icc/core/apperr"
	"bastion-icc/core/geo"
	"bastion-icc/core/notify"
	"bastion-icc/core/rbac"
	"bastion-icc/core/store"
	"bastion-icc/core/utils"
)

const maxDescriptionLen = 5000
const maxLocationNameLen = 200

type Service struct {
	cfg       *config.AppConfig
	store     store.IncidentsStore
	audits    store.AuditStore
	policy    *rbac.Policy
	publisher notify.Publisher
	logger    *utils.Logger
}

func NewService(cfg *config.AppConfig, is store.IncidentsStore, audits store.AuditStore, policy *rbac.Policy, publisher notify.Publisher, logger *utils.Logger) *Service {
	if publisher == nil {
		publisher = notify.NewNopPublisher()
	}
	return &Service{cfg: cfg, store: is, audits: audits, policy: policy, publisher: publisher, logger: logger}
}

type ReportInput struct {
	Type         string  `json:"incident_type"`
	Description  string  `json:"description"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	LocationName string  `json:"location_name"`
}

// Report creates a new active incident. Severity stays unset until the
// analysis gateway writes it back.
func (s *Service) Report(ctx context.Context, actor rbac.Actor, in ReportInput) (*store.Incident, error) {
	incidentType, ok := store.ParseIncidentType(in.Type)
	if !ok {
		return nil, apperr.Validation("incident_type", "unknown incident type")
	}
	if !geo.ValidLatitude(in.Latitude) {
		return nil, apperr.Validation("latitude", "latitude out of range")
	}
	if !geo.ValidLongitude(in.Longitude) {
		return nil, apperr.Validation("longitude", "longitude out of range")
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, apperr.Validation("description", "description required")
	}
	if len(description) > maxDescriptionLen {
		return nil, apperr.Validation("description", "description too long")
	}
	locationName := strings.TrimSpace(in.LocationName)
	if len(locationName) > maxLocationNameLen {
		locationName = locationName[:maxLocationNameLen]
	}
	incident := &store.Incident{
		Type:         incidentType,
		Description:  description,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		LocationName: locationName,
		Status:       store.StatusActive,
		ReportedBy:   actor.ID,
	}
	if _, err := s.store.CreateIncident(ctx, incident, s.cfg.Incidents.RegNoFormat, actor.Email); err != nil {
		return nil, fmt.Errorf("incidents: create: %w", err)
	}
	s.logger.Printf("INCIDENT created id=%d reg=%s type=%s by=%d", incident.ID, incident.RegNo, incident.Type, actor.ID)
	s.publisher.IncidentChanged(ctx, incident.ID, "created")
	return incident, nil
}

func (s *Service) Get(ctx context.Context, actor rbac.Actor, id int64) (*store.Incident, error) {
	if !s.policy.Allowed(actor.Roles, rbac.PermIncidentsView) {
		return nil, apperr.ErrForbidden
	}
	incident, err := s.store.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}
	if incident == nil {
		return nil, apperr.ErrNotFound
	}
	return incident, nil
}

func (s *Service) List(ctx context.Context, actor rbac.Actor, filter store.IncidentFilter) ([]store.Incident, error) {
	if !s.policy.Allowed(actor.Roles, rbac.PermIncidentsView) {
		return nil, apperr.ErrForbidden
	}
	return s.store.ListIncidents(ctx, filter)
}

// Resolve moves an incident to resolved, stamping resolved_by/resolved_at.
// Permitted from active and escalated. A second resolve is a conflict and
// writes no further audit entry.
func (s *Service) Resolve(ctx context.Context, actor rbac.Actor, id int64) (*store.Incident, error) {
	if err := s.authorizeModify(ctx, actor, id, "resolve"); err != nil {
		return nil, err
	}
	incident, err := s.store.Resolve(ctx, id, actor.ID, actor.Email)
	if err != nil {
		return nil, err
	}
	if incident == nil {
		return nil, apperr.ErrNotFound
	}
	s.publisher.IncidentChanged(ctx, id, "resolved")
	return incident, nil
}

// Escalate moves an active incident to escalated.
func (s *Service) Escalate(ctx context.Context, actor rbac.Actor, id int64) (*store.Incident, error) {
	if err := s.authorizeModify(ctx, actor, id, "escalate"); err != nil {
		return nil, err
	}
	incident, err := s.store.Escalate(ctx, id, actor.ID, actor.Email)
	if err != nil {
		return nil, err
	}
	if incident == nil {
		return nil, apperr.ErrNotFound
	}
	s.publisher.IncidentChanged(ctx, id, "escalated")
	return incident, nil
}

// Delete is admin-only and destructive.
func (s *Service) Delete(ctx context.Context, actor rbac.Actor, id int64) error {
	if !s.policy.Allowed(actor.Roles, rbac.PermIncidentsDelete) {
		s.auditDenied(ctx, actor, &id, "delete")
		return apperr.ErrForbidden
	}
	if err := s.store.DeleteIncident(ctx, id, actor.ID, actor.Email); err != nil {
		return err
	}
	s.publisher.IncidentChanged(ctx, id, "deleted")
	return nil
}

// Timeline returns the audit trail for one incident, newest first.
func (s *Service) Timeline(ctx context.Context, actor rbac.Actor, id int64, limit int) ([]store.AuditLogEntry, error) {
	incident, err := s.store.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}
	if incident == nil {
		return nil, apperr.ErrNotFound
	}
	if !s.policy.Allowed(actor.Roles, rbac.PermAuditView) && actor.ID != incident.ReportedBy {
		return nil, apperr.ErrForbidden
	}
	return s.audits.ListForIncident(ctx, id, limit)
}

// authorizeModify applies the ownership-or-admin guard. The incident must
// exist and its existence is not revealed to actors that fail the guard
// when they also lack view capability.
func (s *Service) authorizeModify(ctx context.Context, actor rbac.Actor, id int64, op string) error {
	incident, err := s.store.GetIncident(ctx, id)
	if err != nil {
		return err
	}
	if incident == nil {
		return apperr.ErrNotFound
	}
	if !s.policy.CanModifyIncident(actor, incident.ReportedBy) {
		s.logger.Printf("PERM fail incident %s id=%d actor=%d roles=%v", op, id, actor.ID, actor.Roles)
		s.auditDenied(ctx, actor, &id, op)
		return apperr.ErrForbidden
	}
	return nil
}

func (s *Service) auditDenied(ctx context.Context, actor rbac.Actor, incidentID *int64, op string) {
	if s.cfg != nil && !s.cfg.Security.AuditDenied {
		return
	}
	entry := &store.AuditLogEntry{
		IncidentID: incidentID,
		Action:     "authorization_denied",
		ActorEmail: actor.Email,
		Metadata:   map[string]any{"operation": op},
	}
	if actor.ID != 0 {
		entry.ActorID = &actor.ID
	}
	if _, err := s.audits.Append(ctx, entry); err != nil && s.logger != nil {
		s.logger.Errorf("incidents: audit denied append: %v", err)
	}
}
