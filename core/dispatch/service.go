// Package dispatch turns incidents into channel-specific alert payloads
// for matched responders. It generates deep-links only; carrier delivery
// happens on the operator's device.
package dispatch

import (
	"context"
	"strings"
	"time"

	"bastion-icc/config"
	"bastion-icc/core/apperr"
	"bastion-icc/core/geo"
	"bastion-icc/core/rbac"
	"bastion-icc/core/store"
	"bastion-icc/core/utils"
)

type Channel string

const (
	ChannelCall Channel = "call"
	ChannelSMS  Channel = "sms"
	ChannelChat Channel = "chat"
)

func ParseChannel(raw string) (Channel, bool) {
	switch Channel(strings.ToLower(strings.TrimSpace(raw))) {
	case ChannelCall:
		return ChannelCall, true
	case ChannelSMS:
		return ChannelSMS, true
	case ChannelChat:
		return ChannelChat, true
	}
	return "", false
}

func (c Channel) auditAction() string {
	switch c {
	case ChannelCall:
		return "call_initiated"
	case ChannelSMS:
		return "sms_alert_generated"
	default:
		return "whatsapp_alert_generated"
	}
}

type Alert struct {
	Channel     Channel   `json:"channel"`
	IncidentID  int64     `json:"incident_id"`
	HelperID    int64     `json:"helper_id"`
	HelperName  string    `json:"helper_name"`
	Link        string    `json:"link"`
	MapsLink    string    `json:"maps_link"`
	DistanceKm  float64   `json:"distance_km"`
	GeneratedAt time.Time `json:"generated_at"`
}

type BulkAlert struct {
	HelperID   int64            `json:"helper_id"`
	HelperName string           `json:"helper_name"`
	Role       store.HelperRole `json:"role"`
	DistanceKm float64          `json:"distance_km"`
	CallLink   string           `json:"call_link"`
	SMSLink    string           `json:"sms_link"`
	ChatLink   string           `json:"chat_link"`
}

type BulkResult struct {
	IncidentID      int64       `json:"incident_id"`
	AlertsGenerated int         `json:"alerts_generated"`
	RadiusKm        float64     `json:"radius_km"`
	MapsLink        string      `json:"maps_link"`
	GeneratedAt     time.Time   `json:"generated_at"`
	Message         string      `json:"message,omitempty"`
	Alerts          []BulkAlert `json:"alerts"`
}

type Service struct {
	cfg       *config.AppConfig
	incidents store.IncidentsStore
	helpers   store.HelpersStore
	audits    store.AuditStore
	policy    *rbac.Policy
	logger    *utils.Logger
}

func NewService(cfg *config.AppConfig, incidents store.IncidentsStore, helpers store.HelpersStore, audits store.AuditStore, policy *rbac.Policy, logger *utils.Logger) *Service {
	return &Service{cfg: cfg, incidents: incidents, helpers: helpers, audits: audits, policy: policy, logger: logger}
}

// GenerateAlert builds one channel link for one helper. The payload is
// validated and sanitized before any text is embedded, and exactly one
// audit entry records the dispatch with the phone masked.
func (s *Service) GenerateAlert(ctx context.Context, actor rbac.Actor, channel Channel, incidentID, helperID int64) (*Alert, error) {
	if !s.policy.Allowed(actor.Roles, rbac.PermDispatchSend) {
		s.auditDenied(ctx, actor, &incidentID, "dispatch")
		return nil, apperr.ErrForbidden
	}
	incident, err := s.incidents.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if incident == nil {
		return nil, apperr.ErrNotFound
	}
	helper, err := s.helpers.GetHelper(ctx, actor, helperID)
	if err != nil {
		return nil, err
	}
	if helper == nil {
		return nil, apperr.ErrNotFound
	}
	distance := geo.DistanceKm(incident.Latitude, incident.Longitude, helper.Latitude, helper.Longitude)
	if err := checkAlertInput(alertInput{
		HelperName:  SanitizeText(helper.Name, NameCap),
		HelperPhone: helper.Mobile,
		Type:        SanitizeText(string(incident.Type), TypeCap),
		Latitude:    incident.Latitude,
		Longitude:   incident.Longitude,
		Location:    SanitizeText(incident.LocationName, LocationCap),
		Description: SanitizeText(incident.Description, DescriptionCap),
		DistanceKm:  distance,
	}); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	alert := &Alert{
		Channel:     channel,
		IncidentID:  incident.ID,
		HelperID:    helper.ID,
		HelperName:  SanitizeText(helper.Name, NameCap),
		MapsLink:    geo.MapsLink(incident.Latitude, incident.Longitude),
		DistanceKm:  distance,
		GeneratedAt: now,
	}
	switch channel {
	case ChannelCall:
		alert.Link = BuildCallLink(helper.Mobile)
	case ChannelSMS:
		alert.Link = BuildSMSLink(incident)
	case ChannelChat:
		alert.Link = BuildChatLink(incident, helper, distance, now)
	default:
		return nil, apperr.Validation("channel", "unknown alert channel")
	}
	s.appendAudit(ctx, actor, incident.ID, channel.auditAction(), map[string]any{
		"helper_id":   helper.ID,
		"helper_name": alert.HelperName,
		"phone":       MaskPhone(helper.Mobile),
		"distance_km": distance,
	})
	return alert, nil
}

// GenerateBulkAlerts fans out to every active helper within radiusKm of
// the incident (default radius from config). Zero matches is a success
// with a message, not an error. The whole batch is reported atomically.
func (s *Service) GenerateBulkAlerts(ctx context.Context, actor rbac.Actor, incidentID int64, radiusKm float64) (*BulkResult, error) {
	if !s.policy.Allowed(actor.Roles, rbac.PermDispatchSend) {
		s.auditDenied(ctx, actor, &incidentID, "dispatch_bulk")
		return nil, apperr.ErrForbidden
	}
	incident, err := s.incidents.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if incident == nil {
		return nil, apperr.ErrNotFound
	}
	if radiusKm <= 0 {
		radiusKm = s.cfg.Dispatch.DefaultRadiusKm
	}
	radiusKm = geo.ClampRadiusKm(radiusKm)
	matches, err := s.helpers.NearbyHelpers(ctx, actor, incident.Latitude, incident.Longitude, radiusKm)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	result := &BulkResult{
		IncidentID:  incident.ID,
		RadiusKm:    radiusKm,
		MapsLink:    geo.MapsLink(incident.Latitude, incident.Longitude),
		GeneratedAt: now,
		Alerts:      []BulkAlert{},
	}
	for _, m := range matches {
		helper := m.Helper
		if !ValidPhone(helper.Mobile) {
			s.logger.Errorf("dispatch: helper %d skipped, invalid phone", helper.ID)
			continue
		}
		result.Alerts = append(result.Alerts, BulkAlert{
			HelperID:   helper.ID,
			HelperName: SanitizeText(helper.Name, NameCap),
			Role:       helper.Role,
			DistanceKm: m.DistanceKm,
			CallLink:   BuildCallLink(helper.Mobile),
			SMSLink:    BuildSMSLink(incident),
			ChatLink:   BuildChatLink(incident, &helper, m.DistanceKm, now),
		})
		s.appendAudit(ctx, actor, incident.ID, "helper_notified", map[string]any{
			"helper_id":   helper.ID,
			"helper_name": SanitizeText(helper.Name, NameCap),
			"phone":       MaskPhone(helper.Mobile),
			"distance_km": m.DistanceKm,
		})
	}
	result.AlertsGenerated = len(result.Alerts)
	if result.AlertsGenerated == 0 {
		result.Message = "no active helpers within radius"
	}
	s.appendAudit(ctx, actor, incident.ID, "bulk_emergency_alerts_generated", map[string]any{
		"helpers_count": result.AlertsGenerated,
		"radius_km":     radiusKm,
	})
	return result, nil
}

func (s *Service) appendAudit(ctx context.Context, actor rbac.Actor, incidentID int64, action string, metadata map[string]any) {
	entry := &store.AuditLogEntry{
		IncidentID: &incidentID,
		Action:     action,
		ActorEmail: actor.Email,
		Metadata:   metadata,
	}
	if actor.ID != 0 {
		entry.ActorID = &actor.ID
	}
	if _, err := s.audits.Append(ctx, entry); err != nil {
		s.logger.Errorf("dispatch: audit %s: %v", action, err)
	}
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
	if _, err := s.audits.Append(ctx, entry); err != nil {
		s.logger.Errorf("dispatch: audit denied append: %v", err)
	}
}
