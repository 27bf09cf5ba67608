package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bastion-icc/core/apperr"
)

func seedIncident(t *testing.T, s IncidentsStore) *Incident {
	t.Helper()
	incident := &Incident{
		Type:        TypeFire,
		Description: "smoke in the east stairwell",
		Latitude:    42.3601,
		Longitude:   -71.0942,
		Status:      StatusActive,
		ReportedBy:  7,
	}
	if _, err := s.CreateIncident(context.Background(), incident, "", "reporter@example.org"); err != nil {
		t.Fatalf("create incident: %v", err)
	}
	return incident
}

func TestCreateIncidentAssignsRegNoAndAudit(t *testing.T) {
	db := newTestDB(t)
	s := NewIncidentsStore(db)
	audits := NewAuditStore(db)
	incident := seedIncident(t, s)

	if incident.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if !strings.HasPrefix(incident.RegNo, "INC-") {
		t.Fatalf("unexpected reg no %q", incident.RegNo)
	}
	entries, err := audits.ListForIncident(context.Background(), incident.ID, 10)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "incident_created" {
		t.Fatalf("expected single incident_created entry, got %+v", entries)
	}

	second := seedIncident(t, s)
	if second.RegNo == incident.RegNo {
		t.Fatalf("reg numbers must be unique, both %q", incident.RegNo)
	}
}

func TestResolveSetsResolutionFields(t *testing.T) {
	db := newTestDB(t)
	s := NewIncidentsStore(db)
	incident := seedIncident(t, s)

	resolved, err := s.Resolve(context.Background(), incident.ID, 9, "admin@example.org")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != StatusResolved {
		t.Fatalf("status %q", resolved.Status)
	}
	if resolved.ResolvedBy == nil || *resolved.ResolvedBy != 9 {
		t.Fatal("resolved_by not stamped")
	}
	if resolved.ResolvedAt == nil {
		t.Fatal("resolved_at not stamped")
	}
	if resolved.Version != incident.Version+1 {
		t.Fatalf("version %d", resolved.Version)
	}
}

func TestResolveTwiceIsConflictWithSingleAuditEntry(t *testing.T) {
	db := newTestDB(t)
	s := NewIncidentsStore(db)
	audits := NewAuditStore(db)
	incident := seedIncident(t, s)

	if _, err := s.Resolve(context.Background(), incident.ID, 9, "admin@example.org"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	_, err := s.Resolve(context.Background(), incident.ID, 9, "admin@example.org")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("second resolve: want conflict, got %v", err)
	}
	entries, err := audits.ListForIncident(context.Background(), incident.ID, 50)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	changes := 0
	for _, e := range entries {
		if e.Action == "incident_status_changed" {
			changes++
		}
	}
	if changes != 1 {
		t.Fatalf("expected one status change entry, got %d", changes)
	}
}

func TestEscalateOnlyFromActive(t *testing.T) {
	db := newTestDB(t)
	s := NewIncidentsStore(db)
	incident := seedIncident(t, s)

	escalated, err := s.Escalate(context.Background(), incident.ID, 9, "admin@example.org")
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if escalated.Status != StatusEscalated {
		t.Fatalf("status %q", escalated.Status)
	}
	if escalated.ResolvedBy != nil || escalated.ResolvedAt != nil {
		t.Fatal("escalate must not set resolution fields")
	}
	if _, err := s.Escalate(context.Background(), incident.ID, 9, "admin@example.org"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("escalate from escalated: want conflict, got %v", err)
	}
}

func TestResolveFromEscalated(t *testing.T) {
	db := newTestDB(t)
	s := NewIncidentsStore(db)
	incident := seedIncident(t, s)

	if _, err := s.Escalate(context.Background(), incident.ID, 9, "admin@example.org"); err != nil {
		t.Fatalf("escalate: %v", err)
	}
	resolved, err := s.Resolve(context.Background(), incident.ID, 9, "admin@example.org")
	if err != nil {
		t.Fatalf("resolve from escalated: %v", err)
	}
	if resolved.Status != StatusResolved {
		t.Fatalf("status %q", resolved.Status)
	}
}

func TestTransitionMissingIncident(t *testing.T) {
	db := newTestDB(t)
	s := NewIncidentsStore(db)
	incident, err := s.Resolve(context.Background(), 12345, 9, "admin@example.org")
	if err != nil {
		t.Fatalf("resolve missing: %v", err)
	}
	if incident != nil {
		t.Fatal("expected nil for missing incident")
	}
}

func TestSetAnalysisPersistsSeverityAndAudit(t *testing.T) {
	db := newTestDB(t)
	s := NewIncidentsStore(db)
	audits := NewAuditStore(db)
	incident := seedIncident(t, s)

	updated, err := s.SetAnalysis(context.Background(), incident.ID, &AIAnalysis{
		Severity:         SeverityHigh,
		ImmediateActions: []string{"evacuate the stairwell"},
		Reasoning:        "visible smoke",
	})
	if err != nil {
		t.Fatalf("set analysis: %v", err)
	}
	if updated.Severity == nil || *updated.Severity != SeverityHigh {
		t.Fatal("severity not persisted")
	}
	if updated.Analysis == nil || updated.Analysis.Reasoning != "visible smoke" {
		t.Fatal("analysis blob not persisted")
	}
	entries, _ := audits.ListForIncident(context.Background(), incident.ID, 50)
	found := false
	for _, e := range entries {
		if e.Action == "ai_analysis_completed" {
			found = true
		}
	}
	if !found {
		t.Fatal("missing ai_analysis_completed entry")
	}
}

func TestSetAnalysisRejectsInvalidSeverity(t *testing.T) {
	db := newTestDB(t)
	s := NewIncidentsStore(db)
	incident := seedIncident(t, s)

	_, err := s.SetAnalysis(context.Background(), incident.ID, &AIAnalysis{Severity: "catastrophic"})
	if !apperr.IsValidation(err) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestListIncidentsFilters(t *testing.T) {
	db := newTestDB(t)
	s := NewIncidentsStore(db)
	first := seedIncident(t, s)
	second := seedIncident(t, s)
	if _, err := s.Resolve(context.Background(), second.ID, 9, "admin@example.org"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	active, err := s.ListIncidents(context.Background(), IncidentFilter{Status: StatusActive})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 1 || active[0].ID != first.ID {
		t.Fatalf("active filter returned %+v", active)
	}
	all, err := s.ListIncidents(context.Background(), IncidentFilter{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 incidents, got %d", len(all))
	}
}

func TestDeleteIncidentKeepsAuditTrail(t *testing.T) {
	db := newTestDB(t)
	s := NewIncidentsStore(db)
	audits := NewAuditStore(db)
	incident := seedIncident(t, s)

	if err := s.DeleteIncident(context.Background(), incident.ID, 1, "admin@example.org"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := s.GetIncident(context.Background(), incident.ID)
	if err != nil || got != nil {
		t.Fatalf("expected gone, got %+v err=%v", got, err)
	}
	entries, _ := audits.ListForIncident(context.Background(), incident.ID, 50)
	found := false
	for _, e := range entries {
		if e.Action == "incident_deleted" {
			found = true
		}
	}
	if !found {
		t.Fatal("missing incident_deleted entry")
	}
	if err := s.DeleteIncident(context.Background(), incident.ID, 1, "admin@example.org"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("second delete: want not found, got %v", err)
	}
}
