package analysis

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"bastion-icc/config"
	"bastion-icc/core/apperr"
	"bastion-icc/core/rbac"
	"bastion-icc/core/store"
	"bastion-icc/core/utils"
)

type stubGateway struct {
	response string
	err      error
}

func (g *stubGateway) Generate(context.Context, string) (string, error) {
	return g.response, g.err
}

type testEnv struct {
	incidents store.IncidentsStore
	audits    store.AuditStore
	cfg       *config.AppConfig
	policy    *rbac.Policy
	logger    *utils.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.AppConfig{
		DBDriver: "sqlite",
		DBPath:   filepath.Join(t.TempDir(), "test.db"),
	}
	logger := utils.NewSilentLogger()
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.ApplyMigrations(context.Background(), db, cfg, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return &testEnv{
		incidents: store.NewIncidentsStore(db),
		audits:    store.NewAuditStore(db),
		cfg:       cfg,
		policy:    rbac.NewDefaultPolicy(),
		logger:    logger,
	}
}

func (e *testEnv) service(gateway GatewayClient) *Service {
	return NewService(e.cfg, e.incidents, e.audits, e.policy, gateway, e.logger)
}

func (e *testEnv) seedIncident(t *testing.T) *store.Incident {
	t.Helper()
	incident := &store.Incident{
		Type:        store.TypeSecurity,
		Description: "forced entry at the loading dock",
		Latitude:    42.3601,
		Longitude:   -71.0942,
		Status:      store.StatusActive,
		ReportedBy:  2,
	}
	if _, err := e.incidents.CreateIncident(context.Background(), incident, "", "operator"); err != nil {
		t.Fatalf("create incident: %v", err)
	}
	return incident
}

var operatorActor = rbac.Actor{ID: 2, Email: "operator", Roles: []string{rbac.RoleOperator}}

func TestAnalyzePersistsResult(t *testing.T) {
	env := newTestEnv(t)
	incident := env.seedIncident(t)
	svc := env.service(&stubGateway{response: `{"severity":"high","immediate_actions":["lock down"],"resource_recommendations":["security team"],"reasoning":"active break-in"}`})

	updated, err := svc.Analyze(context.Background(), operatorActor, incident.ID)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if updated.Severity == nil || *updated.Severity != store.SeverityHigh {
		t.Fatal("severity not written back")
	}
	if updated.Analysis == nil || updated.Analysis.Reasoning != "active break-in" {
		t.Fatalf("analysis %+v", updated.Analysis)
	}
}

func TestAnalyzeUnparseableUsesFallback(t *testing.T) {
	env := newTestEnv(t)
	incident := env.seedIncident(t)
	svc := env.service(&stubGateway{response: "I cannot respond in JSON today."})

	updated, err := svc.Analyze(context.Background(), operatorActor, incident.ID)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if updated.Severity == nil || *updated.Severity != store.SeverityMedium {
		t.Fatal("fallback severity must be medium")
	}
	if updated.Analysis == nil || len(updated.Analysis.ImmediateActions) == 0 {
		t.Fatal("fallback analysis must be persisted")
	}
}

func TestAnalyzeRateLimitPassthrough(t *testing.T) {
	env := newTestEnv(t)
	incident := env.seedIncident(t)
	svc := env.service(&stubGateway{err: apperr.ErrRateLimited})

	_, err := svc.Analyze(context.Background(), operatorActor, incident.ID)
	if !errors.Is(err, apperr.ErrRateLimited) {
		t.Fatalf("want rate limited, got %v", err)
	}
	entries, _ := env.audits.ListForIncident(context.Background(), incident.ID, 50)
	found := false
	for _, e := range entries {
		if e.Action == "ai_analysis_failed" {
			found = true
		}
	}
	if !found {
		t.Fatal("failure must be audited")
	}
	got, _ := env.incidents.GetIncident(context.Background(), incident.ID)
	if got.Severity != nil {
		t.Fatal("failed analysis must not write severity")
	}
}

func TestAnalyzeMissingIncidentIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	svc := env.service(&stubGateway{response: "{}"})
	_, err := svc.Analyze(context.Background(), operatorActor, 424242)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestAnalyzeForbiddenWithoutCapability(t *testing.T) {
	env := newTestEnv(t)
	incident := env.seedIncident(t)
	svc := env.service(&stubGateway{response: "{}"})
	_, err := svc.Analyze(context.Background(), rbac.Actor{ID: 5, Roles: []string{"ghost"}}, incident.ID)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("want forbidden, got %v", err)
	}
}
