package incidents

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"bastion-icc/config"
	"bastion-icc/core/apperr"
	"bastion-icc/core/rbac"
	"bastion-icc/core/store"
	"bastion-icc/core/utils"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) IncidentChanged(_ context.Context, _ int64, action string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, action)
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type testEnv struct {
	svc       *Service
	incidents store.IncidentsStore
	audits    store.AuditStore
	publisher *recordingPublisher
}

var (
	adminActor    = rbac.Actor{ID: 1, Email: "admin", Roles: []string{rbac.RoleAdmin}}
	operatorActor = rbac.Actor{ID: 2, Email: "operator", Roles: []string{rbac.RoleOperator}}
	otherOperator = rbac.Actor{ID: 3, Email: "other", Roles: []string{rbac.RoleOperator}}
)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.AppConfig{
		DBDriver:  "sqlite",
		DBPath:    filepath.Join(t.TempDir(), "test.db"),
		Security:  config.SecurityConfig{AuditDenied: true},
		Incidents: config.IncidentsConfig{RegNoFormat: "INC-{year}-{seq:05}"},
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
	incidents := store.NewIncidentsStore(db)
	audits := store.NewAuditStore(db)
	publisher := &recordingPublisher{}
	svc := NewService(cfg, incidents, audits, rbac.NewDefaultPolicy(), publisher, logger)
	return &testEnv{svc: svc, incidents: incidents, audits: audits, publisher: publisher}
}

func validReport() ReportInput {
	return ReportInput{
		Type:         "medical",
		Description:  "collapsed runner near the fountain",
		Latitude:     42.3601,
		Longitude:    -71.0942,
		LocationName: "Esplanade",
	}
}

func TestReportCreatesActiveIncident(t *testing.T) {
	env := newTestEnv(t)
	incident, err := env.svc.Report(context.Background(), operatorActor, validReport())
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if incident.Status != store.StatusActive {
		t.Fatalf("status %q", incident.Status)
	}
	if incident.Severity != nil {
		t.Fatal("severity must start unset")
	}
	if incident.ReportedBy != operatorActor.ID {
		t.Fatalf("reported_by %d", incident.ReportedBy)
	}
	events := env.publisher.actions()
	if len(events) != 1 || events[0] != "created" {
		t.Fatalf("events %v", events)
	}
}

func TestReportValidation(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		name   string
		mutate func(*ReportInput)
	}{
		{"bad type", func(in *ReportInput) { in.Type = "tsunami" }},
		{"bad latitude", func(in *ReportInput) { in.Latitude = 91 }},
		{"bad longitude", func(in *ReportInput) { in.Longitude = -200 }},
		{"empty description", func(in *ReportInput) { in.Description = "   " }},
	}
	for _, c := range cases {
		in := validReport()
		c.mutate(&in)
		if _, err := env.svc.Report(context.Background(), operatorActor, in); !apperr.IsValidation(err) {
			t.Fatalf("%s: want validation error, got %v", c.name, err)
		}
	}
	if len(env.publisher.actions()) != 0 {
		t.Fatal("rejected reports must not publish events")
	}
}

func TestResolveByReporter(t *testing.T) {
	env := newTestEnv(t)
	incident, _ := env.svc.Report(context.Background(), operatorActor, validReport())

	resolved, err := env.svc.Resolve(context.Background(), operatorActor, incident.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != store.StatusResolved {
		t.Fatalf("status %q", resolved.Status)
	}
	if resolved.ResolvedBy == nil || *resolved.ResolvedBy != operatorActor.ID {
		t.Fatal("resolved_by must be the acting operator")
	}
}

func TestResolveDeniedForNonOwner(t *testing.T) {
	env := newTestEnv(t)
	incident, _ := env.svc.Report(context.Background(), operatorActor, validReport())

	_, err := env.svc.Resolve(context.Background(), otherOperator, incident.ID)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("want forbidden, got %v", err)
	}
	got, _ := env.incidents.GetIncident(context.Background(), incident.ID)
	if got.Status != store.StatusActive {
		t.Fatal("denied attempt must leave the incident untouched")
	}
	entries, _ := env.audits.ListForIncident(context.Background(), incident.ID, 50)
	found := false
	for _, e := range entries {
		if e.Action == "authorization_denied" {
			found = true
		}
	}
	if !found {
		t.Fatal("denied attempt must be audited")
	}
}

func TestResolveByAdminNonOwner(t *testing.T) {
	env := newTestEnv(t)
	incident, _ := env.svc.Report(context.Background(), operatorActor, validReport())
	if _, err := env.svc.Resolve(context.Background(), adminActor, incident.ID); err != nil {
		t.Fatalf("admin resolve: %v", err)
	}
}

func TestEscalateThenResolve(t *testing.T) {
	env := newTestEnv(t)
	incident, _ := env.svc.Report(context.Background(), operatorActor, validReport())
	if _, err := env.svc.Escalate(context.Background(), operatorActor, incident.ID); err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if _, err := env.svc.Resolve(context.Background(), operatorActor, incident.ID); err != nil {
		t.Fatalf("resolve after escalate: %v", err)
	}
	events := env.publisher.actions()
	want := []string{"created", "escalated", "resolved"}
	if len(events) != len(want) {
		t.Fatalf("events %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events %v", events)
		}
	}
}

func TestResolveMissingIncident(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Resolve(context.Background(), adminActor, 404)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestDeleteRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	incident, _ := env.svc.Report(context.Background(), operatorActor, validReport())

	if err := env.svc.Delete(context.Background(), operatorActor, incident.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("operator delete: want forbidden, got %v", err)
	}
	if err := env.svc.Delete(context.Background(), adminActor, incident.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}

func TestTimelineAccess(t *testing.T) {
	env := newTestEnv(t)
	incident, _ := env.svc.Report(context.Background(), operatorActor, validReport())

	entries, err := env.svc.Timeline(context.Background(), operatorActor, incident.ID, 50)
	if err != nil {
		t.Fatalf("reporter timeline: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("timeline should hold the creation entry")
	}
	if _, err := env.svc.Timeline(context.Background(), otherOperator, incident.ID, 50); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("stranger timeline: want forbidden, got %v", err)
	}
	if _, err := env.svc.Timeline(context.Background(), adminActor, incident.ID, 50); err != nil {
		t.Fatalf("admin timeline: %v", err)
	}
}
