// Package appbootstrap wires stores, services and the HTTP server into a
// runnable application.
package appbootstrap

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"bastion-icc/api"
	"bastion-icc/config"
	"bastion-icc/core/analysis"
	"bastion-icc/core/auth"
	"bastion-icc/core/dispatch"
	"bastion-icc/core/helpers"
	"bastion-icc/core/incidents"
	"bastion-icc/core/notify"
	"bastion-icc/core/rbac"
	"bastion-icc/core/store"
	"bastion-icc/core/utils"
)

type App struct {
	cfg       *config.AppConfig
	srv       *http.Server
	cron      *cron.Cron
	publisher notify.Publisher
	logger    *utils.Logger
}

func Compose(cfg *config.AppConfig, db *sql.DB, logger *utils.Logger) (*App, error) {
	policy := rbac.NewDefaultPolicy()
	users := store.NewUsersStore(db)
	sessions := store.NewSessionsStore(db)
	audits := store.NewAuditStore(db)
	incidentsStore := store.NewIncidentsStore(db)
	helpersStore := store.NewHelpersStore(db, policy)

	publisher := notify.NewNopPublisher()
	if cfg.Redis.Addr != "" {
		publisher = notify.NewRedisPublisher(cfg.Redis.Addr, cfg.Redis.Channel, logger)
	}

	sessionManager := auth.NewSessionManager(sessions, cfg, logger)
	incidentsSvc := incidents.NewService(cfg, incidentsStore, audits, policy, publisher, logger)
	helpersSvc := helpers.NewService(helpersStore, policy, logger)
	dispatchSvc := dispatch.NewService(cfg, incidentsStore, helpersStore, audits, policy, logger)
	gateway := analysis.NewHTTPGateway(cfg.Analysis.Endpoint, cfg.Analysis.Model, cfg.Analysis.APIKey,
		time.Duration(cfg.Analysis.TimeoutSec)*time.Second, logger)
	analysisSvc := analysis.NewService(cfg, incidentsStore, audits, policy, gateway, logger)

	if err := EnsureDefaultAdmin(context.Background(), users, cfg, logger); err != nil {
		return nil, err
	}

	server := api.NewServer(api.ServerDeps{
		Cfg:            cfg,
		Users:          users,
		Sessions:       sessions,
		Audits:         audits,
		Policy:         policy,
		SessionManager: sessionManager,
		Incidents:      incidentsSvc,
		Helpers:        helpersSvc,
		Dispatch:       dispatchSvc,
		Analysis:       analysisSvc,
		Logger:         logger,
	})

	c := cron.New()
	if cfg.Scheduler.Enabled {
		spec := cfg.Scheduler.CleanupSpec
		if spec == "" {
			spec = "@every 10m"
		}
		if _, err := c.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			n, err := sessions.DeleteExpired(ctx, time.Now().UTC())
			if err != nil {
				logger.Errorf("session cleanup: %v", err)
				return
			}
			if n > 0 {
				logger.Printf("session cleanup removed=%d", n)
			}
		}); err != nil {
			return nil, err
		}
	}

	return &App{
		cfg: cfg,
		srv: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		cron:      c,
		publisher: publisher,
		logger:    logger,
	}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	a.cron.Start()
	errCh := make(chan error, 1)
	go func() {
		a.logger.Printf("HTTP listening on %s", a.cfg.ListenAddr)
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := a.srv.Shutdown(shutdownCtx)
	<-a.cron.Stop().Done()
	_ = a.publisher.Close()
	return err
}
