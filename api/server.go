// Package api exposes the HTTP surface: session auth, capability guards
// and JSON handlers over the incident, helper, dispatch and analysis
// services.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bastion-icc/api/handlers"
	"bastion-icc/config"
	"bastion-icc/core/analysis"
	"bastion-icc/core/auth"
	"bastion-icc/core/dispatch"
	"bastion-icc/core/helpers"
	"bastion-icc/core/incidents"
	"bastion-icc/core/rbac"
	"bastion-icc/core/store"
	"bastion-icc/core/utils"
)

type ServerDeps struct {
	Cfg            *config.AppConfig
	Users          store.UsersStore
	Sessions       store.SessionStore
	Audits         store.AuditStore
	Policy         *rbac.Policy
	SessionManager *auth.SessionManager
	Incidents      *incidents.Service
	Helpers        *helpers.Service
	Dispatch       *dispatch.Service
	Analysis       *analysis.Service
	Logger         *utils.Logger
}

type Server struct {
	cfg             *config.AppConfig
	users           store.UsersStore
	sessions        store.SessionStore
	audits          store.AuditStore
	policy          *rbac.Policy
	sessionManager  *auth.SessionManager
	incidentsSvc    *incidents.Service
	helpersSvc      *helpers.Service
	dispatchSvc     *dispatch.Service
	analysisSvc     *analysis.Service
	logger          *utils.Logger
	activityTracker *sessionActivity
	router          chi.Router
}

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		cfg:             deps.Cfg,
		users:           deps.Users,
		sessions:        deps.Sessions,
		audits:          deps.Audits,
		policy:          deps.Policy,
		sessionManager:  deps.SessionManager,
		incidentsSvc:    deps.Incidents,
		helpersSvc:      deps.Helpers,
		dispatchSvc:     deps.Dispatch,
		analysisSvc:     deps.Analysis,
		logger:          deps.Logger,
		activityTracker: newSessionActivity(),
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

type routeHandlers struct {
	auth      *handlers.AuthHandler
	incidents *handlers.IncidentsHandler
	helpers   *handlers.HelpersHandler
	dispatch  *handlers.DispatchHandler
	audit     *handlers.AuditHandler
}

func (s *Server) newRouteHandlers() routeHandlers {
	return routeHandlers{
		auth:      handlers.NewAuthHandler(s.cfg, s.users, s.sessionManager, s.audits, s.logger),
		incidents: handlers.NewIncidentsHandler(s.incidentsSvc, s.analysisSvc, s.logger),
		helpers:   handlers.NewHelpersHandler(s.helpersSvc, s.logger),
		dispatch:  handlers.NewDispatchHandler(s.dispatchSvc, s.logger),
		audit:     handlers.NewAuditHandler(s.audits, s.logger),
	}
}
