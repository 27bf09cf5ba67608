package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bastion-icc/core/rbac"
)

func (s *Server) buildRouter() chi.Router {
	h := s.newRouteHandlers()
	r := chi.NewRouter()
	r.Use(s.recoverMiddleware, s.securityHeadersMiddleware, s.jsonMiddleware, s.loggingMiddleware)

	r.Route("/api", func(apiRouter chi.Router) {
		apiRouter.MethodFunc("POST", "/auth/login", s.rateLimitMiddleware(h.auth.Login))
		apiRouter.MethodFunc("POST", "/auth/logout", s.withSession(h.auth.Logout))
		apiRouter.MethodFunc("GET", "/auth/me", s.withSession(h.auth.Me))

		apiRouter.Route("/incidents", func(incidentsRouter chi.Router) {
			incidentsRouter.MethodFunc("POST", "/", s.withSession(h.incidents.Report))
			incidentsRouter.MethodFunc("GET", "/", s.withSession(s.requirePermission(rbac.PermIncidentsView)(h.incidents.List)))
			incidentsRouter.MethodFunc("GET", "/{id:[0-9]+}", s.withSession(s.requirePermission(rbac.PermIncidentsView)(h.incidents.Get)))
			incidentsRouter.MethodFunc("POST", "/{id:[0-9]+}/resolve", s.withSession(h.incidents.Resolve))
			incidentsRouter.MethodFunc("POST", "/{id:[0-9]+}/escalate", s.withSession(h.incidents.Escalate))
			incidentsRouter.MethodFunc("DELETE", "/{id:[0-9]+}", s.withSession(h.incidents.Delete))
			incidentsRouter.MethodFunc("GET", "/{id:[0-9]+}/audit", s.withSession(h.incidents.Timeline))
			incidentsRouter.MethodFunc("POST", "/{id:[0-9]+}/analyze", s.withSession(s.requirePermission(rbac.PermAnalysisRun)(h.incidents.Analyze)))
			incidentsRouter.MethodFunc("POST", "/{id:[0-9]+}/alerts", s.withSession(s.requirePermission(rbac.PermDispatchSend)(h.dispatch.SingleAlert)))
			incidentsRouter.MethodFunc("POST", "/{id:[0-9]+}/alerts/bulk", s.withSession(s.requirePermission(rbac.PermDispatchSend)(h.dispatch.BulkAlerts)))
		})

		apiRouter.Route("/helpers", func(helpersRouter chi.Router) {
			helpersRouter.MethodFunc("GET", "/", s.withSession(s.requirePermission(rbac.PermHelpersView)(h.helpers.List)))
			helpersRouter.MethodFunc("POST", "/", s.withSession(s.requirePermission(rbac.PermHelpersManage)(h.helpers.Create)))
			helpersRouter.MethodFunc("GET", "/nearby", s.withSession(s.requirePermission(rbac.PermHelpersView)(h.helpers.Nearby)))
			helpersRouter.MethodFunc("GET", "/{id:[0-9]+}", s.withSession(s.requirePermission(rbac.PermHelpersView)(h.helpers.Get)))
			helpersRouter.MethodFunc("PUT", "/{id:[0-9]+}", s.withSession(s.requirePermission(rbac.PermHelpersManage)(h.helpers.Update)))
			helpersRouter.MethodFunc("PATCH", "/{id:[0-9]+}/active", s.withSession(s.requirePermission(rbac.PermHelpersManage)(h.helpers.SetActive)))
		})

		apiRouter.MethodFunc("GET", "/audit", s.withSession(s.requirePermission(rbac.PermAuditView)(h.audit.List)))
	})

	r.MethodFunc("GET", "/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}
