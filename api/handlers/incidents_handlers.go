package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"bastion-icc/core/analysis"
	"bastion-icc/core/incidents"
	"bastion-icc/core/rbac"
	"bastion-icc/core/store"
	"bastion-icc/core/utils"
)

type IncidentsHandler struct {
	incidents *incidents.Service
	analysis  *analysis.Service
	logger    *utils.Logger
}

func NewIncidentsHandler(is *incidents.Service, as *analysis.Service, logger *utils.Logger) *IncidentsHandler {
	return &IncidentsHandler{incidents: is, analysis: as, logger: logger}
}

func (h *IncidentsHandler) Report(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var in incidents.ReportInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	incident, err := h.incidents.Report(r.Context(), actor, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, incident)
}

func (h *IncidentsHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	q := r.URL.Query()
	filter := store.IncidentFilter{
		Search: strings.TrimSpace(q.Get("search")),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if st, ok := store.ParseIncidentStatus(q.Get("status")); ok {
		filter.Status = st
	}
	if sev, ok := store.ParseSeverity(q.Get("severity")); ok {
		filter.Severity = sev
	}
	if t, ok := store.ParseIncidentType(q.Get("incident_type")); ok {
		filter.Type = t
	}
	list, err := h.incidents.List(r.Context(), actor, filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if list == nil {
		list = []store.Incident{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"incidents": list, "count": len(list)})
}

func (h *IncidentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	incident, err := h.incidents.Get(r.Context(), actor, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, incident)
}

func (h *IncidentsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.incidents.Resolve)
}

func (h *IncidentsHandler) Escalate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.incidents.Escalate)
}

func (h *IncidentsHandler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, rbac.Actor, int64) (*store.Incident, error)) {
	actor, ok := requestActor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	incident, err := op(r.Context(), actor, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, incident)
}

func (h *IncidentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := h.incidents.Delete(r.Context(), actor, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *IncidentsHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	entries, err := h.incidents.Timeline(r.Context(), actor, id, queryInt(r, "limit", 200))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": renderEntries(entries)})
}

func (h *IncidentsHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	incident, err := h.analysis.Analyze(r.Context(), actor, id)
	if err != nil {
		writeAnalysisError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, incident)
}
