package handlers

import (
	"encoding/json"
	"net/http"

	"bastion-icc/core/dispatch"
	"bastion-icc/core/utils"
)

type DispatchHandler struct {
	dispatch *dispatch.Service
	logger   *utils.Logger
}

func NewDispatchHandler(ds *dispatch.Service, logger *utils.Logger) *DispatchHandler {
	return &DispatchHandler{dispatch: ds, logger: logger}
}

func (h *DispatchHandler) SingleAlert(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	incidentID, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	var body struct {
		Channel  string `json:"channel"`
		HelperID int64  `json:"helper_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	channel, ok := dispatch.ParseChannel(body.Channel)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "channel: unknown alert channel", "field": "channel"})
		return
	}
	if body.HelperID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "helper_id: required", "field": "helper_id"})
		return
	}
	alert, err := h.dispatch.GenerateAlert(r.Context(), actor, channel, incidentID, body.HelperID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (h *DispatchHandler) BulkAlerts(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	incidentID, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	var body struct {
		RadiusKm float64 `json:"radius_km"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	result, err := h.dispatch.GenerateBulkAlerts(r.Context(), actor, incidentID, body.RadiusKm)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
