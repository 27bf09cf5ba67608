package handlers

import (
	"encoding/json"
	"net/http"

	"bastion-icc/core/helpers"
	"bastion-icc/core/store"
	"bastion-icc/core/utils"
)

type HelpersHandler struct {
	helpers *helpers.Service
	logger  *utils.Logger
}

func NewHelpersHandler(hs *helpers.Service, logger *utils.Logger) *HelpersHandler {
	return &HelpersHandler{helpers: hs, logger: logger}
}

func (h *HelpersHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var in helpers.HelperInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	helper, err := h.helpers.Create(r.Context(), actor, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, helper)
}

func (h *HelpersHandler) Update(w http.ResponseWriter, r *http.Request) {
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
	var in helpers.HelperInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	helper, err := h.helpers.Update(r.Context(), actor, id, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, helper)
}

func (h *HelpersHandler) SetActive(w http.ResponseWriter, r *http.Request) {
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
	var body struct {
		IsActive bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := h.helpers.SetActive(r.Context(), actor, id, body.IsActive); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_active": body.IsActive})
}

func (h *HelpersHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	helper, err := h.helpers.Get(r.Context(), actor, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, helper)
}

func (h *HelpersHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	list, err := h.helpers.List(r.Context(), actor, includeInactive)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if list == nil {
		list = []store.Helper{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"helpers": list, "count": len(list)})
}

// Nearby answers the proximity query. Radius defaults and clamping live
// below the handler.
func (h *HelpersHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	lat := queryFloat(r, "latitude", 0)
	lng := queryFloat(r, "longitude", 0)
	radius := queryFloat(r, "radius_km", 0)
	matches, err := h.helpers.Nearby(r.Context(), actor, lat, lng, radius)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if matches == nil {
		matches = []store.HelperMatch{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches, "count": len(matches)})
}
