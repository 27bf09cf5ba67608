package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"bastion-icc/core/apperr"
	"bastion-icc/core/auth"
	"bastion-icc/core/rbac"
	"bastion-icc/core/store"
	"bastion-icc/core/utils"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy to HTTP statuses. Anything outside
// the taxonomy is logged and answered generically.
func writeError(w http.ResponseWriter, logger *utils.Logger, err error) {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, apperr.ErrUnauthenticated):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, apperr.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, apperr.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, apperr.ErrConflict):
		http.Error(w, "conflict", http.StatusConflict)
	case errors.Is(err, apperr.ErrRateLimited):
		http.Error(w, "upstream rate limited", http.StatusTooManyRequests)
	case errors.Is(err, apperr.ErrQuotaExhausted):
		http.Error(w, "upstream quota exhausted", http.StatusPaymentRequired)
	default:
		if logger != nil {
			logger.Errorf("request failed: %v", err)
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// writeAnalysisError answers 502 for gateway failures that are not part
// of the taxonomy. The upstream cause stays in the server log.
func writeAnalysisError(w http.ResponseWriter, logger *utils.Logger, err error) {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) ||
		errors.Is(err, apperr.ErrForbidden) || errors.Is(err, apperr.ErrNotFound) ||
		errors.Is(err, apperr.ErrConflict) || errors.Is(err, apperr.ErrRateLimited) ||
		errors.Is(err, apperr.ErrQuotaExhausted) || errors.Is(err, apperr.ErrUnauthenticated) {
		writeError(w, logger, err)
		return
	}
	if logger != nil {
		logger.Errorf("analysis gateway: %v", err)
	}
	http.Error(w, "analysis gateway unavailable", http.StatusBadGateway)
}

// requestActor derives the acting identity from the session placed in the
// context by the middleware.
func requestActor(r *http.Request) (rbac.Actor, bool) {
	val := r.Context().Value(auth.SessionContextKey)
	if val == nil {
		return rbac.Actor{}, false
	}
	sr, ok := val.(*store.SessionRecord)
	if !ok || sr == nil {
		return rbac.Actor{}, false
	}
	return rbac.Actor{ID: sr.UserID, Email: sr.Username, Roles: sr.Roles}, true
}
