package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"bastion-icc/config"
	"bastion-icc/core/auth"
	"bastion-icc/core/store"
	"bastion-icc/core/utils"
)

const (
	SessionCookieName = "bastion_session"
	CSRFCookieName    = "bastion_csrf"
)

type AuthHandler struct {
	cfg            *config.AppConfig
	users          store.UsersStore
	sessionManager *auth.SessionManager
	audits         store.AuditStore
	logger         *utils.Logger
}

func NewAuthHandler(cfg *config.AppConfig, users store.UsersStore, sm *auth.SessionManager, audits store.AuditStore, logger *utils.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users, sessionManager: sm, audits: audits, logger: logger}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var cred auth.Credentials
	if err := json.NewDecoder(r.Body).Decode(&cred); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	cred.Username = strings.ToLower(strings.TrimSpace(cred.Username))
	if cred.Username == "" || cred.Password == "" {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	user, err := h.users.FindByUsername(r.Context(), cred.Username)
	if err != nil || user == nil || !user.Active {
		h.logger.Printf("AUTH login fail user=%s (missing or inactive)", cred.Username)
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if !auth.VerifyPassword(cred.Password, h.cfg.Pepper, user.PasswordHash, user.Salt) {
		h.logger.Printf("AUTH login fail user=%s (bad password)", cred.Username)
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	sess, err := h.sessionManager.Create(r.Context(), user, clientIP(r), r.UserAgent())
	if err != nil {
		h.logger.Errorf("AUTH session create user=%s: %v", cred.Username, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    sess.CSRFToken,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})
	h.logger.Printf("AUTH login ok user=%s", user.Username)
	h.auditAuth(r, "user_login", user.ID, user.Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"roles":    user.Roles,
		},
		"csrf_token": sess.CSRFToken,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		_ = h.sessionManager.Delete(r.Context(), cookie.Value)
	}
	if val := r.Context().Value(auth.SessionContextKey); val != nil {
		sr := val.(*store.SessionRecord)
		h.auditAuth(r, "user_logout", sr.UserID, sr.Username)
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: CSRFCookieName, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	val := r.Context().Value(auth.SessionContextKey)
	if val == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	sr := val.(*store.SessionRecord)
	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"id":       sr.UserID,
			"username": sr.Username,
			"roles":    sr.Roles,
		},
		"csrf_token": sr.CSRFToken,
	})
}

func (h *AuthHandler) auditAuth(r *http.Request, action string, userID int64, username string) {
	entry := &store.AuditLogEntry{
		Action:     action,
		ActorEmail: username,
		Metadata:   map[string]any{"ip": clientIP(r)},
	}
	if userID != 0 {
		entry.ActorID = &userID
	}
	if _, err := h.audits.Append(r.Context(), entry); err != nil {
		h.logger.Errorf("AUTH audit %s user=%s: %v", action, username, err)
	}
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return strings.Trim(host, "[]")
}
