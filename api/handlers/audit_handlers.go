package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"bastion-icc/core/store"
	"bastion-icc/core/utils"
)

type AuditHandler struct {
	audits store.AuditStore
	logger *utils.Logger
}

func NewAuditHandler(audits store.AuditStore, logger *utils.Logger) *AuditHandler {
	return &AuditHandler{audits: audits, logger: logger}
}

// List returns the most recent audit entries system-wide, rendered for
// display.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.audits.ListRecent(r.Context(), queryInt(r, "limit", 100))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": renderEntries(entries)})
}

type renderedEntry struct {
	store.AuditLogEntry
	Title   string `json:"title"`
	Icon    string `json:"icon"`
	Summary string `json:"summary"`
}

type actionDisplay struct {
	Title string
	Icon  string
}

var actionDisplays = map[string]actionDisplay{
	"incident_created":                {Title: "Incident reported", Icon: "plus-circle"},
	"incident_status_changed":         {Title: "Status changed", Icon: "refresh"},
	"incident_deleted":                {Title: "Incident deleted", Icon: "trash"},
	"ai_analysis_completed":           {Title: "AI analysis completed", Icon: "cpu"},
	"ai_analysis_failed":              {Title: "AI analysis failed", Icon: "alert-triangle"},
	"call_initiated":                  {Title: "Call initiated", Icon: "phone"},
	"sms_alert_generated":             {Title: "SMS alert generated", Icon: "message-square"},
	"whatsapp_alert_generated":        {Title: "WhatsApp alert generated", Icon: "message-circle"},
	"bulk_emergency_alerts_generated": {Title: "Bulk alerts generated", Icon: "radio"},
	"helper_notified":                 {Title: "Helper notified", Icon: "bell"},
	"authorization_denied":            {Title: "Authorization denied", Icon: "shield-off"},
	"user_login":                      {Title: "User logged in", Icon: "log-in"},
	"user_logout":                     {Title: "User logged out", Icon: "log-out"},
}

func renderEntries(entries []store.AuditLogEntry) []renderedEntry {
	out := make([]renderedEntry, 0, len(entries))
	for _, e := range entries {
		display, ok := actionDisplays[e.Action]
		if !ok {
			display = actionDisplay{Title: e.Action, Icon: "activity"}
		}
		out = append(out, renderedEntry{
			AuditLogEntry: e,
			Title:         display.Title,
			Icon:          display.Icon,
			Summary:       renderMetadata(e.Metadata),
		})
	}
	return out
}

// knownMetadataKeys lists the metadata fields rendered into the summary,
// in display order. Entries carrying none of them read as a generic line
// instead of leaking raw maps to the UI.
var knownMetadataKeys = []string{
	"old_status", "new_status", "severity", "incident_type", "location_name",
	"helper_name", "helpers_count", "radius_km", "distance_km", "phone",
	"operation", "reason", "ip",
}

func renderMetadata(metadata map[string]any) string {
	if len(metadata) == 0 {
		return ""
	}
	var parts []string
	for _, key := range knownMetadataKeys {
		val, ok := metadata[key]
		if !ok {
			continue
		}
		parts = append(parts, key+"="+formatMetadataValue(val))
	}
	if len(parts) == 0 {
		return "details recorded"
	}
	return strings.Join(parts, " ")
}

func formatMetadataValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%.2f", t)
	case int, int64:
		return fmt.Sprintf("%d", t)
	case bool:
		return fmt.Sprintf("%t", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
