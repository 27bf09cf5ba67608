package dispatch

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"bastion-icc/core/geo"
	"bastion-icc/core/store"
)

const (
	summaryLen = 50
	smsMaxLen  = 160
)

// SeverityMarker picks the attention emoji for alert text. Unknown or
// unset severity reads as a routine broadcast.
func SeverityMarker(sev *store.Severity) string {
	if sev == nil {
		return "📢"
	}
	switch *sev {
	case store.SeverityCritical:
		return "🚨"
	case store.SeverityHigh:
		return "⚠️"
	default:
		return "📢"
	}
}

func severityLabel(sev *store.Severity) string {
	if sev == nil {
		return "unassessed"
	}
	return string(*sev)
}

// Summarize cuts a description to summaryLen runes with an ellipsis.
func Summarize(description string) string {
	runes := []rune(description)
	if len(runes) <= summaryLen {
		return description
	}
	return string(runes[:summaryLen]) + "..."
}

// BuildCallLink returns the dial deep-link for a helper's phone.
func BuildCallLink(phone string) string {
	return "tel:" + DigitsOnly(phone)
}

// BuildSMSLink returns an sms: deep-link whose body fits one SMS. The
// summary shrinks before the maps link ever does.
func BuildSMSLink(incident *store.Incident) string {
	marker := SeverityMarker(incident.Severity)
	mapsLink := geo.MapsLink(incident.Latitude, incident.Longitude)
	head := marker + " " + strings.ToUpper(string(incident.Type)) + ": "
	tail := " " + mapsLink
	budget := smsMaxLen - len([]rune(head)) - len([]rune(tail))
	if budget < 0 {
		budget = 0
	}
	summary := Summarize(SanitizeText(incident.Description, DescriptionCap))
	if sr := []rune(summary); len(sr) > budget {
		summary = string(sr[:budget])
	}
	return "sms:?body=" + url.QueryEscape(head+summary+tail)
}

// BuildChatLink returns a wa.me deep-link carrying the full structured
// alert for one helper.
func BuildChatLink(incident *store.Incident, helper *store.Helper, distanceKm float64, at time.Time) string {
	marker := SeverityMarker(incident.Severity)
	mapsLink := geo.MapsLink(incident.Latitude, incident.Longitude)
	location := SanitizeText(incident.LocationName, LocationCap)
	if location == "" {
		location = "coordinates below"
	}
	lines := []string{
		marker + " EMERGENCY ALERT " + marker,
		"Type: " + strings.ToUpper(SanitizeText(string(incident.Type), TypeCap)),
		"Severity: " + severityLabel(incident.Severity),
		"Location: " + location,
		"Details: " + Summarize(SanitizeText(incident.Description, DescriptionCap)),
		"Map: " + mapsLink,
		"Reported: " + at.UTC().Format(time.RFC3339),
		"You are " + formatKm(distanceKm) + " km away.",
	}
	msg := strings.Join(lines, "\n")
	return "https://wa.me/" + DigitsOnly(helper.Mobile) + "?text=" + url.QueryEscape(msg)
}

func formatKm(km float64) string {
	return strconv.FormatFloat(km, 'f', 2, 64)
}
