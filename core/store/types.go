package store

import (
	"strings"
	"time"
)

type IncidentType string

const (
	TypeMedical        IncidentType = "medical"
	TypeFire           IncidentType = "fire"
	TypeSecurity       IncidentType = "security"
	TypeInfrastructure IncidentType = "infrastructure"
)

func ParseIncidentType(raw string) (IncidentType, bool) {
	switch IncidentType(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeMedical:
		return TypeMedical, true
	case TypeFire:
		return TypeFire, true
	case TypeSecurity:
		return TypeSecurity, true
	case TypeInfrastructure:
		return TypeInfrastructure, true
	}
	return "", false
}

type IncidentStatus string

const (
	StatusActive    IncidentStatus = "active"
	StatusResolved  IncidentStatus = "resolved"
	StatusEscalated IncidentStatus = "escalated"
)

func ParseIncidentStatus(raw string) (IncidentStatus, bool) {
	switch IncidentStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusActive:
		return StatusActive, true
	case StatusResolved:
		return StatusResolved, true
	case StatusEscalated:
		return StatusEscalated, true
	}
	return "", false
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func ParseSeverity(raw string) (Severity, bool) {
	switch Severity(strings.ToLower(strings.TrimSpace(raw))) {
	case SeverityLow:
		return SeverityLow, true
	case SeverityMedium:
		return SeverityMedium, true
	case SeverityHigh:
		return SeverityHigh, true
	case SeverityCritical:
		return SeverityCritical, true
	}
	return "", false
}

type HelperRole string

const (
	HelperSecurity  HelperRole = "security"
	HelperMedical   HelperRole = "medical"
	HelperVolunteer HelperRole = "volunteer"
)

func ParseHelperRole(raw string) (HelperRole, bool) {
	switch HelperRole(strings.ToLower(strings.TrimSpace(raw))) {
	case HelperSecurity:
		return HelperSecurity, true
	case HelperMedical:
		return HelperMedical, true
	case HelperVolunteer:
		return HelperVolunteer, true
	}
	return "", false
}

// AIAnalysis is the structured result written back by the analysis
// gateway. Stored as a JSON blob on the incident row.
type AIAnalysis struct {
	Severity                Severity `json:"severity"`
	ImmediateActions        []string `json:"immediate_actions"`
	ResourceRecommendations []string `json:"resource_recommendations"`
	Reasoning               string   `json:"reasoning"`
}

type Incident struct {
	ID           int64          `json:"id"`
	RegNo        string         `json:"reg_no"`
	Type         IncidentType   `json:"incident_type"`
	Description  string         `json:"description"`
	Latitude     float64        `json:"latitude"`
	Longitude    float64        `json:"longitude"`
	LocationName string         `json:"location_name,omitempty"`
	Status       IncidentStatus `json:"status"`
	Severity     *Severity      `json:"severity,omitempty"`
	Analysis     *AIAnalysis    `json:"ai_analysis,omitempty"`
	ReportedBy   int64          `json:"reported_by"`
	ResolvedBy   *int64         `json:"resolved_by,omitempty"`
	ResolvedAt   *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Version      int            `json:"version"`
}

type Helper struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Mobile    string     `json:"mobile"`
	Role      HelperRole `json:"role"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	IsActive  bool       `json:"is_active"`
	CreatedBy int64      `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// HelperMatch pairs a helper with its computed distance from an incident.
type HelperMatch struct {
	Helper     Helper  `json:"helper"`
	DistanceKm float64 `json:"distance_km"`
}

type AuditLogEntry struct {
	ID         int64          `json:"id"`
	IncidentID *int64         `json:"incident_id,omitempty"`
	Action     string         `json:"action"`
	ActorID    *int64         `json:"actor_id,omitempty"`
	ActorEmail string         `json:"actor_email,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	Roles        []string  `json:"roles"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type SessionRecord struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	Roles      []string  `json:"roles"`
	CSRFToken  string    `json:"-"`
	IP         string    `json:"ip"`
	UserAgent  string    `json:"user_agent"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Revoked    bool      `json:"revoked"`
}

type IncidentFilter struct {
	Status     IncidentStatus
	Severity   Severity
	Type       IncidentType
	ReportedBy int64
	Search     string
	Limit      int
	Offset     int
}
