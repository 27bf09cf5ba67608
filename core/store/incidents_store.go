package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"bastion-icc/core/apperr"
)

// IncidentsStore owns the incident state machine. Status transitions,
// analysis write-back and deletion each run in one transaction together
// with their audit entry, so visible state can never desynchronize from
// recorded history.
type IncidentsStore interface {
	CreateIncident(ctx context.Context, incident *Incident, regFormat, actorEmail string) (int64, error)
	GetIncident(ctx context.Context, id int64) (*Incident, error)
	ListIncidents(ctx context.Context, filter IncidentFilter) ([]Incident, error)
	Resolve(ctx context.Context, id, actorID int64, actorEmail string) (*Incident, error)
	Escalate(ctx context.Context, id, actorID int64, actorEmail string) (*Incident, error)
	SetAnalysis(ctx context.Context, id int64, analysis *AIAnalysis) (*Incident, error)
	DeleteIncident(ctx context.Context, id, actorID int64, actorEmail string) error
}

type incidentsStore struct {
	db *sql.DB
}

func NewIncidentsStore(db *sql.DB) IncidentsStore {
	return &incidentsStore{db: db}
}

const incidentColumns = `id, reg_no, incident_type, description, latitude, longitude, location_name, status, severity, ai_analysis, reported_by, resolved_by, resolved_at, created_at, updated_at, version`

func (s *incidentsStore) CreateIncident(ctx context.Context, incident *Incident, regFormat, actorEmail string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(incident.RegNo) == "" {
		seq, err := nextIncidentSeqTx(ctx, tx, time.Now().UTC().Year())
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		incident.RegNo = buildIncidentRegNo(regFormat, time.Now().UTC().Year(), seq)
	}
	if incident.Status == "" {
		incident.Status = StatusActive
	}
	if incident.Version <= 0 {
		incident.Version = 1
	}
	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO incidents(reg_no, incident_type, description, latitude, longitude, location_name, status, severity, ai_analysis, reported_by, resolved_by, resolved_at, created_at, updated_at, version)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		incident.RegNo, string(incident.Type), incident.Description, incident.Latitude, incident.Longitude, strings.TrimSpace(incident.LocationName),
		string(incident.Status), nil, nil, incident.ReportedBy, nil, nil, now, now, incident.Version)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	incidentID, _ := res.LastInsertId()
	incident.ID = incidentID
	incident.CreatedAt = now
	incident.UpdatedAt = now
	if _, err := insertAudit(ctx, tx, &AuditLogEntry{
		IncidentID: &incidentID,
		Action:     "incident_created",
		ActorID:    &incident.ReportedBy,
		ActorEmail: actorEmail,
		Metadata: map[string]any{
			"incident_type": string(incident.Type),
			"location_name": incident.LocationName,
		},
	}); err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return incidentID, nil
}

func (s *incidentsStore) Resolve(ctx context.Context, id, actorID int64, actorEmail string) (*Incident, error) {
	return s.transition(ctx, id, StatusResolved, []IncidentStatus{StatusActive, StatusEscalated}, actorID, actorEmail)
}

func (s *incidentsStore) Escalate(ctx context.Context, id, actorID int64, actorEmail string) (*Incident, error) {
	return s.transition(ctx, id, StatusEscalated, []IncidentStatus{StatusActive}, actorID, actorEmail)
}

// transition performs the guarded status update and the status-change
// audit entry in one transaction. Writing the audit row only after a
// successful conditional update makes no-op transitions (duplicate
// clicks, concurrent resolvers) produce zero extra entries.
func (s *incidentsStore) transition(ctx context.Context, id int64, to IncidentStatus, from []IncidentStatus, actorID int64, actorEmail string) (*Incident, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	var old string
	err = tx.QueryRowContext(ctx, `SELECT status FROM incidents WHERE id=?`, id).Scan(&old)
	if errors.Is(err, sql.ErrNoRows) {
		tx.Rollback()
		return nil, nil
	}
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	allowed := false
	for _, st := range from {
		if IncidentStatus(old) == st {
			allowed = true
			break
		}
	}
	if !allowed {
		tx.Rollback()
		return nil, apperr.ErrConflict
	}
	now := time.Now().UTC()
	var res sql.Result
	if to == StatusResolved {
		res, err = tx.ExecContext(ctx, `
			UPDATE incidents SET status=?, resolved_by=?, resolved_at=?, updated_at=?, version=version+1
			WHERE id=? AND status=?`,
			string(to), actorID, now, now, id, old)
	} else {
		res, err = tx.ExecContext(ctx, `
			UPDATE incidents SET status=?, resolved_by=NULL, resolved_at=NULL, updated_at=?, version=version+1
			WHERE id=? AND status=?`,
			string(to), now, id, old)
	}
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		tx.Rollback()
		return nil, apperr.ErrConflict
	}
	if _, err := insertAudit(ctx, tx, &AuditLogEntry{
		IncidentID: &id,
		Action:     "incident_status_changed",
		ActorID:    &actorID,
		ActorEmail: actorEmail,
		Metadata:   map[string]any{"old_status": old, "new_status": string(to)},
	}); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetIncident(ctx, id)
}

// SetAnalysis is the only write path for severity and ai_analysis. It is
// called with the service identity by the analysis gateway, never with a
// request actor.
func (s *incidentsStore) SetAnalysis(ctx context.Context, id int64, analysis *AIAnalysis) (*Incident, error) {
	if analysis == nil {
		return nil, apperr.Validation("analysis", "missing analysis payload")
	}
	severity, ok := ParseSeverity(string(analysis.Severity))
	if !ok {
		return nil, apperr.Validation("severity", "invalid severity")
	}
	analysis.Severity = severity
	raw, err := json.Marshal(analysis)
	if err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE incidents SET severity=?, ai_analysis=?, updated_at=?, version=version+1 WHERE id=?`,
		string(severity), string(raw), now, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		tx.Rollback()
		return nil, nil
	}
	if _, err := insertAudit(ctx, tx, &AuditLogEntry{
		IncidentID: &id,
		Action:     "ai_analysis_completed",
		Metadata:   map[string]any{"severity": string(severity)},
	}); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetIncident(ctx, id)
}

func (s *incidentsStore) DeleteIncident(ctx context.Context, id, actorID int64, actorEmail string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM incidents WHERE id=?`, id)
	if err != nil {
		tx.Rollback()
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		tx.Rollback()
		return apperr.ErrNotFound
	}
	if _, err := insertAudit(ctx, tx, &AuditLogEntry{
		IncidentID: &id,
		Action:     "incident_deleted",
		ActorID:    &actorID,
		ActorEmail: actorEmail,
	}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *incidentsStore) GetIncident(ctx context.Context, id int64) (*Incident, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+incidentColumns+` FROM incidents WHERE id=?`, id)
	inc, err := scanIncident(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inc, nil
}

func (s *incidentsStore) ListIncidents(ctx context.Context, filter IncidentFilter) ([]Incident, error) {
	var clauses []string
	var args []any
	if filter.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, string(filter.Status))
	}
	if filter.Severity != "" {
		clauses = append(clauses, "severity=?")
		args = append(args, string(filter.Severity))
	}
	if filter.Type != "" {
		clauses = append(clauses, "incident_type=?")
		args = append(args, string(filter.Type))
	}
	if filter.ReportedBy > 0 {
		clauses = append(clauses, "reported_by=?")
		args = append(args, filter.ReportedBy)
	}
	if filter.Search != "" {
		clauses = append(clauses, "(description LIKE ? OR location_name LIKE ? OR reg_no LIKE ?)")
		q := "%" + filter.Search + "%"
		args = append(args, q, q, q)
	}
	query := `SELECT ` + incidentColumns + ` FROM incidents`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Incident
	for rows.Next() {
		inc, err := scanIncident(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, *inc)
	}
	return res, rows.Err()
}

func scanIncident(scan func(dest ...any) error) (*Incident, error) {
	var inc Incident
	var typeRaw, statusRaw string
	var severity sql.NullString
	var analysisRaw sql.NullString
	var resolvedBy sql.NullInt64
	var resolvedAt sql.NullTime
	if err := scan(&inc.ID, &inc.RegNo, &typeRaw, &inc.Description, &inc.Latitude, &inc.Longitude, &inc.LocationName,
		&statusRaw, &severity, &analysisRaw, &inc.ReportedBy, &resolvedBy, &resolvedAt, &inc.CreatedAt, &inc.UpdatedAt, &inc.Version); err != nil {
		return nil, err
	}
	inc.Type = IncidentType(typeRaw)
	inc.Status = IncidentStatus(statusRaw)
	if severity.Valid {
		sev := Severity(severity.String)
		inc.Severity = &sev
	}
	if analysisRaw.Valid && strings.TrimSpace(analysisRaw.String) != "" {
		var analysis AIAnalysis
		if err := json.Unmarshal([]byte(analysisRaw.String), &analysis); err == nil {
			inc.Analysis = &analysis
		}
	}
	if resolvedBy.Valid {
		inc.ResolvedBy = &resolvedBy.Int64
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		inc.ResolvedAt = &t
	}
	return &inc, nil
}

func nextIncidentSeqTx(ctx context.Context, tx *sql.Tx, year int) (int64, error) {
	var seq int64
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO incident_reg_counters(year, seq)
		VALUES(?,1)
		ON CONFLICT (year)
		DO UPDATE SET seq = incident_reg_counters.seq + 1
		RETURNING seq
	`, year).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

var seqToken = regexp.MustCompile(`\{seq(?::(\d+))?\}`)

func buildIncidentRegNo(format string, year int, seq int64) string {
	if strings.TrimSpace(format) == "" {
		format = "INC-{year}-{seq:05}"
	}
	out := strings.ReplaceAll(format, "{year}", fmt.Sprintf("%d", year))
	out = seqToken.ReplaceAllStringFunc(out, func(token string) string {
		m := seqToken.FindStringSubmatch(token)
		if len(m) == 2 && m[1] != "" {
			width := 0
			_, _ = fmt.Sscanf(m[1], "%d", &width)
			if width > 0 {
				return fmt.Sprintf("%0*d", width, seq)
			}
		}
		return fmt.Sprintf("%d", seq)
	})
	return out
}
