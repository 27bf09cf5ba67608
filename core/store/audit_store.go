package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

// AuditStore is append-only: there is deliberately no update or delete.
type AuditStore interface {
	Append(ctx context.Context, entry *AuditLogEntry) (int64, error)
	ListForIncident(ctx context.Context, incidentID int64, limit int) ([]AuditLogEntry, error)
	ListRecent(ctx context.Context, limit int) ([]AuditLogEntry, error)
}

type auditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) AuditStore {
	return &auditStore{db: db}
}

type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertAudit(ctx context.Context, ex sqlExecer, entry *AuditLogEntry) (int64, error) {
	now := time.Now().UTC()
	meta := "{}"
	if len(entry.Metadata) > 0 {
		if b, err := json.Marshal(entry.Metadata); err == nil {
			meta = string(b)
		}
	}
	res, err := ex.ExecContext(ctx, `
		INSERT INTO audit_log(incident_id, action, actor_id, actor_email, metadata, created_at)
		VALUES(?,?,?,?,?,?)`,
		nullableID(entry.IncidentID), strings.TrimSpace(entry.Action), nullableID(entry.ActorID), strings.TrimSpace(entry.ActorEmail), meta, now)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	entry.ID = id
	entry.CreatedAt = now
	return id, nil
}

func (s *auditStore) Append(ctx context.Context, entry *AuditLogEntry) (int64, error) {
	return insertAudit(ctx, s.db, entry)
}

func (s *auditStore) ListForIncident(ctx context.Context, incidentID int64, limit int) ([]AuditLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, incident_id, action, actor_id, actor_email, metadata, created_at
		FROM audit_log WHERE incident_id=? ORDER BY created_at DESC, id DESC LIMIT ?`, incidentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditRows(rows)
}

func (s *auditStore) ListRecent(ctx context.Context, limit int) ([]AuditLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, incident_id, action, actor_id, actor_email, metadata, created_at
		FROM audit_log ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditRows(rows)
}

func scanAuditRows(rows *sql.Rows) ([]AuditLogEntry, error) {
	var res []AuditLogEntry
	for rows.Next() {
		var e AuditLogEntry
		var incidentID sql.NullInt64
		var actorID sql.NullInt64
		var metaRaw string
		if err := rows.Scan(&e.ID, &incidentID, &e.Action, &actorID, &e.ActorEmail, &metaRaw, &e.CreatedAt); err != nil {
			return nil, err
		}
		if incidentID.Valid {
			e.IncidentID = &incidentID.Int64
		}
		if actorID.Valid {
			e.ActorID = &actorID.Int64
		}
		if strings.TrimSpace(metaRaw) != "" {
			_ = json.Unmarshal([]byte(metaRaw), &e.Metadata)
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullableID(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return *v
}
