package store

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"bastion-icc/core/apperr"
	"bastion-icc/core/geo"
	"bastion-icc/core/rbac"
)

// HelpersStore guards responder rows at the data-access boundary itself:
// NearbyHelpers and GetHelper take the acting identity and re-evaluate the
// capability even when the calling service already did. A direct call
// into this layer cannot leak contact data.
type HelpersStore interface {
	CreateHelper(ctx context.Context, helper *Helper) (int64, error)
	UpdateHelper(ctx context.Context, helper *Helper) error
	SetActive(ctx context.Context, id int64, active bool) error
	GetHelper(ctx context.Context, actor rbac.Actor, id int64) (*Helper, error)
	ListHelpers(ctx context.Context, actor rbac.Actor, includeInactive bool) ([]Helper, error)
	NearbyHelpers(ctx context.Context, actor rbac.Actor, lat, lng, radiusKm float64) ([]HelperMatch, error)
}

type helpersStore struct {
	db     *sql.DB
	policy *rbac.Policy
}

func NewHelpersStore(db *sql.DB, policy *rbac.Policy) HelpersStore {
	return &helpersStore{db: db, policy: policy}
}

const helperColumns = `id, name, mobile, role, latitude, longitude, is_active, created_by, created_at, updated_at`

func (s *helpersStore) CreateHelper(ctx context.Context, helper *Helper) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO helpers(name, mobile, role, latitude, longitude, is_active, created_by, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?,?,?)`,
		strings.TrimSpace(helper.Name), strings.TrimSpace(helper.Mobile), string(helper.Role),
		helper.Latitude, helper.Longitude, boolToInt(helper.IsActive), helper.CreatedBy, now, now)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	helper.ID = id
	helper.CreatedAt = now
	helper.UpdatedAt = now
	return id, nil
}

func (s *helpersStore) UpdateHelper(ctx context.Context, helper *Helper) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE helpers SET name=?, mobile=?, role=?, latitude=?, longitude=?, is_active=?, updated_at=? WHERE id=?`,
		strings.TrimSpace(helper.Name), strings.TrimSpace(helper.Mobile), string(helper.Role),
		helper.Latitude, helper.Longitude, boolToInt(helper.IsActive), now, helper.ID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.ErrNotFound
	}
	helper.UpdatedAt = now
	return nil
}

func (s *helpersStore) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE helpers SET is_active=?, updated_at=? WHERE id=?`,
		boolToInt(active), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *helpersStore) GetHelper(ctx context.Context, actor rbac.Actor, id int64) (*Helper, error) {
	if !s.policy.Allowed(actor.Roles, rbac.PermHelpersView) {
		return nil, apperr.ErrForbidden
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+helperColumns+` FROM helpers WHERE id=?`, id)
	h, err := scanHelper(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (s *helpersStore) ListHelpers(ctx context.Context, actor rbac.Actor, includeInactive bool) ([]Helper, error) {
	if !s.policy.Allowed(actor.Roles, rbac.PermHelpersView) {
		return nil, apperr.ErrForbidden
	}
	query := `SELECT ` + helperColumns + ` FROM helpers`
	if !includeInactive {
		query += ` WHERE is_active=1`
	}
	query += ` ORDER BY name ASC, id ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Helper
	for rows.Next() {
		h, err := scanHelper(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, *h)
	}
	return res, rows.Err()
}

// NearbyHelpers returns active helpers within radiusKm of the point,
// closest first. The radius is clamped before use regardless of caller.
func (s *helpersStore) NearbyHelpers(ctx context.Context, actor rbac.Actor, lat, lng, radiusKm float64) ([]HelperMatch, error) {
	if !s.policy.Allowed(actor.Roles, rbac.PermHelpersView) {
		return nil, apperr.ErrForbidden
	}
	radiusKm = geo.ClampRadiusKm(radiusKm)
	rows, err := s.db.QueryContext(ctx, `SELECT `+helperColumns+` FROM helpers WHERE is_active=1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var matches []HelperMatch
	for rows.Next() {
		h, err := scanHelper(rows.Scan)
		if err != nil {
			return nil, err
		}
		d := geo.DistanceKm(lat, lng, h.Latitude, h.Longitude)
		if d <= radiusKm {
			matches = append(matches, HelperMatch{Helper: *h, DistanceKm: d})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].DistanceKm < matches[j].DistanceKm })
	return matches, nil
}

func scanHelper(scan func(dest ...any) error) (*Helper, error) {
	var h Helper
	var roleRaw string
	var activeInt int
	if err := scan(&h.ID, &h.Name, &h.Mobile, &roleRaw, &h.Latitude, &h.Longitude, &activeInt, &h.CreatedBy, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	h.Role = HelperRole(roleRaw)
	h.IsActive = activeInt == 1
	return &h, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
