package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

type UsersStore interface {
	Create(ctx context.Context, user *User) (int64, error)
	Get(ctx context.Context, id int64) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type usersStore struct {
	db *sql.DB
}

func NewUsersStore(db *sql.DB) UsersStore {
	return &usersStore{db: db}
}

const userColumns = `id, username, email, password_hash, salt, roles, active, created_at, updated_at`

func (s *usersStore) Create(ctx context.Context, user *User) (int64, error) {
	now := time.Now().UTC()
	roles := "[]"
	if len(user.Roles) > 0 {
		if b, err := json.Marshal(user.Roles); err == nil {
			roles = string(b)
		}
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users(username, email, password_hash, salt, roles, active, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?,?)`,
		strings.ToLower(strings.TrimSpace(user.Username)), strings.TrimSpace(user.Email),
		user.PasswordHash, user.Salt, roles, boolToInt(user.Active), now, now)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return id, nil
}

func (s *usersStore) Get(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id)
	return scanUser(row.Scan)
}

func (s *usersStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username=?`,
		strings.ToLower(strings.TrimSpace(username)))
	return scanUser(row.Scan)
}

func (s *usersStore) SetActive(ctx context.Context, id int64, active bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET active=?, updated_at=? WHERE id=?`,
		boolToInt(active), time.Now().UTC(), id)
	return err
}

func scanUser(scan func(dest ...any) error) (*User, error) {
	var u User
	var rolesRaw string
	var activeInt int
	if err := scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Salt, &rolesRaw, &activeInt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	_ = json.Unmarshal([]byte(rolesRaw), &u.Roles)
	u.Active = activeInt == 1
	return &u, nil
}
