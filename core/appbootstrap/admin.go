package appbootstrap

import (
	"context"
	"os"
	"strings"

	"bastion-icc/config"
	"bastion-icc/core/auth"
	"bastion-icc/core/rbac"
	"bastion-icc/core/store"
	"bastion-icc/core/utils"
)

const defaultAdminUsername = "admin"

// EnsureDefaultAdmin creates the initial admin account when the users
// table has no admin yet. The password comes from BASTION_ADMIN_PASSWORD
// or is generated and logged once.
func EnsureDefaultAdmin(ctx context.Context, users store.UsersStore, cfg *config.AppConfig, logger *utils.Logger) error {
	existing, err := users.FindByUsername(ctx, defaultAdminUsername)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	password := strings.TrimSpace(os.Getenv("BASTION_ADMIN_PASSWORD"))
	generated := false
	if password == "" {
		password, err = utils.RandString(18)
		if err != nil {
			return err
		}
		generated = true
	}
	ph, err := auth.HashPassword(password, cfg.Pepper)
	if err != nil {
		return err
	}
	user := &store.User{
		Username:     defaultAdminUsername,
		Email:        "admin@localhost",
		PasswordHash: ph.Hash,
		Salt:         ph.Salt,
		Roles:        []string{rbac.RoleAdmin},
		Active:       true,
	}
	if _, err := users.Create(ctx, user); err != nil {
		return err
	}
	if generated {
		logger.Printf("default admin created username=%s password=%s (change it)", defaultAdminUsername, password)
	} else {
		logger.Printf("default admin created username=%s", defaultAdminUsername)
	}
	return nil
}
