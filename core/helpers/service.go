// Package helpers manages the responder roster. Contact data is admin
// territory; the store re-checks the capability on every read.
package helpers

import (
	"context"
	"strings"

	"bastion-icc/core/apperr"
	"bastion-icc/core/dispatch"
	"bastion-icc/core/geo"
	"bastion-icc/core/rbac"
	"bastion-icc/core/store"
	"bastion-icc/core/utils"
)

type Service struct {
	store  store.HelpersStore
	policy *rbac.Policy
	logger *utils.Logger
}

func NewService(hs store.HelpersStore, policy *rbac.Policy, logger *utils.Logger) *Service {
	return &Service{store: hs, policy: policy, logger: logger}
}

type HelperInput struct {
	Name      string  `json:"name"`
	Mobile    string  `json:"mobile"`
	Role      string  `json:"role"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	IsActive  *bool   `json:"is_active"`
}

func (s *Service) Create(ctx context.Context, actor rbac.Actor, in HelperInput) (*store.Helper, error) {
	if !s.policy.Allowed(actor.Roles, rbac.PermHelpersManage) {
		return nil, apperr.ErrForbidden
	}
	helper, err := helperFromInput(in)
	if err != nil {
		return nil, err
	}
	helper.CreatedBy = actor.ID
	if _, err := s.store.CreateHelper(ctx, helper); err != nil {
		return nil, err
	}
	s.logger.Printf("HELPER created id=%d role=%s by=%d", helper.ID, helper.Role, actor.ID)
	return helper, nil
}

func (s *Service) Update(ctx context.Context, actor rbac.Actor, id int64, in HelperInput) (*store.Helper, error) {
	if !s.policy.Allowed(actor.Roles, rbac.PermHelpersManage) {
		return nil, apperr.ErrForbidden
	}
	helper, err := helperFromInput(in)
	if err != nil {
		return nil, err
	}
	helper.ID = id
	if err := s.store.UpdateHelper(ctx, helper); err != nil {
		return nil, err
	}
	return helper, nil
}

func (s *Service) SetActive(ctx context.Context, actor rbac.Actor, id int64, active bool) error {
	if !s.policy.Allowed(actor.Roles, rbac.PermHelpersManage) {
		return apperr.ErrForbidden
	}
	return s.store.SetActive(ctx, id, active)
}

func (s *Service) Get(ctx context.Context, actor rbac.Actor, id int64) (*store.Helper, error) {
	helper, err := s.store.GetHelper(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if helper == nil {
		return nil, apperr.ErrNotFound
	}
	return helper, nil
}

func (s *Service) List(ctx context.Context, actor rbac.Actor, includeInactive bool) ([]store.Helper, error) {
	return s.store.ListHelpers(ctx, actor, includeInactive)
}

// Nearby returns active helpers within radiusKm of a point, closest
// first. Radius clamping happens in the store.
func (s *Service) Nearby(ctx context.Context, actor rbac.Actor, lat, lng, radiusKm float64) ([]store.HelperMatch, error) {
	if !geo.ValidLatitude(lat) {
		return nil, apperr.Validation("latitude", "latitude out of range")
	}
	if !geo.ValidLongitude(lng) {
		return nil, apperr.Validation("longitude", "longitude out of range")
	}
	return s.store.NearbyHelpers(ctx, actor, lat, lng, radiusKm)
}

func helperFromInput(in HelperInput) (*store.Helper, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name", "name required")
	}
	if len([]rune(name)) > dispatch.NameCap {
		return nil, apperr.Validation("name", "name too long")
	}
	if !dispatch.ValidPhone(in.Mobile) {
		return nil, apperr.Validation("mobile", "mobile must carry 6 to 15 digits")
	}
	role, ok := store.ParseHelperRole(in.Role)
	if !ok {
		return nil, apperr.Validation("role", "unknown helper role")
	}
	if !geo.ValidLatitude(in.Latitude) {
		return nil, apperr.Validation("latitude", "latitude out of range")
	}
	if !geo.ValidLongitude(in.Longitude) {
		return nil, apperr.Validation("longitude", "longitude out of range")
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return &store.Helper{
		Name:      name,
		Mobile:    strings.TrimSpace(in.Mobile),
		Role:      role,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		IsActive:  active,
	}, nil
}
