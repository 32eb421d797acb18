/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"piron-pools-go/internal/models"
	"piron-pools-go/internal/store"

	"go.uber.org/zap"
)

// AccessState is the outcome of the admin route guard.
type AccessState string

const (
	AccessUnauthenticated AccessState = "UNAUTHENTICATED"
	AccessBootstrap       AccessState = "BOOTSTRAP"
	AccessDenied          AccessState = "DENIED"
	AccessGranted         AccessState = "GRANTED"
)

// Access reports the guard state and, when granted, the admin record.
type Access struct {
	State AccessState   `json:"state"`
	Admin *models.Admin `json:"admin,omitempty"`
}

// CreateAdminRequest is the input of CreateAdmin
type CreateAdminRequest struct {
	ClerkId string           `json:"clerk_id" validate:"required,max=128"`
	Email   string           `json:"email" validate:"required,email"`
	Name    string           `json:"name" validate:"required,max=200"`
	Role    models.AdminRole `json:"role" validate:"required,oneof=ADMIN SUPER_ADMIN"`
}

// UpdateAdminRequest patches an admin; nil fields are unchanged
type UpdateAdminRequest struct {
	Name     *string           `json:"name" validate:"omitempty,min=1,max=200"`
	Role     *models.AdminRole `json:"role" validate:"omitempty,oneof=ADMIN SUPER_ADMIN"`
	IsActive *bool             `json:"is_active"`
}

func (s *Service) findAdmin(ctx context.Context, p *models.Principal) (*models.Admin, error) {
	if p.Email != "" {
		return s.dbService.GetAdminByEmail(ctx, p.Email)
	}
	return s.dbService.GetAdminByClerkId(ctx, p.ClerkId)
}

func signedIn(p *models.Principal) bool {
	return p != nil && (p.ClerkId != "" || p.Email != "")
}

// AccessState classifies the principal for the admin area. An empty admin table
// yields BOOTSTRAP only while bootstrap is enabled.
func (s *Service) AccessState(ctx context.Context, p *models.Principal) (*Access, error) {
	if !signedIn(p) {
		return &Access{State: AccessUnauthenticated}, nil
	}

	admin, err := s.findAdmin(ctx, p)
	switch {
	case err == nil && admin.IsActive:
		return &Access{State: AccessGranted, Admin: admin}, nil
	case err == nil:
		return &Access{State: AccessDenied}, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	if s.policy.AdminBootstrapEnabled {
		count, err := s.dbService.CountAdmins(ctx)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return &Access{State: AccessBootstrap}, nil
		}
	}
	return &Access{State: AccessDenied}, nil
}

// requireAdmin returns the active admin record for p.
func (s *Service) requireAdmin(ctx context.Context, p *models.Principal) (*models.Admin, error) {
	if !signedIn(p) {
		return nil, ErrUnauthorized
	}

	admin, err := s.findAdmin(ctx, p)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: not an admin", ErrForbidden)
		}
		return nil, err
	}
	if !admin.IsActive {
		return nil, fmt.Errorf("%w: admin %s is deactivated", ErrForbidden, admin.Email)
	}
	return admin, nil
}

func (s *Service) requireSuperAdmin(ctx context.Context, p *models.Principal) (*models.Admin, error) {
	admin, err := s.requireAdmin(ctx, p)
	if err != nil {
		return nil, err
	}
	if admin.Role != models.RoleSuperAdmin {
		return nil, fmt.Errorf("%w: super admin role required", ErrForbidden)
	}
	return admin, nil
}

// audit appends an admin action. Failures are logged, never returned.
func (s *Service) audit(ctx context.Context, actor *models.Admin, action, targetId string, details map[string]any) {
	if err := s.dbService.LogAdminAction(ctx, actor.Id, action, targetId, details); err != nil {
		zap.L().Error("Failed to write admin action",
			zap.String("admin_id", actor.Id),
			zap.String("action", action),
			zap.String("target_id", targetId),
			zap.Error(err))
	}
}

// CreateFirstAdmin turns the signed-in principal into the first SUPER_ADMIN.
func (s *Service) CreateFirstAdmin(ctx context.Context, p *models.Principal, name string) (*models.Admin, error) {
	if !signedIn(p) {
		return nil, ErrUnauthorized
	}
	if !s.policy.AdminBootstrapEnabled {
		return nil, ErrBootstrapClosed
	}
	if p.ClerkId == "" || p.Email == "" {
		return nil, invalidInput("bootstrap requires a subject and an email claim")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = p.Email
	}

	admin, err := s.dbService.CreateFirstAdmin(ctx, p.ClerkId, p.Email, name)
	if err != nil {
		if errors.Is(err, store.ErrAdminsExist) {
			return nil, fmt.Errorf("%w: %w", ErrBootstrapClosed, err)
		}
		return nil, err
	}

	s.audit(ctx, admin, "BOOTSTRAP_ADMIN", admin.Id, map[string]any{"email": admin.Email})
	return admin, nil
}

func (s *Service) CreateAdmin(ctx context.Context, p *models.Principal, req CreateAdminRequest) (*models.Admin, error) {
	actor, err := s.requireSuperAdmin(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}

	admin, err := s.dbService.CreateAdmin(ctx, req.ClerkId, req.Email, strings.TrimSpace(req.Name), req.Role, actor.Id)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, actor, "CREATE_ADMIN", admin.Id, map[string]any{"email": admin.Email, "role": admin.Role})
	return admin, nil
}

// UpdateAdmin patches another admin. Admins cannot demote or deactivate themselves.
func (s *Service) UpdateAdmin(ctx context.Context, p *models.Principal, adminId string, req UpdateAdminRequest) (*models.Admin, error) {
	actor, err := s.requireSuperAdmin(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}

	if actor.Id == adminId {
		if req.IsActive != nil && !*req.IsActive {
			return nil, fmt.Errorf("%w: admins cannot deactivate themselves", ErrForbidden)
		}
		if req.Role != nil && *req.Role != actor.Role {
			return nil, fmt.Errorf("%w: admins cannot change their own role", ErrForbidden)
		}
	}

	admin, err := s.dbService.UpdateAdmin(ctx, adminId, store.UpdateAdminParams{
		Name:     req.Name,
		Role:     req.Role,
		IsActive: req.IsActive,
	})
	if err != nil {
		return nil, err
	}

	details := map[string]any{}
	if req.Name != nil {
		details["name"] = *req.Name
	}
	if req.Role != nil {
		details["role"] = *req.Role
	}
	if req.IsActive != nil {
		details["is_active"] = *req.IsActive
	}
	s.audit(ctx, actor, "UPDATE_ADMIN", adminId, details)
	return admin, nil
}

// DeleteAdmin removes an admin. Self-deletion is refused for every role.
func (s *Service) DeleteAdmin(ctx context.Context, p *models.Principal, adminId string) error {
	actor, err := s.requireAdmin(ctx, p)
	if err != nil {
		return err
	}
	if actor.Id == adminId {
		return ErrSelfDelete
	}
	if actor.Role != models.RoleSuperAdmin {
		return fmt.Errorf("%w: super admin role required", ErrForbidden)
	}

	target, err := s.dbService.GetAdminById(ctx, adminId)
	if err != nil {
		return err
	}
	if err := s.dbService.DeleteAdmin(ctx, adminId); err != nil {
		return err
	}

	s.audit(ctx, actor, "DELETE_ADMIN", adminId, map[string]any{"email": target.Email, "role": target.Role})
	return nil
}

func (s *Service) ListAdmins(ctx context.Context, p *models.Principal) ([]models.Admin, error) {
	if _, err := s.requireAdmin(ctx, p); err != nil {
		return nil, err
	}
	return s.dbService.ListAdmins(ctx)
}

// ListAdminActions returns the audit log, optionally for a single admin.
func (s *Service) ListAdminActions(ctx context.Context, p *models.Principal, adminId string, limit int) ([]models.AdminAction, error) {
	if _, err := s.requireAdmin(ctx, p); err != nil {
		return nil, err
	}
	return s.dbService.ListAdminActions(ctx, adminId, clampLimit(limit))
}
