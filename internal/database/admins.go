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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"piron-pools-go/internal/models"
	"piron-pools-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func scanAdmin(row rowScanner) (*models.Admin, error) {
	var admin models.Admin
	err := row.Scan(&admin.Id, &admin.ClerkId, &admin.Email, &admin.Name, &admin.Role,
		&admin.IsActive, &admin.CreatedBy, &admin.CreatedAt, &admin.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (s *Service) CountAdmins(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, queryCountAdmins).Scan(&count); err != nil {
		return 0, fmt.Errorf("unable to count admins: %w", err)
	}
	return count, nil
}

// CreateFirstAdmin inserts the bootstrap SUPER_ADMIN. The emptiness check and the
// insert share one transaction so two concurrent bootstraps cannot both succeed.
func (s *Service) CreateFirstAdmin(ctx context.Context, clerkId, email, name string) (*models.Admin, error) {
	adminId := uuid.New().String()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		exists, err := adminExists(ctx, tx, clerkId)
		if err != nil {
			return fmt.Errorf("unable to check admin for clerk id: %w", err)
		}
		if exists {
			return fmt.Errorf("clerk id %s is already an admin: %w", clerkId, store.ErrConflict)
		}

		var count int
		if err := tx.QueryRowContext(ctx, queryCountAdmins).Scan(&count); err != nil {
			return fmt.Errorf("unable to count admins: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("%d admin(s) present: %w", count, store.ErrAdminsExist)
		}

		return insertAdmin(ctx, tx, adminId, clerkId, email, name, models.RoleSuperAdmin, "")
	})
	if err != nil {
		return nil, err
	}

	zap.L().Warn("Bootstrap super admin created",
		zap.String("admin_id", adminId),
		zap.String("clerk_id", clerkId),
		zap.String("email", email))

	return s.GetAdminById(ctx, adminId)
}

func (s *Service) CreateAdmin(ctx context.Context, clerkId, email, name string, role models.AdminRole, createdBy string) (*models.Admin, error) {
	adminId := uuid.New().String()

	if err := insertAdmin(ctx, s.db, adminId, clerkId, email, name, role, createdBy); err != nil {
		return nil, err
	}

	zap.L().Info("Admin created",
		zap.String("admin_id", adminId),
		zap.String("email", email),
		zap.String("role", string(role)),
		zap.String("created_by", createdBy))

	return s.GetAdminById(ctx, adminId)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertAdmin(ctx context.Context, db execer, adminId, clerkId, email, name string, role models.AdminRole, createdBy string) error {
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, queryInsertAdmin,
		adminId, clerkId, strings.ToLower(strings.TrimSpace(email)), name, role, createdBy, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("admin with clerk id %q or email %q already exists: %w", clerkId, email, store.ErrConflict)
		}
		zap.L().Error("Failed to insert admin", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("unable to insert admin: %w", err)
	}
	return nil
}

func (s *Service) GetAdminById(ctx context.Context, adminId string) (*models.Admin, error) {
	admin, err := scanAdmin(s.db.QueryRowContext(ctx, queryGetAdminById, adminId))
	if err != nil {
		return nil, notFound(err, "admin", adminId)
	}
	return admin, nil
}

func (s *Service) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	admin, err := scanAdmin(s.db.QueryRowContext(ctx, queryGetAdminByEmail, strings.TrimSpace(email)))
	if err != nil {
		return nil, notFound(err, "admin with email", email)
	}
	return admin, nil
}

func (s *Service) GetAdminByClerkId(ctx context.Context, clerkId string) (*models.Admin, error) {
	admin, err := scanAdmin(s.db.QueryRowContext(ctx, queryGetAdminByClerkId, clerkId))
	if err != nil {
		return nil, notFound(err, "admin with clerk id", clerkId)
	}
	return admin, nil
}

func (s *Service) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	rows, err := s.db.QueryContext(ctx, queryListAdmins)
	if err != nil {
		return nil, fmt.Errorf("unable to query admins: %w", err)
	}
	defer closeRows(rows)

	var admins []models.Admin
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan admin row: %w", err)
		}
		admins = append(admins, *admin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admin rows: %w", err)
	}
	return admins, nil
}

func (s *Service) UpdateAdmin(ctx context.Context, adminId string, params store.UpdateAdminParams) (*models.Admin, error) {
	admin, err := s.GetAdminById(ctx, adminId)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		admin.Name = *params.Name
	}
	if params.Role != nil {
		admin.Role = *params.Role
	}
	if params.IsActive != nil {
		admin.IsActive = *params.IsActive
	}

	result, err := s.db.ExecContext(ctx, queryUpdateAdmin, admin.Name, admin.Role, admin.IsActive, time.Now().UTC(), adminId)
	if err != nil {
		return nil, fmt.Errorf("unable to update admin: %w", err)
	}
	if err := checkAffected(result, "admin", adminId); err != nil {
		return nil, err
	}

	zap.L().Info("Admin updated",
		zap.String("admin_id", adminId),
		zap.String("role", string(admin.Role)),
		zap.Bool("is_active", admin.IsActive))

	return s.GetAdminById(ctx, adminId)
}

func (s *Service) DeleteAdmin(ctx context.Context, adminId string) error {
	result, err := s.db.ExecContext(ctx, queryDeleteAdmin, adminId)
	if err != nil {
		return fmt.Errorf("unable to delete admin: %w", err)
	}
	if err := checkAffected(result, "admin", adminId); err != nil {
		return err
	}
	zap.L().Info("Admin deleted", zap.String("admin_id", adminId))
	return nil
}

// adminExists reports whether an admin row exists for the given clerk id.
func adminExists(ctx context.Context, tx *sql.Tx, clerkId string) (bool, error) {
	var id string
	err := tx.QueryRowContext(ctx, queryAdminIdByClerkId, clerkId).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
