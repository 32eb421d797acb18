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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"regexp"
	"strings"

	"piron-pools-go/internal/common"
	"piron-pools-go/internal/config"
	"piron-pools-go/internal/database"
	"piron-pools-go/internal/models"
	"piron-pools-go/internal/store"

	"go.uber.org/zap"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

func parseRole(role string) (models.AdminRole, error) {
	switch models.AdminRole(strings.ToUpper(role)) {
	case models.RoleAdmin:
		return models.RoleAdmin, nil
	case models.RoleSuperAdmin:
		return models.RoleSuperAdmin, nil
	default:
		return "", fmt.Errorf("role must be ADMIN or SUPER_ADMIN, got %q", role)
	}
}

// createAdmin bootstraps the first super admin on an empty table and adds a
// regular admin otherwise.
func createAdmin(ctx context.Context, dbService *database.Service, clerkId, email, name string, role models.AdminRole) (*models.Admin, bool, error) {
	count, err := dbService.CountAdmins(ctx)
	if err != nil {
		return nil, false, err
	}

	if count == 0 {
		admin, err := dbService.CreateFirstAdmin(ctx, clerkId, email, name)
		return admin, true, err
	}

	admin, err := dbService.CreateAdmin(ctx, clerkId, email, name, role, "cli")
	if err != nil {
		return nil, false, err
	}
	if err := dbService.LogAdminAction(ctx, admin.Id, "admin.create", admin.Id, map[string]any{
		"source": "cli",
		"role":   string(role),
	}); err != nil {
		zap.L().Warn("Failed to write audit entry", zap.Error(err))
	}
	return admin, false, nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	nameFlag := flag.String("name", "", "Admin's display name (required)")
	emailFlag := flag.String("email", "", "Admin's email address (required)")
	clerkIdFlag := flag.String("clerk-id", "", "Identity provider user id (required)")
	roleFlag := flag.String("role", string(models.RoleAdmin), "ADMIN or SUPER_ADMIN (ignored for the first admin)")
	flag.Parse()

	if *nameFlag == "" || *emailFlag == "" || *clerkIdFlag == "" {
		zap.L().Fatal("All flags are required: --name, --email and --clerk-id")
	}
	if err := validateName(*nameFlag); err != nil {
		zap.L().Fatal("Invalid name", zap.Error(err))
	}
	if err := validateEmail(*emailFlag); err != nil {
		zap.L().Fatal("Invalid email", zap.Error(err))
	}
	role, err := parseRole(*roleFlag)
	if err != nil {
		zap.L().Fatal("Invalid role", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	admin, bootstrapped, err := createAdmin(ctx, dbService, *clerkIdFlag, *emailFlag, *nameFlag, role)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			zap.L().Fatal("Admin already exists with this clerk id or email",
				zap.String("clerk_id", *clerkIdFlag),
				zap.String("email", *emailFlag))
		}
		zap.L().Fatal("Failed to create admin", zap.Error(err))
	}

	fmt.Println()
	common.PrintHeader("ADMIN CREATED", common.DefaultWidth)
	fmt.Printf("ID:       %s\n", admin.Id)
	fmt.Printf("Name:     %s\n", admin.Name)
	fmt.Printf("Email:    %s\n", admin.Email)
	fmt.Printf("Clerk ID: %s\n", admin.ClerkId)
	fmt.Printf("Role:     %s\n", admin.Role)
	common.PrintSeparator("=", common.DefaultWidth)
	if bootstrapped {
		fmt.Println("\nNo admins existed: account bootstrapped as SUPER_ADMIN")
	}
	fmt.Println()

	zap.L().Info("Admin created successfully",
		zap.String("id", admin.Id),
		zap.String("role", string(admin.Role)),
		zap.Bool("bootstrap", bootstrapped))
}
