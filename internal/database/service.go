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

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.PoolStore.
var _ store.PoolStore = (*Service)(nil)

// Settings written on first start when SEED_SYSTEM_SETTINGS is enabled.
var defaultSettings = []models.SystemSetting{
	{Key: "deposits_paused", Value: "false", Description: "Reject new deposit recordings while true"},
	{Key: "maintenance_mode", Value: "false", Description: "Show the maintenance banner in the app"},
	{Key: "support_email", Value: "support@piron.finance", Description: "Address shown when a deposit needs manual reconciliation"},
}

type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(ctx); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	if cfg.SeedSettings {
		if err := service.seedSettings(ctx); err != nil {
			closeQuietly(db)
			return nil, fmt.Errorf("unable to seed system settings: %w", err)
		}
	} else {
		zap.L().Info("Skipping system settings seed (SEED_SYSTEM_SETTINGS=false)")
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func closeQuietly(db *sql.DB) {
	if err := db.Close(); err != nil {
		zap.L().Warn("Failed to close database after init error", zap.Error(err))
	}
}

func (s *Service) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		clerk_id TEXT UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		wallet_address TEXT UNIQUE,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		id_type TEXT NOT NULL DEFAULT '',
		id_number TEXT NOT NULL DEFAULT '',
		date_of_birth TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		zip_code TEXT NOT NULL DEFAULT '',
		kyc_status TEXT NOT NULL DEFAULT 'NOT_STARTED',
		kyc_level TEXT NOT NULL DEFAULT 'NONE',
		investment_limit TEXT NOT NULL DEFAULT '0',
		rejection_reason TEXT NOT NULL DEFAULT '',
		kyc_submitted_at TIMESTAMP,
		kyc_reviewed_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	CREATE INDEX IF NOT EXISTS idx_users_kyc_status ON users(kyc_status);

	CREATE TABLE IF NOT EXISTS admins (
		id TEXT PRIMARY KEY,
		clerk_id TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pools (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		instrument_type TEXT NOT NULL,
		asset_symbol TEXT NOT NULL,
		asset_address TEXT NOT NULL DEFAULT '',
		pool_address TEXT NOT NULL DEFAULT '',
		manager_address TEXT NOT NULL DEFAULT '',
		escrow_address TEXT NOT NULL DEFAULT '',
		spv_address TEXT NOT NULL DEFAULT '',
		target_raise TEXT NOT NULL,
		total_raised TEXT NOT NULL DEFAULT '0',
		actual_invested TEXT NOT NULL DEFAULT '0',
		total_investors INTEGER NOT NULL DEFAULT 0,
		minimum_investment TEXT NOT NULL DEFAULT '0',
		discount_rate INTEGER NOT NULL DEFAULT 0,
		coupon_rates TEXT NOT NULL DEFAULT '[]',
		coupon_dates TEXT NOT NULL DEFAULT '[]',
		epoch_end_time TIMESTAMP NOT NULL,
		maturity_date TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		approval_status TEXT NOT NULL,
		risk_level TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL,
		last_synced_at TIMESTAMP,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pools_status ON pools(status);
	CREATE INDEX IF NOT EXISTS idx_pools_pool_address ON pools(pool_address);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		pool_id TEXT NOT NULL,
		type TEXT NOT NULL,
		amount TEXT NOT NULL,
		shares TEXT NOT NULL DEFAULT '0',
		tx_hash TEXT NOT NULL UNIQUE,
		block_number INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'CONFIRMED',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_pool_id ON transactions(pool_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_user_pool_type ON transactions(user_id, pool_id, type);
	CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at);

	CREATE TABLE IF NOT EXISTS admin_actions (
		id TEXT PRIMARY KEY,
		admin_id TEXT NOT NULL,
		action TEXT NOT NULL,
		target_id TEXT NOT NULL DEFAULT '',
		details TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_admin_actions_admin_id ON admin_actions(admin_id);
	CREATE INDEX IF NOT EXISTS idx_admin_actions_created_at ON admin_actions(created_at);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id, is_read);

	CREATE TABLE IF NOT EXISTS system_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		updated_by TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP NOT NULL
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Service) seedSettings(ctx context.Context) error {
	now := time.Now().UTC()
	for _, setting := range defaultSettings {
		result, err := s.db.ExecContext(ctx, querySeedSetting, setting.Key, setting.Value, setting.Description, now)
		if err != nil {
			return fmt.Errorf("unable to seed setting %s: %w", setting.Key, err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			zap.L().Info("Seeded system setting", zap.String("key", setting.Key), zap.String("value", setting.Value))
		}
	}
	return nil
}

// inTx runs fn inside a database transaction, committing on success.
// fn must only use the supplied *sql.Tx.
func (s *Service) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			zap.L().Warn("Failed to roll back transaction", zap.Error(err))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// notFound maps sql.ErrNoRows onto store.ErrNotFound.
func notFound(err error, what, key string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, key, store.ErrNotFound)
	}
	return fmt.Errorf("unable to query %s %s: %w", what, key, err)
}

// nullIfEmpty stores empty optional identifiers as NULL so UNIQUE ignores them.
func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func checkAffected(result sql.Result, what, key string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, key, store.ErrNotFound)
	}
	return nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		zap.L().Warn("Failed to close rows", zap.Error(err))
	}
}
