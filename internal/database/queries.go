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

const (
	userColumns = `id, clerk_id, email, wallet_address, first_name, last_name, id_type, id_number,
		date_of_birth, country, city, address, zip_code, kyc_status, kyc_level, investment_limit,
		rejection_reason, kyc_submitted_at, kyc_reviewed_at, created_at, updated_at`

	adminColumns = `id, clerk_id, email, name, role, is_active, created_by, created_at, updated_at`

	poolColumns = `id, name, description, instrument_type, asset_symbol, asset_address, pool_address,
		manager_address, escrow_address, spv_address, target_raise, total_raised, actual_invested,
		total_investors, minimum_investment, discount_rate, coupon_rates, coupon_dates,
		epoch_end_time, maturity_date, status, approval_status, risk_level, created_by,
		last_synced_at, version, created_at, updated_at`

	transactionColumns = `id, user_id, pool_id, type, amount, shares, tx_hash, block_number, status, created_at`

	// User queries
	queryInsertUser = `
		INSERT INTO users (id, clerk_id, email, wallet_address, kyc_status, kyc_level, investment_limit, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetUserById = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	queryGetUserByClerkId = `SELECT ` + userColumns + ` FROM users WHERE clerk_id = ?`

	queryGetUserByWallet = `SELECT ` + userColumns + ` FROM users WHERE wallet_address = ?`

	queryListUsers = `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT ? OFFSET ?`

	querySetUserWallet = `
		UPDATE users SET wallet_address = ?, updated_at = ?
		WHERE id = ?`

	queryUpdateUserKyc = `
		UPDATE users SET
			first_name = ?, last_name = ?, id_type = ?, id_number = ?, date_of_birth = ?,
			country = ?, city = ?, address = ?, zip_code = ?,
			kyc_status = ?, kyc_level = ?, investment_limit = ?, rejection_reason = ?,
			kyc_submitted_at = COALESCE(?, kyc_submitted_at),
			kyc_reviewed_at = COALESCE(?, kyc_reviewed_at),
			updated_at = ?
		WHERE id = ?`

	queryDeleteUser = `DELETE FROM users WHERE id = ?`

	// Admin queries
	queryCountAdmins = `SELECT COUNT(1) FROM admins`

	queryInsertAdmin = `
		INSERT INTO admins (id, clerk_id, email, name, role, is_active, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?)`

	queryGetAdminById = `SELECT ` + adminColumns + ` FROM admins WHERE id = ?`

	queryGetAdminByEmail = `SELECT ` + adminColumns + ` FROM admins WHERE email = LOWER(?)`

	queryGetAdminByClerkId = `SELECT ` + adminColumns + ` FROM admins WHERE clerk_id = ?`

	queryAdminIdByClerkId = `SELECT id FROM admins WHERE clerk_id = ?`

	queryListAdmins = `SELECT ` + adminColumns + ` FROM admins ORDER BY created_at`

	queryUpdateAdmin = `
		UPDATE admins SET name = ?, role = ?, is_active = ?, updated_at = ?
		WHERE id = ?`

	queryDeleteAdmin = `DELETE FROM admins WHERE id = ?`

	// Pool queries
	queryInsertPool = `
		INSERT INTO pools (
			id, name, description, instrument_type, asset_symbol, asset_address, pool_address,
			manager_address, escrow_address, spv_address, target_raise, total_raised, actual_invested,
			total_investors, minimum_investment, discount_rate, coupon_rates, coupon_dates,
			epoch_end_time, maturity_date, status, approval_status, risk_level, created_by,
			version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '0', '0', 0, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`

	queryGetPool = `SELECT ` + poolColumns + ` FROM pools WHERE id = ?`

	queryGetPoolByAddress = `SELECT ` + poolColumns + ` FROM pools WHERE pool_address = LOWER(?)`

	queryListPools = `SELECT ` + poolColumns + ` FROM pools ORDER BY created_at DESC`

	queryListPoolsByStatus = `SELECT ` + poolColumns + ` FROM pools WHERE status = ? ORDER BY created_at DESC`

	queryUpdatePoolStatus = `
		UPDATE pools SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ?`

	queryUpdatePoolApproval = `
		UPDATE pools SET approval_status = ?, version = version + 1, updated_at = ?
		WHERE id = ?`

	querySyncPool = `
		UPDATE pools SET
			total_raised = ?, total_investors = ?, actual_invested = ?,
			status = COALESCE(?, status), last_synced_at = ?,
			version = version + 1, updated_at = ?
		WHERE id = ?`

	queryGetPoolCounters = `
		SELECT total_raised, total_investors, version
		FROM pools
		WHERE id = ?`

	queryUpdatePoolCounters = `
		UPDATE pools
		SET total_raised = ?, total_investors = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	queryDeletePool = `DELETE FROM pools WHERE id = ?`

	// Transaction queries
	queryCheckDuplicateTransaction = `
		SELECT id FROM transactions WHERE tx_hash = ? LIMIT 1`

	queryCountUserPoolDeposits = `
		SELECT COUNT(1) FROM transactions
		WHERE user_id = ? AND pool_id = ? AND type = 'DEPOSIT'`

	queryInsertTransaction = `
		INSERT INTO transactions (id, user_id, pool_id, type, amount, shares, tx_hash, block_number, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetTransactionByHash = `SELECT ` + transactionColumns + ` FROM transactions WHERE tx_hash = ?`

	queryGetUserTransactions = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	queryGetPoolTransactions = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE pool_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	// Audit queries
	queryInsertAdminAction = `
		INSERT INTO admin_actions (id, admin_id, action, target_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryListAdminActions = `
		SELECT id, admin_id, action, target_id, details, created_at
		FROM admin_actions
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`

	queryListAdminActionsByAdmin = `
		SELECT id, admin_id, action, target_id, details, created_at
		FROM admin_actions
		WHERE admin_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`

	// Notification queries
	queryInsertNotification = `
		INSERT INTO notifications (id, user_id, type, title, message, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)`

	queryListNotifications = `
		SELECT id, user_id, type, title, message, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`

	queryMarkNotificationRead = `
		UPDATE notifications SET is_read = 1
		WHERE id = ? AND user_id = ?`

	queryMarkAllNotificationsRead = `
		UPDATE notifications SET is_read = 1
		WHERE user_id = ? AND is_read = 0`

	// Setting queries
	queryGetSetting = `
		SELECT key, value, description, updated_by, updated_at
		FROM system_settings
		WHERE key = ?`

	queryListSettings = `
		SELECT key, value, description, updated_by, updated_at
		FROM system_settings
		ORDER BY key`

	queryUpsertSetting = `
		INSERT INTO system_settings (key, value, description, updated_by, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			description = CASE WHEN excluded.description = '' THEN system_settings.description ELSE excluded.description END,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at`

	querySeedSetting = `
		INSERT OR IGNORE INTO system_settings (key, value, description, updated_by, updated_at)
		VALUES (?, ?, ?, 'system', ?)`
)
