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

// schemaStatements run one at a time; TIMESTAMP becomes TIMESTAMPTZ on PostgreSQL.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE,
		wallet_address TEXT UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		phone_number TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		is_verified BOOLEAN NOT NULL DEFAULT FALSE,
		kyc_status TEXT NOT NULL DEFAULT 'pending',
		plan TEXT NOT NULL DEFAULT 'free',
		billing_cycle TEXT NOT NULL DEFAULT '',
		subscription_start TIMESTAMP,
		subscription_end TIMESTAMP,
		subscription_active BOOLEAN NOT NULL DEFAULT FALSE,
		payment_ref TEXT NOT NULL DEFAULT '',
		total_invested NUMERIC NOT NULL DEFAULT 0,
		total_earned NUMERIC NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		CHECK (email IS NOT NULL OR wallet_address IS NOT NULL)
	)`,

	`CREATE TABLE IF NOT EXISTS kyc_verifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		inquiry_id TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_kyc_verifications_user_id ON kyc_verifications(user_id)`,

	`CREATE TABLE IF NOT EXISTS deals (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		apy NUMERIC NOT NULL,
		term_months INTEGER NOT NULL,
		min_investment NUMERIC NOT NULL,
		target_amount NUMERIC NOT NULL,
		current_raised NUMERIC NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'draft',
		underlying_asset TEXT NOT NULL DEFAULT '',
		asset_class TEXT NOT NULL DEFAULT 'other',
		geography TEXT NOT NULL DEFAULT '',
		risk_rating TEXT NOT NULL DEFAULT 'medium',
		issuer TEXT NOT NULL DEFAULT '',
		issuer_rating TEXT NOT NULL DEFAULT '',
		total_earnings_distributed NUMERIC NOT NULL DEFAULT 0,
		start_date TIMESTAMP,
		maturity_date TIMESTAMP,
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		CHECK (current_raised >= 0 AND current_raised <= target_amount)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_deals_status ON deals(status)`,
	`CREATE INDEX IF NOT EXISTS idx_deals_asset_class ON deals(asset_class)`,

	`CREATE TABLE IF NOT EXISTS positions (
		id TEXT PRIMARY KEY,
		deal_id TEXT NOT NULL REFERENCES deals(id),
		user_id TEXT NOT NULL,
		seq BIGINT NOT NULL,
		amount NUMERIC NOT NULL,
		earnings_accrued NUMERIC NOT NULL DEFAULT 0,
		external_ref TEXT NOT NULL DEFAULT '',
		investment_date TIMESTAMP NOT NULL,
		UNIQUE (deal_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_positions_user_id ON positions(user_id)`,

	`CREATE TABLE IF NOT EXISTS vaults (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		strategy TEXT NOT NULL,
		total_deposited NUMERIC NOT NULL DEFAULT 0,
		current_balance NUMERIC NOT NULL DEFAULT 0,
		yield_accrued NUMERIC NOT NULL DEFAULT 0,
		rebalance_schedule TEXT NOT NULL DEFAULT 'quarterly',
		last_rebalance TIMESTAMP,
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		CHECK (current_balance >= 0)
	)`,

	`CREATE TABLE IF NOT EXISTS vault_transactions (
		id TEXT PRIMARY KEY,
		vault_id TEXT NOT NULL REFERENCES vaults(id),
		user_id TEXT NOT NULL,
		seq BIGINT NOT NULL,
		type TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		balance_before NUMERIC NOT NULL,
		balance_after NUMERIC NOT NULL,
		external_ref TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		settlement_ref TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		settled_at TIMESTAMP,
		UNIQUE (vault_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vault_transactions_status ON vault_transactions(type, status)`,

	// Double-entry bookkeeping
	`CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL,
		account_type TEXT NOT NULL,
		account_id TEXT NOT NULL,
		debit_amount NUMERIC NOT NULL DEFAULT 0,
		credit_amount NUMERIC NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_journal_transaction_id ON journal_entries(transaction_id)`,
	`CREATE INDEX IF NOT EXISTS idx_journal_account ON journal_entries(account_type, account_id)`,
}

const (
	userColumns = `id, email, wallet_address, password_hash, first_name, last_name, phone_number, country,
		is_verified, kyc_status, plan, billing_cycle, subscription_start, subscription_end,
		subscription_active, payment_ref, total_invested, total_earned, created_at, updated_at`

	// User queries
	queryInsertUser = `
		INSERT INTO users (id, email, wallet_address, password_hash, first_name, last_name, phone_number,
			country, is_verified, kyc_status, plan, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetUsers = `SELECT ` + userColumns + ` FROM users ORDER BY created_at`

	queryGetUserById = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	queryGetUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = ?`

	queryGetUserByWallet = `SELECT ` + userColumns + ` FROM users WHERE wallet_address = ?`

	queryUpdateProfile = `
		UPDATE users
		SET first_name = COALESCE(?, first_name),
		    last_name = COALESCE(?, last_name),
		    phone_number = COALESCE(?, phone_number),
		    country = COALESCE(?, country),
		    updated_at = ?
		WHERE id = ?`

	queryUpdateKycStatus = `
		UPDATE users SET kyc_status = ?, is_verified = ?, updated_at = ? WHERE id = ?`

	queryUpdateSubscription = `
		UPDATE users
		SET plan = ?, billing_cycle = ?, subscription_start = ?, subscription_end = ?,
		    subscription_active = ?, payment_ref = ?, updated_at = ?
		WHERE id = ?`

	queryAddUserInvested = `
		UPDATE users SET total_invested = total_invested + ?, updated_at = ? WHERE id = ?`

	queryAddUserEarned = `
		UPDATE users SET total_earned = total_earned + ?, updated_at = ? WHERE id = ?`

	// KYC queries
	kycColumns = `id, user_id, inquiry_id, email, status, created_at, updated_at`

	queryInsertVerification = `
		INSERT INTO kyc_verifications (` + kycColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryGetVerification = `SELECT ` + kycColumns + ` FROM kyc_verifications WHERE id = ?`

	queryGetVerificationByInquiry = `SELECT ` + kycColumns + ` FROM kyc_verifications WHERE inquiry_id = ?`

	queryUpdateVerificationStatus = `
		UPDATE kyc_verifications SET status = ?, updated_at = ? WHERE id = ?`

	// Deal queries
	dealColumns = `id, title, description, apy, term_months, min_investment, target_amount, current_raised,
		status, underlying_asset, asset_class, geography, risk_rating, issuer, issuer_rating,
		total_earnings_distributed, start_date, maturity_date, version, created_at, updated_at`

	queryInsertDeal = `
		INSERT INTO deals (` + dealColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetDeal = `SELECT ` + dealColumns + ` FROM deals WHERE id = ?`

	queryListDeals = `SELECT ` + dealColumns + ` FROM deals`

	queryUpdateDealRaised = `
		UPDATE deals
		SET current_raised = ?, status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	queryInsertPosition = `
		INSERT INTO positions (id, deal_id, user_id, seq, amount, earnings_accrued, external_ref, investment_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetDealPositions = `
		SELECT id, deal_id, user_id, amount, earnings_accrued, external_ref, investment_date
		FROM positions
		WHERE deal_id = ?
		ORDER BY seq`

	queryGetUserInvestments = `
		SELECT p.id, d.id, d.title, d.asset_class, d.risk_rating, d.apy, d.status,
		       p.amount, p.earnings_accrued, p.investment_date
		FROM positions p
		JOIN deals d ON d.id = p.deal_id
		WHERE p.user_id = ?
		ORDER BY p.investment_date DESC`

	querySumPositions = `
		SELECT COALESCE(SUM(amount), 0) FROM positions WHERE deal_id = ?`

	// Vault queries
	vaultColumns = `id, user_id, strategy, total_deposited, current_balance, yield_accrued,
		rebalance_schedule, last_rebalance, version, created_at, updated_at`

	queryGetVault = `SELECT ` + vaultColumns + ` FROM vaults WHERE user_id = ?`

	queryListVaults = `SELECT ` + vaultColumns + ` FROM vaults ORDER BY created_at`

	queryInsertVault = `
		INSERT INTO vaults (id, user_id, strategy, total_deposited, current_balance, yield_accrued,
			rebalance_schedule, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (user_id) DO NOTHING`

	queryUpdateVault = `
		UPDATE vaults
		SET strategy = ?, total_deposited = ?, current_balance = ?, yield_accrued = ?,
		    version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	vaultTxColumns = `id, vault_id, user_id, type, amount, balance_before, balance_after,
		external_ref, status, settlement_ref, created_at, settled_at`

	queryInsertVaultTransaction = `
		INSERT INTO vault_transactions (id, vault_id, user_id, seq, type, amount, balance_before, balance_after,
			external_ref, status, settlement_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetVaultTransactions = `
		SELECT ` + vaultTxColumns + `
		FROM vault_transactions
		WHERE vault_id = ?
		ORDER BY seq`

	queryGetVaultTransaction = `SELECT ` + vaultTxColumns + ` FROM vault_transactions WHERE id = ?`

	queryGetPendingWithdrawals = `
		SELECT ` + vaultTxColumns + `
		FROM vault_transactions
		WHERE type = 'withdrawal' AND status = 'pending'
		ORDER BY created_at
		LIMIT ?`

	queryUpdateTransactionStatus = `
		UPDATE vault_transactions
		SET status = ?, settlement_ref = ?, settled_at = ?
		WHERE id = ? AND status = ?`

	// Signed sum of history; rebalances move no money.
	queryReconcileVault = `
		SELECT COALESCE(SUM(CASE
			WHEN type = 'withdrawal' THEN -amount
			WHEN type = 'rebalance' THEN 0
			ELSE amount END), 0)
		FROM vault_transactions
		WHERE vault_id = ?`

	queryInsertJournalEntry = `
		INSERT INTO journal_entries (id, transaction_id, account_type, account_id, debit_amount, credit_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryJournalTotals = `
		SELECT COALESCE(SUM(debit_amount), 0), COALESCE(SUM(credit_amount), 0) FROM journal_entries`
)
