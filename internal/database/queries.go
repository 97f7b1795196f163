package database

const (
	// Record store queries
	queryGetRecord = `
		SELECT key, kind, body, version, created_at, updated_at
		FROM records
		WHERE key = ?`

	queryListRecordsByKind = `
		SELECT key, kind, body, version, created_at, updated_at
		FROM records
		WHERE kind = ?
		ORDER BY key`

	queryInsertRecord = `
		INSERT OR IGNORE INTO records (key, kind, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`

	queryUpdateRecord = `
		UPDATE records
		SET body = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE key = ? AND version = ?`

	// Token ledger queries
	queryGetTokenBalance = `
		SELECT balance, version
		FROM token_balances
		WHERE user_id = ?`

	queryInsertTokenBalance = `
		INSERT INTO token_balances (user_id, balance, version)
		VALUES (?, ?, ?)`

	queryUpdateTokenBalance = `
		UPDATE token_balances
		SET balance = ?, last_transaction_id = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND version = ?`

	queryCheckDuplicateTokenTransaction = `
		SELECT id FROM token_transactions WHERE reference = ? LIMIT 1`

	queryInsertTokenTransaction = `
		INSERT INTO token_transactions (
			id, user_id, transaction_type, amount, balance_before, balance_after,
			reference, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
)
