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
	querySchema = `
	CREATE TABLE IF NOT EXISTS mints (
		id TEXT PRIMARY KEY,
		batch_id TEXT NOT NULL DEFAULT '',
		batch_index INTEGER NOT NULL DEFAULT 0,
		recipient TEXT NOT NULL,
		currency TEXT NOT NULL,
		issuer TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('validated', 'failed', 'rejected', 'pending')),
		tx_hash TEXT NOT NULL UNIQUE,
		ledger_index INTEGER NOT NULL DEFAULT 0,
		last_ledger_sequence INTEGER NOT NULL DEFAULT 0,
		result_code TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_mints_recipient ON mints(recipient, created_at);
	CREATE INDEX IF NOT EXISTS idx_mints_status ON mints(status);
	CREATE INDEX IF NOT EXISTS idx_mints_batch ON mints(batch_id, batch_index);
	`

	// Only a pending row may be overwritten; final outcomes are immutable.
	queryUpsertMint = `
		INSERT INTO mints (
			id, batch_id, batch_index, recipient, currency, issuer, amount, status, tx_hash,
			ledger_index, last_ledger_sequence, result_code, error_message, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tx_hash) DO UPDATE SET
			status = excluded.status,
			ledger_index = excluded.ledger_index,
			result_code = excluded.result_code,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at
		WHERE mints.status = 'pending'`

	queryResolveMint = `
		UPDATE mints
		SET status = ?, ledger_index = ?, result_code = ?, error_message = ?, updated_at = ?
		WHERE tx_hash = ? AND status = 'pending'`

	queryGetMintStatus = `
		SELECT status FROM mints WHERE tx_hash = ?`

	queryListPendingMints = `
		SELECT id, batch_id, batch_index, recipient, currency, issuer, amount, status, tx_hash,
		       ledger_index, last_ledger_sequence, result_code, error_message, created_at, updated_at
		FROM mints
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT ?`

	queryGetMintHistory = `
		SELECT id, batch_id, batch_index, recipient, currency, issuer, amount, status, tx_hash,
		       ledger_index, last_ledger_sequence, result_code, error_message, created_at, updated_at
		FROM mints
		WHERE (? = '' OR recipient = ?)
		ORDER BY created_at DESC, batch_index DESC
		LIMIT ? OFFSET ?`

	// Amounts are summed in Go; SQLite would round them through REAL.
	queryValidatedAmounts = `
		SELECT recipient, currency, amount
		FROM mints
		WHERE status = 'validated'
		ORDER BY recipient, currency`
)
