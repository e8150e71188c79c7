// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package ledger

import (
	"context"
	"errors"
	"os/user"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/briarcliff-tax/ukcgt/cgt"
	"github.com/briarcliff-tax/ukcgt/healthcheck"
)

// ImportBatch is one broker export ingested into a Portfolio. An import
// is a one-shot event — there is no schedule to enable or disable, only
// a record of what was imported and when, kept so a bad import can be
// excluded from recomputation without deleting the underlying
// transactions.
type ImportBatch struct {
	ID         uuid.UUID         `db:"id"`
	Broker     string            `db:"broker"`
	SourceFile string            `db:"source_file"`
	Config     map[string]string `db:"config"`

	TotalTransactions         int64 `db:"total_transactions"`
	NumTransactionsLastImport int64 `db:"num_transactions_last_import"`

	FirstTransactionDate time.Time `db:"first_transaction_date"`
	LastTransactionDate  time.Time `db:"last_transaction_date"`

	HealthCheckID string `db:"health_check_id"`
	Active        bool   `db:"active"`
	SchemaVersion int    `db:"schema_version"`

	CreatedOn time.Time `db:"created_on"`
	CreatedBy string    `db:"created_by"`

	Portfolio *Portfolio `db:"-"`
}

// Delete removes the import batch and every transaction it contributed,
// then removes any associated health check.
func (b *ImportBatch) Delete(ctx context.Context) error {
	conn, err := b.Portfolio.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer rollback(ctx, tx)

	if _, err := tx.Exec(ctx, "DELETE FROM transactions WHERE import_batch_id=$1", b.ID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM import_batches WHERE id=$1", b.ID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if b.HealthCheckID != "" {
		return healthcheck.Delete(b.HealthCheckID)
	}
	return nil
}

// Activate marks the batch active, so its transactions participate in
// future engine runs and aggregate reports.
func (b *ImportBatch) Activate(ctx context.Context) error {
	if err := b.setActive(ctx, true); err != nil {
		return err
	}
	if b.HealthCheckID != "" {
		return healthcheck.Resume(b.HealthCheckID)
	}
	return nil
}

// Deactivate excludes the batch's transactions from future engine runs
// without deleting them — useful when a duplicate or erroneous import
// needs to be set aside pending investigation.
func (b *ImportBatch) Deactivate(ctx context.Context) error {
	if err := b.setActive(ctx, false); err != nil {
		return err
	}
	if b.HealthCheckID != "" {
		return healthcheck.Pause(b.HealthCheckID)
	}
	return nil
}

func (b *ImportBatch) setActive(ctx context.Context, active bool) error {
	conn, err := b.Portfolio.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, "UPDATE import_batches SET active=$1 WHERE id=$2", active, b.ID)
	if err == nil {
		b.Active = active
	}
	return err
}

// Save inserts the batch's own row. Call it once, before SaveTransactions.
func (b *ImportBatch) Save(ctx context.Context) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.Active = true

	if u, err := user.Current(); err == nil {
		b.CreatedBy = u.Username
	}

	conn, err := b.Portfolio.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `INSERT INTO import_batches
("id", "portfolio_id", "broker", "source_file", "config", "health_check_id", "schema_version", "created_by")
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.Portfolio.ID, b.Broker, b.SourceFile, b.Config, b.HealthCheckID, b.SchemaVersion, b.CreatedBy)
	return err
}

// SaveTransactions persists the imported transactions and updates the
// batch's transaction-count bookkeeping columns.
func (b *ImportBatch) SaveTransactions(ctx context.Context, txs []cgt.Transaction) error {
	conn, err := b.Portfolio.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer rollback(ctx, tx)

	for _, t := range txs {
		if _, err := tx.Exec(ctx, `INSERT INTO transactions
("id", "import_batch_id", "symbol", "kind", "date", "quantity", "price", "total", "fee", "currency", "source", "parse_seq")
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT ("id") DO NOTHING`,
			t.ID, b.ID, t.Symbol, string(t.Kind), t.Date, t.Quantity, t.Price, t.Total, t.Fee, t.Currency, t.Source, t.ParseSeq); err != nil {
			log.Error().Err(err).Str("TransactionID", t.ID).Msg("save transaction failed")
			return err
		}
	}

	var first, last time.Time
	for _, t := range txs {
		if first.IsZero() || t.Date.Before(first) {
			first = t.Date
		}
		if t.Date.After(last) {
			last = t.Date
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE import_batches SET
total_transactions = total_transactions + $1,
num_transactions_last_import = $1,
first_transaction_date = LEAST(coalesce(first_transaction_date, $2), $2),
last_transaction_date = GREATEST(coalesce(last_transaction_date, $3), $3)
WHERE id=$4`, len(txs), first, last, b.ID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		log.Error().Err(err).Msg("error rolling back tx")
	}
}
