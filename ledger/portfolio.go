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

// Package ledger persists the CGT domain objects — portfolios, import
// batches, transactions, disposal records, pool history, and tax-year
// summaries — to Postgres.
package ledger

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Portfolio is the top-level ledger a user's broker exports are imported
// into. It owns zero or more ImportBatches.
type Portfolio struct {
	ID    uuid.UUID
	DBUrl string
	Name  string
	Owner string

	Pool *pgxpool.Pool
}

// Connect opens the Postgres connection pool for the portfolio, if it is
// not already open.
func (p *Portfolio) Connect(ctx context.Context) error {
	if p.Pool != nil {
		return nil
	}

	pool, err := pgxpool.New(ctx, p.DBUrl)
	if err != nil {
		return err
	}
	p.Pool = pool
	return nil
}

// Close releases the database connection pool.
func (p *Portfolio) Close() {
	p.Pool.Close()
}

// NewFromDB loads the single portfolio row configured for this database.
func NewFromDB(ctx context.Context, dbURL string) (*Portfolio, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	p := Portfolio{DBUrl: dbURL, Pool: pool}
	err = conn.QueryRow(ctx, "SELECT id, name, owner FROM portfolios LIMIT 1").
		Scan(&p.ID, &p.Name, &p.Owner)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// SaveDB creates the portfolio's row.
func (p *Portfolio) SaveDB(ctx context.Context) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	conn, err := p.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `INSERT INTO portfolios ("id", "name", "owner") VALUES ($1, $2, $3)`,
		p.ID, p.Name, p.Owner)
	return err
}

// NumImportBatches returns the count of active import batches.
func (p *Portfolio) NumImportBatches(ctx context.Context) (int, error) {
	conn, err := p.Pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	count := 0
	err = conn.QueryRow(ctx, "SELECT count(*) FROM import_batches WHERE portfolio_id=$1 AND active='t'", p.ID).Scan(&count)
	return count, err
}

// TotalTransactions returns the total number of imported transactions
// across every active import batch.
func (p *Portfolio) TotalTransactions(ctx context.Context) (int64, error) {
	conn, err := p.Pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	var count int64
	err = conn.QueryRow(ctx, `SELECT coalesce(sum(total_transactions), 0) FROM import_batches
WHERE portfolio_id=$1 AND active='t'`, p.ID).Scan(&count)
	return count, err
}

// TotalSymbols returns the number of distinct canonical symbols traded
// across the transactions of the portfolio's active import batches.
func (p *Portfolio) TotalSymbols(ctx context.Context) (int, error) {
	conn, err := p.Pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	count := 0
	err = conn.QueryRow(ctx, `SELECT count(DISTINCT t.symbol) FROM transactions t
JOIN import_batches b ON b.id = t.import_batch_id
WHERE b.portfolio_id=$1 AND b.active='t'`, p.ID).Scan(&count)
	return count, err
}

// LastImported returns the most recent active import batch's creation
// time.
func (p *Portfolio) LastImported(ctx context.Context) (time.Time, error) {
	conn, err := p.Pool.Acquire(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer conn.Release()

	var lastImported time.Time
	err = conn.QueryRow(ctx, `SELECT coalesce(max(created_on), '0001-01-01'::timestamp) FROM import_batches
WHERE portfolio_id=$1 AND active='t'`, p.ID).Scan(&lastImported)
	return lastImported, err
}

// NextParseSeq returns the sequence number the next imported transaction
// should be stamped with: one past the highest already stored, so
// date-tie ordering stays deterministic across import batches.
func (p *Portfolio) NextParseSeq(ctx context.Context) (int, error) {
	conn, err := p.Pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	next := 0
	err = conn.QueryRow(ctx, `SELECT coalesce(max(t.parse_seq)+1, 0) FROM transactions t
JOIN import_batches b ON b.id = t.import_batch_id
WHERE b.portfolio_id=$1`, p.ID).Scan(&next)
	return next, err
}

// ImportBatches returns every import batch belonging to the portfolio.
func (p *Portfolio) ImportBatches(ctx context.Context) ([]*ImportBatch, error) {
	var batches []*ImportBatch
	err := pgxscan.Select(ctx, p.Pool, &batches, `SELECT id, broker, source_file, config,
total_transactions, num_transactions_last_import,
coalesce(first_transaction_date, '0001-01-01'::timestamp) AS first_transaction_date,
coalesce(last_transaction_date, '0001-01-01'::timestamp) AS last_transaction_date,
health_check_id, active, schema_version, created_on, created_by
FROM import_batches WHERE portfolio_id=$1`, p.ID)
	for _, b := range batches {
		b.Portfolio = p
	}
	return batches, err
}

// ImportBatchFromID loads one import batch by its UUID prefix, the same
// short-ID convention the CLI prints after a successful import.
func (p *Portfolio) ImportBatchFromID(ctx context.Context, id string) (*ImportBatch, error) {
	conn, err := p.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	batch := &ImportBatch{Portfolio: p}
	rows, err := conn.Query(ctx, `SELECT id, broker, source_file, config,
total_transactions, num_transactions_last_import,
coalesce(first_transaction_date, '0001-01-01'::timestamp) AS first_transaction_date,
coalesce(last_transaction_date, '0001-01-01'::timestamp) AS last_transaction_date,
health_check_id, active, schema_version, created_on, created_by
FROM import_batches WHERE id::text LIKE $1 LIMIT 1`, id+"%")
	if err != nil {
		return nil, err
	}

	if err := pgxscan.ScanOne(batch, rows); err != nil {
		return nil, err
	}
	return batch, nil
}
