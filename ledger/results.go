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
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/goccy/go-json"

	"github.com/briarcliff-tax/ukcgt/aggregate"
	"github.com/briarcliff-tax/ukcgt/cgt"
)

// Transactions loads every transaction belonging to the portfolio's
// active import batches, ready to be fed through enrich.Pipeline and
// engine.Run.
func (p *Portfolio) Transactions(ctx context.Context) ([]cgt.Transaction, error) {
	var txs []cgt.Transaction
	err := pgxscan.Select(ctx, p.Pool, &txs, `SELECT t.id, t.symbol, t.kind, t.date, t.quantity, t.price,
t.total, t.fee, t.currency, t.source, t.parse_seq
FROM transactions t
JOIN import_batches b ON b.id = t.import_batch_id
WHERE b.portfolio_id=$1 AND b.active='t'
ORDER BY t.date, t.parse_seq`, p.ID)
	return txs, err
}

// SaveDisposalRecords persists the engine's output for one run, replacing
// whatever was previously stored — a compute run is idempotent over its
// input transactions, not additive.
func (p *Portfolio) SaveDisposalRecords(ctx context.Context, records []*cgt.DisposalRecord) error {
	conn, err := p.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer rollback(ctx, tx)

	if _, err := tx.Exec(ctx, `DELETE FROM disposal_records WHERE symbol IN (
SELECT DISTINCT t.symbol FROM transactions t JOIN import_batches b ON b.id = t.import_batch_id WHERE b.portfolio_id=$1)`, p.ID); err != nil {
		return err
	}

	for _, r := range records {
		matchingsJSON, err := json.Marshal(r.Matchings)
		if err != nil {
			return fmt.Errorf("marshal matchings for %s: %w", r.ID, err)
		}

		if _, err := tx.Exec(ctx, `INSERT INTO disposal_records
("id", "disposal_id", "symbol", "date", "tax_year", "matchings", "proceeds_gbp", "allowable_costs_gbp",
 "gain_or_loss_gbp", "is_incomplete", "unmatched_quantity")
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			r.ID, r.DisposalID, r.Symbol, r.Date, r.TaxYear, matchingsJSON, r.ProceedsGBP,
			r.AllowableCostsGBP, r.GainOrLossGBP, r.IsIncomplete, r.UnmatchedQuantity); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// SavePoolHistory persists every Section104Pool's full event history.
func (p *Portfolio) SavePoolHistory(ctx context.Context, pools map[string]*cgt.Section104Pool) error {
	conn, err := p.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer rollback(ctx, tx)

	for symbol, pool := range pools {
		if _, err := tx.Exec(ctx, "DELETE FROM pool_history WHERE symbol=$1", symbol); err != nil {
			return err
		}

		for _, ev := range pool.History {
			if _, err := tx.Exec(ctx, `INSERT INTO pool_history
("symbol", "event_kind", "date", "transaction_id", "quantity_delta", "cost_delta",
 "quantity_after", "total_cost_after", "average_cost_after")
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				symbol, string(ev.Kind), ev.Date, ev.TransactionID, ev.QuantityDelta, ev.CostDelta,
				ev.QuantityAfter, ev.TotalCostAfter, ev.AverageCostAfter); err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

// SaveTaxYearSummaries upserts the aggregated per-tax-year summary rows.
func (p *Portfolio) SaveTaxYearSummaries(ctx context.Context, summaries []*aggregate.Summary) error {
	conn, err := p.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	for _, s := range summaries {
		if _, err := conn.Exec(ctx, `INSERT INTO tax_year_summaries
("tax_year", "gains_gbp", "losses_gbp", "net_gbp", "aea_gbp", "taxable_gbp",
 "pre_change_gains_gbp", "post_change_gains_gbp", "box51_required")
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT ("tax_year") DO UPDATE SET
gains_gbp = EXCLUDED.gains_gbp,
losses_gbp = EXCLUDED.losses_gbp,
net_gbp = EXCLUDED.net_gbp,
aea_gbp = EXCLUDED.aea_gbp,
taxable_gbp = EXCLUDED.taxable_gbp,
pre_change_gains_gbp = EXCLUDED.pre_change_gains_gbp,
post_change_gains_gbp = EXCLUDED.post_change_gains_gbp,
box51_required = EXCLUDED.box51_required,
computed_on = now()`,
			s.TaxYear, s.Gains, s.Losses, s.Net, s.AEA, s.Taxable, s.PreChangeGains, s.PostChangeGains, s.Box51Required); err != nil {
			return err
		}
	}

	return nil
}

// DisposalRecords loads every stored disposal record for the portfolio,
// used by report.Filer exports.
func (p *Portfolio) DisposalRecords(ctx context.Context) ([]*cgt.DisposalRecord, error) {
	var rows []*disposalRow
	err := pgxscan.Select(ctx, p.Pool, &rows, `SELECT id, disposal_id, symbol, date, tax_year, matchings,
proceeds_gbp, allowable_costs_gbp, gain_or_loss_gbp, is_incomplete, unmatched_quantity
FROM disposal_records ORDER BY date, symbol`)
	if err != nil {
		return nil, err
	}

	records := make([]*cgt.DisposalRecord, 0, len(rows))
	for _, row := range rows {
		record, err := row.toDisposalRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// TaxYearSummaries loads every stored tax-year summary, used by the
// report package's export commands.
func (p *Portfolio) TaxYearSummaries(ctx context.Context) ([]*aggregate.Summary, error) {
	var summaries []*aggregate.Summary
	err := pgxscan.Select(ctx, p.Pool, &summaries, `SELECT tax_year, gains_gbp, losses_gbp, net_gbp, aea_gbp,
taxable_gbp, pre_change_gains_gbp, post_change_gains_gbp, box51_required
FROM tax_year_summaries ORDER BY tax_year`)
	return summaries, err
}

// disposalRow mirrors the disposal_records table shape for scany, since
// the matchings column must be unmarshalled explicitly from JSON.
type disposalRow struct {
	cgt.DisposalRecord
	Matchings json.RawMessage `db:"matchings"`
}

func (row *disposalRow) toDisposalRecord() (*cgt.DisposalRecord, error) {
	record := row.DisposalRecord
	if err := json.Unmarshal(row.Matchings, &record.Matchings); err != nil {
		return nil, fmt.Errorf("unmarshal matchings for %s: %w", record.ID, err)
	}
	return &record, nil
}
