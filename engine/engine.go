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

// Package engine implements the CGT matching and pooling engine: the
// deterministic algorithm that matches disposals against acquisitions
// under HMRC's share-identification rule hierarchy and maintains each
// symbol's Section 104 pool.
//
// Run is a pure function of its input: given the same enriched
// transactions it always produces byte-identical disposal records and
// pool histories. It performs no I/O and holds no state between calls.
// Because the 30-day rule consumes acquisitions made after a disposal, a
// single forward pass cannot work; Run plans every sell's claims first,
// then executes them against the pool in a second chronological pass.
package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/briarcliff-tax/ukcgt/cgt"
	"github.com/briarcliff-tax/ukcgt/money"
)

// thirtyDays is the bed-and-breakfast matching window: sell.date < buy.date
// <= sell.date + 30 calendar days.
const thirtyDays = 30 * 24 * time.Hour

// Result is the complete output of one engine run.
type Result struct {
	DisposalRecords []*cgt.DisposalRecord
	Pools           map[string]*cgt.Section104Pool
}

// reservation records that a SELL (by index in its symbol group) has
// claimed qty shares from a BUY (by index in the same group).
type reservation struct {
	sellIdx int
	buyIdx  int
	qty     decimal.Decimal
	rule    cgt.Rule // RuleSameDay or RuleThirtyDay; refined to RuleShortSell in pass 2
}

// Run groups txs by symbol and matches each group independently,
// returning results in symbol-lexicographic order for reproducibility.
// Dividend/Interest/Tax/Fee transactions pass through untouched — they
// carry no CGT consequence and are not engine input in any meaningful
// sense beyond being ignored.
func Run(txs []cgt.EnrichedTransaction) *Result {
	bySymbol := make(map[string][]cgt.EnrichedTransaction)
	for _, tx := range txs {
		if tx.Kind != cgt.Buy && tx.Kind != cgt.Sell {
			continue
		}
		bySymbol[tx.Symbol] = append(bySymbol[tx.Symbol], tx)
	}

	symbols := make([]string, 0, len(bySymbol))
	for symbol := range bySymbol {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	result := &Result{Pools: make(map[string]*cgt.Section104Pool)}

	for _, symbol := range symbols {
		group := bySymbol[symbol]
		sort.SliceStable(group, func(i, j int) bool {
			if !group[i].Date.Equal(group[j].Date) {
				return group[i].Date.Before(group[j].Date)
			}
			return group[i].ParseSeq < group[j].ParseSeq
		})

		pool, disposals := runGroup(symbol, group)
		result.Pools[symbol] = pool
		result.DisposalRecords = append(result.DisposalRecords, disposals...)
	}

	return result
}

// runGroup matches every SELL in one symbol's chronologically-ordered
// transaction group and returns the resulting pool and disposal records.
func runGroup(symbol string, group []cgt.EnrichedTransaction) (*cgt.Section104Pool, []*cgt.DisposalRecord) {
	pool := cgt.NewSection104Pool(symbol)

	// Pass 1 (plan): compute same-day and 30-day reservations for every
	// SELL, without yet touching the pool. reserved[i] tracks how much of
	// BUY i's quantity has been claimed by some SELL's reservation.
	reserved := make([]decimal.Decimal, len(group))
	reservationsBySell := make(map[int][]reservation)

	for i, tx := range group {
		if tx.Kind != cgt.Sell || tx.Tainted() {
			continue
		}
		remaining := tx.Quantity

		// Same-day rule (TCGA92/S105(1)).
		for j, cand := range group {
			if remaining.IsZero() {
				break
			}
			if cand.Kind != cgt.Buy || cand.Tainted() || !cand.Date.Equal(tx.Date) {
				continue
			}
			avail := cand.Quantity.Sub(reserved[j])
			if !avail.IsPositive() {
				continue
			}
			take := decimal.Min(avail, remaining)
			reserved[j] = reserved[j].Add(take)
			remaining = remaining.Sub(take)
			reservationsBySell[i] = append(reservationsBySell[i], reservation{sellIdx: i, buyIdx: j, qty: take, rule: cgt.RuleSameDay})
		}

		if remaining.IsZero() {
			continue
		}

		// 30-day rule (TCGA92/S106A(5)), ascending date then parse order.
		// The candidate slice is a subset of group, already sorted by
		// (date, parse order), so iterating group in order yields
		// candidates in the required order too.
		for j, cand := range group {
			if remaining.IsZero() {
				break
			}
			if cand.Kind != cgt.Buy || cand.Tainted() {
				continue
			}
			if !cand.Date.After(tx.Date) {
				continue
			}
			if cand.Date.After(tx.Date.Add(thirtyDays)) {
				continue
			}
			avail := cand.Quantity.Sub(reserved[j])
			if !avail.IsPositive() {
				continue
			}
			take := decimal.Min(avail, remaining)
			reserved[j] = reserved[j].Add(take)
			remaining = remaining.Sub(take)
			reservationsBySell[i] = append(reservationsBySell[i], reservation{sellIdx: i, buyIdx: j, qty: take, rule: cgt.RuleThirtyDay})
		}
	}

	// Pass 2 (execute): walk again in order. BUYs add only their
	// unreserved residual to the pool; SELLs draw reservations first,
	// then the pool for any remainder.
	var disposals []*cgt.DisposalRecord

	for i, tx := range group {
		switch tx.Kind {
		case cgt.Buy:
			if tx.Tainted() {
				continue
			}
			unreserved := tx.Quantity.Sub(reserved[i])
			if !unreserved.IsPositive() {
				continue
			}
			cost := money.Apportion(acquisitionCostGBP(tx), unreserved, tx.Quantity)
			pool.Acquire(tx.Date, tx.ID, unreserved, cost)

		case cgt.Sell:
			disposals = append(disposals, resolveDisposal(pool, group, i, tx, reservationsBySell[i]))
		}
	}

	return pool, disposals
}

// resolveDisposal builds the DisposalRecord for one SELL, applying its
// pre-computed reservations and then drawing on the pool for any
// remainder.
func resolveDisposal(pool *cgt.Section104Pool, group []cgt.EnrichedTransaction, sellIdx int, tx cgt.EnrichedTransaction, reservations []reservation) *cgt.DisposalRecord {
	record := &cgt.DisposalRecord{
		ID:         fmt.Sprintf("disposal-%s", tx.ID),
		DisposalID: tx.ID,
		Symbol:     tx.Symbol,
		Date:       tx.Date,
		TaxYear:    tx.TaxYear,
	}

	if tx.Tainted() {
		record.IsIncomplete = true
		record.UnmatchedQuantity = tx.Quantity
		return record
	}

	poolBeforeQty := pool.Quantity
	sameDayMatched := decimal.Zero

	var matchings []cgt.Matching
	matchedQty := decimal.Zero

	for _, r := range reservations {
		buy := group[r.buyIdx]
		costBasis := money.Apportion(acquisitionCostGBP(buy), r.qty, buy.Quantity)

		rule := r.rule
		if rule == cgt.RuleThirtyDay && sameDayMatched.IsZero() && poolBeforeQty.IsZero() && len(pool.History) > 0 {
			// The pool held shares earlier but was exhausted before this
			// repurchase arrived: a short sale covered by a later BUY, not an
			// ordinary bed-and-breakfast against an existing holding. A sell
			// in a symbol never held at all stays under the 30-day rule.
			rule = cgt.RuleShortSell
		}
		if r.rule == cgt.RuleSameDay {
			sameDayMatched = sameDayMatched.Add(r.qty)
		}

		matchings = append(matchings, cgt.Matching{
			Rule:       rule,
			DisposalID: tx.ID,
			Acquisitions: []cgt.AcquisitionMatch{{
				TransactionID: buy.ID,
				Quantity:      r.qty,
				CostBasisGBP:  costBasis,
			}},
			QuantityMatched: r.qty,
			CostBasisGBP:    costBasis,
		})
		matchedQty = matchedQty.Add(r.qty)
	}

	remaining := tx.Quantity.Sub(matchedQty)
	if remaining.IsPositive() {
		poolTake := decimal.Min(remaining, pool.Quantity)
		if poolTake.IsPositive() {
			costBasis := pool.Dispose(tx.Date, tx.ID, poolTake)
			matchings = append(matchings, cgt.Matching{
				Rule:            cgt.RuleSection104,
				DisposalID:      tx.ID,
				QuantityMatched: poolTake,
				CostBasisGBP:    costBasis,
			})
			matchedQty = matchedQty.Add(poolTake)
			remaining = remaining.Sub(poolTake)
		}
	}

	record.Matchings = matchings

	totalCost := decimal.Zero
	for _, m := range matchings {
		totalCost = totalCost.Add(m.CostBasisGBP)
	}
	record.AllowableCostsGBP = totalCost

	if tx.Quantity.IsPositive() {
		record.ProceedsGBP = money.Apportion(absDecimal(tx.ValueGBP), matchedQty, tx.Quantity).
			Sub(money.Apportion(absDecimal(tx.FeeGBP), matchedQty, tx.Quantity))
	}
	record.GainOrLossGBP = record.ProceedsGBP.Sub(record.AllowableCostsGBP)

	if remaining.IsPositive() {
		record.IsIncomplete = true
		record.UnmatchedQuantity = remaining
	}

	// A SELL whose matching would have consumed an FX-failed acquisition,
	// or whose pool balance depends on an earlier FX-failed transaction,
	// cannot be trusted even when arithmetic completed: the tainted
	// transaction was invisible to the matcher, so the cost basis here may
	// be drawn from the wrong acquisitions.
	usedPool := remaining.IsPositive()
	for _, m := range matchings {
		if m.Rule == cgt.RuleSection104 {
			usedPool = true
		}
	}
	if diag, tainted := taintDiagnostic(group, tx, usedPool); tainted {
		record.IsIncomplete = true
		record.Diagnostics = append(record.Diagnostics, diag)
	}

	return record
}

// taintDiagnostic reports whether the disposal's matching depends on a
// transaction that failed FX enrichment: a tainted BUY on the sell date
// or inside the 30-day window (a candidate the rule hierarchy would have
// consumed first), or — when the disposal drew on the pool — any earlier
// tainted transaction, whose absence leaves the pool balance wrong.
func taintDiagnostic(group []cgt.EnrichedTransaction, sell cgt.EnrichedTransaction, usedPool bool) (string, bool) {
	windowEnd := sell.Date.Add(thirtyDays)
	var ids []string
	for _, cand := range group {
		if !cand.Tainted() {
			continue
		}
		switch {
		case cand.Kind == cgt.Buy && !cand.Date.Before(sell.Date) && !cand.Date.After(windowEnd):
			ids = append(ids, cand.ID)
		case usedPool && cand.Date.Before(sell.Date):
			ids = append(ids, cand.ID)
		}
	}
	if len(ids) == 0 {
		return "", false
	}
	return fmt.Sprintf("matching depends on transactions that failed FX enrichment: %s", strings.Join(ids, ", ")), true
}

// acquisitionCostGBP returns a BUY's total allowable cost: its GBP value
// plus any GBP fee, both taken as absolute values since a broker export
// may record either sign convention.
func acquisitionCostGBP(tx cgt.EnrichedTransaction) decimal.Decimal {
	return absDecimal(tx.ValueGBP).Add(absDecimal(tx.FeeGBP))
}

func absDecimal(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return d.Abs()
}
