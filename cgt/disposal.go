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

package cgt

import (
	"time"

	"github.com/shopspring/decimal"
)

// DisposalRecord is the final, reportable outcome of matching one SELL
// transaction: its proceeds, allowable costs, and the resulting gain or
// loss, broken down by the rule(s) that produced it.
type DisposalRecord struct {
	ID                string          `db:"id"`
	DisposalID        string          `db:"disposal_id"`
	Symbol            string          `db:"symbol"`
	Date              time.Time       `db:"date"`
	TaxYear           string          `db:"tax_year"`
	Matchings         []Matching      `db:"-"`
	ProceedsGBP       decimal.Decimal `db:"proceeds_gbp"`
	AllowableCostsGBP decimal.Decimal `db:"allowable_costs_gbp"`
	GainOrLossGBP     decimal.Decimal `db:"gain_or_loss_gbp"`

	// IsIncomplete is set when UnmatchedQuantity is positive — the disposal
	// quantity exceeded everything same-day, 30-day and the pool could
	// supply — or when the matching depends on a transaction that failed
	// FX enrichment (see Diagnostics).
	IsIncomplete      bool            `db:"is_incomplete"`
	UnmatchedQuantity decimal.Decimal `db:"unmatched_quantity"`

	// Diagnostics carries human-readable notes on why a record cannot be
	// relied upon, e.g. which FX-failed transactions its matching depends
	// on. Empty for a clean disposal.
	Diagnostics []string `db:"-"`
}

// IsGain reports whether this disposal produced a chargeable gain rather
// than an allowable loss.
func (d *DisposalRecord) IsGain() bool {
	return d.GainOrLossGBP.IsPositive()
}

// MatchingsByRule returns the subset of Matchings produced by rule, in
// the order the engine appended them.
func (d *DisposalRecord) MatchingsByRule(rule Rule) []Matching {
	var out []Matching
	for _, m := range d.Matchings {
		if m.Rule == rule {
			out = append(out, m)
		}
	}
	return out
}
