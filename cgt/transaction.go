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

// Package cgt holds the canonical domain types shared by every stage of
// the UK CGT pipeline: transactions, Section 104 pools, matchings and
// disposal records. The types here never hold a database handle or an
// HTTP client — persistence and enrichment collaborators live in their
// own packages and operate on these plain structs.
package cgt

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind discriminates the transaction kinds a broker export can carry. It
// is a closed, typed-string enum rather than a bare string so callers get
// exhaustiveness checking in switches instead of comparing magic strings.
type Kind string

const (
	Buy      Kind = "BUY"
	Sell     Kind = "SELL"
	Dividend Kind = "DIVIDEND"
	Interest Kind = "INTEREST"
	Tax      Kind = "TAX"
	Fee      Kind = "FEE"
	Transfer Kind = "TRANSFER"
)

// IsAcquisition reports whether a transaction of this kind adds shares to
// a symbol's holding (a BUY, or a TRANSFER-in once enrich has rewritten it
// to a synthetic BUY — see enrich.RewriteTransfersToSyntheticBuys).
func (k Kind) IsAcquisition() bool { return k == Buy }

// IsDisposal reports whether a transaction of this kind removes shares
// from a symbol's holding and is subject to CGT matching.
func (k Kind) IsDisposal() bool { return k == Sell }

// Transaction is the canonical, post-normalisation record every pipeline
// stage consumes. Kind, Date, Symbol and Currency never mutate after
// parsing; enrichment and split-adjustment fields are written exactly
// once by their respective pipeline stages.
type Transaction struct {
	ID       string          `db:"id"`
	Date     time.Time       `db:"date"`
	Kind     Kind            `db:"kind"`
	Symbol   string          `db:"symbol"`
	Quantity decimal.Decimal `db:"quantity"`
	Price    *decimal.Decimal `db:"price"`
	Total    *decimal.Decimal `db:"total"`
	Fee      *decimal.Decimal `db:"fee"`
	Currency string          `db:"currency"`
	Source   string          `db:"source"`

	// ParseSeq is the monotonic sequence number assigned at parse time.
	// When two transactions share a date, ParseSeq order decides matching
	// precedence deterministically regardless of map/slice iteration order
	// elsewhere in the pipeline.
	ParseSeq int `db:"parse_seq"`
}

// EnrichedTransaction augments a Transaction with the fields the
// enrichment pipeline (FX conversion, split adjustment, tax-year
// assignment) produces. Every *_gbp field is nil when FXError is set; the
// transaction is then visible to the engine but unmatchable.
type EnrichedTransaction struct {
	Transaction

	FXRate    *decimal.Decimal
	PriceGBP  *decimal.Decimal
	ValueGBP  *decimal.Decimal
	FeeGBP    *decimal.Decimal
	FXSource  string
	FXError   string
	TaxYear   string

	SplitAdjustedQuantity decimal.Decimal
	SplitAdjustmentFactor decimal.Decimal
}

// Tainted reports whether this transaction failed FX enrichment and must
// not contribute GBP-denominated quantities to any matching.
func (t *EnrichedTransaction) Tainted() bool { return t.FXError != "" }

// AbsFeeGBP returns the absolute value of FeeGBP, or zero if unset. Fees
// are always subtracted, regardless of the sign a broker export used.
func (t *EnrichedTransaction) AbsFeeGBP() decimal.Decimal {
	if t.FeeGBP == nil {
		return decimal.Zero
	}
	return t.FeeGBP.Abs()
}
