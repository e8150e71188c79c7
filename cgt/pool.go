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

	"github.com/briarcliff-tax/ukcgt/money"
)

// PoolEventKind discriminates the ways a Section 104 pool changes.
type PoolEventKind string

const (
	PoolEventAcquisition PoolEventKind = "ACQUISITION"
	PoolEventDisposal    PoolEventKind = "DISPOSAL"
)

// PoolEvent is one audit entry in a Section104Pool's history. Every
// mutation to a pool appends exactly one event, so the pool's full
// lifecycle can be replayed or displayed without recomputing the engine.
type PoolEvent struct {
	Kind             PoolEventKind   `db:"event_kind"`
	Date             time.Time       `db:"date"`
	TransactionID    string          `db:"transaction_id"`
	QuantityDelta    decimal.Decimal `db:"quantity_delta"`
	CostDelta        decimal.Decimal `db:"cost_delta"`
	QuantityAfter    decimal.Decimal `db:"quantity_after"`
	TotalCostAfter   decimal.Decimal `db:"total_cost_after"`
	AverageCostAfter decimal.Decimal `db:"average_cost_after"`
}

// Section104Pool is the TCGA92 s.104 moving-average holding for one
// symbol. It is never negative: the engine never asks a pool for more
// shares than it holds, taking at most the pool's balance and recording
// any quantity still uncovered as unmatched on the disposal.
type Section104Pool struct {
	Symbol        string
	Quantity      decimal.Decimal
	TotalCostGBP  decimal.Decimal
	History       []PoolEvent
}

// NewSection104Pool returns an empty pool for symbol.
func NewSection104Pool(symbol string) *Section104Pool {
	return &Section104Pool{
		Symbol:       symbol,
		Quantity:     decimal.Zero,
		TotalCostGBP: decimal.Zero,
	}
}

// AverageCostGBP derives the pool's current per-share cost. It is always
// a derived value, never stored independently of Quantity/TotalCostGBP,
// so the two can never drift out of sync.
func (p *Section104Pool) AverageCostGBP() decimal.Decimal {
	return money.AverageCost(p.TotalCostGBP, p.Quantity)
}

// IsEmpty reports whether the pool currently holds no shares.
func (p *Section104Pool) IsEmpty() bool {
	return !p.Quantity.IsPositive()
}

// Acquire adds qty shares at a total cost of costGBP to the pool,
// recording the resulting state in History. qty must be positive.
func (p *Section104Pool) Acquire(date time.Time, transactionID string, qty, costGBP decimal.Decimal) {
	p.Quantity = p.Quantity.Add(qty)
	p.TotalCostGBP = p.TotalCostGBP.Add(costGBP)
	p.History = append(p.History, PoolEvent{
		Kind:             PoolEventAcquisition,
		Date:             date,
		TransactionID:    transactionID,
		QuantityDelta:    qty,
		CostDelta:        costGBP,
		QuantityAfter:    p.Quantity,
		TotalCostAfter:   p.TotalCostGBP,
		AverageCostAfter: p.AverageCostGBP(),
	})
}

// Dispose removes qty shares from the pool, apportioning cost basis
// pro-rata against the pool's average cost at the moment of disposal. It
// returns the cost basis allocated to the disposed shares. qty must not
// exceed p.Quantity; the engine enforces this invariant by construction.
func (p *Section104Pool) Dispose(date time.Time, transactionID string, qty decimal.Decimal) decimal.Decimal {
	costBasis := money.Apportion(p.TotalCostGBP, qty, p.Quantity)

	p.Quantity = p.Quantity.Sub(qty)
	p.TotalCostGBP = p.TotalCostGBP.Sub(costBasis)

	// Guard against residual dust: an empty pool always reports exactly
	// zero cost, never a rounding-induced near-zero remainder.
	if p.Quantity.IsZero() {
		p.TotalCostGBP = decimal.Zero
	}

	p.History = append(p.History, PoolEvent{
		Kind:             PoolEventDisposal,
		Date:             date,
		TransactionID:    transactionID,
		QuantityDelta:    qty.Neg(),
		CostDelta:        costBasis.Neg(),
		QuantityAfter:    p.Quantity,
		TotalCostAfter:   p.TotalCostGBP,
		AverageCostAfter: p.AverageCostGBP(),
	})

	return costBasis
}
