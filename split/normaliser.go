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

package split

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/briarcliff-tax/ukcgt/cgt"
)

// Normalise restates txs — which must all share one symbol — into
// post-split units using reg's known splits for that symbol. It returns
// a new slice; the inputs are never mutated (engine inputs are
// read-only, per the ordering guarantee the core relies on).
//
// For every split with effective date D, every prior transaction (date <
// D) has its quantity multiplied and price divided by the split ratio.
// A transaction dated exactly D is already in post-split units and is
// left alone by that split. Multiple splits compound: a transaction
// predating two splits is adjusted by both, applied oldest-first.
//
// Fees and totals are not adjusted — monetary totals are invariant under
// a split by construction.
func Normalise(reg *Registry, symbol string, txs []cgt.Transaction) []cgt.Transaction {
	events := reg.EventsFor(symbol)
	out := make([]cgt.Transaction, len(txs))
	copy(out, txs)

	for i := range out {
		factor := FactorAt(events, out[i].Date)
		out[i].Quantity = out[i].Quantity.Mul(factor)
		if out[i].Price != nil {
			adjusted := out[i].Price.Div(factor)
			out[i].Price = &adjusted
		}
	}

	return out
}

// FactorAt returns the cumulative split-adjustment factor applicable to
// a transaction dated on date — the product of every event's ratio whose
// effective date is strictly after date. A transaction dated exactly on
// an event's effective date is treated as already post-split for that
// event. A factor of 1 means no splits apply.
func FactorAt(events []Event, date time.Time) decimal.Decimal {
	factor := decimal.NewFromInt(1)
	for _, ev := range events {
		if date.Before(ev.EffectiveDate) {
			factor = factor.Mul(ev.Ratio)
		}
	}
	return factor
}
