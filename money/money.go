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

// Package money provides the decimal arithmetic used throughout the CGT
// engine for every monetary and share-quantity figure. Binary floating
// point is never used for values destined for a tax filing; full
// precision is kept until a value is presented to a user, at which point
// it is rounded to two decimal places for GBP.
package money

import "github.com/shopspring/decimal"

// Zero is the additive identity, useful as a starting accumulator.
var Zero = decimal.Zero

// GBPRoundPlaces is the number of decimal places a GBP amount is rounded
// to at the presentation boundary (never during matching arithmetic).
const GBPRoundPlaces = 2

// RoundGBP rounds d to two decimal places using half-away-from-zero
// rounding, the convention HMRC computations use for self-assessment
// figures.
func RoundGBP(d decimal.Decimal) decimal.Decimal {
	return d.Round(GBPRoundPlaces)
}

// Apportion returns the fraction total * (numerator / denominator),
// keeping full decimal precision. It is the core of the cost-basis
// apportionment arithmetic: a matching consuming q shares out of a lot
// of Q shares with total cost C contributes C * q / Q.
//
// Apportion returns zero if denominator is zero (a lot that somehow
// carries no quantity contributes no cost rather than panicking).
func Apportion(total, numerator, denominator decimal.Decimal) decimal.Decimal {
	if denominator.IsZero() {
		return decimal.Zero
	}
	return total.Mul(numerator).Div(denominator)
}

// AverageCost returns totalCost / quantity, or zero when quantity is not
// positive, matching the Section 104 pool's average_cost_gbp derivation.
func AverageCost(totalCost, quantity decimal.Decimal) decimal.Decimal {
	if !quantity.IsPositive() {
		return decimal.Zero
	}
	return totalCost.Div(quantity)
}
