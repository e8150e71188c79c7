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

import "github.com/shopspring/decimal"

// Rule is the closed set of HMRC share-identification rules. The engine
// tries same-day first, then the 30-day "bed-and-breakfast" rule, then
// the Section 104 pool. Short-sell labels a 30-day match made when the
// pool had held shares earlier but was empty at the time of the disposal;
// a disposal with no acquisition to match at all is recorded as
// incomplete instead.
type Rule string

const (
	RuleSameDay    Rule = "SAME_DAY"
	RuleThirtyDay  Rule = "THIRTY_DAY"
	RuleSection104 Rule = "SECTION_104"
	RuleShortSell  Rule = "SHORT_SELL"
)

// Precedence returns the rule's position in the HMRC matching hierarchy,
// lower values matched first. Useful for assertions in tests and for
// sorting a disposal's matchings into the canonical display order.
func (r Rule) Precedence() int {
	switch r {
	case RuleSameDay:
		return 0
	case RuleThirtyDay:
		return 1
	case RuleSection104:
		return 2
	case RuleShortSell:
		return 3
	default:
		return 99
	}
}

// AcquisitionMatch is the portion of one acquisition transaction consumed
// by a single matching.
type AcquisitionMatch struct {
	TransactionID string
	Quantity      decimal.Decimal
	CostBasisGBP  decimal.Decimal
}

// Matching records how one rule satisfied some or all of a disposal's
// quantity, against one or more acquisitions. A Section 104 match draws
// from the pool as a whole rather than from identified transactions, so
// its Acquisitions list is empty and only the aggregate quantity and
// cost basis are recorded.
type Matching struct {
	Rule            Rule
	DisposalID      string
	Acquisitions    []AcquisitionMatch
	QuantityMatched decimal.Decimal
	CostBasisGBP    decimal.Decimal
}
