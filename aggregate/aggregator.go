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

// Package aggregate groups disposal records by UK tax year and computes
// the summary figures a self-assessment return needs: gains, losses,
// the Annual Exempt Amount, and the 2024/25 in-year rate-change split.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/briarcliff-tax/ukcgt/cgt"
)

// Summary is the aggregated outcome for one UK tax year.
type Summary struct {
	TaxYear string          `db:"tax_year"`
	Gains   decimal.Decimal `db:"gains_gbp"`
	Losses  decimal.Decimal `db:"losses_gbp"`
	Net     decimal.Decimal `db:"net_gbp"`
	AEA     decimal.Decimal `db:"aea_gbp"`
	Taxable decimal.Decimal `db:"taxable_gbp"`

	// PreChangeGains and PostChangeGains apply only to the 2024/25 tax
	// year, which straddles the 30 October 2024 CGT rate increase. For
	// every other tax year both are zero and Box51Required is false.
	PreChangeGains  decimal.Decimal `db:"pre_change_gains_gbp"`
	PostChangeGains decimal.Decimal `db:"post_change_gains_gbp"`
	Box51Required   bool            `db:"box51_required"`
}

// Aggregate groups disposals by tax year and produces one Summary per
// year, sorted by tax year label. aeaByTaxYear supplies each year's
// Annual Exempt Amount; a year with no entry is treated as AEA = 0.
func Aggregate(disposals []*cgt.DisposalRecord, aeaByTaxYear map[string]decimal.Decimal) []*Summary {
	byYear := make(map[string][]*cgt.DisposalRecord)
	for _, d := range disposals {
		byYear[d.TaxYear] = append(byYear[d.TaxYear], d)
	}

	years := make([]string, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Strings(years)

	summaries := make([]*Summary, 0, len(years))
	for _, year := range years {
		summaries = append(summaries, summariseYear(year, byYear[year], aeaByTaxYear[year]))
	}
	return summaries
}

func summariseYear(year string, disposals []*cgt.DisposalRecord, aea decimal.Decimal) *Summary {
	s := &Summary{TaxYear: year, AEA: aea}

	postChangePresent := false

	// The pre/post partition only exists for 2024/25, the year the rate
	// change fell mid-way through; later years are wholly post-change and
	// need no split.
	straddlesRateChange := year == "2024/25"

	for _, d := range disposals {
		switch {
		case d.GainOrLossGBP.IsPositive():
			s.Gains = s.Gains.Add(d.GainOrLossGBP)
			if straddlesRateChange {
				if cgt.IsPostRateChange(d.Date) {
					s.PostChangeGains = s.PostChangeGains.Add(d.GainOrLossGBP)
				} else {
					s.PreChangeGains = s.PreChangeGains.Add(d.GainOrLossGBP)
				}
			}
		case d.GainOrLossGBP.IsNegative():
			s.Losses = s.Losses.Add(d.GainOrLossGBP.Abs())
		}

		if cgt.IsPostRateChange(d.Date) {
			postChangePresent = true
		}
	}

	s.Net = s.Gains.Sub(s.Losses)

	s.Taxable = s.Net.Sub(s.AEA)
	if !s.Taxable.IsPositive() {
		s.Taxable = decimal.Zero
	}

	// Box 51 (SA108) applies only within the 2024/25 tax year, and only
	// when a disposal on or after 30 October 2024 exists and the net gain
	// for the year exceeds that year's AEA.
	if year == "2024/25" && postChangePresent && s.Net.GreaterThan(s.AEA) {
		s.Box51Required = true
	}

	return s
}
