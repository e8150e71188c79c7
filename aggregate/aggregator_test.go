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

package aggregate_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/briarcliff-tax/ukcgt/aggregate"
	"github.com/briarcliff-tax/ukcgt/cgt"
)

func disposal(dateStr string, gainOrLoss int64) *cgt.DisposalRecord {
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		panic(err)
	}
	return &cgt.DisposalRecord{
		TaxYear:       cgt.TaxYearFor(t),
		Date:          t,
		GainOrLossGBP: decimal.NewFromInt(gainOrLoss),
	}
}

var _ = Describe("Aggregate", func() {
	When("a tax year has only gains under the AEA", func() {
		It("reports zero taxable gain and no Box 51 flag", func() {
			disposals := []*cgt.DisposalRecord{disposal("2023-06-15", 1000)}
			aea := map[string]decimal.Decimal{"2023/24": decimal.NewFromInt(6000)}

			summaries := aggregate.Aggregate(disposals, aea)

			Expect(summaries).To(HaveLen(1))
			Expect(summaries[0].Net.Equal(decimal.NewFromInt(1000))).To(BeTrue())
			Expect(summaries[0].Taxable.IsZero()).To(BeTrue())
			Expect(summaries[0].Box51Required).To(BeFalse())
		})
	})

	When("gains and losses both occur in the same tax year", func() {
		It("nets them before applying the AEA", func() {
			disposals := []*cgt.DisposalRecord{
				disposal("2023-05-01", 5000),
				disposal("2023-07-01", -1000),
			}
			aea := map[string]decimal.Decimal{"2023/24": decimal.NewFromInt(3000)}

			summaries := aggregate.Aggregate(disposals, aea)

			Expect(summaries[0].Gains.Equal(decimal.NewFromInt(5000))).To(BeTrue())
			Expect(summaries[0].Losses.Equal(decimal.NewFromInt(1000))).To(BeTrue())
			Expect(summaries[0].Net.Equal(decimal.NewFromInt(4000))).To(BeTrue())
			Expect(summaries[0].Taxable.Equal(decimal.NewFromInt(1000))).To(BeTrue())
		})
	})

	Describe("the 2024/25 rate-change split", func() {
		It("partitions gains either side of 30 October 2024 and flags Box 51 when net exceeds the AEA", func() {
			disposals := []*cgt.DisposalRecord{
				disposal("2024-06-15", 5000),
				disposal("2024-11-15", 10000),
			}
			aea := map[string]decimal.Decimal{"2024/25": decimal.NewFromInt(3000)}

			summaries := aggregate.Aggregate(disposals, aea)

			Expect(summaries).To(HaveLen(1))
			s := summaries[0]
			Expect(s.TaxYear).To(Equal("2024/25"))
			Expect(s.PreChangeGains.Equal(decimal.NewFromInt(5000))).To(BeTrue())
			Expect(s.PostChangeGains.Equal(decimal.NewFromInt(10000))).To(BeTrue())
			Expect(s.Net.Equal(decimal.NewFromInt(15000))).To(BeTrue())
			Expect(s.Box51Required).To(BeTrue())
		})

		It("does not flag Box 51 when every disposal falls before the rate change", func() {
			disposals := []*cgt.DisposalRecord{disposal("2024-06-15", 10000)}
			aea := map[string]decimal.Decimal{"2024/25": decimal.NewFromInt(3000)}

			summaries := aggregate.Aggregate(disposals, aea)

			Expect(summaries[0].Box51Required).To(BeFalse())
		})

		It("does not flag Box 51 when net gain does not exceed the AEA", func() {
			disposals := []*cgt.DisposalRecord{disposal("2024-11-15", 2000)}
			aea := map[string]decimal.Decimal{"2024/25": decimal.NewFromInt(3000)}

			summaries := aggregate.Aggregate(disposals, aea)

			Expect(summaries[0].Box51Required).To(BeFalse())
		})

		It("leaves the pre/post partition empty for tax years after 2024/25", func() {
			disposals := []*cgt.DisposalRecord{disposal("2025-06-15", 8000)}
			aea := map[string]decimal.Decimal{"2025/26": decimal.NewFromInt(3000)}

			summaries := aggregate.Aggregate(disposals, aea)

			Expect(summaries).To(HaveLen(1))
			s := summaries[0]
			Expect(s.TaxYear).To(Equal("2025/26"))
			Expect(s.Gains.Equal(decimal.NewFromInt(8000))).To(BeTrue())
			Expect(s.PreChangeGains.IsZero()).To(BeTrue())
			Expect(s.PostChangeGains.IsZero()).To(BeTrue())
			Expect(s.Box51Required).To(BeFalse())
		})
	})

	When("disposals span multiple tax years", func() {
		It("returns one summary per year in tax-year order", func() {
			disposals := []*cgt.DisposalRecord{
				disposal("2022-05-01", 1000),
				disposal("2023-05-01", 2000),
			}
			aea := map[string]decimal.Decimal{
				"2022/23": decimal.NewFromInt(12300),
				"2023/24": decimal.NewFromInt(6000),
			}

			summaries := aggregate.Aggregate(disposals, aea)

			Expect(summaries).To(HaveLen(2))
			Expect(summaries[0].TaxYear).To(Equal("2022/23"))
			Expect(summaries[1].TaxYear).To(Equal("2023/24"))
		})
	})
})
