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

package engine_test

import (
	"testing"
	"time"

	"github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/briarcliff-tax/ukcgt/cgt"
	"github.com/briarcliff-tax/ukcgt/engine"
)

func d(i int64) decimal.Decimal { return decimal.NewFromInt(i) }

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// buyTx and sellTx build enriched transactions whose GBP fields already
// equal their native-currency figures (as if FX rate were exactly 1),
// since these scenarios are all specified directly in GBP.
func buyTx(id, symbol string, dateStr string, qty, price int64, seq int) cgt.EnrichedTransaction {
	return txOfKind(cgt.Buy, id, symbol, dateStr, qty, price, seq)
}

func sellTx(id, symbol string, dateStr string, qty, price int64, seq int) cgt.EnrichedTransaction {
	return txOfKind(cgt.Sell, id, symbol, dateStr, qty, price, seq)
}

func txOfKind(kind cgt.Kind, id, symbol, dateStr string, qty, price int64, seq int) cgt.EnrichedTransaction {
	quantity := d(qty)
	value := d(price).Mul(quantity)
	return cgt.EnrichedTransaction{
		Transaction: cgt.Transaction{
			ID:       id,
			Date:     date(dateStr),
			Kind:     kind,
			Symbol:   symbol,
			Quantity: quantity,
			Currency: "GBP",
			ParseSeq: seq,
		},
		ValueGBP: &value,
		TaxYear:  cgt.TaxYearFor(date(dateStr)),
	}
}

func disposalFor(result *engine.Result, id string) *cgt.DisposalRecord {
	for _, d := range result.DisposalRecords {
		if d.DisposalID == id {
			return d
		}
	}
	return nil
}

// Scenario 1: pure Section 104.
func TestEngine_PureSection104(t *testing.T) {
	g := gomega.NewWithT(t)

	txs := []cgt.EnrichedTransaction{
		buyTx("b1", "AAPL", "2023-05-01", 100, 10, 1),
		buyTx("b2", "AAPL", "2023-06-01", 100, 12, 2),
		sellTx("s1", "AAPL", "2023-09-01", 150, 15, 3),
	}

	result := engine.Run(txs)
	disp := disposalFor(result, "s1")
	g.Expect(disp).NotTo(gomega.BeNil())
	g.Expect(disp.ProceedsGBP.Equal(d(2250))).To(gomega.BeTrue())
	g.Expect(disp.AllowableCostsGBP.Equal(d(1650))).To(gomega.BeTrue())
	g.Expect(disp.GainOrLossGBP.Equal(d(600))).To(gomega.BeTrue())

	pool := result.Pools["AAPL"]
	g.Expect(pool.Quantity.Equal(d(50))).To(gomega.BeTrue())
	g.Expect(pool.TotalCostGBP.Equal(d(550))).To(gomega.BeTrue())
}

// Scenario 2: same-day rule.
func TestEngine_SameDay(t *testing.T) {
	g := gomega.NewWithT(t)

	txs := []cgt.EnrichedTransaction{
		buyTx("b1", "XYZ", "2023-07-10", 50, 20, 1),
		sellTx("s1", "XYZ", "2023-07-10", 50, 25, 2),
	}

	result := engine.Run(txs)
	disp := disposalFor(result, "s1")
	g.Expect(disp.Matchings).To(gomega.HaveLen(1))
	g.Expect(disp.Matchings[0].Rule).To(gomega.Equal(cgt.RuleSameDay))
	g.Expect(disp.AllowableCostsGBP.Equal(d(1000))).To(gomega.BeTrue())
	g.Expect(disp.ProceedsGBP.Equal(d(1250))).To(gomega.BeTrue())
	g.Expect(disp.GainOrLossGBP.Equal(d(250))).To(gomega.BeTrue())

	pool := result.Pools["XYZ"]
	g.Expect(pool.Quantity.Equal(decimal.Zero)).To(gomega.BeTrue())
}

// Scenario 3: bed-and-breakfast (30-day rule).
func TestEngine_BedAndBreakfast(t *testing.T) {
	g := gomega.NewWithT(t)

	txs := []cgt.EnrichedTransaction{
		sellTx("s1", "BNB", "2023-08-01", 100, 8, 1),
		buyTx("b1", "BNB", "2023-08-15", 100, 9, 2),
	}

	result := engine.Run(txs)
	disp := disposalFor(result, "s1")
	g.Expect(disp.Matchings).To(gomega.HaveLen(1))
	g.Expect(disp.Matchings[0].Rule).To(gomega.Equal(cgt.RuleThirtyDay))
	g.Expect(disp.AllowableCostsGBP.Equal(d(900))).To(gomega.BeTrue())
	g.Expect(disp.ProceedsGBP.Equal(d(800))).To(gomega.BeTrue())
	g.Expect(disp.GainOrLossGBP.Equal(d(-100))).To(gomega.BeTrue())
}

// Scenario 4: mixed 30-day + Section 104.
func TestEngine_Mixed(t *testing.T) {
	g := gomega.NewWithT(t)

	txs := []cgt.EnrichedTransaction{
		buyTx("b1", "MIX", "2023-01-01", 200, 5, 1),
		sellTx("s1", "MIX", "2023-06-01", 150, 7, 2),
		buyTx("b2", "MIX", "2023-06-20", 50, 6, 3),
	}

	result := engine.Run(txs)
	disp := disposalFor(result, "s1")
	g.Expect(disp.AllowableCostsGBP.Equal(d(800))).To(gomega.BeTrue())
	g.Expect(disp.ProceedsGBP.Equal(d(1050))).To(gomega.BeTrue())
	g.Expect(disp.GainOrLossGBP.Equal(d(250))).To(gomega.BeTrue())

	pool := result.Pools["MIX"]
	g.Expect(pool.Quantity.Equal(d(100))).To(gomega.BeTrue())
	g.Expect(pool.TotalCostGBP.Equal(d(500))).To(gomega.BeTrue())
}

// Scenario 5: a split-adjusted BUY feeding the pool, then a disposal
// against it. The split itself is normalised upstream (split.Normalise);
// the engine only ever sees post-split quantities.
func TestEngine_PostSplitQuantities(t *testing.T) {
	g := gomega.NewWithT(t)

	txs := []cgt.EnrichedTransaction{
		buyTx("b1", "NVDA", "2024-05-01", 100, 40, 1), // pre-split 10 @ £400, normalised to 100 @ £40
		sellTx("s1", "NVDA", "2024-07-01", 50, 50, 2),
	}

	result := engine.Run(txs)
	disp := disposalFor(result, "s1")
	g.Expect(disp.AllowableCostsGBP.Equal(d(2000))).To(gomega.BeTrue())
	g.Expect(disp.ProceedsGBP.Equal(d(2500))).To(gomega.BeTrue())
	g.Expect(disp.GainOrLossGBP.Equal(d(500))).To(gomega.BeTrue())

	pool := result.Pools["NVDA"]
	g.Expect(pool.Quantity.Equal(d(50))).To(gomega.BeTrue())
	g.Expect(pool.AverageCostGBP().Equal(d(40))).To(gomega.BeTrue())
}

// Rule precedence: same-day fully satisfies before 30-day is consulted.
func TestEngine_SameDayTakesPrecedenceOverThirtyDay(t *testing.T) {
	g := gomega.NewWithT(t)

	txs := []cgt.EnrichedTransaction{
		buyTx("b1", "PRE", "2023-03-01", 50, 10, 1),
		sellTx("s1", "PRE", "2023-03-01", 50, 12, 2),
		buyTx("b2", "PRE", "2023-03-02", 50, 11, 3),
	}

	result := engine.Run(txs)
	disp := disposalFor(result, "s1")
	g.Expect(disp.Matchings).To(gomega.HaveLen(1))
	g.Expect(disp.Matchings[0].Rule).To(gomega.Equal(cgt.RuleSameDay))

	pool := result.Pools["PRE"]
	g.Expect(pool.Quantity.Equal(d(50))).To(gomega.BeTrue())
}

// Invariant: sum of gain/loss equals sum of proceeds minus allowable costs.
func TestEngine_GainLossInvariant(t *testing.T) {
	g := gomega.NewWithT(t)

	txs := []cgt.EnrichedTransaction{
		buyTx("b1", "AAPL", "2023-05-01", 100, 10, 1),
		buyTx("b2", "AAPL", "2023-06-01", 100, 12, 2),
		sellTx("s1", "AAPL", "2023-09-01", 150, 15, 3),
	}

	result := engine.Run(txs)

	proceeds := decimal.Zero
	costs := decimal.Zero
	gainLoss := decimal.Zero
	for _, disp := range result.DisposalRecords {
		proceeds = proceeds.Add(disp.ProceedsGBP)
		costs = costs.Add(disp.AllowableCostsGBP)
		gainLoss = gainLoss.Add(disp.GainOrLossGBP)
	}
	g.Expect(gainLoss.Equal(proceeds.Sub(costs))).To(gomega.BeTrue())
}

// Determinism: running twice on identical inputs yields identical output.
func TestEngine_Deterministic(t *testing.T) {
	g := gomega.NewWithT(t)

	txs := []cgt.EnrichedTransaction{
		buyTx("b1", "AAPL", "2023-05-01", 100, 10, 1),
		buyTx("b2", "AAPL", "2023-06-01", 100, 12, 2),
		sellTx("s1", "AAPL", "2023-09-01", 150, 15, 3),
	}

	r1 := engine.Run(txs)
	r2 := engine.Run(txs)

	g.Expect(r1.DisposalRecords[0].GainOrLossGBP.Equal(r2.DisposalRecords[0].GainOrLossGBP)).To(gomega.BeTrue())
	g.Expect(r1.Pools["AAPL"].Quantity.Equal(r2.Pools["AAPL"].Quantity)).To(gomega.BeTrue())
}

// A sell after the pool was exhausted, covered by a repurchase within 30
// days, is labelled SHORT_SELL rather than THIRTY_DAY: the holding ran
// out before the covering BUY arrived.
func TestEngine_ShortSellAfterPoolExhausted(t *testing.T) {
	g := gomega.NewWithT(t)

	txs := []cgt.EnrichedTransaction{
		buyTx("b1", "SHRT", "2023-01-10", 100, 10, 1),
		sellTx("s1", "SHRT", "2023-02-01", 100, 12, 2),
		sellTx("s2", "SHRT", "2023-04-01", 50, 10, 3),
		buyTx("b2", "SHRT", "2023-04-20", 50, 8, 4),
	}

	result := engine.Run(txs)

	s1 := disposalFor(result, "s1")
	g.Expect(s1.Matchings).To(gomega.HaveLen(1))
	g.Expect(s1.Matchings[0].Rule).To(gomega.Equal(cgt.RuleSection104))

	s2 := disposalFor(result, "s2")
	g.Expect(s2.Matchings).To(gomega.HaveLen(1))
	g.Expect(s2.Matchings[0].Rule).To(gomega.Equal(cgt.RuleShortSell))
	g.Expect(s2.AllowableCostsGBP.Equal(d(400))).To(gomega.BeTrue())
	g.Expect(s2.ProceedsGBP.Equal(d(500))).To(gomega.BeTrue())
	g.Expect(s2.IsIncomplete).To(gomega.BeFalse())
}

// A sell in a symbol never held at all still matches its repurchase
// under the ordinary 30-day rule, not the short-sell fallback.
func TestEngine_NeverHeldSymbolUsesThirtyDayRule(t *testing.T) {
	g := gomega.NewWithT(t)

	txs := []cgt.EnrichedTransaction{
		sellTx("s1", "NEW", "2023-04-01", 100, 10, 1),
		buyTx("b1", "NEW", "2023-04-20", 100, 8, 2),
	}

	result := engine.Run(txs)
	disp := disposalFor(result, "s1")
	g.Expect(disp.Matchings).To(gomega.HaveLen(1))
	g.Expect(disp.Matchings[0].Rule).To(gomega.Equal(cgt.RuleThirtyDay))
	g.Expect(disp.IsIncomplete).To(gomega.BeFalse())
}

// An FX-failed BUY the sell would otherwise have matched taints the
// disposal: the record is emitted, but flagged incomplete with a
// diagnostic naming the tainted transaction.
func TestEngine_TaintedBuyMarksDependentDisposalIncomplete(t *testing.T) {
	g := gomega.NewWithT(t)

	tainted := buyTx("b2", "TNT", "2023-09-01", 50, 11, 2)
	tainted.FXError = "fx rate unavailable: USD 2023-09"
	tainted.FXSource = "Failed"
	tainted.ValueGBP = nil

	txs := []cgt.EnrichedTransaction{
		buyTx("b1", "TNT", "2023-05-01", 100, 10, 1),
		tainted,
		sellTx("s1", "TNT", "2023-09-01", 100, 15, 3),
	}

	result := engine.Run(txs)
	disp := disposalFor(result, "s1")
	g.Expect(disp.IsIncomplete).To(gomega.BeTrue())
	g.Expect(disp.Diagnostics).To(gomega.HaveLen(1))
	g.Expect(disp.Diagnostics[0]).To(gomega.ContainSubstring("b2"))

	// The matched shares still drew the clean pool, so the arithmetic that
	// did complete is preserved alongside the flag.
	g.Expect(disp.AllowableCostsGBP.Equal(d(1000))).To(gomega.BeTrue())
}

// Disposing more than same-day/30-day/pool can supply marks the record
// incomplete rather than fabricating a cost basis.
func TestEngine_IncompleteWhenNothingCovers(t *testing.T) {
	g := gomega.NewWithT(t)

	txs := []cgt.EnrichedTransaction{
		sellTx("s1", "NAKED", "2023-04-01", 100, 10, 1),
	}

	result := engine.Run(txs)
	disp := disposalFor(result, "s1")
	g.Expect(disp.IsIncomplete).To(gomega.BeTrue())
	g.Expect(disp.UnmatchedQuantity.Equal(d(100))).To(gomega.BeTrue())
}
