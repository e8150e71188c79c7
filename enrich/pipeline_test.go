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

package enrich_test

import (
	"context"
	"testing"
	"time"

	"github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/briarcliff-tax/ukcgt/cgt"
	"github.com/briarcliff-tax/ukcgt/enrich"
	"github.com/briarcliff-tax/ukcgt/fxrate"
	"github.com/briarcliff-tax/ukcgt/split"
)

func TestPipeline_ConvertsToGBP(t *testing.T) {
	g := gomega.NewWithT(t)

	date := time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC)
	fx := fxrate.NewStaticTable(map[string]decimal.Decimal{
		fxrate.MonthKey("USD", date): decimal.NewFromFloat(0.8),
	})

	price := decimal.NewFromInt(10)
	txs := []cgt.Transaction{
		{ID: "t1", Date: date, Kind: cgt.Buy, Symbol: "AAPL", Quantity: decimal.NewFromInt(100), Price: &price, Currency: "USD"},
	}

	p := enrich.NewPipeline(fx, split.NewRegistry(nil))
	out := p.Run(context.Background(), txs)

	g.Expect(out).To(gomega.HaveLen(1))
	g.Expect(out[0].FXError).To(gomega.BeEmpty())
	g.Expect(out[0].PriceGBP.Equal(decimal.NewFromInt(8))).To(gomega.BeTrue())
	g.Expect(out[0].TaxYear).To(gomega.Equal("2023/24"))
}

func TestPipeline_TaintsOnFXFailure(t *testing.T) {
	g := gomega.NewWithT(t)

	date := time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC)
	fx := fxrate.NewStaticTable(map[string]decimal.Decimal{})

	txs := []cgt.Transaction{
		{ID: "t1", Date: date, Kind: cgt.Buy, Symbol: "AAPL", Quantity: decimal.NewFromInt(100), Currency: "USD"},
	}

	p := enrich.NewPipeline(fx, split.NewRegistry(nil))
	out := p.Run(context.Background(), txs)

	g.Expect(out[0].FXError).NotTo(gomega.BeEmpty())
	g.Expect(out[0].FXSource).To(gomega.Equal("Failed"))
	g.Expect(out[0].Tainted()).To(gomega.BeTrue())
}

// GBP transactions are converted at a fixed rate of 1 without consulting
// the provider at all, since HMRC's published tables list foreign
// currencies against GBP, never GBP against itself.
func TestPipeline_GBPNeedsNoProviderLookup(t *testing.T) {
	g := gomega.NewWithT(t)

	date := time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC)
	fx := fxrate.NewStaticTable(map[string]decimal.Decimal{})

	price := decimal.NewFromInt(10)
	txs := []cgt.Transaction{
		{ID: "t1", Date: date, Kind: cgt.Buy, Symbol: "VOD", Quantity: decimal.NewFromInt(100), Price: &price, Currency: "GBP"},
	}

	p := enrich.NewPipeline(fx, split.NewRegistry(nil))
	out := p.Run(context.Background(), txs)

	g.Expect(out).To(gomega.HaveLen(1))
	g.Expect(out[0].FXError).To(gomega.BeEmpty())
	g.Expect(out[0].FXSource).To(gomega.Equal("GBP"))
	g.Expect(out[0].FXRate.Equal(decimal.NewFromInt(1))).To(gomega.BeTrue())
	g.Expect(out[0].ValueGBP.Equal(decimal.NewFromInt(1000))).To(gomega.BeTrue())
}

// A negative quantity is malformed input: it is dropped at this boundary
// and never reaches the matching engine.
func TestPipeline_RejectsNegativeQuantity(t *testing.T) {
	g := gomega.NewWithT(t)

	date := time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC)
	fx := fxrate.NewStaticTable(map[string]decimal.Decimal{})

	txs := []cgt.Transaction{
		{ID: "t1", Date: date, Kind: cgt.Sell, Symbol: "AAPL", Quantity: decimal.NewFromInt(-10), Currency: "GBP"},
		{ID: "t2", Date: date, Kind: cgt.Buy, Symbol: "AAPL", Quantity: decimal.NewFromInt(10), Currency: "GBP"},
	}

	p := enrich.NewPipeline(fx, split.NewRegistry(nil))
	out := p.Run(context.Background(), txs)

	g.Expect(out).To(gomega.HaveLen(1))
	g.Expect(out[0].ID).To(gomega.Equal("t2"))
}

func TestPipeline_RewritesTransferInToSyntheticBuy(t *testing.T) {
	g := gomega.NewWithT(t)

	date := time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC)
	fx := fxrate.NewStaticTable(map[string]decimal.Decimal{
		fxrate.MonthKey("GBP", date): decimal.NewFromInt(1),
	})

	total := decimal.NewFromInt(1000)
	txs := []cgt.Transaction{
		{ID: "t1", Date: date, Kind: cgt.Transfer, Symbol: "AAPL", Quantity: decimal.NewFromInt(100), Total: &total, Currency: "GBP"},
	}

	p := enrich.NewPipeline(fx, split.NewRegistry(nil))
	out := p.Run(context.Background(), txs)

	g.Expect(out).To(gomega.HaveLen(1))
	g.Expect(out[0].Kind).To(gomega.Equal(cgt.Buy))
}
