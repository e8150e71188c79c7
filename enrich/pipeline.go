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

// Package enrich turns raw, normalised transactions into enriched
// transactions: FX conversion to GBP, split adjustment, and UK tax-year
// assignment. It is the one stage of the pipeline allowed to do I/O, and
// the one stage allowed to run concurrently — the matching engine
// downstream of it is a pure, synchronous function.
package enrich

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/briarcliff-tax/ukcgt/cgt"
	"github.com/briarcliff-tax/ukcgt/fxrate"
	"github.com/briarcliff-tax/ukcgt/split"
)

// Workers is the default size of the FX-lookup worker pool. FX lookups
// are independent across transactions, so this is the only place the
// pipeline parallelises.
const Workers = 8

// Pipeline turns raw transactions into enriched transactions, ready for
// engine.Run. It owns no mutable state across calls.
type Pipeline struct {
	FX       fxrate.Provider
	Splits   *split.Registry
	Workers  int
}

// NewPipeline returns a Pipeline using the default worker count.
func NewPipeline(fx fxrate.Provider, splits *split.Registry) *Pipeline {
	return &Pipeline{FX: fx, Splits: splits, Workers: Workers}
}

// Run enriches txs, which may span multiple symbols. Split adjustment is
// applied per-symbol first (so FX conversion operates on post-split
// prices), then FX lookups for every transaction run concurrently across
// a bounded worker pool. The result preserves input order, minus any
// malformed transaction rejected at this boundary — a negative quantity
// must never reach the matching engine, where it would corrupt
// reservation tracking.
func (p *Pipeline) Run(ctx context.Context, rawTxs []cgt.Transaction) []cgt.EnrichedTransaction {
	txs := RewriteTransfersToSyntheticBuys(rawTxs)

	valid := txs[:0]
	for _, tx := range txs {
		if tx.Quantity.IsNegative() {
			log.Error().Str("tx_id", tx.ID).Str("symbol", tx.Symbol).Str("quantity", tx.Quantity.String()).
				Msg("rejecting transaction with negative quantity")
			continue
		}
		valid = append(valid, tx)
	}
	txs = valid

	bySymbol := make(map[string][]int)
	for i, tx := range txs {
		bySymbol[tx.Symbol] = append(bySymbol[tx.Symbol], i)
	}

	splitAdjusted := make([]cgt.Transaction, len(txs))
	copy(splitAdjusted, txs)
	for symbol, idxs := range bySymbol {
		group := make([]cgt.Transaction, len(idxs))
		for j, i := range idxs {
			group[j] = txs[i]
		}
		normalised := split.Normalise(p.Splits, symbol, group)
		for j, i := range idxs {
			splitAdjusted[i] = normalised[j]
		}
	}

	out := make([]cgt.EnrichedTransaction, len(txs))

	workers := p.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int, len(txs))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = p.enrichOne(ctx, txs[i], splitAdjusted[i])
			}
		}()
	}

	for i := range txs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return out
}

func (p *Pipeline) enrichOne(ctx context.Context, original, splitAdjusted cgt.Transaction) cgt.EnrichedTransaction {
	enriched := cgt.EnrichedTransaction{
		Transaction:           original,
		TaxYear:               cgt.TaxYearFor(original.Date),
		SplitAdjustedQuantity: splitAdjusted.Quantity,
	}
	if !original.Quantity.IsZero() {
		enriched.SplitAdjustmentFactor = splitAdjusted.Quantity.Div(original.Quantity)
	} else {
		enriched.SplitAdjustmentFactor = decimal.NewFromInt(1)
	}
	enriched.Quantity = splitAdjusted.Quantity
	enriched.Price = splitAdjusted.Price

	// GBP is the reporting currency itself: HMRC's published monthly
	// tables (and any other Provider) list foreign currencies against
	// GBP, never GBP against itself, so a GBP-denominated transaction is
	// converted at a fixed rate of 1 without consulting the provider.
	if original.Currency == "GBP" {
		one := decimal.NewFromInt(1)
		enriched.FXRate = &one
		enriched.FXSource = "GBP"
		enriched.PriceGBP = splitAdjusted.Price
		if splitAdjusted.Total != nil {
			enriched.ValueGBP = splitAdjusted.Total
		} else if splitAdjusted.Price != nil {
			valueGBP := splitAdjusted.Price.Mul(splitAdjusted.Quantity)
			enriched.ValueGBP = &valueGBP
		}
		enriched.FeeGBP = splitAdjusted.Fee
		return enriched
	}

	rate, err := p.FX.Rate(ctx, original.Date, original.Currency)
	if err != nil {
		log.Warn().Err(err).Str("symbol", original.Symbol).Str("currency", original.Currency).
			Str("tx_id", original.ID).Msg("fx lookup failed, transaction tainted")
		enriched.FXError = err.Error()
		enriched.FXSource = "Failed"
		return enriched
	}

	enriched.FXRate = &rate
	enriched.FXSource = "HMRC"

	if splitAdjusted.Price != nil {
		priceGBP := splitAdjusted.Price.Mul(rate)
		enriched.PriceGBP = &priceGBP
	}
	if splitAdjusted.Total != nil {
		valueGBP := splitAdjusted.Total.Mul(rate)
		enriched.ValueGBP = &valueGBP
	} else if enriched.PriceGBP != nil {
		valueGBP := enriched.PriceGBP.Mul(splitAdjusted.Quantity)
		enriched.ValueGBP = &valueGBP
	}
	if splitAdjusted.Fee != nil {
		feeGBP := splitAdjusted.Fee.Mul(rate)
		enriched.FeeGBP = &feeGBP
	}

	return enriched
}
