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
package cmd

import (
	"context"
	"errors"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/briarcliff-tax/ukcgt/aggregate"
	"github.com/briarcliff-tax/ukcgt/enrich"
	"github.com/briarcliff-tax/ukcgt/engine"
	"github.com/briarcliff-tax/ukcgt/fxrate"
	"github.com/briarcliff-tax/ukcgt/healthcheck"
	"github.com/briarcliff-tax/ukcgt/ledger"
	"github.com/briarcliff-tax/ukcgt/split"
)

// defaultAEA is the HMRC Annual Exempt Amount per UK tax year. A user can
// override or extend it via the "aea" table in the config file.
var defaultAEA = map[string]string{
	"2020/21": "12300.00",
	"2021/22": "12300.00",
	"2022/23": "12300.00",
	"2023/24": "6000.00",
	"2024/25": "3000.00",
	"2025/26": "3000.00",
}

// computeCmd runs the full pipeline for every transaction currently
// imported into the portfolio: enrich (FX + split + tax-year
// assignment), match (engine.Run), and aggregate (per-tax-year
// summaries), then persists all three layers of output.
var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute disposal records and tax-year summaries from imported transactions",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		healthCheckID := viper.GetString("healthchecks.compute_id")
		if healthCheckID != "" {
			if err := healthcheck.Ping(healthCheckID, "/start"); err != nil {
				log.Warn().Err(err).Msg("healthcheck start ping failed")
			}
		}

		portfolio, err := ledger.NewFromDB(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to portfolio")
		}
		defer portfolio.Close()

		rawTxs, err := portfolio.Transactions(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not load transactions")
		}

		log.Info().Int("Transactions", len(rawTxs)).Msg("loaded transactions for compute run")

		if err := split.DetectUnknown(split.DefaultRegistry, rawTxs); err != nil {
			var merr *multierror.Error
			if errors.As(err, &merr) {
				log.Warn().Int("Warnings", len(merr.Errors)).Msg("price discontinuities with no matching split in the registry; affected symbols will not be adjusted")
				for _, warning := range merr.Errors {
					log.Warn().Msg(warning.Error())
				}
			}
		}

		cache := fxrate.NewCache()
		fxProvider := fxrate.NewHMRCCSVProvider(cache)
		pipeline := enrich.NewPipeline(fxProvider, split.DefaultRegistry)

		enriched := pipeline.Run(ctx, rawTxs)

		tainted := 0
		for _, t := range enriched {
			if t.Tainted() {
				tainted++
			}
		}
		if tainted > 0 {
			log.Warn().Int("Tainted", tainted).Msg("some transactions failed FX enrichment and will not contribute to matching")
		}

		result := engine.Run(enriched)

		log.Info().Int("Disposals", len(result.DisposalRecords)).Int("Symbols", len(result.Pools)).Msg("engine run complete")

		incompleteBySymbol := make(map[string]int)
		for _, d := range result.DisposalRecords {
			if d.IsIncomplete {
				incompleteBySymbol[d.Symbol]++
			}
		}
		if len(incompleteBySymbol) > 0 {
			symbols := make([]string, 0, len(incompleteBySymbol))
			for symbol := range incompleteBySymbol {
				symbols = append(symbols, symbol)
			}
			sort.Strings(symbols)
			for _, symbol := range symbols {
				log.Warn().Str("Symbol", symbol).Int("Disposals", incompleteBySymbol[symbol]).
					Msg("incomplete disposal records; figures for this symbol cannot be relied on for filing")
			}
		}

		aeaByTaxYear := make(map[string]decimal.Decimal, len(defaultAEA))
		for year, amount := range defaultAEA {
			aeaByTaxYear[year] = decimal.RequireFromString(amount)
		}
		if configured := viper.GetStringMapString("aea"); len(configured) > 0 {
			for year, amount := range configured {
				if d, err := decimal.NewFromString(amount); err == nil {
					aeaByTaxYear[year] = d
				}
			}
		}

		summaries := aggregate.Aggregate(result.DisposalRecords, aeaByTaxYear)

		if err := portfolio.SaveDisposalRecords(ctx, result.DisposalRecords); err != nil {
			log.Fatal().Err(err).Msg("could not save disposal records")
		}
		if err := portfolio.SavePoolHistory(ctx, result.Pools); err != nil {
			log.Fatal().Err(err).Msg("could not save pool history")
		}
		if err := portfolio.SaveTaxYearSummaries(ctx, summaries); err != nil {
			log.Fatal().Err(err).Msg("could not save tax year summaries")
		}

		for _, s := range summaries {
			log.Info().Str("TaxYear", s.TaxYear).Str("Net", s.Net.StringFixed(2)).Str("Taxable", s.Taxable.StringFixed(2)).
				Bool("Box51Required", s.Box51Required).Msg("tax year summary")
		}

		if healthCheckID != "" {
			if err := healthcheck.Ping(healthCheckID, ""); err != nil {
				log.Warn().Err(err).Msg("healthcheck success ping failed")
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(computeCmd)
}
