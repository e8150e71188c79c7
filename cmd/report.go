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
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/briarcliff-tax/ukcgt/backblaze"
	"github.com/briarcliff-tax/ukcgt/ledger"
	"github.com/briarcliff-tax/ukcgt/report"
)

var (
	reportFormat string
	reportArchive bool
)

// reportCmd exports the portfolio's computed results in one format per
// run: with --format csv both disposal records and tax-year summaries,
// with --format parquet disposal records only. It optionally archives
// the exported files to Backblaze B2.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export computed disposal records and tax-year summaries",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		portfolio, err := ledger.NewFromDB(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to portfolio")
		}
		defer portfolio.Close()

		disposals, err := portfolio.DisposalRecords(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not load disposal records")
		}

		summaries, err := portfolio.TaxYearSummaries(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not load tax year summaries")
		}

		filer := report.NewFilerFromString(viper.GetString("report.output"))
		if filer == nil {
			log.Fatal().Str("report.output", viper.GetString("report.output")).Msg("no report output configured")
		}

		var disposalsFile, summariesFile string

		switch reportFormat {
		case "csv":
			disposalsFile, err = report.ExportDisposalsCSV(filer, "disposals.csv", disposals)
			if err != nil {
				log.Fatal().Err(err).Msg("could not export disposals csv")
			}
			summariesFile, err = report.ExportSummariesCSV(filer, "tax_year_summaries.csv", summaries)
			if err != nil {
				log.Fatal().Err(err).Msg("could not export summaries csv")
			}
		case "parquet":
			disposalsFile, err = report.ExportDisposalsParquet(filer, "disposals.parquet", disposals)
			if err != nil {
				log.Fatal().Err(err).Msg("could not export disposals parquet")
			}
		default:
			log.Fatal().Str("format", reportFormat).Msg("unsupported report format, use csv or parquet")
		}

		log.Info().Str("Disposals", disposalsFile).Str("Summaries", summariesFile).Msg("report exported")

		if reportArchive {
			bucket := viper.GetString("backblaze.bucket")
			taxYear := "all-years"
			if len(summaries) == 1 {
				taxYear = summaries[0].TaxYear
			}

			for _, fn := range []string{disposalsFile, summariesFile} {
				if fn == "" {
					continue
				}
				if err := backblaze.Upload(fn, bucket, fmt.Sprintf("reports/%s", taxYear)); err != nil {
					log.Fatal().Err(err).Str("File", fn).Msg("could not archive report to backblaze")
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportFormat, "format", "csv", "export format: csv or parquet")
	reportCmd.Flags().BoolVar(&reportArchive, "archive", false, "upload exported files to Backblaze B2")
}
