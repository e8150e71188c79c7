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
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/briarcliff-tax/ukcgt/broker"
	"github.com/briarcliff-tax/ukcgt/healthcheck"
	"github.com/briarcliff-tax/ukcgt/ledger"
	"github.com/briarcliff-tax/ukcgt/securities"
)

// importCmd walks the user through registering a new ImportBatch against
// a broker export file: name the broker, confirm the parsed summary,
// then save.
var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a broker export file into the portfolio",
	Long: `import reads a broker transaction export, parses it with the selected
parser, resolves tickers to canonical symbols via the security registry,
and saves the resulting transactions as a new import batch.

Only the generic-csv parser ships with ukcgt — see the broker package for
the Parser interface a custom broker format can implement.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		filePath := args[0]

		var (
			brokerName string
			confirmed  bool
			monitored  bool
		)

		base := strings.TrimSuffix(filePath[strings.LastIndex(filePath, "/")+1:], ".csv")

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("What broker does this export come from?").
					Value(&brokerName).
					Placeholder(base),
				huh.NewConfirm().
					Title("Should a healthcheck.io monitor be created for this import?").
					Value(&monitored),
			),
		)

		if err := form.Run(); err != nil {
			log.Fatal().Err(err).Msg("failed to create wizard")
		}

		if brokerName == "" {
			brokerName = base
		}

		fh, err := os.Open(filePath)
		if err != nil {
			log.Fatal().Err(err).Str("File", filePath).Msg("could not open import file")
		}
		defer fh.Close()

		parser := &broker.GenericCSV{Source: brokerName}
		txs, err := parser.Parse(fh)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to parse import file")
		}

		portfolio, err := ledger.NewFromDB(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to portfolio")
		}
		defer portfolio.Close()

		// Canonicalise tickers strictly before the batch is saved: the
		// engine's symbol field must always already be canonical.
		registry := securities.NewRegistry()
		conn, err := portfolio.Pool.Acquire(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not acquire database connection")
		}
		if err := registry.LoadFromDB(ctx, conn, "security_master"); err != nil {
			log.Warn().Err(err).Msg("could not prime security registry from database")
		}
		conn.Release()

		for i, t := range txs {
			txs[i].Symbol = registry.Resolve(t.Symbol)
		}

		batch := &ledger.ImportBatch{
			Broker:     brokerName,
			SourceFile: filePath,
			Config:     map[string]string{"parser": parser.Name()},
			Portfolio:  portfolio,
		}

		// Print import summary
		{
			var sb strings.Builder
			keyword := func(s string) string {
				return lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Render(s)
			}

			isMonitored := "no"
			if monitored {
				isMonitored = "yes"
			}

			fmt.Fprintf(&sb,
				"%s\n\nBroker: %s\nFile: %s\nTransactions: %s\nMonitored: %s\n\n",
				lipgloss.NewStyle().Bold(true).Render("NEW IMPORT BATCH"),
				keyword(batch.Broker),
				keyword(batch.SourceFile),
				keyword(fmt.Sprintf("%d", len(txs))),
				keyword(isMonitored),
			)

			fmt.Println(
				lipgloss.NewStyle().
					Width(60).
					BorderStyle(lipgloss.RoundedBorder()).
					BorderForeground(lipgloss.Color("63")).
					Padding(1, 2).
					Render(sb.String()),
			)
		}

		confirmForm := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Save this import batch?").
					Value(&confirmed),
			),
		)
		if err := confirmForm.Run(); err != nil {
			log.Fatal().Err(err).Msg("failed to create wizard")
		}

		if !confirmed {
			log.Info().Msg("not saving import batch")
			return
		}

		if monitored {
			checkSlug := slug.Make(fmt.Sprintf("%s %s", batch.Broker, batch.SourceFile))
			checkID, err := healthcheck.Create(
				fmt.Sprintf("ukcgt import: %s", batch.Broker),
				checkSlug,
				[]string{"ukcgt", "import"},
				"",
			)
			if err != nil {
				log.Fatal().Err(err).Msg("creating healthcheck failed")
			}
			batch.HealthCheckID = checkID
		}

		if err := batch.Save(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed saving import batch")
		}

		nextSeq, err := portfolio.NextParseSeq(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed determining next parse sequence")
		}

		broker.AssignParseSeq(txs, nextSeq)
		if err := batch.SaveTransactions(ctx, txs); err != nil {
			log.Fatal().Err(err).Msg("failed saving transactions")
		}

		log.Info().Int("Transactions", len(txs)).Str("ImportBatchID", batch.ID.String()[:6]).Msg("import complete")
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
