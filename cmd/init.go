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
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/jackc/pgx/v5"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/briarcliff-tax/ukcgt/db"
	"github.com/briarcliff-tax/ukcgt/ledger"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Gather database configuration and set up the CGT schema",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		portfolio := &ledger.Portfolio{}

		form := huh.NewForm(
			// Gather details about the portfolio and who owns it
			huh.NewGroup(
				huh.NewInput().
					Title("Give the portfolio a name:").
					Value(&portfolio.Name),

				huh.NewInput().
					Title("Who owns the portfolio?").
					Value(&portfolio.Owner),
			),

			// Get details about the database
			huh.NewGroup(
				huh.NewInput().
					Title("Provide the DSN for connecting to your PostgreSQL database (postgres://[user[:password]@][netloc][:port][/dbname][?param1=value1&...])").
					Value(&portfolio.DBUrl).
					Validate(func(dsn string) error {
						_, err := pgx.ParseConfig(dsn)
						return err
					}),
			),
		)

		err := form.Run()
		if err != nil {
			log.Fatal().Err(err).Msg("error gathering database settings")
		}

		log.Info().Msg("creating database tables")

		// run migration
		dbURL := strings.Replace(portfolio.DBUrl, "postgres://", "pgx5://", -1)
		err = db.Migrate(dbURL)
		if err != nil {
			log.Fatal().Err(err).Msg("error running database migration")
		}

		log.Info().Msg("database tables created")
		log.Info().Msg("saving portfolio name and owner to database")

		// save portfolio name and owner to database
		if err := portfolio.Connect(ctx); err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}
		defer portfolio.Close()

		err = portfolio.SaveDB(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("error saving portfolio settings to database")
		}

		// save database settings to config file
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal().Err(err).Msg("could not determine user home directory")
		}

		configFN := filepath.Join(home, ".ukcgt.toml")
		log.Info().Str("ConfigFile", configFN).Msg("saving database connection info to config file")

		config := struct {
			DB struct {
				URL string `toml:"url"`
			} `toml:"db"`
			Name  string `toml:"name"`
			Owner string `toml:"owner"`
		}{}
		config.DB.URL = portfolio.DBUrl
		config.Name = portfolio.Name
		config.Owner = portfolio.Owner

		configData, err := toml.Marshal(config)
		if err != nil {
			log.Fatal().Err(err).Msg("could not marshal configuration data")
		}

		err = os.WriteFile(configFN, configData, 0644)
		if err != nil {
			log.Fatal().Err(err).Str("FileName", configFN).Msg("could not save configuration to file")
		}

		log.Info().Msg("your CGT portfolio has been initialized")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
