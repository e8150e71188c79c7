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
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// fxProviderInfo describes one fxrate.Provider implementation for the
// providers command; it is not a live registry (fxrate.Provider has no
// Name/Description methods of its own — building the actual Provider
// requires config the CLI only has at compute time), just a static
// catalogue of the Provider implementations in package fxrate. compute
// has no flag to choose among them; it always uses hmrc-csv.
type fxProviderInfo struct {
	key         string
	name        string
	description string
}

var fxProviders = []fxProviderInfo{
	{
		key:  "static",
		name: "Static Table",
		description: "An implementation-supplied, hard-coded monthly rate table. " +
			"Useful for tests or for currencies an operator prefers to pin rather than fetch.",
	},
	{
		key:  "hmrc-csv",
		name: "HMRC Monthly CSV",
		description: "Fetches HMRC's published monthly average exchange rate tables over HTTP " +
			"and parses the CSV. The primary provider for real imports.",
	},
	{
		key:  "hmrc-scrape",
		name: "HMRC Rates Page (scrape fallback)",
		description: "Drives a headless browser against HMRC's rates publication page when the " +
			"CSV feed is unavailable. Slower; compute does not fall back to it automatically.",
	},
}

// providersCmd represents the providers command
var providersCmd = &cobra.Command{
	Use:   "providers <key>",
	Short: "List all FX rate providers available or get details about a specific one",
	Run: func(cmd *cobra.Command, args []string) {
		r, _ := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)

		builder := strings.Builder{}

		if len(args) > 0 {
			for _, p := range fxProviders {
				if p.key == args[0] {
					builder.WriteString(fmt.Sprintf("# %s\n", p.name))
					builder.WriteString(p.description)
					builder.WriteString("\n")
				}
			}
		} else {
			builder.WriteString("# Available FX Rate Providers\n")
			for _, p := range fxProviders {
				builder.WriteString(fmt.Sprintf("\n## %s (`%s`)\n", p.name, p.key))
				builder.WriteString(p.description)
				builder.WriteString("\n")
			}
		}

		out, err := r.Render(builder.String())
		if err != nil {
			log.Fatal().Err(err).Msg("could not render provider document")
		}

		fmt.Print(out)
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
