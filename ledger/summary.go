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
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xeonx/timeago"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Summary renders a human-readable markdown description of the portfolio:
// its import batches, symbol coverage, and when it was last updated.
func (p *Portfolio) Summary(ctx context.Context) (string, error) {
	printer := message.NewPrinter(language.English)
	builder := strings.Builder{}

	if _, err := builder.WriteString(fmt.Sprintf("# %s\n", p.Name)); err != nil {
		return "", err
	}

	if _, err := builder.WriteString("## Details\n\n"); err != nil {
		return "", err
	}

	if _, err := builder.WriteString(fmt.Sprintf("Database: %s\n\n", p.DBUrl)); err != nil {
		return "", err
	}

	numBatches, err := p.NumImportBatches(ctx)
	if err != nil {
		return "", err
	}
	if _, err := builder.WriteString(printer.Sprintf("  * Import Batches: %d\n", numBatches)); err != nil {
		return "", err
	}

	totalSymbols, err := p.TotalSymbols(ctx)
	if err != nil {
		return "", err
	}
	if _, err := builder.WriteString(printer.Sprintf("  * Symbols Tracked: %d\n", totalSymbols)); err != nil {
		return "", err
	}

	totalTransactions, err := p.TotalTransactions(ctx)
	if err != nil {
		return "", err
	}
	if _, err := builder.WriteString(printer.Sprintf("  * Total Transactions: %d\n\n", totalTransactions)); err != nil {
		return "", err
	}

	lastImported, err := p.LastImported(ctx)
	if err != nil {
		return "", err
	}

	if lastImported.Equal(time.Time{}) {
		if _, err := builder.WriteString("Last Imported: Never\n\n"); err != nil {
			return "", err
		}
	} else {
		age := timeago.English.Format(lastImported)
		if _, err := builder.WriteString(fmt.Sprintf("Last Imported: %s (%s)\n\n", age, lastImported.Local().Format("01/02/2006"))); err != nil {
			return "", err
		}
	}

	if _, err := builder.WriteString("## Import Batches\n\n"); err != nil {
		return "", err
	}

	batches, err := p.ImportBatches(ctx)
	if err != nil {
		return "", err
	}

	for _, b := range batches {
		if !b.Active {
			continue
		}

		lastDate := "present"
		if time.Until(b.LastTransactionDate) < (-30 * 24 * time.Hour) {
			lastDate = b.LastTransactionDate.Format("Jan 2006")
		}

		if _, err := builder.WriteString(printer.Sprintf("  * %s %s (%s - %s) [%s]\n", b.Broker,
			b.SourceFile, b.FirstTransactionDate.Format("Jan 2006"), lastDate, b.ID.String()[:6])); err != nil {
			return "", err
		}
	}

	if _, err := builder.WriteString("## Inactive Import Batches\n\n"); err != nil {
		return "", err
	}

	for _, b := range batches {
		if b.Active {
			continue
		}

		if _, err := builder.WriteString(printer.Sprintf("  * %s %s [%s]\n", b.Broker, b.SourceFile, b.ID.String()[:6])); err != nil {
			return "", err
		}
	}

	return builder.String(), nil
}
