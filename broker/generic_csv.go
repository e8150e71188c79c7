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
package broker

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/briarcliff-tax/ukcgt/cgt"
)

// genericCSVRow is the column layout GenericCSV expects: a flattened,
// broker-agnostic shape close enough to what most UK brokers export that
// a user can reshuffle columns in a spreadsheet before importing. Money
// fields are read as strings and converted explicitly, the same
// string-then-decimal.NewFromString approach fxrate.HMRCCSVProvider uses
// for HMRC's published rate tables, rather than trusting gocsv's
// reflection-based decimal support.
type genericCSVRow struct {
	Date     string `csv:"date"`
	Kind     string `csv:"kind"`
	Symbol   string `csv:"symbol"`
	Quantity string `csv:"quantity"`
	Price    string `csv:"price"`
	Total    string `csv:"total"`
	Fee      string `csv:"fee"`
	Currency string `csv:"currency"`
}

// GenericCSV is the one reference broker.Parser implementation: a
// column-mapped CSV layout broad enough to cover a typical broker
// contract-note export. Per-broker auto-detection (recognising a
// specific broker's native column headers) is out of scope; users
// reshape their export to this layout before import.
type GenericCSV struct {
	// Source labels cgt.Transaction.Source, e.g. the broker's name. Left
	// empty, transactions are tagged "generic-csv".
	Source string
}

func (g *GenericCSV) Name() string { return "generic-csv" }

func (g *GenericCSV) Parse(r io.Reader) ([]cgt.Transaction, error) {
	var rows []genericCSVRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("generic csv: %w", err)
	}

	source := g.Source
	if source == "" {
		source = g.Name()
	}

	txs := make([]cgt.Transaction, 0, len(rows))
	for i, row := range rows {
		tx, err := g.parseRow(row, source)
		if err != nil {
			return nil, fmt.Errorf("generic csv: row %d: %w", i+1, err)
		}
		txs = append(txs, tx)
	}

	return txs, nil
}

func (g *GenericCSV) parseRow(row genericCSVRow, source string) (cgt.Transaction, error) {
	date, err := time.Parse("2006-01-02", strings.TrimSpace(row.Date))
	if err != nil {
		return cgt.Transaction{}, fmt.Errorf("parse date %q: %w", row.Date, err)
	}

	kind, err := parseKind(row.Kind)
	if err != nil {
		return cgt.Transaction{}, err
	}

	quantity, err := decimal.NewFromString(strings.TrimSpace(row.Quantity))
	if err != nil {
		return cgt.Transaction{}, fmt.Errorf("parse quantity %q: %w", row.Quantity, err)
	}
	// Quantity is always non-negative; direction is carried by Kind. A
	// negative value here is a malformed export (or a broker's sign
	// convention this layout does not use) and must never reach matching,
	// where it would corrupt reservation tracking.
	if quantity.IsNegative() {
		return cgt.Transaction{}, fmt.Errorf("negative quantity %q", row.Quantity)
	}

	currency := strings.ToUpper(strings.TrimSpace(row.Currency))
	if currency == "" {
		currency = "GBP"
	}

	tx := cgt.Transaction{
		ID:       uuid.NewString(),
		Date:     date,
		Kind:     kind,
		Symbol:   strings.TrimSpace(row.Symbol),
		Quantity: quantity,
		Currency: currency,
		Source:   source,
	}

	if price, ok, err := parseOptionalDecimal(row.Price); err != nil {
		return cgt.Transaction{}, fmt.Errorf("parse price %q: %w", row.Price, err)
	} else if ok {
		tx.Price = &price
	}

	if total, ok, err := parseOptionalDecimal(row.Total); err != nil {
		return cgt.Transaction{}, fmt.Errorf("parse total %q: %w", row.Total, err)
	} else if ok {
		tx.Total = &total
	}

	if fee, ok, err := parseOptionalDecimal(row.Fee); err != nil {
		return cgt.Transaction{}, fmt.Errorf("parse fee %q: %w", row.Fee, err)
	} else if ok {
		tx.Fee = &fee
	}

	return tx, nil
}

func parseOptionalDecimal(s string) (decimal.Decimal, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false, nil
	}
	d, err := decimal.NewFromString(s)
	return d, err == nil, err
}

func parseKind(s string) (cgt.Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return cgt.Buy, nil
	case "SELL":
		return cgt.Sell, nil
	case "DIVIDEND":
		return cgt.Dividend, nil
	case "INTEREST":
		return cgt.Interest, nil
	case "TAX":
		return cgt.Tax, nil
	case "FEE":
		return cgt.Fee, nil
	case "TRANSFER":
		return cgt.Transfer, nil
	default:
		return "", fmt.Errorf("unrecognised transaction kind %q", s)
	}
}

// AssignParseSeq stamps txs with a monotonically increasing ParseSeq
// starting at start, so a batch appended to an existing import gets
// sequence numbers after whatever was already saved.
func AssignParseSeq(txs []cgt.Transaction, start int) {
	for i := range txs {
		txs[i].ParseSeq = start + i
	}
}
