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

// Package broker defines the boundary between a broker's native export
// format and the canonical cgt.Transaction shape the rest of the system
// consumes. Per-broker detection and parsing is explicitly out of scope;
// this package holds only the Parser interface and one reference
// implementation, GenericCSV, exercised by the import command.
package broker

import (
	"io"

	"github.com/briarcliff-tax/ukcgt/cgt"
)

// Parser converts a single broker export file into canonical
// transactions. Implementations do not resolve tickers to canonical
// symbols or assign tax years — that is the securities registry's and
// enrich pipeline's job respectively; a Parser's only responsibility is
// to read the broker's native layout faithfully.
type Parser interface {
	// Name identifies the broker/format this parser understands, e.g.
	// "generic-csv".
	Name() string

	// Parse reads r and returns transactions in file order. ParseSeq is
	// left at its zero value; the caller assigns it when the batch is
	// saved, since only the caller knows the batch's position relative to
	// previously imported transactions.
	Parse(r io.Reader) ([]cgt.Transaction, error)
}
