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
package securities

import (
	"context"
	"fmt"

	"github.com/alphadose/haxmap"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Registry is an in-memory ticker-to-canonical-symbol lookup, backed by a
// lock-free map so concurrent callers can resolve symbols without
// contending on a mutex.
type Registry struct {
	byTicker *haxmap.Map[string, string]
	bySymbol *haxmap.Map[string, *Security]
}

// NewRegistry returns an empty Registry. Callers typically follow it with
// LoadFromDB to prime the cache from the security_master table.
func NewRegistry() *Registry {
	return &Registry{
		byTicker: haxmap.New[string, string](),
		bySymbol: haxmap.New[string, *Security](),
	}
}

// Resolve returns the canonical symbol for a broker-local ticker. When the
// ticker has never been seen, it is registered as its own canonical
// symbol — a new, unmapped ticker is its own company until proven
// otherwise by a later FIGI resolution or manual merge.
func (r *Registry) Resolve(ticker string) string {
	if symbol, ok := r.byTicker.Get(ticker); ok {
		return symbol
	}
	r.byTicker.Set(ticker, ticker)
	return ticker
}

// Merge records that ticker resolves to canonicalSymbol, overriding any
// prior self-mapping. Used once a Security's CompositeFIGI is known, or
// when two broker-local tickers are confirmed to name the same company.
func (r *Registry) Merge(ticker, canonicalSymbol string) {
	r.byTicker.Set(ticker, canonicalSymbol)
	if sec, ok := r.bySymbol.Get(canonicalSymbol); ok {
		sec.Tickers = appendUnique(sec.Tickers, ticker)
	}
}

// Put registers sec under its canonical symbol and maps every one of its
// known tickers to that symbol.
func (r *Registry) Put(sec *Security) {
	r.bySymbol.Set(sec.CanonicalSymbol, sec)
	for _, ticker := range sec.Tickers {
		r.byTicker.Set(ticker, sec.CanonicalSymbol)
	}
}

// Security returns the full record for a canonical symbol, if known.
func (r *Registry) Security(canonicalSymbol string) (*Security, bool) {
	return r.bySymbol.Get(canonicalSymbol)
}

// LoadFromDB primes the registry from the persisted security_master
// table, so a restart does not forget ticker merges made in earlier runs.
func (r *Registry) LoadFromDB(ctx context.Context, dbConn *pgxpool.Conn, table string) error {
	sql := fmt.Sprintf("SELECT canonical_symbol, name, security_type, tickers, composite_figi, active, last_updated FROM %s WHERE active=true", table)

	rows, err := dbConn.Query(ctx, sql)
	if err != nil {
		return fmt.Errorf("query security master: %w", err)
	}

	var secs []*Security
	if err := pgxscan.ScanAll(&secs, rows); err != nil {
		return fmt.Errorf("scan security master: %w", err)
	}

	for _, sec := range secs {
		r.Put(sec)
	}

	log.Debug().Int("count", len(secs)).Msg("loaded security master cache")
	return nil
}

func appendUnique(tickers []string, ticker string) []string {
	for _, t := range tickers {
		if t == ticker {
			return tickers
		}
	}
	return append(tickers, ticker)
}
