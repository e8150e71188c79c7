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

// Package fxrate provides the currency-conversion collaborator the
// enrichment pipeline depends on: a lookup from (date, currency) to a
// GBP exchange rate at monthly granularity.
package fxrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrFXUnavailable is the FX_UNAVAILABLE error kind: a provider could not
// resolve a rate for the requested (date, currency). The enrichment
// pipeline treats this as a per-transaction taint rather than a fatal
// error.
var ErrFXUnavailable = errors.New("fx rate unavailable")

// Provider maps a (date, currency) pair to a GBP exchange rate. All
// transactions sharing a calendar month and currency MUST receive the
// same rate, so the core engine's deterministic-output guarantee holds
// regardless of which provider supplied the enrichment.
type Provider interface {
	// Rate returns the GBP rate for currency in the calendar month
	// containing date: 1 unit of currency = Rate GBP. Returns
	// ErrFXUnavailable (wrapped with the requested date/currency) when no
	// rate can be resolved.
	Rate(ctx context.Context, date time.Time, currency string) (decimal.Decimal, error)
}

// MonthKey returns the cache key a date falls into, the unit of
// granularity every Provider implementation caches and fetches by:
// "<currency>:<YYYY-MM>".
func MonthKey(currency string, date time.Time) string {
	return fmt.Sprintf("%s:%s", currency, date.Format("2006-01"))
}

// UnavailableError wraps the requested date/currency into ErrFXUnavailable
// so callers can report which lookups failed.
func UnavailableError(date time.Time, currency string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrFXUnavailable, currency, date.Format("2006-01"), cause)
	}
	return fmt.Errorf("%w: %s %s", ErrFXUnavailable, currency, date.Format("2006-01"))
}
