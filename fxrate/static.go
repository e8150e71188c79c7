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

package fxrate

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StaticTable is a Provider backed by an implementation-supplied,
// hard-coded monthly rate table — useful for tests and for currencies
// where an operator prefers to pin a fixed rate rather than depend on an
// external fetch.
type StaticTable struct {
	rates map[string]decimal.Decimal
}

// NewStaticTable builds a StaticTable from a map of MonthKey -> rate.
// Callers build keys with MonthKey to keep the format centralised.
func NewStaticTable(rates map[string]decimal.Decimal) *StaticTable {
	return &StaticTable{rates: rates}
}

// Rate implements Provider.
func (s *StaticTable) Rate(_ context.Context, date time.Time, currency string) (decimal.Decimal, error) {
	if rate, ok := s.rates[MonthKey(currency, date)]; ok {
		return rate, nil
	}
	return decimal.Zero, UnavailableError(date, currency, nil)
}
