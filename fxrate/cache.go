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
	"time"

	"github.com/alphadose/haxmap"
	"github.com/shopspring/decimal"
)

// Cache is a concurrency-safe monthly-rate cache shared by
// HMRCCSVProvider and HMRCScrapeProvider (StaticTable reads its own map
// and does not use it), keyed by MonthKey: a small, hot, read-mostly lookup
// table accessed by concurrent enrichment goroutines without a mutex.
type Cache struct {
	rates *haxmap.Map[string, decimal.Decimal]
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{rates: haxmap.New[string, decimal.Decimal]()}
}

// Get returns the cached rate for (currency, date)'s month, if present.
func (c *Cache) Get(currency string, date time.Time) (decimal.Decimal, bool) {
	return c.rates.Get(MonthKey(currency, date))
}

// Set stores rate for (currency, date)'s month.
func (c *Cache) Set(currency string, date time.Time, rate decimal.Decimal) {
	c.rates.Set(MonthKey(currency, date), rate)
}
