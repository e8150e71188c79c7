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

// Package split normalises historical quantities and prices into units
// comparable with post-split transactions, per HMRC TCGA92/S127.
package split

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Event is one corporate action affecting a symbol's share count. Ratio
// greater than one means the share count multiplied (a conventional
// forward split); a ratio less than one is a reverse split.
type Event struct {
	Symbol        string
	EffectiveDate time.Time
	Ratio         decimal.Decimal
}

// Registry is a static, implementation-supplied table of known splits,
// loaded once at startup and never mutated by the engine.
type Registry struct {
	events map[string][]Event
}

// NewRegistry builds a Registry from a flat slice of events, grouping and
// sorting them by symbol and effective date so EventsFor returns them in
// chronological order.
func NewRegistry(events []Event) *Registry {
	r := &Registry{events: make(map[string][]Event)}
	for _, e := range events {
		r.events[e.Symbol] = append(r.events[e.Symbol], e)
	}
	for symbol := range r.events {
		evs := r.events[symbol]
		sort.Slice(evs, func(i, j int) bool {
			return evs[i].EffectiveDate.Before(evs[j].EffectiveDate)
		})
		r.events[symbol] = evs
	}
	return r
}

// EventsFor returns the known splits for symbol in chronological order.
// The returned slice is owned by the registry and must not be mutated.
func (r *Registry) EventsFor(symbol string) []Event {
	return r.events[symbol]
}

// KnownSplits is the static table of well-known splits shipped with the
// engine. Implementations may merge additional events supplied at
// runtime (e.g. from a broker corporate-actions feed) via NewRegistry.
var KnownSplits = []Event{
	{Symbol: "NVDA", EffectiveDate: time.Date(2021, time.July, 20, 0, 0, 0, 0, time.UTC), Ratio: decimal.NewFromInt(4)},
	{Symbol: "NVDA", EffectiveDate: time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC), Ratio: decimal.NewFromInt(10)},
	{Symbol: "AAPL", EffectiveDate: time.Date(2020, time.August, 31, 0, 0, 0, 0, time.UTC), Ratio: decimal.NewFromInt(4)},
	{Symbol: "TSLA", EffectiveDate: time.Date(2020, time.August, 31, 0, 0, 0, 0, time.UTC), Ratio: decimal.NewFromInt(5)},
	{Symbol: "TSLA", EffectiveDate: time.Date(2022, time.August, 25, 0, 0, 0, 0, time.UTC), Ratio: decimal.NewFromInt(3)},
	{Symbol: "GOOGL", EffectiveDate: time.Date(2022, time.July, 18, 0, 0, 0, 0, time.UTC), Ratio: decimal.NewFromInt(20)},
	{Symbol: "AMZN", EffectiveDate: time.Date(2022, time.June, 6, 0, 0, 0, 0, time.UTC), Ratio: decimal.NewFromInt(20)},
}

// DefaultRegistry is the Registry built from KnownSplits, ready for use
// where the caller has no broker-supplied supplementary events.
var DefaultRegistry = NewRegistry(KnownSplits)
