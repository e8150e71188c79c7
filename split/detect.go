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

package split

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"

	"github.com/briarcliff-tax/ukcgt/cgt"
)

// ErrUnknownSplit flags a price discontinuity that looks like a share
// split with no matching event in the registry. It is a warning: the
// affected transactions still flow through the pipeline unadjusted.
var ErrUnknownSplit = errors.New("suspected split missing from registry")

// detectMinRatio is the smallest price jump treated as a suspected
// split; anything under 2:1 is indistinguishable from an ordinary price
// move.
var detectMinRatio = decimal.NewFromInt(2)

// detectTolerance is how far from a whole-number ratio a price jump may
// be and still count as split-shaped, as a fraction of the ratio.
var detectTolerance = decimal.NewFromFloat(0.05)

// DetectUnknown scans transactions — which may span symbols — for
// consecutive same-symbol prices that jump by roughly a whole-number
// factor with no registry event between the two dates. One warning is
// produced per suspect gap, collected into a single multierror so a
// caller can report every affected symbol at once; nil means nothing
// suspicious was found.
func DetectUnknown(reg *Registry, txs []cgt.Transaction) error {
	bySymbol := make(map[string][]cgt.Transaction)
	for _, tx := range txs {
		if tx.Price == nil || !tx.Price.IsPositive() {
			continue
		}
		bySymbol[tx.Symbol] = append(bySymbol[tx.Symbol], tx)
	}

	symbols := make([]string, 0, len(bySymbol))
	for symbol := range bySymbol {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var result *multierror.Error
	for _, symbol := range symbols {
		group := bySymbol[symbol]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Date.Before(group[j].Date)
		})

		events := reg.EventsFor(symbol)
		for i := 1; i < len(group); i++ {
			prev, cur := group[i-1], group[i]

			ratio, ok := splitShapedRatio(*prev.Price, *cur.Price)
			if !ok {
				continue
			}
			if eventBetween(events, prev.Date, cur.Date) {
				continue
			}
			result = multierror.Append(result, fmt.Errorf(
				"%w: %s price moved %s to %s between %s and %s (looks like a %s:1 split)",
				ErrUnknownSplit, symbol,
				prev.Price.String(), cur.Price.String(),
				prev.Date.Format("2006-01-02"), cur.Date.Format("2006-01-02"),
				ratio.String()))
		}
	}

	return result.ErrorOrNil()
}

// splitShapedRatio reports whether the move from prev to cur looks like
// a forward or reverse split, returning the whole-number ratio it
// resembles. Forward splits divide the price, reverse splits multiply
// it; both directions are checked.
func splitShapedRatio(prev, cur decimal.Decimal) (decimal.Decimal, bool) {
	for _, r := range []decimal.Decimal{prev.Div(cur), cur.Div(prev)} {
		nearest := r.Round(0)
		if nearest.LessThan(detectMinRatio) {
			continue
		}
		if r.Sub(nearest).Abs().Div(nearest).LessThanOrEqual(detectTolerance) {
			return nearest, true
		}
	}
	return decimal.Zero, false
}

// eventBetween reports whether any known split takes effect after the
// earlier transaction and no later than the later one — the gap a
// registry event must fall in to explain the observed price jump.
func eventBetween(events []Event, after, upto time.Time) bool {
	for _, ev := range events {
		if ev.EffectiveDate.After(after) && !ev.EffectiveDate.After(upto) {
			return true
		}
	}
	return false
}
