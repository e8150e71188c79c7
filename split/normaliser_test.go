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

package split_test

import (
	"testing"
	"time"

	"github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/briarcliff-tax/ukcgt/cgt"
	"github.com/briarcliff-tax/ukcgt/split"
)

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func decEqual(a, b decimal.Decimal) bool { return a.Equal(b) }

func TestNormalise_SingleForwardSplit(t *testing.T) {
	g := gomega.NewWithT(t)

	reg := split.NewRegistry([]split.Event{
		{Symbol: "NVDA", EffectiveDate: mustDate("2024-06-10"), Ratio: decimal.NewFromInt(10)},
	})

	price := decimal.NewFromInt(400)
	txs := []cgt.Transaction{
		{Symbol: "NVDA", Date: mustDate("2024-05-01"), Kind: cgt.Buy, Quantity: decimal.NewFromInt(10), Price: &price},
	}

	out := split.Normalise(reg, "NVDA", txs)
	g.Expect(out).To(gomega.HaveLen(1))
	g.Expect(decEqual(out[0].Quantity, decimal.NewFromInt(100))).To(gomega.BeTrue())
	g.Expect(decEqual(*out[0].Price, decimal.NewFromInt(40))).To(gomega.BeTrue())
}

func TestNormalise_TransactionOnEffectiveDateIsPostSplit(t *testing.T) {
	g := gomega.NewWithT(t)

	reg := split.NewRegistry([]split.Event{
		{Symbol: "NVDA", EffectiveDate: mustDate("2024-06-10"), Ratio: decimal.NewFromInt(10)},
	})

	price := decimal.NewFromInt(40)
	txs := []cgt.Transaction{
		{Symbol: "NVDA", Date: mustDate("2024-06-10"), Kind: cgt.Buy, Quantity: decimal.NewFromInt(100), Price: &price},
	}

	out := split.Normalise(reg, "NVDA", txs)
	g.Expect(decEqual(out[0].Quantity, decimal.NewFromInt(100))).To(gomega.BeTrue())
	g.Expect(decEqual(*out[0].Price, decimal.NewFromInt(40))).To(gomega.BeTrue())
}

func TestNormalise_CompoundingSplits(t *testing.T) {
	g := gomega.NewWithT(t)

	reg := split.NewRegistry([]split.Event{
		{Symbol: "NVDA", EffectiveDate: mustDate("2021-07-20"), Ratio: decimal.NewFromInt(4)},
		{Symbol: "NVDA", EffectiveDate: mustDate("2024-06-10"), Ratio: decimal.NewFromInt(10)},
	})

	txs := []cgt.Transaction{
		{Symbol: "NVDA", Date: mustDate("2020-01-01"), Kind: cgt.Buy, Quantity: decimal.NewFromInt(1)},
	}

	out := split.Normalise(reg, "NVDA", txs)
	g.Expect(decEqual(out[0].Quantity, decimal.NewFromInt(40))).To(gomega.BeTrue())
}

func TestNormalise_ReverseSplitPreservesFractionalShares(t *testing.T) {
	g := gomega.NewWithT(t)

	reg := split.NewRegistry([]split.Event{
		{Symbol: "XYZ", EffectiveDate: mustDate("2023-01-01"), Ratio: decimal.NewFromFloat(0.1)},
	})

	txs := []cgt.Transaction{
		{Symbol: "XYZ", Date: mustDate("2022-01-01"), Kind: cgt.Buy, Quantity: decimal.NewFromInt(100)},
	}

	out := split.Normalise(reg, "XYZ", txs)
	g.Expect(decEqual(out[0].Quantity, decimal.NewFromInt(10))).To(gomega.BeTrue())
}

func TestNormalise_LeavesMonetaryTotalsUntouched(t *testing.T) {
	g := gomega.NewWithT(t)

	reg := split.NewRegistry([]split.Event{
		{Symbol: "NVDA", EffectiveDate: mustDate("2024-06-10"), Ratio: decimal.NewFromInt(10)},
	})

	total := decimal.NewFromInt(4000)
	fee := decimal.NewFromFloat(9.99)
	txs := []cgt.Transaction{
		{Symbol: "NVDA", Date: mustDate("2024-05-01"), Kind: cgt.Buy, Quantity: decimal.NewFromInt(10), Total: &total, Fee: &fee},
	}

	out := split.Normalise(reg, "NVDA", txs)
	g.Expect(decEqual(*out[0].Total, total)).To(gomega.BeTrue())
	g.Expect(decEqual(*out[0].Fee, fee)).To(gomega.BeTrue())
}

func TestNormalise_ReciprocalRatiosRoundTrip(t *testing.T) {
	g := gomega.NewWithT(t)

	forward := split.NewRegistry([]split.Event{
		{Symbol: "NVDA", EffectiveDate: mustDate("2024-06-10"), Ratio: decimal.NewFromInt(10)},
	})
	inverse := split.NewRegistry([]split.Event{
		{Symbol: "NVDA", EffectiveDate: mustDate("2024-06-10"), Ratio: decimal.NewFromInt(1).Div(decimal.NewFromInt(10))},
	})

	txs := []cgt.Transaction{
		{Symbol: "NVDA", Date: mustDate("2024-05-01"), Kind: cgt.Buy, Quantity: decimal.NewFromInt(10)},
	}

	roundTripped := split.Normalise(inverse, "NVDA", split.Normalise(forward, "NVDA", txs))
	g.Expect(decEqual(roundTripped[0].Quantity, txs[0].Quantity)).To(gomega.BeTrue())
}

func TestNormalise_DoesNotMutateInput(t *testing.T) {
	g := gomega.NewWithT(t)

	reg := split.NewRegistry([]split.Event{
		{Symbol: "NVDA", EffectiveDate: mustDate("2024-06-10"), Ratio: decimal.NewFromInt(10)},
	})

	txs := []cgt.Transaction{
		{Symbol: "NVDA", Date: mustDate("2024-05-01"), Kind: cgt.Buy, Quantity: decimal.NewFromInt(10)},
	}

	_ = split.Normalise(reg, "NVDA", txs)
	g.Expect(decEqual(txs[0].Quantity, decimal.NewFromInt(10))).To(gomega.BeTrue())
}
