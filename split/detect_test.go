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
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/briarcliff-tax/ukcgt/cgt"
	"github.com/briarcliff-tax/ukcgt/split"
)

func pricedTx(symbol, dateStr string, price int64) cgt.Transaction {
	p := decimal.NewFromInt(price)
	return cgt.Transaction{
		Symbol:   symbol,
		Date:     mustDate(dateStr),
		Kind:     cgt.Buy,
		Quantity: decimal.NewFromInt(1),
		Price:    &p,
	}
}

func TestDetectUnknown_FlagsSplitShapedJumpWithNoRegistryEvent(t *testing.T) {
	g := gomega.NewWithT(t)

	txs := []cgt.Transaction{
		pricedTx("MYST", "2024-05-01", 400),
		pricedTx("MYST", "2024-07-01", 40),
	}

	err := split.DetectUnknown(split.NewRegistry(nil), txs)
	g.Expect(err).To(gomega.HaveOccurred())
	g.Expect(errors.Is(err, split.ErrUnknownSplit)).To(gomega.BeTrue())
	g.Expect(err.Error()).To(gomega.ContainSubstring("MYST"))
	g.Expect(err.Error()).To(gomega.ContainSubstring("10:1"))
}

func TestDetectUnknown_QuietWhenRegistryExplainsTheJump(t *testing.T) {
	g := gomega.NewWithT(t)

	reg := split.NewRegistry([]split.Event{
		{Symbol: "NVDA", EffectiveDate: mustDate("2024-06-10"), Ratio: decimal.NewFromInt(10)},
	})

	txs := []cgt.Transaction{
		pricedTx("NVDA", "2024-05-01", 400),
		pricedTx("NVDA", "2024-07-01", 40),
	}

	g.Expect(split.DetectUnknown(reg, txs)).To(gomega.Succeed())
}

func TestDetectUnknown_IgnoresOrdinaryPriceMoves(t *testing.T) {
	g := gomega.NewWithT(t)

	txs := []cgt.Transaction{
		pricedTx("AAPL", "2024-05-01", 150),
		pricedTx("AAPL", "2024-07-01", 180),
	}

	g.Expect(split.DetectUnknown(split.NewRegistry(nil), txs)).To(gomega.Succeed())
}

func TestDetectUnknown_FlagsReverseSplits(t *testing.T) {
	g := gomega.NewWithT(t)

	txs := []cgt.Transaction{
		pricedTx("TINY", "2024-05-01", 2),
		pricedTx("TINY", "2024-07-01", 20),
	}

	err := split.DetectUnknown(split.NewRegistry(nil), txs)
	g.Expect(err).To(gomega.HaveOccurred())
	g.Expect(errors.Is(err, split.ErrUnknownSplit)).To(gomega.BeTrue())
}

func TestDetectUnknown_CollectsOneWarningPerSuspectGap(t *testing.T) {
	g := gomega.NewWithT(t)

	txs := []cgt.Transaction{
		pricedTx("AAA", "2024-05-01", 400),
		pricedTx("AAA", "2024-07-01", 40),
		pricedTx("BBB", "2024-05-01", 90),
		pricedTx("BBB", "2024-07-01", 30),
	}

	err := split.DetectUnknown(split.NewRegistry(nil), txs)
	g.Expect(err).To(gomega.HaveOccurred())

	var merr *multierror.Error
	g.Expect(errors.As(err, &merr)).To(gomega.BeTrue())
	g.Expect(merr.Errors).To(gomega.HaveLen(2))
}
