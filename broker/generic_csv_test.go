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

package broker_test

import (
	"strings"
	"testing"

	"github.com/onsi/gomega"

	"github.com/briarcliff-tax/ukcgt/broker"
	"github.com/briarcliff-tax/ukcgt/cgt"
)

func TestGenericCSV_ParsesBuyAndSell(t *testing.T) {
	g := gomega.NewWithT(t)

	csv := `date,kind,symbol,quantity,price,total,fee,currency
2024-01-10,BUY,VWRL,100,85.50,8550.00,5.00,GBP
2024-06-15,SELL,VWRL,40,92.25,3690.00,5.00,GBP
`

	p := &broker.GenericCSV{Source: "testbroker"}
	txs, err := p.Parse(strings.NewReader(csv))
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(txs).To(gomega.HaveLen(2))

	g.Expect(txs[0].Kind).To(gomega.Equal(cgt.Buy))
	g.Expect(txs[0].Symbol).To(gomega.Equal("VWRL"))
	g.Expect(txs[0].Currency).To(gomega.Equal("GBP"))
	g.Expect(txs[0].Source).To(gomega.Equal("testbroker"))
	g.Expect(txs[0].Quantity.String()).To(gomega.Equal("100"))
	g.Expect(txs[0].Price).NotTo(gomega.BeNil())
	g.Expect(txs[0].Price.String()).To(gomega.Equal("85.5"))
	g.Expect(txs[0].Fee).NotTo(gomega.BeNil())

	g.Expect(txs[1].Kind).To(gomega.Equal(cgt.Sell))
}

func TestGenericCSV_DefaultsCurrencyToGBP(t *testing.T) {
	g := gomega.NewWithT(t)

	csv := `date,kind,symbol,quantity,price,total,fee,currency
2024-03-01,BUY,AAPL,10,150.00,1500.00,,
`

	p := &broker.GenericCSV{}
	txs, err := p.Parse(strings.NewReader(csv))
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(txs).To(gomega.HaveLen(1))
	g.Expect(txs[0].Currency).To(gomega.Equal("GBP"))
	g.Expect(txs[0].Source).To(gomega.Equal("generic-csv"))
	g.Expect(txs[0].Fee).To(gomega.BeNil())
}

func TestGenericCSV_RejectsUnrecognisedKind(t *testing.T) {
	g := gomega.NewWithT(t)

	csv := `date,kind,symbol,quantity,price,total,fee,currency
2024-03-01,SPLIT,AAPL,10,150.00,1500.00,0,GBP
`

	p := &broker.GenericCSV{}
	_, err := p.Parse(strings.NewReader(csv))
	g.Expect(err).To(gomega.HaveOccurred())
	g.Expect(err.Error()).To(gomega.ContainSubstring("unrecognised transaction kind"))
}

func TestGenericCSV_RejectsNegativeQuantity(t *testing.T) {
	g := gomega.NewWithT(t)

	csv := `date,kind,symbol,quantity,price,total,fee,currency
2024-03-01,SELL,AAPL,-10,150.00,1500.00,0,GBP
`

	p := &broker.GenericCSV{}
	_, err := p.Parse(strings.NewReader(csv))
	g.Expect(err).To(gomega.HaveOccurred())
	g.Expect(err.Error()).To(gomega.ContainSubstring("negative quantity"))
}

func TestGenericCSV_RejectsBadDate(t *testing.T) {
	g := gomega.NewWithT(t)

	csv := `date,kind,symbol,quantity,price,total,fee,currency
15/03/2024,BUY,AAPL,10,150.00,1500.00,0,GBP
`

	p := &broker.GenericCSV{}
	_, err := p.Parse(strings.NewReader(csv))
	g.Expect(err).To(gomega.HaveOccurred())
}

func TestAssignParseSeq(t *testing.T) {
	g := gomega.NewWithT(t)

	txs := []cgt.Transaction{{}, {}, {}}
	broker.AssignParseSeq(txs, 5)

	g.Expect(txs[0].ParseSeq).To(gomega.Equal(5))
	g.Expect(txs[1].ParseSeq).To(gomega.Equal(6))
	g.Expect(txs[2].ParseSeq).To(gomega.Equal(7))
}
