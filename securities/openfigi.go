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
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const openFigiMappingURL = "https://api.openfigi.com/v3/mapping"

type mappingResponse struct {
	Data []openFigiMatch `json:"data"`
}

// openFigiMatch is one OpenFIGI mapping result for a queried ticker.
type openFigiMatch struct {
	FIGI                string `json:"figi"`
	SecurityType        string `json:"securityType"`
	Ticker              string `json:"ticker"`
	Name                string `json:"name"`
	ExchangeCode        string `json:"exchCode"`
	ShareClassFIGI      string `json:"shareClassFIGI"`
	CompositeFIGI       string `json:"compositeFIGI"`
	SecurityType2       string `json:"securityType2"`
	SecurityDescription string `json:"securityDescription"`
}

type openFigiQuery struct {
	IdType       string `json:"idType"`
	IdValue      string `json:"idValue"`
	ExchangeCode string `json:"exchCode"`
}

// FIGIResolver queries OpenFIGI to map broker-local tickers to a stable
// Composite FIGI, which is then used as the canonical symbol whenever two
// brokers report the same company under different local tickers.
type FIGIResolver struct {
	client  *resty.Client
	limiter *rate.Limiter
	apiKey  string
}

// NewFIGIResolver builds a resolver rate-limited to OpenFIGI's documented
// free-tier ceiling of 25 requests per 6 seconds, each request batching up
// to 100 tickers.
func NewFIGIResolver(apiKey string) *FIGIResolver {
	return &FIGIResolver{
		client:  resty.New(),
		limiter: rate.NewLimiter(rate.Every((6*time.Second)/25), 10),
		apiKey:  apiKey,
	}
}

const figiBatchSize = 100

// Resolve looks up Composite FIGIs for a batch of broker-local tickers and
// merges the results into reg: every ticker OpenFIGI reports under the
// same Composite FIGI is folded into one Security keyed by that FIGI.
func (f *FIGIResolver) Resolve(ctx context.Context, reg *Registry, tickers []string) error {
	for start := 0; start < len(tickers); start += figiBatchSize {
		end := start + figiBatchSize
		if end > len(tickers) {
			end = len(tickers)
		}
		batch := tickers[start:end]

		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}

		matches, err := f.query(batch)
		if err != nil {
			log.Error().Err(err).Int("batchSize", len(batch)).Msg("openfigi mapping request failed")
			continue
		}

		for i, m := range matches {
			if m.CompositeFIGI == "" {
				continue
			}
			ticker := batch[i]

			sec, ok := reg.Security(m.CompositeFIGI)
			if !ok {
				sec = &Security{
					CanonicalSymbol: m.CompositeFIGI,
					CompositeFIGI:   m.CompositeFIGI,
					Name:            m.Name,
					SecurityType:    classify(m.SecurityType, m.SecurityType2),
					Active:          true,
				}
			}
			sec.Tickers = appendUnique(sec.Tickers, ticker)
			reg.Put(sec)
			reg.Merge(ticker, m.CompositeFIGI)
		}
	}

	return nil
}

// query sends one mapping request, one element per input ticker, in
// order — a missing match leaves a zero-value openFigiMatch in its slot
// so positional correlation with the input batch still holds.
func (f *FIGIResolver) query(tickers []string) ([]openFigiMatch, error) {
	queries := make([]openFigiQuery, len(tickers))
	for i, ticker := range tickers {
		queries[i] = openFigiQuery{IdType: "TICKER", IdValue: ticker, ExchangeCode: "US"}
	}

	var results []mappingResponse
	resp, err := f.client.R().
		SetHeader("X-OPENFIGI-APIKEY", f.apiKey).
		SetBody(queries).
		SetResult(&results).
		Post(openFigiMappingURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		log.Warn().Int("status", resp.StatusCode()).Str("body", string(resp.Body())).Msg("openfigi mapping returned an error status")
	}

	matches := make([]openFigiMatch, len(tickers))
	for i, r := range results {
		if len(r.Data) > 0 {
			matches[i] = r.Data[0]
		}
	}
	return matches, nil
}

func classify(securityType, securityType2 string) SecurityType {
	switch securityType2 {
	case "Common Stock", "Partnership Shares":
		return CommonStock
	case "Depositary Receipt":
		return ADR
	case "Mutual Fund":
		switch securityType {
		case "ETP":
			return ETF
		case "Open-End Fund", "Closed-End Fund":
			return MutualFund
		}
	}
	return Unknown
}
