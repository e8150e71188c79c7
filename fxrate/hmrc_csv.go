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
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// hmrcCSVBaseURL is HMRC's published exchange-rate-for-customs-and-vat
// monthly CSV feed, one file per month.
const hmrcCSVBaseURL = "https://www.trade-tariff.service.gov.uk/api/v2/exchange_rates/files/monthly_csv_%s.csv"

type hmrcCSVRow struct {
	CountryCode  string `csv:"country_code"`
	CurrencyCode string `csv:"currency_code"`
	Currency     string `csv:"currency_name"`
	Rate         string `csv:"rate"`
}

// HMRCCSVProvider fetches HMRC's published monthly average exchange rate
// tables over HTTP and decodes them in place. Results are cached per
// (currency, month) in Cache so repeated lookups within a month never
// re-fetch and every transaction in one calendar month receives the
// same rate.
type HMRCCSVProvider struct {
	client  *resty.Client
	cache   *Cache
	limiter *rate.Limiter
}

// NewHMRCCSVProvider returns a provider rate-limited to one fetch every
// two seconds, HMRC's feed being a small monthly file rather than a
// high-throughput API.
func NewHMRCCSVProvider(cache *Cache) *HMRCCSVProvider {
	return &HMRCCSVProvider{
		client:  resty.New(),
		cache:   cache,
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

// Rate implements Provider.
func (h *HMRCCSVProvider) Rate(ctx context.Context, date time.Time, currency string) (decimal.Decimal, error) {
	if cached, ok := h.cache.Get(currency, date); ok {
		return cached, nil
	}

	if err := h.limiter.Wait(ctx); err != nil {
		return decimal.Zero, UnavailableError(date, currency, err)
	}

	url := fmt.Sprintf(hmrcCSVBaseURL, date.Format("2006-01"))
	resp, err := h.client.R().SetContext(ctx).Get(url)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("hmrc exchange rate csv fetch failed")
		return decimal.Zero, UnavailableError(date, currency, err)
	}
	if resp.StatusCode() >= 400 {
		log.Error().Int("status", resp.StatusCode()).Str("url", url).Msg("hmrc exchange rate csv returned invalid status code")
		return decimal.Zero, UnavailableError(date, currency, fmt.Errorf("status %d", resp.StatusCode()))
	}

	var rows []*hmrcCSVRow
	if err := gocsv.UnmarshalBytes(resp.Body(), &rows); err != nil {
		log.Error().Err(err).Str("url", url).Msg("hmrc exchange rate csv decode failed")
		return decimal.Zero, UnavailableError(date, currency, err)
	}

	for _, row := range rows {
		if row.CurrencyCode != currency {
			continue
		}
		rate, err := decimal.NewFromString(row.Rate)
		if err != nil {
			return decimal.Zero, UnavailableError(date, currency, err)
		}
		h.cache.Set(currency, date, rate)
		return rate, nil
	}

	return decimal.Zero, UnavailableError(date, currency, fmt.Errorf("currency %s not present in monthly table", currency))
}
