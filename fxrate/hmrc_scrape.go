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
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/briarcliff-tax/ukcgt/playwright_helpers"
)

const hmrcRatesPageURL = "https://www.gov.uk/government/publications/hmrc-exchange-rates-for-2024-monthly"

// HMRCScrapeProvider is an alternative to HMRCCSVProvider for when its
// feed is unavailable; nothing in the CLI switches to it automatically.
// It drives a headless browser against HMRC's published
// rates page and scrapes the rendered table, via the shared
// playwright_helpers bootstrap (StartPlaywright/StopPlaywright/
// StealthPage).
type HMRCScrapeProvider struct {
	cache    *Cache
	headless bool
}

// NewHMRCScrapeProvider returns a scrape-based alternative provider. Set
// headless to false only for local debugging of the scrape selectors.
func NewHMRCScrapeProvider(cache *Cache, headless bool) *HMRCScrapeProvider {
	return &HMRCScrapeProvider{cache: cache, headless: headless}
}

// Rate implements Provider. Each call starts and tears down its own
// browser session; callers invoke this rarely (the CSV provider is
// preferred and results are cached per month), so the session overhead
// is acceptable.
func (h *HMRCScrapeProvider) Rate(ctx context.Context, date time.Time, currency string) (decimal.Decimal, error) {
	if cached, ok := h.cache.Get(currency, date); ok {
		return cached, nil
	}

	page, browserCtx, browser, pw := playwright_helpers.StartPlaywright(h.headless)
	defer playwright_helpers.StopPlaywright(page, browserCtx, browser, pw)

	if _, err := page.Goto(hmrcRatesPageURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	}); err != nil {
		log.Error().Err(err).Str("url", hmrcRatesPageURL).Msg("hmrc rates page scrape failed")
		return decimal.Zero, UnavailableError(date, currency, err)
	}

	rows, err := page.QuerySelectorAll("table tbody tr")
	if err != nil {
		return decimal.Zero, UnavailableError(date, currency, err)
	}

	for _, row := range rows {
		text, err := row.InnerText()
		if err != nil {
			continue
		}
		if !strings.Contains(text, currency) {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		last := fields[len(fields)-1]
		rate, err := decimal.NewFromString(last)
		if err != nil {
			continue
		}
		h.cache.Set(currency, date, rate)
		return rate, nil
	}

	return decimal.Zero, UnavailableError(date, currency, fmt.Errorf("currency %s not found on scraped page", currency))
}
