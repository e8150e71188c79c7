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

package cgt

import (
	"fmt"
	"time"
)

// RateChangeDate is 30 October 2024, the date the higher CGT rates
// introduced in the Autumn Budget 2024 took effect mid-way through the
// 2024/25 tax year. Disposals on or after this date within the 2024/25
// tax year use the post-Budget rates; earlier disposals in the same tax
// year use the pre-Budget rates.
var RateChangeDate = time.Date(2024, time.October, 30, 0, 0, 0, 0, time.UTC)

// TaxYearFor returns the UK tax year label ("2024/25") that date falls
// in. The UK tax year runs 6 April to the following 5 April inclusive.
func TaxYearFor(date time.Time) string {
	y := date.Year()
	start := time.Date(y, time.April, 6, 0, 0, 0, 0, time.UTC)
	if date.Before(start) {
		return fmt.Sprintf("%d/%02d", y-1, y%100)
	}
	return fmt.Sprintf("%d/%02d", y, (y+1)%100)
}

// IsPostRateChange reports whether date falls on or after the 30 October
// 2024 in-year CGT rate change.
func IsPostRateChange(date time.Time) bool {
	return !date.Before(RateChangeDate)
}
