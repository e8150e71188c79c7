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

package enrich

import (
	"fmt"

	"github.com/briarcliff-tax/ukcgt/cgt"
)

// RewriteTransfersToSyntheticBuys converts every TRANSFER-in (a total or
// price recording a carried-forward cost basis) into a synthetic BUY
// dated at the transfer date, so the matching engine never needs to know
// TRANSFER exists. A TRANSFER with no recorded cost (quantity only, cost
// basis tracked elsewhere) is dropped: beneficial ownership is unchanged,
// so it is not a disposal and carries nothing for the engine to match.
//
// Transfers between accounts are not a CGT event under TCGA92 provided
// beneficial ownership is unchanged, but a transfer that records an
// acquisition cost must still seed the destination symbol's Section 104
// pool.
func RewriteTransfersToSyntheticBuys(txs []cgt.Transaction) []cgt.Transaction {
	out := make([]cgt.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Kind != cgt.Transfer {
			out = append(out, tx)
			continue
		}
		if tx.Total == nil && tx.Price == nil {
			continue
		}
		synthetic := tx
		synthetic.Kind = cgt.Buy
		synthetic.ID = fmt.Sprintf("transfer-synthetic-%s", tx.ID)
		out = append(out, synthetic)
	}
	return out
}
