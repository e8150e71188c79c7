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
package report

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/briarcliff-tax/ukcgt/aggregate"
	"github.com/briarcliff-tax/ukcgt/cgt"
)

// disposalCSVRow is the flat, spreadsheet-friendly shape a disposal record
// exports to. Money fields are plain strings, filled from
// decimal.Decimal.StringFixed(2) so each amount is written to pence.
type disposalCSVRow struct {
	DisposalID        string `csv:"disposal_id"`
	Symbol            string `csv:"symbol"`
	Date              string `csv:"date"`
	TaxYear           string `csv:"tax_year"`
	ProceedsGBP       string `csv:"proceeds_gbp"`
	AllowableCostsGBP string `csv:"allowable_costs_gbp"`
	GainOrLossGBP     string `csv:"gain_or_loss_gbp"`
	IsIncomplete      bool   `csv:"is_incomplete"`
}

// summaryCSVRow is the flat shape one tax-year Summary exports to.
type summaryCSVRow struct {
	TaxYear         string `csv:"tax_year"`
	Gains           string `csv:"gains_gbp"`
	Losses          string `csv:"losses_gbp"`
	Net             string `csv:"net_gbp"`
	AEA             string `csv:"aea_gbp"`
	Taxable         string `csv:"taxable_gbp"`
	PreChangeGains  string `csv:"pre_change_gains_gbp"`
	PostChangeGains string `csv:"post_change_gains_gbp"`
	Box51Required   bool   `csv:"box_51_required"`
}

// ExportDisposalsCSV writes disposals as CSV to filer under name.
func ExportDisposalsCSV(filer Filer, name string, disposals []*cgt.DisposalRecord) (string, error) {
	rows := make([]disposalCSVRow, len(disposals))
	for i, d := range disposals {
		rows[i] = disposalCSVRow{
			DisposalID:        d.DisposalID,
			Symbol:            d.Symbol,
			Date:              d.Date.Format("2006-01-02"),
			TaxYear:           d.TaxYear,
			ProceedsGBP:       d.ProceedsGBP.StringFixed(2),
			AllowableCostsGBP: d.AllowableCostsGBP.StringFixed(2),
			GainOrLossGBP:     d.GainOrLossGBP.StringFixed(2),
			IsIncomplete:      d.IsIncomplete,
		}
	}

	data, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return "", fmt.Errorf("marshal disposals csv: %w", err)
	}

	return filer.CreateFile(name, data)
}

// ExportSummariesCSV writes tax-year summaries as CSV to filer under name.
func ExportSummariesCSV(filer Filer, name string, summaries []*aggregate.Summary) (string, error) {
	rows := make([]summaryCSVRow, len(summaries))
	for i, s := range summaries {
		rows[i] = summaryCSVRow{
			TaxYear:         s.TaxYear,
			Gains:           s.Gains.StringFixed(2),
			Losses:          s.Losses.StringFixed(2),
			Net:             s.Net.StringFixed(2),
			AEA:             s.AEA.StringFixed(2),
			Taxable:         s.Taxable.StringFixed(2),
			PreChangeGains:  s.PreChangeGains.StringFixed(2),
			PostChangeGains: s.PostChangeGains.StringFixed(2),
			Box51Required:   s.Box51Required,
		}
	}

	data, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return "", fmt.Errorf("marshal summaries csv: %w", err)
	}

	return filer.CreateFile(name, data)
}

// disposalParquetRow is the Parquet-encodable projection of a
// DisposalRecord: BYTE_ARRAY/UTF8 string columns for anything that isn't
// a plain numeric or boolean, since decimal.Decimal has no native
// Parquet representation.
type disposalParquetRow struct {
	DisposalID        string `parquet:"name=disposal_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Symbol            string `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Date              string `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
	TaxYear           string `parquet:"name=tax_year, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ProceedsGBP       string `parquet:"name=proceeds_gbp, type=BYTE_ARRAY, convertedtype=UTF8"`
	AllowableCostsGBP string `parquet:"name=allowable_costs_gbp, type=BYTE_ARRAY, convertedtype=UTF8"`
	GainOrLossGBP     string `parquet:"name=gain_or_loss_gbp, type=BYTE_ARRAY, convertedtype=UTF8"`
	IsIncomplete      bool   `parquet:"name=is_incomplete, type=BOOLEAN"`
}

// ExportDisposalsParquet writes disposals to a temporary Parquet file,
// reads it back, and hands the bytes to filer. Tax-year summaries have
// no Parquet export; they are exported as CSV only.
func ExportDisposalsParquet(filer Filer, name string, disposals []*cgt.DisposalRecord) (string, error) {
	tmp, err := os.CreateTemp("", "disposals-*.parquet")
	if err != nil {
		return "", fmt.Errorf("create temp parquet file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	fh, err := local.NewLocalFileWriter(tmpPath)
	if err != nil {
		return "", fmt.Errorf("open parquet file writer: %w", err)
	}

	pw, err := writer.NewParquetWriter(fh, new(disposalParquetRow), 4)
	if err != nil {
		fh.Close()
		return "", fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, d := range disposals {
		row := disposalParquetRow{
			DisposalID:        d.DisposalID,
			Symbol:            d.Symbol,
			Date:              d.Date.Format("2006-01-02"),
			TaxYear:           d.TaxYear,
			ProceedsGBP:       d.ProceedsGBP.StringFixed(2),
			AllowableCostsGBP: d.AllowableCostsGBP.StringFixed(2),
			GainOrLossGBP:     d.GainOrLossGBP.StringFixed(2),
			IsIncomplete:      d.IsIncomplete,
		}
		if err := pw.Write(row); err != nil {
			log.Error().Err(err).Str("DisposalID", d.DisposalID).Msg("parquet write failed for disposal record")
		}
	}

	if err := pw.WriteStop(); err != nil {
		fh.Close()
		return "", fmt.Errorf("finalize parquet file: %w", err)
	}
	fh.Close()

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return "", fmt.Errorf("read back parquet file: %w", err)
	}

	return filer.CreateFile(name, data)
}
