// Package dataprocessing reads raw retail transaction tables and prepares
// them for RFM analysis.
//
// # Components
//
//  1. Loader: reads an xlsx workbook (excelize) or a CSV file and maps the
//     columns by header name
//  2. Cleaner: drops canceled orders and incomplete rows, derives line totals
//  3. Outlier scan: IQR fences over quantity, price and line total, reported
//     but never applied
//  4. Summarizer: descriptive overview of the raw table
//
// # Usage
//
//	table, err := dataprocessing.LoadTable("online_retail_II.xlsx", dataprocessing.LoadOptions{
//	    Sheet: "Year 2010-2011",
//	})
//	if err != nil {
//	    return err
//	}
//	cleaned, report := dataprocessing.Clean(table.Rows, "C")
//	outliers := dataprocessing.ScanOutliers(cleaned, dataprocessing.DefaultOutlierOptions())
//
// # Error Handling
//
// Loader failures are *errors.AppError values: SCHEMA when a required column
// is missing (errors.Is(err, ErrMissingColumn) holds) and PARSING when a cell
// cannot be converted. Cleaning never fails; dropped rows are counted in the
// CleanReport.
package dataprocessing
