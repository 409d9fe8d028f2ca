// Package exporter writes the results of an RFM run.
//
// CSVWriter: atomic CSV writes. Content goes to a temporary file in the
// target directory that is renamed over the target, so a failed export
// leaves the previous file untouched. An optional UTF-8 BOM helps Excel.
//
// SegmentExporter: writes the identifiers of one segment as a single column
// CSV, without an index column.
//
// ScoredExporter: writes the full scored customer table as CSV or, for an
// .xlsx target, as a workbook.
//
// Example usage:
//
//	writer := exporter.NewCSVWriter("output")
//	segments := exporter.NewSegmentExporter(writer, logger)
//	n, err := segments.Export(ctx, scored, domain.SegmentLoyalCustomers, "RFM_Loyal_Customers_ID_2010-2011.csv")
package exporter
