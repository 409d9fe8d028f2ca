package dataprocessing

import (
	"rfmcli/pkg/contracts/domain"
)

// Clean removes canceled transactions, then every row with a missing field,
// and derives the line total of what remains. rows is not modified.
//
// A row without an invoice number is not a cancellation, but it is still
// dropped as incomplete.
func Clean(rows []domain.Transaction, marker string) ([]domain.CleanedTransaction, domain.CleanReport) {
	report := domain.CleanReport{InputRows: len(rows)}
	cleaned := make([]domain.CleanedTransaction, 0, len(rows))

	for _, tx := range rows {
		if tx.IsCanceled(marker) {
			report.CanceledRows++
			continue
		}
		if !isComplete(tx) {
			report.IncompleteRows++
			continue
		}

		cleaned = append(cleaned, domain.CleanedTransaction{
			Invoice:     *tx.Invoice,
			StockCode:   tx.StockCode,
			Description: *tx.Description,
			Quantity:    *tx.Quantity,
			Price:       *tx.Price,
			InvoiceDate: *tx.InvoiceDate,
			CustomerID:  *tx.CustomerID,
			Country:     tx.Country,
			LineTotal:   float64(*tx.Quantity) * *tx.Price,
		})
	}

	report.CleanRows = len(cleaned)
	return cleaned, report
}

// isComplete reports whether no column of tx is empty
func isComplete(tx domain.Transaction) bool {
	return tx.Invoice != nil &&
		tx.Description != nil &&
		tx.Quantity != nil &&
		tx.Price != nil &&
		tx.InvoiceDate != nil &&
		tx.CustomerID != nil &&
		tx.StockCode != "" &&
		tx.Country != ""
}
