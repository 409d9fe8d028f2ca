package domain

import (
	"strings"
	"time"
)

// Transaction is one raw order line as read from the source table.
// Nullable columns are pointers; nil means the cell was empty.
type Transaction struct {
	Invoice     *string    `json:"invoice,omitempty"`
	StockCode   string     `json:"stock_code"`
	Description *string    `json:"description,omitempty"`
	Quantity    *int64     `json:"quantity,omitempty"`
	Price       *float64   `json:"price,omitempty"`
	InvoiceDate *time.Time `json:"invoice_date,omitempty"`
	CustomerID  *string    `json:"customer_id,omitempty"`
	Country     string     `json:"country"`
}

// IsCanceled reports whether the invoice carries the cancellation marker.
// A missing invoice is never a cancellation.
func (t Transaction) IsCanceled(marker string) bool {
	if t.Invoice == nil || marker == "" {
		return false
	}
	return strings.Contains(*t.Invoice, marker)
}

// CleanedTransaction is a transaction with every required field present
// and the derived line total.
type CleanedTransaction struct {
	Invoice     string    `json:"invoice"`
	StockCode   string    `json:"stock_code"`
	Description string    `json:"description"`
	Quantity    int64     `json:"quantity"`
	Price       float64   `json:"price"`
	InvoiceDate time.Time `json:"invoice_date"`
	CustomerID  string    `json:"customer_id"`
	Country     string    `json:"country"`
	LineTotal   float64   `json:"line_total"`
}

// Feature names a numeric column of the cleaned table.
type Feature string

const (
	FeatureQuantity  Feature = "Quantity"
	FeaturePrice     Feature = "Price"
	FeatureLineTotal Feature = "TotalPrice"
)

// NumericFeatures lists the features scanned for outliers, in report order.
var NumericFeatures = []Feature{FeatureQuantity, FeaturePrice, FeatureLineTotal}

// Value returns the feature value for the row.
func (c CleanedTransaction) Value(f Feature) float64 {
	switch f {
	case FeatureQuantity:
		return float64(c.Quantity)
	case FeaturePrice:
		return c.Price
	case FeatureLineTotal:
		return c.LineTotal
	default:
		return 0
	}
}
