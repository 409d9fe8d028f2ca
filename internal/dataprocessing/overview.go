package dataprocessing

import (
	"context"
	"log/slog"
	"sort"

	"rfmcli/pkg/contracts/domain"
)

// Summarizer produces the descriptive overview of a raw transaction table.
type Summarizer struct {
	logger *slog.Logger
	marker string
	topN   int
}

// SummarizerConfig holds configuration options for the Summarizer.
type SummarizerConfig struct {
	CancellationMarker string // Invoice marker of canceled orders
	TopN               int    // Length of the product rankings
}

// NewSummarizer creates a new dataset summarizer with the given configuration.
func NewSummarizer(logger *slog.Logger, config SummarizerConfig) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.TopN <= 0 {
		config.TopN = 5
	}
	if config.CancellationMarker == "" {
		config.CancellationMarker = "C"
	}

	return &Summarizer{
		logger: logger,
		marker: config.CancellationMarker,
		topN:   config.TopN,
	}
}

// Overview summarizes the raw table: shape, missing values per column,
// product rankings, revenue by country and the most returned products.
// Revenue only counts rows that are not canceled; returns only count
// canceled ones.
func (s *Summarizer) Overview(ctx context.Context, table *Table) domain.DatasetOverview {
	overview := domain.DatasetOverview{
		Rows:            len(table.Rows),
		Columns:         len(table.Columns),
		MissingByColumn: make(map[string]int, len(RequiredColumns)),
	}
	for _, col := range RequiredColumns {
		overview.MissingByColumn[col] = 0
	}

	products := make(map[string]bool)
	ordered := make(map[string]*domain.ProductQuantity)
	returned := make(map[string]*domain.ProductQuantity)
	countries := make(map[string]*domain.CountryRevenue)

	for _, tx := range table.Rows {
		countMissing(overview.MissingByColumn, tx)

		canceled := tx.IsCanceled(s.marker)
		if canceled {
			overview.CanceledRows++
		}

		if tx.Description != nil {
			desc := *tx.Description
			products[desc] = true

			agg := productEntry(ordered, desc)
			agg.Lines++
			if tx.Quantity != nil {
				agg.Quantity += *tx.Quantity
			}

			if canceled {
				ret := productEntry(returned, desc)
				ret.Lines++
				if tx.Quantity != nil {
					ret.Quantity += absInt(*tx.Quantity)
				}
			}
		}

		if !canceled && tx.Quantity != nil && tx.Price != nil {
			c, ok := countries[tx.Country]
			if !ok {
				c = &domain.CountryRevenue{Country: tx.Country}
				countries[tx.Country] = c
			}
			c.Revenue += float64(*tx.Quantity) * *tx.Price
			c.Lines++
		}
	}

	overview.UniqueProducts = len(products)
	overview.TopProducts = topProducts(ordered, s.topN, func(a, b *domain.ProductQuantity) bool {
		return a.Quantity > b.Quantity
	})
	overview.MostReturned = topProducts(returned, s.topN, func(a, b *domain.ProductQuantity) bool {
		return a.Lines > b.Lines
	})
	overview.CountryRevenue = rankCountries(countries)

	s.logger.DebugContext(ctx, "dataset overview computed",
		slog.Int("rows", overview.Rows),
		slog.Int("unique_products", overview.UniqueProducts),
		slog.Int("canceled_rows", overview.CanceledRows),
		slog.Int("countries", len(overview.CountryRevenue)))

	return overview
}

func countMissing(missing map[string]int, tx domain.Transaction) {
	if tx.Invoice == nil {
		missing[ColInvoice]++
	}
	if tx.StockCode == "" {
		missing[ColStockCode]++
	}
	if tx.Description == nil {
		missing[ColDescription]++
	}
	if tx.Quantity == nil {
		missing[ColQuantity]++
	}
	if tx.InvoiceDate == nil {
		missing[ColInvoiceDate]++
	}
	if tx.Price == nil {
		missing[ColPrice]++
	}
	if tx.CustomerID == nil {
		missing[ColCustomerID]++
	}
	if tx.Country == "" {
		missing[ColCountry]++
	}
}

func productEntry(m map[string]*domain.ProductQuantity, desc string) *domain.ProductQuantity {
	p, ok := m[desc]
	if !ok {
		p = &domain.ProductQuantity{Description: desc}
		m[desc] = p
	}
	return p
}

// topProducts returns the first n products under less, ties by description
func topProducts(m map[string]*domain.ProductQuantity, n int, less func(a, b *domain.ProductQuantity) bool) []domain.ProductQuantity {
	list := make([]*domain.ProductQuantity, 0, len(m))
	for _, p := range m {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		if less(list[i], list[j]) {
			return true
		}
		if less(list[j], list[i]) {
			return false
		}
		return list[i].Description < list[j].Description
	})

	if len(list) > n {
		list = list[:n]
	}
	out := make([]domain.ProductQuantity, len(list))
	for i, p := range list {
		out[i] = *p
	}
	return out
}

// rankCountries sorts countries by revenue, highest first
func rankCountries(m map[string]*domain.CountryRevenue) []domain.CountryRevenue {
	out := make([]domain.CountryRevenue, 0, len(m))
	for _, c := range m {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Country < out[j].Country
	})
	return out
}

func absInt(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
