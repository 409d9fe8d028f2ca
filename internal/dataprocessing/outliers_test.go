package dataprocessing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfmcli/pkg/contracts/domain"
)

func cleanedRow(qty int64, price float64) domain.CleanedTransaction {
	return domain.CleanedTransaction{
		Invoice:     "1",
		Description: "x",
		Quantity:    qty,
		Price:       price,
		InvoiceDate: time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC),
		CustomerID:  "1",
		Country:     "UK",
		LineTotal:   float64(qty) * price,
	}
}

func TestScanOutliers(t *testing.T) {
	rows := make([]domain.CleanedTransaction, 0, 101)
	for i := 1; i <= 100; i++ {
		rows = append(rows, cleanedRow(int64(i), 1))
	}
	rows = append(rows, cleanedRow(80995, 1))

	report := ScanOutliers(rows, DefaultOutlierOptions())

	assert.Equal(t, 101, report.Rows)
	require.Len(t, report.Features, 3)
	assert.Equal(t, domain.FeatureQuantity, report.Features[0].Feature)
	assert.Equal(t, domain.FeaturePrice, report.Features[1].Feature)
	assert.Equal(t, domain.FeatureLineTotal, report.Features[2].Feature)

	qty := report.Features[0]
	// 1st percentile of 101 values: index 1.0 -> 2; 99th: index 99.0 -> 100
	assert.InDelta(t, 2.0, qty.Q1, 1e-9)
	assert.InDelta(t, 100.0, qty.Q3, 1e-9)
	assert.InDelta(t, 98.0, qty.IQR, 1e-9)
	assert.InDelta(t, 247.0, qty.Upper, 1e-9)
	assert.InDelta(t, -145.0, qty.Lower, 1e-9)
	assert.True(t, qty.HasOutliers)
	assert.Equal(t, 1, qty.Count)

	price := report.Features[1]
	assert.False(t, price.HasOutliers)
	assert.Equal(t, 0, price.Count)

	// scanning never filters
	assert.Len(t, rows, 101)
}

func TestScanOutliers_CustomFence(t *testing.T) {
	rows := []domain.CleanedTransaction{cleanedRow(1, 1), cleanedRow(2, 1), cleanedRow(3, 1), cleanedRow(10, 1)}

	report := ScanOutliers(rows, OutlierOptions{LowerPercentile: 0.25, UpperPercentile: 0.75, Multiplier: 0.1})
	qty := report.Features[0]
	// Q1 = 1.75, Q3 = 4.75, fence [1.45, 5.05]
	assert.InDelta(t, 1.75, qty.Q1, 1e-9)
	assert.InDelta(t, 4.75, qty.Q3, 1e-9)
	assert.Equal(t, 2, qty.Count)
}

func TestScanOutliers_Empty(t *testing.T) {
	report := ScanOutliers(nil, DefaultOutlierOptions())
	assert.Equal(t, 0, report.Rows)
	require.Len(t, report.Features, 3)
	for _, f := range report.Features {
		assert.False(t, f.HasOutliers)
	}
}
