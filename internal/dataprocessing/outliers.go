package dataprocessing

import (
	"rfmcli/internal/stats"
	"rfmcli/pkg/contracts/domain"
)

// OutlierOptions are the fence parameters of ScanOutliers
type OutlierOptions struct {
	LowerPercentile float64
	UpperPercentile float64
	Multiplier      float64
}

// DefaultOutlierOptions uses the 1st and 99th percentiles as quartile
// stand-ins with a 1.5 fence multiplier
func DefaultOutlierOptions() OutlierOptions {
	return OutlierOptions{LowerPercentile: 0.01, UpperPercentile: 0.99, Multiplier: 1.5}
}

// ScanOutliers computes an IQR fence for every numeric feature and counts
// the rows outside it. The result is diagnostic; rows are never removed.
func ScanOutliers(rows []domain.CleanedTransaction, opts OutlierOptions) domain.OutlierReport {
	report := domain.OutlierReport{
		Rows:     len(rows),
		Features: make([]domain.FeatureOutliers, 0, len(domain.NumericFeatures)),
	}

	for _, feature := range domain.NumericFeatures {
		report.Features = append(report.Features, scanFeature(rows, feature, opts))
	}
	return report
}

func scanFeature(rows []domain.CleanedTransaction, feature domain.Feature, opts OutlierOptions) domain.FeatureOutliers {
	result := domain.FeatureOutliers{Feature: feature}
	if len(rows) == 0 {
		return result
	}

	values := make([]float64, len(rows))
	for i, r := range rows {
		values[i] = r.Value(feature)
	}
	sorted := stats.Sorted(values)

	result.Q1 = stats.Quantile(sorted, opts.LowerPercentile)
	result.Q3 = stats.Quantile(sorted, opts.UpperPercentile)
	result.IQR = result.Q3 - result.Q1
	result.Upper = result.Q3 + opts.Multiplier*result.IQR
	result.Lower = result.Q1 - opts.Multiplier*result.IQR

	for _, v := range values {
		if v > result.Upper || v < result.Lower {
			result.Count++
		}
	}
	result.HasOutliers = result.Count > 0
	return result
}
