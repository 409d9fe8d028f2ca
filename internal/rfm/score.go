package rfm

import (
	"errors"
	"fmt"

	apperrors "rfmcli/internal/errors"
	"rfmcli/internal/stats"
	"rfmcli/pkg/contracts/domain"
)

// Quantiles is the number of score buckets per metric
const Quantiles = 5

// Score assigns each customer a 1..5 score per metric. Recency is cut on
// its raw values and inverted; frequency and monetary are cut on their
// first-occurrence ranks. Order follows metrics.
func Score(metrics []domain.CustomerMetrics) ([]domain.ScoredCustomer, error) {
	if len(metrics) == 0 {
		return nil, apperrors.NewBinningError("cannot score an empty customer table", ErrNoCustomers)
	}

	recency := make([]float64, len(metrics))
	frequency := make([]float64, len(metrics))
	monetary := make([]float64, len(metrics))
	for i, m := range metrics {
		recency[i] = float64(m.Recency)
		frequency[i] = float64(m.Frequency)
		monetary[i] = m.Monetary
	}

	recencyBins, err := cut("recency", recency)
	if err != nil {
		return nil, err
	}
	frequencyBins, err := cut("frequency", stats.RankFirst(frequency))
	if err != nil {
		return nil, err
	}
	monetaryBins, err := cut("monetary", stats.RankFirst(monetary))
	if err != nil {
		return nil, err
	}

	scored := make([]domain.ScoredCustomer, len(metrics))
	for i, m := range metrics {
		scored[i] = domain.ScoredCustomer{
			CustomerMetrics: m,
			RecencyScore:    Quantiles + 1 - recencyBins[i],
			FrequencyScore:  frequencyBins[i],
			MonetaryScore:   monetaryBins[i],
		}
	}
	return scored, nil
}

func cut(metric string, values []float64) ([]int, error) {
	bins, err := stats.QCut(values, Quantiles)
	if err == nil {
		return bins, nil
	}

	cause := err
	if errors.Is(err, stats.ErrDuplicateEdges) {
		cause = fmt.Errorf("%w: %w", ErrDuplicateBinEdges, err)
	}
	return nil, apperrors.NewBinningError(fmt.Sprintf("cannot split %s into %d quantiles", metric, Quantiles), cause).
		WithContext("metric", metric).
		WithContext("customers", len(values))
}
