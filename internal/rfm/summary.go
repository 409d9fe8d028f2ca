package rfm

import (
	"rfmcli/internal/stats"
	"rfmcli/pkg/contracts/domain"
)

// Summarize returns the mean, median and count of each metric per segment.
// Segments without customers are omitted; the rest follow rule order.
func Summarize(customers []domain.ScoredCustomer) []domain.SegmentSummary {
	type values struct{ recency, frequency, monetary []float64 }
	bySegment := make(map[domain.Segment]*values)

	for _, c := range customers {
		v, ok := bySegment[c.Segment]
		if !ok {
			v = &values{}
			bySegment[c.Segment] = v
		}
		v.recency = append(v.recency, float64(c.Recency))
		v.frequency = append(v.frequency, float64(c.Frequency))
		v.monetary = append(v.monetary, c.Monetary)
	}

	summaries := make([]domain.SegmentSummary, 0, len(bySegment))
	for _, s := range domain.AllSegments {
		v, ok := bySegment[s]
		if !ok {
			continue
		}
		summaries = append(summaries, domain.SegmentSummary{
			Segment:   s,
			Customers: len(v.recency),
			Recency:   describe(v.recency),
			Frequency: describe(v.frequency),
			Monetary:  describe(v.monetary),
		})
	}
	return summaries
}

func describe(values []float64) domain.MetricSummary {
	return domain.MetricSummary{
		Mean:   stats.Mean(values),
		Median: stats.Median(values),
		Count:  len(values),
	}
}

// FilterBySegment returns the customers of one segment in their original order
func FilterBySegment(customers []domain.ScoredCustomer, segment domain.Segment) []domain.ScoredCustomer {
	return filter(customers, func(c domain.ScoredCustomer) bool { return c.Segment == segment })
}

// FilterByCode returns the customers whose RFM code equals code
func FilterByCode(customers []domain.ScoredCustomer, code string) []domain.ScoredCustomer {
	return filter(customers, func(c domain.ScoredCustomer) bool { return c.RFMCode == code })
}

// CountBySegment counts customers per segment
func CountBySegment(customers []domain.ScoredCustomer) map[domain.Segment]int {
	counts := make(map[domain.Segment]int, len(domain.AllSegments))
	for _, c := range customers {
		counts[c.Segment]++
	}
	return counts
}

func filter(customers []domain.ScoredCustomer, keep func(domain.ScoredCustomer) bool) []domain.ScoredCustomer {
	out := make([]domain.ScoredCustomer, 0)
	for _, c := range customers {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
