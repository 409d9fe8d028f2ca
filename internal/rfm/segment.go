package rfm

import (
	"strconv"

	"rfmcli/pkg/contracts/domain"
)

// segmentRule matches recency and frequency scores to a segment
type segmentRule struct {
	match   func(r, f int) bool
	segment domain.Segment
}

func between(v, lo, hi int) bool { return v >= lo && v <= hi }

// segmentRules are evaluated in order; the first match wins
var segmentRules = []segmentRule{
	{func(r, f int) bool { return between(r, 1, 2) && between(f, 1, 2) }, domain.SegmentHibernating},
	{func(r, f int) bool { return between(r, 1, 2) && between(f, 3, 4) }, domain.SegmentAtRisk},
	{func(r, f int) bool { return between(r, 1, 2) && f == 5 }, domain.SegmentCantLose},
	{func(r, f int) bool { return r == 3 && between(f, 1, 2) }, domain.SegmentAboutToSleep},
	{func(r, f int) bool { return r == 3 && f == 3 }, domain.SegmentNeedAttention},
	{func(r, f int) bool { return between(r, 3, 4) && between(f, 4, 5) }, domain.SegmentLoyalCustomers},
	{func(r, f int) bool { return r == 4 && f == 1 }, domain.SegmentPromising},
	{func(r, f int) bool { return r == 5 && f == 1 }, domain.SegmentNewCustomers},
	{func(r, f int) bool { return between(r, 4, 5) && between(f, 2, 3) }, domain.SegmentPotentialLoyalists},
	{func(r, f int) bool { return r == 5 && between(f, 4, 5) }, domain.SegmentChampions},
}

// SegmentFor maps recency and frequency scores to a segment. ok is false
// only for scores outside 1..5.
func SegmentFor(r, f int) (domain.Segment, bool) {
	for _, rule := range segmentRules {
		if rule.match(r, f) {
			return rule.segment, true
		}
	}
	return "", false
}

// Code concatenates the recency, frequency and monetary scores
func Code(r, f, m int) string {
	return strconv.Itoa(r) + strconv.Itoa(f) + strconv.Itoa(m)
}

// Segment returns a copy of customers with their RFM code, segment key and
// segment set
func Segment(customers []domain.ScoredCustomer) []domain.ScoredCustomer {
	out := make([]domain.ScoredCustomer, len(customers))
	for i, c := range customers {
		c.RFMCode = Code(c.RecencyScore, c.FrequencyScore, c.MonetaryScore)
		c.SegmentKey = c.RFMCode[:2]
		c.Segment, _ = SegmentFor(c.RecencyScore, c.FrequencyScore)
		out[i] = c
	}
	return out
}
