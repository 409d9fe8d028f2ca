package domain

// Segment is a named marketing category derived from recency and
// frequency scores.
type Segment string

const (
	SegmentHibernating        Segment = "Hibernating"
	SegmentAtRisk             Segment = "At Risk"
	SegmentCantLose           Segment = "Can't Lose"
	SegmentAboutToSleep       Segment = "About to Sleep"
	SegmentNeedAttention      Segment = "Need Attention"
	SegmentLoyalCustomers     Segment = "Loyal Customers"
	SegmentPromising          Segment = "Promising"
	SegmentNewCustomers       Segment = "New Customers"
	SegmentPotentialLoyalists Segment = "Potential Loyalists"
	SegmentChampions          Segment = "Champions"
)

// AllSegments lists every segment in rule order.
var AllSegments = []Segment{
	SegmentHibernating,
	SegmentAtRisk,
	SegmentCantLose,
	SegmentAboutToSleep,
	SegmentNeedAttention,
	SegmentLoyalCustomers,
	SegmentPromising,
	SegmentNewCustomers,
	SegmentPotentialLoyalists,
	SegmentChampions,
}

// String returns the segment label.
func (s Segment) String() string {
	return string(s)
}

// IsValid reports whether s is one of the known segments.
func (s Segment) IsValid() bool {
	for _, known := range AllSegments {
		if s == known {
			return true
		}
	}
	return false
}

// ParseSegment resolves a label to a known segment.
func ParseSegment(label string) (Segment, bool) {
	s := Segment(label)
	return s, s.IsValid()
}
