package domain

// CustomerMetrics holds the recency, frequency and monetary values of one
// customer derived from the cleaned transactions.
type CustomerMetrics struct {
	CustomerID string  `json:"customer_id"`
	Recency    int     `json:"recency"`   // whole days since the last purchase
	Frequency  int     `json:"frequency"` // distinct purchase timestamps
	Monetary   float64 `json:"monetary"`  // sum of line totals
}

// ScoredCustomer is a customer with quintile scores and its segment.
type ScoredCustomer struct {
	CustomerMetrics
	RecencyScore   int     `json:"recency_score"`
	FrequencyScore int     `json:"frequency_score"`
	MonetaryScore  int     `json:"monetary_score"`
	RFMCode        string  `json:"rfm_score"`
	SegmentKey     string  `json:"segment_key"`
	Segment        Segment `json:"segment"`
}
