package domain

// CleanReport counts what the cleaning stage removed.
type CleanReport struct {
	InputRows      int `json:"input_rows"`
	CanceledRows   int `json:"canceled_rows"`
	IncompleteRows int `json:"incomplete_rows"`
	CleanRows      int `json:"clean_rows"`
}

// FeatureOutliers is the IQR fence result for one numeric feature.
type FeatureOutliers struct {
	Feature     Feature `json:"feature"`
	Q1          float64 `json:"q1"`
	Q3          float64 `json:"q3"`
	IQR         float64 `json:"iqr"`
	Lower       float64 `json:"lower"`
	Upper       float64 `json:"upper"`
	HasOutliers bool    `json:"has_outliers"`
	Count       int     `json:"count"`
}

// OutlierReport is the diagnostic output of an outlier scan. It never
// feeds back into the pipeline.
type OutlierReport struct {
	Rows     int               `json:"rows"`
	Features []FeatureOutliers `json:"features"`
}

// MetricSummary describes one metric within a segment.
type MetricSummary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Count  int     `json:"count"`
}

// SegmentSummary aggregates the customers of one segment.
type SegmentSummary struct {
	Segment   Segment       `json:"segment"`
	Customers int           `json:"customers"`
	Recency   MetricSummary `json:"recency"`
	Frequency MetricSummary `json:"frequency"`
	Monetary  MetricSummary `json:"monetary"`
}

// ProductQuantity is a product with its total ordered or returned quantity.
type ProductQuantity struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	Lines       int    `json:"lines"`
}

// CountryRevenue is the summed line total of a country.
type CountryRevenue struct {
	Country string  `json:"country"`
	Revenue float64 `json:"revenue"`
	Lines   int     `json:"lines"`
}

// DatasetOverview is a descriptive summary of the raw transaction table.
type DatasetOverview struct {
	Rows            int               `json:"rows"`
	Columns         int               `json:"columns"`
	MissingByColumn map[string]int    `json:"missing_by_column"`
	UniqueProducts  int               `json:"unique_products"`
	CanceledRows    int               `json:"canceled_rows"`
	TopProducts     []ProductQuantity `json:"top_products"`
	MostReturned    []ProductQuantity `json:"most_returned"`
	CountryRevenue  []CountryRevenue  `json:"country_revenue"`
}
