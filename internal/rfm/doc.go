// Package rfm derives Recency, Frequency and Monetary metrics per customer,
// scores them into quintiles and maps the scores to marketing segments.
//
// The stages are pure functions over slices and never modify their input:
//
//	metrics, err := rfm.Aggregate(cleaned, reference)
//	scored, err := rfm.Score(metrics)
//	segmented := rfm.Segment(scored)
//
// Quintiles follow equal-frequency binning over linear-interpolated
// quantiles. Recency is cut on its raw values and inverted so that recent
// customers score 5. Frequency and monetary values are ranked first, with
// ties broken by customer order, and then cut.
package rfm
