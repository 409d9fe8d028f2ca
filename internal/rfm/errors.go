package rfm

import "errors"

var (
	// ErrNoCustomers is returned when there is nothing to aggregate or score
	ErrNoCustomers = errors.New("no customers to score")
	// ErrDuplicateBinEdges is returned when a metric cannot be split into
	// quintiles because its quantile edges coincide
	ErrDuplicateBinEdges = errors.New("quantile bin edges are not unique")
	// ErrReferenceBeforeData is returned when the reference date precedes
	// the latest cleaned transaction
	ErrReferenceBeforeData = errors.New("reference date precedes the latest transaction")
)
