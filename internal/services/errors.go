package services

import "errors"

// Report service errors
var (
	ErrNoReport         = errors.New("no pipeline result loaded")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrUnknownSegment   = errors.New("unknown segment")
	ErrNoOutlierReport  = errors.New("outlier scan was not run")
)
