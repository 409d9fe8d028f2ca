package rfm

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	apperrors "rfmcli/internal/errors"
	"rfmcli/pkg/contracts/domain"
)

const day = 24 * time.Hour

type customerAccumulator struct {
	last       time.Time
	timestamps map[int64]struct{}
	monetary   float64
}

// Aggregate groups cleaned transactions by customer. Recency counts whole
// days from the customer's last purchase to reference, frequency counts
// distinct purchase timestamps and monetary sums line totals. Customers are
// returned in ascending identifier order.
func Aggregate(rows []domain.CleanedTransaction, reference time.Time) ([]domain.CustomerMetrics, error) {
	if latest, ok := latestTimestamp(rows); ok && reference.Before(latest) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("reference date %s is before the latest transaction %s",
				reference.Format(time.DateTime), latest.Format(time.DateTime)),
			ErrReferenceBeforeData).
			WithContext("reference", reference).
			WithContext("latest", latest)
	}

	customers := make(map[string]*customerAccumulator)
	for _, r := range rows {
		acc, ok := customers[r.CustomerID]
		if !ok {
			acc = &customerAccumulator{timestamps: make(map[int64]struct{})}
			customers[r.CustomerID] = acc
		}
		if r.InvoiceDate.After(acc.last) {
			acc.last = r.InvoiceDate
		}
		acc.timestamps[r.InvoiceDate.UnixNano()] = struct{}{}
		acc.monetary += r.LineTotal
	}

	ids := make([]string, 0, len(customers))
	for id := range customers {
		ids = append(ids, id)
	}
	SortCustomerIDs(ids)

	metrics := make([]domain.CustomerMetrics, 0, len(ids))
	for _, id := range ids {
		acc := customers[id]
		metrics = append(metrics, domain.CustomerMetrics{
			CustomerID: id,
			Recency:    int(reference.Sub(acc.last) / day),
			Frequency:  len(acc.timestamps),
			Monetary:   acc.monetary,
		})
	}
	return metrics, nil
}

// DefaultReference is the day after the latest cleaned transaction, at
// midnight
func DefaultReference(rows []domain.CleanedTransaction) (time.Time, error) {
	latest, ok := latestTimestamp(rows)
	if !ok {
		return time.Time{}, apperrors.NewValidationError("no transactions to derive a reference date from", ErrNoCustomers)
	}
	y, m, d := latest.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, latest.Location()), nil
}

func latestTimestamp(rows []domain.CleanedTransaction) (time.Time, bool) {
	var latest time.Time
	for i, r := range rows {
		if i == 0 || r.InvoiceDate.After(latest) {
			latest = r.InvoiceDate
		}
	}
	return latest, len(rows) > 0
}

// SortCustomerIDs orders integer identifiers numerically, followed by all
// other identifiers in lexical order
func SortCustomerIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		return lessCustomerID(ids[i], ids[j])
	})
}

func lessCustomerID(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		if na != nb {
			return na < nb
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
