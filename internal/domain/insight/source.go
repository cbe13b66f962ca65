package insight

import (
	"context"
	"time"
)

// OrderFilter narrows a sales order fetch. Zero values mean "no
// constraint". Dates are compared at day granularity, matching how the
// backend stores order dates.
type OrderFilter struct {
	From          time.Time // inclusive lower bound on order date
	To            time.Time // inclusive upper bound on order date
	ConfirmedOnly bool
	State         string
	PartnerIDs    []int64
	MinAmount     float64
	HasMinAmount  bool
	Limit         int
}

// LineFilter narrows an order line fetch. Exactly one of OrderIDs or
// ConfirmedSince is set by callers.
type LineFilter struct {
	OrderIDs       []int64
	ConfirmedSince time.Time
	Limit          int
}

// OpportunityFilter narrows a CRM pipeline fetch.
type OpportunityFilter struct {
	Stage          string
	MinProbability *int
	InactiveSince  time.Time
	Limit          int
}

// DataSource is the read-only view of the business backend the report
// services depend on. Implementations fetch fresh snapshots on every
// call; results are never cached between requests. Any backend failure
// is returned as a domain error carrying the UPSTREAM_ERROR code and
// never yields partial results.
type DataSource interface {
	// Customers returns the geographic snapshot of every customer.
	Customers(ctx context.Context) ([]Customer, error)

	// CustomerProfiles returns full contact snapshots for all customers.
	CustomerProfiles(ctx context.Context) ([]CustomerProfile, error)

	// SearchCustomers matches query case-insensitively against customer
	// name, email, phone and reference fields.
	SearchCustomers(ctx context.Context, query string, limit int) ([]CustomerProfile, error)

	// SalesOrders returns orders matching the filter, most recent first.
	SalesOrders(ctx context.Context, f OrderFilter) ([]Order, error)

	// OrderLines returns order lines matching the filter.
	OrderLines(ctx context.Context, f LineFilter) ([]OrderLine, error)

	// Opportunities returns pipeline entries, largest expected revenue
	// first.
	Opportunities(ctx context.Context, f OpportunityFilter) ([]Opportunity, error)

	// Ping verifies the backend session, authenticating if needed, and
	// returns the session identifier.
	Ping(ctx context.Context) (int64, error)
}

// CurrentPeriodStart returns the inclusive start of the current
// reporting window.
func CurrentPeriodStart(now time.Time, daysBack int) time.Time {
	return now.AddDate(0, 0, -daysBack)
}

// PreviousPeriod returns the inclusive bounds of the comparison window
// immediately preceding the current one. The upper bound is daysBack+1
// days ago, leaving a one-day gap before the current period; this
// matches the backend's historical reporting convention and is relied
// on by growth comparisons, so it must not be "corrected".
func PreviousPeriod(now time.Time, daysBack int) (from, to time.Time) {
	return now.AddDate(0, 0, -daysBack*2), now.AddDate(0, 0, -(daysBack + 1))
}
