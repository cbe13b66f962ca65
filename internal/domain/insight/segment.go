package insight

import (
	"time"

	"github.com/shopspring/decimal"
)

// Segment is an RFM customer category.
type Segment string

const (
	SegmentVIP      Segment = "vip"
	SegmentAtRisk   Segment = "at_risk"
	SegmentNew      Segment = "new"
	SegmentInactive Segment = "inactive"
	SegmentRegular  Segment = "regular"
	SegmentAll      Segment = "all" // filter value only, never assigned
)

// daysSinceSentinel stands in for "no order date on record" and leans
// the classification toward inactive.
const daysSinceSentinel = 999

var vipRevenueThreshold = decimal.NewFromInt(10000)

// CustomerMetrics is the per-customer aggregate over the full confirmed
// order history. It is recomputed on every request and never persisted.
type CustomerMetrics struct {
	TotalRevenue  decimal.Decimal
	PurchaseCount int
	LastOrderDate time.Time // zero when no order carried a date
	DaysSinceLast int
}

// MetricsFromOrders folds a customer's confirmed orders into metrics.
// Missing amounts count as zero. Returns ok=false for an empty history:
// such customers produce no segment record at all.
func MetricsFromOrders(orders []Order, now time.Time) (CustomerMetrics, bool) {
	if len(orders) == 0 {
		return CustomerMetrics{}, false
	}
	m := CustomerMetrics{}
	for _, o := range orders {
		m.TotalRevenue = m.TotalRevenue.Add(o.Amount)
		m.PurchaseCount++
		if o.Date.After(m.LastOrderDate) {
			m.LastOrderDate = o.Date
		}
	}
	m.DaysSinceLast = daysSince(m.LastOrderDate, now)
	return m, true
}

// daysSince returns whole days between the order date and now, or the
// sentinel when no date is on record. The order timestamp is truncated
// to its calendar date first, so a late-evening order ages at midnight
// like any other order from that day.
func daysSince(last time.Time, now time.Time) int {
	if last.IsZero() {
		return daysSinceSentinel
	}
	last = time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, last.Location())
	days := int(now.Sub(last).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// segmentRule pairs a predicate with the segment it assigns.
type segmentRule struct {
	segment Segment
	matches func(m CustomerMetrics) bool
}

// segmentRules is evaluated in order; the first match wins. The order is
// part of the segmentation contract.
var segmentRules = []segmentRule{
	{SegmentVIP, func(m CustomerMetrics) bool {
		return m.TotalRevenue.GreaterThan(vipRevenueThreshold) && m.PurchaseCount > 5
	}},
	{SegmentAtRisk, func(m CustomerMetrics) bool {
		return m.DaysSinceLast > 180 && m.PurchaseCount > 2
	}},
	{SegmentNew, func(m CustomerMetrics) bool {
		return m.PurchaseCount == 1 && m.DaysSinceLast < 30
	}},
	{SegmentInactive, func(m CustomerMetrics) bool {
		return m.DaysSinceLast > 365
	}},
}

// Classify assigns the RFM segment for the given metrics.
func Classify(m CustomerMetrics) Segment {
	for _, rule := range segmentRules {
		if rule.matches(m) {
			return rule.segment
		}
	}
	return SegmentRegular
}

// LTVScore derives a lifetime-value score: total revenue decayed
// linearly by recency, reaching zero once the customer has been silent
// for a year or more.
func (m CustomerMetrics) LTVScore() decimal.Decimal {
	decay := 1 - float64(m.DaysSinceLast)/365
	if decay < 0 {
		decay = 0
	}
	return m.TotalRevenue.Mul(decimal.NewFromFloat(decay))
}

// AvgOrderValue is total revenue over purchase count, zero for an empty
// history.
func (m CustomerMetrics) AvgOrderValue() decimal.Decimal {
	if m.PurchaseCount == 0 {
		return decimal.Zero
	}
	return m.TotalRevenue.Div(decimal.NewFromInt(int64(m.PurchaseCount)))
}

// SegmentTally is a fixed-shape count of customers per segment.
type SegmentTally struct {
	VIP      int `json:"vip"`
	AtRisk   int `json:"at_risk"`
	New      int `json:"new"`
	Inactive int `json:"inactive"`
	Regular  int `json:"regular"`
}

// Add increments the counter for the given segment.
func (t *SegmentTally) Add(s Segment) {
	switch s {
	case SegmentVIP:
		t.VIP++
	case SegmentAtRisk:
		t.AtRisk++
	case SegmentNew:
		t.New++
	case SegmentInactive:
		t.Inactive++
	case SegmentRegular:
		t.Regular++
	}
}

// Merge adds another tally into this one.
func (t *SegmentTally) Merge(other SegmentTally) {
	t.VIP += other.VIP
	t.AtRisk += other.AtRisk
	t.New += other.New
	t.Inactive += other.Inactive
	t.Regular += other.Regular
}

// SegmentCustomers computes metrics and segment per customer over an
// all-time confirmed order set. Orders without a customer reference are
// skipped. Customers with zero confirmed orders never appear.
func SegmentCustomers(orders []Order, now time.Time) map[int64]SegmentedCustomer {
	grouped := make(map[int64][]Order)
	for _, o := range orders {
		if o.HasCustomer() {
			grouped[o.CustomerID] = append(grouped[o.CustomerID], o)
		}
	}
	out := make(map[int64]SegmentedCustomer, len(grouped))
	for id, history := range grouped {
		m, ok := MetricsFromOrders(history, now)
		if !ok {
			continue
		}
		out[id] = SegmentedCustomer{Metrics: m, Segment: Classify(m)}
	}
	return out
}

// SegmentedCustomer pairs metrics with the assigned segment.
type SegmentedCustomer struct {
	Metrics CustomerMetrics
	Segment Segment
}
