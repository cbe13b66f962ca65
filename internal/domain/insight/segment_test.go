package insight

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metrics(revenue float64, purchases, daysSinceLast int) CustomerMetrics {
	return CustomerMetrics{
		TotalRevenue:  decimal.NewFromFloat(revenue),
		PurchaseCount: purchases,
		DaysSinceLast: daysSinceLast,
	}
}

func TestClassify(t *testing.T) {
	t.Run("vip requires high revenue and frequency", func(t *testing.T) {
		assert.Equal(t, SegmentVIP, Classify(metrics(15000, 6, 10)))
	})

	t.Run("vip wins over at_risk when both match", func(t *testing.T) {
		// 200 days silent would qualify as at_risk, but the vip rule
		// is evaluated first.
		assert.Equal(t, SegmentVIP, Classify(metrics(20000, 8, 200)))
	})

	t.Run("revenue exactly at threshold is not vip", func(t *testing.T) {
		assert.Equal(t, SegmentRegular, Classify(metrics(10000, 6, 10)))
	})

	t.Run("five purchases is not vip", func(t *testing.T) {
		assert.Equal(t, SegmentRegular, Classify(metrics(15000, 5, 10)))
	})

	t.Run("at_risk requires silence and prior frequency", func(t *testing.T) {
		assert.Equal(t, SegmentAtRisk, Classify(metrics(500, 3, 200)))
	})

	t.Run("exactly 180 days silent is not at_risk", func(t *testing.T) {
		assert.Equal(t, SegmentRegular, Classify(metrics(500, 3, 180)))
	})

	t.Run("new requires a single recent purchase", func(t *testing.T) {
		assert.Equal(t, SegmentNew, Classify(metrics(100, 1, 5)))
	})

	t.Run("single purchase 30 days ago is not new", func(t *testing.T) {
		assert.Equal(t, SegmentRegular, Classify(metrics(100, 1, 30)))
	})

	t.Run("inactive after a year of silence", func(t *testing.T) {
		// Two purchases keeps the customer out of at_risk, so the
		// inactive rule applies.
		assert.Equal(t, SegmentInactive, Classify(metrics(900, 2, 400)))
	})

	t.Run("at_risk wins over inactive for frequent lapsed buyers", func(t *testing.T) {
		assert.Equal(t, SegmentAtRisk, Classify(metrics(900, 4, 400)))
	})

	t.Run("exactly 365 days silent is regular", func(t *testing.T) {
		assert.Equal(t, SegmentRegular, Classify(metrics(900, 2, 365)))
	})

	t.Run("missing order date leans inactive", func(t *testing.T) {
		assert.Equal(t, SegmentInactive, Classify(metrics(900, 2, daysSinceSentinel)))
	})
}

func TestMetricsFromOrders(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("empty history yields no metrics", func(t *testing.T) {
		_, ok := MetricsFromOrders(nil, now)
		assert.False(t, ok)
	})

	t.Run("sums revenue and tracks the latest order", func(t *testing.T) {
		orders := []Order{
			{ID: 1, CustomerID: 7, Amount: decimal.NewFromFloat(100.10), Date: now.AddDate(0, 0, -40)},
			{ID: 2, CustomerID: 7, Amount: decimal.NewFromFloat(200.25), Date: now.AddDate(0, 0, -10)},
			{ID: 3, CustomerID: 7, Amount: decimal.NewFromFloat(50.00), Date: now.AddDate(0, 0, -90)},
		}
		m, ok := MetricsFromOrders(orders, now)

		require.True(t, ok)
		assert.True(t, m.TotalRevenue.Equal(decimal.NewFromFloat(350.35)))
		assert.Equal(t, 3, m.PurchaseCount)
		assert.Equal(t, 10, m.DaysSinceLast)
	})

	t.Run("revenue sum is order independent", func(t *testing.T) {
		a := Order{ID: 1, CustomerID: 7, Amount: decimal.NewFromFloat(0.1)}
		b := Order{ID: 2, CustomerID: 7, Amount: decimal.NewFromFloat(0.2)}
		c := Order{ID: 3, CustomerID: 7, Amount: decimal.NewFromFloat(0.3)}

		m1, _ := MetricsFromOrders([]Order{a, b, c}, now)
		m2, _ := MetricsFromOrders([]Order{c, a, b}, now)

		assert.True(t, m1.TotalRevenue.Equal(m2.TotalRevenue))
		assert.True(t, m1.TotalRevenue.Equal(decimal.NewFromFloat(0.6)))
	})

	t.Run("history without dates hits the sentinel", func(t *testing.T) {
		orders := []Order{{ID: 1, CustomerID: 7, Amount: decimal.NewFromInt(10)}}
		m, ok := MetricsFromOrders(orders, now)

		require.True(t, ok)
		assert.Equal(t, daysSinceSentinel, m.DaysSinceLast)
	})

	t.Run("order age counts from its calendar date", func(t *testing.T) {
		// Ordered in the evening of 2026-08-02: 29.75 exact days before
		// now, but 30 whole calendar days once truncated to midnight.
		orders := []Order{{
			ID: 1, CustomerID: 7, Amount: decimal.NewFromInt(10),
			Date: time.Date(2026, 8, 2, 18, 0, 0, 0, time.UTC),
		}}
		m, ok := MetricsFromOrders(orders, now)

		require.True(t, ok)
		assert.Equal(t, 30, m.DaysSinceLast)
		assert.NotEqual(t, SegmentNew, Classify(m), "a 30-day-old single purchase is no longer new")
	})

	t.Run("future-dated order clamps to zero days", func(t *testing.T) {
		orders := []Order{{ID: 1, CustomerID: 7, Date: now.AddDate(0, 0, 3)}}
		m, ok := MetricsFromOrders(orders, now)

		require.True(t, ok)
		assert.Equal(t, 0, m.DaysSinceLast)
	})
}

func TestLTVScore(t *testing.T) {
	t.Run("fresh customer keeps full revenue", func(t *testing.T) {
		m := metrics(1000, 3, 0)
		assert.True(t, m.LTVScore().Equal(decimal.NewFromInt(1000)))
	})

	t.Run("decays linearly with silence", func(t *testing.T) {
		recent := metrics(1000, 3, 30)
		stale := metrics(1000, 3, 200)

		assert.True(t, recent.LTVScore().GreaterThan(stale.LTVScore()))
	})

	t.Run("floors at zero past a year", func(t *testing.T) {
		m := metrics(1000, 3, 400)
		assert.True(t, m.LTVScore().IsZero())
	})

	t.Run("sentinel recency scores zero", func(t *testing.T) {
		m := metrics(5000, 2, daysSinceSentinel)
		assert.True(t, m.LTVScore().IsZero())
	})
}

func TestAvgOrderValue(t *testing.T) {
	t.Run("divides revenue by purchases", func(t *testing.T) {
		m := metrics(300, 4, 0)
		assert.True(t, m.AvgOrderValue().Equal(decimal.NewFromInt(75)))
	})

	t.Run("zero purchases yields zero", func(t *testing.T) {
		m := metrics(0, 0, 0)
		assert.True(t, m.AvgOrderValue().IsZero())
	})
}

func TestSegmentCustomers(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	t.Run("groups orders per customer", func(t *testing.T) {
		orders := []Order{
			{ID: 1, CustomerID: 1, Amount: decimal.NewFromInt(3000), Date: now.AddDate(0, 0, -5)},
			{ID: 2, CustomerID: 1, Amount: decimal.NewFromInt(9000), Date: now.AddDate(0, 0, -15)},
			{ID: 3, CustomerID: 2, Amount: decimal.NewFromInt(200), Date: now.AddDate(0, 0, -10)},
		}
		segmented := SegmentCustomers(orders, now)

		require.Len(t, segmented, 2)
		assert.Equal(t, 2, segmented[1].Metrics.PurchaseCount)
		assert.Equal(t, SegmentNew, segmented[2].Segment)
	})

	t.Run("skips orders without a customer", func(t *testing.T) {
		orders := []Order{
			{ID: 1, Amount: decimal.NewFromInt(100), Date: now},
			{ID: 2, CustomerID: 9, Amount: decimal.NewFromInt(100), Date: now},
		}
		segmented := SegmentCustomers(orders, now)

		assert.Len(t, segmented, 1)
		assert.Contains(t, segmented, int64(9))
	})
}

func TestSegmentTally(t *testing.T) {
	t.Run("counts every segment", func(t *testing.T) {
		var tally SegmentTally
		tally.Add(SegmentVIP)
		tally.Add(SegmentVIP)
		tally.Add(SegmentAtRisk)
		tally.Add(SegmentNew)
		tally.Add(SegmentInactive)
		tally.Add(SegmentRegular)

		assert.Equal(t, SegmentTally{VIP: 2, AtRisk: 1, New: 1, Inactive: 1, Regular: 1}, tally)
	})

	t.Run("merge adds component-wise", func(t *testing.T) {
		a := SegmentTally{VIP: 1, Regular: 2}
		b := SegmentTally{VIP: 3, New: 1}
		a.Merge(b)

		assert.Equal(t, SegmentTally{VIP: 4, New: 1, Regular: 2}, a)
	})
}
