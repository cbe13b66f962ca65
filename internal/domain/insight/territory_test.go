package insight

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var territoryNow = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

func territoryOrder(id, customerID int64, amount float64, salesperson string) Order {
	return Order{
		ID:          id,
		CustomerID:  customerID,
		Amount:      decimal.NewFromFloat(amount),
		State:       "sale",
		Date:        territoryNow.AddDate(0, 0, -7),
		Salesperson: salesperson,
	}
}

func TestAggregateTerritories(t *testing.T) {
	t.Run("buckets orders by region and city", func(t *testing.T) {
		locations := BuildLocationIndex([]Customer{
			{ID: 1, City: "Madrid", Region: "Madrid"},
			{ID: 2, City: "Alcala", Region: "Madrid"},
			{ID: 3, City: "Sevilla", Region: "Andalucia"},
		})
		orders := []Order{
			territoryOrder(10, 1, 1000, "Ana"),
			territoryOrder(11, 1, 500, "Ana"),
			territoryOrder(12, 2, 250, "Luis"),
			territoryOrder(13, 3, 300, "Ana"),
		}
		report := AggregateTerritories(TerritorialInput{
			Locations:     locations,
			CurrentOrders: orders,
			AllTimeOrders: orders,
		}, territoryNow)

		require.Len(t, report.Regions, 2)
		madrid := report.Regions[0]
		assert.Equal(t, "Madrid", madrid.Region)
		assert.Equal(t, 1750.0, madrid.TotalRevenue)
		assert.Equal(t, 3, madrid.NumOrders)
		assert.Equal(t, 2, madrid.NumCustomers)
		assert.InDelta(t, 583.33, madrid.AvgOrderValue, 0.001)

		require.Len(t, madrid.TopCities, 2)
		assert.Equal(t, "Madrid", madrid.TopCities[0].City)
		assert.Equal(t, 1500.0, madrid.TopCities[0].Revenue)
		assert.Equal(t, 1, madrid.TopCities[0].NumCustomers)

		require.Len(t, madrid.Salespeople, 2)
		assert.Equal(t, "Ana", madrid.Salespeople[0].Salesperson)
		assert.Equal(t, 2, madrid.Salespeople[0].Orders)
	})

	t.Run("regions are sorted by revenue descending", func(t *testing.T) {
		locations := BuildLocationIndex([]Customer{
			{ID: 1, City: "A", Region: "Small"},
			{ID: 2, City: "B", Region: "Big"},
		})
		orders := []Order{
			territoryOrder(1, 1, 100, ""),
			territoryOrder(2, 2, 900, ""),
		}
		report := AggregateTerritories(TerritorialInput{Locations: locations, CurrentOrders: orders}, territoryNow)

		require.Len(t, report.Regions, 2)
		assert.Equal(t, "Big", report.Regions[0].Region)
		assert.Equal(t, "Big", report.Summary.TopRegion)
		assert.Equal(t, 900.0, report.Summary.TopRegionRevenue)
	})

	t.Run("unresolved orders are excluded and tallied", func(t *testing.T) {
		locations := BuildLocationIndex([]Customer{{ID: 1, City: "A", Region: "R"}})
		orders := []Order{
			territoryOrder(1, 1, 100, ""),
			territoryOrder(2, 99, 500, ""), // customer never fetched
			{ID: 3, Amount: decimal.NewFromInt(700)}, // no customer at all
		}
		report := AggregateTerritories(TerritorialInput{Locations: locations, CurrentOrders: orders}, territoryNow)

		assert.Equal(t, 2, report.UnresolvedOrders)
		require.Len(t, report.Regions, 1)
		assert.Equal(t, 100.0, report.Regions[0].TotalRevenue)
		assert.Equal(t, 100.0, report.Summary.TotalRevenue)
	})

	t.Run("lines without a product are skipped and tallied", func(t *testing.T) {
		locations := BuildLocationIndex([]Customer{{ID: 1, City: "A", Region: "R"}})
		orders := []Order{territoryOrder(1, 1, 100, "")}
		lines := []OrderLine{
			{ID: 1, OrderID: 1, ProductID: 7, ProductName: "Widget", Quantity: 2, Subtotal: decimal.NewFromInt(60)},
			{ID: 2, OrderID: 1, Quantity: 1, Subtotal: decimal.NewFromInt(40)},
		}
		report := AggregateTerritories(TerritorialInput{Locations: locations, CurrentOrders: orders, Lines: lines}, territoryNow)

		assert.Equal(t, 1, report.SkippedLines)
		require.Len(t, report.Regions[0].TopProducts, 1)
		assert.Equal(t, ProductStats{Product: "Widget", Qty: 2, Revenue: 60}, report.Regions[0].TopProducts[0])
	})

	t.Run("top lists cap at five with stable ties", func(t *testing.T) {
		customers := make([]Customer, 0, 7)
		orders := make([]Order, 0, 7)
		for i := int64(1); i <= 7; i++ {
			customers = append(customers, Customer{ID: i, City: string(rune('A'+i-1)) + "-city", Region: "R"})
			// Equal revenue everywhere: the cap must keep the first
			// five cities in input order.
			orders = append(orders, territoryOrder(i, i, 100, ""))
		}
		report := AggregateTerritories(TerritorialInput{
			Locations:     BuildLocationIndex(customers),
			CurrentOrders: orders,
		}, territoryNow)

		cities := report.Regions[0].TopCities
		require.Len(t, cities, 5)
		assert.Equal(t, "A-city", cities[0].City)
		assert.Equal(t, "E-city", cities[4].City)
	})

	t.Run("concentration index is the top three city share", func(t *testing.T) {
		customers := []Customer{
			{ID: 1, City: "C1", Region: "R"},
			{ID: 2, City: "C2", Region: "R"},
			{ID: 3, City: "C3", Region: "R"},
			{ID: 4, City: "C4", Region: "R"},
			{ID: 5, City: "C5", Region: "R"},
		}
		orders := []Order{
			territoryOrder(1, 1, 40, ""),
			territoryOrder(2, 2, 30, ""),
			territoryOrder(3, 3, 20, ""),
			territoryOrder(4, 4, 5, ""),
			territoryOrder(5, 5, 2.5, ""),
		}
		report := AggregateTerritories(TerritorialInput{
			Locations:     BuildLocationIndex(customers),
			CurrentOrders: orders,
		}, territoryNow)

		c := report.Regions[0].Concentration
		assert.Equal(t, 5, c.TotalCities)
		assert.Equal(t, 92.31, c.Top3ConcentrationPct)
	})

	t.Run("single city region is fully concentrated", func(t *testing.T) {
		report := AggregateTerritories(TerritorialInput{
			Locations:     BuildLocationIndex([]Customer{{ID: 1, City: "Only", Region: "R"}}),
			CurrentOrders: []Order{territoryOrder(1, 1, 10, "")},
		}, territoryNow)

		assert.Equal(t, 100.0, report.Regions[0].Concentration.Top3ConcentrationPct)
	})

	t.Run("expansion counts cities with one or two customers", func(t *testing.T) {
		customers := []Customer{
			{ID: 1, City: "Big", Region: "R"},
			{ID: 2, City: "Big", Region: "R"},
			{ID: 3, City: "Big", Region: "R"},
			{ID: 4, City: "Small", Region: "R"},
		}
		orders := []Order{
			territoryOrder(1, 1, 100, ""),
			territoryOrder(2, 2, 100, ""),
			territoryOrder(3, 3, 100, ""),
			territoryOrder(4, 4, 50, ""),
		}
		report := AggregateTerritories(TerritorialInput{
			Locations:     BuildLocationIndex(customers),
			CurrentOrders: orders,
		}, territoryNow)

		e := report.Regions[0].Expansion
		assert.Equal(t, 1, e.CitiesWithFewCustomers)
		require.Len(t, e.PotentialCities, 1)
		assert.Equal(t, "Small", e.PotentialCities[0].City)
		assert.Equal(t, 1, report.Summary.Expansion.TotalExpansionOpportunities)
	})

	t.Run("growth compares against the previous period", func(t *testing.T) {
		locations := BuildLocationIndex([]Customer{
			{ID: 1, City: "A", Region: "Grew"},
			{ID: 2, City: "B", Region: "Fresh"},
		})
		current := []Order{
			territoryOrder(1, 1, 150, ""),
			territoryOrder(2, 2, 80, ""),
		}
		previous := []Order{territoryOrder(3, 1, 100, "")}
		report := AggregateTerritories(TerritorialInput{
			Locations:      locations,
			CurrentOrders:  current,
			PreviousOrders: previous,
		}, territoryNow)

		grew := report.Regions[0]
		require.Equal(t, "Grew", grew.Region)
		assert.Equal(t, 50.0, grew.Growth.GrowthRate)
		assert.Equal(t, 50.0, grew.Growth.GrowthAmount)

		fresh := report.Regions[1]
		require.Equal(t, "Fresh", fresh.Region)
		assert.Equal(t, 100.0, fresh.Growth.GrowthRate)
		assert.Equal(t, 0.0, fresh.Growth.PreviousRevenue)
	})

	t.Run("global growth includes regions with no current orders", func(t *testing.T) {
		locations := BuildLocationIndex([]Customer{
			{ID: 1, City: "A", Region: "Alive"},
			{ID: 2, City: "B", Region: "Gone"},
		})
		current := []Order{territoryOrder(1, 1, 300, "")}
		previous := []Order{
			territoryOrder(2, 1, 100, ""),
			territoryOrder(3, 2, 100, ""), // region absent from current period
		}
		report := AggregateTerritories(TerritorialInput{
			Locations:      locations,
			CurrentOrders:  current,
			PreviousOrders: previous,
		}, territoryNow)

		g := report.Summary.GlobalGrowth
		assert.Equal(t, 300.0, g.CurrentPeriodRevenue)
		assert.Equal(t, 200.0, g.PreviousPeriodRevenue)
		assert.Equal(t, 50.0, g.GrowthRatePct)
		assert.Equal(t, 100.0, g.GrowthAmount)
	})

	t.Run("top growing regions keep only positive rates", func(t *testing.T) {
		locations := BuildLocationIndex([]Customer{
			{ID: 1, City: "A", Region: "Up"},
			{ID: 2, City: "B", Region: "Down"},
		})
		current := []Order{
			territoryOrder(1, 1, 200, ""),
			territoryOrder(2, 2, 50, ""),
		}
		previous := []Order{
			territoryOrder(3, 1, 100, ""),
			territoryOrder(4, 2, 100, ""),
		}
		report := AggregateTerritories(TerritorialInput{
			Locations:      locations,
			CurrentOrders:  current,
			PreviousOrders: previous,
		}, territoryNow)

		require.Len(t, report.Summary.TopGrowingRegions, 1)
		assert.Equal(t, "Up", report.Summary.TopGrowingRegions[0].Region)
		assert.Equal(t, 100.0, report.Summary.TopGrowingRegions[0].GrowthRate)
	})

	t.Run("segments are tallied per region over all-time history", func(t *testing.T) {
		locations := BuildLocationIndex([]Customer{
			{ID: 1, City: "A", Region: "R"},
			{ID: 2, City: "A", Region: "R"},
		})
		current := []Order{
			territoryOrder(1, 1, 100, ""),
			territoryOrder(2, 2, 100, ""),
		}
		allTime := []Order{
			// customer 1: single recent purchase
			{ID: 3, CustomerID: 1, Amount: decimal.NewFromInt(100), Date: territoryNow.AddDate(0, 0, -5)},
			// customer 2: silent for over a year
			{ID: 4, CustomerID: 2, Amount: decimal.NewFromInt(100), Date: territoryNow.AddDate(0, 0, -400)},
			{ID: 5, CustomerID: 2, Amount: decimal.NewFromInt(100), Date: territoryNow.AddDate(0, 0, -500)},
		}
		report := AggregateTerritories(TerritorialInput{
			Locations:     locations,
			CurrentOrders: current,
			AllTimeOrders: allTime,
		}, territoryNow)

		tally := report.Regions[0].Segments
		assert.Equal(t, 1, tally.New)
		assert.Equal(t, 1, tally.Inactive)
		assert.Equal(t, report.Regions[0].Segments, report.Summary.GlobalSegments)
	})

	t.Run("summary totals sum per-region figures", func(t *testing.T) {
		locations := BuildLocationIndex([]Customer{
			{ID: 1, City: "A", Region: "R1"},
			{ID: 2, City: "B", Region: "R1"},
			{ID: 3, City: "C", Region: "R2"},
		})
		orders := []Order{
			territoryOrder(1, 1, 100, ""),
			territoryOrder(2, 2, 200, ""),
			territoryOrder(3, 3, 300, ""),
		}
		report := AggregateTerritories(TerritorialInput{Locations: locations, CurrentOrders: orders}, territoryNow)

		s := report.Summary
		assert.Equal(t, 600.0, s.TotalRevenue)
		assert.Equal(t, 2, s.TotalRegions)
		assert.Equal(t, 3, s.TotalOrders)
		assert.Equal(t, 3, s.TotalCustomers)
		assert.Equal(t, 3, s.TotalCities)
		assert.Equal(t, 2, s.Expansion.UnderservedTerritories)
	})

	t.Run("empty input yields an empty report", func(t *testing.T) {
		report := AggregateTerritories(TerritorialInput{}, territoryNow)

		assert.Empty(t, report.Regions)
		assert.Equal(t, 0.0, report.Summary.TotalRevenue)
		assert.Empty(t, report.Summary.TopRegion)
	})
}
