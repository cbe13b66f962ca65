package insight

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TerritorialInput carries the five record sets the territorial
// aggregation is computed from. All sets belong to one request; the
// aggregation itself issues no further fetches.
type TerritorialInput struct {
	Locations      map[int64]Location
	CurrentOrders  []Order
	PreviousOrders []Order
	AllTimeOrders  []Order
	Lines          []OrderLine
}

// CityStats is a city sub-bucket within a region.
type CityStats struct {
	City         string  `json:"city"`
	Revenue      float64 `json:"revenue"`
	Orders       int     `json:"orders"`
	NumCustomers int     `json:"num_customers"`
}

// ProductStats is a product sub-bucket within a region.
type ProductStats struct {
	Product string  `json:"product"`
	Qty     float64 `json:"qty"`
	Revenue float64 `json:"revenue"`
}

// SalespersonStats is a salesperson sub-bucket within a region.
type SalespersonStats struct {
	Salesperson string  `json:"salesperson"`
	Revenue     float64 `json:"revenue"`
	Orders      int     `json:"orders"`
}

// GrowthComparison compares a region's current period against the
// previous one.
type GrowthComparison struct {
	CurrentRevenue  float64 `json:"current_revenue"`
	PreviousRevenue float64 `json:"previous_revenue"`
	GrowthRate      float64 `json:"growth_rate"`
	GrowthAmount    float64 `json:"growth_amount"`
}

// ConcentrationMetrics describes how concentrated a region's revenue is
// in its top cities.
type ConcentrationMetrics struct {
	TotalCities          int     `json:"total_cities"`
	Top3ConcentrationPct float64 `json:"top3_concentration_pct"`
}

// ExpansionOpportunities flags cities with a nonzero but small customer
// base, signaling under-penetration.
type ExpansionOpportunities struct {
	CitiesWithFewCustomers int         `json:"cities_with_1_2_customers"`
	PotentialCities        []CityStats `json:"potential_cities"`
}

// RegionReport is the per-region result of the territorial analysis.
type RegionReport struct {
	Region        string                 `json:"state"`
	TotalRevenue  float64                `json:"total_revenue"`
	NumOrders     int                    `json:"num_orders"`
	NumCustomers  int                    `json:"num_customers"`
	AvgOrderValue float64                `json:"avg_order_value"`
	TopCities     []CityStats            `json:"top_cities"`
	TopProducts   []ProductStats         `json:"top_products"`
	Salespeople   []SalespersonStats     `json:"salespeople"`
	Segments      SegmentTally           `json:"rfm_segmentation"`
	Growth        GrowthComparison       `json:"growth_vs_previous_period"`
	Concentration ConcentrationMetrics   `json:"concentration_metrics"`
	Expansion     ExpansionOpportunities `json:"expansion_opportunities"`
}

// GrowingRegion is a summary entry for the fastest-growing regions.
type GrowingRegion struct {
	Region     string  `json:"state"`
	GrowthRate float64 `json:"growth_rate"`
	Revenue    float64 `json:"revenue"`
}

// GlobalGrowth is the roll-up of growth across all regions.
type GlobalGrowth struct {
	CurrentPeriodRevenue  float64 `json:"current_period_revenue"`
	PreviousPeriodRevenue float64 `json:"previous_period_revenue"`
	GrowthRatePct         float64 `json:"growth_rate_pct"`
	GrowthAmount          float64 `json:"growth_amount"`
}

// ExpansionInsights is the roll-up of expansion and concentration
// signals across all regions.
type ExpansionInsights struct {
	TotalExpansionOpportunities int `json:"total_expansion_opportunities"`
	HighConcentrationRegions    int `json:"states_with_high_concentration"`
	UnderservedTerritories      int `json:"underserved_territories"`
}

// TerritorialSummary is the global roll-up over all regions.
type TerritorialSummary struct {
	TotalRevenue      float64           `json:"total_revenue"`
	TotalRegions      int               `json:"total_states"`
	TotalOrders       int               `json:"total_orders"`
	TotalCustomers    int               `json:"total_customers"`
	TotalCities       int               `json:"total_cities"`
	TopRegion         string            `json:"top_state,omitempty"`
	TopRegionRevenue  float64           `json:"top_state_revenue"`
	GlobalSegments    SegmentTally      `json:"global_rfm_segmentation"`
	GlobalGrowth      GlobalGrowth      `json:"global_growth"`
	TopGrowingRegions []GrowingRegion   `json:"top_growing_states"`
	Expansion         ExpansionInsights `json:"expansion_insights"`
}

// TerritorialReport is the full result of the territorial analysis.
// SkippedLines and UnresolvedOrders are diagnostics for the caller's
// logging; resolution misses never fail the aggregation.
type TerritorialReport struct {
	Regions          []RegionReport
	Summary          TerritorialSummary
	SkippedLines     int
	UnresolvedOrders int
}

// cityBucket, productBucket and salespersonBucket are the fixed-shape
// accumulators behind the insertion-ordered sub-bucket maps.
type cityBucket struct {
	revenue   decimal.Decimal
	orders    int
	customers map[int64]struct{}
}

type productBucket struct {
	qty     float64
	revenue decimal.Decimal
}

type salespersonBucket struct {
	revenue decimal.Decimal
	orders  int
}

// regionBucket accumulates one region's data during the single pass
// over the current-period orders and lines.
type regionBucket struct {
	revenue          decimal.Decimal
	orders           int
	customers        map[int64]struct{}
	cities           map[string]*cityBucket
	cityOrder        []string
	products         map[string]*productBucket
	productOrder     []string
	salespeople      map[string]*salespersonBucket
	salespersonOrder []string
}

func newRegionBucket() *regionBucket {
	return &regionBucket{
		customers:   make(map[int64]struct{}),
		cities:      make(map[string]*cityBucket),
		products:    make(map[string]*productBucket),
		salespeople: make(map[string]*salespersonBucket),
	}
}

// AggregateTerritories performs the full multi-level territorial
// aggregation in memory. Orders whose customer cannot be resolved are
// excluded from every bucket; they still count in non-territorial
// reports, so the exclusion is silent here apart from the tally.
func AggregateTerritories(in TerritorialInput, now time.Time) TerritorialReport {
	buckets := make(map[string]*regionBucket)
	var regionOrder []string
	unresolved := 0

	// Pass 1: current-period orders into region/city/salesperson buckets.
	for _, o := range in.CurrentOrders {
		loc, ok := resolveLocation(in.Locations, o)
		if !ok {
			unresolved++
			continue
		}
		b := buckets[loc.Region]
		if b == nil {
			b = newRegionBucket()
			buckets[loc.Region] = b
			regionOrder = append(regionOrder, loc.Region)
		}
		b.revenue = b.revenue.Add(o.Amount)
		b.orders++
		b.customers[o.CustomerID] = struct{}{}

		city := b.cities[loc.City]
		if city == nil {
			city = &cityBucket{customers: make(map[int64]struct{})}
			b.cities[loc.City] = city
			b.cityOrder = append(b.cityOrder, loc.City)
		}
		city.revenue = city.revenue.Add(o.Amount)
		city.orders++
		city.customers[o.CustomerID] = struct{}{}

		if o.Salesperson != "" {
			sp := b.salespeople[o.Salesperson]
			if sp == nil {
				sp = &salespersonBucket{}
				b.salespeople[o.Salesperson] = sp
				b.salespersonOrder = append(b.salespersonOrder, o.Salesperson)
			}
			sp.revenue = sp.revenue.Add(o.Amount)
			sp.orders++
		}
	}

	// Pass 2: order lines into region product buckets.
	orderCustomer := BuildOrderCustomerIndex(in.CurrentOrders)
	skippedLines := 0
	for _, l := range in.Lines {
		if !l.HasProduct() {
			skippedLines++
			continue
		}
		customerID, ok := orderCustomer[l.OrderID]
		if !ok {
			continue
		}
		loc, ok := in.Locations[customerID]
		if !ok {
			continue
		}
		b := buckets[loc.Region]
		if b == nil {
			continue
		}
		p := b.products[l.ProductName]
		if p == nil {
			p = &productBucket{}
			b.products[l.ProductName] = p
			b.productOrder = append(b.productOrder, l.ProductName)
		}
		p.qty += l.Quantity
		p.revenue = p.revenue.Add(l.Subtotal)
	}

	// Pass 3: all-time segmentation, tallied per region over that
	// region's distinct customers. A customer active in two regions is
	// counted in both; the global tally deliberately preserves that
	// double-count.
	segmented := SegmentCustomers(in.AllTimeOrders, now)

	// Pass 4: previous-period revenue per region label.
	previousRevenue := make(map[string]decimal.Decimal)
	for _, o := range in.PreviousOrders {
		loc, ok := resolveLocation(in.Locations, o)
		if !ok {
			continue
		}
		previousRevenue[loc.Region] = previousRevenue[loc.Region].Add(o.Amount)
	}

	// Derive per-region reports in insertion order, then sort by revenue.
	type regionResult struct {
		report       RegionReport
		revenue      decimal.Decimal
		growthAmount decimal.Decimal
	}
	results := make([]regionResult, 0, len(regionOrder))
	for _, label := range regionOrder {
		b := buckets[label]

		cities := sortedCities(b)
		products := sortedProducts(b)
		salespeople := sortedSalespeople(b)

		var tally SegmentTally
		for id := range b.customers {
			if sc, ok := segmented[id]; ok {
				tally.Add(sc.Segment)
			}
		}

		prev := previousRevenue[label]
		growthAmount := b.revenue.Sub(prev)
		growth := GrowthComparison{
			CurrentRevenue:  round2(b.revenue),
			PreviousRevenue: round2(prev),
			GrowthRate:      growthRate(b.revenue, prev),
			GrowthAmount:    round2(growthAmount),
		}

		concentration := ConcentrationMetrics{
			TotalCities:          len(cities),
			Top3ConcentrationPct: concentrationIndex(b, cities),
		}

		expansion := expansionOpportunities(cities)

		avgOrder := decimal.Zero
		if b.orders > 0 {
			avgOrder = b.revenue.Div(decimal.NewFromInt(int64(b.orders)))
		}

		results = append(results, regionResult{
			report: RegionReport{
				Region:        label,
				TotalRevenue:  round2(b.revenue),
				NumOrders:     b.orders,
				NumCustomers:  len(b.customers),
				AvgOrderValue: round2(avgOrder),
				TopCities:     topN(cities, 5),
				TopProducts:   topN(products, 5),
				Salespeople:   salespeople,
				Segments:      tally,
				Growth:        growth,
				Concentration: concentration,
				Expansion:     expansion,
			},
			revenue:      b.revenue,
			growthAmount: growthAmount,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].revenue.GreaterThan(results[j].revenue)
	})

	regions := make([]RegionReport, len(results))
	summary := TerritorialSummary{TotalRegions: len(results)}
	totalRevenue := decimal.Zero
	for i, r := range results {
		regions[i] = r.report
		totalRevenue = totalRevenue.Add(r.revenue)
		summary.TotalOrders += r.report.NumOrders
		summary.TotalCustomers += r.report.NumCustomers
		summary.TotalCities += r.report.Concentration.TotalCities
		summary.GlobalSegments.Merge(r.report.Segments)
		summary.Expansion.TotalExpansionOpportunities += r.report.Expansion.CitiesWithFewCustomers
		if r.report.Concentration.Top3ConcentrationPct > 80 {
			summary.Expansion.HighConcentrationRegions++
		}
		if r.report.NumCustomers < 5 {
			summary.Expansion.UnderservedTerritories++
		}
	}
	summary.TotalRevenue = round2(totalRevenue)
	if len(regions) > 0 {
		summary.TopRegion = regions[0].Region
		summary.TopRegionRevenue = regions[0].TotalRevenue
	}

	// Global growth sums previous revenue across every region seen in
	// the previous period, including regions with no current orders.
	totalPrevious := decimal.Zero
	for _, v := range previousRevenue {
		totalPrevious = totalPrevious.Add(v)
	}
	globalRate := 0.0
	if totalPrevious.IsPositive() {
		rate, _ := totalRevenue.Sub(totalPrevious).Div(totalPrevious).Mul(decimal.NewFromInt(100)).Round(2).Float64()
		globalRate = rate
	}
	summary.GlobalGrowth = GlobalGrowth{
		CurrentPeriodRevenue:  round2(totalRevenue),
		PreviousPeriodRevenue: round2(totalPrevious),
		GrowthRatePct:         globalRate,
		GrowthAmount:          round2(totalRevenue.Sub(totalPrevious)),
	}

	growing := make([]GrowingRegion, 0)
	for _, r := range regions {
		if r.Growth.GrowthRate > 0 {
			growing = append(growing, GrowingRegion{
				Region:     r.Region,
				GrowthRate: r.Growth.GrowthRate,
				Revenue:    r.TotalRevenue,
			})
		}
	}
	sort.SliceStable(growing, func(i, j int) bool {
		return growing[i].GrowthRate > growing[j].GrowthRate
	})
	if len(growing) > 5 {
		growing = growing[:5]
	}
	summary.TopGrowingRegions = growing

	return TerritorialReport{
		Regions:          regions,
		Summary:          summary,
		SkippedLines:     skippedLines,
		UnresolvedOrders: unresolved,
	}
}

// resolveLocation attributes an order to its customer's location.
func resolveLocation(locations map[int64]Location, o Order) (Location, bool) {
	if !o.HasCustomer() {
		return Location{}, false
	}
	loc, ok := locations[o.CustomerID]
	return loc, ok
}

// growthRate computes (current-previous)/previous*100 with the fixed
// conventions for an empty previous period.
func growthRate(current, previous decimal.Decimal) float64 {
	if previous.IsPositive() {
		rate, _ := current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(2).Float64()
		return rate
	}
	if current.IsPositive() {
		return 100
	}
	return 0
}

// concentrationIndex is the revenue share of the top-3 cities over all
// cities, in percent. cities must already be sorted by revenue desc.
func concentrationIndex(b *regionBucket, cities []CityStats) float64 {
	total := decimal.Zero
	for _, label := range b.cityOrder {
		total = total.Add(b.cities[label].revenue)
	}
	if !total.IsPositive() {
		return 0
	}
	top3 := decimal.Zero
	for i, c := range cities {
		if i >= 3 {
			break
		}
		top3 = top3.Add(b.cities[c.City].revenue)
	}
	pct, _ := top3.Div(total).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return pct
}

// expansionOpportunities selects cities with exactly 1 or 2 distinct
// customers, keeping at most 5 examples (highest revenue first, since
// the input is already sorted).
func expansionOpportunities(cities []CityStats) ExpansionOpportunities {
	few := make([]CityStats, 0)
	for _, c := range cities {
		if c.NumCustomers > 0 && c.NumCustomers <= 2 {
			few = append(few, c)
		}
	}
	out := ExpansionOpportunities{CitiesWithFewCustomers: len(few)}
	out.PotentialCities = topN(few, 5)
	return out
}

// sortedCities returns the region's cities sorted by revenue desc,
// ties broken by insertion order.
func sortedCities(b *regionBucket) []CityStats {
	out := make([]CityStats, 0, len(b.cityOrder))
	for _, label := range b.cityOrder {
		c := b.cities[label]
		out = append(out, CityStats{
			City:         label,
			Revenue:      round2(c.revenue),
			Orders:       c.orders,
			NumCustomers: len(c.customers),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return b.cities[out[i].City].revenue.GreaterThan(b.cities[out[j].City].revenue)
	})
	return out
}

func sortedProducts(b *regionBucket) []ProductStats {
	out := make([]ProductStats, 0, len(b.productOrder))
	for _, label := range b.productOrder {
		p := b.products[label]
		out = append(out, ProductStats{
			Product: label,
			Qty:     p.qty,
			Revenue: round2(p.revenue),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return b.products[out[i].Product].revenue.GreaterThan(b.products[out[j].Product].revenue)
	})
	return out
}

func sortedSalespeople(b *regionBucket) []SalespersonStats {
	out := make([]SalespersonStats, 0, len(b.salespersonOrder))
	for _, label := range b.salespersonOrder {
		sp := b.salespeople[label]
		out = append(out, SalespersonStats{
			Salesperson: label,
			Revenue:     round2(sp.revenue),
			Orders:      sp.orders,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return b.salespeople[out[i].Salesperson].revenue.GreaterThan(b.salespeople[out[j].Salesperson].revenue)
	})
	return out
}

// topN returns at most n leading entries of a sorted slice.
func topN[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n:n]
	}
	return s
}

// round2 converts a decimal amount to a 2-decimal float for JSON output.
func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
