package insight

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domain "github.com/salesiq/backend/internal/domain/insight"
)

// Fetch ceilings per report. The numbers bound memory, not correctness:
// each report reads a fresh snapshot and aggregates in memory.
const (
	salesFetchLimit       = 1000
	teamFetchLimit        = 10000
	territorialFetchLimit = 10000
	allOrdersFetchLimit   = 20000
	territoryLineLimit    = 20000
	productLineLimit      = 5000
)

// Date formats used in responses.
const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05"
)

// Service builds the sales intelligence reports. It owns no state
// beyond its dependencies; every report is recomputed from a fresh
// backend snapshot.
type Service struct {
	source domain.DataSource
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates the report service.
func NewService(source domain.DataSource, logger *zap.Logger) *Service {
	return &Service{
		source: source,
		logger: logger,
		now:    time.Now,
	}
}

// SalesData returns orders in the query window with a revenue summary.
// Unlike the confirmed-only reports, it includes orders in any state
// unless the query names one.
func (s *Service) SalesData(ctx context.Context, q SalesQuery) (*SalesReport, error) {
	if q.DaysBack <= 0 {
		q.DaysBack = DefaultDaysBack
	}
	now := s.now()
	from := domain.CurrentPeriodStart(now, q.DaysBack)

	filter := domain.OrderFilter{
		From:       from,
		State:      q.State,
		PartnerIDs: q.PartnerIDs,
		Limit:      salesFetchLimit,
	}
	if q.MinAmount != nil {
		filter.MinAmount = *q.MinAmount
		filter.HasMinAmount = true
	}

	orders, err := s.source.SalesOrders(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]SalesOrderItem, 0, len(orders))
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.Amount)
		item := SalesOrderItem{
			ID:          o.ID,
			Name:        o.Number,
			PartnerID:   o.CustomerID,
			Partner:     o.CustomerName,
			AmountTotal: round2(o.Amount),
			State:       o.State,
			Salesperson: o.Salesperson,
			Team:        o.Team,
		}
		if !o.Date.IsZero() {
			item.DateOrder = o.Date.Format(datetimeLayout)
		}
		items = append(items, item)
	}

	avg := decimal.Zero
	if len(orders) > 0 {
		avg = total.Div(decimal.NewFromInt(int64(len(orders))))
	}

	return &SalesReport{
		Success: true,
		Count:   len(items),
		Data:    items,
		Summary: SalesSummary{
			TotalRevenue:  round2(total),
			AvgOrderValue: round2(avg),
			PeriodDays:    q.DaysBack,
			DateFrom:      from.Format(dateLayout),
			DateTo:        now.Format(dateLayout),
		},
	}, nil
}

// CustomerInsights segments the customer base and returns per-customer
// RFM metrics. Customers with no confirmed orders never appear. The
// full confirmed history is fetched in one query and grouped in memory
// rather than queried per customer.
func (s *Service) CustomerInsights(ctx context.Context, q InsightQuery) (*CustomerInsightsReport, error) {
	now := s.now()

	profiles, err := s.source.CustomerProfiles(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.source.SalesOrders(ctx, domain.OrderFilter{
		ConfirmedOnly: true,
		Limit:         allOrdersFetchLimit,
	})
	if err != nil {
		return nil, err
	}

	segmented := domain.SegmentCustomers(orders, now)

	insights := make([]CustomerInsight, 0, len(profiles))
	var tally domain.SegmentTally
	total := decimal.Zero
	for _, p := range profiles {
		sc, ok := segmented[p.ID]
		if !ok {
			continue
		}
		segment := string(sc.Segment)
		if q.Segment != "" && q.Segment != string(domain.SegmentAll) && q.Segment != segment {
			continue
		}
		m := sc.Metrics
		if q.MinPurchases != nil && m.PurchaseCount < *q.MinPurchases {
			continue
		}
		if q.MinRevenue != nil && m.TotalRevenue.LessThan(decimal.NewFromFloat(*q.MinRevenue)) {
			continue
		}

		item := CustomerInsight{
			CustomerProfile: p,
			TotalRevenue:    round2(m.TotalRevenue),
			NumPurchases:    m.PurchaseCount,
			AvgOrderValue:   round2(m.AvgOrderValue()),
			DaysSinceLast:   m.DaysSinceLast,
			Segment:         segment,
			LTVScore:        round2(m.LTVScore()),
		}
		if !m.LastOrderDate.IsZero() {
			item.LastOrderDate = m.LastOrderDate.Format(datetimeLayout)
		}

		insights = append(insights, item)
		tally.Add(sc.Segment)
		total = total.Add(m.TotalRevenue)
	}

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].TotalRevenue > insights[j].TotalRevenue
	})

	avg := decimal.Zero
	if len(insights) > 0 {
		avg = total.Div(decimal.NewFromInt(int64(len(insights))))
	}

	data := insights
	if len(data) > insightDataCap {
		data = data[:insightDataCap]
	}

	return &CustomerInsightsReport{
		Success: true,
		Count:   len(insights),
		Data:    data,
		Summary: InsightsSummary{
			Segments:              tally,
			TotalRevenue:          round2(total),
			AvgRevenuePerCustomer: round2(avg),
		},
	}, nil
}

// Opportunities returns the CRM pipeline with value metrics.
func (s *Service) Opportunities(ctx context.Context, q OpportunityQuery) (*OpportunityReport, error) {
	filter := domain.OpportunityFilter{
		Stage:          q.Stage,
		MinProbability: q.MinProbability,
	}
	if q.DaysInactive != nil && *q.DaysInactive > 0 {
		filter.InactiveSince = s.now().AddDate(0, 0, -*q.DaysInactive)
	}

	opportunities, err := s.source.Opportunities(ctx, filter)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	weighted := decimal.Zero
	probabilitySum := decimal.Zero
	for _, o := range opportunities {
		revenue := decimal.NewFromFloat(o.ExpectedRevenue)
		probability := decimal.NewFromFloat(o.Probability)
		total = total.Add(revenue)
		weighted = weighted.Add(revenue.Mul(probability).Div(decimal.NewFromInt(100)))
		probabilitySum = probabilitySum.Add(probability)
	}

	metrics := PipelineMetrics{
		TotalOpportunities:    len(opportunities),
		TotalPipelineValue:    round2(total),
		WeightedPipelineValue: round2(weighted),
	}
	if n := len(opportunities); n > 0 {
		metrics.AvgDealSize = round2(total.Div(decimal.NewFromInt(int64(n))))
		metrics.AvgProbability = round2(probabilitySum.Div(decimal.NewFromInt(int64(n))))
	}

	return &OpportunityReport{
		Success:         true,
		Count:           len(opportunities),
		Data:            opportunities,
		PipelineMetrics: metrics,
	}, nil
}

// productAgg accumulates one product's lines.
type productAgg struct {
	name    string
	qty     float64
	revenue decimal.Decimal
}

// ProductPerformance ranks products by confirmed revenue in the window.
func (s *Service) ProductPerformance(ctx context.Context, q ProductQuery) (*ProductReport, error) {
	if q.DaysBack <= 0 {
		q.DaysBack = DefaultProductDaysBack
	}
	if q.TopN <= 0 {
		q.TopN = DefaultTopN
	}
	from := domain.CurrentPeriodStart(s.now(), q.DaysBack)

	lines, err := s.source.OrderLines(ctx, domain.LineFilter{
		ConfirmedSince: from,
		Limit:          productLineLimit,
	})
	if err != nil {
		return nil, err
	}

	stats := make(map[int64]*productAgg)
	var order []int64
	skipped := 0
	for _, l := range lines {
		if !l.HasProduct() {
			skipped++
			continue
		}
		agg := stats[l.ProductID]
		if agg == nil {
			agg = &productAgg{name: l.ProductName}
			stats[l.ProductID] = agg
			order = append(order, l.ProductID)
		}
		agg.qty += l.Quantity
		agg.revenue = agg.revenue.Add(l.Subtotal)
	}
	if skipped > 0 {
		s.logger.Warn("skipped order lines without a product reference", zap.Int("count", skipped))
	}

	performance := make([]ProductPerformanceItem, 0, len(order))
	total := decimal.Zero
	for _, id := range order {
		agg := stats[id]
		total = total.Add(agg.revenue)
		performance = append(performance, ProductPerformanceItem{
			ProductID:    id,
			ProductName:  agg.name,
			TotalQtySold: agg.qty,
			TotalRevenue: round2(agg.revenue),
		})
	}
	sort.SliceStable(performance, func(i, j int) bool {
		return stats[performance[i].ProductID].revenue.GreaterThan(stats[performance[j].ProductID].revenue)
	})

	data := performance
	if len(data) > q.TopN {
		data = data[:q.TopN]
	}

	return &ProductReport{
		Success: true,
		Count:   len(data),
		Data:    data,
		Summary: ProductSummary{
			TotalProducts: len(performance),
			TotalRevenue:  round2(total),
			PeriodDays:    q.DaysBack,
			SkippedLines:  skipped,
		},
	}, nil
}

// salespersonAgg accumulates one salesperson's confirmed orders.
type salespersonAgg struct {
	name    string
	revenue decimal.Decimal
	deals   int
}

// TeamPerformance ranks salespeople by confirmed revenue in the window.
// Orders without an assigned salesperson are left out.
func (s *Service) TeamPerformance(ctx context.Context, q SalesQuery) (*TeamReport, error) {
	if q.DaysBack <= 0 {
		q.DaysBack = DefaultDaysBack
	}
	from := domain.CurrentPeriodStart(s.now(), q.DaysBack)

	orders, err := s.source.SalesOrders(ctx, domain.OrderFilter{
		ConfirmedOnly: true,
		From:          from,
		Limit:         teamFetchLimit,
	})
	if err != nil {
		return nil, err
	}

	stats := make(map[int64]*salespersonAgg)
	var order []int64
	for _, o := range orders {
		if o.SalespersonID == 0 {
			continue
		}
		agg := stats[o.SalespersonID]
		if agg == nil {
			agg = &salespersonAgg{name: o.Salesperson}
			stats[o.SalespersonID] = agg
			order = append(order, o.SalespersonID)
		}
		agg.revenue = agg.revenue.Add(o.Amount)
		agg.deals++
	}

	performance := make([]SalespersonPerformance, 0, len(order))
	total := decimal.Zero
	totalDeals := 0
	for _, id := range order {
		agg := stats[id]
		total = total.Add(agg.revenue)
		totalDeals += agg.deals
		performance = append(performance, SalespersonPerformance{
			UserID:       id,
			UserName:     agg.name,
			TotalRevenue: round2(agg.revenue),
			NumDeals:     agg.deals,
			AvgDealSize:  round2(agg.revenue.Div(decimal.NewFromInt(int64(agg.deals)))),
		})
	}
	sort.SliceStable(performance, func(i, j int) bool {
		return stats[performance[i].UserID].revenue.GreaterThan(stats[performance[j].UserID].revenue)
	})

	summary := TeamSummary{
		TotalRevenue: round2(total),
		TotalDeals:   totalDeals,
		PeriodDays:   q.DaysBack,
	}
	if totalDeals > 0 {
		summary.AvgDealSize = round2(total.Div(decimal.NewFromInt(int64(totalDeals))))
	}

	return &TeamReport{
		Success:     true,
		Count:       len(performance),
		Data:        performance,
		TeamSummary: summary,
	}, nil
}

// SearchCustomers matches customers by name, email, phone or reference.
func (s *Service) SearchCustomers(ctx context.Context, q SearchQuery) (*SearchReport, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultSearchLimit
	}
	profiles, err := s.source.SearchCustomers(ctx, q.Query, q.Limit)
	if err != nil {
		return nil, err
	}
	return &SearchReport{
		Success: true,
		Count:   len(profiles),
		Data:    profiles,
		Query:   q.Query,
	}, nil
}

// TerritorialAnalysis aggregates revenue, customers, products and
// salespeople per region, with growth, concentration and expansion
// metrics.
func (s *Service) TerritorialAnalysis(ctx context.Context, q SalesQuery) (*TerritorialAnalysisReport, error) {
	if q.DaysBack <= 0 {
		q.DaysBack = DefaultDaysBack
	}
	now := s.now()
	from := domain.CurrentPeriodStart(now, q.DaysBack)
	prevFrom, prevTo := domain.PreviousPeriod(now, q.DaysBack)

	customers, err := s.source.Customers(ctx)
	if err != nil {
		return nil, err
	}
	current, err := s.source.SalesOrders(ctx, domain.OrderFilter{
		From:          from,
		ConfirmedOnly: true,
		Limit:         territorialFetchLimit,
	})
	if err != nil {
		return nil, err
	}
	previous, err := s.source.SalesOrders(ctx, domain.OrderFilter{
		From:          prevFrom,
		To:            prevTo,
		ConfirmedOnly: true,
		Limit:         territorialFetchLimit,
	})
	if err != nil {
		return nil, err
	}
	allOrders, err := s.source.SalesOrders(ctx, domain.OrderFilter{
		ConfirmedOnly: true,
		Limit:         allOrdersFetchLimit,
	})
	if err != nil {
		return nil, err
	}

	var lines []domain.OrderLine
	if len(current) > 0 {
		ids := make([]int64, 0, len(current))
		for _, o := range current {
			ids = append(ids, o.ID)
		}
		lines, err = s.source.OrderLines(ctx, domain.LineFilter{
			OrderIDs: ids,
			Limit:    territoryLineLimit,
		})
		if err != nil {
			return nil, err
		}
	}

	report := domain.AggregateTerritories(domain.TerritorialInput{
		Locations:      domain.BuildLocationIndex(customers),
		CurrentOrders:  current,
		PreviousOrders: previous,
		AllTimeOrders:  allOrders,
		Lines:          lines,
	}, now)

	if report.SkippedLines > 0 || report.UnresolvedOrders > 0 {
		s.logger.Warn("territorial aggregation skipped records",
			zap.Int("lines_without_product", report.SkippedLines),
			zap.Int("orders_without_location", report.UnresolvedOrders))
	}

	return &TerritorialAnalysisReport{
		Success: true,
		Count:   len(report.Regions),
		Data:    report.Regions,
		Summary: TerritorialSummaryPayload{
			TerritorialSummary: report.Summary,
			PeriodDays:         q.DaysBack,
			DateFrom:           from.Format(dateLayout),
			DateTo:             now.Format(dateLayout),
		},
	}, nil
}

// ComprehensiveData runs every report over one window and adds a
// cross-report digest. Any sub-report failure fails the whole call.
func (s *Service) ComprehensiveData(ctx context.Context, q SalesQuery) (*ComprehensiveReport, error) {
	if q.DaysBack <= 0 {
		q.DaysBack = DefaultDaysBack
	}
	window := SalesQuery{DaysBack: q.DaysBack}

	sales, err := s.SalesData(ctx, window)
	if err != nil {
		return nil, err
	}
	customers, err := s.CustomerInsights(ctx, InsightQuery{Segment: string(domain.SegmentAll)})
	if err != nil {
		return nil, err
	}
	opportunities, err := s.Opportunities(ctx, OpportunityQuery{})
	if err != nil {
		return nil, err
	}
	products, err := s.ProductPerformance(ctx, ProductQuery{DaysBack: q.DaysBack})
	if err != nil {
		return nil, err
	}
	team, err := s.TeamPerformance(ctx, window)
	if err != nil {
		return nil, err
	}
	territorial, err := s.TerritorialAnalysis(ctx, window)
	if err != nil {
		return nil, err
	}

	executive := ExecutiveSummary{
		TotalRevenue:       sales.Summary.TotalRevenue,
		NumSales:           sales.Count,
		TotalCustomers:     customers.Count,
		VIPCustomers:       customers.Summary.Segments.VIP,
		AtRiskCustomers:    customers.Summary.Segments.AtRisk,
		NewCustomers:       customers.Summary.Segments.New,
		PipelineValue:      opportunities.PipelineMetrics.WeightedPipelineValue,
		TotalOpportunities: opportunities.Count,
		TopProduct:         "N/A",
		TeamSize:           team.Count,
		TopSeller:          "N/A",
		TotalRegions:       territorial.Summary.TotalRegions,
		TopRegion:          territorial.Summary.TopRegion,
		TopRegionRevenue:   territorial.Summary.TopRegionRevenue,
	}
	if len(products.Data) > 0 {
		executive.TopProduct = products.Data[0].ProductName
		executive.TopProductRevenue = products.Data[0].TotalRevenue
	}
	if len(team.Data) > 0 {
		executive.TopSeller = team.Data[0].UserName
	}

	return &ComprehensiveReport{
		Success:     true,
		PeriodDays:  q.DaysBack,
		GeneratedAt: s.now().Format(time.RFC3339),
		Data: ComprehensiveData{
			Sales:         sales,
			Customers:     customers,
			Opportunities: opportunities,
			Products:      products,
			Team:          team,
			Territorial:   territorial,
		},
		ExecutiveSummary: executive,
	}, nil
}

// round2 converts an exact decimal into the 2-decimal float the API
// responds with.
func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
