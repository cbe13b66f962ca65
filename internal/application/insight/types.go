package insight

import (
	domain "github.com/salesiq/backend/internal/domain/insight"
)

// Default query parameters.
const (
	DefaultDaysBack        = 30
	DefaultProductDaysBack = 90
	DefaultTopN            = 20
	DefaultSearchLimit     = 10

	// insightDataCap bounds the customer list in an insights response.
	insightDataCap = 100
)

// SalesQuery filters a sales or team performance report.
type SalesQuery struct {
	DaysBack   int
	State      string
	PartnerIDs []int64
	MinAmount  *float64
}

// InsightQuery filters a customer insights report.
type InsightQuery struct {
	Segment      string
	MinPurchases *int
	MinRevenue   *float64
}

// OpportunityQuery filters a CRM pipeline report.
type OpportunityQuery struct {
	Stage          string
	MinProbability *int
	DaysInactive   *int
}

// ProductQuery filters a product performance report.
type ProductQuery struct {
	DaysBack int
	TopN     int
}

// SearchQuery is a customer search.
type SearchQuery struct {
	Query string
	Limit int
}

// SalesOrderItem is one order row in a sales report.
type SalesOrderItem struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	PartnerID   int64   `json:"partner_id,omitempty"`
	Partner     string  `json:"partner,omitempty"`
	DateOrder   string  `json:"date_order,omitempty"`
	AmountTotal float64 `json:"amount_total"`
	State       string  `json:"state"`
	Salesperson string  `json:"salesperson,omitempty"`
	Team        string  `json:"team,omitempty"`
}

// SalesSummary is the roll-up of a sales report.
type SalesSummary struct {
	TotalRevenue  float64 `json:"total_revenue"`
	AvgOrderValue float64 `json:"avg_order_value"`
	PeriodDays    int     `json:"period_days"`
	DateFrom      string  `json:"date_from"`
	DateTo        string  `json:"date_to"`
}

// SalesReport is the response of the sales data operation.
type SalesReport struct {
	Success bool             `json:"success"`
	Count   int              `json:"count"`
	Data    []SalesOrderItem `json:"data"`
	Summary SalesSummary     `json:"summary"`
}

// CustomerInsight is one customer row in an insights report: the full
// contact profile enriched with RFM metrics.
type CustomerInsight struct {
	domain.CustomerProfile
	TotalRevenue  float64 `json:"total_revenue"`
	NumPurchases  int     `json:"num_purchases"`
	AvgOrderValue float64 `json:"avg_order_value"`
	LastOrderDate string  `json:"last_order_date,omitempty"`
	DaysSinceLast int     `json:"days_since_last"`
	Segment       string  `json:"segment"`
	LTVScore      float64 `json:"ltv_score"`
}

// InsightsSummary is the roll-up of an insights report.
type InsightsSummary struct {
	Segments              domain.SegmentTally `json:"segments"`
	TotalRevenue          float64             `json:"total_revenue"`
	AvgRevenuePerCustomer float64             `json:"avg_revenue_per_customer"`
}

// CustomerInsightsReport is the response of the customer insights
// operation. Count covers every matching customer; Data carries at most
// the top 100 by revenue.
type CustomerInsightsReport struct {
	Success bool              `json:"success"`
	Count   int               `json:"count"`
	Data    []CustomerInsight `json:"data"`
	Summary InsightsSummary   `json:"summary"`
}

// PipelineMetrics summarizes the CRM pipeline.
type PipelineMetrics struct {
	TotalOpportunities    int     `json:"total_opportunities"`
	TotalPipelineValue    float64 `json:"total_pipeline_value"`
	WeightedPipelineValue float64 `json:"weighted_pipeline_value"`
	AvgDealSize           float64 `json:"avg_deal_size"`
	AvgProbability        float64 `json:"avg_probability"`
}

// OpportunityReport is the response of the CRM opportunities operation.
type OpportunityReport struct {
	Success         bool                 `json:"success"`
	Count           int                  `json:"count"`
	Data            []domain.Opportunity `json:"data"`
	PipelineMetrics PipelineMetrics      `json:"pipeline_metrics"`
}

// ProductPerformanceItem is one product row in a performance report.
type ProductPerformanceItem struct {
	ProductID    int64   `json:"product_id"`
	ProductName  string  `json:"product_name"`
	TotalQtySold float64 `json:"total_qty_sold"`
	TotalRevenue float64 `json:"total_revenue"`
}

// ProductSummary is the roll-up of a product performance report.
type ProductSummary struct {
	TotalProducts int     `json:"total_products"`
	TotalRevenue  float64 `json:"total_revenue"`
	PeriodDays    int     `json:"period_days"`
	SkippedLines  int     `json:"skipped_lines"`
}

// ProductReport is the response of the product performance operation.
type ProductReport struct {
	Success bool                     `json:"success"`
	Count   int                      `json:"count"`
	Data    []ProductPerformanceItem `json:"data"`
	Summary ProductSummary           `json:"summary"`
}

// SalespersonPerformance is one salesperson row in a team report.
type SalespersonPerformance struct {
	UserID       int64   `json:"user_id"`
	UserName     string  `json:"user_name"`
	TotalRevenue float64 `json:"total_revenue"`
	NumDeals     int     `json:"num_deals"`
	AvgDealSize  float64 `json:"avg_deal_size"`
}

// TeamSummary is the roll-up of a team performance report.
type TeamSummary struct {
	TotalRevenue float64 `json:"total_revenue"`
	TotalDeals   int     `json:"total_deals"`
	AvgDealSize  float64 `json:"avg_deal_size"`
	PeriodDays   int     `json:"period_days"`
}

// TeamReport is the response of the team performance operation.
type TeamReport struct {
	Success     bool                     `json:"success"`
	Count       int                      `json:"count"`
	Data        []SalespersonPerformance `json:"data"`
	TeamSummary TeamSummary              `json:"team_summary"`
}

// SearchReport is the response of the customer search operation.
type SearchReport struct {
	Success bool                     `json:"success"`
	Count   int                      `json:"count"`
	Data    []domain.CustomerProfile `json:"data"`
	Query   string                   `json:"query"`
}

// TerritorialSummaryPayload extends the domain summary with the query
// window.
type TerritorialSummaryPayload struct {
	domain.TerritorialSummary
	PeriodDays int    `json:"period_days"`
	DateFrom   string `json:"date_from"`
	DateTo     string `json:"date_to"`
}

// TerritorialAnalysisReport is the response of the territorial analysis
// operation.
type TerritorialAnalysisReport struct {
	Success bool                      `json:"success"`
	Count   int                       `json:"count"`
	Data    []domain.RegionReport     `json:"data"`
	Summary TerritorialSummaryPayload `json:"summary"`
}

// ComprehensiveData bundles every sub-report.
type ComprehensiveData struct {
	Sales         *SalesReport               `json:"sales"`
	Customers     *CustomerInsightsReport    `json:"customers"`
	Opportunities *OpportunityReport         `json:"opportunities"`
	Products      *ProductReport             `json:"products"`
	Team          *TeamReport                `json:"team"`
	Territorial   *TerritorialAnalysisReport `json:"territorial"`
}

// ExecutiveSummary is the cross-report digest of a comprehensive report.
type ExecutiveSummary struct {
	TotalRevenue       float64 `json:"total_revenue"`
	NumSales           int     `json:"num_sales"`
	TotalCustomers     int     `json:"total_customers"`
	VIPCustomers       int     `json:"vip_customers"`
	AtRiskCustomers    int     `json:"at_risk_customers"`
	NewCustomers       int     `json:"new_customers"`
	PipelineValue      float64 `json:"pipeline_value"`
	TotalOpportunities int     `json:"total_opportunities"`
	TopProduct         string  `json:"top_product"`
	TopProductRevenue  float64 `json:"top_product_revenue"`
	TeamSize           int     `json:"team_size"`
	TopSeller          string  `json:"top_seller"`
	TotalRegions       int     `json:"total_states"`
	TopRegion          string  `json:"top_state,omitempty"`
	TopRegionRevenue   float64 `json:"top_state_revenue"`
}

// ComprehensiveReport is the response of the comprehensive data
// operation.
type ComprehensiveReport struct {
	Success          bool              `json:"success"`
	PeriodDays       int               `json:"period_days"`
	GeneratedAt      string            `json:"generated_at"`
	Data             ComprehensiveData `json:"data"`
	ExecutiveSummary ExecutiveSummary  `json:"executive_summary"`
}
