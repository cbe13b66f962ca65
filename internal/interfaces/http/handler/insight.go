package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	appinsight "github.com/salesiq/backend/internal/application/insight"
)

// ReportService is the application surface the insight endpoints call.
type ReportService interface {
	SalesData(ctx context.Context, q appinsight.SalesQuery) (*appinsight.SalesReport, error)
	CustomerInsights(ctx context.Context, q appinsight.InsightQuery) (*appinsight.CustomerInsightsReport, error)
	Opportunities(ctx context.Context, q appinsight.OpportunityQuery) (*appinsight.OpportunityReport, error)
	ProductPerformance(ctx context.Context, q appinsight.ProductQuery) (*appinsight.ProductReport, error)
	TeamPerformance(ctx context.Context, q appinsight.SalesQuery) (*appinsight.TeamReport, error)
	SearchCustomers(ctx context.Context, q appinsight.SearchQuery) (*appinsight.SearchReport, error)
	TerritorialAnalysis(ctx context.Context, q appinsight.SalesQuery) (*appinsight.TerritorialAnalysisReport, error)
	ComprehensiveData(ctx context.Context, q appinsight.SalesQuery) (*appinsight.ComprehensiveReport, error)
}

// InsightHandler exposes the report endpoints
type InsightHandler struct {
	BaseHandler
	service ReportService
}

// NewInsightHandler creates a new InsightHandler
func NewInsightHandler(service ReportService) *InsightHandler {
	return &InsightHandler{service: service}
}

// RegisterRoutes registers the report endpoints. The paths are a wire
// contract with existing clients and keep their tool-style names.
func (h *InsightHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/get_sales_data", h.GetSalesData)
	rg.POST("/get_customer_insights", h.GetCustomerInsights)
	rg.POST("/get_crm_opportunities", h.GetCRMOpportunities)
	rg.POST("/get_product_performance", h.GetProductPerformance)
	rg.POST("/get_sales_team_performance", h.GetSalesTeamPerformance)
	rg.POST("/search_customers", h.SearchCustomers)
	rg.POST("/get_territorial_analysis", h.GetTerritorialAnalysis)
	rg.POST("/get_comprehensive_data", h.GetComprehensiveData)
}

// SalesDataRequest is the body of POST /get_sales_data
type SalesDataRequest struct {
	DaysBack   int      `json:"days_back" binding:"omitempty,gte=1"`
	State      string   `json:"state" binding:"omitempty,oneof=draft sent sale done cancel"`
	PartnerIDs []int64  `json:"partner_ids"`
	MinAmount  *float64 `json:"min_amount" binding:"omitempty,gte=0"`
}

// CustomerInsightsRequest is the body of POST /get_customer_insights
type CustomerInsightsRequest struct {
	Segment      string   `json:"segment" binding:"omitempty,oneof=all vip regular at_risk new inactive"`
	MinPurchases *int     `json:"min_purchases" binding:"omitempty,gte=0"`
	MinRevenue   *float64 `json:"min_revenue" binding:"omitempty,gte=0"`
}

// OpportunitiesRequest is the body of POST /get_crm_opportunities
type OpportunitiesRequest struct {
	Stage          string `json:"stage"`
	MinProbability *int   `json:"min_probability" binding:"omitempty,gte=0,lte=100"`
	DaysInactive   *int   `json:"days_inactive" binding:"omitempty,gte=1"`
}

// ProductPerformanceRequest is the body of POST /get_product_performance
type ProductPerformanceRequest struct {
	DaysBack int `json:"days_back" binding:"omitempty,gte=1"`
	TopN     int `json:"top_n" binding:"omitempty,gte=1"`
}

// PeriodRequest is the body of the endpoints that only take a window
type PeriodRequest struct {
	DaysBack int `json:"days_back" binding:"omitempty,gte=1"`
}

// SearchCustomersRequest is the body of POST /search_customers
type SearchCustomersRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit" binding:"omitempty,gte=1"`
}

// bindJSON decodes the request body. An empty body is valid: every
// field of every request has a default.
func (h *InsightHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		h.BadRequest(c, err.Error())
		return false
	}
	return true
}

// GetSalesData handles POST /get_sales_data
func (h *InsightHandler) GetSalesData(c *gin.Context) {
	var req SalesDataRequest
	if !h.bindJSON(c, &req) {
		return
	}
	report, err := h.service.SalesData(c.Request.Context(), appinsight.SalesQuery{
		DaysBack:   req.DaysBack,
		State:      req.State,
		PartnerIDs: req.PartnerIDs,
		MinAmount:  req.MinAmount,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// GetCustomerInsights handles POST /get_customer_insights
func (h *InsightHandler) GetCustomerInsights(c *gin.Context) {
	var req CustomerInsightsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	report, err := h.service.CustomerInsights(c.Request.Context(), appinsight.InsightQuery{
		Segment:      req.Segment,
		MinPurchases: req.MinPurchases,
		MinRevenue:   req.MinRevenue,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// GetCRMOpportunities handles POST /get_crm_opportunities
func (h *InsightHandler) GetCRMOpportunities(c *gin.Context) {
	var req OpportunitiesRequest
	if !h.bindJSON(c, &req) {
		return
	}
	report, err := h.service.Opportunities(c.Request.Context(), appinsight.OpportunityQuery{
		Stage:          req.Stage,
		MinProbability: req.MinProbability,
		DaysInactive:   req.DaysInactive,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// GetProductPerformance handles POST /get_product_performance
func (h *InsightHandler) GetProductPerformance(c *gin.Context) {
	var req ProductPerformanceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	report, err := h.service.ProductPerformance(c.Request.Context(), appinsight.ProductQuery{
		DaysBack: req.DaysBack,
		TopN:     req.TopN,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// GetSalesTeamPerformance handles POST /get_sales_team_performance
func (h *InsightHandler) GetSalesTeamPerformance(c *gin.Context) {
	var req PeriodRequest
	if !h.bindJSON(c, &req) {
		return
	}
	report, err := h.service.TeamPerformance(c.Request.Context(), appinsight.SalesQuery{DaysBack: req.DaysBack})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// SearchCustomers handles POST /search_customers
func (h *InsightHandler) SearchCustomers(c *gin.Context) {
	var req SearchCustomersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Query is mandatory, so an empty body is an error here.
		h.BadRequest(c, err.Error())
		return
	}
	report, err := h.service.SearchCustomers(c.Request.Context(), appinsight.SearchQuery{
		Query: req.Query,
		Limit: req.Limit,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// GetTerritorialAnalysis handles POST /get_territorial_analysis
func (h *InsightHandler) GetTerritorialAnalysis(c *gin.Context) {
	var req PeriodRequest
	if !h.bindJSON(c, &req) {
		return
	}
	report, err := h.service.TerritorialAnalysis(c.Request.Context(), appinsight.SalesQuery{DaysBack: req.DaysBack})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// GetComprehensiveData handles POST /get_comprehensive_data
func (h *InsightHandler) GetComprehensiveData(c *gin.Context) {
	var req PeriodRequest
	if !h.bindJSON(c, &req) {
		return
	}
	report, err := h.service.ComprehensiveData(c.Request.Context(), appinsight.SalesQuery{DaysBack: req.DaysBack})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}
