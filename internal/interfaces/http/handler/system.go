package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ServiceVersion is reported by the banner endpoint.
const ServiceVersion = "1.2.0"

// HealthChecker verifies the backend session.
type HealthChecker interface {
	Ping(ctx context.Context) (int64, error)
}

// BackendInfo identifies the backend the health endpoint reports on.
type BackendInfo struct {
	URL      string
	Database string
}

// SystemHandler handles the banner, health and tool discovery endpoints
type SystemHandler struct {
	BaseHandler
	checker HealthChecker
	backend BackendInfo
	now     func() time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(checker HealthChecker, backend BackendInfo) *SystemHandler {
	return &SystemHandler{
		checker: checker,
		backend: backend,
		now:     time.Now,
	}
}

// RegisterRoutes registers the system endpoints
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/", h.Root)
	rg.GET("/health", h.Health)
	rg.GET("/tools", h.Tools)
}

// Root handles GET / with the service banner and endpoint directory
func (h *SystemHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     "SalesIQ Backend",
		"status":      "running",
		"description": "Marketing & Sales insight API with territorial analysis over an Odoo backend",
		"version":     ServiceVersion,
		"endpoints": gin.H{
			"health":        "GET /health - Check server health and backend connection",
			"tools":         "GET /tools - List all available tools",
			"sales":         "POST /get_sales_data - Get sales orders with filters",
			"customers":     "POST /get_customer_insights - Customer segmentation (RFM analysis) with geographic data",
			"opportunities": "POST /get_crm_opportunities - CRM pipeline data",
			"products":      "POST /get_product_performance - Product sales performance",
			"team":          "POST /get_sales_team_performance - Sales team metrics",
			"search":        "POST /search_customers - Search customers by name/email/phone with geographic data",
			"territorial":   "POST /get_territorial_analysis - Territorial analysis by region/city",
			"comprehensive": "POST /get_comprehensive_data - All data for complete analysis",
		},
	})
}

// Health handles GET /health. A failed backend session never turns into
// an error status: the endpoint always answers 200 and reports the
// connection state in the body.
func (h *SystemHandler) Health(c *gin.Context) {
	uid, err := h.checker.Ping(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"status":         "unhealthy",
			"odoo_connected": false,
			"error":          err.Error(),
			"timestamp":      h.now().Format(time.RFC3339),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"odoo_connected": true,
		"odoo_uid":       uid,
		"odoo_url":       h.backend.URL,
		"odoo_db":        h.backend.Database,
		"timestamp":      h.now().Format(time.RFC3339),
	})
}

// toolDescriptor describes one tool in the discovery manifest.
type toolDescriptor struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Parameters  []string `json:"parameters"`
}

// toolManifest is static: the tool set only changes with a deploy.
var toolManifest = []toolDescriptor{
	{
		Name:        "get_sales_data",
		Description: "Fetches sales orders with optional filters",
		Parameters:  []string{"days_back", "state", "partner_ids", "min_amount"},
	},
	{
		Name:        "get_customer_insights",
		Description: "Analyzes customer behavior and RFM segmentation with full geographic data (state_id, city, zip, etc.)",
		Parameters:  []string{"segment", "min_purchases", "min_revenue"},
	},
	{
		Name:        "get_crm_opportunities",
		Description: "Fetches opportunities from the sales pipeline",
		Parameters:  []string{"stage", "min_probability", "days_inactive"},
	},
	{
		Name:        "get_product_performance",
		Description: "Analyzes product performance by sales",
		Parameters:  []string{"days_back", "top_n"},
	},
	{
		Name:        "get_sales_team_performance",
		Description: "Sales team performance metrics",
		Parameters:  []string{"days_back"},
	},
	{
		Name:        "search_customers",
		Description: "Searches customers by name, email or phone with full geographic data (state_id, city, zip, street, vat, etc.)",
		Parameters:  []string{"query", "limit"},
	},
	{
		Name:        "get_territorial_analysis",
		Description: "Territorial analysis by region and city: customers, sales, products and salespeople per region, with territorial RFM segmentation, previous-period comparison, concentration metrics and expansion opportunities",
		Parameters:  []string{"days_back"},
	},
	{
		Name:        "get_comprehensive_data",
		Description: "Fetches every dataset needed for a complete analysis",
		Parameters:  []string{"days_back"},
	},
}

// Tools handles GET /tools with the static tool manifest
func (h *SystemHandler) Tools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": toolManifest})
}
