package odoo

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/salesiq/backend/internal/domain/insight"
)

// Default fetch ceilings. They bound memory on very large databases
// while staying far above typical result sizes.
const (
	customerFetchLimit    = 5000
	profileFetchLimit     = 1000
	orderFetchLimit       = 10000
	lineFetchLimit        = 20000
	opportunityFetchLimit = 500
)

// Source implements insight.DataSource on top of the XML-RPC client.
// Every method issues a fresh search_read; nothing is cached.
type Source struct {
	client *Client
	logger *zap.Logger
}

// NewSource wires the data source to an Odoo client.
func NewSource(client *Client, logger *zap.Logger) *Source {
	return &Source{client: client, logger: logger}
}

var _ insight.DataSource = (*Source)(nil)

// Ping verifies the backend session.
func (s *Source) Ping(ctx context.Context) (int64, error) {
	return s.client.Ping(ctx)
}

// Customers returns the geographic snapshot of every customer.
func (s *Source) Customers(ctx context.Context) ([]insight.Customer, error) {
	records, err := s.client.SearchRead(ctx, "res.partner",
		[]interface{}{
			[]interface{}{"customer_rank", ">", 0},
		},
		QueryOptions{
			Fields: []string{"name", "city", "state_id", "country_id"},
			Limit:  customerFetchLimit,
		})
	if err != nil {
		return nil, err
	}

	customers := make([]insight.Customer, 0, len(records))
	for _, r := range records {
		regionID, region := r.Ref("state_id")
		customers = append(customers, insight.Customer{
			ID:       r.Int64("id"),
			Name:     r.Str("name"),
			City:     r.Str("city"),
			Region:   region,
			RegionID: regionID,
			Country:  r.RefName("country_id"),
		})
	}
	return customers, nil
}

// profileFields is the contact snapshot fetched for insights and search.
var profileFields = []string{
	"name", "email", "phone", "mobile", "street", "street2",
	"city", "state_id", "zip", "country_id", "vat", "ref", "create_date",
}

// CustomerProfiles returns full contact snapshots for all customers.
func (s *Source) CustomerProfiles(ctx context.Context) ([]insight.CustomerProfile, error) {
	records, err := s.client.SearchRead(ctx, "res.partner",
		[]interface{}{
			[]interface{}{"customer_rank", ">", 0},
		},
		QueryOptions{Fields: profileFields, Limit: profileFetchLimit})
	if err != nil {
		return nil, err
	}
	return profilesFromRecords(records), nil
}

// SearchCustomers matches query case-insensitively against name, email,
// phone and reference. It searches all partners, not just ranked
// customers: lookups by reference may target suppliers or fresh
// contacts that have no sale yet.
func (s *Source) SearchCustomers(ctx context.Context, query string, limit int) ([]insight.CustomerProfile, error) {
	if limit <= 0 {
		limit = 10
	}
	records, err := s.client.SearchRead(ctx, "res.partner",
		[]interface{}{
			"|", "|", "|",
			[]interface{}{"name", "ilike", query},
			[]interface{}{"email", "ilike", query},
			[]interface{}{"phone", "ilike", query},
			[]interface{}{"ref", "ilike", query},
		},
		QueryOptions{Fields: profileFields, Limit: limit})
	if err != nil {
		return nil, err
	}
	return profilesFromRecords(records), nil
}

func profilesFromRecords(records []Record) []insight.CustomerProfile {
	profiles := make([]insight.CustomerProfile, 0, len(records))
	for _, r := range records {
		p := insight.CustomerProfile{
			ID:      r.Int64("id"),
			Name:    r.Str("name"),
			Email:   r.Str("email"),
			Phone:   r.Str("phone"),
			Mobile:  r.Str("mobile"),
			Street:  r.Str("street"),
			Street2: r.Str("street2"),
			City:    r.Str("city"),
			Region:  r.RefName("state_id"),
			Zip:     r.Str("zip"),
			Country: r.RefName("country_id"),
			VAT:     r.Str("vat"),
			Ref:     r.Str("ref"),
		}
		if t := r.Time("create_date"); !t.IsZero() {
			p.CreatedAt = &t
		}
		profiles = append(profiles, p)
	}
	return profiles
}

// SalesOrders returns orders matching the filter, most recent first.
func (s *Source) SalesOrders(ctx context.Context, f insight.OrderFilter) ([]insight.Order, error) {
	domain := []interface{}{}
	if f.ConfirmedOnly {
		domain = append(domain, []interface{}{"state", "in", insight.ConfirmedStates})
	} else if f.State != "" {
		domain = append(domain, []interface{}{"state", "=", f.State})
	}
	if !f.From.IsZero() {
		domain = append(domain, []interface{}{"date_order", ">=", f.From.Format(dateLayout)})
	}
	if !f.To.IsZero() {
		domain = append(domain, []interface{}{"date_order", "<=", f.To.Format(dateLayout)})
	}
	if len(f.PartnerIDs) > 0 {
		domain = append(domain, []interface{}{"partner_id", "in", f.PartnerIDs})
	}
	if f.HasMinAmount {
		domain = append(domain, []interface{}{"amount_total", ">=", f.MinAmount})
	}
	limit := f.Limit
	if limit <= 0 {
		limit = orderFetchLimit
	}

	records, err := s.client.SearchRead(ctx, "sale.order", domain, QueryOptions{
		Fields: []string{"name", "partner_id", "amount_total", "state", "date_order", "user_id", "team_id"},
		Limit:  limit,
		Order:  "date_order desc",
	})
	if err != nil {
		return nil, err
	}

	orders := make([]insight.Order, 0, len(records))
	for _, r := range records {
		customerID, customerName := r.Ref("partner_id")
		salespersonID, salesperson := r.Ref("user_id")
		orders = append(orders, insight.Order{
			ID:            r.Int64("id"),
			Number:        r.Str("name"),
			CustomerID:    customerID,
			CustomerName:  customerName,
			Amount:        r.Decimal("amount_total"),
			State:         r.Str("state"),
			Date:          r.Time("date_order"),
			SalespersonID: salespersonID,
			Salesperson:   salesperson,
			Team:          r.RefName("team_id"),
		})
	}
	return orders, nil
}

// OrderLines returns order lines matching the filter.
func (s *Source) OrderLines(ctx context.Context, f insight.LineFilter) ([]insight.OrderLine, error) {
	domain := []interface{}{}
	if len(f.OrderIDs) > 0 {
		domain = append(domain, []interface{}{"order_id", "in", f.OrderIDs})
	}
	if !f.ConfirmedSince.IsZero() {
		domain = append(domain,
			[]interface{}{"order_id.state", "in", insight.ConfirmedStates},
			[]interface{}{"order_id.date_order", ">=", f.ConfirmedSince.Format(dateLayout)})
	}
	limit := f.Limit
	if limit <= 0 {
		limit = lineFetchLimit
	}

	records, err := s.client.SearchRead(ctx, "sale.order.line", domain, QueryOptions{
		Fields: []string{"order_id", "product_id", "product_uom_qty", "price_subtotal"},
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}

	lines := make([]insight.OrderLine, 0, len(records))
	for _, r := range records {
		orderID, _ := r.Ref("order_id")
		productID, productName := r.Ref("product_id")
		lines = append(lines, insight.OrderLine{
			ID:          r.Int64("id"),
			OrderID:     orderID,
			ProductID:   productID,
			ProductName: productName,
			Quantity:    r.Float("product_uom_qty"),
			Subtotal:    r.Decimal("price_subtotal"),
		})
	}
	return lines, nil
}

// Opportunities returns pipeline entries, largest expected revenue first.
func (s *Source) Opportunities(ctx context.Context, f insight.OpportunityFilter) ([]insight.Opportunity, error) {
	domain := []interface{}{
		[]interface{}{"type", "=", "opportunity"},
	}
	if f.Stage != "" {
		domain = append(domain, []interface{}{"stage_id.name", "=", f.Stage})
	}
	if f.MinProbability != nil {
		domain = append(domain, []interface{}{"probability", ">=", *f.MinProbability})
	}
	if !f.InactiveSince.IsZero() {
		domain = append(domain, []interface{}{"write_date", "<", f.InactiveSince.Format(datetimeLayout)})
	}
	limit := f.Limit
	if limit <= 0 {
		limit = opportunityFetchLimit
	}

	records, err := s.client.SearchRead(ctx, "crm.lead", domain, QueryOptions{
		Fields: []string{"name", "partner_id", "expected_revenue", "probability", "stage_id", "user_id", "team_id", "date_deadline", "create_date", "write_date"},
		Limit:  limit,
		Order:  "expected_revenue desc",
	})
	if err != nil {
		return nil, err
	}

	opportunities := make([]insight.Opportunity, 0, len(records))
	for _, r := range records {
		o := insight.Opportunity{
			ID:              r.Int64("id"),
			Name:            r.Str("name"),
			CustomerName:    r.RefName("partner_id"),
			ExpectedRevenue: r.Float("expected_revenue"),
			Probability:     r.Float("probability"),
			Stage:           r.RefName("stage_id"),
			Salesperson:     r.RefName("user_id"),
			Team:            r.RefName("team_id"),
		}
		o.Deadline = timePtr(r.Time("date_deadline"))
		o.CreatedAt = timePtr(r.Time("create_date"))
		o.UpdatedAt = timePtr(r.Time("write_date"))
		opportunities = append(opportunities, o)
	}
	return opportunities, nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
