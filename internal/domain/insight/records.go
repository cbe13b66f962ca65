package insight

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConfirmedStates is the set of order states that count toward revenue.
var ConfirmedStates = []string{"sale", "done"}

// Customer is the geographic snapshot of a customer used for territorial
// attribution. Geo fields are raw backend values and may be empty; the
// joiner maps empty values to fixed placeholders.
type Customer struct {
	ID       int64
	Name     string
	City     string
	Region   string
	RegionID int64
	Country  string
}

// CustomerProfile is the full contact/geo snapshot returned by customer
// search and used to enrich customer insights.
type CustomerProfile struct {
	ID        int64      `json:"partner_id"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Mobile    string     `json:"mobile,omitempty"`
	Street    string     `json:"street,omitempty"`
	Street2   string     `json:"street2,omitempty"`
	City      string     `json:"city,omitempty"`
	Region    string     `json:"state,omitempty"`
	Zip       string     `json:"zip,omitempty"`
	Country   string     `json:"country,omitempty"`
	VAT       string     `json:"vat,omitempty"`
	Ref       string     `json:"ref,omitempty"`
	CreatedAt *time.Time `json:"customer_since,omitempty"`
}

// Order is an immutable sales order snapshot.
type Order struct {
	ID            int64
	Number        string
	CustomerID    int64 // 0 when the backend has no customer reference
	CustomerName  string
	Amount        decimal.Decimal
	State         string
	Date          time.Time
	SalespersonID int64
	Salesperson   string
	Team          string
}

// HasCustomer reports whether the order carries a customer reference.
func (o Order) HasCustomer() bool { return o.CustomerID != 0 }

// OrderLine is a single line of a sales order.
type OrderLine struct {
	ID          int64
	OrderID     int64
	ProductID   int64 // 0 when the backend has no product reference
	ProductName string
	Quantity    float64
	Subtotal    decimal.Decimal
}

// HasProduct reports whether the line carries a product reference.
func (l OrderLine) HasProduct() bool { return l.ProductID != 0 }

// Opportunity is a CRM pipeline entry.
type Opportunity struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	CustomerName    string     `json:"partner,omitempty"`
	ExpectedRevenue float64    `json:"expected_revenue"`
	Probability     float64    `json:"probability"`
	Stage           string     `json:"stage,omitempty"`
	Salesperson     string     `json:"salesperson,omitempty"`
	Team            string     `json:"team,omitempty"`
	Deadline        *time.Time `json:"date_deadline,omitempty"`
	CreatedAt       *time.Time `json:"create_date,omitempty"`
	UpdatedAt       *time.Time `json:"write_date,omitempty"`
}
