package odoo

import (
	"time"

	"github.com/shopspring/decimal"
)

// Odoo date formats on the wire.
const (
	datetimeLayout = "2006-01-02 15:04:05"
	dateLayout     = "2006-01-02"
)

// Record is one row returned by search_read. Odoo encodes null as the
// boolean false, so every accessor treats false as absence.
type Record map[string]interface{}

// Int64 reads an integer field, 0 when absent.
func (r Record) Int64(key string) int64 {
	n, _ := toInt64(r[key])
	return n
}

// Float reads a numeric field, 0 when absent.
func (r Record) Float(key string) float64 {
	switch n := r[key].(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

// Decimal reads a monetary field as an exact decimal.
func (r Record) Decimal(key string) decimal.Decimal {
	return decimal.NewFromFloat(r.Float(key))
}

// Str reads a string field, "" when absent.
func (r Record) Str(key string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

// Time reads a datetime or date field, the zero time when absent or
// unparseable.
func (r Record) Time(key string) time.Time {
	s := r.Str(key)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(datetimeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t
	}
	return time.Time{}
}

// Ref reads a many2one field, which Odoo encodes as an [id, name]
// pair. Returns (0, "") when the reference is absent.
func (r Record) Ref(key string) (int64, string) {
	pair, ok := r[key].([]interface{})
	if !ok || len(pair) < 2 {
		return 0, ""
	}
	id, _ := toInt64(pair[0])
	name, _ := pair[1].(string)
	return id, name
}

// RefName reads only the display name of a many2one field.
func (r Record) RefName(key string) string {
	_, name := r.Ref(key)
	return name
}
