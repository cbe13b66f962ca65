package odoo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRecord_Accessors(t *testing.T) {
	r := Record{
		"id":           int64(42),
		"name":         "S00042",
		"amount_total": 199.99,
		"partner_id":   []interface{}{int64(7), "Acme"},
		"date_order":   "2026-08-15 10:30:00",
		"email":        false, // Odoo encodes null as false
	}

	t.Run("reads typed fields", func(t *testing.T) {
		assert.Equal(t, int64(42), r.Int64("id"))
		assert.Equal(t, "S00042", r.Str("name"))
		assert.Equal(t, 199.99, r.Float("amount_total"))
		assert.True(t, r.Decimal("amount_total").Equal(decimal.NewFromFloat(199.99)))
	})

	t.Run("reads many2one pairs", func(t *testing.T) {
		id, name := r.Ref("partner_id")
		assert.Equal(t, int64(7), id)
		assert.Equal(t, "Acme", name)
		assert.Equal(t, "Acme", r.RefName("partner_id"))
	})

	t.Run("parses datetimes", func(t *testing.T) {
		want := time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)
		assert.Equal(t, want, r.Time("date_order"))
	})

	t.Run("parses bare dates", func(t *testing.T) {
		rec := Record{"date_deadline": "2026-08-15"}
		assert.Equal(t, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), rec.Time("date_deadline"))
	})

	t.Run("treats false as absence", func(t *testing.T) {
		assert.Equal(t, "", r.Str("email"))
		assert.Equal(t, int64(0), r.Int64("email"))
		assert.Equal(t, 0.0, r.Float("email"))
		id, name := Record{"partner_id": false}.Ref("partner_id")
		assert.Equal(t, int64(0), id)
		assert.Empty(t, name)
	})

	t.Run("missing keys read as zero values", func(t *testing.T) {
		assert.Equal(t, "", r.Str("missing"))
		assert.True(t, r.Time("missing").IsZero())
		assert.True(t, r.Decimal("missing").IsZero())
	})
}
