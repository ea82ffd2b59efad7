package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		amount string
		code   string
		want   string
	}{
		{"1234.5", "MYR", "RM1,234.50"},
		{"1234567.891", "usd", "$1,234,567.89"},
		{"15000.4", "JPY", "¥15,000"},
		{"999", "EUR", "€999.00"},
		{"1500", "SAR", "1,500.00ر.س"},
		{"-2500.5", "GBP", "£-2,500.50"},
		{"1000.5", "XXX", "1,000.50 XXX"},
	}
	for _, tt := range tests {
		t.Run(tt.code+"_"+tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(decimal.RequireFromString(tt.amount), tt.code))
		})
	}
}

func TestCatalog(t *testing.T) {
	all := Catalog()
	assert.Len(t, all, 20)
	assert.Equal(t, "AED", all[0].Code)

	jpy, ok := Lookup("jpy")
	assert.True(t, ok)
	assert.Equal(t, int32(0), jpy.DecimalPlaces)

	assert.True(t, Supported("MYR"))
	assert.False(t, Supported("BTC"))
}

func TestDefaultFor(t *testing.T) {
	assert.Equal(t, "SGD", DefaultFor("Singapore"))
	assert.Equal(t, "KRW", DefaultFor("south korea"))
	assert.Equal(t, DefaultCurrency, DefaultFor("atlantis"))
}
