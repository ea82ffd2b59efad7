package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	currencyDomain "github.com/davicafu/tripcache/internal/currency/domain"
)

func TestNewUser(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	u, err := NewUser(" Aina@Example.com ", "Aina", "", now)
	require.NoError(t, err)
	assert.Equal(t, "aina@example.com", u.Email)
	assert.Equal(t, currencyDomain.DefaultCurrency, u.PreferredCurrency)
	assert.Equal(t, TierFree, u.SubscriptionTier)
	assert.Equal(t, now, u.CreatedAt)
	assert.False(t, u.IsPremium())
	assert.Equal(t, u.ID.String(), u.PartitionKey())
}

func TestNewUser_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		userName string
		currency string
		wantErr  error
	}{
		{"email inválido", "not-an-email", "Ana", "MYR", ErrInvalidUser},
		{"sin nombre", "ana@example.com", "  ", "MYR", ErrInvalidUser},
		{"moneda no soportada", "ana@example.com", "Ana", "BTC", currencyDomain.ErrUnsupportedCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUser(tt.email, tt.userName, tt.currency, time.Now())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
