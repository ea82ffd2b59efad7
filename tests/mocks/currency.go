package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	currencyDomain "github.com/davicafu/tripcache/internal/currency/domain"
)

// MockRateProvider simula el proveedor externo de tipos de cambio.
type MockRateProvider struct {
	mock.Mock
}

var _ currencyDomain.RateProvider = (*MockRateProvider)(nil)

func (m *MockRateProvider) Latest(ctx context.Context, base string) (map[string]string, error) {
	args := m.Called(ctx, base)
	rates, _ := args.Get(0).(map[string]string)
	return rates, args.Error(1)
}
