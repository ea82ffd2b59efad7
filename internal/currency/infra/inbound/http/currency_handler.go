package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/davicafu/tripcache/internal/currency/domain"
	"github.com/davicafu/tripcache/pkg/utils"
)

// RateReader es lo que necesitan los endpoints de monedas.
type RateReader interface {
	Base() string
	Rates(ctx context.Context) (map[string]string, error)
	RatesFrom(ctx context.Context, from string, targets []string) (map[string]decimal.Decimal, error)
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (*domain.Conversion, error)
	SupportedCurrencies(ctx context.Context) []domain.CurrencyInfo
}

// CurrencyHandler encapsula los endpoints HTTP de monedas.
type CurrencyHandler struct {
	service RateReader
	log     *zap.Logger
}

func NewCurrencyHandler(service RateReader, log *zap.Logger) *CurrencyHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CurrencyHandler{service: service, log: log}
}

// Supported endpoint GET /api/currencies/supported
func (h *CurrencyHandler) Supported(c *gin.Context) {
	list := h.service.SupportedCurrencies(c.Request.Context())
	out := make(map[string]domain.CurrencyInfo, len(list))
	for _, info := range list {
		out[info.Code] = info
	}
	utils.SendSuccess(c, http.StatusOK, out)
}

// Rates endpoint GET /api/currencies/rates
func (h *CurrencyHandler) Rates(c *gin.Context) {
	rates, err := h.service.Rates(c.Request.Context())
	if err != nil {
		h.log.Error("failed to get exchange rates", zap.Error(err))
		utils.SendServiceUnavailable(c, "exchange rates temporarily unavailable")
		return
	}
	utils.SendSuccess(c, http.StatusOK, gin.H{"base": h.service.Base(), "rates": rates})
}

// RatesFrom endpoint GET /api/currencies/rates/:from?to=USD,SGD
func (h *CurrencyHandler) RatesFrom(c *gin.Context) {
	from := strings.ToUpper(c.Param("from"))
	var targets []string
	for _, t := range strings.Split(c.Query("to"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			targets = append(targets, t)
		}
	}
	if len(targets) == 0 {
		utils.SendBadRequest(c, "to is required")
		return
	}

	rates, err := h.service.RatesFrom(c.Request.Context(), from, targets)
	switch {
	case err == nil:
		utils.SendSuccess(c, http.StatusOK, gin.H{"from": from, "rates": rates})
	case errors.Is(err, domain.ErrUnsupportedCurrency):
		utils.SendBadRequest(c, "invalid currency code")
	case errors.Is(err, domain.ErrRateNotFound):
		utils.SendNotFound(c, err.Error())
	default:
		h.log.Error("failed to get exchange rates", zap.String("from", from), zap.Error(err))
		utils.SendServiceUnavailable(c, "exchange rates temporarily unavailable")
	}
}

// Convert endpoint GET /api/currencies/convert?amount=&from=&to=
func (h *CurrencyHandler) Convert(c *gin.Context) {
	raw := c.Query("amount")
	if raw == "" {
		utils.SendBadRequest(c, "amount is required")
		return
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil || !amount.IsPositive() {
		utils.SendBadRequest(c, "amount must be a positive number")
		return
	}
	from := c.DefaultQuery("from", domain.DefaultCurrency)
	to := c.DefaultQuery("to", domain.DefaultCurrency)
	if !domain.Supported(from) || !domain.Supported(to) {
		utils.SendBadRequest(c, "invalid currency code")
		return
	}

	conv, err := h.service.Convert(c.Request.Context(), amount, from, to)
	switch {
	case err == nil:
		utils.SendSuccess(c, http.StatusOK, conv)
	case errors.Is(err, domain.ErrRateNotFound):
		utils.SendNotFound(c, err.Error())
	default:
		h.log.Error("currency conversion failed", zap.String("from", from), zap.String("to", to), zap.Error(err))
		utils.SendServiceUnavailable(c, "currency conversion failed")
	}
}
