package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	currencyDomain "github.com/davicafu/tripcache/internal/currency/domain"
	sharedBus "github.com/davicafu/tripcache/internal/shared/infra/platform/bus"
)

const (
	TierFree    = "free"
	TierPremium = "premium"
)

// User es el perfil de un viajero. Es lo que se cachea en user:{id}.
type User struct {
	ID                uuid.UUID `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	SubscriptionTier  string    `json:"subscription_tier"`
	PreferredCurrency string    `json:"preferred_currency"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NewUser valida y construye un usuario nuevo en el tier gratuito. Sin moneda
// preferida se usa la moneda por defecto.
func NewUser(email, name, currency string, now time.Time) (*User, error) {
	if currency == "" {
		currency = currencyDomain.DefaultCurrency
	}
	u := &User{
		ID:                uuid.New(),
		Email:             strings.ToLower(strings.TrimSpace(email)),
		Name:              strings.TrimSpace(name),
		SubscriptionTier:  TierFree,
		PreferredCurrency: strings.ToUpper(currency),
		CreatedAt:         now.UTC(),
		UpdatedAt:         now.UTC(),
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *User) Validate() error {
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return fmt.Errorf("%w: email %q", ErrInvalidUser, u.Email)
	}
	if u.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidUser)
	}
	if u.SubscriptionTier != TierFree && u.SubscriptionTier != TierPremium {
		return fmt.Errorf("%w: tier %q", ErrInvalidUser, u.SubscriptionTier)
	}
	if !currencyDomain.Supported(u.PreferredCurrency) {
		return fmt.Errorf("%w: %s", currencyDomain.ErrUnsupportedCurrency, u.PreferredCurrency)
	}
	return nil
}

func (u *User) IsPremium() bool { return u.SubscriptionTier == TierPremium }

func (u *User) PartitionKey() string {
	return u.ID.String()
}

// Verificación estática para asegurar que User implementa la interfaz
var _ sharedBus.Keyer = (*User)(nil)
