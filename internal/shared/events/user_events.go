package events

import (
	"github.com/google/uuid"
)

// Estos son contratos de integración, NO entidades del dominio
// Se definen planos para intercambio entre contextos.
type UserUpdated struct {
	ID                uuid.UUID `json:"id"`
	Email             string    `json:"email,omitempty"`
	Name              string    `json:"name,omitempty"`
	PreferredCurrency string    `json:"preferred_currency,omitempty"`
	SubscriptionTier  string    `json:"subscription_tier,omitempty"`
}

type UserDeleted struct {
	ID uuid.UUID `json:"id"`
}
