package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Base de todos los eventos de integración
type IntegrationEvent struct {
	Type        string          `json:"type"`
	AggregateID string          `json:"aggregate_id"`
	Timestamp   time.Time       `json:"timestamp"`
	Data        json.RawMessage `json:"data"` // contenido específico del evento
}

// NewIntegrationEvent serializa data dentro del sobre común.
func NewIntegrationEvent(eventType, aggregateID string, data interface{}, now time.Time) (IntegrationEvent, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return IntegrationEvent{}, fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return IntegrationEvent{
		Type:        eventType,
		AggregateID: aggregateID,
		Timestamp:   now.UTC(),
		Data:        raw,
	}, nil
}

// PartitionKey agrupa en la misma partición los eventos de un agregado.
func (e IntegrationEvent) PartitionKey() string { return e.AggregateID }
