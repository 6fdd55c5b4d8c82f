package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types pushed to viewers.
const (
	EventPriceUpdate = "price_update"
	EventTrade       = "trade"
	EventLog         = "log"
	EventOrderBook   = "order_book"
	EventSessionLog  = "mt5_log"
	EventHello       = "hello"
)

// EventTypes lists every event type a viewer may receive after the greeting.
var EventTypes = []string{EventPriceUpdate, EventTrade, EventLog, EventOrderBook, EventSessionLog}

// EventsChannel is the single bus channel all events travel on. One channel
// keeps per-producer publish order intact for every subscriber.
const EventsChannel = "nexus:events"

// Event is the envelope written to the bus and to WebSocket clients.
type Event struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Time    time.Time       `json:"time"`
}

// NewEvent marshals payload into an envelope of the given type.
func NewEvent(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("domain: marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:      uuid.NewString(),
		Type:    eventType,
		Payload: raw,
		Time:    time.Now().UTC(),
	}, nil
}

// EncodeEvent builds and serialises an envelope in one step.
func EncodeEvent(eventType string, payload any) ([]byte, error) {
	ev, err := NewEvent(eventType, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(ev)
}
