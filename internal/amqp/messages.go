package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medrent/internal/core"
)

// ErrInvalidMessage marks a delivery that can never be processed.
var ErrInvalidMessage = errors.New("invalid notification message")

// NotificationMessage carries one notification from a refresh pass to the
// agenda worker. It is self-contained so the worker never reads the store.
type NotificationMessage struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Date        core.Date `json:"date"`
	EntityType  string    `json:"entity_type"`
	EntityID    string    `json:"entity_id"`
	PatientName string    `json:"patient_name,omitempty"`
	AsOf        core.Date `json:"as_of"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewNotificationMessage wraps n as raised by the pass for asOf.
func NewNotificationMessage(n core.Notification, asOf core.Date) *NotificationMessage {
	return &NotificationMessage{
		ID:          n.ID,
		Type:        string(n.Type),
		Title:       n.Title,
		Message:     n.Message,
		Date:        n.Date,
		EntityType:  n.EntityType,
		EntityID:    n.EntityID,
		PatientName: n.PatientName,
		AsOf:        asOf,
		Timestamp:   time.Now(),
	}
}

// Notification converts the message back into the core projection.
func (m *NotificationMessage) Notification() core.Notification {
	return core.Notification{
		ID:          m.ID,
		Title:       m.Title,
		Message:     m.Message,
		Type:        core.NotificationType(m.Type),
		Date:        m.Date,
		EntityType:  m.EntityType,
		EntityID:    m.EntityID,
		PatientName: m.PatientName,
	}
}

// ToJSON converts the message to JSON bytes
func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// NotificationMessageFromJSON decodes and validates a delivery body.
func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidMessage)
	}
	if !core.NotificationType(msg.Type).IsValid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, msg.Type)
	}
	return &msg, nil
}
