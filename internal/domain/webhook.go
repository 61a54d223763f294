package domain

import "time"

// Webhook represents a caller's subscription to an event notification.
// The external matcher subscribes to order events this way.
type Webhook struct {
	WebhookID string
	Owner     Address
	Event     EventType
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}
