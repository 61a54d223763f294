package store

import (
	"sync"

	"github.com/efreitasn/escrowbook/internal/domain"
)

// WebhookStore is a thread-safe in-memory store for webhooks.
// Primary index: webhook_id → webhook.
// Secondary index: owner → event type → webhook.
type WebhookStore struct {
	mu       sync.RWMutex
	webhooks map[string]*domain.Webhook
	byOwner  map[domain.Address]map[domain.EventType]*domain.Webhook
}

// NewWebhookStore creates an empty WebhookStore.
func NewWebhookStore() *WebhookStore {
	return &WebhookStore{
		webhooks: make(map[string]*domain.Webhook),
		byOwner:  make(map[domain.Address]map[domain.EventType]*domain.Webhook),
	}
}

// Upsert inserts or updates a subscription keyed by (owner, event).
// An existing subscription keeps its webhook_id; only the URL and
// UpdatedAt change. Returns true if a new subscription was created.
func (s *WebhookStore) Upsert(w *domain.Webhook) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if events, ok := s.byOwner[w.Owner]; ok {
		if existing, ok := events[w.Event]; ok {
			if existing.URL != w.URL {
				existing.URL = w.URL
				existing.UpdatedAt = w.UpdatedAt
			}
			return false
		}
	}

	s.webhooks[w.WebhookID] = w
	if s.byOwner[w.Owner] == nil {
		s.byOwner[w.Owner] = make(map[domain.EventType]*domain.Webhook)
	}
	s.byOwner[w.Owner][w.Event] = w
	return true
}

// GetByOwnerEvent returns the subscription for (owner, event), or nil.
func (s *WebhookStore) GetByOwnerEvent(owner domain.Address, event domain.EventType) *domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.byOwner[owner][event]
}

// ListByEvent returns every subscription for the given event type.
func (s *WebhookStore) ListByEvent(event domain.EventType) []*domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Webhook
	for _, events := range s.byOwner {
		if w, ok := events[event]; ok {
			out = append(out, w)
		}
	}
	return out
}

// ListByOwner returns all of an owner's subscriptions.
func (s *WebhookStore) ListByOwner(owner domain.Address) []*domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Webhook
	for _, w := range s.byOwner[owner] {
		out = append(out, w)
	}
	return out
}

// Delete removes a subscription by id. It returns
// domain.ErrWebhookNotFound if the webhook does not exist.
func (s *WebhookStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.webhooks[id]
	if !ok {
		return domain.ErrWebhookNotFound
	}
	delete(s.webhooks, id)
	delete(s.byOwner[w.Owner], w.Event)
	return nil
}
