package notify

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/susek555/carmarket-gateway/internal/logger"
)

const defaultBuffer = 16

var ErrHubStopped = errors.New("hub is stopped")

// Event is one notification pushed to a connected client
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewEvent builds an event with a fresh id and timestamp
func NewEvent(kind string, payload json.RawMessage) Event {
	return Event{
		ID:        uuid.New(),
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

// Subscription is one live client connection. Close unsubscribes it; after
// Close (or Hub.Stop) the channel is closed and must not be read as live.
type Subscription struct {
	ID     uuid.UUID
	UserID uuid.UUID
	C      <-chan Event

	hub  *Hub
	once sync.Once
}

// Close removes the subscription from the hub registry
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.unsubscribe(s.UserID, s.ID) })
}

// Hub is an explicitly owned registry of notification subscribers keyed by
// user. Everything is behind one mutex, the lifecycle is NewHub then Stop,
// and every subscriber holds an unsubscribe token.
type Hub struct {
	mu      sync.Mutex
	subs    map[uuid.UUID]map[uuid.UUID]chan Event
	stopped bool

	buffer int
	logger logger.Logger
}

type Config struct {
	// Per-subscription channel buffer. Subscribers that fall this far
	// behind start losing events instead of blocking publishers
	Buffer int

	Logger logger.Logger
}

func NewHub(cfg Config) *Hub {
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultBuffer
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}

	return &Hub{
		subs:   make(map[uuid.UUID]map[uuid.UUID]chan Event),
		buffer: cfg.Buffer,
		logger: cfg.Logger,
	}
}

// Subscribe registers a connection for the user's events
func (h *Hub) Subscribe(userID uuid.UUID) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return nil, ErrHubStopped
	}

	ch := make(chan Event, h.buffer)
	id := uuid.New()

	if h.subs[userID] == nil {
		h.subs[userID] = make(map[uuid.UUID]chan Event)
	}
	h.subs[userID][id] = ch

	return &Subscription{ID: id, UserID: userID, C: ch, hub: h}, nil
}

func (h *Hub) unsubscribe(userID uuid.UUID, id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	byUser, ok := h.subs[userID]
	if !ok {
		return
	}

	if ch, ok := byUser[id]; ok {
		delete(byUser, id)
		close(ch)
	}
	if len(byUser) == 0 {
		delete(h.subs, userID)
	}
}

// Publish delivers the event to every connection of the user. Slow
// subscribers are skipped, a stuck browser tab must not back up the gateway.
func (h *Hub) Publish(userID uuid.UUID, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return
	}

	for id, ch := range h.subs[userID] {
		select {
		case ch <- ev:
		default:
			h.logger.Warn("Dropping event for slow subscriber", "user_id", userID, "subscription_id", id, "kind", ev.Kind)
		}
	}
}

// Stop closes every subscription and rejects further subscribes
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return
	}
	h.stopped = true

	for userID, byUser := range h.subs {
		for _, ch := range byUser {
			close(ch)
		}
		delete(h.subs, userID)
	}
}

// SubscriberCount returns the number of live subscriptions, for tests and
// metrics
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, byUser := range h.subs {
		n += len(byUser)
	}
	return n
}
