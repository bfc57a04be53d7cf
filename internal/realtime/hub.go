// Package realtime fans out organization-scoped change events to websocket
// subscribers. Each organization gets its own stream with a bounded replay
// buffer so briefly disconnected clients can catch up.
package realtime

import (
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
)

const (
	DefaultBufferSize       = 50
	DefaultSubscriberBuffer = 16
)

// Event is a single change notification delivered to subscribers.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Publisher is the write-side interface handed to domain services.
type Publisher interface {
	Publish(orgID snowflake.ID, event Event)
}

type Hub struct {
	mu               sync.RWMutex
	streams          map[snowflake.ID]*stream
	bufferSize       int
	subscriberBuffer int
}

type stream struct {
	mu     sync.Mutex
	buffer []Event
	subs   map[uint64]chan Event
	nextID uint64
}

type Subscription struct {
	hub   *Hub
	orgID snowflake.ID
	id    uint64
	ch    chan Event
	once  sync.Once
}

func NewHub() *Hub {
	return &Hub{
		streams:          make(map[snowflake.ID]*stream),
		bufferSize:       DefaultBufferSize,
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

// Publish delivers the event to all current subscribers of the organization
// and appends it to the replay buffer. Slow subscribers are skipped rather
// than blocking the publisher.
func (h *Hub) Publish(orgID snowflake.ID, event Event) {
	if h == nil || orgID == 0 {
		return
	}
	if event.ID == "" {
		event.ID = ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	strm := h.ensureStream(orgID)

	strm.mu.Lock()
	strm.buffer = append(strm.buffer, event)
	if len(strm.buffer) > h.bufferSize {
		strm.buffer = strm.buffer[len(strm.buffer)-h.bufferSize:]
	}
	subs := make([]chan Event, 0, len(strm.subs))
	for _, ch := range strm.subs {
		subs = append(subs, ch)
	}
	strm.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a subscriber for the organization and returns the
// replay backlog captured so far.
func (h *Hub) Subscribe(orgID snowflake.ID) (*Subscription, []Event, error) {
	if h == nil {
		return nil, nil, errors.New("hub_unavailable")
	}
	if orgID == 0 {
		return nil, nil, errors.New("invalid_organization")
	}

	strm := h.ensureStream(orgID)
	strm.mu.Lock()
	if strm.subs == nil {
		strm.subs = make(map[uint64]chan Event)
	}
	id := strm.nextID
	strm.nextID++
	ch := make(chan Event, h.subscriberBuffer)
	strm.subs[id] = ch
	backlog := append([]Event(nil), strm.buffer...)
	strm.mu.Unlock()

	return &Subscription{
		hub:   h,
		orgID: orgID,
		id:    id,
		ch:    ch,
	}, backlog, nil
}

func (h *Hub) ensureStream(orgID snowflake.ID) *stream {
	h.mu.RLock()
	current := h.streams[orgID]
	h.mu.RUnlock()
	if current != nil {
		return current
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	current = h.streams[orgID]
	if current == nil {
		current = &stream{subs: make(map[uint64]chan Event)}
		h.streams[orgID] = current
	}
	return current
}

func (h *Hub) unsubscribe(orgID snowflake.ID, id uint64) {
	if h == nil {
		return
	}

	h.mu.RLock()
	strm := h.streams[orgID]
	h.mu.RUnlock()
	if strm == nil {
		return
	}

	strm.mu.Lock()
	delete(strm.subs, id)
	remaining := len(strm.subs)
	strm.mu.Unlock()
	if remaining != 0 {
		return
	}

	h.mu.Lock()
	current := h.streams[orgID]
	if current != strm {
		h.mu.Unlock()
		return
	}
	strm.mu.Lock()
	empty := len(strm.subs) == 0
	strm.mu.Unlock()
	if empty {
		delete(h.streams, orgID)
	}
	h.mu.Unlock()
}

func (s *Subscription) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.orgID, s.id)
	})
}
