// Package events carries notifications from a topicmap session to its host
// application. Events are fire-and-forget; the host never answers them.
package events

import (
	"sync"

	"go.uber.org/zap"

	"github.com/teranos/topicmap/logger"
	"github.com/teranos/topicmap/topicmap"
)

// Type names a host event
type Type string

const (
	TopicSelect         Type = "topic-select"
	AssocSelect         Type = "assoc-select"
	TopicUnselect       Type = "topic-unselect"
	AssocUnselect       Type = "assoc-unselect"
	TopicDrag           Type = "topic-drag"
	TopicsDrag          Type = "topics-drag"
	TopicDoubleClick    Type = "topic-double-click"
	TopicDropOnTopic    Type = "topic-drop-on-topic"
	AssocCreate         Type = "assoc-create"
	TopicmapContextmenu Type = "topicmap-contextmenu"
)

// Event is one host notification. Fields unused by a type are zero.
type Event struct {
	Type      Type                  `json:"type"`
	ID        topicmap.ID           `json:"id,omitempty"`
	TargetID  topicmap.ID           `json:"target_id,omitempty"`
	Pos       *topicmap.Point       `json:"pos,omitempty"`
	Coords    []topicmap.TopicCoord `json:"coords,omitempty"`
	Assoc     *topicmap.Assoc       `json:"assoc,omitempty"`
	Topicmap  topicmap.ID           `json:"topicmap_id"`
	Modifiers []string              `json:"modifiers,omitempty"`
}

// SelectEvent returns the select event type for kind
func SelectEvent(kind topicmap.Kind) Type {
	if kind == topicmap.KindAssoc {
		return AssocSelect
	}
	return TopicSelect
}

// UnselectEvent returns the unselect event type for kind
func UnselectEvent(kind topicmap.Kind) Type {
	if kind == topicmap.KindAssoc {
		return AssocUnselect
	}
	return TopicUnselect
}

// Emitter fans events out to subscribers.
// A subscriber that does not keep up loses events rather than blocking the session.
type Emitter struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	next   int
	closed bool
	logger *zap.SugaredLogger
}

// NewEmitter creates an emitter without subscribers
func NewEmitter(log *zap.SugaredLogger) *Emitter {
	return &Emitter{subs: make(map[int]chan Event), logger: logger.OrNop(log)}
}

// Subscribe returns a channel receiving every later event and a function that ends the subscription
func (e *Emitter) Subscribe(buffer int) (<-chan Event, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan Event, buffer)
	if e.closed {
		close(ch)
		return ch, func() {}
	}
	id := e.next
	e.next++
	e.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if sub, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(sub)
			}
		})
	}
}

// Emit delivers ev to every subscriber without blocking
func (e *Emitter) Emit(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	for id, ch := range e.subs {
		select {
		case ch <- ev:
		default:
			e.logger.Warnw("Dropping host event, subscriber is full",
				"event", ev.Type,
				"subscriber", id,
			)
		}
	}
}

// Close ends every subscription
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
}
