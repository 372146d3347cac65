package detail

import (
	"sync"

	"github.com/teranos/topicmap/logger"
)

// Subscribe returns a channel receiving a snapshot whenever a detail changes,
// and a function that ends the subscription. Safe to call from any goroutine.
func (mg *Manager) Subscribe(buffer int) (<-chan Snapshot, func()) {
	mg.subMu.Lock()
	defer mg.subMu.Unlock()

	ch := make(chan Snapshot, buffer)
	if mg.closed {
		close(ch)
		return ch, func() {}
	}
	id := mg.nextID
	mg.nextID++
	mg.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			mg.subMu.Lock()
			defer mg.subMu.Unlock()
			if sub, ok := mg.subs[id]; ok {
				delete(mg.subs, id)
				close(sub)
			}
		})
	}
}

func (mg *Manager) publish(rec *Record) {
	mg.send(rec.snapshot(mg.m.IsPinned(rec.ID)))
}

func (mg *Manager) publishRemoved(rec *Record) {
	s := rec.snapshot(false)
	s.Removed = true
	mg.send(s)
}

func (mg *Manager) send(s Snapshot) {
	mg.subMu.Lock()
	defer mg.subMu.Unlock()
	for id, ch := range mg.subs {
		select {
		case ch <- s:
		default:
			mg.logger.Warnw("Dropping detail snapshot, subscriber is full",
				logger.FieldDetailID, s.ID,
				"subscriber", id,
			)
		}
	}
}

// Close ends every subscription
func (mg *Manager) Close() {
	mg.subMu.Lock()
	defer mg.subMu.Unlock()
	if mg.closed {
		return
	}
	mg.closed = true
	for id, ch := range mg.subs {
		close(ch)
		delete(mg.subs, id)
	}
}
