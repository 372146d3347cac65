package session

import (
	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/events"
	"github.com/teranos/topicmap/logger"
	"github.com/teranos/topicmap/render"
	"github.com/teranos/topicmap/topicmap"
)

// effects applies cascade consequences to the renderer, the detail table
// and the selection
type effects struct {
	s *Session
}

func (fx effects) Shown(va *topicmap.ViewAssoc) error {
	return fx.s.r.AddEdge(render.EdgeFor(va, fx.s.types))
}

func (fx effects) Hidden(ref topicmap.PlayerRef) error {
	return fx.s.takeOff(ref)
}

func (fx effects) Deleted(ref topicmap.PlayerRef, wasVisible bool) error {
	if !wasVisible {
		fx.s.forget(ref)
		return nil
	}
	return fx.s.takeOff(ref)
}

// takeOff removes an object's detail and render element
func (s *Session) takeOff(ref topicmap.PlayerRef) error {
	_, detailErr := s.details.RemoveIfOnscreen(ref.ID)
	s.forget(ref)
	err := s.r.RemoveElement(render.ElementRef(ref.ID))
	if err != nil {
		s.logger.Debugw("Element already gone", logger.FieldObjectID, ref.ID, logger.FieldError, err)
	}
	return errors.CombineErrors(detailErr, err)
}

// forget drops an object from the selection; the host learns it is unselected
func (s *Session) forget(ref topicmap.PlayerRef) {
	if s.sel.Forget(ref.ID) {
		s.emit(events.Event{Type: events.UnselectEvent(ref.Kind), ID: ref.ID})
	}
}
