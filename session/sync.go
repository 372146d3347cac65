package session

import (
	"context"

	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/persist"
	"github.com/teranos/topicmap/topicmap"
)

// SyncDetailSize reports that the content of a detail changed size. Bursts
// within the debounce window are measured once.
func (s *Session) SyncDetailSize(ctx context.Context, id topicmap.ID) error {
	return s.do(ctx, "sync_detail_size", func() error {
		if err := s.rendered(); err != nil {
			return err
		}
		s.details.SyncSize(id)
		return nil
	})
}

// SyncViewport records the renderer's pan and zoom, moves the details along
// and persists the viewport.
func (s *Session) SyncViewport(ctx context.Context, pan topicmap.Point, zoom float64) error {
	return s.do(ctx, "sync_viewport", func() error {
		if err := s.rendered(); err != nil {
			return err
		}
		if zoom <= 0 {
			return errors.NewInvalidRequestError("zoom must be positive, got %v", zoom)
		}
		s.m.SetViewport(pan, zoom)
		s.details.UpdatePositions()
		s.persist(persist.SetViewport(s.m.ID, s.m.Viewport()))
		return nil
	})
}

// SyncNodePosition follows a topic while the renderer moves it, as during a
// drag. The model and the dependent details move; nothing is persisted until
// SetTopicPosition.
func (s *Session) SyncNodePosition(ctx context.Context, id topicmap.ID, pos topicmap.Point) error {
	return s.do(ctx, "sync_node_position", func() error {
		if err := s.rendered(); err != nil {
			return err
		}
		if err := s.m.SetPosition(id, pos); err != nil {
			return err
		}
		s.details.UpdatePosition(id)
		return nil
	})
}
