package session

import (
	"context"

	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/events"
	"github.com/teranos/topicmap/logger"
	"github.com/teranos/topicmap/persist"
	"github.com/teranos/topicmap/topicmap"
)

// SetTopicPosition records where the renderer moved a topic. The view
// already shows the new position; the model follows, the store is updated
// and the host receives topic-drag.
func (s *Session) SetTopicPosition(ctx context.Context, id topicmap.ID, pos topicmap.Point) error {
	return s.do(ctx, "set_topic_position", func() error {
		if err := s.rendered(); err != nil {
			return err
		}
		if err := s.m.SetPosition(id, pos); err != nil {
			return err
		}
		s.details.UpdatePosition(id)
		s.persist(persist.SetTopicPosition(s.m.ID, id, pos))
		p := pos
		s.emit(events.Event{Type: events.TopicDrag, ID: id, Pos: &p})
		s.sched.FisheyeIfDetailsOnscreen(s.details.Onscreen())
		return nil
	})
}

// SetTopicPositions records a multi-topic drag. Unknown topics are reported
// after the others were moved.
func (s *Session) SetTopicPositions(ctx context.Context, coords []topicmap.TopicCoord) error {
	return s.do(ctx, "set_topic_positions", func() error {
		if err := s.rendered(); err != nil {
			return err
		}
		var errs error
		moved := make([]topicmap.TopicCoord, 0, len(coords))
		for _, c := range coords {
			if err := s.m.SetPosition(c.TopicID, c.Pos()); err != nil {
				errs = errors.CombineErrors(errs, err)
				continue
			}
			s.details.UpdatePosition(c.TopicID)
			moved = append(moved, c)
		}
		if len(moved) == 0 {
			return errs
		}
		s.persist(persist.SetTopicPositions(s.m.ID, moved))
		s.emit(events.Event{Type: events.TopicsDrag, Coords: moved})
		s.sched.FisheyeIfDetailsOnscreen(s.details.Onscreen())
		return errs
	})
}

// HideMulti hides topics and associations together with everything anchored
// to them. Listing an association that a topic's cascade already hid is fine.
func (s *Session) HideMulti(ctx context.Context, ids topicmap.IDLists) error {
	return s.do(ctx, "hide_multi", func() error {
		if err := s.rendered(); err != nil {
			return err
		}
		var errs error
		for _, id := range ids.TopicIDs {
			errs = errors.CombineErrors(errs, s.cascade.HideTopic(id))
		}
		for _, id := range ids.AssocIDs {
			errs = errors.CombineErrors(errs, s.cascade.HideAssoc(id))
		}
		s.logger.Debugw("Objects hidden",
			logger.FieldCount, len(ids.TopicIDs)+len(ids.AssocIDs),
			logger.FieldTopicmapID, s.m.ID,
		)
		if !ids.Empty() {
			s.persist(persist.HideMulti(s.m.ID, ids))
		}
		return errs
	})
}

// DeleteMulti deletes topics and associations, and the associations anchored
// to them, from the topicmap and the store.
func (s *Session) DeleteMulti(ctx context.Context, ids topicmap.IDLists) error {
	return s.do(ctx, "delete_multi", func() error {
		if err := s.rendered(); err != nil {
			return err
		}
		var errs error
		for _, id := range ids.TopicIDs {
			errs = errors.CombineErrors(errs, s.cascade.DeleteTopic(id))
		}
		for _, id := range ids.AssocIDs {
			errs = errors.CombineErrors(errs, s.cascade.DeleteAssoc(id))
		}
		if !ids.Empty() {
			s.persist(persist.DeleteMulti(s.m.ID, ids))
		}
		return errs
	})
}

// SetPinned sets the pin flag of a topic or association. Pinning an object
// without a detail shows one; unpinning removes the detail unless the object
// is the selection and selection details are shown.
func (s *Session) SetPinned(ctx context.Context, id topicmap.ID, pinned, showDetails bool) error {
	return s.do(ctx, "set_pinned", func() error {
		if err := s.rendered(); err != nil {
			return err
		}
		if err := s.m.SetPinned(id, pinned); err != nil {
			return err
		}
		s.logger.Debugw("Pin changed", logger.FieldObjectID, id, logger.FieldPinned, pinned)
		s.persist(persist.SetPinned(s.m.ID, id, pinned))

		if !pinned {
			_, err := s.details.RemoveIfUnpinned(id, s.sel.IsSelected(id), showDetails)
			s.details.Refresh(id)
			return err
		}
		if s.details.IsOnscreen(id) {
			s.details.Refresh(id)
			return nil
		}
		rec, err := s.details.Create(id)
		if err != nil {
			return err
		}
		s.details.Show(rec)
		return nil
	})
}
