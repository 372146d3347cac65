package session

import (
	"context"

	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/events"
	"github.com/teranos/topicmap/logger"
	"github.com/teranos/topicmap/loop"
	"github.com/teranos/topicmap/selection"
	"github.com/teranos/topicmap/topicmap"
)

// Select makes id the single selection and tells the host. The element is
// highlighted before Select returns; with showDetails its detail follows
// once the object's data arrived and the previous selection was torn down.
func (s *Session) Select(ctx context.Context, id topicmap.ID, showDetails bool) error {
	return s.do(ctx, "select", func() error {
		if err := s.rendered(); err != nil {
			return err
		}
		kind, ok := s.m.KindOf(id)
		if !ok || !s.m.IsVisible(topicmap.PlayerRef{ID: id, Kind: kind}) {
			return errors.NewNotFoundError("no visible object %d in topicmap %d", id, s.m.ID)
		}
		if s.sel.IsSelected(id) {
			return nil
		}
		dataReady := loop.Go(s.l, func(ctx context.Context) (struct{}, error) {
			_, err := s.objects.FetchObject(ctx, id)
			return struct{}{}, err
		})
		done := s.sel.Select(kind, id, dataReady, showDetails)
		if done.Done() {
			if _, err := done.Result(); err != nil {
				return err
			}
		}
		s.emit(events.Event{Type: events.SelectEvent(kind), ID: id})
		done.Then(func(_ struct{}, err error) {
			if err != nil {
				s.logger.Warnw("Selection incomplete", logger.FieldObjectID, id, logger.FieldError, err)
			}
		})
		return nil
	})
}

// Unselect clears the single selection and tells the host.
// Unselecting with nothing selected is an invariant violation.
func (s *Session) Unselect(ctx context.Context) error {
	return s.do(ctx, "unselect", func() error {
		if err := s.rendered(); err != nil {
			return err
		}
		cur, ok := s.sel.Current()
		if _, err := s.sel.Unselect(); err != nil {
			if !ok {
				return err
			}
			s.logger.Warnw("Unselect incomplete", logger.FieldObjectID, cur.ID, logger.FieldError, err)
		}
		s.emit(events.Event{Type: events.UnselectEvent(cur.Kind), ID: cur.ID})
		return nil
	})
}

// Selection returns the single selection, if any
func (s *Session) Selection(ctx context.Context) (selection.Selection, bool, error) {
	var cur selection.Selection
	var ok bool
	err := s.do(ctx, "selection", func() error {
		cur, ok = s.sel.Current()
		return nil
	})
	return cur, ok, err
}

// RenderAsSelected styles ids as a host multi-selection.
// It fails while a single selection exists.
func (s *Session) RenderAsSelected(ctx context.Context, ids ...topicmap.ID) error {
	return s.do(ctx, "render_as_selected", func() error {
		if err := s.rendered(); err != nil {
			return err
		}
		var errs error
		for _, id := range ids {
			errs = errors.CombineErrors(errs, s.sel.RenderAsSelected(id))
		}
		return errs
	})
}

// RenderAsUnselected clears the multi-selection style of ids.
// It fails unless a single selection exists.
func (s *Session) RenderAsUnselected(ctx context.Context, ids ...topicmap.ID) error {
	return s.do(ctx, "render_as_unselected", func() error {
		if err := s.rendered(); err != nil {
			return err
		}
		var errs error
		for _, id := range ids {
			errs = errors.CombineErrors(errs, s.sel.RenderAsUnselected(id))
		}
		return errs
	})
}

// RemoveSelectionDetail takes the selection's detail off the map unless it
// is pinned; the selection stays. Nothing selected is an invariant violation.
func (s *Session) RemoveSelectionDetail(ctx context.Context) error {
	return s.do(ctx, "remove_selection_detail", func() error {
		if err := s.rendered(); err != nil {
			return err
		}
		_, err := s.sel.RemoveSelectionDetail()
		return err
	})
}
