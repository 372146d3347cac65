package session

import (
	"context"

	"github.com/teranos/topicmap/directive"
	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/logger"
	"github.com/teranos/topicmap/loop"
	"github.com/teranos/topicmap/render"
	"github.com/teranos/topicmap/topicmap"
)

// ProcessDirectives applies server push messages in order. A failing
// directive does not stop the ones after it; all errors are returned
// combined. Unknown directive types are skipped.
func (s *Session) ProcessDirectives(ctx context.Context, dirs []directive.Directive) error {
	return s.do(ctx, "process_directives", func() error {
		if err := s.rendered(); err != nil {
			return err
		}
		var errs error
		for _, d := range dirs {
			if err := s.apply(d); err != nil {
				errs = errors.CombineErrors(errs, errors.Wrapf(err, "%s", d.Type))
			}
		}
		return errs
	})
}

func (s *Session) apply(d directive.Directive) error {
	s.logger.Debugw("Directive", logger.FieldDirective, string(d.Type))
	switch d.Type {
	case directive.UpdateTopic:
		var obj topicmap.Object
		if err := d.Decode(&obj); err != nil {
			return err
		}
		return s.updateTopic(obj)

	case directive.UpdateAssoc:
		var obj topicmap.Object
		if err := d.Decode(&obj); err != nil {
			return err
		}
		return s.updateAssoc(obj)

	case directive.DeleteTopic:
		var ref directive.ObjectRef
		if err := d.Decode(&ref); err != nil {
			return err
		}
		return s.cascade.DeleteTopic(ref.ID)

	case directive.DeleteAssoc:
		var ref directive.ObjectRef
		if err := d.Decode(&ref); err != nil {
			return err
		}
		return s.cascade.DeleteAssoc(ref.ID)

	case directive.UpdateTopicType:
		var def topicmap.TypeDef
		if err := d.Decode(&def); err != nil {
			return err
		}
		def.Kind = topicmap.KindTopic
		s.types.Put(def)
		return s.updateTopicIcons(def.URI)

	case directive.UpdateAssocType:
		var def topicmap.TypeDef
		if err := d.Decode(&def); err != nil {
			return err
		}
		def.Kind = topicmap.KindAssoc
		s.types.Put(def)
		return s.updateAssocColors(def.URI)

	case directive.AddTopicToMap:
		var arg directive.MapTopic
		if err := d.Decode(&arg); err != nil {
			return err
		}
		if arg.TopicmapID != s.m.ID {
			return nil
		}
		return s.addTopicToMap(arg.ViewTopic.Entry())

	case directive.AddAssocToMap:
		var arg directive.MapAssoc
		if err := d.Decode(&arg); err != nil {
			return err
		}
		if arg.TopicmapID != s.m.ID {
			return nil
		}
		return s.addAssocToMap(arg.ViewAssoc.Entry())

	case directive.SetTopicPosition:
		var arg directive.TopicPosition
		if err := d.Decode(&arg); err != nil {
			return err
		}
		if arg.TopicmapID != s.m.ID {
			return nil
		}
		return s.moveTopic(arg.TopicID, arg.Pos)

	case directive.SetTopicVisibility:
		var arg directive.Visibility
		if err := d.Decode(&arg); err != nil {
			return err
		}
		if arg.TopicmapID != s.m.ID {
			return nil
		}
		return s.setTopicVisibility(arg.TopicID, arg.Visibility)

	case directive.SetAssocVisibility:
		var arg directive.Visibility
		if err := d.Decode(&arg); err != nil {
			return err
		}
		if arg.TopicmapID != s.m.ID {
			return nil
		}
		return s.setAssocVisibility(arg.AssocID, arg.Visibility)
	}

	s.logger.Debugw("Directive skipped", logger.FieldDirective, string(d.Type))
	return nil
}

func (s *Session) updateTopic(obj topicmap.Object) error {
	s.details.UpdateObject(obj)
	vt := s.m.UpdateTopic(topicmap.Topic{ID: obj.ID, URI: obj.URI, TypeURI: obj.TypeURI, Value: obj.Value})
	if vt == nil || !vt.Visible {
		return nil
	}
	return s.r.UpdateElementData(render.ElementRef(vt.ID), render.TopicFields(vt.Display(s.types)))
}

func (s *Session) updateAssoc(obj topicmap.Object) error {
	s.details.UpdateObject(obj)
	va := s.m.UpdateAssoc(topicmap.Assoc{ID: obj.ID, TypeURI: obj.TypeURI, Value: obj.Value})
	if va == nil || !va.Visible {
		return nil
	}
	return s.r.UpdateElementData(render.ElementRef(va.ID), render.AssocFields(va.Display(s.types)))
}

// updateTopicIcons re-derives the display of every visible topic of a type
func (s *Session) updateTopicIcons(typeURI string) error {
	var errs error
	for _, vt := range s.m.VisibleTopicsOfType(typeURI) {
		errs = errors.CombineErrors(errs,
			s.r.UpdateElementData(render.ElementRef(vt.ID), render.TopicFields(vt.Display(s.types))))
	}
	return errs
}

// updateAssocColors re-derives the display of every visible association of a type
func (s *Session) updateAssocColors(typeURI string) error {
	var errs error
	for _, va := range s.m.VisibleAssocsOfType(typeURI) {
		errs = errors.CombineErrors(errs,
			s.r.UpdateElementData(render.ElementRef(va.ID), render.AssocFields(va.Display(s.types))))
	}
	return errs
}

// addTopicToMap adds a topic another client put into this topicmap.
// A topic already known is left alone.
func (s *Session) addTopicToMap(vt topicmap.ViewTopic) error {
	if s.m.HasTopic(vt.ID) {
		return nil
	}
	if !vt.HasPos {
		vt.Pos, vt.HasPos = s.cfg.DefaultPosition, true
	}
	entry := s.m.AddTopic(vt)
	if !entry.Visible {
		return nil
	}
	return s.r.AddNode(render.NodeFor(entry, s.types))
}

// addAssocToMap adds an association another client put into this topicmap.
// It is rendered only when it is visible and both players are.
func (s *Session) addAssocToMap(va topicmap.ViewAssoc) error {
	if s.m.HasAssoc(va.ID) {
		return nil
	}
	entry := s.m.AddAssoc(va)
	if !entry.Visible {
		return nil
	}
	if !s.m.IsVisible(entry.Player1) || !s.m.IsVisible(entry.Player2) {
		entry.Visible = false
		return nil
	}
	return s.r.AddEdge(render.EdgeFor(entry, s.types))
}

// moveTopic applies a position change made elsewhere, animating a visible topic
func (s *Session) moveTopic(id topicmap.ID, pos topicmap.Point) error {
	vt := s.m.TopicIfExists(id)
	if vt == nil {
		return nil
	}
	if err := s.m.SetPosition(id, pos); err != nil {
		return err
	}
	if !vt.Visible {
		return nil
	}
	ref := render.ElementRef(id)
	loop.Go(s.l, func(ctx context.Context) (struct{}, error) {
		ctx, cancel := context.WithTimeout(ctx, s.sched.Config().Timeout)
		defer cancel()
		return struct{}{}, s.r.AnimateElementPosition(ctx, ref, pos)
	}).Then(func(_ struct{}, err error) {
		if err != nil {
			s.logger.Debugw("Topic move animation failed", logger.FieldTopicID, id, logger.FieldError, err)
		}
		if s.m.HasTopic(id) {
			s.details.UpdatePosition(id)
		}
	})
	return nil
}

func (s *Session) setTopicVisibility(id topicmap.ID, visible bool) error {
	vt := s.m.TopicIfExists(id)
	if vt == nil {
		return nil
	}
	if !visible {
		return s.cascade.HideTopic(id)
	}
	if vt.Visible {
		return nil
	}
	vt.Visible = true
	err := s.r.AddNode(render.NodeFor(vt, s.types))
	return errors.CombineErrors(err, s.autoReveal(id, false))
}

func (s *Session) setAssocVisibility(id topicmap.ID, visible bool) error {
	va := s.m.AssocIfExists(id)
	if va == nil {
		return nil
	}
	if !visible {
		return s.cascade.HideAssoc(id)
	}
	if va.Visible || !s.m.IsVisible(va.Player1) || !s.m.IsVisible(va.Player2) {
		return nil
	}
	va.Visible = true
	err := s.r.AddEdge(render.EdgeFor(va, s.types))
	return errors.CombineErrors(err, s.autoReveal(id, false))
}
