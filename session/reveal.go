package session

import (
	"context"

	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/logger"
	"github.com/teranos/topicmap/persist"
	"github.com/teranos/topicmap/render"
	"github.com/teranos/topicmap/topicmap"
)

// RevealTopic makes t visible. Without pos a new topic is placed next to the
// selected topic, or at the default position. Associations to visible
// objects are revealed along with it. The reveal type is returned; revealing
// a visible topic is a no-op yielding RevealNone.
func (s *Session) RevealTopic(ctx context.Context, t topicmap.Topic, pos *topicmap.Point, autoPan bool) (topicmap.RevealType, error) {
	var rt topicmap.RevealType
	err := s.do(ctx, "reveal_topic", func() error {
		if err := s.rendered(); err != nil {
			return err
		}
		reveal, err := s.revealTopic(t, pos)
		if err != nil {
			return err
		}
		rt = reveal.Type
		switch reveal.Type {
		case topicmap.RevealAdd:
			s.persist(persist.AddTopicToMap(s.m.ID, t.ID, persist.TopicProps(reveal.Topic)))
		case topicmap.RevealShow:
			s.persist(persist.SetTopicVisibility(s.m.ID, t.ID, true))
		}
		if autoPan {
			s.autoPan(t.ID)
		}
		return nil
	})
	return rt, err
}

// revealTopic applies the reveal to model and renderer, then auto-reveals
func (s *Session) revealTopic(t topicmap.Topic, pos *topicmap.Point) (topicmap.TopicReveal, error) {
	if pos == nil && !s.m.HasTopic(t.ID) {
		p := s.initPos()
		pos = &p
	}
	reveal := s.m.RevealTopic(t, pos)
	if !reveal.Type.Changed() {
		return reveal, nil
	}
	vt := reveal.Topic
	if !vt.HasPos {
		vt.Pos, vt.HasPos = s.initPos(), true
	}
	s.logger.Debugw("Topic revealed", logger.FieldTopicID, t.ID, logger.FieldRevealType, string(reveal.Type))
	err := s.r.AddNode(render.NodeFor(vt, s.types))
	return reveal, errors.CombineErrors(err, s.autoReveal(t.ID, true))
}

// RevealAssoc makes a visible. Both players must be visible already.
func (s *Session) RevealAssoc(ctx context.Context, a topicmap.Assoc, autoPan bool) (topicmap.RevealType, error) {
	var rt topicmap.RevealType
	err := s.do(ctx, "reveal_assoc", func() error {
		if err := s.rendered(); err != nil {
			return err
		}
		reveal, err := s.revealAssoc(a)
		if err != nil {
			return err
		}
		rt = reveal.Type
		switch reveal.Type {
		case topicmap.RevealAdd:
			s.persist(persist.AddAssocToMap(s.m.ID, a.ID, persist.AssocProps(reveal.Assoc)))
		case topicmap.RevealShow:
			s.persist(persist.SetAssocVisibility(s.m.ID, a.ID, true))
		}
		if autoPan {
			s.autoPan(a.ID)
		}
		return nil
	})
	return rt, err
}

func (s *Session) revealAssoc(a topicmap.Assoc) (topicmap.AssocReveal, error) {
	for _, p := range []topicmap.PlayerRef{a.Player1, a.Player2} {
		if !s.m.IsVisible(p) {
			return topicmap.AssocReveal{}, errors.NewInvalidRequestError(
				"cannot reveal assoc %d: player %s %d is not visible", a.ID, p.Kind, p.ID)
		}
	}
	reveal := s.m.RevealAssoc(a)
	if !reveal.Type.Changed() {
		return reveal, nil
	}
	s.logger.Debugw("Assoc revealed", logger.FieldAssocID, a.ID, logger.FieldRevealType, string(reveal.Type))
	err := s.r.AddEdge(render.EdgeFor(reveal.Assoc, s.types))
	return reveal, errors.CombineErrors(err, s.autoReveal(a.ID, true))
}

// RelatedTopic is a topic together with the association connecting it to an
// object already in the topicmap
type RelatedTopic struct {
	Topic topicmap.Topic `json:"topic"`
	Assoc topicmap.Assoc `json:"assoc"`
}

// RevealRelatedTopic reveals a topic and the association connecting it, and
// persists both as one store call when anything changed.
func (s *Session) RevealRelatedTopic(ctx context.Context, rel RelatedTopic, pos *topicmap.Point, autoPan bool) error {
	return s.do(ctx, "reveal_related_topic", func() error {
		if err := s.rendered(); err != nil {
			return err
		}
		if !rel.Assoc.HasPlayer(rel.Topic.ID) {
			return errors.NewInvalidRequestError("assoc %d does not connect topic %d", rel.Assoc.ID, rel.Topic.ID)
		}
		topicReveal, err := s.revealTopic(rel.Topic, pos)
		if err != nil {
			return err
		}
		assocReveal, err := s.revealAssoc(rel.Assoc)
		if err != nil {
			return err
		}
		if topicReveal.Type.Changed() || assocReveal.Type.Changed() {
			var props *persist.ViewProps
			if topicReveal.Type.Changed() {
				p := persist.TopicProps(topicReveal.Topic)
				props = &p
			}
			s.persist(persist.AddRelatedTopicToMap(s.m.ID, rel.Topic.ID, rel.Assoc.ID, props))
		}
		if autoPan {
			s.autoPan(rel.Topic.ID)
		}
		return nil
	})
}

// autoReveal reveals the associations anchored to id. With store their
// visibility is persisted.
func (s *Session) autoReveal(id topicmap.ID, store bool) error {
	revealed, err := s.cascade.AutoRevealAssocs(id)
	if !store {
		return err
	}
	for _, assocID := range revealed {
		s.persist(persist.SetAssocVisibility(s.m.ID, assocID, true))
	}
	return err
}

// initPos is the position of a revealed topic that brings none: next to the
// selected object, or the default position
func (s *Session) initPos() topicmap.Point {
	if cur, ok := s.sel.Current(); ok {
		if p, err := s.m.Position(cur.ID); err == nil {
			return p.Add(s.cfg.PositionOffset)
		}
	}
	return s.cfg.DefaultPosition
}

func (s *Session) autoPan(id topicmap.ID) {
	if err := s.r.AutoPan(render.ElementRef(id)); err != nil {
		s.logger.Debugw("Auto pan failed", logger.FieldObjectID, id, logger.FieldError, err)
	}
}
