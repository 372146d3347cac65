// Package cascade propagates visibility and deletion changes from a player to
// every association transitively anchored to it.
//
// Walks use an explicit worklist with a visited set, so associations that
// reference each other terminate. Effects fire only when an entry's state
// actually flips; re-hiding or re-deleting an entry that is already gone is a
// silent no-op, which batch operations rely on.
package cascade

import (
	"go.uber.org/zap"

	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/logger"
	"github.com/teranos/topicmap/topicmap"
)

// Effects receives the view-side consequences of a cascade, in walk order.
// Errors are collected and the walk continues, so the model never ends half-cascaded.
type Effects interface {
	// Shown is called for an association made visible by AutoRevealAssocs
	Shown(va *topicmap.ViewAssoc) error
	// Hidden is called after an object's visibility flipped to false
	Hidden(ref topicmap.PlayerRef) error
	// Deleted is called after an object's view entry was dropped.
	// wasVisible tells whether a render element and detail may exist.
	Deleted(ref topicmap.PlayerRef, wasVisible bool) error
}

// Engine applies cascades to one topicmap
type Engine struct {
	m      *topicmap.Topicmap
	fx     Effects
	logger *zap.SugaredLogger
}

// New creates a cascade engine for m
func New(m *topicmap.Topicmap, fx Effects, log *zap.SugaredLogger) *Engine {
	return &Engine{m: m, fx: fx, logger: logger.OrNop(log)}
}

// walk visits every association transitively anchored to id, breadth first.
// visit returns whether the walk should continue through the association.
func (e *Engine) walk(id topicmap.ID, visit func(va *topicmap.ViewAssoc) bool) {
	visited := map[topicmap.ID]bool{id: true}
	queue := []topicmap.ID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, va := range e.m.AssocsWithPlayer(cur) {
			if visited[va.ID] {
				continue
			}
			visited[va.ID] = true
			if visit(va) {
				queue = append(queue, va.ID)
			}
		}
	}
}

// AutoRevealAssocs reveals every hidden association of id whose other player
// is visible, then repeats from each revealed association.
// It returns the revealed association IDs in reveal order.
func (e *Engine) AutoRevealAssocs(id topicmap.ID) ([]topicmap.ID, error) {
	var revealed []topicmap.ID
	var errs error

	visited := map[topicmap.ID]bool{id: true}
	queue := []topicmap.ID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, va := range e.m.AssocsWithPlayer(cur) {
			if visited[va.ID] || va.Visible {
				continue
			}
			other, err := e.m.OtherPlayer(va, cur)
			if err != nil {
				errs = errors.CombineErrors(errs, err)
				continue
			}
			if !e.m.IsVisible(other) {
				continue
			}
			visited[va.ID] = true
			if r := e.m.RevealAssoc(va.Assoc()); !r.Type.Changed() {
				continue
			}
			e.logger.Debugw("Assoc auto-revealed", logger.FieldAssocID, va.ID, "player", cur)
			revealed = append(revealed, va.ID)
			if err := e.fx.Shown(va); err != nil {
				errs = errors.CombineErrors(errs, err)
			}
			queue = append(queue, va.ID)
		}
	}
	return revealed, errs
}

// HideAssocsWithPlayer hides every visible association transitively anchored to id.
// The player itself is left alone.
func (e *Engine) HideAssocsWithPlayer(id topicmap.ID) ([]topicmap.ID, error) {
	var hidden []topicmap.ID
	var errs error
	e.walk(id, func(va *topicmap.ViewAssoc) bool {
		if !va.Visible {
			return true
		}
		va.Visible = false
		hidden = append(hidden, va.ID)
		if err := e.fx.Hidden(assocRef(va.ID)); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "hiding assoc %d", va.ID))
		}
		return true
	})
	if len(hidden) > 0 {
		e.logger.Debugw("Assocs hidden with player", logger.FieldObjectID, id, logger.FieldCount, len(hidden))
	}
	return hidden, errs
}

// RemoveAssocsWithPlayer drops every association transitively anchored to id.
// The player itself is left alone.
func (e *Engine) RemoveAssocsWithPlayer(id topicmap.ID) ([]topicmap.ID, error) {
	type removal struct {
		id      topicmap.ID
		visible bool
	}
	var removals []removal
	e.walk(id, func(va *topicmap.ViewAssoc) bool {
		removals = append(removals, removal{id: va.ID, visible: va.Visible})
		return true
	})

	var removed []topicmap.ID
	var errs error
	for _, r := range removals {
		if !e.m.RemoveAssoc(r.id) {
			continue
		}
		removed = append(removed, r.id)
		if err := e.fx.Deleted(assocRef(r.id), r.visible); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "removing assoc %d", r.id))
		}
	}
	if len(removed) > 0 {
		e.logger.Debugw("Assocs removed with player", logger.FieldObjectID, id, logger.FieldCount, len(removed))
	}
	return removed, errs
}

// HideTopic hides the topic and everything anchored to it.
// A missing or already hidden topic is a no-op. The topic is invisible
// before its associations cascade, so their effects never see it.
func (e *Engine) HideTopic(id topicmap.ID) error {
	vt := e.m.TopicIfExists(id)
	if vt == nil || !vt.Visible {
		return nil
	}
	vt.Visible = false
	_, errs := e.HideAssocsWithPlayer(id)
	if err := e.fx.Hidden(topicRef(id)); err != nil {
		errs = errors.CombineErrors(errs, errors.Wrapf(err, "hiding topic %d", id))
	}
	return errs
}

// HideAssoc hides the association and everything anchored to it.
// A missing or already hidden association is a no-op.
func (e *Engine) HideAssoc(id topicmap.ID) error {
	va := e.m.AssocIfExists(id)
	if va == nil || !va.Visible {
		return nil
	}
	va.Visible = false
	_, errs := e.HideAssocsWithPlayer(id)
	if err := e.fx.Hidden(assocRef(id)); err != nil {
		errs = errors.CombineErrors(errs, errors.Wrapf(err, "hiding assoc %d", id))
	}
	return errs
}

// DeleteTopic drops the topic and everything anchored to it.
// A missing topic is a no-op.
func (e *Engine) DeleteTopic(id topicmap.ID) error {
	vt := e.m.TopicIfExists(id)
	if vt == nil {
		return nil
	}
	visible := vt.Visible
	_, errs := e.RemoveAssocsWithPlayer(id)
	e.m.RemoveTopic(id)
	if err := e.fx.Deleted(topicRef(id), visible); err != nil {
		errs = errors.CombineErrors(errs, errors.Wrapf(err, "removing topic %d", id))
	}
	return errs
}

// DeleteAssoc drops the association and everything anchored to it.
// A missing association is a no-op.
func (e *Engine) DeleteAssoc(id topicmap.ID) error {
	va := e.m.AssocIfExists(id)
	if va == nil {
		return nil
	}
	visible := va.Visible
	_, errs := e.RemoveAssocsWithPlayer(id)
	e.m.RemoveAssoc(id)
	if err := e.fx.Deleted(assocRef(id), visible); err != nil {
		errs = errors.CombineErrors(errs, errors.Wrapf(err, "removing assoc %d", id))
	}
	return errs
}

func topicRef(id topicmap.ID) topicmap.PlayerRef {
	return topicmap.PlayerRef{ID: id, Kind: topicmap.KindTopic}
}

func assocRef(id topicmap.ID) topicmap.PlayerRef {
	return topicmap.PlayerRef{ID: id, Kind: topicmap.KindAssoc}
}
