// Package selection implements the single-selection state machine of a
// topicmap session.
//
// Selecting marks the new element at the renderer at once, tears down the
// previous selection, and shows the new selection's detail only after both
// its data and the teardown settled. Every transition bumps an epoch; async
// continuations of a superseded transition are dropped.
//
// The host may additionally render a multi-selection. Multi-selected
// elements get the selection style only; their details are never touched.
package selection

import (
	"sort"

	"go.uber.org/zap"

	"github.com/teranos/topicmap/anim"
	"github.com/teranos/topicmap/detail"
	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/logger"
	"github.com/teranos/topicmap/loop"
	"github.com/teranos/topicmap/render"
	"github.com/teranos/topicmap/topicmap"
)

// Phase is the progress of the current selection transition
type Phase int

const (
	// Idle: nothing is selected
	Idle Phase = iota
	// TearingDown: the previous selection's detail is being removed
	TearingDown
	// AwaitingData: waiting for the selected object's data
	AwaitingData
	// Showing: the selection is settled, its detail displayed if requested
	Showing
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case TearingDown:
		return "tearing_down"
	case AwaitingData:
		return "awaiting_data"
	case Showing:
		return "showing"
	default:
		return "unknown"
	}
}

// Selection is the single selected topic or association
type Selection struct {
	Kind topicmap.Kind `json:"kind"`
	ID   topicmap.ID   `json:"id"`
}

// Controller owns the selection of one session. Methods must be called on the loop.
type Controller struct {
	l       *loop.Loop
	r       render.Renderer
	details *detail.Manager
	sched   *anim.Scheduler
	logger  *zap.SugaredLogger

	current *Selection
	phase   Phase
	epoch   uint64
	multi   map[topicmap.ID]bool
}

// New creates a controller with nothing selected
func New(l *loop.Loop, r render.Renderer, details *detail.Manager, sched *anim.Scheduler, log *zap.SugaredLogger) *Controller {
	return &Controller{
		l:       l,
		r:       r,
		details: details,
		sched:   sched,
		logger:  logger.OrNop(log),
		multi:   make(map[topicmap.ID]bool),
	}
}

func (c *Controller) setPhase(p Phase) {
	c.phase = p
	c.logger.Debugw("Selection phase", logger.FieldPhase, p.String(), logger.FieldEpoch, c.epoch)
}

// Select makes id the single selection. dataReady settles once the selected
// object's data is available. With showDetails the selection's detail is
// shown after both dataReady and the teardown of the previous selection
// settled, then the view pans to it. The future settles when the transition
// completed; it settles without error when superseded.
func (c *Controller) Select(kind topicmap.Kind, id topicmap.ID, dataReady *loop.Future[struct{}], showDetails bool) *loop.Future[struct{}] {
	if c.current != nil && c.current.ID == id {
		return loop.Resolved(c.l, struct{}{})
	}
	if dataReady == nil {
		dataReady = loop.Resolved(c.l, struct{}{})
	}
	ref := render.ElementRef(id)
	if err := c.r.Select(ref); err != nil {
		return loop.Failed[struct{}](c.l, errors.Wrapf(err, "failed to select %s %d", kind, id))
	}

	c.epoch++
	epoch := c.epoch
	teardown := loop.Resolved(c.l, struct{}{})
	if old := c.current; old != nil {
		c.current = nil
		c.setPhase(TearingDown)
		var err error
		teardown, err = c.teardown(*old)
		if err != nil {
			c.logger.Warnw("Teardown of previous selection incomplete",
				logger.FieldObjectID, old.ID,
				logger.FieldError, err,
			)
		}
	}
	c.current = &Selection{Kind: kind, ID: id}
	if c.phase != TearingDown {
		c.setPhase(AwaitingData)
	}
	teardown.Then(func(struct{}, error) {
		if c.epoch == epoch && c.phase == TearingDown {
			c.setPhase(AwaitingData)
		}
	})

	if !showDetails {
		if err := c.r.AutoPan(ref); err != nil {
			c.logger.Debugw("Auto pan failed", logger.FieldObjectID, id, logger.FieldError, err)
		}
	}

	done := loop.NewFuture[struct{}](c.l)
	loop.All(c.l, dataReady, teardown).Then(func(_ struct{}, err error) {
		if c.epoch != epoch {
			c.logger.Debugw("Selection superseded", logger.FieldObjectID, id, logger.FieldEpoch, epoch)
			done.Resolve(struct{}{}, nil)
			return
		}
		if err != nil || !showDetails {
			c.setPhase(Showing)
			done.Resolve(struct{}{}, err)
			return
		}
		c.showDetail(epoch, id, done)
	})
	return done
}

func (c *Controller) showDetail(epoch uint64, id topicmap.ID, done *loop.Future[struct{}]) {
	rec, err := c.details.CreateForSelection(id)
	if err != nil {
		c.setPhase(Showing)
		done.Resolve(struct{}{}, err)
		return
	}
	c.details.Show(rec).Then(func(_ struct{}, err error) {
		if c.epoch != epoch {
			done.Resolve(struct{}{}, nil)
			return
		}
		c.setPhase(Showing)
		if err == nil {
			if panErr := c.r.AutoPan(rec.Ref()); panErr != nil {
				c.logger.Debugw("Auto pan failed", logger.FieldDetailID, id, logger.FieldError, panErr)
			}
		}
		done.Resolve(struct{}{}, err)
	})
}

// teardown clears the selection style of old and removes its detail unless pinned
func (c *Controller) teardown(old Selection) (*loop.Future[struct{}], error) {
	err := errors.CombineErrors(
		c.r.Unselect(render.ElementRef(old.ID)),
		c.details.Deselect(old.ID),
	)
	restored, removeErr := c.details.RemoveIfUnpinned(old.ID, false, true)
	return restored, errors.CombineErrors(err, removeErr)
}

// Unselect clears the single selection. An unpinned detail is removed and
// the restore animation played; afterwards the fisheye runs if other details
// remain onscreen. Unselecting with nothing selected is an invariant violation.
func (c *Controller) Unselect() (*loop.Future[struct{}], error) {
	if c.current == nil {
		return nil, errors.Invariantf("unselect when nothing is selected")
	}
	old := *c.current
	c.current = nil
	c.epoch++
	epoch := c.epoch
	c.setPhase(TearingDown)

	wasOnscreen := c.details.IsOnscreen(old.ID)
	restored, err := c.teardown(old)
	removed := wasOnscreen && !c.details.IsOnscreen(old.ID)

	done := loop.NewFuture[struct{}](c.l)
	restored.Then(func(struct{}, error) {
		if c.epoch == epoch {
			c.setPhase(Idle)
		}
		if !removed {
			done.Resolve(struct{}{}, nil)
			return
		}
		c.sched.FisheyeIfDetailsOnscreen(c.details.Onscreen()).Then(func(struct{}, error) {
			done.Resolve(struct{}{}, nil)
		})
	})
	return done, err
}

// Forget drops the selection of an object that left the topicmap, without
// render calls. It reports whether id was selected.
func (c *Controller) Forget(id topicmap.ID) bool {
	delete(c.multi, id)
	if c.current == nil || c.current.ID != id {
		return false
	}
	c.current = nil
	c.epoch++
	c.setPhase(Idle)
	return true
}

// Reset drops all selection state, as on a topicmap switch
func (c *Controller) Reset() {
	c.current = nil
	c.epoch++
	c.multi = make(map[topicmap.ID]bool)
	c.setPhase(Idle)
}

// Current returns the single selection
func (c *Controller) Current() (Selection, bool) {
	if c.current == nil {
		return Selection{}, false
	}
	return *c.current, true
}

// IsSelected reports whether id is the single selection
func (c *Controller) IsSelected(id topicmap.ID) bool {
	return c.current != nil && c.current.ID == id
}

// Phase returns the progress of the current transition
func (c *Controller) Phase() Phase {
	return c.phase
}

// Epoch counts selection transitions
func (c *Controller) Epoch() uint64 {
	return c.epoch
}

// SelectionDetailID returns the id of the selection's detail and whether it
// is onscreen. Asking with nothing selected is an invariant violation.
func (c *Controller) SelectionDetailID() (topicmap.ID, bool, error) {
	if c.current == nil {
		return 0, false, errors.Invariantf("selection detail requested when nothing is selected")
	}
	return c.current.ID, c.details.IsOnscreen(c.current.ID), nil
}

// RemoveSelectionDetail removes the selection's detail unless it is pinned.
// The selection itself stays.
func (c *Controller) RemoveSelectionDetail() (*loop.Future[struct{}], error) {
	id, onscreen, err := c.SelectionDetailID()
	if err != nil {
		return nil, err
	}
	if !onscreen {
		return loop.Resolved(c.l, struct{}{}), nil
	}
	return c.details.RemoveIfUnpinned(id, false, true)
}

// RenderAsSelected gives id the selection style as part of a host
// multi-selection. It fails while a single selection exists.
func (c *Controller) RenderAsSelected(id topicmap.ID) error {
	if c.current != nil {
		return errors.Invariantf("render %d as selected while %d is the single selection", id, c.current.ID)
	}
	if err := c.r.Select(render.ElementRef(id)); err != nil {
		return err
	}
	c.multi[id] = true
	return nil
}

// RenderAsUnselected clears the selection style of id without touching
// details or playing animations. It fails unless a single selection exists.
func (c *Controller) RenderAsUnselected(id topicmap.ID) error {
	if c.current == nil {
		return errors.Invariantf("render %d as unselected when nothing is selected", id)
	}
	delete(c.multi, id)
	return c.r.Unselect(render.ElementRef(id))
}

// MultiSelection returns the ids rendered as multi-selected, ordered
func (c *Controller) MultiSelection() []topicmap.ID {
	ids := make([]topicmap.ID, 0, len(c.multi))
	for id := range c.multi {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
