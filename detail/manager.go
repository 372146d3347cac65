// Package detail manages the in-map detail overlays of a topicmap session.
//
// A detail is created for the single selection and for every pinned object.
// Its object payload and write permission are fetched asynchronously and
// independently; its box is measured after it is shown and the hosting render
// element is resized to match. Consumers observe details through immutable
// snapshots, either on demand or pushed to subscribers.
//
// Manager methods must be called on the session loop.
package detail

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/topicmap/anim"
	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/logger"
	"github.com/teranos/topicmap/loop"
	"github.com/teranos/topicmap/persist"
	"github.com/teranos/topicmap/render"
	"github.com/teranos/topicmap/topicmap"
)

// DefaultSyncWindow is the debounce window of SyncSize
const DefaultSyncWindow = 80 * time.Millisecond

// Manager owns the details displayed on one topicmap
type Manager struct {
	l      *loop.Loop
	r      render.Renderer
	src    persist.ObjectSource
	types  *topicmap.TypeCache
	sched  *anim.Scheduler
	m      *topicmap.Topicmap
	logger *zap.SugaredLogger

	records  map[topicmap.ID]*Record
	sizeSync *anim.Debouncer[topicmap.ID]

	subMu  sync.Mutex
	subs   map[int]chan Snapshot
	nextID int
	closed bool
}

// NewManager creates a manager for m. window is the SyncSize debounce window.
func NewManager(l *loop.Loop, r render.Renderer, src persist.ObjectSource, types *topicmap.TypeCache,
	sched *anim.Scheduler, m *topicmap.Topicmap, window time.Duration, log *zap.SugaredLogger) *Manager {
	if window <= 0 {
		window = DefaultSyncWindow
	}
	mg := &Manager{
		l:       l,
		r:       r,
		src:     src,
		types:   types,
		sched:   sched,
		m:       m,
		logger:  logger.OrNop(log),
		records: make(map[topicmap.ID]*Record),
		subs:    make(map[int]chan Snapshot),
	}
	mg.sizeSync = anim.NewDebouncer(l, window, mg.flushSizes)
	return mg
}

// SetTopicmap switches to another topicmap. Details of the previous one are
// dropped without render calls; the renderer was cleared already.
func (mg *Manager) SetTopicmap(m *topicmap.Topicmap) {
	mg.sizeSync.Cancel()
	for _, id := range mg.ids() {
		rec := mg.records[id]
		delete(mg.records, id)
		mg.publishRemoved(rec)
	}
	mg.m = m
}

// Create allocates a detail record for a view entry and starts fetching its
// object and permission. The record is not displayed until Show.
func (mg *Manager) Create(id topicmap.ID) (*Record, error) {
	kind, ok := mg.m.KindOf(id)
	if !ok {
		return nil, errors.NewNotFoundError("object %d not in topicmap %d", id, mg.m.ID)
	}
	rec := &Record{ID: id, Kind: kind}
	mg.fetch(rec)
	return rec, nil
}

// CreateForSelection is Create for the detail of the single selection.
// Showing it also selects the aux node of an association.
func (mg *Manager) CreateForSelection(id topicmap.ID) (*Record, error) {
	rec, err := mg.Create(id)
	if err != nil {
		return nil, err
	}
	rec.Selected = true
	return rec, nil
}

func (mg *Manager) fetch(rec *Record) {
	loop.Go(mg.l, func(ctx context.Context) (topicmap.Object, error) {
		return mg.src.FetchObject(ctx, rec.ID)
	}).Then(func(obj topicmap.Object, err error) {
		if err != nil {
			mg.logger.Warnw("Detail object fetch failed", logger.FieldDetailID, rec.ID, logger.FieldError, err)
			return
		}
		asType := obj.AsType(mg.types)
		rec.object = &asType
		mg.changed(rec)
	})

	loop.Go(mg.l, func(ctx context.Context) (bool, error) {
		return mg.src.IsWritable(ctx, rec.ID)
	}).Then(func(writable bool, err error) {
		if err != nil {
			mg.logger.Warnw("Detail permission check failed", logger.FieldDetailID, rec.ID, logger.FieldError, err)
			return
		}
		rec.writable = &writable
		mg.changed(rec)
	})
}

// Show displays rec: the hosting element is expanded, the record registered,
// and once rendered its box is measured and the element resized. The future
// settles after the resize and the fisheye it triggers.
func (mg *Manager) Show(rec *Record) *loop.Future[struct{}] {
	if cur, ok := mg.records[rec.ID]; ok {
		// already displayed, typically a pinned detail becoming the selection
		if rec.Selected && !cur.Selected {
			cur.Selected = true
			if err := mg.selectAux(cur); err != nil {
				return loop.Failed[struct{}](mg.l, err)
			}
			mg.publish(cur)
		}
		return loop.Resolved(mg.l, struct{}{})
	}

	if rec.Kind == topicmap.KindAssoc {
		pos, err := mg.m.Position(rec.ID)
		if err != nil {
			return loop.Failed[struct{}](mg.l, err)
		}
		if err := mg.r.AddAuxNode(rec.ID, pos); err != nil {
			return loop.Failed[struct{}](mg.l, errors.Wrapf(err, "failed to anchor detail %d", rec.ID))
		}
		if err := mg.selectAux(rec); err != nil {
			return loop.Failed[struct{}](mg.l, err)
		}
	}
	if err := mg.r.SetExpanded(rec.Ref(), true); err != nil {
		return loop.Failed[struct{}](mg.l, errors.Wrapf(err, "failed to expand detail %d", rec.ID))
	}

	mg.records[rec.ID] = rec
	mg.updatePosition(rec)
	mg.logger.Debugw("Detail shown", logger.FieldDetailID, rec.ID, logger.FieldObjectKind, rec.Kind)
	mg.publish(rec)
	return mg.adjustSize(rec.ID)
}

func (mg *Manager) selectAux(rec *Record) error {
	if rec.Kind != topicmap.KindAssoc || !rec.Selected {
		return nil
	}
	return mg.r.Select(rec.Ref())
}

// Deselect clears the selection mark of a detail that stays onscreen
func (mg *Manager) Deselect(id topicmap.ID) error {
	rec, ok := mg.records[id]
	if !ok || !rec.Selected {
		return nil
	}
	rec.Selected = false
	mg.publish(rec)
	if rec.Kind == topicmap.KindAssoc {
		return mg.r.Unselect(rec.Ref())
	}
	return nil
}

// SyncSize schedules a re-measure of the detail's box. Calls within the
// debounce window collapse into one measure and resize per detail, and one
// fisheye for all of them.
func (mg *Manager) SyncSize(id topicmap.ID) {
	mg.sizeSync.Trigger(id)
}

// flushSizes measures and resizes every detail of a debounce window, then
// runs one fisheye for the whole batch.
func (mg *Manager) flushSizes(ids []topicmap.ID) {
	resized := 0
	passes := make([]loop.Settler, 0, len(ids))
	for _, id := range ids {
		id := id
		f := mg.resize(id)
		f.Then(func(ok bool, err error) {
			if err != nil {
				mg.logger.Warnw("Detail size sync failed", logger.FieldDetailID, id, logger.FieldError, err)
			}
			if ok {
				resized++
			}
		})
		passes = append(passes, f)
	}
	loop.All(mg.l, passes...).Then(func(struct{}, error) {
		if resized > 0 {
			mg.sched.Fisheye()
		}
	})
}

// adjustSize resizes a single detail and plays the fisheye for it
func (mg *Manager) adjustSize(id topicmap.ID) *loop.Future[struct{}] {
	done := loop.NewFuture[struct{}](mg.l)
	mg.resize(id).Then(func(ok bool, err error) {
		if err != nil || !ok {
			done.Resolve(struct{}{}, err)
			return
		}
		mg.sched.Fisheye().Then(func(struct{}, error) {
			done.Resolve(struct{}{}, nil)
		})
	})
	return done
}

// resize measures the detail and resizes its hosting element to match.
// The future holds false when the detail is gone before the resize.
func (mg *Manager) resize(id topicmap.ID) *loop.Future[bool] {
	rec, ok := mg.records[id]
	if !ok {
		mg.logger.Warnw("Size sync for a detail not onscreen", logger.FieldDetailID, id)
		return loop.Resolved(mg.l, false)
	}
	ref := rec.Ref()
	done := loop.NewFuture[bool](mg.l)

	loop.Go(mg.l, func(ctx context.Context) (render.Size, error) {
		return mg.r.MeasureElement(ctx, ref)
	}).Then(func(size render.Size, err error) {
		if mg.records[id] != rec {
			mg.logger.Debugw("Dropping measurement of a removed detail", logger.FieldDetailID, id)
			done.Resolve(false, nil)
			return
		}
		if err != nil {
			done.Resolve(false, errors.Wrapf(err, "failed to measure detail %d", id))
			return
		}
		if err := mg.r.ResizeElement(ref, &size); err != nil {
			done.Resolve(false, errors.Wrapf(err, "failed to resize detail %d", id))
			return
		}
		rec.size = &size
		mg.logger.Debugw("Detail resized",
			logger.FieldDetailID, id,
			logger.FieldWidth, size.Width,
			logger.FieldHeight, size.Height,
		)
		mg.publish(rec)
		done.Resolve(true, nil)
	})
	return done
}

// Remove takes a detail off the map and plays the restore animation.
// Render errors are returned directly; the future settles once restored.
func (mg *Manager) Remove(id topicmap.ID) (*loop.Future[struct{}], error) {
	rec, ok := mg.records[id]
	if !ok {
		return loop.Resolved(mg.l, struct{}{}), errors.NewNotFoundError("no detail for %d", id)
	}
	delete(mg.records, id)

	var err error
	if rec.Kind == topicmap.KindAssoc {
		err = mg.r.RemoveElement(rec.Ref())
	} else {
		err = errors.CombineErrors(
			mg.r.SetExpanded(rec.Ref(), false),
			mg.r.ResizeElement(rec.Ref(), nil),
		)
	}
	mg.logger.Debugw("Detail removed", logger.FieldDetailID, id)
	mg.publishRemoved(rec)
	return mg.sched.Restore(mg.m), err
}

// RemoveIfOnscreen removes the detail if one is displayed
func (mg *Manager) RemoveIfOnscreen(id topicmap.ID) (*loop.Future[struct{}], error) {
	if _, ok := mg.records[id]; !ok {
		return loop.Resolved(mg.l, struct{}{}), nil
	}
	return mg.Remove(id)
}

// RemoveIfUnpinned removes the detail unless the object is pinned, or it is
// the selection and selection details are shown.
func (mg *Manager) RemoveIfUnpinned(id topicmap.ID, isSelected, showDetails bool) (*loop.Future[struct{}], error) {
	if !mg.m.IsPinned(id) && (!isSelected || !showDetails) {
		return mg.RemoveIfOnscreen(id)
	}
	return loop.Resolved(mg.l, struct{}{}), nil
}

// UpdateObject replaces the object of a displayed detail after a server update.
// Type objects are stored as their as-type copy.
func (mg *Manager) UpdateObject(obj topicmap.Object) bool {
	rec, ok := mg.records[obj.ID]
	if !ok {
		return false
	}
	asType := obj.AsType(mg.types)
	rec.object = &asType
	mg.publish(rec)
	return true
}

// UpdatePositions recomputes the screen position of every detail from the
// model and viewport
func (mg *Manager) UpdatePositions() {
	for _, id := range mg.ids() {
		rec := mg.records[id]
		if mg.updatePosition(rec) {
			mg.publish(rec)
		}
	}
}

// UpdatePosition recomputes the screen position of the details depending on
// the position of id: its own, and those of associations it plays in.
func (mg *Manager) UpdatePosition(id topicmap.ID) {
	for _, recID := range mg.ids() {
		rec := mg.records[recID]
		if recID != id && !mg.dependsOn(rec, id) {
			continue
		}
		if mg.updatePosition(rec) {
			mg.publish(rec)
		}
	}
}

func (mg *Manager) dependsOn(rec *Record, id topicmap.ID) bool {
	if rec.Kind != topicmap.KindAssoc {
		return false
	}
	seen := map[topicmap.ID]bool{}
	queue := []topicmap.ID{rec.ID}
	for len(queue) > 0 {
		va := mg.m.AssocIfExists(queue[0])
		queue = queue[1:]
		if va == nil || seen[va.ID] {
			continue
		}
		seen[va.ID] = true
		if va.HasPlayer(id) {
			return true
		}
		for _, p := range []topicmap.PlayerRef{va.Player1, va.Player2} {
			if p.Kind == topicmap.KindAssoc {
				queue = append(queue, p.ID)
			}
		}
	}
	return false
}

func (mg *Manager) updatePosition(rec *Record) bool {
	p, err := mg.m.Position(rec.ID)
	if err != nil {
		mg.logger.Debugw("No position for detail", logger.FieldDetailID, rec.ID, logger.FieldError, err)
		return false
	}
	pos := mg.m.Viewport().ToRendered(p)
	if pos == rec.pos {
		return false
	}
	rec.pos = pos
	return true
}

// IsOnscreen reports whether a detail is displayed for id
func (mg *Manager) IsOnscreen(id topicmap.ID) bool {
	_, ok := mg.records[id]
	return ok
}

// Onscreen counts the displayed details
func (mg *Manager) Onscreen() int {
	return len(mg.records)
}

// Snapshot returns the current state of the detail of id
func (mg *Manager) Snapshot(id topicmap.ID) (Snapshot, bool) {
	rec, ok := mg.records[id]
	if !ok {
		return Snapshot{}, false
	}
	return rec.snapshot(mg.m.IsPinned(id)), true
}

// Snapshots returns every displayed detail, ordered by id
func (mg *Manager) Snapshots() []Snapshot {
	ids := mg.ids()
	out := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, mg.records[id].snapshot(mg.m.IsPinned(id)))
	}
	return out
}

// Refresh publishes the detail of id again, after its pin flag changed
func (mg *Manager) Refresh(id topicmap.ID) {
	if rec, ok := mg.records[id]; ok {
		mg.publish(rec)
	}
}

func (mg *Manager) ids() []topicmap.ID {
	ids := make([]topicmap.ID, 0, len(mg.records))
	for id := range mg.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (mg *Manager) changed(rec *Record) {
	if mg.records[rec.ID] != rec {
		mg.logger.Debugw("Detail data for a record not onscreen", logger.FieldDetailID, rec.ID)
		return
	}
	mg.publish(rec)
}
