// Package rendertest provides an in-memory render.Renderer that records every
// call, for tests of the synchronization engine.
package rendertest

import (
	"context"
	"sync"
	"time"

	"github.com/teranos/topicmap/render"
	"github.com/teranos/topicmap/topicmap"
	"github.com/teranos/topicmap/topicmap/maperr"
)

// DefaultSize is what MeasureElement reports unless overridden
var DefaultSize = render.Size{Width: 240, Height: 160}

// Call is one recorded renderer call
type Call struct {
	Op  string
	Ref render.Ref
}

type element struct {
	pos      topicmap.Point
	selected bool
	expanded bool
	size     *render.Size
	fields   render.Fields
}

// Renderer records calls and keeps a minimal element tree. Safe for concurrent use.
type Renderer struct {
	// AnimationDelay and RelayoutDelay slow down the blocking calls
	AnimationDelay time.Duration
	RelayoutDelay  time.Duration

	mu        sync.Mutex
	elements  map[render.Ref]*element
	measured  map[render.Ref]render.Size
	calls     []Call
	viewport  topicmap.Viewport
	cancelled int
}

// New creates an empty recording renderer
func New() *Renderer {
	return &Renderer{
		elements: make(map[render.Ref]*element),
		measured: make(map[render.Ref]render.Size),
	}
}

// SetMeasuredSize overrides the size MeasureElement reports for ref
func (r *Renderer) SetMeasuredSize(ref render.Ref, size render.Size) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.measured[ref] = size
}

func (r *Renderer) record(op string, ref render.Ref) {
	r.calls = append(r.calls, Call{Op: op, Ref: ref})
}

func (r *Renderer) lookup(ref render.Ref) (*element, error) {
	el, ok := r.elements[ref]
	if !ok {
		return nil, maperr.ElementNotFound(ref)
	}
	return el, nil
}

func (r *Renderer) Clear(viewport topicmap.Viewport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(render.OpClear, render.Ref{})
	r.elements = make(map[render.Ref]*element)
	r.viewport = viewport
	return nil
}

func (r *Renderer) AddNode(n render.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref := render.ElementRef(n.ID)
	r.record(render.OpAddNode, ref)
	r.elements[ref] = &element{pos: n.Pos, fields: render.TopicFields(n.Display)}
	return nil
}

func (r *Renderer) AddEdge(e render.Edge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref := render.ElementRef(e.ID)
	r.record(render.OpAddEdge, ref)
	r.elements[ref] = &element{fields: render.AssocFields(e.Display)}
	return nil
}

func (r *Renderer) AddAuxNode(assocID topicmap.ID, pos topicmap.Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref := render.AuxRef(assocID)
	r.record(render.OpAddAuxNode, ref)
	if _, err := r.lookup(render.ElementRef(assocID)); err != nil {
		return err
	}
	r.elements[ref] = &element{pos: pos}
	return nil
}

func (r *Renderer) RemoveElement(ref render.Ref) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(render.OpRemove, ref)
	if _, err := r.lookup(ref); err != nil {
		return err
	}
	delete(r.elements, ref)
	return nil
}

func (r *Renderer) Select(ref render.Ref) error {
	return r.mutate(render.OpSelect, ref, func(el *element) { el.selected = true })
}

func (r *Renderer) Unselect(ref render.Ref) error {
	return r.mutate(render.OpUnselect, ref, func(el *element) { el.selected = false })
}

func (r *Renderer) UpdateElementData(ref render.Ref, fields render.Fields) error {
	return r.mutate(render.OpUpdate, ref, func(el *element) {
		if el.fields == nil {
			el.fields = render.Fields{}
		}
		for k, v := range fields {
			el.fields[k] = v
		}
	})
}

func (r *Renderer) SetExpanded(ref render.Ref, expanded bool) error {
	return r.mutate(render.OpSetExpanded, ref, func(el *element) { el.expanded = expanded })
}

func (r *Renderer) ResizeElement(ref render.Ref, size *render.Size) error {
	return r.mutate(render.OpResize, ref, func(el *element) {
		if size == nil {
			el.size = nil
			return
		}
		s := *size
		el.size = &s
	})
}

func (r *Renderer) AutoPan(ref render.Ref) error {
	return r.mutate(render.OpAutoPan, ref, func(*element) {})
}

func (r *Renderer) mutate(op string, ref render.Ref, fn func(el *element)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(op, ref)
	el, err := r.lookup(ref)
	if err != nil {
		return err
	}
	fn(el)
	return nil
}

func (r *Renderer) AnimateElementPosition(ctx context.Context, ref render.Ref, pos topicmap.Point) error {
	if err := sleep(ctx, r.AnimationDelay); err != nil {
		return err
	}
	return r.mutate(render.OpAnimate, ref, func(el *element) { el.pos = pos })
}

func (r *Renderer) MeasureElement(ctx context.Context, ref render.Ref) (render.Size, error) {
	if err := ctx.Err(); err != nil {
		return render.Size{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(render.OpMeasure, ref)
	if _, err := r.lookup(ref); err != nil {
		return render.Size{}, err
	}
	if s, ok := r.measured[ref]; ok {
		return s, nil
	}
	return DefaultSize, nil
}

func (r *Renderer) RunLocalRelayout(ctx context.Context) error {
	r.mu.Lock()
	r.record(render.OpRelayout, render.Ref{})
	r.mu.Unlock()

	if err := sleep(ctx, r.RelayoutDelay); err != nil {
		r.mu.Lock()
		r.cancelled++
		r.mu.Unlock()
		return err
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Calls returns a copy of every recorded call
func (r *Renderer) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// ResetCalls forgets recorded calls but keeps the element tree
func (r *Renderer) ResetCalls() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// Count returns how often op was called for ref
func (r *Renderer) Count(op string, ref render.Ref) int {
	n := 0
	for _, c := range r.Calls() {
		if c.Op == op && c.Ref == ref {
			n++
		}
	}
	return n
}

// CountOp returns how often op was called for any element
func (r *Renderer) CountOp(op string) int {
	n := 0
	for _, c := range r.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Index returns the position of the first call of op for ref, or -1
func (r *Renderer) Index(op string, ref render.Ref) int {
	for i, c := range r.Calls() {
		if c.Op == op && c.Ref == ref {
			return i
		}
	}
	return -1
}

// Has reports whether the element exists
func (r *Renderer) Has(ref render.Ref) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.elements[ref]
	return ok
}

// Position returns the element's current position
func (r *Renderer) Position(ref render.Ref) (topicmap.Point, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	el, ok := r.elements[ref]
	if !ok {
		return topicmap.Point{}, false
	}
	return el.pos, true
}

// IsSelected reports whether the element carries the selection style
func (r *Renderer) IsSelected(ref render.Ref) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	el, ok := r.elements[ref]
	return ok && el.selected
}

// IsExpanded reports whether the element is styled as hosting a detail
func (r *Renderer) IsExpanded(ref render.Ref) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	el, ok := r.elements[ref]
	return ok && el.expanded
}

// BoxSize returns the explicit box size, nil when natural
func (r *Renderer) BoxSize(ref render.Ref) *render.Size {
	r.mu.Lock()
	defer r.mu.Unlock()
	el, ok := r.elements[ref]
	if !ok || el.size == nil {
		return nil
	}
	s := *el.size
	return &s
}

// Field returns a display field of the element
func (r *Renderer) Field(ref render.Ref, name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if el, ok := r.elements[ref]; ok {
		return el.fields[name]
	}
	return ""
}

// Viewport returns the viewport applied by the last Clear
func (r *Renderer) Viewport() topicmap.Viewport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewport
}

// CancelledRelayouts counts relayouts stopped through their context
func (r *Renderer) CancelledRelayouts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

var _ render.Renderer = (*Renderer)(nil)
