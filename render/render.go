// Package render defines the boundary between the synchronization engine and
// the graph renderer that draws a topicmap.
//
// The engine never keeps references into the renderer's element tree; it
// addresses elements by Ref. Non-blocking calls return as soon as the
// instruction is issued. Calls that wait on the renderer (animations,
// measurement, relayout) take a context and block; the engine runs them off
// its loop.
package render

import (
	"context"
	"fmt"

	"github.com/teranos/topicmap/topicmap"
)

// Ref addresses a render element. Aux refs address the synthetic node that
// anchors an association's detail at the edge midpoint.
type Ref struct {
	ID  topicmap.ID `json:"id"`
	Aux bool        `json:"aux,omitempty"`
}

// ElementRef addresses the node or edge mirroring a view entry
func ElementRef(id topicmap.ID) Ref {
	return Ref{ID: id}
}

// AuxRef addresses the aux node of an association
func AuxRef(assocID topicmap.ID) Ref {
	return Ref{ID: assocID, Aux: true}
}

func (r Ref) String() string {
	if r.Aux {
		return fmt.Sprintf("aux:%d", r.ID)
	}
	return r.ID.String()
}

// Size is a rendered footprint in pixels
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Node is the render instruction for a topic
type Node struct {
	ID      topicmap.ID           `json:"id"`
	Pos     topicmap.Point        `json:"pos"`
	Pinned  bool                  `json:"pinned,omitempty"`
	Display topicmap.TopicDisplay `json:"display"`
}

// Edge is the render instruction for an association
type Edge struct {
	ID      topicmap.ID           `json:"id"`
	Source  topicmap.ID           `json:"source"`
	Target  topicmap.ID           `json:"target"`
	Pinned  bool                  `json:"pinned,omitempty"`
	Display topicmap.AssocDisplay `json:"display"`
}

// Fields are display attributes changed in place on an element
type Fields map[string]string

// Field names understood by UpdateElementData
const (
	FieldLabel           = "label"
	FieldIcon            = "icon"
	FieldIconColor       = "icon_color"
	FieldBackgroundColor = "background_color"
	FieldColor           = "color"
)

// Renderer is implemented by whatever draws the topicmap.
// Select and Unselect are programmatic and must not be echoed back as user selection events.
// Calls addressing an unknown element fail with an error matching errors.ErrElementNotFound.
type Renderer interface {
	// Clear removes every element and applies the viewport
	Clear(viewport topicmap.Viewport) error
	AddNode(n Node) error
	AddEdge(e Edge) error
	// AddAuxNode creates the aux node of an association at pos
	AddAuxNode(assocID topicmap.ID, pos topicmap.Point) error
	RemoveElement(ref Ref) error
	Select(ref Ref) error
	Unselect(ref Ref) error
	UpdateElementData(ref Ref, fields Fields) error
	// SetExpanded toggles the styling of an element that hosts a detail
	SetExpanded(ref Ref, expanded bool) error
	// ResizeElement sets the element box; nil restores its natural size
	ResizeElement(ref Ref, size *Size) error
	// AutoPan pans the viewport so the element is visible
	AutoPan(ref Ref) error

	// AnimateElementPosition moves an element and returns once the animation completed
	AnimateElementPosition(ctx context.Context, ref Ref, pos topicmap.Point) error
	// MeasureElement waits for the next render pass and returns the element's detail footprint
	MeasureElement(ctx context.Context, ref Ref) (Size, error)
	// RunLocalRelayout runs a force-directed relayout around expanded elements.
	// Cancelling ctx stops it.
	RunLocalRelayout(ctx context.Context) error
}

// NodeFor builds the render instruction for a topic
func NodeFor(vt *topicmap.ViewTopic, types *topicmap.TypeCache) Node {
	return Node{ID: vt.ID, Pos: vt.Pos, Pinned: vt.Pinned, Display: vt.Display(types)}
}

// EdgeFor builds the render instruction for an association
func EdgeFor(va *topicmap.ViewAssoc, types *topicmap.TypeCache) Edge {
	return Edge{
		ID:      va.ID,
		Source:  va.Player1.ID,
		Target:  va.Player2.ID,
		Pinned:  va.Pinned,
		Display: va.Display(types),
	}
}

// TopicFields are the fields refreshed when a topic or its type changes
func TopicFields(d topicmap.TopicDisplay) Fields {
	return Fields{
		FieldLabel:           d.Label,
		FieldIcon:            d.Icon,
		FieldIconColor:       d.IconColor,
		FieldBackgroundColor: d.BackgroundColor,
	}
}

// AssocFields are the fields refreshed when an association or its type changes
func AssocFields(d topicmap.AssocDisplay) Fields {
	return Fields{FieldLabel: d.Label, FieldColor: d.Color}
}

// Operation names, shared by the recording renderer and the websocket protocol
const (
	OpClear       = "clear"
	OpAddNode     = "add_node"
	OpAddEdge     = "add_edge"
	OpAddAuxNode  = "add_aux_node"
	OpRemove      = "remove"
	OpSelect      = "select"
	OpUnselect    = "unselect"
	OpUpdate      = "update"
	OpSetExpanded = "set_expanded"
	OpResize      = "resize"
	OpAutoPan     = "auto_pan"
	OpAnimate     = "animate"
	OpMeasure     = "measure"
	OpRelayout    = "relayout"

	// OpStopRelayout is only sent over the wire, when a relayout is cancelled
	OpStopRelayout = "stop_relayout"
)
