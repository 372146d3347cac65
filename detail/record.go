package detail

import (
	"github.com/teranos/topicmap/render"
	"github.com/teranos/topicmap/topicmap"
)

// Record is the in-map detail of one topic or association.
// Object and Writable are filled in asynchronously and are nil until known.
type Record struct {
	ID   topicmap.ID
	Kind topicmap.Kind

	// Selected is set for the detail of the single selection
	Selected bool

	object   *topicmap.Object
	writable *bool
	size     *render.Size
	pos      topicmap.Point
}

// Ref is the render element hosting the detail: the node of a topic, or the
// aux node of an association.
func (r *Record) Ref() render.Ref {
	if r.Kind == topicmap.KindAssoc {
		return render.AuxRef(r.ID)
	}
	return render.ElementRef(r.ID)
}

// Snapshot is an immutable view of a detail record
type Snapshot struct {
	ID       topicmap.ID      `json:"id"`
	Kind     topicmap.Kind    `json:"kind"`
	Object   *topicmap.Object `json:"object,omitempty"`
	Writable *bool            `json:"writable,omitempty"`
	Size     *render.Size     `json:"size,omitempty"`
	Pos      topicmap.Point   `json:"pos"`
	Pinned   bool             `json:"pinned"`
	Selected bool             `json:"selected"`

	// Removed is set on the last snapshot published for a detail
	Removed bool `json:"removed,omitempty"`
}

func (r *Record) snapshot(pinned bool) Snapshot {
	s := Snapshot{
		ID:       r.ID,
		Kind:     r.Kind,
		Pos:      r.pos,
		Pinned:   pinned,
		Selected: r.Selected,
	}
	if r.object != nil {
		obj := r.object.Clone()
		s.Object = &obj
	}
	if r.writable != nil {
		w := *r.writable
		s.Writable = &w
	}
	if r.size != nil {
		size := *r.size
		s.Size = &size
	}
	return s
}
