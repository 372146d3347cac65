// Package persist defines how the synchronization engine talks to the
// topicmap store, and the ordered writer that carries optimistic local
// mutations to it.
package persist

import (
	"context"

	"github.com/teranos/topicmap/topicmap"
)

// ViewProps are the per-map properties of a view entry as stored
type ViewProps struct {
	Pos     *topicmap.Point `json:"pos,omitempty"`
	Visible bool            `json:"visible"`
	Pinned  bool            `json:"pinned"`
}

// TopicProps captures the stored properties of a topic entry
func TopicProps(vt *topicmap.ViewTopic) ViewProps {
	props := ViewProps{Visible: vt.Visible, Pinned: vt.Pinned}
	if vt.HasPos {
		pos := vt.Pos
		props.Pos = &pos
	}
	return props
}

// AssocProps captures the stored properties of an association entry
func AssocProps(va *topicmap.ViewAssoc) ViewProps {
	return ViewProps{Visible: va.Visible, Pinned: va.Pinned}
}

// Summary describes a stored topicmap without its content
type Summary struct {
	ID         topicmap.ID `json:"id"`
	Name       string      `json:"name"`
	Writable   bool        `json:"writable"`
	TopicCount int         `json:"topic_count"`
	AssocCount int         `json:"assoc_count"`
}

// Loaded is a topicmap as fetched for rendering
type Loaded struct {
	Topicmap *topicmap.Topicmap
	Writable bool
}

// Store persists topicmaps. Writes are issued after the local model already
// changed; a failed write is reported, never rolled back.
type Store interface {
	FetchTopicmap(ctx context.Context, id topicmap.ID) (*Loaded, error)
	ListTopicmaps(ctx context.Context) ([]Summary, error)
	FetchTypes(ctx context.Context) ([]topicmap.TypeDef, error)

	AddTopicToMap(ctx context.Context, mapID, topicID topicmap.ID, props ViewProps) error
	AddAssocToMap(ctx context.Context, mapID, assocID topicmap.ID, props ViewProps) error
	// AddRelatedTopicToMap adds or shows a topic together with the association
	// connecting it. topicProps is nil when the topic was already visible.
	AddRelatedTopicToMap(ctx context.Context, mapID, topicID, assocID topicmap.ID, topicProps *ViewProps) error
	SetTopicVisibility(ctx context.Context, mapID, topicID topicmap.ID, visible bool) error
	SetAssocVisibility(ctx context.Context, mapID, assocID topicmap.ID, visible bool) error
	SetPinned(ctx context.Context, mapID, id topicmap.ID, pinned bool) error
	SetTopicPosition(ctx context.Context, mapID, topicID topicmap.ID, pos topicmap.Point) error
	SetTopicPositions(ctx context.Context, mapID topicmap.ID, coords []topicmap.TopicCoord) error
	// HideMulti hides the named objects and every association anchored to them
	HideMulti(ctx context.Context, mapID topicmap.ID, ids topicmap.IDLists) error
	// DeleteMulti deletes the named objects, and the associations anchored to them, everywhere
	DeleteMulti(ctx context.Context, ids topicmap.IDLists) error
	SetViewport(ctx context.Context, mapID topicmap.ID, viewport topicmap.Viewport) error
}

// ObjectSource supplies the full payload and permissions of objects shown in details
type ObjectSource interface {
	FetchObject(ctx context.Context, id topicmap.ID) (topicmap.Object, error)
	IsWritable(ctx context.Context, id topicmap.ID) (bool, error)
}
