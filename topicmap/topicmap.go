// Package topicmap holds the in-memory model of one rendered topicmap: the
// view entries of its topics and associations, their visibility, pin and
// position state, and the viewport.
//
// A Topicmap is not safe for concurrent use. It is owned by a single session
// loop; cascading visibility changes to dependent associations is the job of
// the cascade package, never of the setters here.
package topicmap

import (
	"sort"

	"github.com/teranos/topicmap/errors"
)

// Topicmap owns all view entries of one map
type Topicmap struct {
	ID   ID
	Name string

	topics   map[ID]*ViewTopic
	assocs   map[ID]*ViewAssoc
	viewport Viewport
}

// New creates an empty topicmap
func New(id ID, name string) *Topicmap {
	return &Topicmap{
		ID:       id,
		Name:     name,
		topics:   make(map[ID]*ViewTopic),
		assocs:   make(map[ID]*ViewAssoc),
		viewport: Viewport{Zoom: 1},
	}
}

// AddTopic inserts vt, replacing any existing entry with the same ID
func (m *Topicmap) AddTopic(vt ViewTopic) *ViewTopic {
	entry := vt
	m.topics[vt.ID] = &entry
	return &entry
}

// AddAssoc inserts va, replacing any existing entry with the same ID
func (m *Topicmap) AddAssoc(va ViewAssoc) *ViewAssoc {
	entry := va
	m.assocs[va.ID] = &entry
	return &entry
}

// RemoveTopic drops the view entry. It reports whether an entry existed.
func (m *Topicmap) RemoveTopic(id ID) bool {
	_, ok := m.topics[id]
	delete(m.topics, id)
	return ok
}

// RemoveAssoc drops the view entry. It reports whether an entry existed.
func (m *Topicmap) RemoveAssoc(id ID) bool {
	_, ok := m.assocs[id]
	delete(m.assocs, id)
	return ok
}

// HasTopic reports whether the map has a view entry for the topic
func (m *Topicmap) HasTopic(id ID) bool {
	_, ok := m.topics[id]
	return ok
}

// HasAssoc reports whether the map has a view entry for the association
func (m *Topicmap) HasAssoc(id ID) bool {
	_, ok := m.assocs[id]
	return ok
}

// Topic returns the view entry or an ErrNotFound error
func (m *Topicmap) Topic(id ID) (*ViewTopic, error) {
	vt, ok := m.topics[id]
	if !ok {
		return nil, errors.NewNotFoundError("topic %d not in topicmap %d", id, m.ID)
	}
	return vt, nil
}

// Assoc returns the view entry or an ErrNotFound error
func (m *Topicmap) Assoc(id ID) (*ViewAssoc, error) {
	va, ok := m.assocs[id]
	if !ok {
		return nil, errors.NewNotFoundError("assoc %d not in topicmap %d", id, m.ID)
	}
	return va, nil
}

// TopicIfExists returns the view entry or nil
func (m *Topicmap) TopicIfExists(id ID) *ViewTopic {
	return m.topics[id]
}

// AssocIfExists returns the view entry or nil
func (m *Topicmap) AssocIfExists(id ID) *ViewAssoc {
	return m.assocs[id]
}

// KindOf reports whether id is a topic or an association of this map
func (m *Topicmap) KindOf(id ID) (Kind, bool) {
	if _, ok := m.topics[id]; ok {
		return KindTopic, true
	}
	if _, ok := m.assocs[id]; ok {
		return KindAssoc, true
	}
	return "", false
}

// Topics returns all topic entries ordered by ID
func (m *Topicmap) Topics() []*ViewTopic {
	out := make([]*ViewTopic, 0, len(m.topics))
	for _, vt := range m.topics {
		out = append(out, vt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Assocs returns all association entries ordered by ID
func (m *Topicmap) Assocs() []*ViewAssoc {
	out := make([]*ViewAssoc, 0, len(m.assocs))
	for _, va := range m.assocs {
		out = append(out, va)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetTopicVisibility flips one topic's visibility. Dependent associations are untouched.
func (m *Topicmap) SetTopicVisibility(id ID, visible bool) error {
	vt, err := m.Topic(id)
	if err != nil {
		return err
	}
	vt.Visible = visible
	return nil
}

// SetAssocVisibility flips one association's visibility. Dependent associations are untouched.
func (m *Topicmap) SetAssocVisibility(id ID, visible bool) error {
	va, err := m.Assoc(id)
	if err != nil {
		return err
	}
	va.Visible = visible
	return nil
}

// SetPinned sets the pin flag of a topic or association
func (m *Topicmap) SetPinned(id ID, pinned bool) error {
	if vt, ok := m.topics[id]; ok {
		vt.Pinned = pinned
		return nil
	}
	if va, ok := m.assocs[id]; ok {
		va.Pinned = pinned
		return nil
	}
	return errors.NewNotFoundError("object %d not in topicmap %d", id, m.ID)
}

// IsPinned reports the pin flag of a topic or association
func (m *Topicmap) IsPinned(id ID) bool {
	if vt, ok := m.topics[id]; ok {
		return vt.Pinned
	}
	if va, ok := m.assocs[id]; ok {
		return va.Pinned
	}
	return false
}

// SetPosition moves a topic in model coordinates
func (m *Topicmap) SetPosition(id ID, pos Point) error {
	vt, err := m.Topic(id)
	if err != nil {
		return err
	}
	vt.Pos = pos
	vt.HasPos = true
	return nil
}

// IsVisible reports whether the referenced player has a visible view entry
func (m *Topicmap) IsVisible(ref PlayerRef) bool {
	switch ref.Kind {
	case KindAssoc:
		va, ok := m.assocs[ref.ID]
		return ok && va.Visible
	default:
		vt, ok := m.topics[ref.ID]
		return ok && vt.Visible
	}
}

// AssocsWithPlayer returns every association entry, visible or not, that has id as a player
func (m *Topicmap) AssocsWithPlayer(id ID) []*ViewAssoc {
	var out []*ViewAssoc
	for _, va := range m.assocs {
		if va.HasPlayer(id) {
			out = append(out, va)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OtherPlayer returns the player of va that is not id.
// An association with id on both ends yields id itself.
func (m *Topicmap) OtherPlayer(va *ViewAssoc, id ID) (PlayerRef, error) {
	switch id {
	case va.Player1.ID:
		return va.Player2, nil
	case va.Player2.ID:
		return va.Player1, nil
	}
	return PlayerRef{}, errors.Invariantf("%d is not a player of assoc %d", id, va.ID)
}

// Position returns a topic's position, or for an association the midpoint of its players
func (m *Topicmap) Position(id ID) (Point, error) {
	return m.position(id, map[ID]bool{})
}

func (m *Topicmap) position(id ID, seen map[ID]bool) (Point, error) {
	if vt, ok := m.topics[id]; ok {
		return vt.Pos, nil
	}
	va, ok := m.assocs[id]
	if !ok {
		return Point{}, errors.NewNotFoundError("object %d not in topicmap %d", id, m.ID)
	}
	if seen[id] {
		return Point{}, errors.Invariantf("assoc %d is its own player", id)
	}
	seen[id] = true

	p1, err := m.position(va.Player1.ID, seen)
	if err != nil {
		return Point{}, err
	}
	p2, err := m.position(va.Player2.ID, seen)
	if err != nil {
		return Point{}, err
	}
	return Midpoint(p1, p2), nil
}

// SetViewport stores pan and zoom
func (m *Topicmap) SetViewport(pan Point, zoom float64) {
	m.viewport = Viewport{Pan: pan, Zoom: zoom}
}

// Viewport returns the stored pan and zoom
func (m *Topicmap) Viewport() Viewport {
	return m.viewport
}

// UpdateTopic applies a changed domain topic to an existing entry.
// It returns nil when the topic is not part of this map.
func (m *Topicmap) UpdateTopic(t Topic) *ViewTopic {
	vt, ok := m.topics[t.ID]
	if !ok {
		return nil
	}
	vt.Value = t.Value
	if t.URI != "" {
		vt.URI = t.URI
	}
	if t.TypeURI != "" {
		vt.TypeURI = t.TypeURI
	}
	return vt
}

// UpdateAssoc applies a changed domain association to an existing entry.
// It returns nil when the association is not part of this map.
func (m *Topicmap) UpdateAssoc(a Assoc) *ViewAssoc {
	va, ok := m.assocs[a.ID]
	if !ok {
		return nil
	}
	va.Value = a.Value
	if a.TypeURI != "" {
		va.TypeURI = a.TypeURI
	}
	return va
}

// VisibleTopicsOfType returns visible topics whose type is typeURI
func (m *Topicmap) VisibleTopicsOfType(typeURI string) []*ViewTopic {
	var out []*ViewTopic
	for _, vt := range m.Topics() {
		if vt.Visible && vt.TypeURI == typeURI {
			out = append(out, vt)
		}
	}
	return out
}

// VisibleAssocsOfType returns visible associations whose type is typeURI
func (m *Topicmap) VisibleAssocsOfType(typeURI string) []*ViewAssoc {
	var out []*ViewAssoc
	for _, va := range m.Assocs() {
		if va.Visible && va.TypeURI == typeURI {
			out = append(out, va)
		}
	}
	return out
}
