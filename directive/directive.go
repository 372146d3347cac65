// Package directive decodes the push messages a topicmap session receives
// from the server when objects or topicmaps change elsewhere.
package directive

import (
	"bytes"
	"encoding/json"

	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/topicmap"
)

// Type names a directive
type Type string

// Object directives
const (
	UpdateTopic     Type = "UPDATE_TOPIC"
	DeleteTopic     Type = "DELETE_TOPIC"
	UpdateAssoc     Type = "UPDATE_ASSOC"
	DeleteAssoc     Type = "DELETE_ASSOC"
	UpdateTopicType Type = "UPDATE_TOPIC_TYPE"
	UpdateAssocType Type = "UPDATE_ASSOC_TYPE"
)

// Topicmap directives, applied only by sessions rendering the addressed map
const (
	AddTopicToMap      Type = "ADD_TOPIC_TO_MAP"
	AddAssocToMap      Type = "ADD_ASSOC_TO_MAP"
	SetTopicPosition   Type = "SET_TOPIC_POSITION"
	SetTopicVisibility Type = "SET_TOPIC_VISIBILITY"
	SetAssocVisibility Type = "SET_ASSOC_VISIBILITY"
)

// Long forms accepted on input
var aliases = map[Type]Type{
	"UPDATE_ASSOCIATION":      UpdateAssoc,
	"DELETE_ASSOCIATION":      DeleteAssoc,
	"UPDATE_ASSOCIATION_TYPE": UpdateAssocType,
}

// Known reports whether t is a directive the engine applies
func (t Type) Known() bool {
	_, ok := argTypes[t]
	return ok
}

// Directive is one push message. Arg is decoded according to Type.
type Directive struct {
	Type Type            `json:"type"`
	Arg  json.RawMessage `json:"arg"`
}

// ObjectRef addresses a deleted object
type ObjectRef struct {
	ID topicmap.ID `json:"id"`
}

// ViewTopic is a topic entry as pushed with ADD_TOPIC_TO_MAP
type ViewTopic struct {
	topicmap.Topic
	Pos     *topicmap.Point `json:"pos,omitempty"`
	Visible bool            `json:"visible"`
	Pinned  bool            `json:"pinned"`
}

// Entry converts the pushed topic into a view entry
func (v ViewTopic) Entry() topicmap.ViewTopic {
	vt := topicmap.ViewTopic{
		ID:      v.ID,
		URI:     v.URI,
		TypeURI: v.TypeURI,
		Value:   v.Value,
		Visible: v.Visible,
		Pinned:  v.Pinned,
	}
	if v.Pos != nil {
		vt.Pos, vt.HasPos = *v.Pos, true
	}
	return vt
}

// ViewAssoc is an association entry as pushed with ADD_ASSOC_TO_MAP
type ViewAssoc struct {
	topicmap.Assoc
	Visible bool `json:"visible"`
	Pinned  bool `json:"pinned"`
}

// Entry converts the pushed association into a view entry
func (v ViewAssoc) Entry() topicmap.ViewAssoc {
	return topicmap.ViewAssoc{
		ID:      v.ID,
		TypeURI: v.TypeURI,
		Value:   v.Value,
		Player1: v.Player1,
		Player2: v.Player2,
		Visible: v.Visible,
		Pinned:  v.Pinned,
	}
}

// MapTopic is the argument of ADD_TOPIC_TO_MAP
type MapTopic struct {
	TopicmapID topicmap.ID `json:"topicmap_id"`
	ViewTopic  ViewTopic   `json:"view_topic"`
}

// MapAssoc is the argument of ADD_ASSOC_TO_MAP
type MapAssoc struct {
	TopicmapID topicmap.ID `json:"topicmap_id"`
	ViewAssoc  ViewAssoc   `json:"view_assoc"`
}

// TopicPosition is the argument of SET_TOPIC_POSITION
type TopicPosition struct {
	TopicmapID topicmap.ID    `json:"topicmap_id"`
	TopicID    topicmap.ID    `json:"topic_id"`
	Pos        topicmap.Point `json:"pos"`
}

// Visibility is the argument of SET_TOPIC_VISIBILITY and SET_ASSOC_VISIBILITY
type Visibility struct {
	TopicmapID topicmap.ID `json:"topicmap_id"`
	TopicID    topicmap.ID `json:"topic_id,omitempty"`
	AssocID    topicmap.ID `json:"assoc_id,omitempty"`
	Visibility bool        `json:"visibility"`
}

// argTypes creates the argument value each known directive decodes into
var argTypes = map[Type]func() interface{}{
	UpdateTopic:        func() interface{} { return &topicmap.Object{} },
	UpdateAssoc:        func() interface{} { return &topicmap.Object{} },
	DeleteTopic:        func() interface{} { return &ObjectRef{} },
	DeleteAssoc:        func() interface{} { return &ObjectRef{} },
	UpdateTopicType:    func() interface{} { return &topicmap.TypeDef{} },
	UpdateAssocType:    func() interface{} { return &topicmap.TypeDef{} },
	AddTopicToMap:      func() interface{} { return &MapTopic{} },
	AddAssocToMap:      func() interface{} { return &MapAssoc{} },
	SetTopicPosition:   func() interface{} { return &TopicPosition{} },
	SetTopicVisibility: func() interface{} { return &Visibility{} },
	SetAssocVisibility: func() interface{} { return &Visibility{} },
}

// New builds a directive from its typed argument
func New(t Type, arg interface{}) (Directive, error) {
	raw, err := json.Marshal(arg)
	if err != nil {
		return Directive{}, errors.Wrapf(err, "failed to encode %s argument", t)
	}
	return Directive{Type: t, Arg: raw}, nil
}

// Decode unmarshals the argument into v
func (d Directive) Decode(v interface{}) error {
	if len(d.Arg) == 0 {
		return errors.NewInvalidRequestError("%s directive without argument", d.Type)
	}
	if err := json.Unmarshal(d.Arg, v); err != nil {
		return errors.Mark(errors.Wrapf(err, "invalid %s argument", d.Type), errors.ErrInvalidRequest)
	}
	return nil
}

// Parse decodes a directive list. A single directive object is accepted as
// a list of one. Long type names are normalized; arguments of known types
// are validated. Unknown types are kept for the caller to skip.
func Parse(data []byte) ([]Directive, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.NewInvalidRequestError("empty directive payload")
	}

	var dirs []Directive
	if data[0] == '[' {
		if err := json.Unmarshal(data, &dirs); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "invalid directive list"), errors.ErrInvalidRequest)
		}
	} else {
		var d Directive
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "invalid directive"), errors.ErrInvalidRequest)
		}
		dirs = []Directive{d}
	}

	for i := range dirs {
		if t, ok := aliases[dirs[i].Type]; ok {
			dirs[i].Type = t
		}
		if err := dirs[i].Validate(); err != nil {
			return nil, errors.Wrapf(err, "directive %d", i)
		}
	}
	return dirs, nil
}

// Validate checks that the argument of a known directive decodes and names its target
func (d Directive) Validate() error {
	if d.Type == "" {
		return errors.NewInvalidRequestError("directive without type")
	}
	newArg, ok := argTypes[d.Type]
	if !ok {
		return nil
	}
	arg := newArg()
	if err := d.Decode(arg); err != nil {
		return err
	}

	var missing bool
	switch a := arg.(type) {
	case *topicmap.Object:
		missing = a.ID == 0
	case *ObjectRef:
		missing = a.ID == 0
	case *topicmap.TypeDef:
		missing = a.URI == ""
	case *MapTopic:
		missing = a.TopicmapID == 0 || a.ViewTopic.ID == 0
	case *MapAssoc:
		missing = a.TopicmapID == 0 || a.ViewAssoc.ID == 0
	case *TopicPosition:
		missing = a.TopicmapID == 0 || a.TopicID == 0
	case *Visibility:
		if d.Type == SetAssocVisibility {
			missing = a.TopicmapID == 0 || a.AssocID == 0
		} else {
			missing = a.TopicmapID == 0 || a.TopicID == 0
		}
	}
	if missing {
		return errors.NewInvalidRequestError("%s directive without target", d.Type)
	}
	return nil
}
