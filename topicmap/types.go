package topicmap

import (
	"strconv"
)

// ID identifies a topic or association. IDs are unique across both kinds,
// so detail records and render elements are keyed by ID alone.
type ID int64

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Kind distinguishes topics from associations
type Kind string

const (
	KindTopic Kind = "topic"
	KindAssoc Kind = "assoc"
)

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	return k == KindTopic || k == KindAssoc
}

// Point is a 2D position in model coordinates
type Point struct {
	X float64 `json:"x" yaml:"x" toml:"x"`
	Y float64 `json:"y" yaml:"y" toml:"y"`
}

// Add returns p translated by q
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Midpoint returns the point halfway between p and q
func Midpoint(p, q Point) Point {
	return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2}
}

// Viewport is the pan/zoom state of a rendered topicmap
type Viewport struct {
	Pan  Point   `json:"pan"`
	Zoom float64 `json:"zoom"`
}

// ToRendered converts a model position to screen coordinates
func (v Viewport) ToRendered(p Point) Point {
	zoom := v.Zoom
	if zoom == 0 {
		zoom = 1
	}
	return Point{X: p.X*zoom + v.Pan.X, Y: p.Y*zoom + v.Pan.Y}
}

// PlayerRef points at one end of an association
type PlayerRef struct {
	ID   ID     `json:"id" yaml:"id" toml:"id"`
	Kind Kind   `json:"kind" yaml:"kind" toml:"kind"`
	Role string `json:"role,omitempty" yaml:"role,omitempty" toml:"role,omitempty"`
}

// Topic is the domain object behind a ViewTopic
type Topic struct {
	ID      ID     `json:"id"`
	URI     string `json:"uri,omitempty"`
	TypeURI string `json:"type_uri"`
	Value   string `json:"value"`
}

// Assoc is the domain object behind a ViewAssoc
type Assoc struct {
	ID      ID        `json:"id"`
	TypeURI string    `json:"type_uri"`
	Value   string    `json:"value"`
	Player1 PlayerRef `json:"player1"`
	Player2 PlayerRef `json:"player2"`
}

// HasPlayer reports whether id is one of the association's players
func (a Assoc) HasPlayer(id ID) bool {
	return a.Player1.ID == id || a.Player2.ID == id
}

// Type URIs of objects that are themselves type definitions
const (
	TopicTypeURI = "dmx.core.topic_type"
	AssocTypeURI = "dmx.core.assoc_type"
)

// Object is the full payload of a topic or association as fetched for a detail
type Object struct {
	ID      ID                `json:"id"`
	Kind    Kind              `json:"kind"`
	URI     string            `json:"uri,omitempty"`
	TypeURI string            `json:"type_uri"`
	Value   string            `json:"value"`
	Player1 *PlayerRef        `json:"player1,omitempty"`
	Player2 *PlayerRef        `json:"player2,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`

	// Type is set on the as-type copy of a type object
	Type *TypeDef `json:"type,omitempty"`
}

// IsType reports whether the object is a topic or association type
func (o Object) IsType() bool {
	return o.TypeURI == TopicTypeURI || o.TypeURI == AssocTypeURI
}

// AsType returns a logical copy of a type object carrying its type definition.
// Non-type objects are returned as a plain copy.
func (o Object) AsType(types *TypeCache) Object {
	c := o.Clone()
	if !o.IsType() {
		return c
	}
	kind := KindTopic
	if o.TypeURI == AssocTypeURI {
		kind = KindAssoc
	}
	def := types.Lookup(kind, o.URI)
	c.Type = &def
	return c
}

// Clone returns a deep copy of o
func (o Object) Clone() Object {
	c := o
	if o.Player1 != nil {
		p := *o.Player1
		c.Player1 = &p
	}
	if o.Player2 != nil {
		p := *o.Player2
		c.Player2 = &p
	}
	if o.Fields != nil {
		c.Fields = make(map[string]string, len(o.Fields))
		for k, v := range o.Fields {
			c.Fields[k] = v
		}
	}
	if o.Type != nil {
		t := *o.Type
		c.Type = &t
	}
	return c
}

// TopicCoord is a topic position as reported by a multi-topic drag
type TopicCoord struct {
	TopicID ID      `json:"topic_id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// Pos returns the coordinate as a Point
func (c TopicCoord) Pos() Point {
	return Point{X: c.X, Y: c.Y}
}

// IDLists names topics and associations addressed by one batch operation
type IDLists struct {
	TopicIDs []ID `json:"topic_ids"`
	AssocIDs []ID `json:"assoc_ids"`
}

// Empty reports whether the lists name nothing
func (l IDLists) Empty() bool {
	return len(l.TopicIDs) == 0 && len(l.AssocIDs) == 0
}
