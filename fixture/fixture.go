// Package fixture loads topicmap fixtures from YAML or TOML files and
// imports them into a store.
//
// A fixture lists type definitions, topics, associations and topicmaps.
// Map entries reference objects by id; positions are model coordinates.
//
//	types:
//	  - {uri: dmx.notes.note, kind: topic, label: Note, icon: "N"}
//	topics:
//	  - {id: 1, type: dmx.notes.note, value: Groceries}
//	topicmaps:
//	  - id: 100
//	    name: Notes
//	    topics:
//	      - {id: 1, pos: {x: 100, y: 50}}
package fixture

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/topicmap"
)

// Format is the encoding of a fixture file
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf derives the format from a file extension
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", errors.NewInvalidRequestError("unsupported fixture extension %q (want .yaml, .yml or .toml)", filepath.Ext(path))
}

// File is a parsed fixture
type File struct {
	Types     []topicmap.TypeDef `yaml:"types" toml:"types"`
	Topics    []Topic            `yaml:"topics" toml:"topics"`
	Assocs    []Assoc            `yaml:"assocs" toml:"assocs"`
	Topicmaps []Topicmap         `yaml:"topicmaps" toml:"topicmaps"`
}

// Topic is a stored topic
type Topic struct {
	ID       topicmap.ID       `yaml:"id" toml:"id"`
	URI      string            `yaml:"uri,omitempty" toml:"uri,omitempty"`
	Type     string            `yaml:"type" toml:"type"`
	Value    string            `yaml:"value" toml:"value"`
	Fields   map[string]string `yaml:"fields,omitempty" toml:"fields,omitempty"`
	ReadOnly bool              `yaml:"read_only,omitempty" toml:"read_only,omitempty"`
}

// Assoc is a stored association
type Assoc struct {
	ID       topicmap.ID        `yaml:"id" toml:"id"`
	Type     string             `yaml:"type" toml:"type"`
	Value    string             `yaml:"value,omitempty" toml:"value,omitempty"`
	Player1  topicmap.PlayerRef `yaml:"player1" toml:"player1"`
	Player2  topicmap.PlayerRef `yaml:"player2" toml:"player2"`
	Fields   map[string]string  `yaml:"fields,omitempty" toml:"fields,omitempty"`
	ReadOnly bool               `yaml:"read_only,omitempty" toml:"read_only,omitempty"`
}

// Topicmap is a stored topicmap with its entries
type Topicmap struct {
	ID       topicmap.ID     `yaml:"id" toml:"id"`
	Name     string          `yaml:"name" toml:"name"`
	ReadOnly bool            `yaml:"read_only,omitempty" toml:"read_only,omitempty"`
	Pan      *topicmap.Point `yaml:"pan,omitempty" toml:"pan,omitempty"`
	Zoom     float64         `yaml:"zoom,omitempty" toml:"zoom,omitempty"`
	Topics   []Entry         `yaml:"topics" toml:"topics"`
	Assocs   []Entry         `yaml:"assocs" toml:"assocs"`
}

// Entry places an object on a topicmap. Entries are visible unless hidden.
type Entry struct {
	ID     topicmap.ID     `yaml:"id" toml:"id"`
	Pos    *topicmap.Point `yaml:"pos,omitempty" toml:"pos,omitempty"`
	Hidden bool            `yaml:"hidden,omitempty" toml:"hidden,omitempty"`
	Pinned bool            `yaml:"pinned,omitempty" toml:"pinned,omitempty"`
}

// Load reads and validates the fixture at path
func Load(path string) (*File, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read fixture %s", path)
	}
	f, err := Parse(data, format)
	if err != nil {
		return nil, errors.Wrapf(err, "fixture %s", path)
	}
	return f, nil
}

// Parse decodes and validates a fixture. Unknown keys are rejected.
func Parse(data []byte, format Format) (*File, error) {
	var f File
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "invalid YAML fixture"), errors.ErrInvalidRequest)
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "invalid TOML fixture"), errors.ErrInvalidRequest)
		}
	default:
		return nil, errors.NewInvalidRequestError("unknown fixture format %q", format)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks ids are unique and every reference resolves
func (f *File) Validate() error {
	types := make(map[string]topicmap.Kind, len(f.Types))
	for _, t := range f.Types {
		if t.URI == "" {
			return errors.NewInvalidRequestError("type without uri")
		}
		if !t.Kind.Valid() {
			return errors.NewInvalidRequestError("type %s has invalid kind %q", t.URI, t.Kind)
		}
		types[t.URI] = t.Kind
	}

	kinds := make(map[topicmap.ID]topicmap.Kind, len(f.Topics)+len(f.Assocs))
	claim := func(id topicmap.ID, kind topicmap.Kind) error {
		if id <= 0 {
			return errors.NewInvalidRequestError("%s id must be positive, got %d", kind, id)
		}
		if prev, dup := kinds[id]; dup {
			return errors.NewInvalidRequestError("id %d used by a %s and a %s", id, prev, kind)
		}
		kinds[id] = kind
		return nil
	}
	for _, t := range f.Topics {
		if err := claim(t.ID, topicmap.KindTopic); err != nil {
			return err
		}
		if k, ok := types[t.Type]; ok && k != topicmap.KindTopic {
			return errors.NewInvalidRequestError("topic %d has association type %s", t.ID, t.Type)
		}
	}
	for _, a := range f.Assocs {
		if err := claim(a.ID, topicmap.KindAssoc); err != nil {
			return err
		}
	}
	for _, a := range f.Assocs {
		for _, p := range []topicmap.PlayerRef{a.Player1, a.Player2} {
			kind, ok := kinds[p.ID]
			if !ok {
				return errors.NewInvalidRequestError("assoc %d references unknown player %d", a.ID, p.ID)
			}
			if p.Kind != "" && p.Kind != kind {
				return errors.NewInvalidRequestError("assoc %d names player %d a %s, it is a %s", a.ID, p.ID, p.Kind, kind)
			}
		}
	}

	maps := make(map[topicmap.ID]bool, len(f.Topicmaps))
	for _, m := range f.Topicmaps {
		if m.ID <= 0 {
			return errors.NewInvalidRequestError("topicmap id must be positive, got %d", m.ID)
		}
		if maps[m.ID] {
			return errors.NewInvalidRequestError("duplicate topicmap %d", m.ID)
		}
		maps[m.ID] = true
		if m.Zoom < 0 {
			return errors.NewInvalidRequestError("topicmap %d has negative zoom", m.ID)
		}
		for _, e := range m.Topics {
			if kinds[e.ID] != topicmap.KindTopic {
				return errors.NewInvalidRequestError("topicmap %d lists %d which is not a topic", m.ID, e.ID)
			}
		}
		for _, e := range m.Assocs {
			if kinds[e.ID] != topicmap.KindAssoc {
				return errors.NewInvalidRequestError("topicmap %d lists %d which is not an association", m.ID, e.ID)
			}
		}
	}
	return nil
}

// playerKinds resolves the kind of every player reference
func (f *File) playerKinds() map[topicmap.ID]topicmap.Kind {
	kinds := make(map[topicmap.ID]topicmap.Kind, len(f.Topics)+len(f.Assocs))
	for _, t := range f.Topics {
		kinds[t.ID] = topicmap.KindTopic
	}
	for _, a := range f.Assocs {
		kinds[a.ID] = topicmap.KindAssoc
	}
	return kinds
}
