package topicmap

import (
	"sync"
)

// Defaults applied when a type has no display metadata
const (
	DefaultIcon            = ""
	DefaultIconColor       = "hsl(210, 50%, 53%)"
	DefaultBackgroundColor = "hsl(210, 0%, 100%)"
	DefaultAssocColor      = "hsl(0, 0%, 80%)"
)

// TypeDef holds the display metadata of a topic or association type
type TypeDef struct {
	URI             string `json:"uri" yaml:"uri" toml:"uri"`
	Kind            Kind   `json:"kind" yaml:"kind" toml:"kind"`
	Label           string `json:"label" yaml:"label" toml:"label"`
	Icon            string `json:"icon,omitempty" yaml:"icon,omitempty" toml:"icon,omitempty"`
	Color           string `json:"color,omitempty" yaml:"color,omitempty" toml:"color,omitempty"`
	BackgroundColor string `json:"background_color,omitempty" yaml:"background_color,omitempty" toml:"background_color,omitempty"`
}

// TypeCache is the shared, concurrency-safe registry of type definitions.
// Display attributes of view objects are derived from it, never stored.
type TypeCache struct {
	mu    sync.RWMutex
	types map[Kind]map[string]TypeDef
}

// NewTypeCache creates a TypeCache seeded with defs
func NewTypeCache(defs ...TypeDef) *TypeCache {
	tc := &TypeCache{types: map[Kind]map[string]TypeDef{
		KindTopic: {},
		KindAssoc: {},
	}}
	for _, d := range defs {
		tc.Put(d)
	}
	return tc
}

// Put inserts or replaces a type definition
func (tc *TypeCache) Put(def TypeDef) {
	if !def.Kind.Valid() {
		def.Kind = KindTopic
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.types[def.Kind][def.URI] = def
}

// Lookup returns the type definition with defaults filled in.
// Unknown types yield a definition built from defaults only.
func (tc *TypeCache) Lookup(kind Kind, uri string) TypeDef {
	var def TypeDef
	var ok bool
	if tc != nil {
		tc.mu.RLock()
		def, ok = tc.types[kind][uri]
		tc.mu.RUnlock()
	}
	if !ok {
		def = TypeDef{URI: uri, Kind: kind, Label: uri}
	}

	switch kind {
	case KindAssoc:
		if def.Color == "" {
			def.Color = DefaultAssocColor
		}
	default:
		if def.Icon == "" {
			def.Icon = DefaultIcon
		}
		if def.Color == "" {
			def.Color = DefaultIconColor
		}
		if def.BackgroundColor == "" {
			def.BackgroundColor = DefaultBackgroundColor
		}
	}
	return def
}

// Has reports whether a definition is registered
func (tc *TypeCache) Has(kind Kind, uri string) bool {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	_, ok := tc.types[kind][uri]
	return ok
}
