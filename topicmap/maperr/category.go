package maperr

// Category represents the main error category of the synchronization engine
type Category string

const (
	// CategoryInvariant indicates the engine was driven into an impossible state
	CategoryInvariant Category = "invariant"

	// CategoryLookup indicates an id was missing from the model or the renderer
	CategoryLookup Category = "lookup"

	// CategoryPersistence indicates the store rejected or failed a write
	CategoryPersistence Category = "persistence"

	// CategoryRender indicates the render adapter failed
	CategoryRender Category = "render"

	// CategoryDirective indicates a push message could not be applied
	CategoryDirective Category = "directive"

	// CategoryWebSocket indicates client connection errors
	CategoryWebSocket Category = "websocket"

	// CategoryInternal indicates anything else
	CategoryInternal Category = "internal"
)

// String returns the string representation of the category
func (c Category) String() string {
	return string(c)
}

// Invariant subcategories
const (
	SubcategorySelection = "selection"
	SubcategoryDetail    = "detail"
	SubcategoryCascade   = "cascade"
)

// Lookup subcategories
const (
	SubcategoryElement  = "element"
	SubcategoryViewItem = "view_item"
	SubcategoryTopicmap = "topicmap"
)

// Directive subcategories
const (
	SubcategoryDecode  = "decode"
	SubcategoryUnknown = "unknown_type"
)

// WebSocket subcategories
const (
	SubcategoryWSRead      = "read"
	SubcategoryWSWrite     = "write"
	SubcategoryWSUpgrade   = "upgrade"
	SubcategoryWSHandshake = "handshake"
)
