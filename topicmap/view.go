package topicmap

// ViewTopic is a topic as it appears in one topicmap
type ViewTopic struct {
	ID      ID
	URI     string
	TypeURI string
	Value   string
	Pos     Point
	HasPos  bool
	Visible bool
	Pinned  bool
}

// Topic returns the domain part of the view entry
func (vt *ViewTopic) Topic() Topic {
	return Topic{ID: vt.ID, URI: vt.URI, TypeURI: vt.TypeURI, Value: vt.Value}
}

// TopicDisplay is the derived, render-facing appearance of a topic
type TopicDisplay struct {
	Label           string `json:"label"`
	Icon            string `json:"icon"`
	IconColor       string `json:"icon_color"`
	BackgroundColor string `json:"background_color"`
}

// Display derives label, icon and colors from the topic's type
func (vt *ViewTopic) Display(types *TypeCache) TopicDisplay {
	def := types.Lookup(KindTopic, vt.TypeURI)
	return TopicDisplay{
		Label:           vt.Value,
		Icon:            def.Icon,
		IconColor:       def.Color,
		BackgroundColor: def.BackgroundColor,
	}
}

// ViewAssoc is an association as it appears in one topicmap
type ViewAssoc struct {
	ID      ID
	TypeURI string
	Value   string
	Player1 PlayerRef
	Player2 PlayerRef
	Visible bool
	Pinned  bool
}

// Assoc returns the domain part of the view entry
func (va *ViewAssoc) Assoc() Assoc {
	return Assoc{ID: va.ID, TypeURI: va.TypeURI, Value: va.Value, Player1: va.Player1, Player2: va.Player2}
}

// HasPlayer reports whether id is one of the association's players
func (va *ViewAssoc) HasPlayer(id ID) bool {
	return va.Player1.ID == id || va.Player2.ID == id
}

// AssocDisplay is the derived, render-facing appearance of an association
type AssocDisplay struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// Display derives label and color from the association's type
func (va *ViewAssoc) Display(types *TypeCache) AssocDisplay {
	def := types.Lookup(KindAssoc, va.TypeURI)
	return AssocDisplay{Label: va.Value, Color: def.Color}
}
