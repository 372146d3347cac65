package topicmap

// RevealType tells the caller which persistence call a reveal requires
type RevealType string

const (
	// RevealAdd means a new view entry was created; persist the whole entry
	RevealAdd RevealType = "add"
	// RevealShow means a hidden entry became visible; persist the visibility flag
	RevealShow RevealType = "show"
	// RevealNone means the entry was already visible; nothing to do
	RevealNone RevealType = "none"
)

// Changed reports whether the reveal made something newly visible
func (t RevealType) Changed() bool {
	return t == RevealAdd || t == RevealShow
}

// TopicReveal is the outcome of RevealTopic. Topic is nil for RevealNone.
type TopicReveal struct {
	Type  RevealType
	Topic *ViewTopic
}

// AssocReveal is the outcome of RevealAssoc. Assoc is nil for RevealNone.
type AssocReveal struct {
	Type  RevealType
	Assoc *ViewAssoc
}

// RevealTopic makes t visible in this map. pos is only used when a new entry
// is created; a nil pos leaves the entry unpositioned.
func (m *Topicmap) RevealTopic(t Topic, pos *Point) TopicReveal {
	vt, ok := m.topics[t.ID]
	if !ok {
		entry := &ViewTopic{
			ID:      t.ID,
			URI:     t.URI,
			TypeURI: t.TypeURI,
			Value:   t.Value,
			Visible: true,
		}
		if pos != nil {
			entry.Pos = *pos
			entry.HasPos = true
		}
		m.topics[t.ID] = entry
		return TopicReveal{Type: RevealAdd, Topic: entry}
	}
	if !vt.Visible {
		vt.Visible = true
		return TopicReveal{Type: RevealShow, Topic: vt}
	}
	return TopicReveal{Type: RevealNone}
}

// RevealAssoc makes a visible in this map
func (m *Topicmap) RevealAssoc(a Assoc) AssocReveal {
	va, ok := m.assocs[a.ID]
	if !ok {
		entry := &ViewAssoc{
			ID:      a.ID,
			TypeURI: a.TypeURI,
			Value:   a.Value,
			Player1: a.Player1,
			Player2: a.Player2,
			Visible: true,
		}
		m.assocs[a.ID] = entry
		return AssocReveal{Type: RevealAdd, Assoc: entry}
	}
	if !va.Visible {
		va.Visible = true
		return AssocReveal{Type: RevealShow, Assoc: va}
	}
	return AssocReveal{Type: RevealNone}
}
