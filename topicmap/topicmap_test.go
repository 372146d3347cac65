package topicmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/topicmap/errors"
)

func topicRef(id ID) PlayerRef { return PlayerRef{ID: id, Kind: KindTopic} }

func newTestMap() *Topicmap {
	m := New(100, "test")
	m.AddTopic(ViewTopic{ID: 1, TypeURI: "note", Value: "one", Pos: Point{X: 0, Y: 0}, HasPos: true, Visible: true})
	m.AddTopic(ViewTopic{ID: 2, TypeURI: "note", Value: "two", Pos: Point{X: 100, Y: 50}, HasPos: true, Visible: true})
	m.AddTopic(ViewTopic{ID: 3, TypeURI: "person", Value: "three", Visible: false})
	m.AddAssoc(ViewAssoc{ID: 5, TypeURI: "link", Player1: topicRef(1), Player2: topicRef(2), Visible: true})
	m.AddAssoc(ViewAssoc{ID: 6, TypeURI: "link", Player1: topicRef(2), Player2: topicRef(3), Visible: false})
	m.AddAssoc(ViewAssoc{ID: 7, TypeURI: "meta", Player1: PlayerRef{ID: 5, Kind: KindAssoc}, Player2: topicRef(1), Visible: true})
	return m
}

func TestRevealTopic(t *testing.T) {
	m := New(1, "m")
	topic := Topic{ID: 10, TypeURI: "note", Value: "hello"}

	first := m.RevealTopic(topic, &Point{X: 3, Y: 4})
	assert.Equal(t, RevealAdd, first.Type)
	require.NotNil(t, first.Topic)
	assert.True(t, first.Topic.Visible)
	assert.True(t, first.Topic.HasPos)
	assert.Equal(t, Point{X: 3, Y: 4}, first.Topic.Pos)

	second := m.RevealTopic(topic, nil)
	assert.Equal(t, RevealNone, second.Type)
	assert.Nil(t, second.Topic)

	require.NoError(t, m.SetTopicVisibility(10, false))
	third := m.RevealTopic(topic, &Point{X: 99, Y: 99})
	assert.Equal(t, RevealShow, third.Type)
	assert.Equal(t, Point{X: 3, Y: 4}, third.Topic.Pos, "show keeps the stored position")
}

func TestRevealTopic_NoPosition(t *testing.T) {
	m := New(1, "m")
	r := m.RevealTopic(Topic{ID: 1}, nil)
	assert.False(t, r.Topic.HasPos)
}

func TestRevealAssoc(t *testing.T) {
	m := newTestMap()

	r := m.RevealAssoc(Assoc{ID: 6})
	assert.Equal(t, RevealShow, r.Type)
	assert.Equal(t, RevealNone, m.RevealAssoc(Assoc{ID: 6}).Type)

	added := m.RevealAssoc(Assoc{ID: 8, TypeURI: "link", Player1: topicRef(1), Player2: topicRef(3)})
	assert.Equal(t, RevealAdd, added.Type)
	assert.False(t, added.Assoc.Pinned)
	assert.True(t, RevealAdd.Changed())
	assert.False(t, RevealNone.Changed())
}

func TestSettersDoNotCascade(t *testing.T) {
	m := newTestMap()

	require.NoError(t, m.SetTopicVisibility(1, false))
	assert.True(t, m.AssocIfExists(5).Visible, "hiding a topic alone must not hide its assocs")
	assert.True(t, m.AssocIfExists(7).Visible)

	require.NoError(t, m.SetAssocVisibility(5, false))
	assert.True(t, m.AssocIfExists(7).Visible)
}

func TestLookupMisses(t *testing.T) {
	m := newTestMap()

	_, err := m.Topic(42)
	assert.True(t, errors.IsNotFoundError(err))
	assert.Contains(t, err.Error(), "42")

	_, err = m.Assoc(42)
	assert.True(t, errors.IsNotFoundError(err))

	assert.True(t, errors.IsNotFoundError(m.SetPosition(42, Point{})))
	assert.True(t, errors.IsNotFoundError(m.SetPinned(42, true)))
	assert.Nil(t, m.TopicIfExists(42))
	assert.False(t, m.RemoveTopic(42))
}

func TestPinned(t *testing.T) {
	m := newTestMap()

	require.NoError(t, m.SetPinned(1, true))
	require.NoError(t, m.SetPinned(5, true))
	assert.True(t, m.IsPinned(1))
	assert.True(t, m.IsPinned(5))
	assert.False(t, m.IsPinned(2))
	assert.False(t, m.IsPinned(999))
}

func TestAssocsWithPlayer(t *testing.T) {
	m := newTestMap()

	ids := func(list []*ViewAssoc) []ID {
		var out []ID
		for _, va := range list {
			out = append(out, va.ID)
		}
		return out
	}

	assert.Equal(t, []ID{5, 7}, ids(m.AssocsWithPlayer(1)))
	assert.Equal(t, []ID{5, 6}, ids(m.AssocsWithPlayer(2)))
	assert.Equal(t, []ID{7}, ids(m.AssocsWithPlayer(5)), "assocs can be players")
	assert.Empty(t, m.AssocsWithPlayer(99))
}

func TestOtherPlayer(t *testing.T) {
	m := newTestMap()
	va := m.AssocIfExists(7)

	other, err := m.OtherPlayer(va, 1)
	require.NoError(t, err)
	assert.Equal(t, PlayerRef{ID: 5, Kind: KindAssoc}, other)

	_, err = m.OtherPlayer(va, 2)
	assert.True(t, errors.IsInvariant(err))

	assert.True(t, m.IsVisible(other))
	assert.False(t, m.IsVisible(topicRef(3)))
	assert.False(t, m.IsVisible(topicRef(404)))
}

func TestPosition(t *testing.T) {
	m := newTestMap()

	p, err := m.Position(2)
	require.NoError(t, err)
	assert.Equal(t, Point{X: 100, Y: 50}, p)

	p, err = m.Position(5)
	require.NoError(t, err)
	assert.Equal(t, Point{X: 50, Y: 25}, p, "assoc position is the players' midpoint")

	p, err = m.Position(7)
	require.NoError(t, err)
	assert.Equal(t, Point{X: 25, Y: 12.5}, p, "assoc-on-assoc midpoint recurses")

	m.AddAssoc(ViewAssoc{ID: 9, Player1: PlayerRef{ID: 9, Kind: KindAssoc}, Player2: topicRef(1)})
	_, err = m.Position(9)
	assert.True(t, errors.IsInvariant(err))
}

func TestUpdateTopicAndAssoc(t *testing.T) {
	m := newTestMap()

	vt := m.UpdateTopic(Topic{ID: 1, Value: "renamed"})
	require.NotNil(t, vt)
	assert.Equal(t, "renamed", vt.Value)
	assert.Equal(t, "note", vt.TypeURI, "empty type keeps the old one")
	assert.Nil(t, m.UpdateTopic(Topic{ID: 404}))

	va := m.UpdateAssoc(Assoc{ID: 5, TypeURI: "friend", Value: "x"})
	require.NotNil(t, va)
	assert.Equal(t, "friend", va.TypeURI)
	assert.Nil(t, m.UpdateAssoc(Assoc{ID: 404}))
}

func TestVisibleOfType(t *testing.T) {
	m := newTestMap()
	assert.Len(t, m.VisibleTopicsOfType("note"), 2)
	assert.Empty(t, m.VisibleTopicsOfType("person"), "hidden topics are skipped")
	assert.Len(t, m.VisibleAssocsOfType("link"), 1)
}

func TestViewport(t *testing.T) {
	m := New(1, "m")
	assert.Equal(t, 1.0, m.Viewport().Zoom)

	m.SetViewport(Point{X: 10, Y: 20}, 2)
	vp := m.Viewport()
	assert.Equal(t, Point{X: 30, Y: 60}, vp.ToRendered(Point{X: 10, Y: 20}))
}

func TestKindOf(t *testing.T) {
	m := newTestMap()
	k, ok := m.KindOf(1)
	assert.True(t, ok)
	assert.Equal(t, KindTopic, k)
	k, ok = m.KindOf(7)
	assert.True(t, ok)
	assert.Equal(t, KindAssoc, k)
	_, ok = m.KindOf(404)
	assert.False(t, ok)
}

func TestRemoveEntries(t *testing.T) {
	m := newTestMap()

	assert.True(t, m.HasTopic(2))
	assert.True(t, m.HasAssoc(6))
	assert.False(t, m.HasAssoc(2), "ids of the other kind do not match")

	assert.True(t, m.RemoveAssoc(6))
	assert.False(t, m.HasAssoc(6))
	assert.False(t, m.RemoveAssoc(6))

	assert.True(t, m.RemoveTopic(2))
	assert.False(t, m.HasTopic(2))
	assert.True(t, m.HasAssoc(5), "removing a player leaves its assocs to the caller")
}
