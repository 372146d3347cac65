package cascade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/topicmap"
)

type recorder struct {
	shown   []topicmap.ID
	hidden  []topicmap.PlayerRef
	deleted []topicmap.PlayerRef
	failOn  map[topicmap.ID]error
}

func (r *recorder) Shown(va *topicmap.ViewAssoc) error {
	r.shown = append(r.shown, va.ID)
	return r.failOn[va.ID]
}

func (r *recorder) Hidden(ref topicmap.PlayerRef) error {
	r.hidden = append(r.hidden, ref)
	return r.failOn[ref.ID]
}

func (r *recorder) Deleted(ref topicmap.PlayerRef, wasVisible bool) error {
	if wasVisible {
		r.deleted = append(r.deleted, ref)
	}
	return r.failOn[ref.ID]
}

func topic(id topicmap.ID) topicmap.PlayerRef {
	return topicmap.PlayerRef{ID: id, Kind: topicmap.KindTopic}
}

func assoc(id topicmap.ID) topicmap.PlayerRef {
	return topicmap.PlayerRef{ID: id, Kind: topicmap.KindAssoc}
}

// chainMap builds
//
//	1 --5-- 2 --6-- 3
//	    |
//	    7 (assoc 5 <-> topic 3)
//	    |
//	    8 (assoc 7 <-> topic 1)
func chainMap() *topicmap.Topicmap {
	m := topicmap.New(1, "chain")
	for _, id := range []topicmap.ID{1, 2, 3} {
		m.AddTopic(topicmap.ViewTopic{ID: id, Visible: true})
	}
	m.AddAssoc(topicmap.ViewAssoc{ID: 5, Player1: topic(1), Player2: topic(2), Visible: true})
	m.AddAssoc(topicmap.ViewAssoc{ID: 6, Player1: topic(2), Player2: topic(3), Visible: true})
	m.AddAssoc(topicmap.ViewAssoc{ID: 7, Player1: assoc(5), Player2: topic(3), Visible: true})
	m.AddAssoc(topicmap.ViewAssoc{ID: 8, Player1: assoc(7), Player2: topic(1), Visible: true})
	return m
}

func newEngine(t *testing.T, m *topicmap.Topicmap) (*Engine, *recorder) {
	rec := &recorder{failOn: map[topicmap.ID]error{}}
	return New(m, rec, zaptest.NewLogger(t).Sugar()), rec
}

func TestHideTopicCascades(t *testing.T) {
	m := chainMap()
	e, rec := newEngine(t, m)

	require.NoError(t, e.HideTopic(1))

	assert.False(t, m.TopicIfExists(1).Visible)
	for _, id := range []topicmap.ID{5, 7, 8} {
		assert.False(t, m.AssocIfExists(id).Visible, "assoc %d should be hidden", id)
		assert.True(t, m.HasAssoc(id), "hidden assoc %d keeps its view entry", id)
	}
	assert.True(t, m.AssocIfExists(6).Visible, "assoc 6 does not depend on topic 1")
	assert.Equal(t, []topicmap.PlayerRef{assoc(5), assoc(8), assoc(7), topic(1)}, rec.hidden)

	rec.hidden = nil
	require.NoError(t, e.HideTopic(1))
	assert.Empty(t, rec.hidden, "re-hiding is a no-op")
}

func TestHideAssocIsIdempotent(t *testing.T) {
	m := chainMap()
	e, rec := newEngine(t, m)

	require.NoError(t, e.HideAssoc(5))
	require.NoError(t, e.HideAssoc(5))
	require.NoError(t, e.HideAssoc(404))

	assert.Equal(t, []topicmap.PlayerRef{assoc(7), assoc(8), assoc(5)}, rec.hidden)
}

func TestBatchHideOrderIndependent(t *testing.T) {
	type step struct {
		kind topicmap.Kind
		id   topicmap.ID
	}
	orders := map[string][]step{
		"topics first": {{topicmap.KindTopic, 1}, {topicmap.KindTopic, 2}, {topicmap.KindAssoc, 5}},
		"assoc first":  {{topicmap.KindAssoc, 5}, {topicmap.KindTopic, 1}, {topicmap.KindTopic, 2}},
		"interleaved":  {{topicmap.KindTopic, 2}, {topicmap.KindAssoc, 5}, {topicmap.KindTopic, 1}},
	}

	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			m := chainMap()
			e, rec := newEngine(t, m)

			for _, s := range order {
				var err error
				if s.kind == topicmap.KindTopic {
					err = e.HideTopic(s.id)
				} else {
					err = e.HideAssoc(s.id)
				}
				require.NoError(t, err)
			}

			assert.False(t, m.AssocIfExists(5).Visible)
			count := 0
			for _, ref := range rec.hidden {
				if ref == assoc(5) {
					count++
				}
			}
			assert.Equal(t, 1, count, "assoc 5 hidden exactly once")
		})
	}
}

func TestDeleteTopicRemovesEntries(t *testing.T) {
	m := chainMap()
	e, rec := newEngine(t, m)

	require.NoError(t, e.DeleteTopic(2))

	assert.False(t, m.HasTopic(2))
	for _, id := range []topicmap.ID{5, 6, 7, 8} {
		assert.False(t, m.HasAssoc(id), "assoc %d should be deleted", id)
	}
	assert.True(t, m.HasTopic(1))
	assert.Len(t, rec.deleted, 5)
	assert.Equal(t, topic(2), rec.deleted[4])

	rec.deleted = nil
	require.NoError(t, e.DeleteTopic(2))
	require.NoError(t, e.DeleteAssoc(5))
	assert.Empty(t, rec.deleted, "deleting twice is a no-op")
}

func TestDeleteHiddenAssocReportsInvisible(t *testing.T) {
	m := chainMap()
	m.AssocIfExists(6).Visible = false
	e, rec := newEngine(t, m)

	require.NoError(t, e.DeleteAssoc(6))
	assert.Empty(t, rec.deleted)
	assert.False(t, m.HasAssoc(6))
}

func TestAutoRevealAssocs(t *testing.T) {
	m := chainMap()
	e, rec := newEngine(t, m)
	require.NoError(t, e.HideTopic(1))
	rec.shown = nil

	require.NoError(t, m.SetTopicVisibility(1, true))
	revealed, err := e.AutoRevealAssocs(1)
	require.NoError(t, err)

	assert.ElementsMatch(t, []topicmap.ID{5, 7, 8}, revealed)
	assert.Equal(t, revealed, rec.shown)
	for _, id := range revealed {
		assert.True(t, m.AssocIfExists(id).Visible)
	}
}

func TestAutoRevealRequiresOtherPlayer(t *testing.T) {
	m := chainMap()
	e, _ := newEngine(t, m)
	require.NoError(t, e.HideTopic(1))
	require.NoError(t, e.HideTopic(2))

	require.NoError(t, m.SetTopicVisibility(1, true))
	revealed, err := e.AutoRevealAssocs(1)
	require.NoError(t, err)
	assert.Empty(t, revealed, "topic 2 is hidden so assoc 5 and its dependents stay hidden")
}

func TestMutuallyReferencingAssocsTerminate(t *testing.T) {
	m := topicmap.New(1, "loop")
	m.AddTopic(topicmap.ViewTopic{ID: 1, Visible: true})
	m.AddAssoc(topicmap.ViewAssoc{ID: 10, Player1: topic(1), Player2: assoc(11), Visible: true})
	m.AddAssoc(topicmap.ViewAssoc{ID: 11, Player1: topic(1), Player2: assoc(10), Visible: true})
	e, rec := newEngine(t, m)

	require.NoError(t, e.HideTopic(1))
	assert.Len(t, rec.hidden, 3)

	require.NoError(t, e.DeleteTopic(1))
	assert.Empty(t, m.Assocs())
}

func TestEffectErrorsAreSurfacedAndCascadeCompletes(t *testing.T) {
	m := chainMap()
	e, rec := newEngine(t, m)
	rec.failOn[5] = errors.Wrap(errors.ErrElementNotFound, "element 5")

	err := e.HideTopic(1)
	require.Error(t, err)
	assert.True(t, errors.IsElementNotFound(err))
	assert.False(t, m.AssocIfExists(8).Visible, "cascade continued past the failing effect")
	assert.False(t, m.TopicIfExists(1).Visible)
}

func TestHideMissingTopicIsNoop(t *testing.T) {
	e, rec := newEngine(t, chainMap())
	require.NoError(t, e.HideTopic(404))
	require.NoError(t, e.DeleteTopic(404))
	assert.Empty(t, rec.hidden)
	assert.Empty(t, rec.deleted)
}

// visibilityRecorder records whether the hidden player was still visible when
// each cascaded association was reported
type visibilityRecorder struct {
	m         *topicmap.Topicmap
	player    topicmap.PlayerRef
	seenAsVis []bool
}

func (p *visibilityRecorder) Shown(*topicmap.ViewAssoc) error { return nil }

func (p *visibilityRecorder) Hidden(ref topicmap.PlayerRef) error {
	if ref != p.player {
		p.seenAsVis = append(p.seenAsVis, p.m.IsVisible(p.player))
	}
	return nil
}

func (p *visibilityRecorder) Deleted(topicmap.PlayerRef, bool) error { return nil }

func TestHiddenPlayerIsInvisibleDuringCascade(t *testing.T) {
	for _, player := range []topicmap.PlayerRef{topic(1), assoc(5)} {
		t.Run(string(player.Kind), func(t *testing.T) {
			m := chainMap()
			p := &visibilityRecorder{m: m, player: player}
			e := New(m, p, zaptest.NewLogger(t).Sugar())

			var err error
			if player.Kind == topicmap.KindTopic {
				err = e.HideTopic(player.ID)
			} else {
				err = e.HideAssoc(player.ID)
			}
			require.NoError(t, err)
			require.NotEmpty(t, p.seenAsVis)
			for _, vis := range p.seenAsVis {
				assert.False(t, vis)
			}
		})
	}
}

func TestHideAssocsWithPlayerLeavesPlayer(t *testing.T) {
	m := chainMap()
	e, _ := newEngine(t, m)

	hidden, err := e.HideAssocsWithPlayer(1)
	require.NoError(t, err)

	assert.Equal(t, []topicmap.ID{5, 8, 7}, hidden)
	assert.True(t, m.TopicIfExists(1).Visible)
	assert.True(t, m.AssocIfExists(6).Visible)

	hidden, err = e.HideAssocsWithPlayer(1)
	require.NoError(t, err)
	assert.Empty(t, hidden)
}

func TestRemoveAssocsWithPlayerLeavesPlayer(t *testing.T) {
	m := chainMap()
	e, rec := newEngine(t, m)

	removed, err := e.RemoveAssocsWithPlayer(3)
	require.NoError(t, err)

	assert.ElementsMatch(t, []topicmap.ID{6, 7, 8}, removed)
	assert.True(t, m.HasTopic(3))
	assert.True(t, m.HasAssoc(5))
	assert.Len(t, rec.deleted, 3)
	assert.NotContains(t, rec.deleted, topic(3))
}
