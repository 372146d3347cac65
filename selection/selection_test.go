package selection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/topicmap/anim"
	"github.com/teranos/topicmap/detail"
	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/loop"
	"github.com/teranos/topicmap/render"
	"github.com/teranos/topicmap/render/rendertest"
	"github.com/teranos/topicmap/topicmap"
)

type objects struct{}

func (objects) FetchObject(_ context.Context, id topicmap.ID) (topicmap.Object, error) {
	return topicmap.Object{ID: id, Kind: topicmap.KindTopic, TypeURI: "dmx.notes.note"}, nil
}

func (objects) IsWritable(context.Context, topicmap.ID) (bool, error) {
	return true, nil
}

type fixture struct {
	l       *loop.Loop
	r       *rendertest.Renderer
	m       *topicmap.Topicmap
	details *detail.Manager
	c       *Controller
}

func setup(t *testing.T) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()
	l := loop.New(context.Background(), log)
	t.Cleanup(l.Close)

	r := rendertest.New()
	m := topicmap.New(100, "selection")
	for i := 1; i <= 3; i++ {
		vt := m.AddTopic(topicmap.ViewTopic{ID: topicmap.ID(i), Pos: topicmap.Point{X: float64(i * 50)}, HasPos: true, Visible: true})
		require.NoError(t, r.AddNode(render.Node{ID: vt.ID, Pos: vt.Pos}))
	}
	sched := anim.NewScheduler(l, r, anim.DefaultConfig(), log)
	details := detail.NewManager(l, r, objects{}, topicmap.NewTypeCache(), sched, m, 10*time.Millisecond, log)
	return &fixture{l: l, r: r, m: m, details: details, c: New(l, r, details, sched, log)}
}

func (f *fixture) do(t *testing.T, fn func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.l.Do(ctx, func() error { fn(); return nil }))
	require.NoError(t, f.l.Quiesce(ctx))
}

func (f *fixture) selectNow(t *testing.T, id topicmap.ID) {
	t.Helper()
	f.do(t, func() {
		f.c.Select(topicmap.KindTopic, id, loop.Resolved(f.l, struct{}{}), true).
			Then(func(_ struct{}, err error) { assert.NoError(t, err) })
	})
}

func TestSelectWaitsForData(t *testing.T) {
	f := setup(t)
	var data *loop.Future[struct{}]
	f.do(t, func() {
		data = loop.NewFuture[struct{}](f.l)
		f.c.Select(topicmap.KindTopic, 1, data, true)
	})

	assert.True(t, f.r.IsSelected(render.ElementRef(1)), "highlight precedes the detail")
	assert.False(t, f.details.IsOnscreen(1))
	assert.Equal(t, AwaitingData, f.c.Phase())

	f.do(t, func() { data.Resolve(struct{}{}, nil) })
	assert.True(t, f.details.IsOnscreen(1))
	assert.Equal(t, Showing, f.c.Phase())
	assert.Equal(t, 1, f.r.Count(render.OpAutoPan, render.ElementRef(1)))
	assert.Less(t, f.r.Index(render.OpResize, render.ElementRef(1)), f.r.Index(render.OpAutoPan, render.ElementRef(1)))
}

func TestSelectReplacesUnpinnedSelection(t *testing.T) {
	f := setup(t)
	f.selectNow(t, 1)
	require.True(t, f.details.IsOnscreen(1))
	f.r.ResetCalls()

	f.selectNow(t, 2)

	assert.False(t, f.details.IsOnscreen(1))
	assert.True(t, f.details.IsOnscreen(2))
	assert.Equal(t, 1, f.r.Count(render.OpSelect, render.ElementRef(2)))
	assert.Equal(t, 1, f.r.Count(render.OpUnselect, render.ElementRef(1)))

	sel := f.r.Index(render.OpSelect, render.ElementRef(2))
	unsel := f.r.Index(render.OpUnselect, render.ElementRef(1))
	collapse := f.r.Index(render.OpSetExpanded, render.ElementRef(1))
	assert.Less(t, sel, unsel)
	assert.Less(t, unsel, collapse)

	cur, ok := f.c.Current()
	require.True(t, ok)
	assert.Equal(t, Selection{Kind: topicmap.KindTopic, ID: 2}, cur)
}

func TestSelectKeepsPinnedDetail(t *testing.T) {
	f := setup(t)
	f.selectNow(t, 1)
	require.NoError(t, f.m.SetPinned(1, true))

	f.selectNow(t, 2)

	assert.True(t, f.details.IsOnscreen(1))
	assert.True(t, f.details.IsOnscreen(2))
	assert.False(t, f.r.IsSelected(render.ElementRef(1)))
}

func TestSupersededSelectionShowsNothing(t *testing.T) {
	f := setup(t)
	var slow *loop.Future[struct{}]
	f.do(t, func() {
		slow = loop.NewFuture[struct{}](f.l)
		f.c.Select(topicmap.KindTopic, 1, slow, true)
	})
	f.selectNow(t, 2)
	f.do(t, func() { slow.Resolve(struct{}{}, nil) })

	assert.False(t, f.details.IsOnscreen(1))
	assert.True(t, f.details.IsOnscreen(2))
	assert.Equal(t, Showing, f.c.Phase())
}

func TestSelectSameIDIsNoop(t *testing.T) {
	f := setup(t)
	f.selectNow(t, 1)
	epoch := f.c.Epoch()
	f.selectNow(t, 1)
	assert.Equal(t, 1, f.r.Count(render.OpSelect, render.ElementRef(1)))
	assert.Equal(t, epoch, f.c.Epoch())
}

func TestSelectWithoutDetails(t *testing.T) {
	f := setup(t)
	f.do(t, func() {
		f.c.Select(topicmap.KindTopic, 3, nil, false)
	})
	assert.False(t, f.details.IsOnscreen(3))
	assert.Equal(t, 1, f.r.Count(render.OpAutoPan, render.ElementRef(3)))
	assert.Equal(t, Showing, f.c.Phase())
}

func TestSelectUnknownElement(t *testing.T) {
	f := setup(t)
	f.do(t, func() {
		f.c.Select(topicmap.KindTopic, 404, nil, true).Then(func(_ struct{}, err error) {
			assert.True(t, errors.IsElementNotFound(err))
		})
	})
	_, ok := f.c.Current()
	assert.False(t, ok)
}

func TestUnselect(t *testing.T) {
	f := setup(t)
	f.selectNow(t, 1)

	f.do(t, func() {
		_, err := f.c.Unselect()
		require.NoError(t, err)
	})
	assert.False(t, f.details.IsOnscreen(1))
	assert.False(t, f.r.IsSelected(render.ElementRef(1)))
	assert.Equal(t, Idle, f.c.Phase())

	f.do(t, func() {
		_, err := f.c.Unselect()
		assert.True(t, errors.IsInvariant(err))
	})
}

func TestUnselectPinned(t *testing.T) {
	f := setup(t)
	f.selectNow(t, 1)
	require.NoError(t, f.m.SetPinned(1, true))
	relayouts := f.r.CountOp(render.OpRelayout)

	f.do(t, func() {
		_, err := f.c.Unselect()
		require.NoError(t, err)
	})
	assert.True(t, f.details.IsOnscreen(1))
	assert.False(t, f.r.IsSelected(render.ElementRef(1)))
	assert.Equal(t, relayouts, f.r.CountOp(render.OpRelayout), "no animation when the detail stays")
}

func TestSelectionDetail(t *testing.T) {
	f := setup(t)
	f.do(t, func() {
		_, _, err := f.c.SelectionDetailID()
		assert.True(t, errors.IsInvariant(err))
		_, err = f.c.RemoveSelectionDetail()
		assert.True(t, errors.IsInvariant(err))
	})

	f.selectNow(t, 2)
	f.do(t, func() {
		id, onscreen, err := f.c.SelectionDetailID()
		require.NoError(t, err)
		assert.Equal(t, topicmap.ID(2), id)
		assert.True(t, onscreen)

		_, err = f.c.RemoveSelectionDetail()
		require.NoError(t, err)
	})
	assert.False(t, f.details.IsOnscreen(2))
	assert.True(t, f.c.IsSelected(2))
}

func TestMultiSelectionRendering(t *testing.T) {
	f := setup(t)
	f.do(t, func() {
		require.NoError(t, f.c.RenderAsSelected(1))
		require.NoError(t, f.c.RenderAsSelected(3))
		assert.Equal(t, []topicmap.ID{1, 3}, f.c.MultiSelection())
		assert.True(t, errors.IsInvariant(f.c.RenderAsUnselected(1)))
	})
	assert.True(t, f.r.IsSelected(render.ElementRef(3)))
	assert.Equal(t, 0, f.details.Onscreen())

	f.selectNow(t, 2)
	f.do(t, func() {
		assert.True(t, errors.IsInvariant(f.c.RenderAsSelected(3)))
		require.NoError(t, f.c.RenderAsUnselected(3))
	})
	assert.False(t, f.r.IsSelected(render.ElementRef(3)))
}

func TestForget(t *testing.T) {
	f := setup(t)
	f.selectNow(t, 1)
	f.do(t, func() {
		assert.False(t, f.c.Forget(2))
		assert.True(t, f.c.Forget(1))
	})
	assert.Equal(t, Idle, f.c.Phase())
	assert.False(t, f.c.IsSelected(1))
}
