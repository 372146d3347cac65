package wsrender

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/render"
	"github.com/teranos/topicmap/topicmap"
	"github.com/teranos/topicmap/topicmap/maperr"
)

// fakePeer plays the browser side: it records commands and answers requests.
type fakePeer struct {
	mu       sync.Mutex
	commands []Command
	silent   map[string]bool // ops left unanswered
}

func (p *fakePeer) ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, c := range p.commands {
		out = append(out, c.Op)
	}
	return out
}

func (p *fakePeer) serve(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for {
			var cmd Command
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			p.mu.Lock()
			p.commands = append(p.commands, cmd)
			silent := p.silent[cmd.Op]
			p.mu.Unlock()

			if cmd.RequestID == "" || silent {
				continue
			}
			res := Result{Type: MessageResult, RequestID: cmd.RequestID}
			switch cmd.Op {
			case render.OpMeasure:
				if cmd.Ref.ID == 404 {
					res.NotFound = true
				} else {
					res.Size = &render.Size{Width: 300, Height: 120}
				}
			case render.OpAnimate:
				if cmd.Pos.X < 0 {
					res.Error = "off canvas"
				}
			}
			if err := conn.WriteJSON(res); err != nil {
				return
			}
		}
	}))
}

func connect(t *testing.T, peer *fakePeer) *Renderer {
	t.Helper()
	srv := peer.serve(t)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	r := New(NewConnSender(conn), zaptest.NewLogger(t).Sugar())
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				r.Close()
				return
			}
			var res Result
			if json.Unmarshal(data, &res) == nil && res.Type == MessageResult {
				r.Deliver(res)
			}
		}
	}()
	return r
}

func TestOneWayCommands(t *testing.T) {
	peer := &fakePeer{}
	r := connect(t, peer)

	require.NoError(t, r.Clear(topicmap.Viewport{Zoom: 1}))
	require.NoError(t, r.AddNode(render.Node{ID: 1, Pos: topicmap.Point{X: 1, Y: 2}}))
	require.NoError(t, r.AddNode(render.Node{ID: 2}))
	require.NoError(t, r.AddEdge(render.Edge{ID: 5, Source: 1, Target: 2}))
	require.NoError(t, r.AddAuxNode(5, topicmap.Point{}))
	require.NoError(t, r.Select(render.ElementRef(1)))
	require.NoError(t, r.SetExpanded(render.AuxRef(5), true))
	require.NoError(t, r.RemoveElement(render.AuxRef(5)))

	assert.Eventually(t, func() bool { return len(peer.ops()) == 8 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{
		render.OpClear, render.OpAddNode, render.OpAddNode, render.OpAddEdge,
		render.OpAddAuxNode, render.OpSelect, render.OpSetExpanded, render.OpRemove,
	}, peer.ops())
}

func TestUnknownElementFailsLocally(t *testing.T) {
	peer := &fakePeer{}
	r := connect(t, peer)

	err := r.Select(render.ElementRef(9))
	require.Error(t, err)
	assert.True(t, errors.IsElementNotFound(err))
	id, ok := maperr.ElementID(err)
	require.True(t, ok)
	assert.Equal(t, "9", id)

	assert.True(t, errors.IsElementNotFound(r.AddAuxNode(9, topicmap.Point{})))
	assert.True(t, errors.IsElementNotFound(r.RemoveElement(render.AuxRef(9))))

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, peer.ops(), "nothing reaches the peer for unknown elements")
}

func TestMeasureRoundTrip(t *testing.T) {
	peer := &fakePeer{}
	r := connect(t, peer)
	require.NoError(t, r.AddNode(render.Node{ID: 1}))
	require.NoError(t, r.AddNode(render.Node{ID: 404}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	size, err := r.MeasureElement(ctx, render.ElementRef(1))
	require.NoError(t, err)
	assert.Equal(t, render.Size{Width: 300, Height: 120}, size)

	_, err = r.MeasureElement(ctx, render.ElementRef(404))
	assert.True(t, errors.IsElementNotFound(err), "peer-side miss maps to element not found")
}

func TestAnimateErrorIsRenderCategory(t *testing.T) {
	peer := &fakePeer{}
	r := connect(t, peer)
	require.NoError(t, r.AddNode(render.Node{ID: 1}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, r.AnimateElementPosition(ctx, render.ElementRef(1), topicmap.Point{X: 5}))

	err := r.AnimateElementPosition(ctx, render.ElementRef(1), topicmap.Point{X: -1})
	require.Error(t, err)
	assert.Equal(t, maperr.CategoryRender, maperr.Classify(err).Category)
	assert.Contains(t, err.Error(), "off canvas")
}

func TestCancelledRelayoutSendsStop(t *testing.T) {
	peer := &fakePeer{silent: map[string]bool{render.OpRelayout: true}}
	r := connect(t, peer)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := r.RunLocalRelayout(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Eventually(t, func() bool {
		ops := peer.ops()
		return len(ops) == 2 && ops[1] == render.OpStopRelayout
	}, time.Second, 10*time.Millisecond)

	r.mu.Lock()
	assert.Empty(t, r.pending, "cancelled request is forgotten")
	r.mu.Unlock()
}

func TestDeliverWithoutWaiter(t *testing.T) {
	r := New(nil, zaptest.NewLogger(t).Sugar())
	r.Deliver(Result{RequestID: "nobody"})
}
