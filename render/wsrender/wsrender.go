// Package wsrender implements render.Renderer for a browser peer connected
// over a websocket.
//
// Non-blocking instructions are sent as one-way commands. Blocking calls carry
// a request ID and wait for the peer's matching result message. The peer's
// element tree is mirrored as a set of refs so unknown elements are reported
// without a round trip.
package wsrender

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/logger"
	"github.com/teranos/topicmap/render"
	"github.com/teranos/topicmap/topicmap"
	"github.com/teranos/topicmap/topicmap/maperr"
)

// MessageType tags render messages on the shared client connection
const (
	MessageCommand = "render"
	MessageResult  = "render_result"
)

// Command is one renderer instruction sent to the peer
type Command struct {
	Type      string             `json:"type"`
	Op        string             `json:"op"`
	RequestID string             `json:"request_id,omitempty"`
	Ref       *render.Ref        `json:"ref,omitempty"`
	Node      *render.Node       `json:"node,omitempty"`
	Edge      *render.Edge       `json:"edge,omitempty"`
	Pos       *topicmap.Point    `json:"pos,omitempty"`
	Size      *render.Size       `json:"size,omitempty"`
	Fields    render.Fields      `json:"fields,omitempty"`
	Expanded  *bool              `json:"expanded,omitempty"`
	Viewport  *topicmap.Viewport `json:"viewport,omitempty"`
}

// Result answers a Command that carried a request ID
type Result struct {
	Type      string       `json:"type"`
	RequestID string       `json:"request_id"`
	Error     string       `json:"error,omitempty"`
	NotFound  bool         `json:"not_found,omitempty"`
	Size      *render.Size `json:"size,omitempty"`
}

// Sender delivers a message to the peer. *ConnSender and the server's client
// outbox both implement it.
type Sender interface {
	Send(msg interface{}) error
}

// ConnSender writes messages straight to a websocket connection.
// gorilla connections allow one concurrent writer, so writes are serialized.
type ConnSender struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	writeWait time.Duration
}

// NewConnSender wraps conn
func NewConnSender(conn *websocket.Conn) *ConnSender {
	return &ConnSender{conn: conn, writeWait: 10 * time.Second}
}

// Send writes msg as a JSON text frame
func (s *ConnSender) Send(msg interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeWait)); err != nil {
		return errors.Wrap(err, "failed to set write deadline")
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return errors.Wrap(err, "failed to write render command")
	}
	return nil
}

// Renderer forwards render calls to a websocket peer
type Renderer struct {
	sender Sender
	logger *zap.SugaredLogger

	mu       sync.Mutex
	elements map[render.Ref]bool
	pending  map[string]chan Result
}

// New creates a renderer sending through s
func New(s Sender, log *zap.SugaredLogger) *Renderer {
	return &Renderer{
		sender:   s,
		logger:   logger.OrNop(log),
		elements: make(map[render.Ref]bool),
		pending:  make(map[string]chan Result),
	}
}

// Deliver routes a result message from the peer to the waiting call.
// Results nobody waits for any more are dropped.
func (r *Renderer) Deliver(res Result) {
	r.mu.Lock()
	ch, ok := r.pending[res.RequestID]
	delete(r.pending, res.RequestID)
	r.mu.Unlock()

	if !ok {
		r.logger.Debugw("Dropping render result without waiter", logger.FieldRequestID, res.RequestID)
		return
	}
	ch <- res
}

// Close fails every call still waiting on the peer
func (r *Renderer) Close() {
	r.mu.Lock()
	pending := r.pending
	r.pending = make(map[string]chan Result)
	r.mu.Unlock()

	for id, ch := range pending {
		ch <- Result{RequestID: id, Error: "renderer closed"}
	}
}

func (r *Renderer) send(cmd Command) error {
	cmd.Type = MessageCommand
	r.logger.Debugw("Render command", logger.FieldRenderCall, cmd.Op, logger.FieldRequestID, cmd.RequestID)
	return r.sender.Send(cmd)
}

func (r *Renderer) known(ref render.Ref) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.elements[ref] {
		return maperr.ElementNotFound(ref)
	}
	return nil
}

func (r *Renderer) track(ref render.Ref, present bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if present {
		r.elements[ref] = true
	} else {
		delete(r.elements, ref)
	}
}

// request sends cmd with a fresh request ID and waits for the peer's result
func (r *Renderer) request(ctx context.Context, cmd Command) (Result, error) {
	id := uuid.NewString()
	ch := make(chan Result, 1)

	r.mu.Lock()
	r.pending[id] = ch
	r.mu.Unlock()

	forget := func() {
		r.mu.Lock()
		delete(r.pending, id)
		r.mu.Unlock()
	}

	cmd.RequestID = id
	if err := r.send(cmd); err != nil {
		forget()
		return Result{}, err
	}

	select {
	case res := <-ch:
		if res.NotFound && cmd.Ref != nil {
			return res, maperr.ElementNotFound(*cmd.Ref)
		}
		if res.Error != "" {
			return res, maperr.New(maperr.CategoryRender, errors.Newf("%s %s: %s", cmd.Op, refString(cmd.Ref), res.Error), "")
		}
		return res, nil
	case <-ctx.Done():
		forget()
		return Result{}, ctx.Err()
	}
}

func refString(ref *render.Ref) string {
	if ref == nil {
		return ""
	}
	return ref.String()
}

func (r *Renderer) Clear(viewport topicmap.Viewport) error {
	r.mu.Lock()
	r.elements = make(map[render.Ref]bool)
	r.mu.Unlock()
	return r.send(Command{Op: render.OpClear, Viewport: &viewport})
}

func (r *Renderer) AddNode(n render.Node) error {
	r.track(render.ElementRef(n.ID), true)
	return r.send(Command{Op: render.OpAddNode, Node: &n})
}

func (r *Renderer) AddEdge(e render.Edge) error {
	r.track(render.ElementRef(e.ID), true)
	return r.send(Command{Op: render.OpAddEdge, Edge: &e})
}

func (r *Renderer) AddAuxNode(assocID topicmap.ID, pos topicmap.Point) error {
	if err := r.known(render.ElementRef(assocID)); err != nil {
		return err
	}
	ref := render.AuxRef(assocID)
	r.track(ref, true)
	return r.send(Command{Op: render.OpAddAuxNode, Ref: &ref, Pos: &pos})
}

func (r *Renderer) RemoveElement(ref render.Ref) error {
	if err := r.known(ref); err != nil {
		return err
	}
	r.track(ref, false)
	return r.send(Command{Op: render.OpRemove, Ref: &ref})
}

func (r *Renderer) Select(ref render.Ref) error {
	return r.sendFor(Command{Op: render.OpSelect, Ref: &ref})
}

func (r *Renderer) Unselect(ref render.Ref) error {
	return r.sendFor(Command{Op: render.OpUnselect, Ref: &ref})
}

func (r *Renderer) UpdateElementData(ref render.Ref, fields render.Fields) error {
	return r.sendFor(Command{Op: render.OpUpdate, Ref: &ref, Fields: fields})
}

func (r *Renderer) SetExpanded(ref render.Ref, expanded bool) error {
	return r.sendFor(Command{Op: render.OpSetExpanded, Ref: &ref, Expanded: &expanded})
}

func (r *Renderer) ResizeElement(ref render.Ref, size *render.Size) error {
	return r.sendFor(Command{Op: render.OpResize, Ref: &ref, Size: size})
}

func (r *Renderer) AutoPan(ref render.Ref) error {
	return r.sendFor(Command{Op: render.OpAutoPan, Ref: &ref})
}

// sendFor sends a one-way command addressing an existing element
func (r *Renderer) sendFor(cmd Command) error {
	if err := r.known(*cmd.Ref); err != nil {
		return err
	}
	return r.send(cmd)
}

func (r *Renderer) AnimateElementPosition(ctx context.Context, ref render.Ref, pos topicmap.Point) error {
	if err := r.known(ref); err != nil {
		return err
	}
	_, err := r.request(ctx, Command{Op: render.OpAnimate, Ref: &ref, Pos: &pos})
	return err
}

func (r *Renderer) MeasureElement(ctx context.Context, ref render.Ref) (render.Size, error) {
	if err := r.known(ref); err != nil {
		return render.Size{}, err
	}
	res, err := r.request(ctx, Command{Op: render.OpMeasure, Ref: &ref})
	if err != nil {
		return render.Size{}, err
	}
	if res.Size == nil {
		return render.Size{}, maperr.New(maperr.CategoryRender, errors.Newf("measure %s: peer sent no size", ref), "")
	}
	return *res.Size, nil
}

func (r *Renderer) RunLocalRelayout(ctx context.Context) error {
	_, err := r.request(ctx, Command{Op: render.OpRelayout})
	if err != nil && ctx.Err() != nil {
		// the peer keeps animating unless told otherwise
		if stopErr := r.send(Command{Op: render.OpStopRelayout}); stopErr != nil {
			r.logger.Warnw("Failed to stop relayout", logger.FieldError, stopErr)
		}
	}
	return err
}

var _ render.Renderer = (*Renderer)(nil)
