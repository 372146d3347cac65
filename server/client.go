package server

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/teranos/topicmap/directive"
	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/logger"
	"github.com/teranos/topicmap/render/wsrender"
	"github.com/teranos/topicmap/session"
	"github.com/teranos/topicmap/topicmap/maperr"
	"github.com/teranos/topicmap/version"
)

// WebSocket timeouts
// See: https://github.com/gorilla/websocket/blob/master/examples/chat/client.go
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 512 * 1024

	// Upper bound for one session operation
	opTimeout = 30 * time.Second
)

// clientOp is a unit of work for the client's session: a message from the
// client or a batch of broadcast directives
type clientOp struct {
	msg  *ClientMessage
	dirs []directive.Directive
}

// Client is one websocket connection with the session rendering into it
type Client struct {
	server   *Server
	conn     *websocket.Conn
	id       string
	logger   *zap.SugaredLogger
	renderer *wsrender.Renderer
	session  *session.Session

	send     chan interface{}
	ops      chan clientOp
	done     chan struct{}
	welcomed atomic.Bool

	mu        sync.RWMutex // guards closed against sends on the closed outbox
	closed    bool
	closeOnce sync.Once
	cancel    []func()
}

// newClient wraps conn and starts its session
func (s *Server) newClient(conn *websocket.Conn) (*Client, error) {
	c := &Client{
		server: s,
		conn:   conn,
		id:     uuid.NewString(),
		send:   make(chan interface{}, MaxClientMessageQueueSize),
		ops:    make(chan clientOp, MaxClientMessageQueueSize),
		done:   make(chan struct{}),
	}
	c.logger = s.logger.With(logger.FieldClientID, c.id)
	c.renderer = wsrender.New(c, c.logger.Named("render"))

	sess, err := session.New(s.ctx, session.Deps{
		Renderer: c.renderer,
		Store:    s.store,
		Types:    s.types,
		Writer:   s.writer,
	}, s.sessionConfig(), c.logger.Named("session"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to start session")
	}
	c.session = sess
	return c, nil
}

// Send queues msg for the write pump. It implements wsrender.Sender, so
// render commands share the outbox with acks and events.
func (c *Client) Send(msg interface{}) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.Wrapf(errors.ErrClosed, "client %s", c.id)
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return maperr.New(maperr.CategoryWebSocket, errors.Newf("client %s outbox full", c.id), "").
			WithSubcategory(maperr.SubcategoryWSWrite)
	}
}

// enqueue hands op to the op pump. Reports false when the client is gone or
// its queue is full.
func (c *Client) enqueue(op clientOp) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.ops <- op:
		return true
	default:
		return false
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.ctx.Done():
			c.close()
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c.logger.Debugw("Read pump started")

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warnw("JSON unmarshal error", logger.FieldError, err)
			continue
		}

		switch msg.Type {
		case wsrender.MessageResult:
			// results unblock session work, so they never wait behind ops
			var res wsrender.Result
			if err := json.Unmarshal(data, &res); err != nil {
				c.logger.Warnw("Invalid render result", logger.FieldError, err)
				continue
			}
			c.renderer.Deliver(res)
		case MsgHello:
			if !c.handleHello(&msg) {
				return
			}
		case MsgPing:
		default:
			if !c.welcomed.Load() {
				c.reply(&msg, "", errors.NewInvalidRequestError("hello required before %s", msg.Type))
				continue
			}
			if !c.enqueue(clientOp{msg: &msg}) {
				c.reply(&msg, "", maperr.New(maperr.CategoryWebSocket,
					errors.Newf("client %s busy, %s dropped", c.id, msg.Type), "").
					WithSubcategory(maperr.SubcategoryWSRead))
			}
		}
	}
}

// handleReadError logs unexpected WebSocket read errors.
// Expected closure codes (going away, abnormal, no status) are silently ignored.
func (c *Client) handleReadError(err error) {
	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseNoStatusReceived,
	) {
		me := maperr.New(maperr.CategoryWebSocket, err, "").WithSubcategory(maperr.SubcategoryWSRead)
		c.logger.Warnw("WebSocket read error", me.ToLogFields()...)
	}
}

// handleHello checks the client's protocol version. A rejected client gets
// the reason and is disconnected.
func (c *Client) handleHello(msg *ClientMessage) bool {
	if err := version.CheckProtocol(msg.Protocol); err != nil {
		me := maperr.New(maperr.CategoryWebSocket, err, "Client version not supported - please reload").
			WithSubcategory(maperr.SubcategoryWSHandshake).
			WithContext("client_protocol", msg.Protocol)
		c.logger.Warnw("Client hello rejected", me.ToLogFields()...)
		_ = c.Send(ErrorMessage{Type: "error", Error: me.ToMeta()})
		return false
	}
	c.welcomed.Store(true)
	info := version.Get()
	if err := c.Send(WelcomeMessage{
		Type:      "welcome",
		SessionID: c.session.ID(),
		Protocol:  version.Protocol,
		Version:   info.Short(),
	}); err != nil {
		c.logger.Warnw("Failed to welcome client", logger.FieldError, err)
	}
	c.logger.Infow("Client hello accepted", "client_protocol", msg.Protocol)
	return true
}

// opPump applies ops to the session one at a time, in arrival order
func (c *Client) opPump() {
	for {
		select {
		case <-c.done:
			return
		case op := <-c.ops:
			c.handleOp(op)
		}
	}
}

func (c *Client) handleOp(op clientOp) {
	ctx, cancel := context.WithTimeout(c.server.ctx, opTimeout)
	defer cancel()

	if op.msg == nil {
		err := c.session.ProcessDirectives(ctx, op.dirs)
		switch {
		case err == nil:
		case errors.IsInvariant(err):
			c.logger.Debugw("Directives skipped, nothing rendered", logger.FieldCount, len(op.dirs))
		default:
			c.logger.Warnw("Directives partially applied", logger.FieldError, err)
			c.sendError(err)
		}
		return
	}

	start := time.Now()
	reveal, err := c.apply(ctx, op.msg)
	c.logger.Debugw("Client op",
		logger.FieldOperation, op.msg.Type,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	c.reply(op.msg, reveal, err)
}

// apply runs a client message against the session. The returned string is
// the reveal type of reveal operations.
func (c *Client) apply(ctx context.Context, msg *ClientMessage) (string, error) {
	s := c.session
	switch msg.Type {
	case MsgRenderTopicmap:
		return "", s.RenderTopicmap(ctx, msg.TopicmapID)

	case MsgRevealTopic:
		if msg.Topic == nil {
			return "", missingField(msg.Type, "topic")
		}
		rt, err := s.RevealTopic(ctx, *msg.Topic, msg.Pos, msg.AutoPan)
		return string(rt), err

	case MsgRevealAssoc:
		if msg.Assoc == nil {
			return "", missingField(msg.Type, "assoc")
		}
		rt, err := s.RevealAssoc(ctx, *msg.Assoc, msg.AutoPan)
		return string(rt), err

	case MsgRevealRelatedTopic:
		if msg.Related == nil {
			return "", missingField(msg.Type, "related")
		}
		return "", s.RevealRelatedTopic(ctx, *msg.Related, msg.Pos, msg.AutoPan)

	case MsgSelect:
		return "", s.Select(ctx, msg.ID, msg.ShowDetails)

	case MsgUnselect:
		return "", s.Unselect(ctx)

	case MsgSetTopicPosition:
		if msg.Pos == nil {
			return "", missingField(msg.Type, "pos")
		}
		return "", s.SetTopicPosition(ctx, msg.ID, *msg.Pos)

	case MsgSetTopicPositions:
		return "", s.SetTopicPositions(ctx, msg.Coords)

	case MsgHideMulti:
		return "", s.HideMulti(ctx, msg.Lists)

	case MsgDeleteMulti:
		return "", s.DeleteMulti(ctx, msg.Lists)

	case MsgSetPinned:
		return "", s.SetPinned(ctx, msg.ID, msg.Pinned, msg.ShowDetails)

	case MsgRenderAsSelected:
		return "", s.RenderAsSelected(ctx, msg.IDs...)

	case MsgRenderAsUnselected:
		return "", s.RenderAsUnselected(ctx, msg.IDs...)

	case MsgRemoveSelectionDetail:
		return "", s.RemoveSelectionDetail(ctx)

	case MsgSyncDetailSize:
		return "", s.SyncDetailSize(ctx, msg.ID)

	case MsgSyncViewport:
		return "", s.SyncViewport(ctx, msg.Pan, msg.Zoom)

	case MsgSyncNodePosition:
		if msg.Pos == nil {
			return "", missingField(msg.Type, "pos")
		}
		return "", s.SyncNodePosition(ctx, msg.ID, *msg.Pos)

	case MsgReport:
		if msg.Event == nil {
			return "", missingField(msg.Type, "event")
		}
		return "", s.Report(ctx, *msg.Event)
	}
	return "", errors.NewInvalidRequestError("unknown message type %q", msg.Type)
}

func missingField(msgType, field string) error {
	return errors.NewInvalidRequestError("%s without %s", msgType, field)
}

// reply acks msg when it carries a request ID; failures without one are
// reported as error messages
func (c *Client) reply(msg *ClientMessage, reveal string, err error) {
	if msg.RequestID == "" {
		if err != nil {
			c.sendError(err)
		}
		return
	}
	ack := AckMessage{Type: "ack", RequestID: msg.RequestID, Reveal: reveal}
	if err != nil {
		ack.Error = maperr.Classify(err).ToMeta()
	}
	if sendErr := c.Send(ack); sendErr != nil {
		c.logger.Debugw("Failed to ack", logger.FieldRequestID, msg.RequestID, logger.FieldError, sendErr)
	}
}

func (c *Client) sendError(err error) {
	if sendErr := c.Send(ErrorMessage{Type: "error", Error: maperr.Classify(err).ToMeta()}); sendErr != nil {
		c.logger.Debugw("Failed to report error", logger.FieldError, sendErr)
	}
}

// forwardPump relays session events and detail snapshots to the client
func (c *Client) forwardPump() {
	evs, cancelEvents := c.session.Events(MaxClientMessageQueueSize)
	dets, cancelDetails := c.session.Details(MaxClientMessageQueueSize)
	defer cancelEvents()
	defer cancelDetails()

	for {
		select {
		case <-c.done:
			return
		case ev, ok := <-evs:
			if !ok {
				return
			}
			if err := c.Send(EventMessage{Type: "event", Event: ev}); err != nil {
				c.logger.Debugw("Dropping event", "event", string(ev.Type), logger.FieldError, err)
			}
		case snap, ok := <-dets:
			if !ok {
				return
			}
			if err := c.Send(DetailMessage{Type: "detail", Detail: snap}); err != nil {
				c.logger.Debugw("Dropping detail", logger.FieldDetailID, snap.ID, logger.FieldError, err)
			}
		}
	}
}

// writePump writes queued messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	c.logger.Debugw("Write pump started")

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				me := maperr.New(maperr.CategoryWebSocket, err, "").WithSubcategory(maperr.SubcategoryWSWrite)
				c.logger.Warnw("Message write error", me.ToLogFields()...)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close stops the client's pumps and session. Safe to call more than once.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		close(c.done)
		c.mu.Unlock()

		// pending render requests fail first so session work can drain
		c.renderer.Close()
		if err := c.session.Close(); err != nil {
			c.logger.Warnw("Session close failed", logger.FieldError, err)
		}
	})
}
