// Package session is the view/model synchronization engine of one rendered
// topicmap.
//
// A Session owns the topicmap model, the selection, the detail table and the
// animation scheduler of one client. All of that state lives on the session
// loop; exported methods may be called from any goroutine and run their work
// as a loop task. Asynchronous consequences (detail data, measurements,
// animations, store writes) continue after a method returned; Quiesce waits
// for them.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/topicmap/am"
	"github.com/teranos/topicmap/anim"
	"github.com/teranos/topicmap/cascade"
	"github.com/teranos/topicmap/detail"
	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/events"
	"github.com/teranos/topicmap/logger"
	"github.com/teranos/topicmap/loop"
	"github.com/teranos/topicmap/persist"
	"github.com/teranos/topicmap/render"
	"github.com/teranos/topicmap/selection"
	"github.com/teranos/topicmap/topicmap"
	"github.com/teranos/topicmap/topicmap/maperr"
)

// Config tunes one session
type Config struct {
	Anim            anim.Config
	DetailDebounce  time.Duration
	DefaultPosition topicmap.Point // where revealed topics go when nothing is selected
	PositionOffset  topicmap.Point // offset of revealed topics from the selected topic
	Writer          persist.WriterConfig
}

// DefaultConfig matches the topicmap.* configuration defaults
func DefaultConfig() Config {
	return Config{
		Anim:            anim.DefaultConfig(),
		DetailDebounce:  detail.DefaultSyncWindow,
		DefaultPosition: topicmap.Point{X: 200, Y: 240},
		PositionOffset:  topicmap.Point{X: 60, Y: 120},
		Writer:          persist.DefaultWriterConfig(),
	}
}

// ConfigFrom builds a session config from the loaded configuration
func ConfigFrom(cfg *am.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	tm := cfg.Topicmap
	c.Anim = anim.Config{
		RestoreAnimation: tm.RestoreAnimation,
		Fisheye:          tm.Fisheye,
		Timeout:          tm.AnimationTimeout(),
	}
	if d := tm.DetailDebounce(); d > 0 {
		c.DetailDebounce = d
	}
	c.DefaultPosition = topicmap.Point{X: tm.DefaultPosition.X, Y: tm.DefaultPosition.Y}
	c.PositionOffset = topicmap.Point{X: tm.PositionOffset.X, Y: tm.PositionOffset.Y}
	c.Writer = persist.WriterConfig{
		MaxRequestsPerSecond: cfg.Persist.MaxRequestsPerSecond,
		QueueSize:            cfg.Persist.QueueSize,
	}
	return c
}

// Deps are the collaborators of a session
type Deps struct {
	Renderer render.Renderer
	Store    persist.Store
	Objects  persist.ObjectSource
	// Types is shared between sessions; a new cache is created when nil
	Types *topicmap.TypeCache
	// Writer is shared between sessions; the session starts its own when nil
	Writer *persist.Writer
}

// Session synchronizes one rendered topicmap with its renderer and the store
type Session struct {
	id      string
	cfg     Config
	l       *loop.Loop
	r       render.Renderer
	store   persist.Store
	objects persist.ObjectSource
	writer  *persist.Writer
	owner   bool // the session started writer
	types   *topicmap.TypeCache
	logger  *zap.SugaredLogger

	sched   *anim.Scheduler
	details *detail.Manager
	sel     *selection.Controller
	emitter *events.Emitter

	// set by RenderTopicmap
	m        *topicmap.Topicmap
	writable bool
	cascade  *cascade.Engine
}

// New starts a session. Nothing is rendered until RenderTopicmap.
func New(ctx context.Context, deps Deps, cfg Config, log *zap.SugaredLogger) (*Session, error) {
	if deps.Renderer == nil {
		return nil, errors.New("session requires a renderer")
	}
	if deps.Store == nil {
		return nil, errors.New("session requires a store")
	}
	objects := deps.Objects
	if objects == nil {
		src, ok := deps.Store.(persist.ObjectSource)
		if !ok {
			return nil, errors.New("session requires an object source")
		}
		objects = src
	}
	types := deps.Types
	if types == nil {
		types = topicmap.NewTypeCache()
	}

	id := uuid.New().String()
	log = logger.OrNop(log).With(logger.FieldSessionID, id)

	s := &Session{
		id:      id,
		cfg:     cfg,
		r:       deps.Renderer,
		store:   deps.Store,
		objects: objects,
		writer:  deps.Writer,
		types:   types,
		logger:  log,
	}
	s.l = loop.New(ctx, log.Named("loop"))
	if s.writer == nil {
		s.writer = persist.NewWriter(deps.Store, cfg.Writer, log.Named("writer"))
		s.owner = true
		s.writer.OnError(s.writeFailed)
	}
	s.sched = anim.NewScheduler(s.l, s.r, cfg.Anim, log.Named("anim"))
	s.details = detail.NewManager(s.l, s.r, objects, types, s.sched, nil, cfg.DetailDebounce, log.Named("detail"))
	s.sel = selection.New(s.l, s.r, s.details, s.sched, log.Named("selection"))
	s.emitter = events.NewEmitter(log.Named("events"))

	log.Infow("Session started")
	return s, nil
}

// ID identifies the session in logs and on the wire
func (s *Session) ID() string {
	return s.id
}

// Close stops the session. Queued store writes of an owned writer are applied first.
func (s *Session) Close() error {
	s.l.Close()
	s.details.Close()
	s.emitter.Close()
	var err error
	if s.owner {
		err = s.writer.Close()
	}
	s.logger.Infow("Session closed")
	return err
}

// Quiesce waits until every asynchronous consequence of earlier calls settled
func (s *Session) Quiesce(ctx context.Context) error {
	return s.l.Quiesce(ctx)
}

// Flush waits until the store writes issued so far are applied
func (s *Session) Flush(ctx context.Context) error {
	return s.writer.Flush(ctx)
}

// do runs fn on the loop and logs the classified error
func (s *Session) do(ctx context.Context, op string, fn func() error) error {
	err := s.l.Do(ctx, fn)
	if err != nil {
		me := maperr.Classify(err)
		fields := append([]interface{}{logger.FieldOperation, op}, me.ToLogFields()...)
		if errors.IsInvariant(err) {
			s.logger.Errorw("Session operation violated an invariant", fields...)
		} else {
			s.logger.Debugw("Session operation failed", fields...)
		}
	}
	return err
}

// rendered fails when no topicmap is rendered. Must run on the loop.
func (s *Session) rendered() error {
	if s.m == nil {
		return errors.Invariantf("no topicmap rendered")
	}
	return nil
}

// Events subscribes to host events. Call the returned function to unsubscribe.
func (s *Session) Events(buffer int) (<-chan events.Event, func()) {
	return s.emitter.Subscribe(buffer)
}

// Details subscribes to detail snapshots, pushed whenever a detail changes
func (s *Session) Details(buffer int) (<-chan detail.Snapshot, func()) {
	return s.details.Subscribe(buffer)
}

// DetailSnapshots returns the displayed details, ordered by id
func (s *Session) DetailSnapshots(ctx context.Context) ([]detail.Snapshot, error) {
	var out []detail.Snapshot
	err := s.do(ctx, "detail_snapshots", func() error {
		out = s.details.Snapshots()
		return nil
	})
	return out, err
}

// State is a point-in-time summary of a session
type State struct {
	TopicmapID topicmap.ID          `json:"topicmap_id"`
	Writable   bool                 `json:"writable"`
	Selection  *selection.Selection `json:"selection,omitempty"`
	Phase      string               `json:"phase"`
	Multi      []topicmap.ID        `json:"multi_selection,omitempty"`
	Details    []topicmap.ID        `json:"details,omitempty"`
	Viewport   topicmap.Viewport    `json:"viewport"`
}

// State captures the current session state
func (s *Session) State(ctx context.Context) (State, error) {
	var st State
	err := s.do(ctx, "state", func() error {
		if err := s.rendered(); err != nil {
			return err
		}
		st = State{
			TopicmapID: s.m.ID,
			Writable:   s.writable,
			Phase:      s.sel.Phase().String(),
			Multi:      s.sel.MultiSelection(),
			Viewport:   s.m.Viewport(),
		}
		if cur, ok := s.sel.Current(); ok {
			st.Selection = &cur
		}
		for _, snap := range s.details.Snapshots() {
			st.Details = append(st.Details, snap.ID)
		}
		return nil
	})
	return st, err
}

// View runs fn with the rendered topicmap on the loop. fn must not keep m.
func (s *Session) View(ctx context.Context, fn func(m *topicmap.Topicmap) error) error {
	return s.do(ctx, "view", func() error {
		if err := s.rendered(); err != nil {
			return err
		}
		return fn(s.m)
	})
}

// RenderTopicmap fetches a topicmap and renders it, replacing the current one.
// Selection and details are reset; pinned objects get their details back.
func (s *Session) RenderTopicmap(ctx context.Context, id topicmap.ID) error {
	defs, err := s.store.FetchTypes(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to fetch types")
	}
	for _, def := range defs {
		s.types.Put(def)
	}
	loaded, err := s.store.FetchTopicmap(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "failed to fetch topicmap %d", id)
	}
	return s.Render(ctx, loaded)
}

// Render renders an already loaded topicmap
func (s *Session) Render(ctx context.Context, loaded *persist.Loaded) error {
	return s.do(ctx, "render_topicmap", func() error {
		return s.render(loaded)
	})
}

func (s *Session) render(loaded *persist.Loaded) error {
	m := loaded.Topicmap
	s.sel.Reset()
	s.details.SetTopicmap(m)
	s.m = m
	s.writable = loaded.Writable
	s.cascade = cascade.New(m, effects{s}, s.logger.Named("cascade"))

	var errs error
	if err := s.r.Clear(m.Viewport()); err != nil {
		return errors.Wrap(err, "failed to clear renderer")
	}
	for _, vt := range m.Topics() {
		if vt.Visible {
			errs = errors.CombineErrors(errs, s.r.AddNode(render.NodeFor(vt, s.types)))
		}
	}
	for _, va := range m.Assocs() {
		if va.Visible {
			errs = errors.CombineErrors(errs, s.r.AddEdge(render.EdgeFor(va, s.types)))
		}
	}
	s.logger.Infow("Topicmap rendered",
		logger.FieldTopicmapID, m.ID,
		"writable", s.writable,
		logger.FieldCount, len(m.Topics())+len(m.Assocs()),
	)
	return errors.CombineErrors(errs, s.showPinnedDetails())
}

// showPinnedDetails shows a detail for every visible pinned object
func (s *Session) showPinnedDetails() error {
	var errs error
	show := func(id topicmap.ID) {
		rec, err := s.details.Create(id)
		if err != nil {
			errs = errors.CombineErrors(errs, err)
			return
		}
		s.details.Show(rec)
	}
	for _, vt := range s.m.Topics() {
		if vt.Visible && vt.Pinned {
			show(vt.ID)
		}
	}
	for _, va := range s.m.Assocs() {
		if va.Visible && va.Pinned {
			show(va.ID)
		}
	}
	return errs
}

// persist submits op when the rendered topicmap is writable
func (s *Session) persist(op persist.Op) {
	if !s.writable {
		s.logger.Debugw("Topicmap not writable, change kept local", logger.FieldOperation, op.Name)
		return
	}
	if err := s.writer.Submit(op); err != nil {
		s.logger.Warnw("Store write not queued", logger.FieldOperation, op.Name, logger.FieldError, err)
	}
}

func (s *Session) writeFailed(op persist.Op, err error) {
	fields := append([]interface{}{logger.FieldOperation, op.Name, logger.FieldTopicmapID, op.TopicmapID},
		maperr.Classify(err).ToLogFields()...)
	s.logger.Warnw("Store write failed", fields...)
}

func (s *Session) emit(ev events.Event) {
	ev.Topicmap = s.m.ID
	s.emitter.Emit(ev)
}

// Report forwards an event raised by the host's renderer (double click, drop
// on topic, association creation, context menu) to the event subscribers.
func (s *Session) Report(ctx context.Context, ev events.Event) error {
	return s.do(ctx, "report", func() error {
		if err := s.rendered(); err != nil {
			return err
		}
		switch ev.Type {
		case events.TopicDoubleClick, events.TopicDropOnTopic, events.AssocCreate, events.TopicmapContextmenu:
		default:
			return errors.NewInvalidRequestError("event %q cannot be reported by the host", ev.Type)
		}
		s.emit(ev)
		return nil
	})
}
