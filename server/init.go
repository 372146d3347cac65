package server

import (
	"context"
	"database/sql"
	"net/http"

	"go.uber.org/zap"

	"github.com/teranos/topicmap/am"
	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/logger"
	"github.com/teranos/topicmap/persist"
	"github.com/teranos/topicmap/persist/sqlstore"
	"github.com/teranos/topicmap/session"
	"github.com/teranos/topicmap/topicmap"
)

// New creates a server over a migrated database
func New(db *sql.DB, cfg *am.Config, log *zap.SugaredLogger) (*Server, error) {
	if db == nil {
		return nil, errors.New("database connection cannot be nil")
	}
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	log = logger.OrNop(log).Named("server")

	store := sqlstore.New(db)
	types := topicmap.NewTypeCache()
	defs, err := store.FetchTypes(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, "failed to load types")
	}
	for _, def := range defs {
		types.Put(def)
	}

	sc := session.ConfigFrom(cfg)
	writer := persist.NewWriter(store, sc.Writer, log.Named("writer"))

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		db:         db,
		store:      store,
		types:      types,
		writer:     writer,
		logger:     log,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		mux:        http.NewServeMux(),
		ctx:        ctx,
		cancel:     cancel,
	}
	writer.OnError(s.writeFailed)
	s.applyConfig(cfg)
	s.state.Store(int32(ServerStateRunning))
	s.setupHTTPRoutes()

	log.Infow("Server created",
		logger.FieldCount, len(defs),
		"restore_animation", sc.Anim.RestoreAnimation,
		"fisheye", sc.Anim.Fisheye,
	)
	return s, nil
}

// WatchConfig reloads the configuration when configPath changes. Sessions
// started afterwards use the new topicmap settings; allowed origins apply
// immediately.
func (s *Server) WatchConfig(configPath string, opts ...am.WatcherOption) error {
	if configPath == "" {
		s.logger.Infow("No config file found, using defaults (config watching disabled)")
		return nil
	}
	cw, err := am.NewConfigWatcher(configPath, opts...)
	if err != nil {
		return errors.Wrap(err, "failed to create config watcher")
	}
	cw.OnReload(func(cfg *am.Config) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		s.applyConfig(cfg)
		s.logger.Infow("Config reloaded",
			"restore_animation", cfg.Topicmap.RestoreAnimation,
			"fisheye", cfg.Topicmap.Fisheye,
			"detail_debounce_ms", cfg.Topicmap.DetailDebounceMS,
		)
		return nil
	})
	s.configWatcher = cw
	am.SetGlobalWatcher(cw)
	cw.Start()
	s.logger.Infow("Config watcher started", logger.FieldFile, configPath)
	return nil
}
