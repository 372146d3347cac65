// Package server serves topicmaps to browser clients. Each websocket client
// gets its own session whose renderer is the browser on the other end of the
// connection. Push directives posted over HTTP are broadcast to every session.
package server

import (
	"context"
	"database/sql"
	"net/http"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/teranos/topicmap/am"
	"github.com/teranos/topicmap/directive"
	"github.com/teranos/topicmap/logger"
	"github.com/teranos/topicmap/persist"
	"github.com/teranos/topicmap/persist/sqlstore"
	"github.com/teranos/topicmap/session"
	"github.com/teranos/topicmap/topicmap"
)

// Server is the hub of connected clients and the HTTP API in front of the store
type Server struct {
	db     *sql.DB
	store  *sqlstore.Store
	types  *topicmap.TypeCache // shared by all sessions
	writer *persist.Writer     // shared by all sessions
	logger *zap.SugaredLogger

	configWatcher *am.ConfigWatcher

	mu             sync.RWMutex
	clients        map[*Client]bool
	sessionCfg     session.Config // applied to sessions started after a reload
	allowedOrigins []string

	register   chan *Client
	unregister chan *Client

	mux        *http.ServeMux
	httpServer *http.Server

	// Lifecycle management
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	broadcastDrops atomic.Int64 // directive batches a full client queue refused
	state          atomic.Int32
}

// handleClientRegister handles a new client connection
func (s *Server) handleClientRegister(client *Client) {
	s.mu.Lock()
	if len(s.clients) >= MaxClients {
		s.mu.Unlock()
		s.logger.Warnw("Max clients reached, rejecting connection",
			logger.FieldClientID, client.id,
			"max_clients", MaxClients,
		)
		client.close()
		return
	}
	s.clients[client] = true
	total := len(s.clients)
	s.mu.Unlock()

	s.logger.Infow("Client connected",
		logger.FieldClientID, client.id,
		logger.FieldSessionID, client.session.ID(),
		"total_clients", total,
	)
}

// handleClientUnregister handles a client disconnection
func (s *Server) handleClientUnregister(client *Client) {
	s.mu.Lock()
	if _, ok := s.clients[client]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.clients, client)
	total := len(s.clients)
	s.mu.Unlock()

	client.close()
	s.logger.Infow("Client disconnected",
		logger.FieldClientID, client.id,
		"total_clients", total,
	)
}

// Run starts the server hub event loop
func (s *Server) Run() {
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Debugw("Server hub stopping due to context cancellation")
			return
		case client := <-s.register:
			s.handleClientRegister(client)
		case client := <-s.unregister:
			s.handleClientUnregister(client)
		}
	}
}

// snapshotClients returns the connected clients
func (s *Server) snapshotClients() []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clients := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	return clients
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// broadcastDirectives queues dirs on every client's session. Returns the
// number of clients that accepted them.
func (s *Server) broadcastDirectives(dirs []directive.Directive) int {
	sent := 0
	for _, client := range s.snapshotClients() {
		if client.enqueue(clientOp{dirs: dirs}) {
			sent++
			continue
		}
		s.broadcastDrops.Add(1)
		s.logger.Warnw("Client queue full, dropping directives",
			logger.FieldClientID, client.id,
			logger.FieldCount, len(dirs),
		)
	}
	return sent
}

// sessionConfig returns the configuration new sessions start with
func (s *Server) sessionConfig() session.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionCfg
}

// applyConfig takes over the reloadable parts of cfg
func (s *Server) applyConfig(cfg *am.Config) {
	sc := session.ConfigFrom(cfg)
	s.mu.Lock()
	s.sessionCfg = sc
	s.allowedOrigins = append([]string(nil), cfg.Server.AllowedOrigins...)
	s.mu.Unlock()
}

// writeFailed logs a store write of any session that could not be applied
func (s *Server) writeFailed(op persist.Op, err error) {
	s.logger.Warnw("Store write failed",
		logger.FieldOperation, op.Name,
		logger.FieldTopicmapID, op.TopicmapID,
		logger.FieldError, err,
	)
}
