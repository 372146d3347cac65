package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/logger"
)

// getState returns the current server state
func (s *Server) getState() ServerState {
	return ServerState(s.state.Load())
}

// setState atomically updates the server state
func (s *Server) setState(newState ServerState) {
	s.state.Store(int32(newState))
	s.logger.Infow("Server state changed", logger.FieldState, stateString(newState))
}

// stateString returns human-readable state name
func stateString(state ServerState) string {
	switch state {
	case ServerStateRunning:
		return "running"
	case ServerStateDraining:
		return "draining"
	case ServerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// startHub runs the client hub until the server stops
func (s *Server) startHub() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Run()
	}()
}

// Start serves on port until Stop is called. ready, when set, receives the
// URL once the listener is bound. Port 0 picks a free port.
func (s *Server) Start(port int, ready func(url string)) error {
	s.startHub()

	actualPort, err := findAvailablePort(port)
	if err != nil {
		return errors.Wrap(err, "failed to find available port")
	}
	if actualPort != port {
		s.logger.Infow("Port in use, using alternative",
			"requested_port", port,
			"actual_port", actualPort,
		)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", actualPort))
	if err != nil {
		return errors.Wrapf(err, "failed to listen on port %d", actualPort)
	}
	actualPort = ln.Addr().(*net.TCPAddr).Port

	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	url := fmt.Sprintf("http://localhost:%d", actualPort)
	s.logger.Infow("Server ready", "url", url, logger.FieldPort, actualPort)
	if ready != nil {
		ready(url)
	}

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server failed")
	}
	return nil
}

// Stop gracefully shuts down the server and cleans up resources
func (s *Server) Stop() error {
	if s.getState() == ServerStateStopped {
		return nil
	}
	s.logger.Infow("Initiating server shutdown")
	s.setState(ServerStateDraining)

	var errs error

	s.mu.RLock()
	srv := s.httpServer
	s.mu.RUnlock()
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		if err := srv.Shutdown(ctx); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrap(err, "http shutdown"))
		}
		cancel()
	}

	// Hijacked websocket connections are not covered by Shutdown
	clients := s.snapshotClients()
	for _, client := range clients {
		client.close()
	}
	s.logger.Infow("Clients closed", logger.FieldCount, len(clients))

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(ShutdownTimeout):
		s.logger.Warnw("Shutdown timed out waiting for goroutines", "timeout", ShutdownTimeout)
	}

	if s.configWatcher != nil {
		if err := s.configWatcher.Stop(); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrap(err, "config watcher"))
		}
	}
	if err := s.writer.Close(); err != nil {
		errs = errors.CombineErrors(errs, errors.Wrap(err, "store writer"))
	}

	if drops := s.broadcastDrops.Load(); drops > 0 {
		s.logger.Warnw("Directive batches dropped during run", logger.FieldCount, drops)
	}
	s.setState(ServerStateStopped)
	return errs
}
