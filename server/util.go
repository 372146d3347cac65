package server

import (
	"fmt"
	"net"

	"github.com/gorilla/websocket"

	"github.com/teranos/topicmap/am"
	"github.com/teranos/topicmap/errors"
)

// upgrader creates a WebSocket upgrader with origin checking from config
func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		CheckOrigin:     s.checkOrigin,
	}
}

// isPortAvailable checks if a port is available for binding
func isPortAvailable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	_ = listener.Close() // best-effort check, the real bind follows
	return true
}

// findAvailablePort tries the requested port, then the default port, then
// the ten ports after the requested one
func findAvailablePort(requestedPort int) (int, error) {
	if requestedPort == 0 || isPortAvailable(requestedPort) {
		return requestedPort, nil
	}
	if requestedPort != am.DefaultServerPort && isPortAvailable(am.DefaultServerPort) {
		return am.DefaultServerPort, nil
	}
	for i := 1; i <= 10; i++ {
		if isPortAvailable(requestedPort + i) {
			return requestedPort + i, nil
		}
	}
	return 0, errors.Newf("no available ports found (tried %d, %d, and %d-%d)",
		requestedPort, am.DefaultServerPort, requestedPort+1, requestedPort+10)
}
