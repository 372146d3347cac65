package server

// HTTP handlers:
// - WebSocket connections (HandleWebSocket)
// - Health checks (HandleHealth)
// - Topicmap listing and loading (HandleTopicmaps, HandleTopicmap)
// - Push directives (HandleDirectives)

import (
	"io"
	"net/http"
	"strconv"

	"github.com/teranos/topicmap/directive"
	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/logger"
	"github.com/teranos/topicmap/topicmap"
	"github.com/teranos/topicmap/topicmap/maperr"
	"github.com/teranos/topicmap/version"
)

// maxDirectiveBody bounds a POSTed directive batch
const maxDirectiveBody = 4 << 20

// HandleWebSocket upgrades the connection and starts a session for it
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.getState() != ServerStateRunning {
		writeError(w, http.StatusServiceUnavailable, "Server is shutting down")
		return
	}

	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		me := maperr.New(maperr.CategoryWebSocket, err, "Failed to upgrade WebSocket connection").
			WithSubcategory(maperr.SubcategoryWSUpgrade)
		s.logger.Errorw("WebSocket upgrade failed", me.ToLogFields()...)
		return
	}

	client, err := s.newClient(conn)
	if err != nil {
		s.logger.Errorw("Failed to start client session", logger.FieldError, err)
		conn.Close()
		return
	}

	select {
	case s.register <- client:
	case <-s.ctx.Done():
		client.close()
		conn.Close()
		return
	}

	for _, pump := range []func(){client.writePump, client.opPump, client.forwardPump, client.readPump} {
		s.wg.Add(1)
		go func(run func()) {
			defer s.wg.Done()
			run()
		}(pump)
	}
}

// HandleHealth reports server status
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	info := version.Get()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Version:  info.Version,
		Protocol: version.Protocol,
		Clients:  s.ClientCount(),
		State:    stateString(s.getState()),
	})
}

// HandleTopicmaps lists stored topicmaps (GET /api/topicmaps)
func (s *Server) HandleTopicmaps(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	summaries, err := s.store.ListTopicmaps(r.Context())
	if err != nil {
		s.writeErr(w, "list topicmaps", err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// HandleTopicmap serves one stored topicmap (GET /api/topicmaps/{id})
func (s *Server) HandleTopicmap(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	raw, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeErr(w, "load topicmap", errors.NewInvalidRequestError("bad topicmap id %q", r.PathValue("id")))
		return
	}
	loaded, err := s.store.FetchTopicmap(r.Context(), topicmap.ID(raw))
	if err != nil {
		s.writeErr(w, "load topicmap", err)
		return
	}
	writeJSON(w, http.StatusOK, topicmapResponse(loaded.Topicmap, loaded.Writable))
}

// HandleDirectives broadcasts pushed directives to every session
// (POST /api/directives). The body is a directive or a list of them.
func (s *Server) HandleDirectives(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDirectiveBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	dirs, err := directive.Parse(body)
	if err != nil {
		s.writeErr(w, "parse directives", err)
		return
	}
	sessions := s.broadcastDirectives(dirs)
	s.logger.Infow("Directives broadcast",
		logger.FieldCount, len(dirs),
		"sessions", sessions,
	)
	writeJSON(w, http.StatusAccepted, DirectivesResponse{Directives: len(dirs), Sessions: sessions})
}

func topicmapResponse(m *topicmap.Topicmap, writable bool) TopicmapResponse {
	resp := TopicmapResponse{
		ID:       m.ID,
		Name:     m.Name,
		Writable: writable,
		Viewport: m.Viewport(),
		Topics:   []directive.ViewTopic{},
		Assocs:   []directive.ViewAssoc{},
	}
	for _, vt := range m.Topics() {
		t := directive.ViewTopic{Topic: vt.Topic(), Visible: vt.Visible, Pinned: vt.Pinned}
		if vt.HasPos {
			pos := vt.Pos
			t.Pos = &pos
		}
		resp.Topics = append(resp.Topics, t)
	}
	for _, va := range m.Assocs() {
		resp.Assocs = append(resp.Assocs, directive.ViewAssoc{Assoc: va.Assoc(), Visible: va.Visible, Pinned: va.Pinned})
	}
	return resp
}
