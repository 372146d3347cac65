package server

import (
	"time"

	"github.com/teranos/topicmap/detail"
	"github.com/teranos/topicmap/directive"
	"github.com/teranos/topicmap/events"
	"github.com/teranos/topicmap/session"
	"github.com/teranos/topicmap/topicmap"
)

const (
	// MaxClients is the maximum number of concurrent WebSocket clients
	MaxClients = 100
	// MaxClientMessageQueueSize is the size of per-client message queues
	MaxClientMessageQueueSize = 256
	// ShutdownTimeout is how long to wait for graceful shutdown
	ShutdownTimeout = 15 * time.Second
)

// ServerState represents the server lifecycle state
type ServerState int

const (
	ServerStateRunning  ServerState = iota // Normal operation
	ServerStateDraining                    // Graceful shutdown in progress
	ServerStateStopped                     // Shutdown complete
)

// Client message types
const (
	MsgHello                 = "hello"
	MsgPing                  = "ping"
	MsgRenderTopicmap        = "render_topicmap"
	MsgRevealTopic           = "reveal_topic"
	MsgRevealAssoc           = "reveal_assoc"
	MsgRevealRelatedTopic    = "reveal_related_topic"
	MsgSelect                = "select"
	MsgUnselect              = "unselect"
	MsgSetTopicPosition      = "set_topic_position"
	MsgSetTopicPositions     = "set_topic_positions"
	MsgHideMulti             = "hide_multi"
	MsgDeleteMulti           = "delete_multi"
	MsgSetPinned             = "set_pinned"
	MsgRenderAsSelected      = "render_as_selected"
	MsgRenderAsUnselected    = "render_as_unselected"
	MsgRemoveSelectionDetail = "remove_selection_detail"
	MsgSyncDetailSize        = "sync_detail_size"
	MsgSyncViewport          = "sync_viewport"
	MsgSyncNodePosition      = "sync_node_position"
	MsgReport                = "report"
)

// ClientMessage is a message from a browser client. Which fields are set
// depends on Type.
type ClientMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"` // echoed in the ack
	Protocol  string `json:"protocol,omitempty"`   // hello

	TopicmapID  topicmap.ID           `json:"topicmap_id,omitempty"`
	ID          topicmap.ID           `json:"id,omitempty"`
	IDs         []topicmap.ID         `json:"ids,omitempty"`
	Lists       topicmap.IDLists      `json:"lists"`
	Topic       *topicmap.Topic       `json:"topic,omitempty"`
	Assoc       *topicmap.Assoc       `json:"assoc,omitempty"`
	Related     *session.RelatedTopic `json:"related,omitempty"`
	Pos         *topicmap.Point       `json:"pos,omitempty"`
	Coords      []topicmap.TopicCoord `json:"coords,omitempty"`
	Pan         topicmap.Point        `json:"pan"`
	Zoom        float64               `json:"zoom,omitempty"`
	Pinned      bool                  `json:"pinned,omitempty"`
	ShowDetails bool                  `json:"show_details,omitempty"`
	AutoPan     bool                  `json:"auto_pan,omitempty"`
	Event       *events.Event         `json:"event,omitempty"`
}

// WelcomeMessage answers an accepted hello
type WelcomeMessage struct {
	Type      string `json:"type"` // "welcome"
	SessionID string `json:"session_id"`
	Protocol  string `json:"protocol"`
	Version   string `json:"version"`
}

// AckMessage answers a client message carrying a request ID
type AckMessage struct {
	Type      string            `json:"type"` // "ack"
	RequestID string            `json:"request_id"`
	Reveal    string            `json:"reveal,omitempty"`
	Error     map[string]string `json:"error,omitempty"`
}

// ErrorMessage reports a failure that has no request to answer
type ErrorMessage struct {
	Type  string            `json:"type"` // "error"
	Error map[string]string `json:"error"`
}

// EventMessage forwards a session event to the host
type EventMessage struct {
	Type  string       `json:"type"` // "event"
	Event events.Event `json:"event"`
}

// DetailMessage forwards a detail snapshot to the host
type DetailMessage struct {
	Type   string          `json:"type"` // "detail"
	Detail detail.Snapshot `json:"detail"`
}

// HealthResponse is returned by /health
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Protocol string `json:"protocol"`
	Clients  int    `json:"clients"`
	State    string `json:"state"`
}

// TopicmapResponse is a topicmap as served by /api/topicmaps/{id}
type TopicmapResponse struct {
	ID       topicmap.ID           `json:"id"`
	Name     string                `json:"name"`
	Writable bool                  `json:"writable"`
	Viewport topicmap.Viewport     `json:"viewport"`
	Topics   []directive.ViewTopic `json:"topics"`
	Assocs   []directive.ViewAssoc `json:"assocs"`
}

// DirectivesResponse reports a directive broadcast
type DirectivesResponse struct {
	Directives int `json:"directives"`
	Sessions   int `json:"sessions"`
}
