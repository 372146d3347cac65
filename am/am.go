package am

import "time"

// Config represents the topicmap configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Topicmap TopicmapConfig `mapstructure:"topicmap"`
	Persist  PersistConfig  `mapstructure:"persist"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the topicmap server
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	LogTheme       string   `mapstructure:"log_theme"` // gruvbox, everforest
}

// Server port constants
const (
	DefaultServerPort = 8877
)

// Point is a configured 2D coordinate
type Point struct {
	X float64 `mapstructure:"x"`
	Y float64 `mapstructure:"y"`
}

// TopicmapConfig configures the synchronization engine of each session
type TopicmapConfig struct {
	RestoreAnimation   bool  `mapstructure:"restore_animation"`    // animate topics back to model positions after a detail closes
	Fisheye            bool  `mapstructure:"fisheye"`              // local relayout after a detail changes size
	DetailDebounceMS   int   `mapstructure:"detail_debounce_ms"`   // debounce window for detail size sync
	AnimationTimeoutMS int   `mapstructure:"animation_timeout_ms"` // upper bound for renderer animation acks
	DefaultPosition    Point `mapstructure:"default_position"`     // position of revealed topics when nothing is selected
	PositionOffset     Point `mapstructure:"position_offset"`      // offset from the selected topic for revealed topics
}

// DetailDebounce returns the debounce window as a duration
func (c TopicmapConfig) DetailDebounce() time.Duration {
	return time.Duration(c.DetailDebounceMS) * time.Millisecond
}

// AnimationTimeout returns the animation ack timeout as a duration
func (c TopicmapConfig) AnimationTimeout() time.Duration {
	return time.Duration(c.AnimationTimeoutMS) * time.Millisecond
}

// PersistConfig configures the outbound persistence writer
type PersistConfig struct {
	MaxRequestsPerSecond float64 `mapstructure:"max_requests_per_second"` // 0 = unlimited
	QueueSize            int     `mapstructure:"queue_size"`
}

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
