package am

import (
	"github.com/teranos/topicmap/errors"
)

// Validate checks the configuration for values the engine cannot run with
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.Newf("server.port must be between 0 and 65535, got %d", c.Server.Port)
	}
	if c.Topicmap.DetailDebounceMS < 0 {
		return errors.Newf("topicmap.detail_debounce_ms must be >= 0, got %d", c.Topicmap.DetailDebounceMS)
	}
	if c.Topicmap.AnimationTimeoutMS < 0 {
		return errors.Newf("topicmap.animation_timeout_ms must be >= 0, got %d", c.Topicmap.AnimationTimeoutMS)
	}
	if c.Persist.MaxRequestsPerSecond < 0 {
		return errors.Newf("persist.max_requests_per_second must be >= 0, got %v", c.Persist.MaxRequestsPerSecond)
	}
	if c.Persist.QueueSize < 0 {
		return errors.Newf("persist.queue_size must be >= 0, got %d", c.Persist.QueueSize)
	}
	return nil
}
