package am

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "topicmap.db")

	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	})
	v.SetDefault("server.log_theme", "everforest")

	v.SetDefault("topicmap.restore_animation", true)
	v.SetDefault("topicmap.fisheye", true)
	v.SetDefault("topicmap.detail_debounce_ms", 80)
	v.SetDefault("topicmap.animation_timeout_ms", 3000)
	v.SetDefault("topicmap.default_position.x", 200)
	v.SetDefault("topicmap.default_position.y", 240)
	v.SetDefault("topicmap.position_offset.x", 60)
	v.SetDefault("topicmap.position_offset.y", 120)

	v.SetDefault("persist.max_requests_per_second", 50.0)
	v.SetDefault("persist.queue_size", 256)
}

// BindEnvVars explicitly binds settings commonly overridden per environment
func BindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("database.path", "TOPICMAP_DATABASE_PATH")
	_ = v.BindEnv("server.port", "TOPICMAP_SERVER_PORT")
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "topicmap.db"
	}
	return c.Database.Path
}

// GetServerPort returns the configured port or DefaultServerPort
func (c *Config) GetServerPort() int {
	if c.Server.Port == 0 {
		return DefaultServerPort
	}
	return c.Server.Port
}

// GetServerLogTheme returns the log theme (default: everforest)
func (c *Config) GetServerLogTheme() string {
	if c.Server.LogTheme == "" {
		return "everforest"
	}
	return c.Server.LogTheme
}
