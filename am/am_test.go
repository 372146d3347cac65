package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/topicmap/internal/util"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	if err != nil {
		t.Fatalf("LoadWithViper() failed: %v", err)
	}

	if cfg.Database.Path != "topicmap.db" {
		t.Errorf("expected default database path 'topicmap.db', got %q", cfg.Database.Path)
	}
	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("expected default port %d, got %d", DefaultServerPort, cfg.Server.Port)
	}
	if !cfg.Topicmap.RestoreAnimation || !cfg.Topicmap.Fisheye {
		t.Error("expected restore animation and fisheye enabled by default")
	}
	if cfg.Topicmap.DefaultPosition != (Point{X: 200, Y: 240}) {
		t.Errorf("unexpected default position %+v", cfg.Topicmap.DefaultPosition)
	}
	if cfg.Topicmap.PositionOffset != (Point{X: 60, Y: 120}) {
		t.Errorf("unexpected position offset %+v", cfg.Topicmap.PositionOffset)
	}
	if cfg.Topicmap.DetailDebounce().Milliseconds() != 80 {
		t.Errorf("unexpected debounce %v", cfg.Topicmap.DetailDebounce())
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")
	content := `
[database]
path = "maps.db"

[topicmap]
fisheye = false
detail_debounce_ms = 20

[topicmap.position_offset]
x = 10
y = 15
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "maps.db", cfg.GetDatabasePath())
	assert.False(t, cfg.Topicmap.Fisheye)
	assert.True(t, cfg.Topicmap.RestoreAnimation, "unset keys keep defaults")
	assert.Equal(t, 20, cfg.Topicmap.DetailDebounceMS)
	assert.Equal(t, Point{X: 10, Y: 15}, cfg.Topicmap.PositionOffset)
	assert.Equal(t, Point{X: 200, Y: 240}, cfg.Topicmap.DefaultPosition)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")
	require.NoError(t, os.WriteFile(path, []byte("[topicmap]\ndetail_debounce_ms = -5\n"), 0644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detail_debounce_ms")
}

func TestMergeConfigFiles_Precedence(t *testing.T) {
	dir := t.TempDir()
	low := filepath.Join(dir, "system.toml")
	high := filepath.Join(dir, "project.toml")
	require.NoError(t, os.WriteFile(low, []byte("[server]\nport = 9000\nlog_theme = \"gruvbox\"\n"), 0644))
	require.NoError(t, os.WriteFile(high, []byte("[server]\nport = 9100\n"), 0644))

	v := viper.New()
	SetDefaults(v)
	mergeConfigFiles(v, []string{low, filepath.Join(dir, "missing.toml"), high})

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.GetServerPort())
	assert.Equal(t, "gruvbox", cfg.GetServerLogTheme())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "zero values are valid", config: Config{}},
		{name: "negative port", config: Config{Server: ServerConfig{Port: -1}}, wantErr: true},
		{name: "port out of range", config: Config{Server: ServerConfig{Port: 70000}}, wantErr: true},
		{name: "negative debounce", config: Config{Topicmap: TopicmapConfig{DetailDebounceMS: -1}}, wantErr: true},
		{name: "negative animation timeout", config: Config{Topicmap: TopicmapConfig{AnimationTimeoutMS: -1}}, wantErr: true},
		{name: "negative rate", config: Config{Persist: PersistConfig{MaxRequestsPerSecond: -2}}, wantErr: true},
		{name: "zero rate means unlimited", config: Config{Persist: PersistConfig{MaxRequestsPerSecond: 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveTopicmapSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".topicmap", uiConfigName)

	require.NoError(t, saveTopicmapSettingsAt(path, TopicmapSettings{Fisheye: util.Ptr(false)}))
	require.NoError(t, saveTopicmapSettingsAt(path, TopicmapSettings{DetailDebounceMS: util.Ptr(120)}))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.False(t, cfg.Topicmap.Fisheye, "first write survives second")
	assert.Equal(t, 120, cfg.Topicmap.DetailDebounceMS)

	_, err = os.Stat(path + ".back1")
	assert.NoError(t, err, "second write rotates a backup")

	err = saveTopicmapSettingsAt(path, TopicmapSettings{DetailDebounceMS: util.Ptr(-1)})
	assert.Error(t, err)
}
