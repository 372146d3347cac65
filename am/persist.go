package am

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/topicmap/errors"
)

const uiConfigName = "am_from_ui.toml"

// GetUIConfigPath returns the path of the UI-managed overrides file
func GetUIConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".topicmap", uiConfigName)
}

// createBackup rotates .back1 -> .back2 -> .back3 before modifying configPath
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil
	}

	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete oldest backup")
	}
	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}
	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}
	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}
	return nil
}

func loadUIConfig(configPath string) (map[string]interface{}, error) {
	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return nil, errors.Wrap(err, "failed to create config directory")
	}

	config := make(map[string]interface{})
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read UI config")
	}
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(err, "failed to parse UI config")
	}
	return config, nil
}

func saveUIConfig(config map[string]interface{}, configPath string) error {
	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	globalWatcherMu.Lock()
	if globalWatcher != nil {
		globalWatcher.MarkOwnWrite()
	}
	globalWatcherMu.Unlock()

	if err := os.WriteFile(configPath, data, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to write UI config")
	}
	return nil
}

// TopicmapSettings are the engine toggles a client may change at runtime
type TopicmapSettings struct {
	RestoreAnimation *bool `json:"restore_animation,omitempty"`
	Fisheye          *bool `json:"fisheye,omitempty"`
	DetailDebounceMS *int  `json:"detail_debounce_ms,omitempty"`
}

// SaveTopicmapSettings writes the non-nil settings into the UI overrides file
func SaveTopicmapSettings(s TopicmapSettings) error {
	path := GetUIConfigPath()
	if path == "" {
		return errors.New("could not determine home directory")
	}
	return saveTopicmapSettingsAt(path, s)
}

func saveTopicmapSettingsAt(path string, s TopicmapSettings) error {
	config, err := loadUIConfig(path)
	if err != nil {
		return err
	}

	section, ok := config["topicmap"].(map[string]interface{})
	if !ok {
		section = make(map[string]interface{})
	}
	if s.RestoreAnimation != nil {
		section["restore_animation"] = *s.RestoreAnimation
	}
	if s.Fisheye != nil {
		section["fisheye"] = *s.Fisheye
	}
	if s.DetailDebounceMS != nil {
		if *s.DetailDebounceMS < 0 {
			return errors.Newf("detail_debounce_ms must be >= 0, got %d", *s.DetailDebounceMS)
		}
		section["detail_debounce_ms"] = *s.DetailDebounceMS
	}
	config["topicmap"] = section

	return saveUIConfig(config, path)
}
