package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/topicmap/am"
	"github.com/teranos/topicmap/internal/util"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage topicmap configuration",
	Long: `am - Manage topicmap configuration ("I am")

Configuration sources (later overrides earlier):
1. Default values
2. System config (/etc/topicmap/am.toml)
3. User config (~/.topicmap/am.toml)
4. UI overrides (~/.topicmap/am_from_ui.toml)
5. Project config (./am.toml, searched up the directory tree)
6. Environment variables (TOPICMAP_* prefix)

Examples:
  topicmap am show                     # Show current configuration
  topicmap am show --format json       # Show configuration in JSON format
  topicmap am validate                 # Validate current configuration
  topicmap am set --fisheye=false      # Persist an engine toggle`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the effective topicmap configuration merged from all sources",
	RunE:  runAmShow,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var amSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Persist engine toggles to the UI overrides file",
	Long: `Write topicmap engine settings to ~/.topicmap/am_from_ui.toml.
Running servers pick the change up for sessions started afterwards.`,
	RunE: runAmSet,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	RunE:  runAmWhere,
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	amSetCmd.Flags().Bool("restore-animation", true, "Animate topics back after a detail closes")
	amSetCmd.Flags().Bool("fisheye", true, "Relayout around details when they change size")
	amSetCmd.Flags().Int("detail-debounce-ms", 80, "Debounce window for detail size sync")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amSetCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	if _, err := am.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return writeSettings(cmd.OutOrStdout(), am.AllSettings(), configFormat)
}

// writeSettings renders nested settings in the requested format
func writeSettings(w io.Writer, settings map[string]interface{}, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(settings, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Fprintln(w, string(data))

	case "yaml":
		data, err := yaml.Marshal(settings)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		fmt.Fprintf(w, "# topicmap configuration\n%s", string(data))

	case "toml":
		fmt.Fprintln(w, "# topicmap configuration")
		if err := toml.NewEncoder(w).Encode(settings); err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}

	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", format)
	}
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	pterm.Success.Println("Configuration is valid")
	return nil
}

func runAmSet(cmd *cobra.Command, args []string) error {
	var s am.TopicmapSettings
	flags := cmd.Flags()
	if flags.Changed("restore-animation") {
		v, _ := flags.GetBool("restore-animation")
		s.RestoreAnimation = util.Ptr(v)
	}
	if flags.Changed("fisheye") {
		v, _ := flags.GetBool("fisheye")
		s.Fisheye = util.Ptr(v)
	}
	if flags.Changed("detail-debounce-ms") {
		v, _ := flags.GetInt("detail-debounce-ms")
		s.DetailDebounceMS = util.Ptr(v)
	}
	if s.RestoreAnimation == nil && s.Fisheye == nil && s.DetailDebounceMS == nil {
		return fmt.Errorf("nothing to set (see --help for settings)")
	}
	if err := am.SaveTopicmapSettings(s); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	pterm.Success.Printf("Saved to %s\n", am.GetUIConfigPath())
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Configuration files (later overrides earlier):")
	for _, path := range am.ConfigPaths() {
		status := pterm.Gray("missing")
		if _, err := os.Stat(path); err == nil {
			status = pterm.Green("found")
		}
		fmt.Fprintf(out, "  %-50s %s\n", path, status)
	}
	fmt.Fprintln(out, "  TOPICMAP_* environment variables override all files")
	return nil
}
