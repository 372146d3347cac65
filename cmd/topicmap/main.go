package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/topicmap/cmd/topicmap/commands"
	"github.com/teranos/topicmap/logger"
)

var rootCmd = &cobra.Command{
	Use:   "topicmap",
	Short: "topicmap - topicmap view/model synchronization server",
	Long: `topicmap - serves topicmaps to browser clients and keeps each client's
view, its model and the store in sync.

Available commands:
  serve   - Start the topicmap server
  am      - Manage topicmap configuration ("I am")
  db      - Manage the topicmap database
  import  - Import topicmap fixtures (YAML or TOML)
  maps    - List and inspect stored topicmaps
  version - Show version information

Examples:
  topicmap serve -v                 # Start the server with info logging
  topicmap import notes.yaml        # Load a fixture into the database
  topicmap maps ls                  # List stored topicmaps
  topicmap am show --format json    # Show the effective configuration`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 'am show' prints machine-readable output only
		if cmd.Name() == "show" && cmd.Parent() != nil && cmd.Parent().Name() == "am" {
			return nil
		}
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.ImportCmd)
	rootCmd.AddCommand(commands.MapsCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
