package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/topicmap/display"
	"github.com/teranos/topicmap/version"
)

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show topicmap version information",
	Long:  `Display version, build time, commit hash, websocket protocol and platform information for the topicmap binary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(cmd.OutOrStdout(), info)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, info.String())
		fmt.Fprintf(out, "Protocol: %s (accepts %s)\n", info.Protocol, version.ProtocolConstraint)
		fmt.Fprintf(out, "Platform: %s\n", info.Platform)
		fmt.Fprintf(out, "Go: %s\n", info.GoVersion)
		return nil
	},
}

func init() {
	VersionCmd.Flags().BoolP("json", "j", false, "Output version info as JSON")
}
