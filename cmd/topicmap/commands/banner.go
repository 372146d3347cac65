package commands

import (
	"github.com/pterm/pterm"

	"github.com/teranos/topicmap/logger"
	"github.com/teranos/topicmap/version"
)

// printStartupBanner prints the user-friendly startup message
func printStartupBanner(verbosity int, dbPath string) {
	if !logger.ShouldOutput(verbosity, logger.OutputStartup) {
		return
	}
	info := version.Get()

	pterm.DefaultHeader.WithFullWidth().Println("topicmap")
	pterm.Printf("%s %s (commit %s)\n", pterm.Cyan("Version:  "), info.Version, info.Short())
	pterm.Printf("%s %s\n", pterm.Cyan("Built:    "), info.BuildTime)
	pterm.Printf("%s %s\n", pterm.Cyan("Protocol: "), info.Protocol)
	pterm.Printf("%s %s\n", pterm.Cyan("Verbosity:"), logger.LevelName(verbosity))
	if dbPath != "" {
		pterm.Printf("%s %s\n", pterm.Cyan("Database: "), dbPath)
	}
	pterm.Println()
	pterm.Println(pterm.Gray("Press Ctrl+C to stop"))
}
