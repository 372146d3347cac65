package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/topicmap/am"
	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/logger"
	"github.com/teranos/topicmap/server"
)

// ServeCmd starts the topicmap server
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the topicmap server",
	Long: `Launch the topicmap server. Browser clients connect over /ws; each client
gets its own session rendering one topicmap at a time. Directives POSTed to
/api/directives are broadcast to every session.`,
	RunE: runServe,
}

var (
	servePort    int
	serveDBPath  string
	serveNoWatch bool
)

func init() {
	ServeCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
	ServeCmd.Flags().StringVar(&serveDBPath, "db-path", "", "Custom database path (overrides database.path)")
	ServeCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not reload configuration when am.toml changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Default to info for the server
	verbosity, _ := cmd.Flags().GetCount("verbose")
	if verbosity == 0 {
		verbosity = 1
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
	}

	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if theme := cfg.GetServerLogTheme(); theme != "" {
		logger.SetTheme(theme)
	}
	port := cfg.GetServerPort()
	if servePort != 0 {
		port = servePort
	}

	database, dbPath, err := openDatabase(serveDBPath)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	printStartupBanner(verbosity, dbPath)

	srv, err := server.New(database, cfg, logger.Logger)
	if err != nil {
		return errors.Wrap(err, "failed to create server")
	}

	if !serveNoWatch {
		if err := srv.WatchConfig(watchedConfigPath()); err != nil {
			pterm.Warning.Printf("Config reload disabled: %v\n", err)
		}
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(port, func(url string) {
			pterm.Success.Printf("Listening on %s\n", url)
		})
	}()

	// Wait for shutdown signal (Ctrl+C)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			return errors.Wrap(err, "server failed")
		}
		return nil
	case <-sigChan:
		pterm.Info.Println("Shutting down gracefully (press Ctrl+C again to force)...")

		shutdownDone := make(chan error, 1)
		go func() {
			shutdownDone <- srv.Stop()
		}()

		select {
		case err := <-shutdownDone:
			if err != nil {
				return fmt.Errorf("shutdown error: %w", err)
			}
			pterm.Success.Println("Server stopped cleanly")
			return nil
		case <-sigChan:
			pterm.Warning.Println("Force shutdown - exiting immediately")
			os.Exit(1)
			return nil
		}
	}
}

// watchedConfigPath returns the config file whose changes are reloaded, or
// "" when none exists
func watchedConfigPath() string {
	path := am.ProjectConfigPath()
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
