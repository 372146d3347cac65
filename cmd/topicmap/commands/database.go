package commands

import (
	"database/sql"

	"github.com/teranos/topicmap/am"
	"github.com/teranos/topicmap/db"
	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/logger"
)

// resolveDatabasePath returns dbPath, or the configured path when dbPath is empty
func resolveDatabasePath(dbPath string) (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	cfg, err := am.Load()
	if err != nil {
		return "", errors.Wrap(err, "failed to load config")
	}
	return cfg.GetDatabasePath(), nil
}

// openDatabase opens and migrates a database using the specified path.
// If dbPath is empty, it loads from am config. Uses logger.Logger for db operations.
func openDatabase(dbPath string) (*sql.DB, string, error) {
	path, err := resolveDatabasePath(dbPath)
	if err != nil {
		return nil, "", err
	}

	database, err := db.Open(path, logger.Logger.Named("db"))
	if err != nil {
		return nil, "", errors.Wrapf(err, "failed to open database at %s", path)
	}

	if err := db.Migrate(database, logger.Logger.Named("db")); err != nil {
		database.Close()
		return nil, "", errors.Wrapf(err, "failed to run migrations on %s", path)
	}

	return database, path, nil
}
