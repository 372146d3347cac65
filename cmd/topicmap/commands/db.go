package commands

import (
	"database/sql"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/topicmap/display"
	"github.com/teranos/topicmap/errors"
)

// DbCmd represents the db command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the topicmap database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, path, err := openDatabase(dbPathFlag(cmd))
		if err != nil {
			return err
		}
		defer database.Close()

		pterm.Success.Printf("Database %s is up to date\n", path)
		return nil
	},
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show row counts of the database",
	RunE:  runDbStats,
}

func init() {
	DbCmd.PersistentFlags().String("db-path", "", "Database path (overrides config)")
	DbCmd.AddCommand(dbMigrateCmd)
	dbStatsCmd.Flags().Bool("json", false, "Output as JSON")
	DbCmd.AddCommand(dbStatsCmd)
}

// dbPathFlag returns the --db-path flag, empty when unset
func dbPathFlag(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("db-path")
	return path
}

// statTables are the tables counted by db stats, in display order
var statTables = []string{"types", "topics", "assocs", "topicmaps", "map_topics", "map_assocs"}

func countRows(database *sql.DB) (map[string]int, error) {
	counts := make(map[string]int, len(statTables))
	for _, table := range statTables {
		var n int
		// table names come from statTables only
		if err := database.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			return nil, errors.Wrapf(err, "count %s", table)
		}
		counts[table] = n
	}
	return counts, nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	database, path, err := openDatabase(dbPathFlag(cmd))
	if err != nil {
		return err
	}
	defer database.Close()

	counts, err := countRows(database)
	if err != nil {
		return err
	}
	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(cmd.OutOrStdout(), counts)
	}

	data := pterm.TableData{{"Table", "Rows"}}
	for _, table := range statTables {
		data = append(data, []string{table, fmt.Sprintf("%d", counts[table])})
	}
	pterm.Info.Printf("Database: %s\n", path)
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
