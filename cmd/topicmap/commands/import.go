package commands

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/fixture"
	"github.com/teranos/topicmap/logger"
	"github.com/teranos/topicmap/persist/sqlstore"
)

// ImportCmd loads fixture files into the database
var ImportCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import topics, associations and topicmaps from YAML or TOML files",
	Long: `Import fixture files into the topicmap database.

Files are validated completely before anything is written. Objects and
topicmaps already present are replaced. Import stops at the first failure.

Examples:
  topicmap import maps.yaml
  topicmap import --db-path /tmp/maps.db kitchen.toml shared.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	ImportCmd.Flags().String("db-path", "", "Database path (overrides config)")
}

func runImport(cmd *cobra.Command, args []string) error {
	// Validate every file before opening the database
	files := make([]*fixture.File, 0, len(args))
	for _, path := range args {
		f, err := fixture.Load(path)
		if err != nil {
			return err
		}
		files = append(files, f)
	}

	database, dbPath, err := openDatabase(dbPathFlag(cmd))
	if err != nil {
		return err
	}
	defer database.Close()

	store := sqlstore.New(database)
	log := logger.Logger.Named("import")
	ctx := context.Background()

	var total fixture.Stats
	for i, f := range files {
		st, err := fixture.Import(ctx, store, f, log)
		if err != nil {
			return errors.Wrapf(err, "import %s", args[i])
		}
		total.Types += st.Types
		total.Topics += st.Topics
		total.Assocs += st.Assocs
		total.Topicmaps += st.Topicmaps
		total.Entries += st.Entries
	}

	pterm.Success.Printf("Imported %d file(s) into %s\n", len(files), dbPath)
	pterm.Printf("  %d types, %d topics, %d associations, %d topicmaps (%d entries)\n",
		total.Types, total.Topics, total.Assocs, total.Topicmaps, total.Entries)
	return nil
}
