package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/topicmap/display"
	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/persist/sqlstore"
	"github.com/teranos/topicmap/topicmap"
)

// MapsCmd inspects stored topicmaps
var MapsCmd = &cobra.Command{
	Use:   "maps",
	Short: "Inspect stored topicmaps",
}

var mapsLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List topicmaps",
	RunE:    runMapsLs,
}

var mapsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the topics and associations of a topicmap",
	Args:  cobra.ExactArgs(1),
	RunE:  runMapsShow,
}

func init() {
	MapsCmd.PersistentFlags().String("db-path", "", "Database path (overrides config)")
	mapsLsCmd.Flags().Bool("json", false, "Output as JSON")
	MapsCmd.AddCommand(mapsLsCmd)
	MapsCmd.AddCommand(mapsShowCmd)
}

func runMapsLs(cmd *cobra.Command, args []string) error {
	database, _, err := openDatabase(dbPathFlag(cmd))
	if err != nil {
		return err
	}
	defer database.Close()

	list, err := sqlstore.New(database).ListTopicmaps(context.Background())
	if err != nil {
		return err
	}
	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(cmd.OutOrStdout(), list)
	}
	if len(list) == 0 {
		pterm.Info.Println("No topicmaps (load some with: topicmap import <file>)")
		return nil
	}

	data := pterm.TableData{{"ID", "Name", "Writable", "Topics", "Assocs"}}
	for _, m := range list {
		data = append(data, []string{
			fmt.Sprintf("%d", m.ID),
			m.Name,
			strconv.FormatBool(m.Writable),
			fmt.Sprintf("%d", m.TopicCount),
			fmt.Sprintf("%d", m.AssocCount),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func runMapsShow(cmd *cobra.Command, args []string) error {
	raw, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidRequest, "invalid topicmap id %q", args[0])
	}

	database, _, err := openDatabase(dbPathFlag(cmd))
	if err != nil {
		return err
	}
	defer database.Close()

	loaded, err := sqlstore.New(database).FetchTopicmap(context.Background(), topicmap.ID(raw))
	if err != nil {
		return err
	}
	m := loaded.Topicmap
	vp := m.Viewport()

	pterm.DefaultSection.Printf("%s (#%d)", m.Name, m.ID)
	pterm.Printf("writable: %t  pan: (%.0f, %.0f)  zoom: %.2f\n\n", loaded.Writable, vp.Pan.X, vp.Pan.Y, vp.Zoom)

	data := pterm.TableData{{"Kind", "ID", "Type", "Value", "Position", "Flags"}}
	for _, vt := range m.Topics() {
		data = append(data, []string{
			"topic",
			fmt.Sprintf("%d", vt.ID),
			vt.TypeURI,
			vt.Value,
			fmt.Sprintf("(%.0f, %.0f)", vt.Pos.X, vt.Pos.Y),
			flags(vt.Visible, vt.Pinned),
		})
	}
	for _, va := range m.Assocs() {
		data = append(data, []string{
			"assoc",
			fmt.Sprintf("%d", va.ID),
			va.TypeURI,
			va.Value,
			fmt.Sprintf("%d - %d", va.Player1.ID, va.Player2.ID),
			flags(va.Visible, va.Pinned),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func flags(visible, pinned bool) string {
	s := ""
	if !visible {
		s += "hidden "
	}
	if pinned {
		s += "pinned"
	}
	return s
}
