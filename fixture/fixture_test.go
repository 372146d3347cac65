package fixture

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/topicmap/errors"
	tmtest "github.com/teranos/topicmap/internal/testing"
	"github.com/teranos/topicmap/persist/sqlstore"
	"github.com/teranos/topicmap/topicmap"
)

func TestLoad_FormatsAgree(t *testing.T) {
	fromYAML, err := Load(filepath.Join("testdata", "notes.yaml"))
	require.NoError(t, err)
	fromTOML, err := Load(filepath.Join("testdata", "notes.toml"))
	require.NoError(t, err)

	assert.Equal(t, fromYAML, fromTOML)
	require.Len(t, fromYAML.Topicmaps, 2)
	assert.Equal(t, 1.5, fromYAML.Topicmaps[0].Zoom)
	assert.Equal(t, "pancakes", fromYAML.Topics[1].Fields["body"])
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"maps.yaml", FormatYAML, true},
		{"maps.YML", FormatYAML, true},
		{"dir/maps.toml", FormatTOML, true},
		{"maps.json", "", false},
		{"maps", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatOf(tt.path)
			if !tt.ok {
				assert.True(t, errors.IsInvalidRequestError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "topics:\n  - {id: 1, type: t, colour: red}\n"},
		{"not yaml", "topics: [\n"},
		{"type without uri", "types:\n  - {kind: topic}\n"},
		{"bad type kind", "types:\n  - {uri: t, kind: node}\n"},
		{"zero id", "topics:\n  - {id: 0, type: t}\n"},
		{"duplicate id", "topics:\n  - {id: 1, type: t}\nassocs:\n  - {id: 1, type: a, player1: {id: 1}, player2: {id: 1}}\n"},
		{"topic of assoc type", "types:\n  - {uri: a, kind: assoc}\ntopics:\n  - {id: 1, type: a}\n"},
		{"dangling player", "topics:\n  - {id: 1, type: t}\nassocs:\n  - {id: 2, type: a, player1: {id: 1}, player2: {id: 9}}\n"},
		{"wrong player kind", "topics:\n  - {id: 1, type: t}\n  - {id: 2, type: t}\nassocs:\n  - {id: 3, type: a, player1: {id: 1, kind: assoc}, player2: {id: 2}}\n"},
		{"map lists assoc as topic", "topics:\n  - {id: 1, type: t}\n  - {id: 2, type: t}\nassocs:\n  - {id: 3, type: a, player1: {id: 1}, player2: {id: 2}}\ntopicmaps:\n  - {id: 9, name: m, topics: [{id: 3}]}\n"},
		{"map lists missing object", "topicmaps:\n  - {id: 9, name: m, topics: [{id: 1}]}\n"},
		{"duplicate map", "topicmaps:\n  - {id: 9, name: a}\n  - {id: 9, name: b}\n"},
		{"negative zoom", "topicmaps:\n  - {id: 9, name: a, zoom: -1}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), FormatYAML)
			require.Error(t, err)
			assert.True(t, errors.IsInvalidRequestError(err), "got %v", err)
		})
	}
}

func TestParse_TOMLRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("[[topics]]\nid = 1\ntype = \"t\"\ncolour = \"red\"\n"), FormatTOML)
	assert.True(t, errors.IsInvalidRequestError(err), "got %v", err)
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	store := sqlstore.New(tmtest.CreateMigratedTestDB(t))
	f, err := Load(filepath.Join("testdata", "notes.yaml"))
	require.NoError(t, err)

	st, err := Import(ctx, store, f, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	assert.Equal(t, Stats{Types: 2, Topics: 3, Assocs: 2, Topicmaps: 2, Entries: 6}, st)

	loaded, err := store.FetchTopicmap(ctx, 100)
	require.NoError(t, err)
	m := loaded.Topicmap
	assert.True(t, loaded.Writable)
	assert.Equal(t, "Kitchen", m.Name)
	assert.Equal(t, topicmap.Viewport{Pan: topicmap.Point{X: 20, Y: -10}, Zoom: 1.5}, m.Viewport())

	vt, err := m.Topic(2)
	require.NoError(t, err)
	assert.True(t, vt.Visible)
	assert.True(t, vt.Pinned)
	assert.Equal(t, topicmap.Point{X: 250, Y: 50}, vt.Pos)

	vt, err = m.Topic(3)
	require.NoError(t, err)
	assert.False(t, vt.Visible)

	va, err := m.Assoc(11)
	require.NoError(t, err)
	assert.False(t, va.Visible)
	assert.Equal(t, topicmap.KindAssoc, va.Player1.Kind, "player kinds are resolved on import")

	shared, err := store.FetchTopicmap(ctx, 200)
	require.NoError(t, err)
	assert.False(t, shared.Writable)
	assert.Equal(t, 1.0, shared.Topicmap.Viewport().Zoom)

	obj, err := store.FetchObject(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "pancakes", obj.Fields["body"])

	writable, err := store.IsWritable(ctx, 3)
	require.NoError(t, err)
	assert.False(t, writable)

	// importing again replaces rows
	_, err = Import(ctx, store, f, nil)
	require.NoError(t, err)
	list, err := store.ListTopicmaps(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestImport_StopsAtFirstFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO types").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO types").WillReturnError(errors.New("disk I/O error"))

	f, err := Load(filepath.Join("testdata", "notes.yaml"))
	require.NoError(t, err)

	st, err := Import(context.Background(), sqlstore.New(db), f, zaptest.NewLogger(t).Sugar())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.Equal(t, Stats{Types: 1}, st)
	assert.NoError(t, mock.ExpectationsWereMet())
}
