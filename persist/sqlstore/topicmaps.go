package sqlstore

import (
	"context"
	"database/sql"
	"sort"

	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/persist"
	"github.com/teranos/topicmap/topicmap"
)

// FetchTopicmap loads a topicmap with all of its view entries and viewport
func (s *Store) FetchTopicmap(ctx context.Context, id topicmap.ID) (*persist.Loaded, error) {
	var name string
	var panX, panY, zoom float64
	var writable int
	err := s.db.QueryRowContext(ctx,
		`SELECT name, pan_x, pan_y, zoom, writable FROM topicmaps WHERE id = ?`, id,
	).Scan(&name, &panX, &panY, &zoom, &writable)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("topicmap %d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get topicmap %d", id)
	}

	m := topicmap.New(id, name)
	m.SetViewport(topicmap.Point{X: panX, Y: panY}, zoom)

	if err := s.loadTopics(ctx, m); err != nil {
		return nil, err
	}
	if err := s.loadAssocs(ctx, m); err != nil {
		return nil, err
	}
	return &persist.Loaded{Topicmap: m, Writable: writable == 1}, nil
}

func (s *Store) loadTopics(ctx context.Context, m *topicmap.Topicmap) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.uri, t.type_uri, t.value, mt.x, mt.y, mt.visible, mt.pinned
		FROM map_topics mt
		JOIN topics t ON t.id = mt.topic_id
		WHERE mt.topicmap_id = ?
		ORDER BY t.id`, m.ID)
	if err != nil {
		return errors.Wrapf(err, "failed to list topics of topicmap %d", m.ID)
	}
	defer rows.Close()

	for rows.Next() {
		var vt topicmap.ViewTopic
		var x, y sql.NullFloat64
		var visible, pinned int
		if err := rows.Scan(&vt.ID, &vt.URI, &vt.TypeURI, &vt.Value, &x, &y, &visible, &pinned); err != nil {
			return errors.Wrap(err, "failed to scan map topic")
		}
		if x.Valid && y.Valid {
			vt.Pos = topicmap.Point{X: x.Float64, Y: y.Float64}
			vt.HasPos = true
		}
		vt.Visible, vt.Pinned = visible == 1, pinned == 1
		m.AddTopic(vt)
	}
	return rows.Err()
}

func (s *Store) loadAssocs(ctx context.Context, m *topicmap.Topicmap) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.type_uri, a.value,
		       a.player1_id, a.player1_kind, a.player1_role,
		       a.player2_id, a.player2_kind, a.player2_role,
		       ma.visible, ma.pinned
		FROM map_assocs ma
		JOIN assocs a ON a.id = ma.assoc_id
		WHERE ma.topicmap_id = ?
		ORDER BY a.id`, m.ID)
	if err != nil {
		return errors.Wrapf(err, "failed to list assocs of topicmap %d", m.ID)
	}
	defer rows.Close()

	for rows.Next() {
		var va topicmap.ViewAssoc
		var k1, k2 string
		var visible, pinned int
		if err := rows.Scan(&va.ID, &va.TypeURI, &va.Value,
			&va.Player1.ID, &k1, &va.Player1.Role,
			&va.Player2.ID, &k2, &va.Player2.Role,
			&visible, &pinned); err != nil {
			return errors.Wrap(err, "failed to scan map assoc")
		}
		va.Player1.Kind, va.Player2.Kind = topicmap.Kind(k1), topicmap.Kind(k2)
		va.Visible, va.Pinned = visible == 1, pinned == 1
		m.AddAssoc(va)
	}
	return rows.Err()
}

// ListTopicmaps returns a summary of every stored topicmap
func (s *Store) ListTopicmaps(ctx context.Context) ([]persist.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.name, m.writable,
		       (SELECT COUNT(*) FROM map_topics mt WHERE mt.topicmap_id = m.id),
		       (SELECT COUNT(*) FROM map_assocs ma WHERE ma.topicmap_id = m.id)
		FROM topicmaps m
		ORDER BY m.id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list topicmaps")
	}
	defer rows.Close()

	var summaries []persist.Summary
	for rows.Next() {
		var sum persist.Summary
		var writable int
		if err := rows.Scan(&sum.ID, &sum.Name, &writable, &sum.TopicCount, &sum.AssocCount); err != nil {
			return nil, errors.Wrap(err, "failed to scan topicmap")
		}
		sum.Writable = writable == 1
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// === Map entry writes ===

const upsertMapTopic = `
	INSERT INTO map_topics (topicmap_id, topic_id, x, y, visible, pinned)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(topicmap_id, topic_id) DO UPDATE SET
		x = COALESCE(excluded.x, map_topics.x),
		y = COALESCE(excluded.y, map_topics.y),
		visible = excluded.visible,
		pinned = excluded.pinned
`

const upsertMapAssoc = `
	INSERT INTO map_assocs (topicmap_id, assoc_id, visible, pinned)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(topicmap_id, assoc_id) DO UPDATE SET
		visible = excluded.visible,
		pinned = excluded.pinned
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func putMapTopic(ctx context.Context, db execer, mapID, topicID topicmap.ID, props persist.ViewProps) error {
	var x, y interface{}
	if props.Pos != nil {
		x, y = props.Pos.X, props.Pos.Y
	}
	_, err := db.ExecContext(ctx, upsertMapTopic,
		mapID, topicID, x, y, boolInt(props.Visible), boolInt(props.Pinned))
	if err != nil {
		return errors.Wrapf(err, "failed to add topic %d to topicmap %d", topicID, mapID)
	}
	return nil
}

func putMapAssoc(ctx context.Context, db execer, mapID, assocID topicmap.ID, props persist.ViewProps) error {
	_, err := db.ExecContext(ctx, upsertMapAssoc,
		mapID, assocID, boolInt(props.Visible), boolInt(props.Pinned))
	if err != nil {
		return errors.Wrapf(err, "failed to add assoc %d to topicmap %d", assocID, mapID)
	}
	return nil
}

// AddTopicToMap creates or replaces the topic's entry in a topicmap
func (s *Store) AddTopicToMap(ctx context.Context, mapID, topicID topicmap.ID, props persist.ViewProps) error {
	return putMapTopic(ctx, s.db, mapID, topicID, props)
}

// AddAssocToMap creates or replaces the association's entry in a topicmap
func (s *Store) AddAssocToMap(ctx context.Context, mapID, assocID topicmap.ID, props persist.ViewProps) error {
	return putMapAssoc(ctx, s.db, mapID, assocID, props)
}

// AddRelatedTopicToMap stores a related topic and its connecting association atomically
func (s *Store) AddRelatedTopicToMap(ctx context.Context, mapID, topicID, assocID topicmap.ID, topicProps *persist.ViewProps) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() // Rollback if not committed

	if topicProps != nil {
		if err := putMapTopic(ctx, tx, mapID, topicID, *topicProps); err != nil {
			return err
		}
	}
	if err := putMapAssoc(ctx, tx, mapID, assocID, persist.ViewProps{Visible: true}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func (s *Store) execOne(ctx context.Context, what string, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "failed to update %s", what)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "failed to update %s", what)
	}
	if n == 0 {
		return errors.NewNotFoundError("%s", what)
	}
	return nil
}

// SetTopicVisibility stores the visibility flag of a topic entry
func (s *Store) SetTopicVisibility(ctx context.Context, mapID, topicID topicmap.ID, visible bool) error {
	return s.execOne(ctx, mapEntry("topic", mapID, topicID),
		`UPDATE map_topics SET visible = ? WHERE topicmap_id = ? AND topic_id = ?`,
		boolInt(visible), mapID, topicID)
}

// SetAssocVisibility stores the visibility flag of an association entry
func (s *Store) SetAssocVisibility(ctx context.Context, mapID, assocID topicmap.ID, visible bool) error {
	return s.execOne(ctx, mapEntry("assoc", mapID, assocID),
		`UPDATE map_assocs SET visible = ? WHERE topicmap_id = ? AND assoc_id = ?`,
		boolInt(visible), mapID, assocID)
}

// SetPinned stores the pin flag of a topic or association entry
func (s *Store) SetPinned(ctx context.Context, mapID, id topicmap.ID, pinned bool) error {
	err := s.execOne(ctx, mapEntry("topic", mapID, id),
		`UPDATE map_topics SET pinned = ? WHERE topicmap_id = ? AND topic_id = ?`,
		boolInt(pinned), mapID, id)
	if !errors.IsNotFoundError(err) {
		return err
	}
	return s.execOne(ctx, mapEntry("object", mapID, id),
		`UPDATE map_assocs SET pinned = ? WHERE topicmap_id = ? AND assoc_id = ?`,
		boolInt(pinned), mapID, id)
}

// SetTopicPosition stores the position of a topic entry
func (s *Store) SetTopicPosition(ctx context.Context, mapID, topicID topicmap.ID, pos topicmap.Point) error {
	return s.execOne(ctx, mapEntry("topic", mapID, topicID),
		`UPDATE map_topics SET x = ?, y = ? WHERE topicmap_id = ? AND topic_id = ?`,
		pos.X, pos.Y, mapID, topicID)
}

// SetTopicPositions stores the positions of several topic entries atomically.
// Topics without an entry in the map are skipped.
func (s *Store) SetTopicPositions(ctx context.Context, mapID topicmap.ID, coords []topicmap.TopicCoord) error {
	if len(coords) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() // Rollback if not committed

	for _, c := range coords {
		_, err := tx.ExecContext(ctx,
			`UPDATE map_topics SET x = ?, y = ? WHERE topicmap_id = ? AND topic_id = ?`,
			c.X, c.Y, mapID, c.TopicID)
		if err != nil {
			return errors.Wrapf(err, "failed to update position of topic %d", c.TopicID)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// SetViewport stores the pan and zoom of a topicmap
func (s *Store) SetViewport(ctx context.Context, mapID topicmap.ID, viewport topicmap.Viewport) error {
	return s.execOne(ctx, "topicmap "+mapID.String(),
		`UPDATE topicmaps SET pan_x = ?, pan_y = ?, zoom = ?, updated_at = ? WHERE id = ?`,
		viewport.Pan.X, viewport.Pan.Y, viewport.Zoom, now(), mapID)
}

func mapEntry(kind string, mapID, id topicmap.ID) string {
	return kind + " " + id.String() + " in topicmap " + mapID.String()
}

// === Batch operations ===

// players maps association ids to the ids of their two players
type players map[topicmap.ID][2]topicmap.ID

// anchored returns the associations that transitively depend on any of roots,
// in ascending id order. roots themselves are not included.
func (p players) anchored(roots []topicmap.ID) []topicmap.ID {
	seen := make(map[topicmap.ID]bool, len(roots))
	for _, id := range roots {
		seen[id] = true
	}
	byPlayer := make(map[topicmap.ID][]topicmap.ID)
	for id, ps := range p {
		byPlayer[ps[0]] = append(byPlayer[ps[0]], id)
		if ps[1] != ps[0] {
			byPlayer[ps[1]] = append(byPlayer[ps[1]], id)
		}
	}

	var out []topicmap.ID
	queue := append([]topicmap.ID(nil), roots...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, assocID := range byPlayer[id] {
			if seen[assocID] {
				continue
			}
			seen[assocID] = true
			out = append(out, assocID)
			queue = append(queue, assocID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Store) loadPlayers(ctx context.Context, query string, args ...interface{}) (players, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list assoc players")
	}
	defer rows.Close()

	p := make(players)
	for rows.Next() {
		var id, p1, p2 topicmap.ID
		if err := rows.Scan(&id, &p1, &p2); err != nil {
			return nil, errors.Wrap(err, "failed to scan assoc players")
		}
		p[id] = [2]topicmap.ID{p1, p2}
	}
	return p, rows.Err()
}

func roots(ids topicmap.IDLists) []topicmap.ID {
	out := make([]topicmap.ID, 0, len(ids.TopicIDs)+len(ids.AssocIDs))
	out = append(out, ids.TopicIDs...)
	return append(out, ids.AssocIDs...)
}

// HideMulti hides the named objects in one topicmap, along with every
// association anchored to them
func (s *Store) HideMulti(ctx context.Context, mapID topicmap.ID, ids topicmap.IDLists) error {
	if ids.Empty() {
		return nil
	}
	p, err := s.loadPlayers(ctx, `
		SELECT a.id, a.player1_id, a.player2_id
		FROM map_assocs ma
		JOIN assocs a ON a.id = ma.assoc_id
		WHERE ma.topicmap_id = ?`, mapID)
	if err != nil {
		return err
	}
	assocIDs := append(append([]topicmap.ID(nil), ids.AssocIDs...), p.anchored(roots(ids))...)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() // Rollback if not committed

	for _, id := range assocIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE map_assocs SET visible = 0 WHERE topicmap_id = ? AND assoc_id = ?`, mapID, id); err != nil {
			return errors.Wrapf(err, "failed to hide assoc %d", id)
		}
	}
	for _, id := range ids.TopicIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE map_topics SET visible = 0 WHERE topicmap_id = ? AND topic_id = ?`, mapID, id); err != nil {
			return errors.Wrapf(err, "failed to hide topic %d", id)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// DeleteMulti deletes the named objects, and the associations anchored to
// them, from the store and from every topicmap
func (s *Store) DeleteMulti(ctx context.Context, ids topicmap.IDLists) error {
	if ids.Empty() {
		return nil
	}
	p, err := s.loadPlayers(ctx, `SELECT id, player1_id, player2_id FROM assocs`)
	if err != nil {
		return err
	}
	assocIDs := append(append([]topicmap.ID(nil), ids.AssocIDs...), p.anchored(roots(ids))...)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() // Rollback if not committed

	for _, id := range assocIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM map_assocs WHERE assoc_id = ?`, id); err != nil {
			return errors.Wrapf(err, "failed to delete map entries of assoc %d", id)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM assocs WHERE id = ?`, id); err != nil {
			return errors.Wrapf(err, "failed to delete assoc %d", id)
		}
	}
	for _, id := range ids.TopicIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM map_topics WHERE topic_id = ?`, id); err != nil {
			return errors.Wrapf(err, "failed to delete map entries of topic %d", id)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM topics WHERE id = ?`, id); err != nil {
			return errors.Wrapf(err, "failed to delete topic %d", id)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}
