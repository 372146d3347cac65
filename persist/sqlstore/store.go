// Package sqlstore implements the topicmap store on SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/persist"
	"github.com/teranos/topicmap/topicmap"
)

// Store provides storage operations for topics, associations, types and topicmaps
type Store struct {
	db *sql.DB
}

// New creates a store on a migrated database
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

var (
	_ persist.Store        = (*Store)(nil)
	_ persist.ObjectSource = (*Store)(nil)
)

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// === Object operations (used by fixture import) ===

// PutType creates or updates a type definition
func (s *Store) PutType(ctx context.Context, def topicmap.TypeDef) error {
	if !def.Kind.Valid() {
		return errors.NewInvalidRequestError("type %s has invalid kind %q", def.URI, def.Kind)
	}
	query := `
		INSERT INTO types (uri, kind, label, icon, color, background_color, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uri) DO UPDATE SET
			kind = excluded.kind,
			label = excluded.label,
			icon = excluded.icon,
			color = excluded.color,
			background_color = excluded.background_color,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		def.URI, string(def.Kind), def.Label, def.Icon, def.Color, def.BackgroundColor, now())
	if err != nil {
		return errors.Wrapf(err, "failed to upsert type %s", def.URI)
	}
	return nil
}

// PutObject creates or updates a topic or association
func (s *Store) PutObject(ctx context.Context, obj topicmap.Object, writable bool) error {
	fields, err := json.Marshal(obj.Fields)
	if err != nil {
		return errors.Wrapf(err, "failed to encode fields of object %d", obj.ID)
	}
	if obj.Fields == nil {
		fields = []byte("{}")
	}

	switch obj.Kind {
	case topicmap.KindTopic:
		query := `
			INSERT INTO topics (id, uri, type_uri, value, fields, writable, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				uri = excluded.uri,
				type_uri = excluded.type_uri,
				value = excluded.value,
				fields = excluded.fields,
				writable = excluded.writable,
				updated_at = excluded.updated_at
		`
		_, err = s.db.ExecContext(ctx, query,
			obj.ID, obj.URI, obj.TypeURI, obj.Value, string(fields), boolInt(writable), now())
		if err != nil {
			return errors.Wrapf(err, "failed to upsert topic %d", obj.ID)
		}
	case topicmap.KindAssoc:
		if obj.Player1 == nil || obj.Player2 == nil {
			return errors.NewInvalidRequestError("assoc %d needs two players", obj.ID)
		}
		query := `
			INSERT INTO assocs (id, type_uri, value,
				player1_id, player1_kind, player1_role,
				player2_id, player2_kind, player2_role,
				fields, writable, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				type_uri = excluded.type_uri,
				value = excluded.value,
				player1_id = excluded.player1_id,
				player1_kind = excluded.player1_kind,
				player1_role = excluded.player1_role,
				player2_id = excluded.player2_id,
				player2_kind = excluded.player2_kind,
				player2_role = excluded.player2_role,
				fields = excluded.fields,
				writable = excluded.writable,
				updated_at = excluded.updated_at
		`
		_, err = s.db.ExecContext(ctx, query,
			obj.ID, obj.TypeURI, obj.Value,
			obj.Player1.ID, string(playerKind(obj.Player1)), obj.Player1.Role,
			obj.Player2.ID, string(playerKind(obj.Player2)), obj.Player2.Role,
			string(fields), boolInt(writable), now())
		if err != nil {
			return errors.Wrapf(err, "failed to upsert assoc %d", obj.ID)
		}
	default:
		return errors.NewInvalidRequestError("object %d has invalid kind %q", obj.ID, obj.Kind)
	}
	return nil
}

func playerKind(p *topicmap.PlayerRef) topicmap.Kind {
	if p.Kind.Valid() {
		return p.Kind
	}
	return topicmap.KindTopic
}

// CreateTopicmap creates or renames a topicmap
func (s *Store) CreateTopicmap(ctx context.Context, id topicmap.ID, name string, writable bool) error {
	query := `
		INSERT INTO topicmaps (id, name, writable, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			writable = excluded.writable,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, id, name, boolInt(writable), now()); err != nil {
		return errors.Wrapf(err, "failed to upsert topicmap %d", id)
	}
	return nil
}

// === Object reads ===

// FetchObject returns the full payload of a topic or association
func (s *Store) FetchObject(ctx context.Context, id topicmap.ID) (topicmap.Object, error) {
	obj := topicmap.Object{ID: id}
	var fields string

	err := s.db.QueryRowContext(ctx,
		`SELECT uri, type_uri, value, fields FROM topics WHERE id = ?`, id,
	).Scan(&obj.URI, &obj.TypeURI, &obj.Value, &fields)
	switch {
	case err == nil:
		obj.Kind = topicmap.KindTopic
	case err == sql.ErrNoRows:
		p1, p2 := &topicmap.PlayerRef{}, &topicmap.PlayerRef{}
		var k1, k2 string
		err = s.db.QueryRowContext(ctx, `
			SELECT type_uri, value, player1_id, player1_kind, player1_role,
			       player2_id, player2_kind, player2_role, fields
			FROM assocs WHERE id = ?`, id,
		).Scan(&obj.TypeURI, &obj.Value, &p1.ID, &k1, &p1.Role, &p2.ID, &k2, &p2.Role, &fields)
		if err == sql.ErrNoRows {
			return topicmap.Object{}, errors.NewNotFoundError("object %d", id)
		}
		if err != nil {
			return topicmap.Object{}, errors.Wrapf(err, "failed to get assoc %d", id)
		}
		p1.Kind, p2.Kind = topicmap.Kind(k1), topicmap.Kind(k2)
		obj.Kind = topicmap.KindAssoc
		obj.Player1, obj.Player2 = p1, p2
	default:
		return topicmap.Object{}, errors.Wrapf(err, "failed to get topic %d", id)
	}

	if fields != "" && fields != "{}" {
		if err := json.Unmarshal([]byte(fields), &obj.Fields); err != nil {
			return topicmap.Object{}, errors.Wrapf(err, "failed to decode fields of object %d", id)
		}
	}
	return obj, nil
}

// IsWritable reports whether the object may be edited
func (s *Store) IsWritable(ctx context.Context, id topicmap.ID) (bool, error) {
	var writable int
	err := s.db.QueryRowContext(ctx, `
		SELECT writable FROM topics WHERE id = ?
		UNION ALL
		SELECT writable FROM assocs WHERE id = ?
		LIMIT 1`, id, id,
	).Scan(&writable)
	if err == sql.ErrNoRows {
		return false, errors.NewNotFoundError("object %d", id)
	}
	if err != nil {
		return false, errors.Wrapf(err, "failed to check permission of object %d", id)
	}
	return writable == 1, nil
}

// FetchTypes returns every type definition
func (s *Store) FetchTypes(ctx context.Context) ([]topicmap.TypeDef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT uri, kind, label, icon, color, background_color FROM types ORDER BY uri`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list types")
	}
	defer rows.Close()

	var defs []topicmap.TypeDef
	for rows.Next() {
		var def topicmap.TypeDef
		var kind string
		if err := rows.Scan(&def.URI, &kind, &def.Label, &def.Icon, &def.Color, &def.BackgroundColor); err != nil {
			return nil, errors.Wrap(err, "failed to scan type")
		}
		def.Kind = topicmap.Kind(kind)
		defs = append(defs, def)
	}
	return defs, rows.Err()
}
