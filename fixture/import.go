package fixture

import (
	"context"

	"go.uber.org/zap"

	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/internal/util"
	"github.com/teranos/topicmap/logger"
	"github.com/teranos/topicmap/persist"
	"github.com/teranos/topicmap/topicmap"
)

// Importer is the store surface a fixture is written through.
// *sqlstore.Store implements it.
type Importer interface {
	PutType(ctx context.Context, def topicmap.TypeDef) error
	PutObject(ctx context.Context, obj topicmap.Object, writable bool) error
	CreateTopicmap(ctx context.Context, id topicmap.ID, name string, writable bool) error
	AddTopicToMap(ctx context.Context, mapID, topicID topicmap.ID, props persist.ViewProps) error
	AddAssocToMap(ctx context.Context, mapID, assocID topicmap.ID, props persist.ViewProps) error
	SetViewport(ctx context.Context, mapID topicmap.ID, viewport topicmap.Viewport) error
}

// Stats counts what an import wrote
type Stats struct {
	Types     int `json:"types"`
	Topics    int `json:"topics"`
	Assocs    int `json:"assocs"`
	Topicmaps int `json:"topicmaps"`
	Entries   int `json:"entries"`
}

// Import writes f to store. Existing rows with the same ids are replaced, so
// importing a fixture twice is harmless. Import stops at the first failure;
// rows written before it stay.
func Import(ctx context.Context, store Importer, f *File, log *zap.SugaredLogger) (Stats, error) {
	log = logger.OrNop(log)
	var st Stats

	for _, def := range f.Types {
		if err := store.PutType(ctx, def); err != nil {
			return st, err
		}
		st.Types++
	}

	for _, t := range f.Topics {
		obj := topicmap.Object{
			ID:      t.ID,
			Kind:    topicmap.KindTopic,
			URI:     t.URI,
			TypeURI: t.Type,
			Value:   t.Value,
			Fields:  t.Fields,
		}
		if err := store.PutObject(ctx, obj, !t.ReadOnly); err != nil {
			return st, err
		}
		st.Topics++
	}

	kinds := f.playerKinds()
	for _, a := range f.Assocs {
		p1, p2 := a.Player1, a.Player2
		p1.Kind, p2.Kind = kinds[p1.ID], kinds[p2.ID]
		obj := topicmap.Object{
			ID:      a.ID,
			Kind:    topicmap.KindAssoc,
			TypeURI: a.Type,
			Value:   a.Value,
			Player1: &p1,
			Player2: &p2,
			Fields:  a.Fields,
		}
		if err := store.PutObject(ctx, obj, !a.ReadOnly); err != nil {
			return st, err
		}
		st.Assocs++
	}

	for _, m := range f.Topicmaps {
		if err := importTopicmap(ctx, store, m, &st); err != nil {
			return st, errors.Wrapf(err, "topicmap %d", m.ID)
		}
		st.Topicmaps++
		log.Debugw("Imported topicmap",
			logger.FieldTopicmapID, m.ID,
			"topics", len(m.Topics),
			"assocs", len(m.Assocs),
		)
	}

	log.Infow("Fixture imported",
		"types", st.Types,
		"topics", st.Topics,
		"assocs", st.Assocs,
		"topicmaps", st.Topicmaps,
	)
	return st, nil
}

func importTopicmap(ctx context.Context, store Importer, m Topicmap, st *Stats) error {
	if err := store.CreateTopicmap(ctx, m.ID, m.Name, !m.ReadOnly); err != nil {
		return err
	}
	for _, e := range m.Topics {
		if err := store.AddTopicToMap(ctx, m.ID, e.ID, props(e)); err != nil {
			return err
		}
		st.Entries++
	}
	for _, e := range m.Assocs {
		if err := store.AddAssocToMap(ctx, m.ID, e.ID, props(e)); err != nil {
			return err
		}
		st.Entries++
	}
	if m.Pan == nil && m.Zoom == 0 {
		return nil
	}
	vp := topicmap.Viewport{Pan: util.Deref(m.Pan, topicmap.Point{}), Zoom: m.Zoom}
	if vp.Zoom == 0 {
		vp.Zoom = 1
	}
	return store.SetViewport(ctx, m.ID, vp)
}

func props(e Entry) persist.ViewProps {
	return persist.ViewProps{Pos: e.Pos, Visible: !e.Hidden, Pinned: e.Pinned}
}
