package persist

import (
	"context"

	"github.com/teranos/topicmap/topicmap"
)

// Op constructors, one per Store write

func AddTopicToMap(mapID, topicID topicmap.ID, props ViewProps) Op {
	return Op{Name: "add_topic_to_map", TopicmapID: mapID, Run: func(ctx context.Context, s Store) error {
		return s.AddTopicToMap(ctx, mapID, topicID, props)
	}}
}

func AddAssocToMap(mapID, assocID topicmap.ID, props ViewProps) Op {
	return Op{Name: "add_assoc_to_map", TopicmapID: mapID, Run: func(ctx context.Context, s Store) error {
		return s.AddAssocToMap(ctx, mapID, assocID, props)
	}}
}

func AddRelatedTopicToMap(mapID, topicID, assocID topicmap.ID, topicProps *ViewProps) Op {
	return Op{Name: "add_related_topic_to_map", TopicmapID: mapID, Run: func(ctx context.Context, s Store) error {
		return s.AddRelatedTopicToMap(ctx, mapID, topicID, assocID, topicProps)
	}}
}

func SetTopicVisibility(mapID, topicID topicmap.ID, visible bool) Op {
	return Op{Name: "set_topic_visibility", TopicmapID: mapID, Run: func(ctx context.Context, s Store) error {
		return s.SetTopicVisibility(ctx, mapID, topicID, visible)
	}}
}

func SetAssocVisibility(mapID, assocID topicmap.ID, visible bool) Op {
	return Op{Name: "set_assoc_visibility", TopicmapID: mapID, Run: func(ctx context.Context, s Store) error {
		return s.SetAssocVisibility(ctx, mapID, assocID, visible)
	}}
}

func SetPinned(mapID, id topicmap.ID, pinned bool) Op {
	return Op{Name: "set_pinned", TopicmapID: mapID, Run: func(ctx context.Context, s Store) error {
		return s.SetPinned(ctx, mapID, id, pinned)
	}}
}

func SetTopicPosition(mapID, topicID topicmap.ID, pos topicmap.Point) Op {
	return Op{Name: "set_topic_position", TopicmapID: mapID, Run: func(ctx context.Context, s Store) error {
		return s.SetTopicPosition(ctx, mapID, topicID, pos)
	}}
}

func SetTopicPositions(mapID topicmap.ID, coords []topicmap.TopicCoord) Op {
	coords = append([]topicmap.TopicCoord(nil), coords...)
	return Op{Name: "set_topic_positions", TopicmapID: mapID, Run: func(ctx context.Context, s Store) error {
		return s.SetTopicPositions(ctx, mapID, coords)
	}}
}

func HideMulti(mapID topicmap.ID, ids topicmap.IDLists) Op {
	return Op{Name: "hide_multi", TopicmapID: mapID, Run: func(ctx context.Context, s Store) error {
		return s.HideMulti(ctx, mapID, ids)
	}}
}

func DeleteMulti(mapID topicmap.ID, ids topicmap.IDLists) Op {
	return Op{Name: "delete_multi", TopicmapID: mapID, Run: func(ctx context.Context, s Store) error {
		return s.DeleteMulti(ctx, ids)
	}}
}

func SetViewport(mapID topicmap.ID, viewport topicmap.Viewport) Op {
	return Op{Name: "set_viewport", TopicmapID: mapID, Run: func(ctx context.Context, s Store) error {
		return s.SetViewport(ctx, mapID, viewport)
	}}
}
