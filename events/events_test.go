package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/topicmap/topicmap"
)

func TestEmitterFanOut(t *testing.T) {
	e := NewEmitter(zaptest.NewLogger(t).Sugar())
	a, cancelA := e.Subscribe(4)
	b, cancelB := e.Subscribe(4)
	defer cancelB()

	e.Emit(Event{Type: TopicSelect, ID: 1})
	assert.Equal(t, topicmap.ID(1), (<-a).ID)
	assert.Equal(t, topicmap.ID(1), (<-b).ID)

	cancelA()
	cancelA()
	_, open := <-a
	assert.False(t, open)

	e.Emit(Event{Type: TopicUnselect, ID: 1})
	assert.Equal(t, TopicUnselect, (<-b).Type)
}

func TestEmitterDropsWhenFull(t *testing.T) {
	e := NewEmitter(zaptest.NewLogger(t).Sugar())
	ch, cancel := e.Subscribe(1)
	defer cancel()

	e.Emit(Event{Type: TopicDrag, ID: 1})
	e.Emit(Event{Type: TopicDrag, ID: 2})

	assert.Equal(t, topicmap.ID(1), (<-ch).ID)
	assert.Len(t, ch, 0)
}

func TestEmitterClose(t *testing.T) {
	e := NewEmitter(nil)
	ch, cancel := e.Subscribe(1)
	e.Close()
	e.Close()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	late, _ := e.Subscribe(1)
	_, open = <-late
	assert.False(t, open)
	e.Emit(Event{Type: AssocCreate})
}

func TestSelectEventTypes(t *testing.T) {
	assert.Equal(t, TopicSelect, SelectEvent(topicmap.KindTopic))
	assert.Equal(t, AssocSelect, SelectEvent(topicmap.KindAssoc))
	assert.Equal(t, TopicUnselect, UnselectEvent(topicmap.KindTopic))
	assert.Equal(t, AssocUnselect, UnselectEvent(topicmap.KindAssoc))
}
