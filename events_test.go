package quill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventCapture struct {
	events []Event
}

func (ec *eventCapture) capture(event Event) {
	ec.events = append(ec.events, event)
}

func (ec *eventCapture) reset() {
	ec.events = ec.events[:0]
}

func (ec *eventCapture) types() []EventType {
	out := make([]EventType, len(ec.events))
	for i, e := range ec.events {
		out[i] = e.Type
	}
	return out
}

func subscribeAll(events *Events, capture *eventCapture) {
	for _, kind := range []EventType{TRIGGER_ENTER, CONTACT_ENTER, TRIGGER_STAY, CONTACT_STAY, TRIGGER_EXIT, CONTACT_EXIT} {
		events.Subscribe(kind, capture.capture)
	}
}

func TestEvents_MultipleListeners(t *testing.T) {
	events := NewEvents()
	captures := []*eventCapture{{}, {}, {}}
	for _, c := range captures {
		events.Subscribe(CONTACT_ENTER, c.capture)
	}
	require.Len(t, events.listeners[CONTACT_ENTER], 3)

	events.record(makePairKey(1, 2), false)
	events.flush()

	for _, c := range captures {
		assert.Len(t, c.events, 1)
	}
}

func TestMakePairKey(t *testing.T) {
	assert.Equal(t, pairKey{bodyA: 1, bodyB: 2}, makePairKey(2, 1))
	assert.Equal(t, makePairKey(1, 2), makePairKey(2, 1))
	assert.NotEqual(t, makePairKey(1, 2), makePairKey(1, 3))
}

func TestEvents_Lifecycle(t *testing.T) {
	tests := []struct {
		name    string
		trigger bool
		enter   EventType
		stay    EventType
		exit    EventType
	}{
		{"contact", false, CONTACT_ENTER, CONTACT_STAY, CONTACT_EXIT},
		{"trigger", true, TRIGGER_ENTER, TRIGGER_STAY, TRIGGER_EXIT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := NewEvents()
			capture := &eventCapture{}
			subscribeAll(&events, capture)
			key := makePairKey(7, 3)

			events.record(key, tt.trigger)
			events.flush()
			require.Equal(t, []EventType{tt.enter}, capture.types())
			assert.Equal(t, uint64(3), capture.events[0].BodyA)
			assert.Equal(t, uint64(7), capture.events[0].BodyB)

			capture.reset()
			events.record(key, tt.trigger)
			events.flush()
			assert.Equal(t, []EventType{tt.stay}, capture.types())

			capture.reset()
			events.flush()
			assert.Equal(t, []EventType{tt.exit}, capture.types())

			capture.reset()
			events.flush()
			assert.Empty(t, capture.events)

			events.record(key, tt.trigger)
			events.flush()
			assert.Equal(t, []EventType{tt.enter}, capture.types())
		})
	}
}

func TestEvents_Ordering(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	events.record(makePairKey(5, 6), false)
	events.record(makePairKey(1, 9), true)
	events.record(makePairKey(1, 2), false)
	events.flush()

	require.Len(t, capture.events, 3)
	assert.Equal(t, Event{Type: CONTACT_ENTER, BodyA: 1, BodyB: 2}, capture.events[0])
	assert.Equal(t, Event{Type: TRIGGER_ENTER, BodyA: 1, BodyB: 9}, capture.events[1])
	assert.Equal(t, Event{Type: CONTACT_ENTER, BodyA: 5, BodyB: 6}, capture.events[2])
}

func TestEvents_Forget(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	events.record(makePairKey(1, 2), false)
	events.record(makePairKey(3, 4), false)
	events.flush()
	capture.reset()

	events.forget(2)
	events.flush()

	assert.Equal(t, []Event{{Type: CONTACT_EXIT, BodyA: 3, BodyB: 4}}, capture.events)
}

func TestEvents_NoListeners(t *testing.T) {
	events := NewEvents()
	events.record(makePairKey(1, 2), false)
	assert.NotPanics(t, events.flush)
	assert.Empty(t, events.buffer)
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "contact-enter", CONTACT_ENTER.String())
	assert.Equal(t, "trigger-exit", TRIGGER_EXIT.String())
	assert.Equal(t, "unknown", EventType(42).String())
}
