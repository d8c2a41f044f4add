package quill

import (
	"cmp"
	"slices"
)

const (
	TRIGGER_ENTER EventType = iota
	CONTACT_ENTER
	TRIGGER_STAY
	CONTACT_STAY
	TRIGGER_EXIT
	CONTACT_EXIT
)

type EventType uint8

func (t EventType) String() string {
	switch t {
	case TRIGGER_ENTER:
		return "trigger-enter"
	case CONTACT_ENTER:
		return "contact-enter"
	case TRIGGER_STAY:
		return "trigger-stay"
	case CONTACT_STAY:
		return "contact-stay"
	case TRIGGER_EXIT:
		return "trigger-exit"
	case CONTACT_EXIT:
		return "contact-exit"
	}
	return "unknown"
}

// pairKey identifies a body pair, lower id first.
type pairKey struct {
	bodyA uint64
	bodyB uint64
}

func makePairKey(bodyA, bodyB uint64) pairKey {
	if bodyB < bodyA {
		bodyA, bodyB = bodyB, bodyA
	}
	return pairKey{bodyA: bodyA, bodyB: bodyB}
}

// Event reports a change in the contact state of a body pair.
type Event struct {
	Type  EventType
	BodyA uint64
	BodyB uint64
}

// EventListener - callback for events
type EventListener func(event Event)

// Events turns the pairs in contact at each step into enter, stay and exit
// events. Listeners run on the goroutine calling Dispatcher.Step.
type Events struct {
	listeners map[EventType][]EventListener
	buffer    []Event

	previousActivePairs map[pairKey]bool
	currentActivePairs  map[pairKey]bool
}

func NewEvents() Events {
	return Events{
		listeners:           make(map[EventType][]EventListener),
		buffer:              make([]Event, 0, 256),
		previousActivePairs: make(map[pairKey]bool),
		currentActivePairs:  make(map[pairKey]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// record marks a pair as touching during the current step. The value
// tells whether either body is a trigger.
func (e *Events) record(key pairKey, trigger bool) {
	e.currentActivePairs[key] = trigger
}

// forget drops every pair involving body without emitting exit events.
func (e *Events) forget(body uint64) {
	for pair := range e.previousActivePairs {
		if pair.bodyA == body || pair.bodyB == body {
			delete(e.previousActivePairs, pair)
		}
	}
	for pair := range e.currentActivePairs {
		if pair.bodyA == body || pair.bodyB == body {
			delete(e.currentActivePairs, pair)
		}
	}
}

// process compares current and previous pairs to detect Enter/Stay/Exit.
// Events are ordered by pair for reproducible delivery.
func (e *Events) process() {
	start := len(e.buffer)
	for pair, trigger := range e.currentActivePairs {
		_, stayed := e.previousActivePairs[pair]
		var kind EventType
		switch {
		case stayed && trigger:
			kind = TRIGGER_STAY
		case stayed:
			kind = CONTACT_STAY
		case trigger:
			kind = TRIGGER_ENTER
		default:
			kind = CONTACT_ENTER
		}
		e.buffer = append(e.buffer, Event{Type: kind, BodyA: pair.bodyA, BodyB: pair.bodyB})
	}

	for pair, trigger := range e.previousActivePairs {
		if _, ok := e.currentActivePairs[pair]; ok {
			continue
		}
		kind := CONTACT_EXIT
		if trigger {
			kind = TRIGGER_EXIT
		}
		e.buffer = append(e.buffer, Event{Type: kind, BodyA: pair.bodyA, BodyB: pair.bodyB})
	}

	slices.SortFunc(e.buffer[start:], func(a, b Event) int {
		if a.BodyA != b.BodyA {
			return cmp.Compare(a.BodyA, b.BodyA)
		}
		if a.BodyB != b.BodyB {
			return cmp.Compare(a.BodyB, b.BodyB)
		}
		return int(a.Type) - int(b.Type)
	})

	// Swap for next step and clear current
	e.previousActivePairs, e.currentActivePairs = e.currentActivePairs, e.previousActivePairs
	clear(e.currentActivePairs)
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	e.process()

	for _, event := range e.buffer {
		for _, listener := range e.listeners[event.Type] {
			listener(event)
		}
	}
	e.buffer = e.buffer[:0]
}
