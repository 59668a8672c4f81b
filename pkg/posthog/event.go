// event.go defines the Event record captured by the client.

package posthog

import (
	"encoding/json"
	"time"
)

// Event is a named occurrence attributed to a distinct id.
// Mutate it with InsertProp and SetTimestamp before handing it to a Client.
type Event struct {
	name       string
	properties Properties
	timestamp  *time.Time
}

// NewEvent creates an event named name for distinctID with an enriched,
// empty property bag.
func NewEvent(name, distinctID string) *Event {
	return &Event{
		name:       name,
		properties: NewProperties(distinctID),
	}
}

// Name returns the event name.
func (e *Event) Name() string {
	return e.name
}

// DistinctID returns the id the event is attributed to.
func (e *Event) DistinctID() string {
	return e.properties.DistinctID
}

// Properties returns a copy of the event's envelope.
func (e *Event) Properties() Properties {
	return e.properties.clone()
}

// Prop returns the encoded value stored under key.
func (e *Event) Prop(key string) (json.RawMessage, bool) {
	return e.properties.Prop(key)
}

// InsertProp implements PropertyInserter.
func (e *Event) InsertProp(key string, value any) error {
	return e.properties.insertProp(key, value)
}

// Timestamp returns the event time, or nil if the server should assign one.
func (e *Event) Timestamp() *time.Time {
	return e.timestamp
}

// SetTimestamp records when the event happened.
func (e *Event) SetTimestamp(t time.Time) {
	e.timestamp = &t
}
