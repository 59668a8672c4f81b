// exception.go converts Go errors into "$exception" events.

package posthog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// ExceptionEventName is the event name every Exception is sent under.
	ExceptionEventName = "$exception"

	// DefaultExceptionLevel is the "$exception_level" of a new Exception.
	DefaultExceptionLevel = "error"
)

// ExceptionInfo describes one failure in "$exception_list".
type ExceptionInfo struct {
	// Type is the failure's type name, or "Error" when none can be derived.
	Type string `json:"type"`

	// Value is the failure's message.
	Value string `json:"value"`

	Mechanism Mechanism `json:"mechanism"`
}

// Mechanism records how a failure was captured.
type Mechanism struct {
	Handled   bool `json:"handled"`
	Synthetic bool `json:"synthetic"`
}

// Exception is a captured failure. It is sent as an Event named
// "$exception" with exception fields set in its properties.
type Exception struct {
	properties Properties
	timestamp  *time.Time
}

// NewException wraps err for distinctID. The exception level starts as
// "error" and the exception list holds a single descriptor for err.
func NewException(err error, distinctID string) *Exception {
	exc := &Exception{properties: NewProperties(distinctID)}
	exc.properties.ExceptionLevel = DefaultExceptionLevel
	exc.properties.ExceptionList = []ExceptionInfo{describe(err)}
	return exc
}

// describe builds the exception descriptor for err.
// TODO: attach a "stacktrace" entry once frames can be resolved to the
// ingestion frame format.
func describe(err error) ExceptionInfo {
	info := ExceptionInfo{
		Type:      "Error",
		Value:     "<nil>",
		Mechanism: Mechanism{Handled: true, Synthetic: false},
	}
	if err == nil {
		return info
	}
	info.Type = ExceptionType(err)
	info.Value = err.Error()
	return info
}

// messageOnlyErrors are the standard library error types that carry nothing
// but a message; they are reported as "Error".
var messageOnlyErrors = map[string]bool{
	"*errors.errorString": true,
	"*errors.joinError":   true,
	"*fmt.wrapError":      true,
	"*fmt.wrapErrors":     true,
}

// ExceptionType derives a type name for err. When err implements
// fmt.GoStringer, the name comes from its Go-syntax representation: a
// representation that is just the quoted message carries no type information
// and is reported as "Error", otherwise the leading token, up to the first
// space, '(', '{' or line break, is the type name. Other errors are named by
// their dynamic Go type with any pointer marker removed, e.g. "fs.PathError",
// except plain message errors from errors.New and fmt.Errorf, which are
// reported as "Error".
func ExceptionType(err error) string {
	if err == nil {
		return "Error"
	}
	gs, ok := err.(fmt.GoStringer)
	if !ok {
		return goTypeName(err)
	}
	debug := gs.GoString()
	if debug == strconv.Quote(err.Error()) {
		return "Error"
	}
	token := debug
	if i := strings.IndexAny(debug, " ({\r\n"); i >= 0 {
		token = debug[:i]
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "Error"
	}
	return token
}

// goTypeName names err by its dynamic type.
func goTypeName(err error) string {
	name := fmt.Sprintf("%T", err)
	if messageOnlyErrors[name] {
		return "Error"
	}
	name = strings.TrimLeft(name, "*&")
	if name == "" {
		return "Error"
	}
	return name
}

// DistinctID returns the id the exception is attributed to.
func (e *Exception) DistinctID() string {
	return e.properties.DistinctID
}

// Properties returns a copy of the exception's envelope.
func (e *Exception) Properties() Properties {
	return e.properties.clone()
}

// Prop returns the encoded value stored under key.
func (e *Exception) Prop(key string) (json.RawMessage, bool) {
	return e.properties.Prop(key)
}

// InsertProp implements PropertyInserter.
func (e *Exception) InsertProp(key string, value any) error {
	return e.properties.insertProp(key, value)
}

// ExceptionLevel returns the "$exception_level" value.
func (e *Exception) ExceptionLevel() string {
	return e.properties.ExceptionLevel
}

// SetExceptionLevel overrides the level. An empty level removes the field
// from the payload.
func (e *Exception) SetExceptionLevel(level string) {
	e.properties.ExceptionLevel = level
}

// ExceptionList returns a copy of the exception descriptors.
func (e *Exception) ExceptionList() []ExceptionInfo {
	return e.properties.clone().ExceptionList
}

// Timestamp returns the exception time, or nil if the server should assign
// one.
func (e *Exception) Timestamp() *time.Time {
	return e.timestamp
}

// SetTimestamp records when the failure happened.
func (e *Exception) SetTimestamp(t time.Time) {
	e.timestamp = &t
}

// ToEvent returns the "$exception" event for e. The event gets its own copy
// of the properties, so e can be converted again or mutated afterwards.
func (e *Exception) ToEvent() *Event {
	return &Event{
		name:       ExceptionEventName,
		properties: e.properties.clone(),
		timestamp:  e.timestamp,
	}
}

// PanicError is the failure value synthesized for a recovered panic.
type PanicError struct {
	Message string
}

// Error implements error.
func (p *PanicError) Error() string {
	return "Panic: " + p.Message
}

// GoString reports the panic in Go-syntax form so ExceptionType names it
// "Panic".
func (p *PanicError) GoString() string {
	return "Panic(" + strconv.Quote(p.Message) + ")"
}
