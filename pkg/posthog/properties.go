// properties.go builds the enrichment envelope shared by events and exceptions.

package posthog

import (
	"encoding/json"
	"maps"
	"slices"
)

// LibName identifies this library in the "$lib" and "$lib_name" fields.
const LibName = "posthog-capture"

// Version is the library release string reported as "$lib_version".
// Release builds set it with -ldflags "-X".
var Version = "0.4.0"

// Properties is the envelope sent with every event. Field names are part of
// the ingestion wire format.
type Properties struct {
	// DistinctID identifies the actor or session the record belongs to.
	DistinctID string `json:"distinct_id"`

	// Props holds caller-supplied values, already encoded as JSON.
	Props map[string]json.RawMessage `json:"props"`

	Lib        string `json:"$lib"`
	LibVersion string `json:"$lib_version"`
	OS         string `json:"$os"`
	OSVersion  string `json:"$os_version"`

	// ExceptionLevel and ExceptionList are only set on exception-derived
	// properties and are left out of the payload otherwise.
	ExceptionLevel string          `json:"$exception_level,omitempty"`
	ExceptionList  []ExceptionInfo `json:"$exception_list,omitempty"`
}

// NewProperties returns the envelope for distinctID with library and host OS
// identity filled in. It never fails: OS lookup problems degrade to a
// placeholder value.
func NewProperties(distinctID string) Properties {
	host := hostOS()
	return Properties{
		DistinctID: distinctID,
		Props:      make(map[string]json.RawMessage),
		Lib:        LibName,
		LibVersion: Version,
		OS:         host.Name,
		OSVersion:  host.Version,
	}
}

// Prop returns the encoded value stored under key.
func (p Properties) Prop(key string) (json.RawMessage, bool) {
	v, ok := p.Props[key]
	return v, ok
}

// insertProp encodes value and stores it under key. Props is untouched when
// encoding fails.
func (p *Properties) insertProp(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return serializationError(err)
	}
	if p.Props == nil {
		p.Props = make(map[string]json.RawMessage)
	}
	p.Props[key] = raw
	return nil
}

// clone copies the envelope so the copy can be mutated independently.
func (p Properties) clone() Properties {
	c := p
	c.Props = maps.Clone(p.Props)
	if c.Props == nil {
		c.Props = make(map[string]json.RawMessage)
	}
	c.ExceptionList = slices.Clone(p.ExceptionList)
	return c
}

// PropertyInserter is implemented by records whose property bag callers can
// extend before capture.
type PropertyInserter interface {
	// InsertProp encodes value as JSON and stores it under key, replacing
	// any previous value. On encoding failure it returns an error wrapping
	// ErrSerialization and leaves the properties unchanged.
	InsertProp(key string, value any) error
}
