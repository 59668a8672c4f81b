// inner_event.go wraps events in the account-scoped envelope sent on the wire.

package posthog

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Library identity keys written into props right before serialization.
// They replace any caller value stored under the same key.
const (
	propLibName         = "$lib_name"
	propLibVersion      = "$lib_version"
	propLibVersionMajor = "$lib_version__major"
	propLibVersionMinor = "$lib_version__minor"
	propLibVersionPatch = "$lib_version__patch"
)

// innerEvent is the JSON body of a capture request.
type innerEvent struct {
	APIKey     string     `json:"api_key"`
	Event      string     `json:"event"`
	Properties Properties `json:"properties"`
	Timestamp  *time.Time `json:"timestamp"`
}

// newInnerEvent builds the wire envelope for event. The event itself is left
// unchanged.
func newInnerEvent(event *Event, apiKey string) innerEvent {
	props := event.properties.clone()

	props.Props[propLibName] = jsonString(LibName)
	props.Props[propLibVersion] = jsonString(Version)

	// A non-semver release string is not an error; the split fields are
	// simply left out.
	if v, err := semver.StrictNewVersion(Version); err == nil {
		props.Props[propLibVersionMajor] = jsonUint(v.Major())
		props.Props[propLibVersionMinor] = jsonUint(v.Minor())
		props.Props[propLibVersionPatch] = jsonUint(v.Patch())
	}

	return innerEvent{
		APIKey:     apiKey,
		Event:      event.name,
		Properties: props,
		Timestamp:  event.timestamp,
	}
}

func jsonString(s string) json.RawMessage {
	raw, _ := json.Marshal(s) // strings always encode
	return raw
}

func jsonUint(n uint64) json.RawMessage {
	return json.RawMessage(strconv.FormatUint(n, 10))
}
