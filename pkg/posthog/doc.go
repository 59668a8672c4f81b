// Package posthog provides a lightweight client for capturing product events
// and exceptions and sending them to a PostHog ingestion endpoint.
//
// Every outgoing record carries an enrichment envelope (distinct id, library
// name and version, host OS name and version) next to the caller's own
// properties. Exceptions are captured as "$exception" events with a
// structured exception descriptor.
//
// # Core Components
//
//   - Event: a named occurrence with a distinct-id scoped property bag
//   - Exception: a captured failure converted to an "$exception" Event on send
//   - Client: owns configuration and a Transport; captures single records or batches
//   - Transport: destination for encoded payloads (HTTP by default, see transports/)
//   - Panic hooks: a process-wide chain that turns recovered panics into Exceptions
//
// # Quick Start
//
//	client, err := posthog.NewClient(posthog.ClientOptions{APIKey: "phc_..."})
//	if err != nil {
//	    return err
//	}
//	event := posthog.NewEvent("signup", "user-42")
//	_ = event.InsertProp("plan", "pro")
//	err = client.Capture(ctx, event)
//
// Panics are converted to exceptions wherever the process defers a capture
// point:
//
//	func main() {
//	    defer posthog.CapturePanics(ctx)
//	    // ...
//	}
//
// # Known Limitations
//
//   - Panic hooks perform a blocking network send while the goroutine is
//     unwinding. Process termination can be delayed by up to the client's
//     request timeout, and a send can block on resources the panic left in a
//     bad state.
//   - Panic hooks cannot be removed. Every client created with panic
//     capturing enabled adds one more hook to the chain for the life of the
//     process.
//   - Each capture call makes exactly one send attempt. There is no retry,
//     queueing, or local persistence.
package posthog
