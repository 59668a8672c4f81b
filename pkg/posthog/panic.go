// panic.go provides the process-wide panic hook chain and the deferred
// capture points that feed it.

package posthog

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
)

// unknownPanicMessage is reported for panic values that are not a string,
// an error, or a fmt.Stringer.
const unknownPanicMessage = "<non-string panic value>"

// PanicInfo describes a recovered panic.
type PanicInfo struct {
	// Value is the value passed to panic.
	Value any

	// Message is the human-readable form of Value.
	Message string

	// Stack is the goroutine stack at the capture point.
	Stack string
}

// PanicHook is invoked for every panic that reaches a capture point.
// Hooks run on the panicking goroutine and may run concurrently with each
// other when several goroutines panic at once.
type PanicHook func(ctx context.Context, info *PanicInfo)

type panicHookNode struct {
	hook PanicHook
	next *panicHookNode
}

// panicHooks is the head of the chain. Nodes are immutable once published,
// so readers walk the chain without locking.
var panicHooks atomic.Pointer[panicHookNode]

// InstallPanicHook adds hook to the front of the process-wide chain. The most
// recently installed hook runs first, then the hooks installed before it.
// Hooks cannot be removed.
func InstallPanicHook(hook PanicHook) {
	if hook == nil {
		return
	}
	for {
		head := panicHooks.Load()
		node := &panicHookNode{hook: hook, next: head}
		if panicHooks.CompareAndSwap(head, node) {
			return
		}
	}
}

// runPanicHooks calls every installed hook, newest first.
func runPanicHooks(ctx context.Context, info *PanicInfo) {
	if ctx == nil {
		ctx = context.Background()
	}
	for node := panicHooks.Load(); node != nil; node = node.next {
		callPanicHook(ctx, node.hook, info)
	}
}

// callPanicHook runs one hook; a hook that panics is skipped so the rest of
// the chain still runs.
func callPanicHook(ctx context.Context, hook PanicHook, info *PanicInfo) {
	defer func() {
		_ = recover()
	}()
	hook(ctx, info)
}

// newPanicInfo describes the recovered value r.
func newPanicInfo(r any) *PanicInfo {
	return &PanicInfo{
		Value:   r,
		Message: panicMessage(r),
		Stack:   string(debug.Stack()),
	}
}

// panicMessage derives a message from a panic value.
func panicMessage(r any) string {
	switch v := r.(type) {
	case string:
		return v
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		return unknownPanicMessage
	}
}

// capturedPanic carries a panic value that has already been through the hook
// chain, so an outer capture point passes it on without reporting it again.
type capturedPanic struct {
	value any
}

func (p *capturedPanic) Error() string {
	return fmt.Sprint(p.value)
}

func (p *capturedPanic) String() string {
	return fmt.Sprint(p.value)
}

// Unwrap exposes the original value when it is an error.
func (p *capturedPanic) Unwrap() error {
	err, _ := p.value.(error)
	return err
}

// PanicValue returns the value originally passed to panic. Values recovered
// from a CapturePanics re-panic are unwrapped; anything else is returned as is.
func PanicValue(r any) any {
	if cp, ok := r.(*capturedPanic); ok {
		return cp.value
	}
	return r
}

// capture runs the hook chain for r unless an inner capture point already did.
func capture(ctx context.Context, r any) *capturedPanic {
	if cp, ok := r.(*capturedPanic); ok {
		return cp
	}
	runPanicHooks(ctx, newPanicInfo(r))
	return &capturedPanic{value: r}
}

// CapturePanics runs the panic hooks for a panic in the calling goroutine
// and then re-panics, so the process still crashes the way it would have
// without capturing. It must be deferred directly:
//
//	func main() {
//	    defer posthog.CapturePanics(ctx)
//	    // code that might panic
//	}
//
// The re-panicked value is marked as reported: outer CapturePanics or Recover
// calls do not run the hooks again. Code that recovers it with the builtin
// recover can get the original value back with PanicValue.
//
// Values attached with WithDistinctID attribute the exception.
func CapturePanics(ctx context.Context) {
	r := recover()
	if r == nil {
		return
	}
	panic(capture(ctx, r))
}

// Recover runs the panic hooks and returns the recovered value. Unlike
// CapturePanics, Recover does NOT re-panic after capturing. A panic already
// reported by an inner CapturePanics is not reported again, and its
// original value is returned.
//
// Use in defer:
//
//	func handler(ctx context.Context) {
//	    defer posthog.Recover(ctx)
//	    // code that might panic
//	}
func Recover(ctx context.Context) any {
	r := recover()
	if r == nil {
		return nil
	}
	return capture(ctx, r).value
}

// Go runs fn on a new goroutine with CapturePanics deferred.
func Go(ctx context.Context, fn func()) {
	go func() {
		defer CapturePanics(ctx)
		fn()
	}()
}
