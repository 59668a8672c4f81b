// fingerprint.go generates stable hashes for grouping similar exceptions.

package posthog

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// PropExceptionFingerprint is the prop key panic hooks store Fingerprint
// results under.
const PropExceptionFingerprint = "$exception_fingerprint"

// Fingerprint generates a hash for grouping similar exceptions.
// The fingerprint is based on:
//   - the type of every entry in the exception list
//   - the first 3 function names of stack (a runtime/debug.Stack dump), if any
//
// It ignores messages, line numbers, and memory addresses.
func Fingerprint(exc *Exception, stack string) string {
	var parts []string
	if exc != nil {
		for _, info := range exc.properties.ExceptionList {
			parts = append(parts, info.Type)
		}
	}
	parts = append(parts, normalizeStackTrace(stack)...)

	input := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(input))

	// Hex-encoded first 16 bytes (32 hex chars)
	return hex.EncodeToString(hash[:16])
}

var (
	// Function names like "main.doSomething" or "pkg/subpkg.Function"
	funcNamePattern = regexp.MustCompile(`^([a-zA-Z0-9_./*()\[\]]+\.[a-zA-Z0-9_\[\]]+)`)

	memAddrPattern = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	offsetPattern  = regexp.MustCompile(`\+0x[0-9a-fA-F]+`)
)

// Frames belonging to the capture machinery itself; they are identical for
// every panic and would make all fingerprints collide.
var skippedFramePrefixes = []string{
	"runtime/debug.",
	"runtime.",
	"panic(",
	"github.com/strongdm/posthog-capture/pkg/posthog.",
}

// normalizeStackTrace extracts the first 3 function names from a stack trace,
// stripping line numbers, memory addresses, and other variable data.
func normalizeStackTrace(trace string) []string {
	if trace == "" {
		return nil
	}

	var frames []string
	for _, line := range strings.Split(trace, "\n") {
		// File path lines start with a tab.
		if strings.HasPrefix(line, "\t") {
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "goroutine ") || strings.HasPrefix(line, "/") {
			continue
		}
		if skipFrame(line) {
			continue
		}

		funcLine := offsetPattern.ReplaceAllString(line, "")
		funcLine = memAddrPattern.ReplaceAllString(funcLine, "")

		// Drop the argument list: the last "(" starts it.
		if idx := strings.LastIndex(funcLine, "("); idx > 0 {
			funcLine = funcLine[:idx]
		}
		funcLine = strings.TrimSpace(funcLine)

		if match := funcNamePattern.FindString(funcLine); match != "" {
			frames = append(frames, match)
			if len(frames) >= 3 {
				break
			}
		}
	}
	return frames
}

func skipFrame(line string) bool {
	for _, prefix := range skippedFramePrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
