// scrubber.go implements fail-closed redaction of props and exception messages.

package posthog

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// ScrubberConfig controls scrubbing behavior.
type ScrubberConfig struct {
	// SensitiveKeys contains additional case-insensitive substrings that
	// mark a prop key as sensitive.
	SensitiveKeys []string

	// MaxMessageSize is the maximum length for exception messages and
	// string prop values (default: 4096).
	MaxMessageSize int

	// MaxPropSize is the maximum encoded size of a single prop value
	// (default: 16384).
	MaxPropSize int

	// ScrubMessages enables pattern scrubbing of messages for secrets/PII (default: true).
	ScrubMessages bool

	// FailClosed enables fail-closed behavior: on any scrub error, fully redact (default: true).
	FailClosed bool
}

// DefaultScrubberConfig returns production-safe defaults.
func DefaultScrubberConfig() ScrubberConfig {
	return ScrubberConfig{
		MaxMessageSize: 4096,
		MaxPropSize:    16384,
		ScrubMessages:  true,
		FailClosed:     true,
	}
}

const (
	redacted           = "[REDACTED]"
	redactedScrubError = "[REDACTED:SCRUB_ERROR]"
	truncationMarker   = "...[TRUNCATED]"
)

// Compiled once at package init.
var messageScrubPatterns = []*regexp.Regexp{
	// API keys and tokens
	regexp.MustCompile(`(?i)(api[_-]?key|token)[=:\s]+['"]?[\w\-\.]+['"]?`),
	// Authorization: Bearer <token>
	regexp.MustCompile(`(?i)(authorization|bearer)[=:\s]+['"]?[\w\-\.]+['"]?[\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)sk-[a-zA-Z0-9_-]{20,}`),                                // OpenAI-style keys
	regexp.MustCompile(`phc_[a-zA-Z0-9]{20,}`),                                     // PostHog project keys
	regexp.MustCompile(`phx_[a-zA-Z0-9]{20,}`),                                     // PostHog personal keys
	regexp.MustCompile(`(?i)ghp_[a-zA-Z0-9]{36}`),                                  // GitHub tokens
	regexp.MustCompile(`(?i)github_pat_[a-zA-Z0-9_]{22,}`),                         // GitHub PAT
	regexp.MustCompile(`(?i)xox[baprs]-[a-zA-Z0-9\-]{10,}`),                        // Slack tokens
	regexp.MustCompile(`(?i)eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`), // JWT

	// Credentials
	regexp.MustCompile(`(?i)password[=:\s]+['"]?[^\s'"",]+['"]?`),
	regexp.MustCompile(`(?i)secret[=:\s]+['"]?[^\s'"",]+['"]?`),
	regexp.MustCompile(`(?i)passwd[=:\s]+['"]?[^\s'"",]+['"]?`),
	regexp.MustCompile(`(?i)credential[=:\s]+['"]?[^\s'"",]+['"]?`),

	// PII
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), // Email
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),                              // SSN
	regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),         // Credit card
}

// Case-insensitive substrings that mark a prop key as sensitive.
var sensitiveKeyPatterns = []string{
	"token",
	"key",
	"secret",
	"password",
	"credential",
	"auth",
	"passwd",
}

// Scrubber redacts sensitive data from outgoing records.
type Scrubber struct {
	cfg ScrubberConfig
}

// NewScrubber creates a new scrubber with the given configuration.
func NewScrubber(cfg ScrubberConfig) *Scrubber {
	return &Scrubber{cfg: cfg}
}

// ScrubMessage truncates msg and replaces secrets and PII with [REDACTED].
func (s *Scrubber) ScrubMessage(msg string) string {
	if s.cfg.MaxMessageSize > 0 && len(msg) > s.cfg.MaxMessageSize {
		msg = truncateWithMarker(msg, s.cfg.MaxMessageSize)
	}
	if !s.cfg.ScrubMessages {
		return msg
	}
	for _, pattern := range messageScrubPatterns {
		msg = pattern.ReplaceAllString(msg, redacted)
	}
	return msg
}

// ScrubProps returns a scrubbed copy of props. Values under sensitive keys
// are replaced whole; other values are scrubbed recursively.
func (s *Scrubber) ScrubProps(props map[string]json.RawMessage) map[string]json.RawMessage {
	if props == nil {
		return nil
	}
	result := make(map[string]json.RawMessage, len(props))
	for key, value := range props {
		if s.isSensitiveKey(key) {
			result[key] = jsonString(redacted)
			continue
		}
		result[key] = s.ScrubJSON(value)
	}
	return result
}

// ScrubJSON recursively scrubs an encoded JSON value.
// Invalid or oversized input is replaced by "[REDACTED:SCRUB_ERROR]" when
// FailClosed is set.
func (s *Scrubber) ScrubJSON(raw json.RawMessage) json.RawMessage {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var data any
	if err := dec.Decode(&data); err != nil {
		return s.failed(raw)
	}

	out, err := json.Marshal(s.scrubJSONValue(data))
	if err != nil {
		return s.failed(raw)
	}
	if s.cfg.MaxPropSize > 0 && len(out) > s.cfg.MaxPropSize {
		return s.failed(raw)
	}
	return out
}

func (s *Scrubber) failed(raw json.RawMessage) json.RawMessage {
	if s.cfg.FailClosed {
		return jsonString(redactedScrubError)
	}
	return raw
}

// scrubJSONValue recursively scrubs a decoded JSON value.
func (s *Scrubber) scrubJSONValue(val any) any {
	switch v := val.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, value := range v {
			if s.isSensitiveKey(key) {
				result[key] = redacted
			} else {
				result[key] = s.scrubJSONValue(value)
			}
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, value := range v {
			result[i] = s.scrubJSONValue(value)
		}
		return result
	case string:
		return s.ScrubMessage(v)
	default:
		return v // numbers, booleans, null
	}
}

// scrubProperties returns a scrubbed copy of p.
func (s *Scrubber) scrubProperties(p Properties) Properties {
	c := p.clone()
	c.Props = s.ScrubProps(c.Props)
	for i := range c.ExceptionList {
		c.ExceptionList[i].Value = s.ScrubMessage(c.ExceptionList[i].Value)
	}
	return c
}

func (s *Scrubber) isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	for _, pattern := range s.cfg.SensitiveKeys {
		if pattern != "" && strings.Contains(keyLower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// truncateWithMarker truncates a string and adds a truncation marker.
func truncateWithMarker(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= len(truncationMarker) {
		return truncationMarker[:maxLen]
	}
	return s[:maxLen-len(truncationMarker)] + truncationMarker
}
