// osinfo.go resolves the host OS name and version for the "$os" fields.

package posthog

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"
)

// unknownOS is reported for any OS field that cannot be determined.
const unknownOS = "Unknown"

// OSInfo is the host operating system identity.
type OSInfo struct {
	Name    string
	Version string
}

// hostOS resolves the OS identity once per process. The lookup reads local
// files and system calls only.
var hostOS = sync.OnceValue(func() OSInfo {
	info := detectOS()
	if info.Name == "" {
		info.Name = unknownOS
	}
	if info.Version == "" {
		info.Version = unknownOS
	}
	return info
})

// HostOS returns the OS identity reported in every Properties envelope.
func HostOS() OSInfo {
	return hostOS()
}

// readOSRelease returns NAME and VERSION_ID from the first readable
// os-release file in paths. Missing files yield empty strings.
func readOSRelease(paths ...string) (name, version string) {
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		name, version = parseOSRelease(f)
		f.Close()
		return name, version
	}
	return "", ""
}

// parseOSRelease extracts NAME and VERSION_ID from os-release(5) content.
func parseOSRelease(r io.Reader) (name, version string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.Trim(value, `"'`)
		switch key {
		case "NAME":
			name = value
		case "VERSION_ID":
			version = value
		}
	}
	return name, version
}
