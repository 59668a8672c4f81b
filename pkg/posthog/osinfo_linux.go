package posthog

import "golang.org/x/sys/unix"

// detectOS reports the distribution from os-release and falls back to the
// kernel release from uname(2).
func detectOS() OSInfo {
	name, version := readOSRelease("/etc/os-release", "/usr/lib/os-release")
	if name == "" {
		name = "Linux"
	}
	if version == "" {
		version = kernelRelease()
	}
	return OSInfo{Name: name, Version: version}
}

// kernelRelease returns the uname release string, or "" if uname fails.
func kernelRelease() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return ""
	}
	return unix.ByteSliceToString(uts.Release[:])
}
