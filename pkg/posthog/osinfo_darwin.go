package posthog

import "golang.org/x/sys/unix"

func detectOS() OSInfo {
	version, err := unix.Sysctl("kern.osproductversion")
	if err != nil {
		version = ""
	}
	return OSInfo{Name: "Mac OS", Version: version}
}
