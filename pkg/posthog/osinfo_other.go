//go:build !linux && !darwin && !windows

package posthog

import "runtime"

func detectOS() OSInfo {
	return OSInfo{Name: runtime.GOOS}
}
