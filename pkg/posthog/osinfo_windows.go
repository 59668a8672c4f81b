package posthog

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func detectOS() OSInfo {
	v := windows.RtlGetVersion()
	if v == nil {
		return OSInfo{Name: "Windows"}
	}
	return OSInfo{
		Name:    "Windows",
		Version: fmt.Sprintf("%d.%d.%d", v.MajorVersion, v.MinorVersion, v.BuildNumber),
	}
}
