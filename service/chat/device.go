package chat

import "strings"

type Device string

const (
	DeviceMobile  Device = "mobile"
	DeviceDesktop Device = "desktop"
)

var mobileMarkers = []string{"iphone", "android", "ipad", "mobile"}

// DetectDevice classifies a User-Agent header. Absent or unknown agents are desktop.
func DetectDevice(userAgent string) Device {
	ua := strings.ToLower(userAgent)
	for _, m := range mobileMarkers {
		if strings.Contains(ua, m) {
			return DeviceMobile
		}
	}
	return DeviceDesktop
}
