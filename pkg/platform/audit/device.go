package audit

import (
	"strings"

	"github.com/mssola/useragent"
)

// DeviceLabel summarises a User-Agent header for audit records, e.g.
// "Firefox 128.0 on Linux x86_64". The raw header is not stored.
func DeviceLabel(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		name, _ := ua.Browser()
		return "bot: " + name
	}

	name, version := ua.Browser()
	label := strings.TrimSpace(name + " " + version)
	if platform := ua.OS(); platform != "" {
		label += " on " + platform
	}
	if ua.Mobile() {
		label += " (mobile)"
	}
	return label
}
