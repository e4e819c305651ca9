package device

import "strings"

// Probe is the raw capability snapshot a client reports about its runtime.
// Absent signals are zero values and classify as unsupported.
type Probe struct {
	UserAgent             string `json:"userAgent"`
	DisplayModeStandalone bool   `json:"displayModeStandalone"`
	HasServiceWorker      bool   `json:"hasServiceWorker"`
	HasPushManager        bool   `json:"hasPushManager"`
	HasEventSource        bool   `json:"hasEventSource"`
}

// Capabilities is the classified view of a client environment. Purely
// descriptive except CanUseWebPush, which encodes the platform policy.
type Capabilities struct {
	IsMobile       bool   `json:"isMobile"`
	IsIOS          bool   `json:"isIOS"`
	IsAndroid      bool   `json:"isAndroid"`
	IsStandalone   bool   `json:"isStandalone"`
	CanUseWebPush  bool   `json:"canUseWebPush"`
	HasEventSource bool   `json:"hasEventSource"`
	BrowserName    string `json:"browserName"`
	BrowserVersion string `json:"browserVersion"`
}

// Detect classifies a probe. Pure and side-effect free.
//
// Web push is reported usable only when the runtime exposes both service
// worker and push manager AND the platform allows it: iOS sandboxes push to
// installed (standalone) app shells, every other platform allows it in a tab.
func Detect(probe Probe) Capabilities {
	ua := strings.ToLower(probe.UserAgent)

	isIOS := strings.Contains(ua, "iphone") ||
		strings.Contains(ua, "ipad") ||
		strings.Contains(ua, "ipod")
	isAndroid := strings.Contains(ua, "android")
	isMobile := isIOS || isAndroid || strings.Contains(ua, "mobile")

	pushCapable := probe.HasServiceWorker && probe.HasPushManager
	canUseWebPush := pushCapable && (!isIOS || probe.DisplayModeStandalone)

	name, version := parseBrowser(ua)

	return Capabilities{
		IsMobile:       isMobile,
		IsIOS:          isIOS,
		IsAndroid:      isAndroid,
		IsStandalone:   probe.DisplayModeStandalone,
		CanUseWebPush:  canUseWebPush,
		HasEventSource: probe.HasEventSource,
		BrowserName:    name,
		BrowserVersion: version,
	}
}

// browser tokens in match-priority order; later entries are fallbacks that
// earlier browsers also advertise (every Chrome UA contains "safari").
var browserTokens = []struct {
	token string
	name  string
}{
	{"edg/", "edge"},
	{"opr/", "opera"},
	{"samsungbrowser/", "samsung"},
	{"crios/", "chrome"},
	{"chrome/", "chrome"},
	{"fxios/", "firefox"},
	{"firefox/", "firefox"},
	{"version/", "safari"},
}

func parseBrowser(ua string) (string, string) {
	for _, candidate := range browserTokens {
		idx := strings.Index(ua, candidate.token)
		if idx < 0 {
			continue
		}
		if candidate.name == "safari" && !strings.Contains(ua, "safari") {
			continue
		}
		rest := ua[idx+len(candidate.token):]
		return candidate.name, versionPrefix(rest)
	}
	return "unknown", "unknown"
}

func versionPrefix(rest string) string {
	end := 0
	for end < len(rest) {
		c := rest[end]
		if (c < '0' || c > '9') && c != '.' {
			break
		}
		end++
	}
	if end == 0 {
		return "unknown"
	}
	return rest[:end]
}
