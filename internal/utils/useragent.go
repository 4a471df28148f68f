package utils

import (
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/mssola/useragent"
)

// UserAgentInfo is the display breakdown of a User-Agent header.
type UserAgentInfo struct {
	Browser string
	OS      string
	Device  string
}

const unknown = "Unknown"

type browserRule struct {
	token string
	name  string
}

// Chromium forks are matched before the parser runs since they also
// advertise Chrome.
var forkRules = []browserRule{
	{"Edg/", "Edge"},
	{"OPR/", "Opera"},
	{"SamsungBrowser/", "Samsung Internet"},
}

var apiClientRules = []browserRule{
	{"curl/", "curl"},
	{"PostmanRuntime/", "Postman"},
}

// Used when the parser cannot name the browser. Order matters: Chrome
// advertises Safari.
var browserRules = []browserRule{
	{"Edge/", "Edge"},
	{"CriOS/", "Chrome"},
	{"Chrome/", "Chrome"},
	{"FxiOS/", "Firefox"},
	{"Firefox/", "Firefox"},
	{"Version/", "Safari"},
}

// A crawler names itself with a versioned product token or links to its docs.
// Device models such as "CUBOT_X30" contain "bot" but match neither.
var crawlerToken = regexp.MustCompile(`(?i)(bot|crawler|spider)[\w-]*/\d|\+https?://`)

// ParseUserAgent extracts browser, OS and device class from a User-Agent string.
func ParseUserAgent(ua string) UserAgentInfo {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return UserAgentInfo{Browser: unknown, OS: unknown, Device: unknown}
	}
	if name, ok := matchRules(apiClientRules, ua); ok {
		return UserAgentInfo{Browser: name, OS: unknown, Device: "API client"}
	}

	agent := useragent.New(ua)
	return UserAgentInfo{
		Browser: parseBrowser(agent, ua),
		OS:      parseOS(agent, ua),
		Device:  parseDevice(agent, ua),
	}
}

// WithPlatformVersion refines the OS using the Sec-CH-UA-Platform-Version
// hint. Windows reports 13 or above from Windows 11 on.
func (i UserAgentInfo) WithPlatformVersion(hint string) UserAgentInfo {
	hint = strings.Trim(strings.TrimSpace(hint), `"`)
	if hint == "" || i.OS != "Windows 10" {
		return i
	}
	major, _, _ := strings.Cut(hint, ".")
	if v, err := strconv.Atoi(major); err == nil && v >= 13 {
		i.OS = "Windows 11"
	}
	return i
}

func parseBrowser(agent *useragent.UserAgent, ua string) string {
	if name, ok := matchRules(forkRules, ua); ok {
		return name
	}
	name, version := agent.Browser()
	if name == "" || name == "Mozilla" {
		if fallback, ok := matchRules(browserRules, ua); ok {
			return fallback
		}
		return unknown
	}
	return withMajor(name, version)
}

func parseOS(agent *useragent.UserAgent, ua string) string {
	switch agent.Platform() {
	case "iPhone", "iPad", "iPod":
		return "iOS"
	}

	info := agent.OSInfo()
	switch {
	case strings.HasPrefix(info.Name, "Windows"):
		return agent.OS()
	case info.Name == "Android":
		return "Android"
	case strings.HasPrefix(info.Name, "CrOS"):
		return "ChromeOS"
	case info.Name == "Mac OS X":
		return "macOS"
	case info.Name == "Linux":
		return "Linux"
	}
	return fallbackOS(ua)
}

func parseDevice(agent *useragent.UserAgent, ua string) string {
	mobile := agent.Mobile() || strings.Contains(ua, "Mobi")
	switch {
	case crawlerToken.MatchString(ua), agent.Bot() && !mobile:
		return "Bot"
	case strings.Contains(ua, "iPad"), strings.Contains(ua, "Tablet"):
		return "Tablet"
	case strings.Contains(ua, "Android") && !mobile:
		return "Tablet"
	case mobile, strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPod"):
		return "Mobile"
	default:
		return "Desktop"
	}
}

func matchRules(rules []browserRule, ua string) (string, bool) {
	for _, rule := range rules {
		idx := strings.Index(ua, rule.token)
		if idx < 0 {
			continue
		}
		if rule.name == "Safari" && !strings.Contains(ua, "Safari/") {
			continue
		}
		version := ua[idx+len(rule.token):]
		if end := strings.IndexAny(version, " ;)"); end >= 0 {
			version = version[:end]
		}
		return withMajor(rule.name, version), true
	}
	return "", false
}

// withMajor keeps only the major version, "Chrome 120" rather than "Chrome 120.0.0.0".
func withMajor(name, version string) string {
	major, _, _ := strings.Cut(version, ".")
	if major == "" {
		return name
	}
	return name + " " + major
}

func fallbackOS(ua string) string {
	switch {
	case strings.Contains(ua, "Windows"):
		return "Windows"
	case strings.Contains(ua, "Android"):
		return "Android"
	case strings.Contains(ua, "CrOS"):
		return "ChromeOS"
	case strings.Contains(ua, "Mac OS X"), strings.Contains(ua, "Macintosh"):
		return "macOS"
	case strings.Contains(ua, "Linux"):
		return "Linux"
	default:
		return unknown
	}
}

// ClientIP picks the originating address: the first X-Forwarded-For hop,
// then X-Real-IP, then the connection's remote address.
func ClientIP(forwardedFor, realIP, remoteAddr string) string {
	if forwardedFor != "" {
		first := strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(realIP)); ip != nil {
		return ip.String()
	}
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return unknown
}
