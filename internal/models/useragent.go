package models

import "strings"

// UserAgent is the coarse client description stored with transactions
type UserAgent struct {
	OS      string `json:"os_name"`
	Browser string `json:"browser_name"`
}

// ParseUserAgent extracts operating system and browser family names.
// Order matters: Edge and Chrome both advertise "Safari", Chrome on iOS
// advertises "Mac OS X".
func ParseUserAgent(ua string) UserAgent {
	out := UserAgent{OS: "Unknown", Browser: "Unknown"}
	if ua == "" {
		return out
	}

	switch {
	case strings.Contains(ua, "Windows"):
		out.OS = "Windows"
	case strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"):
		out.OS = "iOS"
	case strings.Contains(ua, "Android"):
		out.OS = "Android"
	case strings.Contains(ua, "Mac OS X"), strings.Contains(ua, "Macintosh"):
		out.OS = "Macintosh"
	case strings.Contains(ua, "Linux"):
		out.OS = "Linux"
	}

	switch {
	case strings.Contains(ua, "Edg/"), strings.Contains(ua, "Edge/"):
		out.Browser = "Microsoft Edge"
	case strings.Contains(ua, "OPR/"), strings.Contains(ua, "Opera"):
		out.Browser = "Opera"
	case strings.Contains(ua, "Firefox/"), strings.Contains(ua, "FxiOS/"):
		out.Browser = "Firefox"
	case strings.Contains(ua, "Chrome/"), strings.Contains(ua, "CriOS/"):
		out.Browser = "Chrome"
	case strings.Contains(ua, "Safari/"):
		out.Browser = "Safari"
	}

	return out
}
