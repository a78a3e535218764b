package i18n

// englishMessages contains all English translations.
var englishMessages = map[string]string{
	// Error messages
	"error.no_identifier": "No audio ID provided in URL!",
	"error.not_found":     "Audio not found",
	"error.unavailable":   "Audio service unavailable",
	"error.generic":       "Something went wrong while fetching the audio.",
	"error.title":         "Unable to Load",
	"error.playback":      "Playback failed: %s",
	"error.rate_limited":  "Too many requests. Please wait a moment.",

	// Page text
	"page.title":        "AudioFlow",
	"page.loading":      "Loading audio experience...",
	"page.demo_notice":  "Showing demo audio",
	"page.presented_by": "Presented by %s",

	// Player controls
	"player.play":     "Play",
	"player.pause":    "Pause",
	"player.mute":     "Mute",
	"player.unmute":   "Unmute",
	"player.seek":     "Seek",
	"player.position": "%s / %s",

	// Buttons
	"button.retry":    "Try Again",
	"button.share":    "Share",
	"button.copied":   "Copied!",
	"button.download": "Download",

	// Links
	"link.website": "Visit Website",
}
