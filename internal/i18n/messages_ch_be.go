package i18n

// berneseGermanMessages contains all Bernese Swiss German (Bärndütsch) translations
var berneseGermanMessages = map[string]string{
	// Error messages
	"error.no_identifier": "Ke Audio-ID i dr URL agä!",
	"error.not_found":     "Audio nid gfunde",
	"error.unavailable":   "Dr Audio-Dienscht isch grad nid erreichbar",
	"error.generic":       "Öppis isch schief gloffe bim Lade vom Audio.",
	"error.title":         "Cha nid glade wärde",
	"error.playback":      "Abspile het nid funktioniert: %s",
	"error.rate_limited":  "Z viu Aafrage. Wart bitte es Momäntli.",

	// Page text
	"page.title":        "AudioFlow",
	"page.loading":      "Audio wird glade...",
	"page.demo_notice":  "Es lauft z Demo-Audio",
	"page.presented_by": "Präsentiert vo %s",

	// Player controls
	"player.play":     "Abspile",
	"player.pause":    "Pouse",
	"player.mute":     "Stumm",
	"player.unmute":   "Ton a",
	"player.seek":     "Spuele",
	"player.position": "%s / %s",

	// Buttons
	"button.retry":    "Nomau probiere",
	"button.share":    "Teile",
	"button.copied":   "Kopiert!",
	"button.download": "Abelade",

	// Links
	"link.website": "Websyte bsueche",
}
