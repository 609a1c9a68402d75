package mediaclient

// SubtitleCustomization mirrors the rendering backend's styling object. The
// pipeline always sends a full styling block; operators can override the
// defaults through the subtitle style file (see config).
type SubtitleCustomization struct {
	Enabled               bool    `json:"enabled" yaml:"enabled"`
	Position              string  `json:"position" yaml:"position"`
	FontFamily            string  `json:"font_family" yaml:"font_family"`
	FontColor             string  `json:"font_color" yaml:"font_color"`
	OutlineColor          string  `json:"outline_color" yaml:"outline_color"`
	OutlineWidth          float64 `json:"outline_width" yaml:"outline_width"`
	ShadowEnabled         bool    `json:"shadow_enabled" yaml:"shadow_enabled"`
	ShadowColor           string  `json:"shadow_color" yaml:"shadow_color"`
	ShadowOffset          float64 `json:"shadow_offset" yaml:"shadow_offset"`
	MaxWordsPerLine       int     `json:"max_words_per_line" yaml:"max_words_per_line"`
	MarginHorizontal      int     `json:"margin_horizontal" yaml:"margin_horizontal"`
	FadeInDuration        float64 `json:"fade_in_duration" yaml:"fade_in_duration"`
	FadeOutDuration       float64 `json:"fade_out_duration" yaml:"fade_out_duration"`
	KaraokeEnabled        bool    `json:"karaoke_enabled" yaml:"karaoke_enabled"`
	KaraokeHighlightColor string  `json:"karaoke_highlight_color" yaml:"karaoke_highlight_color"`
	KaraokePopupScale     float64 `json:"karaoke_popup_scale" yaml:"karaoke_popup_scale"`
}

// DefaultSubtitleCustomization returns the styling the rendering backend is
// tuned for: white Anton text with a black outline and karaoke highlighting.
func DefaultSubtitleCustomization() SubtitleCustomization {
	return SubtitleCustomization{
		Enabled:               true,
		Position:              "bottom",
		FontFamily:            "Anton",
		FontColor:             "#FFFFFF",
		OutlineColor:          "#000000",
		OutlineWidth:          2.0,
		ShadowEnabled:         true,
		ShadowColor:           "#000000",
		ShadowOffset:          2.0,
		MaxWordsPerLine:       5,
		MarginHorizontal:      50,
		FadeInDuration:        0.2,
		FadeOutDuration:       0.2,
		KaraokeEnabled:        true,
		KaraokeHighlightColor: "#FFFF00",
		KaraokePopupScale:     1.2,
	}
}
