package subtitles

import "math"

type RenderMode string

const (
	ModeHighlight   RenderMode = "highlight"
	ModeWordByWord  RenderMode = "word_by_word"
	ModeNoHighlight RenderMode = "no_highlight"
)

func (m RenderMode) Valid() bool {
	switch m {
	case ModeHighlight, ModeWordByWord, ModeNoHighlight:
		return true
	}
	return false
}

type Position string

const (
	PositionBottom Position = "bottom"
	PositionMiddle Position = "middle"
	PositionTop    Position = "top"
)

// StylePreset is one entry of the externally supplied preset table. Colors
// use the ASS &HAABBGGRR& notation.
type StylePreset struct {
	Name              string     `toml:"name" json:"name"`
	Font              string     `toml:"font" json:"font"`
	BaseSize          int        `toml:"base_size" json:"base_size"`
	HighlightSize     int        `toml:"highlight_size" json:"highlight_size"`
	BaseColor         string     `toml:"base_color" json:"base_color"`
	HighlightColor    string     `toml:"highlight_color" json:"highlight_color"`
	Bold              int        `toml:"bold" json:"bold"`
	Italic            int        `toml:"italic" json:"italic"`
	Underline         int        `toml:"underline" json:"underline"`
	BorderStyle       int        `toml:"border_style" json:"border_style"`
	OutlineThickness  float64    `toml:"outline_thickness" json:"outline_thickness"`
	OutlineColor      string     `toml:"outline_color" json:"outline_color"`
	ShadowSize        int        `toml:"shadow_size" json:"shadow_size"`
	ShadowColor       string     `toml:"shadow_color" json:"shadow_color"`
	Mode              RenderMode `toml:"mode" json:"mode"`
	WordsPerBlock     int        `toml:"words_per_block" json:"words_per_block"`
	VerticalPosition  int        `toml:"vertical_position" json:"vertical_position"`
	Alignment         int        `toml:"alignment" json:"alignment"`
	RemovePunctuation bool       `toml:"remove_punctuation" json:"remove_punctuation"`
}

// Presets maps a style key to its preset.
type Presets map[string]StylePreset

// DefaultStyleKey is reported when no preset could be found and the built-in
// style was used.
const DefaultStyleKey = "default"

const fallbackCategory = "knowledge"

// CategoryStyles picks a style key for clips that do not name one.
var CategoryStyles = map[string]string{
	"knowledge":    "hormozi_hijau",
	"viral_quote":  "hormozi_kuning",
	"emotional":    "soft_dakwah",
	"quran_hadith": "arabic_style",
	"beginner":     "minimalis_putih",
}

// DefaultPreset is the built-in style used when the preset table has no
// usable entry.
func DefaultPreset() StylePreset {
	return StylePreset{
		Name:              "Default",
		Font:              "Montserrat-Regular",
		BaseSize:          70,
		HighlightSize:     84,
		BaseColor:         "&H00FFFFFF&",
		HighlightColor:    "&H0033CC00&",
		Bold:              1,
		BorderStyle:       1,
		OutlineThickness:  2.5,
		OutlineColor:      "&HFF000000&",
		ShadowSize:        2,
		ShadowColor:       "&H00000000&",
		Mode:              ModeHighlight,
		WordsPerBlock:     3,
		VerticalPosition:  120,
		Alignment:         2,
		RemovePunctuation: true,
	}
}

// StyleParams is the resolved style for one clip.
type StyleParams struct {
	StylePreset
	MarginV  int
	PlayResX int
	PlayResY int
}

type StyleRequest struct {
	Key         string
	Category    string
	VideoWidth  int
	VideoHeight int
	FontSize    int // 0 keeps the resolution-based size
	Position    Position
}

// StyleKeyFor returns the explicit key, or the category default.
func StyleKeyFor(key, category string) string {
	if key != "" {
		return key
	}
	if k, ok := CategoryStyles[category]; ok {
		return k
	}
	return CategoryStyles[fallbackCategory]
}

// ResolveStyle turns a preset plus the probed video size and user overrides
// into concrete parameters. It returns the key of the preset actually used.
func ResolveStyle(presets Presets, req StyleRequest) (StyleParams, string) {
	key := StyleKeyFor(req.Key, req.Category)
	preset, ok := presets[key]
	if !ok {
		key = CategoryStyles[fallbackCategory]
		preset, ok = presets[key]
	}
	if !ok {
		key = DefaultStyleKey
		preset = DefaultPreset()
	}
	preset = withDefaults(preset)

	h := req.VideoHeight
	if req.FontSize > 0 {
		preset.BaseSize = req.FontSize
	} else {
		preset.BaseSize = max(40, roundToEven(float64(h)*0.065))
	}
	preset.HighlightSize = roundToEven(float64(preset.BaseSize) * 1.2)

	var margin int
	switch req.Position {
	case PositionTop:
		// Bottom-anchored text with a large margin ends up near the top.
		margin = int(math.Round(float64(h) * 0.85))
		preset.Alignment = 2
	case PositionMiddle:
		margin = int(math.Round(float64(h) * 0.45))
	default:
		margin = int(math.Round(float64(h) * 0.06))
	}
	preset.VerticalPosition = margin

	return StyleParams{
		StylePreset: preset,
		MarginV:     margin,
		PlayResX:    req.VideoWidth,
		PlayResY:    req.VideoHeight,
	}, key
}

func withDefaults(p StylePreset) StylePreset {
	d := DefaultPreset()
	if p.Font == "" {
		p.Font = d.Font
	}
	if p.BaseColor == "" {
		p.BaseColor = d.BaseColor
	}
	if p.HighlightColor == "" {
		p.HighlightColor = d.HighlightColor
	}
	if p.OutlineColor == "" {
		p.OutlineColor = d.OutlineColor
	}
	if p.ShadowColor == "" {
		p.ShadowColor = d.ShadowColor
	}
	if !p.Mode.Valid() {
		p.Mode = ModeHighlight
	}
	if p.WordsPerBlock <= 0 {
		p.WordsPerBlock = d.WordsPerBlock
	}
	if p.Alignment == 0 {
		p.Alignment = d.Alignment
	}
	if p.BorderStyle == 0 {
		p.BorderStyle = d.BorderStyle
	}
	return p
}

// roundToEven rounds x to the nearest even integer.
func roundToEven(x float64) int {
	return int(math.RoundToEven(x/2)) * 2
}
