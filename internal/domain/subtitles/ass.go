package subtitles

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

const styleName = "Default"

// utf8BOM is expected by some libass builds to detect the encoding.
const utf8BOM = "\ufeff"

// BuildDocument serializes the resolved style and events as an ASS script.
func BuildDocument(st StyleParams, events []Event) string {
	var b strings.Builder
	b.WriteString(assHeader(st))
	for i, ev := range events {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(ev.Start))
		b.WriteString(",")
		b.WriteString(assTime(ev.End))
		b.WriteString(",")
		b.WriteString(styleName)
		b.WriteString(",,0,0,0,,")
		b.WriteString(ev.Text)
	}
	return b.String()
}

// WriteDocument writes the document as UTF-8 with a byte-order mark.
func WriteDocument(path string, st StyleParams, events []Event) error {
	return os.WriteFile(path, []byte(utf8BOM+BuildDocument(st, events)), 0o644)
}

func assHeader(st StyleParams) string {
	style := strings.Join([]string{
		styleName,
		st.Font,
		strconv.Itoa(st.BaseSize),
		st.BaseColor,
		"&H000000FF&",
		st.OutlineColor,
		st.ShadowColor,
		strconv.Itoa(st.Bold),
		strconv.Itoa(st.Italic),
		strconv.Itoa(st.Underline),
		"0,100,100,0,0",
		strconv.Itoa(st.BorderStyle),
		formatFloat(st.OutlineThickness),
		strconv.Itoa(st.ShadowSize),
		strconv.Itoa(st.Alignment),
		"10,10",
		strconv.Itoa(st.MarginV),
		"1",
	}, ",")

	return fmt.Sprintf(`[Script Info]
ScriptType: v4.00+
PlayResX: %d
PlayResY: %d
WrapStyle: 0
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: %s

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`, st.PlayResX, st.PlayResY, style)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

// inlineColor drops the alpha byte: &HAABBGGRR& becomes &HBBGGRR&.
func inlineColor(c string) string {
	clean := strings.Trim(strings.TrimSpace(c), "&H")
	if len(clean) == 8 {
		return "&H" + clean[2:] + "&"
	}
	return "&H" + clean + "&"
}

// formatFloat always keeps one decimal for whole numbers (2 -> "2.0").
func formatFloat(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}
