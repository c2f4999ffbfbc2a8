package subtitles

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/forPelevin/hlfinish/internal/types"
)

// Latin and Arabic punctuation removed when a style asks for it.
var rePunct = regexp.MustCompile(`[،,.؟?!؛;:'"()\[\]]`)

// minSegmentDuration keeps proportional timing well defined for zero-length
// segments.
const minSegmentDuration = 10 * time.Millisecond

// WordTiming is one displayable word, clip-relative.
type WordTiming struct {
	Word  string
	Start time.Duration
	End   time.Duration
}

// ResolveWords produces per-word timings for one rebased segment. Explicit
// word timestamps win; otherwise the segment duration is split evenly across
// the whitespace-separated words of its text.
func ResolveWords(seg types.Segment, stripPunct bool) []WordTiming {
	if len(seg.Words) > 0 {
		out := make([]WordTiming, 0, len(seg.Words))
		for _, w := range seg.Words {
			text := cleanWord(w.Word, stripPunct)
			if text == "" {
				continue
			}
			out = append(out, WordTiming{Word: text, Start: dur(w.Start), End: dur(w.End)})
		}
		return out
	}

	text := strings.TrimSpace(seg.Text)
	if stripPunct {
		text = rePunct.ReplaceAllString(text, "")
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}

	start := dur(seg.Start)
	span := dur(seg.End) - start
	if span < minSegmentDuration {
		span = minSegmentDuration
	}
	n := time.Duration(len(fields))
	out := make([]WordTiming, 0, len(fields))
	for i, f := range fields {
		k := time.Duration(i)
		out = append(out, WordTiming{
			Word:  cleanWord(f, false),
			Start: start + span*k/n,
			End:   start + span*(k+1)/n,
		})
	}
	return out
}

// CollectWords concatenates the word timings of all segments in order.
func CollectWords(segs []types.Segment, stripPunct bool) []WordTiming {
	var out []WordTiming
	for _, s := range segs {
		out = append(out, ResolveWords(s, stripPunct)...)
	}
	return out
}

func cleanWord(w string, stripPunct bool) string {
	w = norm.NFC.String(strings.TrimSpace(w))
	if stripPunct {
		w = rePunct.ReplaceAllString(w, "")
	}
	return strings.TrimSpace(w)
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
