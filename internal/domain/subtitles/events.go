package subtitles

import (
	"strconv"
	"strings"
	"time"
)

// Event is one timed subtitle line, clip-relative.
type Event struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Synthesize converts word timings into display events for the style's mode.
// No words yields no events.
func Synthesize(words []WordTiming, st StyleParams) []Event {
	if len(words) == 0 {
		return nil
	}
	switch st.Mode {
	case ModeWordByWord:
		return wordByWordEvents(words, st)
	case ModeNoHighlight:
		return blockEvents(words, st)
	default:
		return highlightEvents(words, st)
	}
}

// highlightEvents emits one event per word, showing the word's whole block
// with the active word emphasized.
func highlightEvents(words []WordTiming, st StyleParams) []Event {
	events := make([]Event, 0, len(words))
	on := emphasis(st)
	off := "{\\c" + inlineColor(st.BaseColor) + "\\fs" + strconv.Itoa(st.BaseSize) + "}"
	for _, block := range blocks(words, st.WordsPerBlock) {
		for active, w := range block {
			parts := make([]string, len(block))
			for j, bw := range block {
				if j == active {
					parts[j] = on + sanitizeASS(bw.Word) + off
					continue
				}
				parts[j] = sanitizeASS(bw.Word)
			}
			events = append(events, Event{Start: w.Start, End: w.End, Text: strings.Join(parts, " ")})
		}
	}
	return events
}

func wordByWordEvents(words []WordTiming, st StyleParams) []Event {
	events := make([]Event, 0, len(words))
	on := emphasis(st)
	for _, w := range words {
		events = append(events, Event{Start: w.Start, End: w.End, Text: on + sanitizeASS(w.Word)})
	}
	return events
}

func blockEvents(words []WordTiming, st StyleParams) []Event {
	bs := blocks(words, st.WordsPerBlock)
	events := make([]Event, 0, len(bs))
	for _, block := range bs {
		parts := make([]string, len(block))
		for i, w := range block {
			parts[i] = sanitizeASS(w.Word)
		}
		events = append(events, Event{
			Start: block[0].Start,
			End:   block[len(block)-1].End,
			Text:  strings.Join(parts, " "),
		})
	}
	return events
}

func emphasis(st StyleParams) string {
	return "{\\c" + inlineColor(st.HighlightColor) + "\\fs" + strconv.Itoa(st.HighlightSize) + "}"
}

func blocks(words []WordTiming, size int) [][]WordTiming {
	if size <= 0 {
		size = 1
	}
	out := make([][]WordTiming, 0, (len(words)+size-1)/size)
	for i := 0; i < len(words); i += size {
		out = append(out, words[i:min(i+size, len(words))])
	}
	return out
}
