package subtitles

import (
	"sort"

	"github.com/forPelevin/hlfinish/internal/types"
)

// DefaultOverlapTolerance widens the clip window on both sides when selecting
// transcript segments, in seconds.
const DefaultOverlapTolerance = 1.0

// ExtractWindow selects the segments overlapping the clip window and rebases
// them (and their words) so that the clip start becomes zero. Times that would
// fall before the clip start are clamped to zero. An empty result means there
// is nothing to subtitle.
func ExtractWindow(segs []types.Segment, clip types.ClipWindow, tolerance float64) []types.Segment {
	var out []types.Segment
	for _, s := range segs {
		if !(s.Start < clip.EndSec+tolerance && s.End > clip.StartSec-tolerance) {
			continue
		}
		r := types.Segment{
			Start: rebase(s.Start, clip.StartSec),
			End:   rebase(s.End, clip.StartSec),
			Text:  s.Text,
		}
		if len(s.Words) > 0 {
			r.Words = make([]types.Word, 0, len(s.Words))
			for _, w := range s.Words {
				r.Words = append(r.Words, types.Word{
					Start: rebase(w.Start, clip.StartSec),
					End:   rebase(w.End, clip.StartSec),
					Word:  w.Word,
				})
			}
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func rebase(sec, origin float64) float64 {
	return max(0, sec-origin)
}
