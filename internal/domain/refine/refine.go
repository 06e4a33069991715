// Package refine nudges resolved segment starts backward to the nearest
// clean sentence break so clips do not open mid-thought. It is best-effort:
// a segment is only ever moved earlier, and when no boundary qualifies the
// segment passes through unchanged.
package refine

import (
	"strings"
	"time"

	"github.com/forPelevin/shortcut/internal/domain/align"
	"github.com/forPelevin/shortcut/internal/domain/timeline"
)

// DefaultLookback bounds how far before the resolved start a cleaner
// sentence boundary may be searched for.
const DefaultLookback = 10 * time.Second

// Gaps at least this long between consecutive words count as a natural
// pause, i.e. a sentence-initial point even without terminal punctuation.
const pauseThreshold = 350 * time.Millisecond

type Outcome string

const (
	OutcomeAdjusted     Outcome = "adjusted"
	OutcomeAlreadyClean Outcome = "already_clean"
	OutcomeNoBoundary   Outcome = "no_boundary"
	OutcomeUnavailable  Outcome = "source_unavailable"
)

// Result pairs the (possibly adjusted) segment with the reason the refiner
// did or did not move it, so callers can observe the decision instead of
// relying on silent failure.
type Result struct {
	Segment align.Segment
	Outcome Outcome
}

// Starts searches [start-lookback, start] of each segment for the latest
// sentence-initial word and pulls the start back to it. The new start is
// never later than the original, and the end never changes.
func Starts(segs []align.Segment, tl timeline.Timeline, lookback time.Duration) []Result {
	if lookback <= 0 {
		lookback = DefaultLookback
	}

	out := make([]Result, 0, len(segs))
	for _, seg := range segs {
		if len(tl) == 0 {
			out = append(out, Result{Segment: seg, Outcome: OutcomeUnavailable})
			continue
		}

		boundary, found := sentenceStart(tl, seg.Start, lookback.Seconds())
		switch {
		case !found:
			out = append(out, Result{Segment: seg, Outcome: OutcomeNoBoundary})
		case boundary >= seg.Start:
			out = append(out, Result{Segment: seg, Outcome: OutcomeAlreadyClean})
		default:
			adjusted := seg
			adjusted.Start = boundary
			out = append(out, Result{Segment: adjusted, Outcome: OutcomeAdjusted})
		}
	}
	return out
}

// Segments unwraps refined results back into plain segments.
func Segments(results []Result) []align.Segment {
	out := make([]align.Segment, 0, len(results))
	for _, r := range results {
		out = append(out, r.Segment)
	}
	return out
}

// sentenceStart returns the start time of the latest sentence-initial word
// at or before start, no earlier than start-lookback. A word is
// sentence-initial when the previous word carries terminal punctuation or a
// qualifying pause precedes it; the first timeline word always qualifies.
func sentenceStart(tl timeline.Timeline, start, lookback float64) (float64, bool) {
	earliest := start - lookback
	best := 0.0
	found := false
	for i, w := range tl {
		if w.Start > start {
			break
		}
		if w.Start < earliest {
			continue
		}
		if !isSentenceInitial(tl, i) {
			continue
		}
		if !found || w.Start > best {
			best = w.Start
			found = true
		}
	}
	return best, found
}

func isSentenceInitial(tl timeline.Timeline, i int) bool {
	if i == 0 {
		return true
	}
	prev := tl[i-1]
	if hasTerminalPunctuation(prev.Text) {
		return true
	}
	gap := tl[i].Start - prev.End
	return gap >= pauseThreshold.Seconds()
}

func hasTerminalPunctuation(s string) bool {
	s = strings.TrimSpace(s)
	trimTail := `"'` + "`" + ")]}"
	for len(s) > 0 && strings.ContainsRune(trimTail, rune(s[len(s)-1])) {
		s = s[:len(s)-1]
	}
	if s == "" {
		return false
	}
	last := s[len(s)-1]
	return last == '.' || last == '!' || last == '?'
}
