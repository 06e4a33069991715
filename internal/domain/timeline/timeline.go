// Package timeline holds the word-level acoustic timeline for one recording:
// an ordered, immutable sequence of recognized words with start/end seconds.
package timeline

import (
	"fmt"
	"strings"

	"github.com/forPelevin/shortcut/internal/types"
)

type Word struct {
	Text  string
	Start float64
	End   float64
}

// Timeline is read-only after construction and safe for concurrent lookups.
type Timeline []Word

// FromTranscript flattens per-segment word lists into a single timeline.
// Zero-width and empty words are dropped; ASR outputs without word timestamps
// yield an empty timeline, which downstream matching treats as "no match".
func FromTranscript(tr types.Transcript) Timeline {
	var out Timeline
	for _, s := range tr.Segments {
		for _, w := range s.Words {
			if w.End <= w.Start {
				continue
			}
			text := strings.TrimSpace(w.Word)
			if text == "" {
				continue
			}
			out = append(out, Word{Text: text, Start: w.Start, End: w.End})
		}
	}
	return out
}

// Validate checks the structural input contract. A violation indicates a
// broken upstream transcriber, not a noisy real-world match, so it is
// surfaced immediately rather than recovered per candidate.
func (t Timeline) Validate() error {
	for i, w := range t {
		if w.End < w.Start {
			return fmt.Errorf("timeline word %d (%q): end %.3f before start %.3f", i, w.Text, w.End, w.Start)
		}
		if i > 0 && w.Start < t[i-1].Start {
			return fmt.Errorf("timeline word %d (%q): start %.3f precedes previous start %.3f", i, w.Text, w.Start, t[i-1].Start)
		}
	}
	return nil
}

// WindowText joins the texts of up to n words starting at i with single
// spaces. The slice bound is clamped so callers can ask for windows that run
// past the tail.
func (t Timeline) WindowText(i, n int) string {
	if i < 0 || i >= len(t) || n <= 0 {
		return ""
	}
	j := i + n
	if j > len(t) {
		j = len(t)
	}
	parts := make([]string, 0, j-i)
	for _, w := range t[i:j] {
		parts = append(parts, w.Text)
	}
	return strings.Join(parts, " ")
}

// Text returns the full transcript text reconstructed from the timeline.
func (t Timeline) Text() string {
	return t.WindowText(0, len(t))
}

// Normalize canonicalizes text for comparison: lower-case, whitespace runs
// collapsed to a single space, leading/trailing whitespace trimmed. Applied
// identically to target phrases and token windows so both sides compare on
// equal footing.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
