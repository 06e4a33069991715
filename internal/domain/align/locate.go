// Package align maps quoted text spans onto the word timeline. The locator
// is a pure scoring primitive: it always returns its best window and leaves
// confidence filtering to the resolver.
package align

import (
	"errors"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/forPelevin/shortcut/internal/domain/timeline"
)

var (
	ErrEmptyTimeline = errors.New("align: empty timeline")
	ErrEmptyPhrase   = errors.New("align: empty target phrase")
)

// DefaultWindowBuffer is the number of extra tokens added to the sliding
// window so the selector may quote slightly more or fewer words than the
// acoustic tokenizer split.
const DefaultWindowBuffer = 3

// Scores above this end the scan early; a near-exact window will not be
// beaten meaningfully by anything later.
const earlyExitScore = 0.95

// Match is the locator's answer: the timeline index where the best-scoring
// window begins, and its similarity to the target phrase.
type Match struct {
	Pos        int
	Confidence float64
}

// Locate slides a window across the timeline and scores each window's
// normalized text against the normalized target with a character-level,
// edit-distance-derived ratio in [0,1]. At each position widths from one
// word under the quote up to wordCount(target)+buffer are tried and the best
// kept, so a quote that the acoustic tokenizer split into slightly more or
// fewer words still scores 1.0 when the span is present verbatim.
func Locate(target string, tl timeline.Timeline, buffer int) (Match, error) {
	if len(tl) == 0 {
		return Match{}, ErrEmptyTimeline
	}
	targetWords := strings.Fields(target)
	if len(targetWords) == 0 {
		return Match{}, ErrEmptyPhrase
	}
	if buffer < 0 {
		buffer = DefaultWindowBuffer
	}

	targetNorm := timeline.Normalize(target)
	n := len(targetWords)
	minSize := n - 1
	if minSize < 1 {
		minSize = 1
	}

	limit := len(tl) - n + 1
	if limit < 1 {
		limit = 1
	}

	best := Match{}
	for i := 0; i < limit; i++ {
		posBest := 0.0
		for size := minSize; size <= n+buffer; size++ {
			windowNorm := timeline.Normalize(tl.WindowText(i, size))
			if windowNorm == "" {
				continue
			}
			if score := similarity(targetNorm, windowNorm); score > posBest {
				posBest = score
			}
		}
		if posBest > best.Confidence {
			best = Match{Pos: i, Confidence: posBest}
		}
		if posBest > earlyExitScore {
			break
		}
	}
	return best, nil
}

// similarity is 1 - levenshtein/maxLen over runes: 1.0 for identical strings,
// degrading toward 0 as edits accumulate.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	la := len([]rune(a))
	lb := len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := fuzzy.LevenshteinDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}
