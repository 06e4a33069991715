package align

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/shortcut/internal/domain/timeline"
	"github.com/forPelevin/shortcut/internal/types"
)

// DefaultMinConfidence rejects windows that are likely unrelated text merely
// sharing common words with the quote.
const DefaultMinConfidence = 0.6

// Reason classifies why a candidate could not be resolved.
type Reason string

const (
	ReasonLowConfidence       Reason = "low_confidence"
	ReasonInvalidOrdering     Reason = "invalid_ordering"
	ReasonDurationOutOfBounds Reason = "duration_out_of_bounds"
	ReasonMalformedCandidate  Reason = "malformed_candidate"
)

// NoMatchError is a per-candidate outcome, not a batch failure: the caller
// drops the candidate and continues with the rest.
type NoMatchError struct {
	Reason Reason
	Detail string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("align: no match (%s): %s", e.Reason, e.Detail)
}

// Segment is a candidate resolved to acoustic timestamps. End > Start and
// both confidences meet the acceptance threshold; a Segment violating either
// is never constructed.
type Segment struct {
	Start           float64
	End             float64
	StartConfidence float64
	EndConfidence   float64
}

func (s Segment) Duration() time.Duration {
	return time.Duration((s.End - s.Start) * float64(time.Second))
}

// Options carry the tunables the resolver validates against. The threshold
// and window buffer are configuration, not constants baked into call sites.
type Options struct {
	MinConfidence float64
	MinDuration   time.Duration
	MaxDuration   time.Duration
	WindowBuffer  int
}

func (o Options) withDefaults() Options {
	if o.MinConfidence <= 0 {
		o.MinConfidence = DefaultMinConfidence
	}
	if o.WindowBuffer <= 0 {
		o.WindowBuffer = DefaultWindowBuffer
	}
	return o
}

// Resolve locates the candidate's start and end phrases independently and
// validates the resulting span. Validation order, first failure wins:
// ordering, confidence, duration.
func Resolve(q types.CandidateQuote, tl timeline.Timeline, opts Options) (Segment, error) {
	opts = opts.withDefaults()

	if strings.TrimSpace(q.StartPhrase) == "" || strings.TrimSpace(q.EndPhrase) == "" {
		return Segment{}, &NoMatchError{
			Reason: ReasonMalformedCandidate,
			Detail: fmt.Sprintf("candidate %q is missing start or end text", q.Title),
		}
	}

	start, err := Locate(q.StartPhrase, tl, opts.WindowBuffer)
	if err != nil {
		return Segment{}, err
	}
	end, err := Locate(q.EndPhrase, tl, opts.WindowBuffer)
	if err != nil {
		return Segment{}, err
	}

	// The located end position is where the end phrase begins; the segment
	// ends at the last token of that phrase, clamped to the timeline tail.
	endIdx := end.Pos + len(strings.Fields(q.EndPhrase)) - 1
	if endIdx > len(tl)-1 {
		endIdx = len(tl) - 1
	}

	if endIdx <= start.Pos {
		return Segment{}, &NoMatchError{
			Reason: ReasonInvalidOrdering,
			Detail: fmt.Sprintf("end index %d does not follow start index %d", endIdx, start.Pos),
		}
	}
	if start.Confidence < opts.MinConfidence || end.Confidence < opts.MinConfidence {
		return Segment{}, &NoMatchError{
			Reason: ReasonLowConfidence,
			Detail: fmt.Sprintf("start=%.2f end=%.2f below threshold %.2f", start.Confidence, end.Confidence, opts.MinConfidence),
		}
	}

	// Boundaries snap to actual spoken word edges, never phrase midpoints.
	startTime := tl[start.Pos].Start
	endTime := tl[endIdx].End
	span := time.Duration((endTime - startTime) * float64(time.Second))
	if span < opts.MinDuration || (opts.MaxDuration > 0 && span > opts.MaxDuration) {
		return Segment{}, &NoMatchError{
			Reason: ReasonDurationOutOfBounds,
			Detail: fmt.Sprintf("span %.1fs outside [%s, %s]", span.Seconds(), opts.MinDuration, opts.MaxDuration),
		}
	}

	return Segment{
		Start:           startTime,
		End:             endTime,
		StartConfidence: start.Confidence,
		EndConfidence:   end.Confidence,
	}, nil
}
