package align

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/forPelevin/shortcut/internal/domain/timeline"
	"github.com/forPelevin/shortcut/internal/types"
)

func quote(startPhrase, endPhrase string) types.CandidateQuote {
	return types.CandidateQuote{
		Title:       "t",
		StartPhrase: startPhrase,
		EndPhrase:   endPhrase,
	}
}

func TestResolve_ExactScenario(t *testing.T) {
	tl := foxTimeline(10.0)

	seg, err := Resolve(quote("the quick brown", "lazy dog"), tl, Options{
		MinDuration: time.Second,
		MaxDuration: time.Minute,
	})
	if err != nil {
		t.Fatal(err)
	}
	if seg.Start != 10.0 {
		t.Fatalf("expected start 10.0, got %v", seg.Start)
	}
	// End snaps to the end of the "dog" token.
	if want := tl[len(tl)-1].End; math.Abs(seg.End-want) > 1e-9 {
		t.Fatalf("expected end %v, got %v", want, seg.End)
	}
	if seg.StartConfidence != 1.0 || seg.EndConfidence != 1.0 {
		t.Fatalf("expected full confidence, got %v/%v", seg.StartConfidence, seg.EndConfidence)
	}
	if seg.End <= seg.Start {
		t.Fatalf("ordering invariant violated: %v <= %v", seg.End, seg.Start)
	}
}

func TestResolve_InvalidOrdering(t *testing.T) {
	tl := foxTimeline(0)

	// End phrase located before the start phrase.
	_, err := Resolve(quote("lazy dog", "the quick"), tl, Options{
		MinDuration: 0,
		MaxDuration: time.Minute,
	})
	assertNoMatch(t, err, ReasonInvalidOrdering)
}

func TestResolve_LowConfidence(t *testing.T) {
	tl := make(timeline.Timeline, 0, 5000)
	for i := 0; i < 5000; i++ {
		start := float64(i) * 0.25
		tl = append(tl, timeline.Word{Text: fmt.Sprintf("word%d", i), Start: start, End: start + 0.25})
	}

	_, err := Resolve(quote("completely unrelated gibberish phrase", "word4998 word4999"), tl, Options{
		MinDuration: 0,
		MaxDuration: time.Hour,
	})
	assertNoMatch(t, err, ReasonLowConfidence)
}

func TestResolve_DurationOutOfBounds(t *testing.T) {
	tl := foxTimeline(0)

	// Resolved span is 2.7s; demand at least 15s.
	_, err := Resolve(quote("the quick brown", "lazy dog"), tl, Options{
		MinDuration: 15 * time.Second,
		MaxDuration: 60 * time.Second,
	})
	assertNoMatch(t, err, ReasonDurationOutOfBounds)

	// Same span rejected as too long, never clamped.
	_, err = Resolve(quote("the quick brown", "lazy dog"), tl, Options{
		MinDuration: 0,
		MaxDuration: time.Second,
	})
	assertNoMatch(t, err, ReasonDurationOutOfBounds)
}

func TestResolve_MalformedCandidate(t *testing.T) {
	tl := foxTimeline(0)
	_, err := Resolve(quote("", "lazy dog"), tl, Options{MaxDuration: time.Minute})
	assertNoMatch(t, err, ReasonMalformedCandidate)

	_, err = Resolve(quote("the quick", "   "), tl, Options{MaxDuration: time.Minute})
	assertNoMatch(t, err, ReasonMalformedCandidate)
}

func TestResolve_EmptyTimeline(t *testing.T) {
	_, err := Resolve(quote("the quick", "lazy dog"), nil, Options{MaxDuration: time.Minute})
	if !errors.Is(err, ErrEmptyTimeline) {
		t.Fatalf("expected ErrEmptyTimeline, got %v", err)
	}
}

func TestResolve_EndClampedToTail(t *testing.T) {
	tl := foxTimeline(0)

	// End phrase adds words beyond the last token; the index clamps to the
	// final token instead of running off the timeline.
	seg, err := Resolve(quote("the quick brown", "the lazy dog barking"), tl, Options{
		MinConfidence: 0.5,
		MinDuration:   time.Second,
		MaxDuration:   time.Minute,
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := tl[len(tl)-1].End; seg.End != want {
		t.Fatalf("expected clamped end %v, got %v", want, seg.End)
	}
}

func assertNoMatch(t *testing.T, err error, want Reason) {
	t.Helper()
	var nm *NoMatchError
	if !errors.As(err, &nm) {
		t.Fatalf("expected NoMatchError, got %v", err)
	}
	if nm.Reason != want {
		t.Fatalf("expected reason %s, got %s (%s)", want, nm.Reason, nm.Detail)
	}
}
