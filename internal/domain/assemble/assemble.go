// Package assemble turns resolved segments into the final ranked shorts
// list handed to the clipping step.
package assemble

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/forPelevin/shortcut/internal/domain/align"
	"github.com/forPelevin/shortcut/internal/types"
)

var validate = validator.New()

// Clip pairs a resolved segment with the selector metadata that described
// it.
type Clip struct {
	Quote   types.CandidateQuote
	Segment align.Segment
}

// Build formats timestamps, rounds durations, and orders shorts by
// descending virality score. Ordering is stable: ties keep input order, so
// assembling the same list twice yields identical output.
func Build(clips []Clip) ([]types.Short, error) {
	out := make([]types.Short, 0, len(clips))
	for i, c := range clips {
		if err := validate.Struct(c.Quote); err != nil {
			return nil, fmt.Errorf("assemble: clip %d structurally invalid: %w", i, err)
		}
		if c.Segment.End <= c.Segment.Start {
			return nil, fmt.Errorf("assemble: clip %d (%q): non-positive span %v..%v", i, c.Quote.Title, c.Segment.Start, c.Segment.End)
		}
		out = append(out, types.Short{
			Title:           c.Quote.Title,
			StartTime:       FormatTimestamp(c.Segment.Start),
			EndTime:         FormatTimestamp(c.Segment.End),
			DurationSeconds: int(math.Round(c.Segment.End - c.Segment.Start)),
			Hook:            c.Quote.Hook,
			ContentSummary:  c.Quote.ContentSummary,
			ViralityScore:   c.Quote.ViralityScore,
			ViralityReasons: c.Quote.ViralityReasons,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ViralityScore > out[j].ViralityScore
	})
	return out, nil
}
