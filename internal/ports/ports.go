package ports

import (
	"context"
	"time"

	"github.com/forPelevin/shortcut/internal/types"
)

type VideoTool interface {
	ExtractAudioMono16k(ctx context.Context, inVideo, outWav string) error
	ProbeDuration(ctx context.Context, inVideo string) (time.Duration, error)
	// Clip cuts [start, end) seconds of inVideo into outVideo. When burnASS
	// is non-empty the named subtitle file is burned into the output.
	Clip(ctx context.Context, inVideo string, start, end float64, outVideo, burnASS string) error
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error)
}

// Selector is the semantic-selection collaborator: given the transcript
// text it proposes segments purely as quoted opening/closing words, with no
// timing of its own.
type Selector interface {
	ProposeQuotes(ctx context.Context, transcriptText string, maxShorts int, minClip, maxClip time.Duration) (types.Proposal, error)
}
