// Package shorts is the application core: identify proposes and aligns
// candidate clips for an uploaded recording, generate cuts the chosen ones
// out of the source video. All collaborators come in through ports so the
// package stays testable without ffmpeg, whisper.cpp, or a network.
package shorts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/shortcut/internal/domain/align"
	"github.com/forPelevin/shortcut/internal/domain/assemble"
	"github.com/forPelevin/shortcut/internal/domain/refine"
	"github.com/forPelevin/shortcut/internal/domain/subtitles"
	"github.com/forPelevin/shortcut/internal/domain/timeline"
	"github.com/forPelevin/shortcut/internal/media"
	"github.com/forPelevin/shortcut/internal/ports"
	"github.com/forPelevin/shortcut/internal/types"
)

type Deps struct {
	Video    ports.VideoTool
	ASR      ports.ASR
	Selector ports.Selector
	Files    *media.Manager
}

// Settings are the engine tunables, resolved once by the composition root.
type Settings struct {
	MinConfidence   float64
	WindowBuffer    int
	MinDuration     time.Duration
	MaxDuration     time.Duration
	ContextLookback time.Duration
	MaxShorts       int
}

type Service struct {
	d   Deps
	set Settings
	log zerolog.Logger
}

func New(d Deps, set Settings, log zerolog.Logger) Service {
	return Service{d: d, set: set, log: log}
}

// SourceDuration reports the recording length via the video tool.
func (s Service) SourceDuration(ctx context.Context, videoPath string) (time.Duration, error) {
	return s.d.Video.ProbeDuration(ctx, videoPath)
}

type IdentifyInput struct {
	VideoPath string
	CacheDir  string
	// MaxShorts overrides the configured cap when positive.
	MaxShorts int
}

type IdentifyResult struct {
	Analysis types.Analysis
	Timeline timeline.Timeline
}

// Identify runs the full analysis pass: audio extraction, transcription,
// semantic selection, and phrase-to-timeline alignment. Candidates that
// cannot be resolved are dropped individually; a recording where nothing
// aligns yields a valid empty analysis, not an error.
func (s Service) Identify(ctx context.Context, in IdentifyInput) (IdentifyResult, error) {
	wav := filepath.Join(in.CacheDir, "audio.wav")
	if err := s.d.Video.ExtractAudioMono16k(ctx, in.VideoPath, wav); err != nil {
		return IdentifyResult{}, fmt.Errorf("extract audio: %w", err)
	}

	tr, err := s.d.ASR.Transcribe(ctx, wav, in.CacheDir)
	if err != nil {
		return IdentifyResult{}, fmt.Errorf("transcribe: %w", err)
	}

	tl := timeline.FromTranscript(tr)
	if err := tl.Validate(); err != nil {
		return IdentifyResult{}, fmt.Errorf("word timeline: %w", err)
	}
	if len(tl) == 0 {
		s.log.Warn().Str("video", in.VideoPath).Msg("transcript has no timed words, nothing to align")
		return IdentifyResult{Analysis: emptyAnalysis()}, nil
	}

	maxShorts := s.set.MaxShorts
	if in.MaxShorts > 0 {
		maxShorts = in.MaxShorts
	}
	proposal, err := s.d.Selector.ProposeQuotes(ctx, transcriptText(tr), maxShorts, s.set.MinDuration, s.set.MaxDuration)
	if err != nil {
		return IdentifyResult{}, fmt.Errorf("propose quotes: %w", err)
	}

	opts := align.Options{
		MinConfidence: s.set.MinConfidence,
		MinDuration:   s.set.MinDuration,
		MaxDuration:   s.set.MaxDuration,
		WindowBuffer:  s.set.WindowBuffer,
	}

	var quotes []types.CandidateQuote
	var segs []align.Segment
	for _, q := range proposal.Quotes {
		// Resolution is pure CPU work; cancellation applies between candidates.
		if err := ctx.Err(); err != nil {
			return IdentifyResult{}, err
		}
		seg, err := align.Resolve(q, tl, opts)
		if err != nil {
			var nm *align.NoMatchError
			if errors.As(err, &nm) {
				s.log.Warn().
					Str("title", q.Title).
					Str("reason", string(nm.Reason)).
					Str("detail", nm.Detail).
					Msg("dropping candidate")
				continue
			}
			return IdentifyResult{}, fmt.Errorf("resolve %q: %w", q.Title, err)
		}
		quotes = append(quotes, q)
		segs = append(segs, seg)
	}

	refined := refine.Starts(segs, tl, s.set.ContextLookback)
	clips := make([]assemble.Clip, 0, len(refined))
	for i, r := range refined {
		s.log.Debug().
			Str("title", quotes[i].Title).
			Str("outcome", string(r.Outcome)).
			Float64("start", r.Segment.Start).
			Msg("start refinement")
		clips = append(clips, assemble.Clip{Quote: quotes[i], Segment: r.Segment})
	}

	built, err := assemble.Build(clips)
	if err != nil {
		return IdentifyResult{}, err
	}

	return IdentifyResult{
		Analysis: types.Analysis{
			VideoSummary:     proposal.VideoSummary,
			TotalShortsFound: len(built),
			Shorts:           built,
		},
		Timeline: tl,
	}, nil
}

type GenerateInput struct {
	VideoPath string
	VideoID   string
	Shorts    []types.Short
	Timeline  timeline.Timeline
	// Indices selects which shorts to cut; nil means all of them.
	Indices       []int
	BurnSubtitles bool
	SubtitleDir   string
}

// Generate cuts the selected shorts out of the source recording. A short
// that fails to cut is logged and skipped so one bad span does not sink the
// batch; context cancellation still aborts immediately.
func (s Service) Generate(ctx context.Context, in GenerateInput) ([]types.GeneratedShort, error) {
	indices := in.Indices
	if indices == nil {
		indices = make([]int, len(in.Shorts))
		for i := range indices {
			indices[i] = i
		}
	}

	out := make([]types.GeneratedShort, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(in.Shorts) {
			s.log.Warn().Int("index", idx).Int("total", len(in.Shorts)).Msg("short index out of range, skipping")
			continue
		}
		short := in.Shorts[idx]

		start, err := assemble.ParseTimestamp(short.StartTime)
		if err != nil {
			s.log.Error().Err(err).Str("title", short.Title).Msg("bad start timestamp, skipping")
			continue
		}
		end, err := assemble.ParseTimestamp(short.EndTime)
		if err != nil {
			s.log.Error().Err(err).Str("title", short.Title).Msg("bad end timestamp, skipping")
			continue
		}

		shortID := media.ShortID(in.VideoID, idx)
		clipPath := s.d.Files.ShortPath(shortID)

		assPath := ""
		if in.BurnSubtitles && len(in.Timeline) > 0 {
			assPath = s.renderSubtitles(in, shortID, start, end)
		}

		if err := s.d.Video.Clip(ctx, in.VideoPath, start, end, clipPath, assPath); err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			s.log.Error().Err(err).Str("short_id", shortID).Msg("clip failed, skipping")
			continue
		}

		out = append(out, types.GeneratedShort{
			ShortID:         shortID,
			Title:           short.Title,
			FilePath:        clipPath,
			DurationSeconds: short.DurationSeconds,
			DownloadURL:     "/api/v1/shorts/" + shortID,
		})
	}
	return out, nil
}

// renderSubtitles is best-effort: a short without karaoke subtitles is
// still worth cutting, so failures only log.
func (s Service) renderSubtitles(in GenerateInput, shortID string, start, end float64) string {
	ass, err := subtitles.RenderKaraokeASS(in.Timeline, start, end)
	if err != nil {
		s.log.Warn().Err(err).Str("short_id", shortID).Msg("subtitle render failed, cutting without subtitles")
		return ""
	}
	path := filepath.Join(in.SubtitleDir, shortID+".ass")
	if err := os.WriteFile(path, []byte(ass), 0o644); err != nil {
		s.log.Warn().Err(err).Str("short_id", shortID).Msg("subtitle write failed, cutting without subtitles")
		return ""
	}
	return path
}

func transcriptText(tr types.Transcript) string {
	parts := make([]string, 0, len(tr.Segments))
	for _, seg := range tr.Segments {
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func emptyAnalysis() types.Analysis {
	return types.Analysis{Shorts: []types.Short{}}
}
