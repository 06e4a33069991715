package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, inVideo, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", inVideo,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

type clipStrategy struct {
	name string
	run  func(ctx context.Context) error
}

// Clip cuts the span with an explicit two-step strategy: stream copy first
// (fast, no re-encode), then re-encode (frame-accurate). Copy failing is an
// expected outcome that moves on to the next strategy, not an error.
// Burned subtitles force the encode path since they need a video filter.
func (a *Adapter) Clip(ctx context.Context, inVideo string, start, end float64, outVideo, burnASS string) error {
	if end <= start {
		return fmt.Errorf("ffmpeg clip: non-positive span %.3f..%.3f", start, end)
	}

	var strategies []clipStrategy
	if burnASS == "" {
		strategies = append(strategies, clipStrategy{
			name: "copy",
			run: func(ctx context.Context) error {
				return a.clipCopy(ctx, inVideo, start, end, outVideo)
			},
		})
	}
	strategies = append(strategies, clipStrategy{
		name: "encode",
		run: func(ctx context.Context) error {
			return a.clipEncode(ctx, inVideo, start, end, outVideo, burnASS)
		},
	})

	var errs []error
	for _, s := range strategies {
		err := s.run(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
	}
	return fmt.Errorf("ffmpeg clip: all strategies failed: %w", errors.Join(errs...))
}

func (a *Adapter) clipCopy(ctx context.Context, inVideo string, start, end float64, outVideo string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-ss", fmtSeconds(start),
		"-to", fmtSeconds(end),
		"-i", inVideo,
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		outVideo,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) clipEncode(ctx context.Context, inVideo string, start, end float64, outVideo, burnASS string) error {
	args := []string{
		"-y",
		"-ss", fmtSeconds(start),
		"-to", fmtSeconds(end),
		"-i", inVideo,
	}
	if burnASS != "" {
		args = append(args, "-vf", "subtitles="+escapeFilterPath(burnASS))
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "192k",
		outVideo,
	)
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, inVideo string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inVideo,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	return p
}
