// Package pipeline is the composition root: it builds the real adapters
// and the shorts service from configuration, and drives one-shot CLI runs
// end to end.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/forPelevin/shortcut/internal/config"
	"github.com/forPelevin/shortcut/internal/media"
	"github.com/forPelevin/shortcut/internal/ports"
	"github.com/forPelevin/shortcut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/shortcut/internal/ports/adapters/openrouter"
	"github.com/forPelevin/shortcut/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/shortcut/internal/shorts"
)

// NewService builds the shorts service backed by the real ffmpeg,
// whisper.cpp, and OpenRouter adapters.
func NewService(cfg config.Config, files *media.Manager, log zerolog.Logger) shorts.Service {
	deps := shorts.Deps{
		Video:    ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath),
		ASR:      whispercpp.New(cfg.WhisperBin, cfg.WhisperModel),
		Selector: openrouter.New(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.OpenRouterBaseURL),
		Files:    files,
	}
	return shorts.New(deps, Settings(cfg), log)
}

// Settings maps loaded configuration onto the engine tunables.
func Settings(cfg config.Config) shorts.Settings {
	return shorts.Settings{
		MinConfidence:   cfg.MinConfidence,
		WindowBuffer:    cfg.WindowBuffer,
		MinDuration:     cfg.MinDuration,
		MaxDuration:     cfg.MaxDuration,
		ContextLookback: cfg.ContextLookback,
		MaxShorts:       cfg.MaxShorts,
	}
}

// Input describes one CLI run over a local recording.
type Input struct {
	VideoPath string
	// OutDir overrides the configured output root when set.
	OutDir        string
	Generate      bool
	BurnSubtitles bool
}

// Run identifies shorts in a local recording and writes analysis.json into
// a per-run output directory. With Generate set it also cuts every
// identified short.
func Run(ctx context.Context, cfg config.Config, in Input, log zerolog.Logger) error {
	if in.VideoPath == "" {
		return errors.New("input is empty")
	}
	if _, err := os.Stat(in.VideoPath); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}

	jobID := hash(in.VideoPath)
	cacheDir := filepath.Join(cfg.CacheDir, "runs", jobID)
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return err
	}
	log.Debug().Str("cache", cacheDir).Msg("workspace ready")

	outRoot := in.OutDir
	if outRoot == "" {
		outRoot = cfg.OutputDir
	}
	runOutDir := buildRunOutDir(outRoot, in.VideoPath, time.Now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return err
	}
	log.Info().Str("out", runOutDir).Msg("output run dir")

	// CLI runs have no uploads; the manager only hands out clip paths.
	files := media.NewManager(cacheDir, runOutDir)
	svc := NewService(cfg, files, log)

	res, err := svc.Identify(ctx, shorts.IdentifyInput{
		VideoPath: in.VideoPath,
		CacheDir:  cacheDir,
	})
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(res.Analysis, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	analysisPath := filepath.Join(runOutDir, "analysis.json")
	if err := os.WriteFile(analysisPath, b, 0o644); err != nil {
		return err
	}
	log.Info().Int("shorts", res.Analysis.TotalShortsFound).Str("path", analysisPath).Msg("analysis written")

	if !in.Generate || res.Analysis.TotalShortsFound == 0 {
		return nil
	}

	generated, err := svc.Generate(ctx, shorts.GenerateInput{
		VideoPath:     in.VideoPath,
		VideoID:       jobID,
		Shorts:        res.Analysis.Shorts,
		Timeline:      res.Timeline,
		BurnSubtitles: in.BurnSubtitles,
		SubtitleDir:   cacheDir,
	})
	if err != nil {
		return err
	}
	for _, g := range generated {
		log.Info().Str("short_id", g.ShortID).Str("file", g.FilePath).Msg("short generated")
	}
	log.Info().Int("generated", len(generated)).Msg("done")
	return nil
}

func buildRunOutDir(outRoot, videoPath string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", videoPath, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.ASR = (*whispercpp.Adapter)(nil)
var _ ports.Selector = (*openrouter.Adapter)(nil)
