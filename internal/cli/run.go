package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/forPelevin/shortcut/internal/config"
	"github.com/forPelevin/shortcut/internal/media"
	"github.com/forPelevin/shortcut/internal/pipeline"
	"github.com/forPelevin/shortcut/internal/server"
	"github.com/forPelevin/shortcut/internal/store"
)

func identifyCmd(cfgFile *string, verbose *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identify <input>",
		Short: "Analyze a local recording and write its shorts manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgFile)
			if err != nil {
				return err
			}
			log := newLogger(*verbose)

			absIn, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			outDir, _ := cmd.Flags().GetString("out")
			generate, _ := cmd.Flags().GetBool("generate")
			burn, _ := cmd.Flags().GetBool("burn-subtitles")

			if cmd.Flags().Changed("min") {
				sec, _ := cmd.Flags().GetInt("min")
				cfg.MinDuration = time.Duration(sec) * time.Second
			}
			if cmd.Flags().Changed("max") {
				sec, _ := cmd.Flags().GetInt("max")
				cfg.MaxDuration = time.Duration(sec) * time.Second
			}
			if cmd.Flags().Changed("shorts") {
				cfg.MaxShorts, _ = cmd.Flags().GetInt("shorts")
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Hour)
			defer cancel()

			return pipeline.Run(ctx, cfg, pipeline.Input{
				VideoPath:     absIn,
				OutDir:        outDir,
				Generate:      generate,
				BurnSubtitles: burn,
			}, log)
		},
	}
	cmd.Flags().String("out", "", "Output directory (default from config)")
	cmd.Flags().Bool("generate", false, "Cut every identified short after analysis")
	cmd.Flags().Bool("burn-subtitles", false, "Burn karaoke subtitles into generated shorts")

	// Hidden tuning flags (internal)
	cmd.Flags().Int("min", 0, "Min short duration seconds")
	cmd.Flags().Int("max", 0, "Max short duration seconds")
	cmd.Flags().Int("shorts", 0, "Max number of shorts")
	_ = cmd.Flags().MarkHidden("min")
	_ = cmd.Flags().MarkHidden("max")
	_ = cmd.Flags().MarkHidden("shorts")
	return cmd
}

func serveCmd(cfgFile *string, verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API for uploads, analysis, and clip generation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgFile)
			if err != nil {
				return err
			}
			log := newLogger(*verbose)

			files := media.NewManager(cfg.UploadDir, cfg.OutputDir)
			if err := files.EnsureDirs(); err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
				return err
			}

			svc := pipeline.NewService(cfg, files, log)
			srv := server.New(cfg, log, svc, store.NewSessions(), files)
			return srv.Listen()
		},
	}
}

func loadConfig(cfgFile string) (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.OpenRouterAPIKey == "" {
		return config.Config{}, errors.New("SHORTCUT_OPENROUTER_API_KEY is required (set it in .env)")
	}
	return cfg, nil
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().
		Logger()
}
