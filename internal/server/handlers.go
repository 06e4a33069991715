package server

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/forPelevin/shortcut/internal/media"
	"github.com/forPelevin/shortcut/internal/shorts"
	"github.com/forPelevin/shortcut/internal/store"
)

var validate = validator.New()

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "multipart field \"file\" is required")
	}
	if !media.AllowedExtension(fh.Filename) {
		return errJSON(c, fiber.StatusBadRequest, "unsupported video format: "+filepath.Ext(fh.Filename))
	}

	f, err := fh.Open()
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, "open upload: "+err.Error())
	}
	defer f.Close()

	videoID, path, err := s.files.SaveUpload(fh.Filename, f)
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, "save upload: "+err.Error())
	}

	// Probing is informational; an unreadable container will fail loudly at
	// identify time anyway.
	durationSec := 0.0
	if d, err := s.svc.SourceDuration(c.Context(), path); err == nil {
		durationSec = d.Seconds()
	} else {
		s.log.Warn().Err(err).Str("video_id", videoID).Msg("duration probe failed")
	}

	s.log.Info().Str("video_id", videoID).Str("path", path).Int64("size", fh.Size).Msg("video uploaded")
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"video_id":         videoID,
		"filename":         fh.Filename,
		"size":             fh.Size,
		"duration_seconds": durationSec,
	})
}

func (s *Server) handleIdentify(c *fiber.Ctx) error {
	videoID := c.Params("id")
	videoPath, ok := s.files.UploadPath(videoID)
	if !ok {
		return errJSON(c, fiber.StatusNotFound, "video not found: "+videoID)
	}

	cacheDir := filepath.Join(s.cfg.CacheDir, videoID)
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return errJSON(c, fiber.StatusInternalServerError, "create cache dir: "+err.Error())
	}

	res, err := s.svc.Identify(c.Context(), shorts.IdentifyInput{
		VideoPath: videoPath,
		CacheDir:  cacheDir,
		MaxShorts: c.QueryInt("max_shorts"),
	})
	if err != nil {
		s.log.Error().Err(err).Str("video_id", videoID).Msg("identify failed")
		return errJSON(c, fiber.StatusInternalServerError, "identify: "+err.Error())
	}

	s.sessions.Put(store.Session{
		VideoID:   videoID,
		VideoPath: videoPath,
		Analysis:  res.Analysis,
		Timeline:  res.Timeline,
	})

	return c.JSON(res.Analysis)
}

func (s *Server) handleShorts(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errJSON(c, fiber.StatusNotFound, "no analysis for this video, run identify first")
		}
		return errJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(sess.Analysis)
}

type generateRequest struct {
	// Indices selects which identified shorts to cut; empty means all.
	Indices       []int `json:"indices" validate:"omitempty,dive,gte=0"`
	BurnSubtitles bool  `json:"burn_subtitles"`
}

func (s *Server) handleGenerate(c *fiber.Ctx) error {
	videoID := c.Params("id")
	sess, err := s.sessions.Get(videoID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errJSON(c, fiber.StatusNotFound, "no analysis for this video, run identify first")
		}
		return errJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	var req generateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return errJSON(c, fiber.StatusBadRequest, "bad request body: "+err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return errJSON(c, fiber.StatusBadRequest, "bad request body: "+err.Error())
		}
	}

	subtitleDir := filepath.Join(s.cfg.CacheDir, videoID)
	if err := os.MkdirAll(subtitleDir, 0o755); err != nil {
		return errJSON(c, fiber.StatusInternalServerError, "create cache dir: "+err.Error())
	}

	// An absent or empty indices list means "cut everything".
	indices := req.Indices
	if len(indices) == 0 {
		indices = nil
	}

	generated, err := s.svc.Generate(c.Context(), shorts.GenerateInput{
		VideoPath:     sess.VideoPath,
		VideoID:       videoID,
		Shorts:        sess.Analysis.Shorts,
		Timeline:      sess.Timeline,
		Indices:       indices,
		BurnSubtitles: req.BurnSubtitles,
		SubtitleDir:   subtitleDir,
	})
	if err != nil {
		s.log.Error().Err(err).Str("video_id", videoID).Msg("generate failed")
		return errJSON(c, fiber.StatusInternalServerError, "generate: "+err.Error())
	}

	return c.JSON(fiber.Map{
		"video_id":  videoID,
		"generated": generated,
		"total":     len(generated),
	})
}

func (s *Server) handleDelete(c *fiber.Ctx) error {
	videoID := c.Params("id")
	cleaned := s.files.Cleanup(videoID)
	s.sessions.Delete(videoID)
	return c.JSON(fiber.Map{"video_id": videoID, "cleaned": cleaned})
}

func (s *Server) handleDownload(c *fiber.Ctx) error {
	shortID := c.Params("id")
	path, ok := s.files.OutputPath(shortID)
	if !ok {
		return errJSON(c, fiber.StatusNotFound, "short not found: "+shortID)
	}
	return c.Download(path, filepath.Base(path))
}

func errJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"status": "error", "message": msg})
}
