// Package media manages uploaded recordings and generated clips on disk:
// identity assignment, path resolution, and cleanup.
package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var videoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".webm", ".mpeg"}

// Manager resolves files below its upload and output directories. It is
// constructed by the composition root and injected; paths outside the two
// directories are never touched.
type Manager struct {
	uploadDir string
	outputDir string
}

func NewManager(uploadDir, outputDir string) *Manager {
	return &Manager{uploadDir: uploadDir, outputDir: outputDir}
}

func (m *Manager) EnsureDirs() error {
	if err := os.MkdirAll(m.uploadDir, 0o755); err != nil {
		return err
	}
	return os.MkdirAll(m.outputDir, 0o755)
}

// AllowedExtension reports whether the original filename looks like a
// supported video container.
func AllowedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range videoExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// SaveUpload stores the stream under a fresh video ID, keeping the original
// extension so probing tools can sniff the container.
func (m *Manager) SaveUpload(originalName string, r io.Reader) (videoID, path string, err error) {
	if err := m.EnsureDirs(); err != nil {
		return "", "", err
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = ".mp4"
	}
	videoID = uuid.NewString()
	path = filepath.Join(m.uploadDir, videoID+ext)

	f, err := os.Create(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", "", err
	}
	return videoID, path, nil
}

// UploadPath finds the uploaded file for a video ID, preferring known video
// extensions over any other stray match.
func (m *Manager) UploadPath(videoID string) (string, bool) {
	for _, ext := range videoExtensions {
		p := filepath.Join(m.uploadDir, videoID+ext)
		if fileExists(p) {
			return p, true
		}
	}
	matches, _ := filepath.Glob(filepath.Join(m.uploadDir, videoID+".*"))
	for _, p := range matches {
		if fileExists(p) {
			return p, true
		}
	}
	return "", false
}

// OutputPath finds a generated short by its ID.
func (m *Manager) OutputPath(shortID string) (string, bool) {
	matches, _ := filepath.Glob(filepath.Join(m.outputDir, shortID+".*"))
	for _, p := range matches {
		if fileExists(p) {
			return p, true
		}
	}
	return "", false
}

// ShortPath is where a new short for the given ID is written.
func (m *Manager) ShortPath(shortID string) string {
	return filepath.Join(m.outputDir, shortID+".mp4")
}

// ShortID derives a unique clip ID that stays visually traceable to its
// source recording.
func ShortID(videoID string, index int) string {
	prefix := videoID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("%s_short_%d_%s", prefix, index, uuid.NewString()[:8])
}

// Cleanup removes an uploaded recording and every short generated from it.
func (m *Manager) Cleanup(videoID string) bool {
	cleaned := false
	if p, ok := m.UploadPath(videoID); ok {
		if os.Remove(p) == nil {
			cleaned = true
		}
	}
	prefix := videoID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	matches, _ := filepath.Glob(filepath.Join(m.outputDir, prefix+"_short_*"))
	for _, p := range matches {
		if os.Remove(p) == nil {
			cleaned = true
		}
	}
	return cleaned
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
