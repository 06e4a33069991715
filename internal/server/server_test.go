package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/shortcut/internal/config"
	"github.com/forPelevin/shortcut/internal/media"
	"github.com/forPelevin/shortcut/internal/shorts"
	"github.com/forPelevin/shortcut/internal/store"
	"github.com/forPelevin/shortcut/internal/types"
)

func newTestServer(t *testing.T, sel *fakeSelector) (*Server, *store.Sessions) {
	t.Helper()
	tmp := t.TempDir()
	cfg := config.Config{
		UploadDir:       filepath.Join(tmp, "uploads"),
		OutputDir:       filepath.Join(tmp, "outputs"),
		CacheDir:        filepath.Join(tmp, "cache"),
		MinConfidence:   0.6,
		WindowBuffer:    3,
		MinDuration:     time.Second,
		MaxDuration:     60 * time.Second,
		ContextLookback: time.Millisecond,
		MaxShorts:       5,
		ListenAddr:      ":0",
	}
	files := media.NewManager(cfg.UploadDir, cfg.OutputDir)
	if err := files.EnsureDirs(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	sessions := store.NewSessions()
	svc := shorts.New(shorts.Deps{
		Video:    fakeVideoTool{},
		ASR:      fakeASR{tr: foxTranscript()},
		Selector: sel,
		Files:    files,
	}, shorts.Settings{
		MinConfidence:   cfg.MinConfidence,
		WindowBuffer:    cfg.WindowBuffer,
		MinDuration:     cfg.MinDuration,
		MaxDuration:     cfg.MaxDuration,
		ContextLookback: cfg.ContextLookback,
		MaxShorts:       cfg.MaxShorts,
	}, zerolog.Nop())
	return New(cfg, zerolog.Nop(), svc, sessions, files), sessions
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, &fakeSelector{})
	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestUpload(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		field      string
		filename   string
		wantStatus int
	}{
		{name: "accepted", field: "file", filename: "talk.mp4", wantStatus: http.StatusCreated},
		{name: "bad extension", field: "file", filename: "notes.txt", wantStatus: http.StatusBadRequest},
		{name: "missing field", field: "video", filename: "talk.mp4", wantStatus: http.StatusBadRequest},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv, _ := newTestServer(t, &fakeSelector{})
			resp := doUpload(t, srv, tc.field, tc.filename)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, resp.StatusCode)
			}
			if tc.wantStatus != http.StatusCreated {
				return
			}
			var body struct {
				VideoID         string  `json:"video_id"`
				DurationSeconds float64 `json:"duration_seconds"`
			}
			decodeBody(t, resp, &body)
			if body.VideoID == "" {
				t.Fatal("expected a video_id in the response")
			}
			if body.DurationSeconds != 42 {
				t.Fatalf("expected probed duration 42, got %v", body.DurationSeconds)
			}
		})
	}
}

func TestIdentifyFlow(t *testing.T) {
	t.Parallel()

	sel := &fakeSelector{proposal: types.Proposal{
		VideoSummary: "fox talk",
		Quotes: []types.CandidateQuote{{
			Title:         "the fox bit",
			StartPhrase:   "the quick brown",
			EndPhrase:     "lazy dog",
			ViralityScore: 80,
		}},
	}}
	srv, sessions := newTestServer(t, sel)

	videoID := uploadVideo(t, srv)

	// Shorts before identify is a 404.
	resp := request(t, srv, http.MethodGet, "/api/v1/videos/"+videoID+"/shorts", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 before identify, got %d", resp.StatusCode)
	}

	resp = request(t, srv, http.MethodPost, "/api/v1/videos/"+videoID+"/identify", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("identify: expected 200, got %d", resp.StatusCode)
	}
	var analysis types.Analysis
	decodeBody(t, resp, &analysis)
	if analysis.TotalShortsFound != 1 || analysis.Shorts[0].Title != "the fox bit" {
		t.Fatalf("unexpected analysis: %+v", analysis)
	}
	if analysis.Shorts[0].StartTime != "00:00:05.000" {
		t.Fatalf("unexpected start time %q", analysis.Shorts[0].StartTime)
	}

	if sessions.Len() != 1 {
		t.Fatalf("expected 1 stored session, got %d", sessions.Len())
	}

	resp = request(t, srv, http.MethodGet, "/api/v1/videos/"+videoID+"/shorts", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("shorts: expected 200, got %d", resp.StatusCode)
	}

	resp = request(t, srv, http.MethodPost, "/api/v1/videos/"+videoID+"/generate",
		strings.NewReader(`{"indices":[0]}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate: expected 200, got %d", resp.StatusCode)
	}
	var gen struct {
		Generated []types.GeneratedShort `json:"generated"`
		Total     int                    `json:"total"`
	}
	decodeBody(t, resp, &gen)
	if gen.Total != 1 || len(gen.Generated) != 1 {
		t.Fatalf("unexpected generate response: %+v", gen)
	}
	if !strings.HasPrefix(gen.Generated[0].DownloadURL, "/api/v1/shorts/") {
		t.Fatalf("unexpected download URL %q", gen.Generated[0].DownloadURL)
	}

	resp = request(t, srv, http.MethodDelete, "/api/v1/videos/"+videoID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", resp.StatusCode)
	}
	if sessions.Len() != 0 {
		t.Fatalf("expected session to be deleted, got %d", sessions.Len())
	}
}

func TestIdentifyUnknownVideo(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, &fakeSelector{})
	resp := request(t, srv, http.MethodPost, "/api/v1/videos/nope/identify", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGenerateRejectsBadBody(t *testing.T) {
	t.Parallel()

	srv, sessions := newTestServer(t, &fakeSelector{})
	sessions.Put(store.Session{VideoID: "vid", VideoPath: "in.mp4"})

	cases := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{"indices":`},
		{name: "negative index", body: `{"indices":[-1]}`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			resp := request(t, srv, http.MethodPost, "/api/v1/videos/vid/generate", strings.NewReader(tc.body))
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestDownloadUnknownShort(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, &fakeSelector{})
	resp := request(t, srv, http.MethodGet, "/api/v1/shorts/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func request(t *testing.T, srv *Server, method, target string, body io.Reader) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	return resp
}

func doUpload(t *testing.T, srv *Server, field, filename string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte("not really a video")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("upload request: %v", err)
	}
	return resp
}

func uploadVideo(t *testing.T, srv *Server) string {
	t.Helper()
	resp := doUpload(t, srv, "file", "talk.mp4")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d", resp.StatusCode)
	}
	var body struct {
		VideoID string `json:"video_id"`
	}
	decodeBody(t, resp, &body)
	return body.VideoID
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func foxTranscript() types.Transcript {
	text := "the quick brown fox jumps over the lazy dog"
	fields := strings.Fields(text)
	words := make([]types.Word, 0, len(fields))
	for i, w := range fields {
		start := 5.0 + float64(i)*0.5
		words = append(words, types.Word{Start: start, End: start + 0.4, Word: w})
	}
	return types.Transcript{Segments: []types.Segment{
		{Start: 5.0, End: words[len(words)-1].End, Text: text, Words: words},
	}}
}

type fakeVideoTool struct{}

func (fakeVideoTool) ExtractAudioMono16k(_ context.Context, _, _ string) error { return nil }
func (fakeVideoTool) ProbeDuration(_ context.Context, _ string) (time.Duration, error) {
	return 42 * time.Second, nil
}
func (fakeVideoTool) Clip(_ context.Context, _ string, _, _ float64, _, _ string) error {
	return nil
}

type fakeASR struct{ tr types.Transcript }

func (f fakeASR) Transcribe(_ context.Context, _, _ string) (types.Transcript, error) {
	return f.tr, nil
}

type fakeSelector struct {
	proposal types.Proposal
	calls    int
}

func (f *fakeSelector) ProposeQuotes(_ context.Context, _ string, _ int, _, _ time.Duration) (types.Proposal, error) {
	f.calls++
	return f.proposal, nil
}
