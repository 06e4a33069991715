// Package openrouter adapts the OpenRouter chat-completions API as the
// semantic selector: it proposes candidate segments as quoted opening and
// closing words, leaving all timing to the alignment engine.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/forPelevin/shortcut/internal/types"
)

type Adapter struct {
	key      string
	model    string
	baseURL  string
	client   *http.Client
	validate *validator.Validate
}

const requestTimeout = 90 * time.Second

func New(apiKey, model, baseURL string) *Adapter {
	if model == "" {
		model = "z-ai/glm-4.5-air:free"
	}
	baseURL = normalizeBaseURL(baseURL)
	return &Adapter{
		key:      apiKey,
		model:    model,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 5 * time.Minute},
		validate: validator.New(),
	}
}

func (a *Adapter) ProposeQuotes(
	ctx context.Context,
	transcriptText string,
	maxShorts int,
	minClip, maxClip time.Duration,
) (types.Proposal, error) {
	if strings.TrimSpace(transcriptText) == "" {
		return types.Proposal{}, errors.New("openrouter: empty transcript text")
	}

	payload := map[string]any{
		"model":  a.model,
		"stream": false,
		"messages": []map[string]any{
			{"role": "user", "content": buildPrompt(transcriptText, maxShorts, minClip, maxClip)},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "shortcut_quotes",
				"schema": proposalSchema(),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return types.Proposal{}, fmt.Errorf("marshal request: %w", err)
	}
	url := a.baseURL + "/api/v1/chat/completions"

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return types.Proposal{}, err
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return types.Proposal{}, fmt.Errorf("openrouter timeout after %s (model=%s)", requestTimeout, a.model)
		}
		return types.Proposal{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return types.Proposal{}, fmt.Errorf("openrouter status %d and read body failed: %v", resp.StatusCode, readErr)
		}
		return types.Proposal{}, fmt.Errorf("openrouter status %d: %s", resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return types.Proposal{}, err
	}
	if len(raw.Choices) == 0 {
		return types.Proposal{}, errors.New("openrouter: no choices in response")
	}

	content, err := messageContentToString(raw.Choices[0].Message.Content)
	if err != nil {
		return types.Proposal{}, err
	}
	clean, err := extractJSONObject(content)
	if err != nil {
		return types.Proposal{}, err
	}
	return a.parseProposal(clean, maxShorts)
}

// parseProposal strictly validates the loosely-typed model output at the
// ingestion boundary. Quotes missing required fields are dropped, not
// trusted deeper in the pipeline.
func (a *Adapter) parseProposal(raw string, maxShorts int) (types.Proposal, error) {
	var p types.Proposal
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return types.Proposal{}, fmt.Errorf("openrouter: decode proposal: %w", err)
	}

	kept := make([]types.CandidateQuote, 0, len(p.Quotes))
	for _, q := range p.Quotes {
		q.Title = strings.TrimSpace(q.Title)
		q.StartPhrase = strings.TrimSpace(q.StartPhrase)
		q.EndPhrase = strings.TrimSpace(q.EndPhrase)
		if err := a.validate.Struct(q); err != nil {
			continue
		}
		kept = append(kept, q)
		if maxShorts > 0 && len(kept) >= maxShorts {
			break
		}
	}
	p.Quotes = kept
	return p, nil
}

func buildPrompt(transcriptText string, maxShorts int, minClip, maxClip time.Duration) string {
	countInstruction := "ALL potential"
	if maxShorts > 0 {
		countInstruction = fmt.Sprintf("the %d best", maxShorts)
	}
	return fmt.Sprintf(
		"Analyze the following transcript and identify %s segments for short-form vertical video. "+
			"Return strictly valid JSON (no markdown, no code fences) matching the provided schema.\n\n"+
			"Rules:\n"+
			"- Each segment must run %.0f-%.0f seconds.\n"+
			"- start_text must be the EXACT first 8-12 words of the segment, beginning at the start of a complete sentence; never mid-thought.\n"+
			"- end_text must be the EXACT last 8-12 words, ending on a complete sentence or thought; never cut off mid-sentence.\n"+
			"- The segment should open with an attention-grabbing hook and be understandable without prior context.\n\n"+
			"Transcript:\n%s",
		countInstruction, minClip.Seconds(), maxClip.Seconds(), transcriptText,
	)
}

func proposalSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"video_summary": map[string]any{"type": "string"},
			"shorts": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":            map[string]any{"type": "string"},
						"start_text":       map[string]any{"type": "string"},
						"end_text":         map[string]any{"type": "string"},
						"hook":             map[string]any{"type": "string"},
						"content_summary":  map[string]any{"type": "string"},
						"virality_score":   map[string]any{"type": "number"},
						"virality_reasons": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
					"required": []string{"title", "start_text", "end_text", "hook", "content_summary", "virality_score", "virality_reasons"},
				},
			},
		},
		"required": []string{"video_summary", "shorts"},
	}
}

func messageContentToString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []any:
		// Some providers return an array of {type,text} parts.
		var b strings.Builder
		for _, it := range x {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := m["text"].(string); ok {
				b.WriteString(t)
			}
		}
		s := b.String()
		if strings.TrimSpace(s) == "" {
			return "", errors.New("openrouter: empty content")
		}
		return s, nil
	default:
		return "", fmt.Errorf("openrouter: unexpected content type %T", v)
	}
}

func extractJSONObject(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("openrouter: empty content")
	}

	// Strip markdown code fences.
	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	// Best-effort: take the first JSON object found.
	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1], nil
	}

	return "", fmt.Errorf("openrouter: could not locate JSON object in: %q", truncate(t, 200))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
