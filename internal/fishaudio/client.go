package fishaudio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/parrotlabs/voiceforge/internal/config"
)

// Client talks to the fish.audio voice cloning and TTS API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// Model is the provider-side voice model resource.
type Model struct {
	ID        string `json:"_id"`
	Title     string `json:"title"`
	State     string `json:"state"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type CreateModelRequest struct {
	Title       string
	Description string
	Audio       []byte
	Filename    string
}

type TTSRequest struct {
	Text        string
	ReferenceID string
	Format      string
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:  cfg.FishAudioAPIKey,
		baseURL: strings.TrimRight(cfg.FishAudioBaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// CreateModel uploads a voice sample and starts training a cloned voice.
func (c *Client) CreateModel(ctx context.Context, req CreateModelRequest) (*Model, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := map[string]string{
		"type":       "tts",
		"title":      req.Title,
		"train_mode": "fast",
		"visibility": "private",
	}
	if req.Description != "" {
		fields["description"] = req.Description
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("write form field %s: %w", name, err)
		}
	}

	part, err := writer.CreateFormFile("voices", req.Filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return nil, fmt.Errorf("write audio sample: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/model", &buf)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post model: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= 300 {
		c.log.Error("fish audio create model failed", "status", resp.StatusCode, "body", truncateBody(rawBody))
		return nil, fmt.Errorf("fish audio error: status=%d body=%s", resp.StatusCode, truncateBody(rawBody))
	}

	var model Model
	if err := json.Unmarshal(rawBody, &model); err != nil {
		return nil, fmt.Errorf("decode model response: %w (body=%s)", err, truncateBody(rawBody))
	}
	if model.ID == "" {
		return nil, fmt.Errorf("empty model id in response")
	}
	return &model, nil
}

// GetModel fetches current details for a provider model, including its
// training state.
func (c *Client) GetModel(ctx context.Context, modelID string) (*Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/model/"+modelID, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get model: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fish audio error: status=%d body=%s", resp.StatusCode, truncateBody(rawBody))
	}

	var model Model
	if err := json.Unmarshal(rawBody, &model); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	return &model, nil
}

// DeleteModel removes the provider-side model.
func (c *Client) DeleteModel(ctx context.Context, modelID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/model/"+modelID, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("fish audio delete error: status=%d", resp.StatusCode)
	}
	return nil
}

// TextToSpeech synthesizes speech with the s1 model and returns raw audio
// bytes. Emotions are expressed inline in the text, e.g. "(happy) Hello!".
func (c *Client) TextToSpeech(ctx context.Context, req TTSRequest) ([]byte, error) {
	format := req.Format
	if format == "" {
		format = "mp3"
	}
	payload := map[string]any{
		"text":         req.Text,
		"reference_id": req.ReferenceID,
		"format":       format,
		"normalize":    true,
		"mp3_bitrate":  128,
		"temperature":  0.9,
		"top_p":        0.9,
		"chunk_length": 200,
		"latency":      "normal",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal tts payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("model", "s1")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post tts: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tts response: %w", err)
	}
	if resp.StatusCode >= 300 {
		c.log.Error("fish audio tts failed", "status", resp.StatusCode, "body", truncateBody(audio))
		return nil, fmt.Errorf("fish audio tts error: status=%d body=%s", resp.StatusCode, truncateBody(audio))
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("empty audio response")
	}
	return audio, nil
}

func truncateBody(body []byte) string {
	const limit = 512
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
