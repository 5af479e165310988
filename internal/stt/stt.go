// Package stt transcribes voice recordings through a Whisper-compatible
// transcription endpoint (Groq by default).
package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultEndpoint = "https://api.groq.com/openai/v1/audio/transcriptions"

type Client struct {
	http     *http.Client
	endpoint string
	apiKey   string
	model    string
}

func NewClient(httpClient *http.Client, endpoint, apiKey, model string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = "whisper-large-v3-turbo"
	}
	return &Client{
		http:     httpClient,
		endpoint: endpoint,
		apiKey:   strings.TrimSpace(apiKey),
		model:    model,
	}
}

// Enabled reports whether transcription is configured at all.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio file and returns the recognized text,
// trimmed. An empty string with nil error means "nothing recognized".
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("transcription is not configured (missing api key)")
	}
	audioPath = strings.TrimSpace(audioPath)
	if audioPath == "" {
		return "", fmt.Errorf("missing audio path")
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer pw.Close()
		defer mw.Close()

		_ = mw.WriteField("model", c.model)
		_ = mw.WriteField("response_format", "json")
		_ = mw.WriteField("temperature", "0")

		part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, pr)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("transcription http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out transcriptionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("transcription decode: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}
