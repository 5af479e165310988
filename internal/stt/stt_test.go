package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestTranscribe(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	audio := filepath.Join(dir, "note.ogg")
	if err := os.WriteFile(audio, []byte("oggdata"), 0o600); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer KEY" {
			t.Fatalf("authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-large-v3-turbo" {
			t.Fatalf("model = %q", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"  open the downloads folder "}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "KEY", "")
	text, err := c.Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "open the downloads folder" {
		t.Fatalf("Transcribe() = %q", text)
	}
}

func TestTranscribeDisabledWithoutKey(t *testing.T) {
	t.Parallel()

	c := NewClient(nil, "", "", "")
	if c.Enabled() {
		t.Fatalf("Enabled() = true without api key")
	}
	if _, err := c.Transcribe(context.Background(), "x.ogg"); err == nil {
		t.Fatalf("Transcribe() expected error without api key")
	}
}
