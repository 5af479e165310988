package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSendMessage_FallbackToPlainOnParseError(t *testing.T) {
	var parseModes []string
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		var req sendMessageRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		parseModes = append(parseModes, req.ParseMode)
		texts = append(texts, req.Text)

		w.Header().Set("Content-Type", "application/json")
		if req.ParseMode == "MarkdownV2" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities: Character '-' is reserved and must be escaped"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "TOKEN")
	if err := c.SendMessage(context.Background(), 1001, "hello-world"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	if len(parseModes) != 3 {
		t.Fatalf("expected 3 attempts (markdown, escaped, plain), got %d", len(parseModes))
	}
	if parseModes[0] != "MarkdownV2" || parseModes[1] != "MarkdownV2" || parseModes[2] != "" {
		t.Fatalf("unexpected parse_mode attempts: %#v", parseModes)
	}
	if texts[1] != "hello\\-world" {
		t.Fatalf("second attempt should be escaped MarkdownV2: got %q", texts[1])
	}
	if texts[2] != "hello-world" {
		t.Fatalf("plain-text fallback should use original text: got %q", texts[2])
	}
}

func TestSendMessage_NoFallbackOnNonParseError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "TOKEN")
	err := c.SendMessage(context.Background(), 1001, "hello")
	if err == nil {
		t.Fatalf("expected error")
	}
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.ErrorCode != 401 {
		t.Fatalf("expected RequestError with code 401, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected no fallback for non-parse errors, got %d attempts", attempts)
	}
}

func TestGetUpdates_AdvancesOffset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/getUpdates") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("offset"); got != "7" {
			t.Fatalf("offset = %q, want %q", got, "7")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":[{"update_id":7},{"update_id":9}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "TOKEN")
	updates, next, err := c.GetUpdates(context.Background(), 7, 0)
	if err != nil {
		t.Fatalf("GetUpdates() error = %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("len(updates) = %d, want 2", len(updates))
	}
	if next != 10 {
		t.Fatalf("next offset = %d, want 10", next)
	}
}

func TestSendDocument_MultipartFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")
	if err := os.WriteFile(path, []byte("contents"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendDocument") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("chat_id"); got != "42" {
			t.Fatalf("chat_id = %q, want %q", got, "42")
		}
		if got := r.FormValue("caption"); got != "here" {
			t.Fatalf("caption = %q, want %q", got, "here")
		}
		f, hdr, err := r.FormFile("document")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		if hdr.Filename != "report.txt" {
			t.Fatalf("filename = %q, want %q", hdr.Filename, "report.txt")
		}
		body, _ := io.ReadAll(f)
		if string(body) != "contents" {
			t.Fatalf("body = %q, want %q", string(body), "contents")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "TOKEN")
	if err := c.SendDocument(context.Background(), 42, path, "", "here"); err != nil {
		t.Fatalf("SendDocument() error = %v", err)
	}
}

func TestSendMediaGroup_AttachesInOrder(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jpg")
	b := filepath.Join(dir, "b.mp4")
	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendMediaGroup") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		var entries []mediaGroupEntry
		if err := json.Unmarshal([]byte(r.FormValue("media")), &entries); err != nil {
			t.Fatalf("decode media json: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("len(entries) = %d, want 2", len(entries))
		}
		if entries[0].Type != "photo" || entries[0].Media != "attach://file1" || entries[0].Caption != "album" {
			t.Fatalf("entry 0 = %+v", entries[0])
		}
		if entries[1].Type != "video" || entries[1].Media != "attach://file2" || entries[1].Caption != "" {
			t.Fatalf("entry 1 = %+v", entries[1])
		}
		for _, name := range []string{"file1", "file2"} {
			if _, _, err := r.FormFile(name); err != nil {
				t.Fatalf("missing attached %s: %v", name, err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "TOKEN")
	items := []MediaGroupItem{
		{Type: "photo", Path: a, Caption: "album"},
		{Type: "video", Path: b},
	}
	if err := c.SendMediaGroup(context.Background(), 42, items); err != nil {
		t.Fatalf("SendMediaGroup() error = %v", err)
	}
}

func TestAnswerCallback_Payload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/answerCallbackQuery") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		var req answerCallbackRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.CallbackQueryID != "cb1" || req.Text != "Not a folder." || !req.ShowAlert {
			t.Fatalf("unexpected payload: %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "TOKEN")
	if err := c.AnswerCallback(context.Background(), "cb1", "Not a folder.", true); err != nil {
		t.Fatalf("AnswerCallback() error = %v", err)
	}
}
