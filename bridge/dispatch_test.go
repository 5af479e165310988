package bridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pixieuiii/pixiebridge/internal/telegram"
)

type fakeSender struct {
	calls    []string
	texts    []string
	album    []telegram.MediaGroupItem
	voiceErr error
}

func (f *fakeSender) record(call string) { f.calls = append(f.calls, call) }

func (f *fakeSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	f.record("message")
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeSender) SendMessageChunked(ctx context.Context, chatID int64, text string) error {
	f.record("message")
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeSender) SendChatAction(ctx context.Context, chatID int64, action string) error {
	return nil
}

func (f *fakeSender) SendDocument(ctx context.Context, chatID int64, filePath, filename, caption string) error {
	f.record("document")
	return nil
}

func (f *fakeSender) SendPhoto(ctx context.Context, chatID int64, filePath, filename, caption string) error {
	f.record("photo")
	return nil
}

func (f *fakeSender) SendVideo(ctx context.Context, chatID int64, filePath, filename, caption string) error {
	f.record("video")
	return nil
}

func (f *fakeSender) SendAudio(ctx context.Context, chatID int64, filePath, filename, caption string) error {
	f.record("audio")
	return nil
}

func (f *fakeSender) SendVoice(ctx context.Context, chatID int64, filePath, filename, caption string) error {
	f.record("voice")
	return f.voiceErr
}

func (f *fakeSender) SendMediaGroup(ctx context.Context, chatID int64, items []telegram.MediaGroupItem) error {
	f.record("mediaGroup")
	f.album = items
	return nil
}

func (f *fakeSender) SendLocation(ctx context.Context, chatID int64, lat, lon float64) error {
	f.record("location")
	return nil
}

func (f *fakeSender) SendContact(ctx context.Context, chatID int64, phone, firstName, lastName string) error {
	f.record("contact")
	return nil
}

func (f *fakeSender) SendPoll(ctx context.Context, chatID int64, question string, options []string) error {
	f.record("poll")
	return nil
}

func TestSendFileRoutesByKind(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tests := []struct {
		name string
		want string
	}{
		{"pic.jpg", "photo"},
		{"clip.mp4", "video"},
		{"song.mp3", "audio"},
		{"note.ogg", "voice"},
		{"data.bin", "document"},
		{"paper.pdf", "document"},
	}
	for _, tt := range tests {
		path := filepath.Join(dir, tt.name)
		writeFile(t, path)

		f := &fakeSender{}
		d := NewDispatcher(f)
		if err := d.SendFile(context.Background(), 1, path, ""); err != nil {
			t.Fatalf("SendFile(%s) error = %v", tt.name, err)
		}
		if len(f.calls) != 1 || f.calls[0] != tt.want {
			t.Errorf("SendFile(%s) calls = %v, want [%s]", tt.name, f.calls, tt.want)
		}
	}
}

func TestSendFileOversizeNoNetworkCall(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "big.bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Truncate(maxUploadBytes + 1); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	sender := &fakeSender{}
	d := NewDispatcher(sender)
	err = d.SendFile(context.Background(), 1, path, "")
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("error = %v, want ErrTooLarge", err)
	}
	if len(sender.calls) != 0 {
		t.Fatalf("oversize file triggered transport calls: %v", sender.calls)
	}
}

func TestSendFileMissingAndDir(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	d := NewDispatcher(sender)

	if err := d.SendFile(context.Background(), 1, filepath.Join(t.TempDir(), "no.txt"), ""); err == nil {
		t.Fatal("missing file accepted")
	}
	if err := d.SendFile(context.Background(), 1, t.TempDir(), ""); err == nil {
		t.Fatal("directory accepted as file")
	}
	if len(sender.calls) != 0 {
		t.Fatalf("validation failures triggered transport calls: %v", sender.calls)
	}
}

func TestSendFileVoiceFallsBackToAudio(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "note.ogg")
	writeFile(t, path)

	sender := &fakeSender{voiceErr: fmt.Errorf("voice rejected")}
	d := NewDispatcher(sender)
	if err := d.SendFile(context.Background(), 1, path, ""); err != nil {
		t.Fatalf("SendFile() error = %v", err)
	}
	if strings.Join(sender.calls, ",") != "voice,audio" {
		t.Fatalf("calls = %v, want [voice audio]", sender.calls)
	}
}

func TestSendAlbumExcludesNonVisual(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := []string{
		filepath.Join(dir, "a.jpg"),
		filepath.Join(dir, "b.mp4"),
		filepath.Join(dir, "c.txt"),
		filepath.Join(dir, "d.pdf"),
	}
	for _, p := range paths {
		writeFile(t, p)
	}

	sender := &fakeSender{}
	d := NewDispatcher(sender)
	if err := d.SendAlbum(context.Background(), 1, paths, "holiday"); err != nil {
		t.Fatalf("SendAlbum() error = %v", err)
	}
	if len(sender.album) != 2 {
		t.Fatalf("album has %d items, want 2", len(sender.album))
	}
	if sender.album[0].Type != "photo" || sender.album[1].Type != "video" {
		t.Fatalf("album types = %s, %s", sender.album[0].Type, sender.album[1].Type)
	}
	if sender.album[0].Caption != "holiday" || sender.album[1].Caption != "" {
		t.Fatalf("caption placement wrong: %+v", sender.album)
	}
}

func TestSendAlbumAllExcludedErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := filepath.Join(dir, "only.pdf")
	writeFile(t, doc)

	sender := &fakeSender{}
	d := NewDispatcher(sender)
	if err := d.SendAlbum(context.Background(), 1, []string{doc}, ""); err == nil {
		t.Fatal("album with zero usable items did not error")
	}
	if len(sender.calls) != 0 {
		t.Fatalf("unusable album triggered transport calls: %v", sender.calls)
	}
}

func TestSendAlbumCapsAtTen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var paths []string
	for i := 0; i < 14; i++ {
		p := filepath.Join(dir, fmt.Sprintf("p%02d.jpg", i))
		writeFile(t, p)
		paths = append(paths, p)
	}

	sender := &fakeSender{}
	d := NewDispatcher(sender)
	if err := d.SendAlbum(context.Background(), 1, paths, ""); err != nil {
		t.Fatalf("SendAlbum() error = %v", err)
	}
	if len(sender.album) != maxAlbumItems {
		t.Fatalf("album has %d items, want %d", len(sender.album), maxAlbumItems)
	}
}
