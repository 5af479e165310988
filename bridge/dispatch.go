package bridge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pixieuiii/pixiebridge/internal/telegram"
)

const maxAlbumItems = 10

// Sender is the outbound surface of the transport client the dispatcher
// needs. *telegram.Client satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendMessageChunked(ctx context.Context, chatID int64, text string) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
	SendDocument(ctx context.Context, chatID int64, filePath, filename, caption string) error
	SendPhoto(ctx context.Context, chatID int64, filePath, filename, caption string) error
	SendVideo(ctx context.Context, chatID int64, filePath, filename, caption string) error
	SendAudio(ctx context.Context, chatID int64, filePath, filename, caption string) error
	SendVoice(ctx context.Context, chatID int64, filePath, filename, caption string) error
	SendMediaGroup(ctx context.Context, chatID int64, items []telegram.MediaGroupItem) error
	SendLocation(ctx context.Context, chatID int64, lat, lon float64) error
	SendContact(ctx context.Context, chatID int64, phone, firstName, lastName string) error
	SendPoll(ctx context.Context, chatID int64, question string, options []string) error
}

// Dispatcher routes local artifacts to the right transport method by
// content kind, enforcing the upload ceiling before any bytes leave the
// host.
type Dispatcher struct {
	sender Sender
}

func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{sender: sender}
}

func (d *Dispatcher) SendText(ctx context.Context, chatID int64, text string) error {
	return d.sender.SendMessageChunked(ctx, chatID, text)
}

// validateUpload stats path and rejects anything that is not a regular
// file under the upload ceiling. The size check happens here, before the
// transport sees a single byte.
func validateUpload(path string) (os.FileInfo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a folder, not a file", path)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	if fi.Size() > maxUploadBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d",
			ErrTooLarge, filepath.Base(path), fi.Size(), int64(maxUploadBytes))
	}
	return fi, nil
}

// SendFile uploads one local file, picking photo/video/audio/voice/document
// delivery from the content kind. A failed voice upload falls back to a
// plain audio upload once; all other kinds surface their error directly.
func (d *Dispatcher) SendFile(ctx context.Context, chatID int64, path, caption string) error {
	if _, err := validateUpload(path); err != nil {
		return err
	}
	name := filepath.Base(path)

	switch KindForPath(path) {
	case KindImage:
		_ = d.sender.SendChatAction(ctx, chatID, "upload_photo")
		return d.sender.SendPhoto(ctx, chatID, path, name, caption)
	case KindVideo:
		_ = d.sender.SendChatAction(ctx, chatID, "upload_video")
		return d.sender.SendVideo(ctx, chatID, path, name, caption)
	case KindAudio:
		_ = d.sender.SendChatAction(ctx, chatID, "upload_voice")
		return d.sender.SendAudio(ctx, chatID, path, name, caption)
	case KindVoice:
		_ = d.sender.SendChatAction(ctx, chatID, "upload_voice")
		if err := d.sender.SendVoice(ctx, chatID, path, name, caption); err != nil {
			return d.sender.SendAudio(ctx, chatID, path, name, caption)
		}
		return nil
	default:
		_ = d.sender.SendChatAction(ctx, chatID, "upload_document")
		return d.sender.SendDocument(ctx, chatID, path, name, caption)
	}
}

// SendAlbum uploads up to ten images and videos as one media group.
// Non-visual paths are silently excluded; zero usable items is an error so
// the caller can tell the requester nothing was sent.
func (d *Dispatcher) SendAlbum(ctx context.Context, chatID int64, paths []string, caption string) error {
	var items []telegram.MediaGroupItem
	for _, p := range paths {
		if len(items) == maxAlbumItems {
			break
		}
		if _, err := validateUpload(p); err != nil {
			continue
		}
		switch KindForPath(p) {
		case KindImage:
			items = append(items, telegram.MediaGroupItem{Type: "photo", Path: p})
		case KindVideo:
			items = append(items, telegram.MediaGroupItem{Type: "video", Path: p})
		}
	}
	if len(items) == 0 {
		return fmt.Errorf("no sendable photos or videos among %d paths", len(paths))
	}
	if caption != "" {
		items[0].Caption = caption
	}
	_ = d.sender.SendChatAction(ctx, chatID, "upload_photo")
	return d.sender.SendMediaGroup(ctx, chatID, items)
}

func (d *Dispatcher) SendLocation(ctx context.Context, chatID int64, lat, lon float64) error {
	return d.sender.SendLocation(ctx, chatID, lat, lon)
}

func (d *Dispatcher) SendContact(ctx context.Context, chatID int64, phone, firstName, lastName string) error {
	return d.sender.SendContact(ctx, chatID, phone, firstName, lastName)
}

func (d *Dispatcher) SendPoll(ctx context.Context, chatID int64, question string, options []string) error {
	return d.sender.SendPoll(ctx, chatID, question, options)
}
