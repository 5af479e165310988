package bridge

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pixieuiii/pixiebridge/internal/telegram"
)

const pollRetryDelay = 2 * time.Second

// Run drives the long-poll loop until ctx is cancelled. Poll errors back
// off and retry forever; handler errors and panics are logged and never
// terminate the loop.
func (s *Service) Run(ctx context.Context) error {
	offset := int64(-1)
	if last, known := s.state.Cursor(); known {
		offset = last + 1
	}
	timeout := time.Duration(s.pollTimeout) * time.Second

	s.log.Info("bridge_start", "poll_timeout_s", s.pollTimeout, "offset", offset)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		updates, next, err := s.transport.GetUpdates(ctx, offset, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if telegram.IsPollTimeout(err) {
				continue
			}
			s.log.Error("telegram_get_updates_error", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollRetryDelay):
			}
			continue
		}
		offset = next
		for _, upd := range updates {
			s.processUpdate(ctx, upd)
		}
	}
}

// processUpdate claims the update's id durably, then dispatches it inside
// a recover boundary. Claiming before dispatch gives at-most-once
// processing: a crash mid-handler skips the update on restart rather than
// replaying it.
func (s *Service) processUpdate(ctx context.Context, upd telegram.Update) {
	if last, known := s.state.Cursor(); known && upd.UpdateID <= last {
		return
	}
	if err := s.state.Claim(upd.UpdateID); err != nil {
		s.log.Error("state_claim_error", "update_id", upd.UpdateID, "error", err)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("update_handler_panic", "update_id", upd.UpdateID, "panic", r)
		}
	}()
	s.dispatchUpdate(ctx, upd)
}

func (s *Service) dispatchUpdate(ctx context.Context, upd telegram.Update) {
	if cb := upd.CallbackQuery; cb != nil {
		if cb.Message == nil || cb.Message.Chat == nil {
			_ = s.transport.AnswerCallback(ctx, cb.ID, "Unsupported action.", true)
			return
		}
		if !s.allowed(cb.Message.Chat.ID) {
			_ = s.transport.AnswerCallback(ctx, cb.ID, "Unauthorized.", true)
			return
		}
		s.handleCallback(ctx, cb)
		return
	}

	msg := upd.Msg()
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	if !s.allowed(chatID) {
		s.log.Warn("update_dropped_unauthorized", "chat_id", chatID)
		return
	}

	switch {
	case msg.Voice != nil:
		s.handleVoice(ctx, chatID, msg.Voice)
	case strings.TrimSpace(msg.Text) != "":
		s.handleText(ctx, chatID, msg.Text)
	case msg.Document != nil || msg.Audio != nil || len(msg.Photo) > 0:
		s.reply(ctx, chatID, "Supported: text and voice messages.")
	}
}

// handleCallback parses a "br|action|arg..." token and applies it to the
// browser session behind the tapped keyboard. Every path answers the
// callback; validation failures answer with an alert and leave the loop
// untouched.
func (s *Service) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID
	sess := s.sessions.Get(chatID)

	parts := strings.Split(cb.Data, callbackDelimiter)
	if len(parts) < 2 || parts[0] != callbackPrefix {
		_ = s.transport.AnswerCallback(ctx, cb.ID, "Unsupported action.", true)
		return
	}

	alert := func(text string) {
		_ = s.transport.AnswerCallback(ctx, cb.ID, text, true)
	}
	ack := func(text string) {
		_ = s.transport.AnswerCallback(ctx, cb.ID, text, false)
	}

	switch parts[1] {
	case actionNoop:
		ack("")

	case actionRoots:
		sess.SetAnchor("")
		markup := s.browser.RootsKeyboard(sess)
		if err := s.transport.EditMessageText(ctx, chatID, messageID, RootsText(sess.Prefs()), markup); err != nil {
			s.log.Error("telegram_edit_error", "chat_id", chatID, "error", err)
		}
		ack("")

	case actionOpen:
		if len(parts) < 3 {
			alert("Unsupported action.")
			return
		}
		folder, ok := sess.ResolvePath(parts[2])
		if !ok {
			alert("That listing expired. Tap Roots to start over.")
			return
		}
		if fi, err := os.Stat(folder); err != nil || !fi.IsDir() {
			alert("That folder is no longer available.")
			return
		}
		page := 0
		if len(parts) >= 4 {
			page, _ = strconv.Atoi(parts[3])
		}
		s.showFolder(ctx, sess, chatID, messageID, parts[2], folder, page)
		ack("")

	case actionSort:
		if len(parts) < 3 {
			alert("Unsupported action.")
			return
		}
		sess.SetSort(parts[2])
		s.rerenderAnchor(ctx, sess, chatID, messageID)
		ack("Sorted by " + sess.Prefs().Sort)

	case actionFilter:
		if len(parts) < 3 {
			alert("Unsupported action.")
			return
		}
		sess.SetFilter(parts[2])
		s.rerenderAnchor(ctx, sess, chatID, messageID)
		ack("Filter: " + sess.Prefs().Filter)

	case actionFile:
		if len(parts) < 3 {
			alert("Unsupported action.")
			return
		}
		path, ok := sess.ResolvePath(parts[2])
		if !ok {
			alert("That listing expired. Tap Roots to start over.")
			return
		}
		ack("Sending " + filepath.Base(path))
		if err := s.dispatch.SendFile(ctx, chatID, path, filepath.Base(path)); err != nil {
			s.reportSendError(ctx, chatID, path, err)
		}

	case actionZip:
		if len(parts) < 3 {
			alert("Unsupported action.")
			return
		}
		folder, ok := sess.ResolvePath(parts[2])
		if !ok {
			alert("That listing expired. Tap Roots to start over.")
			return
		}
		if fi, err := os.Stat(folder); err != nil || !fi.IsDir() {
			alert("That folder is no longer available.")
			return
		}
		ack("Queued")
		s.enqueueTransfer(ctx, chatID, folder)

	default:
		alert("Unsupported action.")
	}
}

func (s *Service) showFolder(ctx context.Context, sess *Session, chatID, messageID int64, sid, folder string, page int) {
	view := s.browser.FolderView(sess, folder, page)
	sess.SetAnchor(sid)
	if err := s.transport.EditMessageText(ctx, chatID, messageID, view.Text, view.Markup); err != nil {
		s.log.Error("telegram_edit_error", "chat_id", chatID, "error", err)
	}
}

// rerenderAnchor redraws the folder currently on screen after a sort or
// filter change, or the root list when no folder is open.
func (s *Service) rerenderAnchor(ctx context.Context, sess *Session, chatID, messageID int64) {
	sid := sess.Anchor()
	if sid == "" {
		markup := s.browser.RootsKeyboard(sess)
		if err := s.transport.EditMessageText(ctx, chatID, messageID, RootsText(sess.Prefs()), markup); err != nil {
			s.log.Error("telegram_edit_error", "chat_id", chatID, "error", err)
		}
		return
	}
	folder, ok := sess.ResolvePath(sid)
	if !ok {
		return
	}
	s.showFolder(ctx, sess, chatID, messageID, sid, folder, 0)
}
