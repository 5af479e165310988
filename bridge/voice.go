package bridge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pixieuiii/pixiebridge/internal/cachedir"
	"github.com/pixieuiii/pixiebridge/internal/telegram"
)

// Inbound voice recordings larger than this are not downloaded.
const maxVoiceDownloadBytes = 25 * 1024 * 1024

const voiceFallbackNotice = "Sorry, I could not make out that voice message. Please try again or send text."

// handleVoice downloads an inbound voice recording, transcribes it, runs
// the transcript through the responder and answers with a synthesized
// voice note plus the transcript as text.
func (s *Service) handleVoice(ctx context.Context, chatID int64, voice *telegram.Voice) {
	if s.transcriber == nil || !s.transcriber.Enabled() {
		s.reply(ctx, chatID, "Voice transcription is not configured on this host.")
		return
	}

	_ = s.transport.SendChatAction(ctx, chatID, "typing")

	localPath, err := s.downloadVoice(ctx, voice)
	if err != nil {
		s.log.Error("voice_download_error", "error", err)
		s.sendVoiceFallback(ctx, chatID)
		return
	}
	defer os.Remove(localPath)

	transcript, err := s.transcriber.Transcribe(ctx, localPath)
	if err != nil {
		s.log.Error("voice_transcribe_error", "error", err)
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		s.sendVoiceFallback(ctx, chatID)
		return
	}

	answer := transcript
	if s.responder != nil && s.responder.Enabled() {
		reply, err := s.responder.Reply(ctx, transcript)
		if err != nil {
			s.log.Error("responder_error", "error", err)
		} else {
			answer = reply
		}
	}

	s.sendVoiceReply(ctx, chatID, answer)
	s.reply(ctx, chatID, "Transcript: "+transcript)
}

func (s *Service) downloadVoice(ctx context.Context, voice *telegram.Voice) (string, error) {
	f, err := s.transport.GetFile(ctx, voice.FileID)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(s.cacheDir, "downloads")
	if err := cachedir.EnsureSecureChild(s.cacheDir, dir); err != nil {
		return "", err
	}
	ext := filepath.Ext(f.FilePath)
	if ext == "" {
		ext = ".oga"
	}
	dst := filepath.Join(dir, fmt.Sprintf("voice_%d%s", time.Now().UnixMilli(), ext))
	if _, _, err := s.transport.DownloadFileTo(ctx, f.FilePath, dst, maxVoiceDownloadBytes); err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return dst, nil
}

// sendVoiceReply synthesizes text and sends it as a voice note. Without a
// synthesizer the text goes out as a plain message instead.
func (s *Service) sendVoiceReply(ctx context.Context, chatID int64, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		s.reply(ctx, chatID, "Usage: /voice <text>")
		return
	}
	if s.synthesizer == nil {
		s.reply(ctx, chatID, text)
		return
	}

	_ = s.transport.SendChatAction(ctx, chatID, "record_voice")
	voicePath, err := s.synthesizer.Synthesize(ctx, text)
	if err != nil {
		s.log.Error("tts_error", "error", err)
		s.reply(ctx, chatID, text)
		return
	}
	defer os.Remove(voicePath)

	if err := s.dispatch.SendFile(ctx, chatID, voicePath, ""); err != nil {
		s.log.Error("voice_send_error", "error", err)
		s.reply(ctx, chatID, text)
	}
}

func (s *Service) sendVoiceFallback(ctx context.Context, chatID int64) {
	s.sendVoiceReply(ctx, chatID, voiceFallbackNotice)
}
