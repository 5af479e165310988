package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pixieuiii/pixiebridge/internal/telegram"
)

// Transport is the full Bot API surface the service drives. *telegram.Client
// satisfies it; tests substitute fakes.
type Transport interface {
	Sender
	SendMessageWithMarkup(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *telegram.InlineKeyboardMarkup) error
	AnswerCallback(ctx context.Context, callbackID, text string, showAlert bool) error
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, int64, error)
	GetFile(ctx context.Context, fileID string) (*telegram.File, error)
	DownloadFileTo(ctx context.Context, filePath, dstPath string, maxBytes int64) (int64, bool, error)
}

// Responder produces a conversational reply for free-form text.
type Responder interface {
	Enabled() bool
	Reply(ctx context.Context, prompt string) (string, error)
}

// Transcriber turns a downloaded voice recording into text.
type Transcriber interface {
	Enabled() bool
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Synthesizer renders text to an OGG/Opus voice file and returns its path.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// Screenshotter captures the host screen to a local image file.
type Screenshotter interface {
	Capture(ctx context.Context) (string, error)
}

// Options configures a Service. Zero values fall back to the documented
// defaults.
type Options struct {
	AllowedChatID   int64
	PollTimeout     int
	MaxSessions     int
	TransferWorkers int
	TransferQueue   int
	CacheDir        string
}

// Service ties the transport loop to the browser, dispatcher, transfer pool
// and media collaborators.
type Service struct {
	log       *slog.Logger
	transport Transport
	dispatch  *Dispatcher
	browser   *Browser
	sessions  *Sessions
	state     *StateStore
	pool      *TransferPool

	responder     Responder
	transcriber   Transcriber
	synthesizer   Synthesizer
	screenshotter Screenshotter

	allowedChatID int64
	pollTimeout   int
	cacheDir      string
}

func NewService(log *slog.Logger, transport Transport, state *StateStore, opts Options,
	responder Responder, transcriber Transcriber, synthesizer Synthesizer, screenshotter Screenshotter) *Service {
	if log == nil {
		log = slog.Default()
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 50
	}
	s := &Service{
		log:           log,
		transport:     transport,
		dispatch:      NewDispatcher(transport),
		browser:       NewBrowser(nil),
		sessions:      NewSessions(opts.MaxSessions, 0),
		state:         state,
		responder:     responder,
		transcriber:   transcriber,
		synthesizer:   synthesizer,
		screenshotter: screenshotter,
		allowedChatID: opts.AllowedChatID,
		pollTimeout:   opts.PollTimeout,
		cacheDir:      opts.CacheDir,
	}
	s.pool = NewTransferPool(opts.TransferWorkers, opts.TransferQueue,
		filepath.Join(opts.CacheDir, "archives"), s.transferDone)
	return s
}

// Close drains the transfer pool.
func (s *Service) Close() {
	s.pool.Close()
}

func (s *Service) allowed(chatID int64) bool {
	return s.allowedChatID == 0 || s.allowedChatID == chatID
}

const helpText = `I am a file bridge for this machine.

/browse - open the file browser
/screenshot - capture and send the screen
/sendfile <path> - send a file
/sendfolder <path> - zip a folder and send it
/voice <text> - reply as a voice note
/help - this message

You can also just ask: "send me report.pdf", "browse photos",
"send folder ~/Documents", "send screenshot".`

func (s *Service) handleStart(ctx context.Context, chatID int64) {
	if err := s.state.SetPrimaryChat(chatID); err != nil {
		s.log.Error("state_set_primary_chat_error", "error", err)
	}
	s.reply(ctx, chatID, "Connected. This chat now receives pushes from the host.\n\n"+helpText)
}

func (s *Service) reply(ctx context.Context, chatID int64, text string) {
	if err := s.dispatch.SendText(ctx, chatID, text); err != nil {
		s.log.Error("telegram_send_error", "chat_id", chatID, "error", err)
	}
}

// handleText routes one inbound text message.
func (s *Service) handleText(ctx context.Context, chatID int64, text string) {
	cmd := ParseCommand(text)
	switch cmd.Kind {
	case CmdStart:
		s.handleStart(ctx, chatID)
	case CmdHelp:
		s.reply(ctx, chatID, helpText)
	case CmdBrowse:
		s.openBrowser(ctx, chatID, cmd.Arg)
	case CmdScreenshot:
		s.sendScreenshot(ctx, chatID)
	case CmdVoiceReply:
		s.sendVoiceReply(ctx, chatID, cmd.Arg)
	case CmdSendFile:
		s.sendFileByArg(ctx, chatID, cmd.Arg)
	case CmdSendFolder:
		s.sendFolderByArg(ctx, chatID, cmd.Arg)
	case CmdSendQuery:
		s.sendByQuery(ctx, chatID, cmd.Arg, text)
	case CmdSendLocation:
		s.sendLocationByArg(ctx, chatID, cmd.Arg)
	case CmdSendContact:
		s.sendContactByArg(ctx, chatID, cmd.Arg)
	case CmdSendPoll:
		s.sendPollByArg(ctx, chatID, cmd.Arg)
	case CmdSendAlbum:
		s.sendAlbumByArg(ctx, chatID, cmd.Arg)
	default:
		s.respondConversationally(ctx, chatID, text)
	}
}

func (s *Service) openBrowser(ctx context.Context, chatID int64, filter string) {
	sess := s.sessions.Get(chatID)
	if filter != "" {
		sess.SetFilter(filter)
	}
	sess.SetAnchor("")
	markup := s.browser.RootsKeyboard(sess)
	if err := s.transport.SendMessageWithMarkup(ctx, chatID, RootsText(sess.Prefs()), markup); err != nil {
		s.log.Error("telegram_send_error", "chat_id", chatID, "error", err)
	}
}

func (s *Service) sendScreenshot(ctx context.Context, chatID int64) {
	if s.screenshotter == nil {
		s.reply(ctx, chatID, "Screenshot capture is not available on this host.")
		return
	}
	_ = s.transport.SendChatAction(ctx, chatID, "upload_photo")
	path, err := s.screenshotter.Capture(ctx)
	if err != nil {
		s.log.Error("screenshot_error", "error", err)
		s.reply(ctx, chatID, "Screenshot failed: "+err.Error())
		return
	}
	if err := s.dispatch.SendFile(ctx, chatID, path, "Screenshot"); err != nil {
		s.reply(ctx, chatID, "Screenshot send failed: "+err.Error())
	}
}

func (s *Service) sendFileByArg(ctx context.Context, chatID int64, arg string) {
	path, ok := ResolveSendTarget(arg, QuickRoots())
	if !ok {
		s.reply(ctx, chatID, "I could not find "+arg+" on this machine.")
		return
	}
	fi, err := os.Stat(path)
	if err == nil && fi.IsDir() {
		s.sendFolderByArg(ctx, chatID, path)
		return
	}
	if err := s.dispatch.SendFile(ctx, chatID, path, filepath.Base(path)); err != nil {
		s.reportSendError(ctx, chatID, path, err)
	}
}

func (s *Service) sendFolderByArg(ctx context.Context, chatID int64, arg string) {
	path, ok := ResolveSendTarget(arg, QuickRoots())
	if !ok {
		s.reply(ctx, chatID, "I could not find folder "+arg+" on this machine.")
		return
	}
	fi, err := os.Stat(path)
	if err != nil || !fi.IsDir() {
		s.reply(ctx, chatID, path+" is not a folder.")
		return
	}
	s.enqueueTransfer(ctx, chatID, path)
}

// sendByQuery handles the bare "send me <something>" form: folders go to
// the transfer pool, files to the dispatcher. When nothing resolves the
// text was probably never a file request, so it flows to the responder
// like any other message.
func (s *Service) sendByQuery(ctx context.Context, chatID int64, arg, original string) {
	path, ok := ResolveSendTarget(arg, QuickRoots())
	if !ok {
		s.respondConversationally(ctx, chatID, original)
		return
	}
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		s.enqueueTransfer(ctx, chatID, path)
		return
	}
	if err := s.dispatch.SendFile(ctx, chatID, path, filepath.Base(path)); err != nil {
		s.reportSendError(ctx, chatID, path, err)
	}
}

func (s *Service) reportSendError(ctx context.Context, chatID int64, path string, err error) {
	if errors.Is(err, ErrTooLarge) {
		if fi, statErr := os.Stat(path); statErr == nil {
			s.reply(ctx, chatID, fmt.Sprintf("%s is %.1f MiB, above the %d MiB upload limit.",
				filepath.Base(path), float64(fi.Size())/(1024*1024), maxUploadBytes/(1024*1024)))
			return
		}
	}
	s.reply(ctx, chatID, "Send failed: "+err.Error())
}

func (s *Service) sendLocationByArg(ctx context.Context, chatID int64, arg string) {
	parts := strings.SplitN(arg, ",", 2)
	if len(parts) != 2 {
		s.reply(ctx, chatID, "Usage: send location <lat>,<lon>")
		return
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		s.reply(ctx, chatID, "Usage: send location <lat>,<lon>")
		return
	}
	if err := s.dispatch.SendLocation(ctx, chatID, lat, lon); err != nil {
		s.reply(ctx, chatID, "Send failed: "+err.Error())
	}
}

func (s *Service) sendContactByArg(ctx context.Context, chatID int64, arg string) {
	parts := strings.Split(arg, "|")
	if len(parts) < 2 {
		s.reply(ctx, chatID, "Usage: send contact <phone>|<first>[|<last>]")
		return
	}
	last := ""
	if len(parts) > 2 {
		last = strings.TrimSpace(parts[2])
	}
	err := s.dispatch.SendContact(ctx, chatID, strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), last)
	if err != nil {
		s.reply(ctx, chatID, "Send failed: "+err.Error())
	}
}

func (s *Service) sendPollByArg(ctx context.Context, chatID int64, arg string) {
	parts := strings.Split(arg, "|")
	if len(parts) < 3 {
		s.reply(ctx, chatID, "Usage: send poll <question>|<option>|<option>...")
		return
	}
	question := strings.TrimSpace(parts[0])
	var options []string
	for _, p := range parts[1:] {
		if p = strings.TrimSpace(p); p != "" {
			options = append(options, p)
		}
	}
	if question == "" || len(options) < 2 {
		s.reply(ctx, chatID, "A poll needs a question and at least two options.")
		return
	}
	if err := s.dispatch.SendPoll(ctx, chatID, question, options); err != nil {
		s.reply(ctx, chatID, "Send failed: "+err.Error())
	}
}

func (s *Service) sendAlbumByArg(ctx context.Context, chatID int64, arg string) {
	var paths []string
	for _, p := range strings.Split(arg, "|") {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		if resolved, ok := ResolveSendTarget(p, QuickRoots()); ok {
			paths = append(paths, resolved)
		}
	}
	if err := s.dispatch.SendAlbum(ctx, chatID, paths, ""); err != nil {
		s.reply(ctx, chatID, "Album send failed: "+err.Error())
	}
}

func (s *Service) respondConversationally(ctx context.Context, chatID int64, text string) {
	if s.responder == nil || !s.responder.Enabled() {
		s.reply(ctx, chatID, "I did not recognize that request. Try /help.")
		return
	}
	_ = s.transport.SendChatAction(ctx, chatID, "typing")
	answer, err := s.responder.Reply(ctx, text)
	if err != nil {
		s.log.Error("responder_error", "error", err)
		s.reply(ctx, chatID, "I could not produce a reply right now.")
		return
	}
	s.reply(ctx, chatID, answer)
}

// enqueueTransfer acknowledges synchronously, then hands the folder to the
// worker pool.
func (s *Service) enqueueTransfer(ctx context.Context, chatID int64, folder string) {
	jobID, err := s.pool.Submit(chatID, folder)
	if err != nil {
		if errors.Is(err, ErrQueueFull) {
			s.reply(ctx, chatID, "Too many transfers are queued already. Try again in a bit.")
			return
		}
		s.reply(ctx, chatID, "Could not start the transfer: "+err.Error())
		return
	}
	s.log.Info("transfer_enqueued", "job_id", jobID, "chat_id", chatID, "folder", folder)
	s.reply(ctx, chatID, fmt.Sprintf("Preparing %s for transfer...", filepath.Base(folder)))
}

// transferDone runs on a pool worker when an archive job finishes.
func (s *Service) transferDone(ctx context.Context, job TransferJob, result TransferResult, err error) {
	if err != nil {
		if errors.Is(err, ErrEmptyArchive) {
			s.reply(ctx, job.ChatID, fmt.Sprintf(
				"Nothing to send: no files in %s fit within the %d MiB archive budget.",
				filepath.Base(job.Folder), maxArchiveSourceBytes/(1024*1024)))
			return
		}
		s.log.Error("transfer_error", "job_id", job.ID, "folder", job.Folder, "error", err)
		s.reply(ctx, job.ChatID, "Archiving "+filepath.Base(job.Folder)+" failed: "+err.Error())
		return
	}
	defer os.Remove(result.ArchivePath)

	if result.ArchiveBytes > maxUploadBytes {
		s.reply(ctx, job.ChatID, fmt.Sprintf(
			"The archive of %s came out at %.1f MiB, above the %d MiB upload limit. %d files, %d skipped.",
			filepath.Base(job.Folder), float64(result.ArchiveBytes)/(1024*1024),
			maxUploadBytes/(1024*1024), result.FileCount, result.SkippedCount))
		return
	}

	caption := fmt.Sprintf("Archive of %s", filepath.Base(job.Folder))
	if err := s.dispatch.SendFile(ctx, job.ChatID, result.ArchivePath, caption); err != nil {
		s.reply(ctx, job.ChatID, "Archive upload failed: "+err.Error())
		return
	}
	s.reply(ctx, job.ChatID, fmt.Sprintf(
		"Done: %d files (%d skipped), %.1f MiB source, %.1f MiB zipped, %s.",
		result.FileCount, result.SkippedCount,
		float64(result.SourceBytes)/(1024*1024), float64(result.ArchiveBytes)/(1024*1024),
		result.Elapsed.Round(100*time.Millisecond)))
}
