package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pixieuiii/pixiebridge/bridge"
	"github.com/pixieuiii/pixiebridge/internal/cachedir"
	"github.com/pixieuiii/pixiebridge/internal/logutil"
	"github.com/pixieuiii/pixiebridge/internal/responder"
	"github.com/pixieuiii/pixiebridge/internal/screenshot"
	"github.com/pixieuiii/pixiebridge/internal/stt"
	"github.com/pixieuiii/pixiebridge/internal/telegram"
	"github.com/pixieuiii/pixiebridge/internal/tts"
)

func newBridgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Run the long-polling file bridge",
		RunE:  runBridge,
	}

	cmd.Flags().String("token", "", "Telegram bot token.")
	cmd.Flags().Int64("chat-id", 0, "Primary chat id for host-initiated pushes.")
	cmd.Flags().Int64("allowed-chat-id", 0, "Restrict the bridge to this chat id (0 = any).")
	cmd.Flags().Duration("poll-timeout", 50*time.Second, "Long-poll wait per getUpdates call.")
	cmd.Flags().String("state-dir", "", "Directory for durable bridge state.")
	cmd.Flags().String("cache-dir", "", "Directory for downloads, archives and voice files.")

	return cmd
}

func runBridge(cmd *cobra.Command, args []string) error {
	log, err := logutil.LoggerFromViper()
	if err != nil {
		return err
	}

	token := strings.TrimSpace(flagOrViperString(cmd, "token", "telegram.bot_token"))
	if token == "" {
		return errors.New("missing Telegram bot token: set --token, telegram.bot_token in the config file, or PIXIE_BRIDGE_TELEGRAM_BOT_TOKEN")
	}

	stateDir := strings.TrimSpace(flagOrViperString(cmd, "state-dir", "bridge.state_dir"))
	cacheDir := strings.TrimSpace(flagOrViperString(cmd, "cache-dir", "bridge.cache_dir"))
	if err := cachedir.EnsureSecure(stateDir); err != nil {
		return fmt.Errorf("state dir: %w", err)
	}
	if err := cachedir.EnsureSecure(cacheDir); err != nil {
		return fmt.Errorf("cache dir: %w", err)
	}
	for _, sub := range []string{"downloads", "archives", "tts", "screenshots"} {
		if err := cachedir.EnsureSecureChild(cacheDir, filepath.Join(cacheDir, sub)); err != nil {
			return fmt.Errorf("cache dir %s: %w", sub, err)
		}
	}
	if err := cachedir.Cleanup(cacheDir,
		viper.GetDuration("bridge.cache.max_age"),
		viper.GetInt("bridge.cache.max_files"),
		viper.GetInt64("bridge.cache.max_total_bytes")); err != nil {
		log.Warn("cache_cleanup_error", "error", err)
	}

	client := telegram.NewClient(nil, viper.GetString("telegram.base_url"), token)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	me, err := client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	log.Info("telegram_authorized", "username", me.Username, "bot_id", me.ID)

	state := bridge.NewStateStore(stateDir)
	if err := state.Load(); err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if chatID := flagOrViperInt64(cmd, "chat-id", "telegram.chat_id"); chatID != 0 && state.PrimaryChat() == 0 {
		if err := state.SetPrimaryChat(chatID); err != nil {
			return fmt.Errorf("set primary chat: %w", err)
		}
	}

	var respond bridge.Responder
	if r := responder.NewClient(nil,
		viper.GetString("responder.endpoint"),
		viper.GetString("responder.api_key"),
		viper.GetString("responder.model")); r.Enabled() {
		respond = r
	}

	var transcribe bridge.Transcriber
	if t := stt.NewClient(nil, "", viper.GetString("stt.api_key"), viper.GetString("stt.model")); t.Enabled() {
		transcribe = t
	}

	synth := &tts.Synthesizer{
		CacheDir: cacheDir,
		Lang:     viper.GetString("tts.voice_lang"),
	}
	grabber := &screenshot.Grabber{CacheDir: cacheDir}

	opts := bridge.Options{
		AllowedChatID:   flagOrViperInt64(cmd, "allowed-chat-id", "telegram.allowed_chat_id"),
		PollTimeout:     int(flagOrViperDuration(cmd, "poll-timeout", "telegram.poll_timeout").Seconds()),
		MaxSessions:     viper.GetInt("bridge.max_sessions"),
		TransferWorkers: viper.GetInt("bridge.transfer_workers"),
		TransferQueue:   viper.GetInt("bridge.transfer_queue"),
		CacheDir:        cacheDir,
	}

	svc := bridge.NewService(log, client, state, opts, respond, transcribe, synth, grabber)
	defer svc.Close()

	if chatID := state.PrimaryChat(); chatID != 0 {
		_ = client.SendMessage(ctx, chatID, "Bridge online.")
	}

	err = svc.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("bridge_stop")
		return nil
	}
	return err
}
