package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = os.TempDir()
	}

	// Telegram transport
	viper.SetDefault("telegram.base_url", "https://api.telegram.org")
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", int64(0))
	viper.SetDefault("telegram.allowed_chat_id", int64(0))
	viper.SetDefault("telegram.poll_timeout", 50*time.Second)

	// Bridge
	viper.SetDefault("bridge.state_dir", filepath.Join(home, ".pixiebridge"))
	viper.SetDefault("bridge.cache_dir", filepath.Join(home, ".pixiebridge", "cache"))
	viper.SetDefault("bridge.max_sessions", 64)
	viper.SetDefault("bridge.transfer_workers", 2)
	viper.SetDefault("bridge.transfer_queue", 8)

	// Cache hygiene
	viper.SetDefault("bridge.cache.max_age", 7*24*time.Hour)
	viper.SetDefault("bridge.cache.max_files", 500)
	viper.SetDefault("bridge.cache.max_total_bytes", int64(1024*1024*1024))

	// Conversational responder (OpenAI-compatible chat completions)
	viper.SetDefault("responder.endpoint", "")
	viper.SetDefault("responder.api_key", "")
	viper.SetDefault("responder.model", "")

	// Speech to text (Groq Whisper)
	viper.SetDefault("stt.api_key", "")
	viper.SetDefault("stt.model", "whisper-large-v3-turbo")

	// Text to speech
	viper.SetDefault("tts.voice_lang", "")

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.add_source", false)
}
