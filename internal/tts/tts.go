// Package tts synthesizes speech locally and converts it to OGG/Opus, the
// format Telegram expects for voice notes. It probes for whichever engines
// are installed rather than depending on any single one.
package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// Synthesizer renders text to OGG/Opus voice files under cacheDir/tts.
type Synthesizer struct {
	CacheDir string
	Lang     string
}

func (s *Synthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	return SynthesizeOggOpus(ctx, s.CacheDir, text, s.Lang)
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

type engineLang struct {
	Pico   string
	Espeak string
}

func resolveLang(lang string, text string) engineLang {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		lang = detectLangFromText(text)
	}
	base := strings.ToLower(strings.Split(strings.ReplaceAll(lang, "_", "-"), "-")[0])
	pico := normalizePicoLang(base)
	if pico == "" && base == "en" {
		pico = "en-US"
	}
	return engineLang{Pico: pico, Espeak: base}
}

func detectLangFromText(text string) string {
	for _, r := range text {
		switch {
		case unicode.In(r, unicode.Han):
			return "zh-CN"
		case unicode.In(r, unicode.Hiragana, unicode.Katakana):
			return "ja-JP"
		case unicode.In(r, unicode.Hangul):
			return "ko-KR"
		case unicode.In(r, unicode.Cyrillic):
			return "ru-RU"
		case unicode.In(r, unicode.Arabic):
			return "ar-SA"
		case unicode.In(r, unicode.Devanagari):
			return "hi-IN"
		}
	}
	return "en-US"
}

func normalizePicoLang(base string) string {
	switch base {
	case "en":
		return "en-US"
	case "de":
		return "de-DE"
	case "es":
		return "es-ES"
	case "fr":
		return "fr-FR"
	case "it":
		return "it-IT"
	default:
		return ""
	}
}

func selectSynthCmd(ctx context.Context, wavPath string, text string, lang engineLang) *exec.Cmd {
	if commandExists("pico2wave") && lang.Pico != "" {
		// pico2wave writes the WAV file directly.
		return exec.CommandContext(ctx, "pico2wave", "-l", lang.Pico, "-w", wavPath, text)
	}
	if commandExists("espeak-ng") {
		if lang.Espeak != "" {
			return exec.CommandContext(ctx, "espeak-ng", "-v", lang.Espeak, "-w", wavPath, text)
		}
		return exec.CommandContext(ctx, "espeak-ng", "-w", wavPath, text)
	}
	if commandExists("espeak") {
		if lang.Espeak != "" {
			return exec.CommandContext(ctx, "espeak", "-v", lang.Espeak, "-w", wavPath, text)
		}
		return exec.CommandContext(ctx, "espeak", "-w", wavPath, text)
	}
	if commandExists("flite") {
		return exec.CommandContext(ctx, "flite", "-t", text, "-o", wavPath)
	}
	return nil
}

func SynthesizeOggOpus(ctx context.Context, cacheDir string, text string, lang string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("missing voice synthesis text")
	}
	// Keep this bounded: huge TTS is slow and can exceed upload limits.
	if len(text) > 1200 {
		text = strings.TrimSpace(text[:1200])
	}

	cacheDir = strings.TrimSpace(cacheDir)
	if cacheDir == "" {
		return "", fmt.Errorf("cache dir is not configured")
	}
	cacheAbs, err := filepath.Abs(cacheDir)
	if err != nil {
		return "", err
	}
	ttsDir := filepath.Join(cacheAbs, "tts")
	if err := os.MkdirAll(ttsDir, 0o700); err != nil {
		return "", err
	}
	_ = os.Chmod(ttsDir, 0o700)

	sum := sha256.Sum256([]byte(text))
	base := fmt.Sprintf("voice_%d_%s", time.Now().UTC().Unix(), hex.EncodeToString(sum[:8]))
	wavPath := filepath.Join(ttsDir, base+".wav")
	oggPath := filepath.Join(ttsDir, base+".ogg")

	synthCmd := selectSynthCmd(ctx, wavPath, text, resolveLang(lang, text))
	if synthCmd == nil {
		return "", fmt.Errorf("no local TTS engine found (install one of: pico2wave, espeak-ng, espeak, flite)")
	}
	out, err := synthCmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("tts synth failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	// Convert to OGG/Opus for the voice-note pathway.
	if commandExists("ffmpeg") {
		conv := exec.CommandContext(ctx, "ffmpeg", "-y", "-loglevel", "error", "-i", wavPath, "-c:a", "libopus", "-b:a", "24k", "-vbr", "on", "-compression_level", "10", oggPath)
		out, err := conv.CombinedOutput()
		if err != nil {
			return "", fmt.Errorf("ffmpeg convert failed: %w: %s", err, strings.TrimSpace(string(out)))
		}
	} else if commandExists("opusenc") {
		conv := exec.CommandContext(ctx, "opusenc", "--quiet", wavPath, oggPath)
		out, err := conv.CombinedOutput()
		if err != nil {
			return "", fmt.Errorf("opusenc convert failed: %w: %s", err, strings.TrimSpace(string(out)))
		}
	} else {
		return "", fmt.Errorf("no audio converter found (install ffmpeg or opusenc)")
	}

	_ = os.Remove(wavPath)
	_ = os.Chmod(oggPath, 0o600)
	return oggPath, nil
}
