package log

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog        zerolog.Logger
	diagFile       *os.File
	transcribeFile *os.File
	logMu          sync.Mutex
	logReady       bool
	pid            int
	dir            string
)

const envLogPath = "HARK_LOG_PATH"

func ResolveDir(flagPath string) (string, error) {
	if flagPath != "" {
		return absolute(flagPath)
	}
	if envPath := os.Getenv(envLogPath); envPath != "" {
		return absolute(envPath)
	}
	return defaultDir()
}

// defaultDir is the per-user log location: ~/Library/Logs on macOS,
// %LOCALAPPDATA% on Windows, the user config dir everywhere else.
func defaultDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Logs", "hark"), nil
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "hark", "logs"), nil
		}
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "hark", "logs"), nil
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	transcribePath := filepath.Join(dir, "transcribe_log.txt")
	transcribeFile, err = os.OpenFile(transcribePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if transcribeFile != nil {
		transcribeFile.Close()
		transcribeFile = nil
	}
	logReady = false
}

func ready() bool {
	logMu.Lock()
	defer logMu.Unlock()
	return logReady
}

func Info(msg string) {
	if ready() {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if ready() {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if ready() {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if ready() {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if ready() {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if ready() {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// TranscriptionText appends a final transcript to transcribe_log.txt.
func TranscriptionText(text string) {
	logMu.Lock()
	defer logMu.Unlock()
	if !logReady || transcribeFile == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, text)
	transcribeFile.WriteString(line)
}

func RecordingStart(id, provider, device string) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("recording", id).
		Str("provider", provider).
		Str("device", device).
		Msg("recording_start")
}

// RecordingEnd logs a completed teardown. reason is "final", "error" or "cancel".
func RecordingEnd(id, reason string, dur time.Duration, chars int) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("recording", id).
		Str("reason", reason).
		Float64("duration_s", dur.Seconds()).
		Int("chars", chars).
		Msg("recording_end")
}

type StreamMetricsData struct {
	ConnectMs    float64
	FinalizeMs   float64
	TotalMs      float64
	AudioS       float64
	SentChunks   int
	SentKB       float64
	RecvMessages int
	RecvFinal    int
	RecvInterim  int
}

func StreamMetrics(m StreamMetricsData) {
	if !ready() {
		return
	}
	diagLog.Info().
		Float64("connect_ms", m.ConnectMs).
		Float64("finalize_ms", m.FinalizeMs).
		Float64("total_ms", m.TotalMs).
		Float64("audio_s", m.AudioS).
		Int("sent_chunks", m.SentChunks).
		Float64("sent_kb", m.SentKB).
		Int("recv_messages", m.RecvMessages).
		Int("recv_final", m.RecvFinal).
		Int("recv_interim", m.RecvInterim).
		Msg("stream_transcription")
}

func BatchMetrics(provider string, audioS, flacKB float64, total time.Duration) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("provider", provider).
		Float64("audio_s", audioS).
		Float64("flac_kb", flacKB).
		Int64("total_ms", total.Milliseconds()).
		Msg("batch_transcription")
}

func SessionStart(provider, language, tts string) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("provider", provider).
		Str("language", language).
		Str("tts", tts).
		Msg("session_start")
}

func SessionEnd(recordings int) {
	if !ready() {
		return
	}
	diagLog.Info().
		Int("recordings", recordings).
		Msg("session_end")
}
