package log

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func TestResolveDirFlag(t *testing.T) {
	got, err := ResolveDir("/tmp/hark-log")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/hark-log" {
		t.Errorf("got %q, want /tmp/hark-log", got)
	}
}

func TestResolveDirFlagRelative(t *testing.T) {
	got, err := ResolveDir("logs")
	if err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(wd, "logs"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirEnv(t *testing.T) {
	t.Setenv("HARK_LOG_PATH", "/tmp/hark-env-log")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/hark-env-log" {
		t.Errorf("got %q, want /tmp/hark-env-log", got)
	}
}

func TestResolveDirDefaultFollowsXDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout is linux only")
	}
	xdg := t.TempDir()
	t.Setenv("HARK_LOG_PATH", "")
	t.Setenv("XDG_CONFIG_HOME", xdg)
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(xdg, "hark", "logs"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv("HARK_LOG_PATH", "")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "hark") {
		t.Errorf("default dir %q does not mention hark", got)
	}
}

func TestInitCreatesFiles(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"diagnostics_log.txt", "transcribe_log.txt"} {
		if _, err := os.Stat(filepath.Join(tmp, name)); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
}

func TestTranscriptionText(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	TranscriptionText("hello world")

	data, err := os.ReadFile(filepath.Join(tmp, "transcribe_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	if !strings.Contains(line, "hello world") {
		t.Errorf("transcribe_log.txt missing text, got: %q", line)
	}
	if strings.Count(line, "\t") != 2 {
		t.Errorf("expected tab-separated format, got: %q", line)
	}
}

func TestRecordingEventsWritten(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	RecordingStart("rec-1", "deepgram", "system default")
	RecordingEnd("rec-1", "final", 1500*time.Millisecond, 11)
	Close()

	data, err := os.ReadFile(filepath.Join(tmp, "diagnostics_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	diag := string(data)
	for _, want := range []string{"recording_start", "recording_end", "reason=final", "recording=rec-1"} {
		if !strings.Contains(diag, want) {
			t.Errorf("diagnostics missing %q:\n%s", want, diag)
		}
	}
}

func TestLoggingBeforeInitIsNoop(t *testing.T) {
	setupLogDir(t)
	Info("ignored")
	Warnf("ignored %d", 1)
	TranscriptionText("ignored")
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Close()
	Close()
}
