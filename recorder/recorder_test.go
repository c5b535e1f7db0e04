package recorder

import (
	"errors"
	"sync"
	"testing"
	"time"

	"hark/audio"
	"hark/auth"
	"hark/speaker"
	"hark/synth"
	"hark/transcriber"
)

type spoken struct {
	mu    sync.Mutex
	texts []string
	stops int
}

func (s *spoken) Speak(text string) {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()
}

func (s *spoken) Stop() {
	s.mu.Lock()
	s.stops++
	s.mu.Unlock()
}

type harness struct {
	c       *Controller
	tr      *transcriber.FakeTranscriber
	inputs  *audio.FakeContext
	capture *audio.FakeCapture
	speaker *spoken
	msgs    chan any
}

func newHarness(t *testing.T, tr *transcriber.FakeTranscriber) *harness {
	t.Helper()
	inputs := audio.NewFakeContextPCM(nil, 16000, false)
	dev, err := inputs.NewCapture(nil, audio.CaptureConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{
		tr:      tr,
		inputs:  inputs,
		capture: dev.(*audio.FakeCapture),
		speaker: &spoken{},
		msgs:    make(chan any, 64),
	}
	h.c = New(Config{
		Capture:     h.capture,
		Mode:        audio.ModeMeasurement,
		Inputs:      inputs,
		Transcriber: tr,
		Session:     transcriber.SessionConfig{Partials: true},
		Speaker:     h.speaker,
		Dispatch:    func(msg any) { h.msgs <- msg },
	})
	t.Cleanup(h.c.Close)
	return h
}

func newReady(t *testing.T, tr *transcriber.FakeTranscriber) *harness {
	h := newHarness(t, tr)
	h.c.Authorize(auth.Authorized)
	return h
}

// next applies the next dispatched result and returns it.
func (h *harness) next(t *testing.T) ResultMsg {
	t.Helper()
	select {
	case m := <-h.msgs:
		rm, ok := m.(ResultMsg)
		if !ok {
			t.Fatalf("dispatched %T, want ResultMsg", m)
		}
		h.c.HandleResult(rm)
		return rm
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a result")
	}
	return ResultMsg{}
}

// settle applies results until a terminal one.
func (h *harness) settle(t *testing.T) {
	t.Helper()
	for !h.next(t).Update.Terminal() {
	}
}

func (h *harness) quiet(t *testing.T) {
	t.Helper()
	select {
	case m := <-h.msgs:
		t.Fatalf("unexpected dispatch %+v", m)
	case <-time.After(30 * time.Millisecond):
	}
}

func (h *harness) session(t *testing.T) *transcriber.FakeSession {
	t.Helper()
	ss := h.tr.Sessions()
	if len(ss) == 0 {
		t.Fatal("no recognition session was created")
	}
	return ss[len(ss)-1]
}

func toggle(t *testing.T, c *Controller) {
	t.Helper()
	if err := c.Toggle(); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
}

func TestInitialState(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("", ""))
	v := h.c.View()
	if v.State != Idle || v.Enabled || v.Label != LabelStart || v.Text != "" {
		t.Errorf("initial view = %+v", v)
	}
}

func TestNonAuthorizedStatusesDisable(t *testing.T) {
	for _, status := range []auth.Status{auth.NotDetermined, auth.Denied, auth.Restricted} {
		t.Run(status.String(), func(t *testing.T) {
			h := newHarness(t, transcriber.NewFake("", ""))
			h.c.Authorize(status)
			h.c.SetAvailable(true)
			if h.c.View().Enabled {
				t.Fatal("control enabled without authorization")
			}
			toggle(t, h.c)
			if h.c.View().State != Idle || len(h.tr.Sessions()) != 0 {
				t.Error("disabled control started a recording")
			}
		})
	}
}

func TestAvailabilityTogglesEnabled(t *testing.T) {
	h := newReady(t, transcriber.NewFake("", ""))
	if !h.c.View().Enabled {
		t.Fatal("authorized control is disabled")
	}
	h.c.SetAvailable(false)
	if h.c.View().Enabled {
		t.Error("enabled while recognizer unavailable")
	}
	h.c.SetAvailable(true)
	if !h.c.View().Enabled {
		t.Error("disabled after recognizer came back")
	}
}

func TestUnavailableWhileRecordingStillStops(t *testing.T) {
	h := newReady(t, transcriber.NewFake("", "x"))
	toggle(t, h.c)
	h.c.SetAvailable(false)
	if !h.c.View().Enabled {
		t.Fatal("cannot stop a running recording")
	}
	toggle(t, h.c)
	h.settle(t)
	if h.c.View().Enabled {
		t.Error("enabled after teardown while recognizer unavailable")
	}
}

func TestRecordPartialThenFinal(t *testing.T) {
	h := newReady(t, transcriber.NewFake("hello", "hello world"))

	toggle(t, h.c)
	v := h.c.View()
	if v.State != Recording || v.Label != LabelStop || v.Text != ListeningPrompt || !v.Enabled {
		t.Fatalf("after start: %+v", v)
	}
	if h.capture.Mode() != audio.ModeMeasurement {
		t.Errorf("capture mode = %v, want measurement", h.capture.Mode())
	}
	if !h.capture.Running() {
		t.Error("capture not running")
	}

	h.capture.Push([]byte{1, 2, 3, 4})
	if rm := h.next(t); rm.Update.Text != "hello" {
		t.Fatalf("first result = %+v", rm.Update)
	}
	if got := h.c.View().Text; got != "hello" {
		t.Errorf("text after partial = %q", got)
	}
	if got := h.session(t).Fed(); got != 4 {
		t.Errorf("session received %d bytes, want 4", got)
	}

	toggle(t, h.c)
	v = h.c.View()
	if v.State != Idle || v.Label != LabelStart || v.Enabled {
		t.Errorf("after user stop: %+v", v)
	}
	if h.session(t).Canceled() {
		t.Error("user stop canceled the request instead of ending audio")
	}
	if !h.session(t).Ended() {
		t.Error("user stop did not end audio")
	}

	h.settle(t)
	v = h.c.View()
	if v.Text != "hello world" || !v.Enabled || v.Label != LabelStart || v.State != Idle {
		t.Errorf("after final: %+v", v)
	}
	if h.capture.Running() {
		t.Error("capture still running")
	}
	if _, _, clears := h.capture.Calls(); clears != 1 {
		t.Errorf("tap removed %d times, want 1", clears)
	}
	h.quiet(t)
}

func TestStartStopWithoutOutput(t *testing.T) {
	h := newReady(t, transcriber.NewFake("", ""))
	toggle(t, h.c)
	toggle(t, h.c)
	h.settle(t)

	v := h.c.View()
	if !v.Enabled || v.State != Idle {
		t.Errorf("view = %+v", v)
	}
	if v.Text != ListeningPrompt {
		t.Errorf("empty final overwrote the field: %q", v.Text)
	}
	if h.c.rec != nil {
		t.Error("recording handles not released")
	}
	if h.capture.Running() {
		t.Error("capture still running")
	}
	if h.c.Recordings() != 1 {
		t.Errorf("Recordings() = %d", h.c.Recordings())
	}
}

func TestClosedFeedWithoutFinalStillTearsDown(t *testing.T) {
	tr := transcriber.NewFake("", "")
	tr.Hold = true
	h := newReady(t, tr)
	toggle(t, h.c)
	toggle(t, h.c)
	// provider went away without answering
	h.session(t).Cancel()
	h.settle(t)
	if !h.c.View().Enabled || h.c.rec != nil {
		t.Errorf("view = %+v, rec = %v", h.c.View(), h.c.rec)
	}
}

func TestFinalRacingUserStop(t *testing.T) {
	tr := transcriber.NewFake("", "")
	tr.Hold = true
	h := newReady(t, tr)
	toggle(t, h.c)

	// final is in flight to the UI goroutine when the user stops
	h.session(t).Emit(transcriber.Update{Text: "done", Final: true})
	var final ResultMsg
	select {
	case m := <-h.msgs:
		final = m.(ResultMsg)
	case <-time.After(2 * time.Second):
		t.Fatal("no final dispatched")
	}
	toggle(t, h.c)
	h.c.HandleResult(final)
	h.c.HandleResult(final)

	if h.c.Recordings() != 1 {
		t.Errorf("teardowns = %d, want 1", h.c.Recordings())
	}
	if _, _, clears := h.capture.Calls(); clears != 1 {
		t.Errorf("tap removed %d times, want 1", clears)
	}
	v := h.c.View()
	if v.Text != "done" || !v.Enabled || v.State != Idle {
		t.Errorf("view = %+v", v)
	}
	h.quiet(t)
}

func TestRecognitionErrorEndsRecording(t *testing.T) {
	tr := transcriber.NewFake("", "")
	tr.Hold = true
	h := newReady(t, tr)
	toggle(t, h.c)

	h.session(t).Emit(transcriber.Update{Err: errors.New("network lost")})
	h.settle(t)

	v := h.c.View()
	if v.State != Idle || !v.Enabled || v.Label != LabelStart {
		t.Errorf("view = %+v", v)
	}
	if v.Text != ListeningPrompt {
		t.Errorf("error changed the text to %q", v.Text)
	}
	if h.capture.Running() {
		t.Error("capture still running")
	}
}

func TestNoInputIsFatal(t *testing.T) {
	h := newReady(t, transcriber.NewFake("", ""))
	h.inputs.SetDevices(nil)
	err := h.c.Toggle()
	if !errors.Is(err, ErrNoInput) {
		t.Fatalf("Toggle() = %v, want ErrNoInput", err)
	}
	if !h.session(t).Canceled() {
		t.Error("request not released")
	}
	if h.c.View().State != Idle {
		t.Error("entered Recording without input")
	}
}

func TestMonitorOnlyMachineHasNoInput(t *testing.T) {
	h := newReady(t, transcriber.NewFake("", ""))
	h.inputs.SetDevices([]audio.DeviceInfo{{ID: "alsa_output.pci.analog-stereo.monitor", Name: "Monitor of Built-in Audio"}})
	if err := h.c.Toggle(); !errors.Is(err, ErrNoInput) {
		t.Fatalf("Toggle() = %v, want ErrNoInput", err)
	}
	if starts, _, _ := h.capture.Calls(); starts != 0 {
		t.Errorf("capture started %d times on a speaker monitor", starts)
	}
}

func TestRequestFailureIsFatal(t *testing.T) {
	tr := transcriber.NewFake("", "")
	tr.SessionErr = errors.New("bad config")
	h := newReady(t, tr)
	if err := h.c.Toggle(); !errors.Is(err, ErrRequest) {
		t.Fatalf("Toggle() = %v, want ErrRequest", err)
	}
}

func TestCaptureFailuresAreNotEscalated(t *testing.T) {
	h := newReady(t, transcriber.NewFake("", ""))
	h.capture.ConfigureErr = errors.New("device busy")
	h.capture.StartErr = errors.New("cannot start")
	toggle(t, h.c)
	if v := h.c.View(); v.State != Recording || v.Label != LabelStop {
		t.Errorf("view = %+v", v)
	}
	toggle(t, h.c)
	h.settle(t)
}

func TestLeftoverRequestIsCanceled(t *testing.T) {
	tr := transcriber.NewFake("", "late")
	tr.Hold = true
	h := newReady(t, tr)
	toggle(t, h.c)
	toggle(t, h.c)
	first := h.session(t)

	// force a new cycle before the first one was torn down
	if err := h.c.start(); err != nil {
		t.Fatal(err)
	}
	if !first.Canceled() {
		t.Error("leftover request not canceled")
	}
	if len(h.tr.Sessions()) != 2 {
		t.Fatalf("sessions = %d", len(h.tr.Sessions()))
	}

	// the canceled feed's synthesized final belongs to the old cycle
	h.next(t)
	if v := h.c.View(); v.State != Recording {
		t.Errorf("stale result ended the new cycle: %+v", v)
	}
}

func TestPlayEmptyUsesPlaceholder(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("", ""))
	for _, text := range []string{"", "   "} {
		h.c.EditText(text)
		h.c.Play()
	}
	h.c.EditText("test phrase")
	h.c.Play()

	want := []string{PlaceholderUtterance, PlaceholderUtterance, "test phrase"}
	h.speaker.mu.Lock()
	defer h.speaker.mu.Unlock()
	if len(h.speaker.texts) != len(want) {
		t.Fatalf("spoke %q", h.speaker.texts)
	}
	for i := range want {
		if h.speaker.texts[i] != want[i] {
			t.Errorf("utterance %d = %q, want %q", i, h.speaker.texts[i], want[i])
		}
	}
}

func TestPlayThenStopHaltsPlayback(t *testing.T) {
	player := speaker.NewFake()
	voice := synth.NewVoice(synth.NewFake(16000), player)
	defer voice.Close()

	inputs := audio.NewFakeContextPCM(nil, 16000, false)
	dev, _ := inputs.NewCapture(nil, audio.CaptureConfig{})
	c := New(Config{
		Capture:     dev,
		Inputs:      inputs,
		Transcriber: transcriber.NewFake("", ""),
		Speaker:     voice,
		Dispatch:    func(any) {},
	})

	c.EditText("test phrase")
	c.Play()
	select {
	case <-player.Started():
	case <-time.After(2 * time.Second):
		t.Fatal("playback never started")
	}

	c.StopPlayback()
	deadline := time.Now().Add(time.Second)
	for player.Playing() {
		if time.Now().After(deadline) {
			t.Fatal("playback kept going after stop")
		}
		time.Sleep(time.Millisecond)
	}
	if player.Stopped() != 1 {
		t.Errorf("Stopped() = %d, want 1", player.Stopped())
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	tr := transcriber.NewFake("", "")
	tr.Hold = true
	h := newReady(t, tr)
	toggle(t, h.c)
	h.c.Close()

	if !h.session(t).Canceled() {
		t.Error("request not canceled")
	}
	if h.capture.Running() {
		t.Error("capture still running")
	}
	if h.speaker.stops == 0 {
		t.Error("playback not stopped")
	}
	h.c.Close()
}
