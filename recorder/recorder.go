// Package recorder owns the record button, the transcript field and the
// playback controls.
//
// A Controller is not safe for concurrent use. Every method runs on the UI
// goroutine; work finishing elsewhere (recognition results) comes back as a
// message through Config.Dispatch and is applied with HandleResult.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"hark/audio"
	"hark/auth"
	"hark/log"
	"hark/transcriber"
)

type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

const (
	LabelStart = "Start Recording"
	LabelStop  = "Stop Recording"

	ListeningPrompt      = "Say something, I'm listening"
	PlaceholderUtterance = "Please enter text or speak text"
)

var (
	ErrNoInput = errors.New("no audio input available")
	ErrRequest = errors.New("cannot create recognition request")
)

// ResultMsg carries a recognition update back to the UI goroutine. Gen
// identifies the recording cycle it belongs to.
type ResultMsg struct {
	Gen    uint64
	Update transcriber.Update
}

// Speaker plays utterances. Stop silences it immediately.
type Speaker interface {
	Speak(text string)
	Stop()
}

type Config struct {
	Context context.Context
	Capture audio.CaptureDevice
	// Mode is applied to Capture before every recording.
	Mode        audio.Mode
	Inputs      audio.Inputs
	Transcriber transcriber.Transcriber
	Session     transcriber.SessionConfig
	Speaker     Speaker
	// Dispatch hands a message to the UI goroutine. It may block but must
	// not call back into the Controller.
	Dispatch func(msg any)
}

// View is what the screen shows.
type View struct {
	State   State
	Enabled bool
	Label   string
	Text    string
}

// recording is the capture tap and recognition request of one cycle. The
// two are created and released together.
type recording struct {
	gen     uint64
	id      string
	sess    transcriber.Session
	started time.Time
}

type Controller struct {
	cfg Config

	state      State
	label      string
	text       string
	authorized bool
	available  bool
	enabled    bool

	gen        uint64
	rec        *recording
	recordings int
}

func New(cfg Config) *Controller {
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	return &Controller{
		cfg:       cfg,
		state:     Idle,
		label:     LabelStart,
		available: true,
	}
}

func (c *Controller) View() View {
	return View{State: c.state, Enabled: c.enabled, Label: c.label, Text: c.text}
}

// Recordings is the number of cycles that have been torn down.
func (c *Controller) Recordings() int { return c.recordings }

// Authorize applies the one-shot authorization result.
func (c *Controller) Authorize(status auth.Status) {
	c.authorized = status == auth.Authorized
	if !c.authorized {
		log.Warn(status.Reason())
	}
	c.refresh()
}

// SetAvailable applies a recognizer availability change.
func (c *Controller) SetAvailable(available bool) {
	c.available = available
	c.refresh()
}

// refresh recomputes the enabled flag. A running recording can always be
// stopped, and a stopped one keeps the control disabled until its result
// feed tears it down.
func (c *Controller) refresh() {
	switch {
	case c.state == Recording:
		c.enabled = true
	case c.rec != nil:
		c.enabled = false
	default:
		c.enabled = c.authorized && c.available
	}
}

// Toggle is the record button. Errors are fatal to the process.
func (c *Controller) Toggle() error {
	if !c.enabled {
		return nil
	}
	if c.state == Recording {
		c.stop()
		return nil
	}
	return c.start()
}

func (c *Controller) start() error {
	if c.rec != nil {
		log.Warn("canceling leftover recognition task")
		c.release("superseded")
	}

	if err := c.cfg.Capture.Configure(c.cfg.Mode); err != nil {
		log.Warnf("capture session properties weren't set: %v", err)
	}

	sess, err := c.cfg.Transcriber.NewSession(c.cfg.Context, c.cfg.Session)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	if !audio.Available(c.cfg.Inputs) {
		sess.Cancel()
		return ErrNoInput
	}

	c.gen++
	rec := &recording{
		gen:     c.gen,
		id:      uuid.NewString(),
		sess:    sess,
		started: time.Now(),
	}
	c.rec = rec
	go c.feed(rec.gen, sess)

	c.cfg.Capture.SetCallback(func(data []byte, _ uint32) {
		sess.Feed(data)
	})
	if err := c.cfg.Capture.Start(); err != nil {
		log.Errorf("capture couldn't start: %v", err)
	}
	log.RecordingStart(rec.id, c.cfg.Transcriber.Name(), c.cfg.Capture.DeviceName())

	c.text = ListeningPrompt
	c.label = LabelStop
	c.state = Recording
	c.refresh()
	return nil
}

// feed forwards every update of sess to the UI goroutine. A feed that ends
// without a final result still reports one so the cycle is always torn
// down.
func (c *Controller) feed(gen uint64, sess transcriber.Session) {
	terminal := false
	for u := range sess.Updates() {
		c.cfg.Dispatch(ResultMsg{Gen: gen, Update: u})
		if u.Terminal() {
			terminal = true
		}
	}
	if !terminal {
		c.cfg.Dispatch(ResultMsg{Gen: gen, Update: transcriber.Update{Final: true}})
	}
}

// stop is the user path out of Recording: audio ends but the request lives
// on until its final result arrives.
func (c *Controller) stop() {
	c.cfg.Capture.Stop()
	c.rec.sess.EndAudio()
	c.label = LabelStart
	c.state = Idle
	c.refresh()
}

// HandleResult applies one recognition update. Updates of a cycle that has
// already been torn down are ignored.
func (c *Controller) HandleResult(msg ResultMsg) {
	if c.rec == nil || msg.Gen != c.rec.gen {
		return
	}
	u := msg.Update
	if u.Text != "" {
		c.text = u.Text
	}
	if !u.Terminal() {
		return
	}

	reason := "final"
	if u.Err != nil {
		reason = "error"
		log.Errorf("recognition: %v", u.Err)
	} else if u.Text != "" {
		log.TranscriptionText(u.Text)
	}
	c.release(reason)
	c.label = LabelStart
	c.state = Idle
	c.refresh()
}

// release stops capture, removes the tap and drops the request. It is safe
// to call for a cycle whose audio already ended.
func (c *Controller) release(reason string) {
	rec := c.rec
	if rec == nil {
		return
	}
	c.rec = nil
	c.cfg.Capture.Stop()
	c.cfg.Capture.ClearCallback()
	rec.sess.Cancel()
	c.recordings++
	log.RecordingEnd(rec.id, reason, time.Since(rec.started), len(c.text))
}

// EditText replaces the transcript with user input.
func (c *Controller) EditText(text string) {
	c.text = text
}

// Play speaks the transcript, or a placeholder when it is blank.
func (c *Controller) Play() {
	text := c.text
	if strings.TrimSpace(text) == "" {
		text = PlaceholderUtterance
	}
	c.cfg.Speaker.Speak(text)
}

// StopPlayback silences any utterance in flight.
func (c *Controller) StopPlayback() {
	c.cfg.Speaker.Stop()
}

// Close releases everything; it is called once when the screen goes away.
func (c *Controller) Close() {
	c.release("shutdown")
	c.label = LabelStart
	c.state = Idle
	c.cfg.Speaker.Stop()
}
