package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"hark/audio"
	"hark/auth"
	"hark/clipboard"
	"hark/log"
	"hark/recorder"
	"hark/speaker"
)

// ToggleMsg presses the record button from outside the keyboard focus
// (the global hotkey).
type ToggleMsg struct{}

type clearNoticeMsg struct{ seq int }

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

// tuiSend hands msg to the UI goroutine. It blocks until the program reads
// it and returns at once after the program has exited.
func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	modeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	recStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKeyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	buttonStyle   = lipgloss.NewStyle().Padding(0, 2).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("24"))
	buttonRec     = buttonStyle.Background(lipgloss.Color("160"))
	buttonOff     = buttonStyle.Foreground(lipgloss.Color("244")).Background(lipgloss.Color("236"))
	fieldStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238"))
	fieldRecStyle = fieldStyle.BorderForeground(lipgloss.Color("160"))
)

type tuiModel struct {
	ctrl *recorder.Controller
	cues *speaker.Cues

	field   textarea.Model
	spin    spinner.Model
	started time.Time

	status     auth.Status
	available  bool
	modeLine   string
	deviceLine string
	hotkeyLine string

	notice    string
	noticeErr bool
	noticeSeq int

	// fatal is set when the record button hit an unrecoverable error; main
	// exits non-zero after the program quits.
	fatal error
}

// screenInfo is the static text shown around the controls.
type screenInfo struct {
	modeLine   string
	deviceLine string
	hotkeyLine string
}

func newTUIModel(ctrl *recorder.Controller, cues *speaker.Cues, info screenInfo) tuiModel {
	field := textarea.New()
	field.Placeholder = recorder.PlaceholderUtterance
	field.ShowLineNumbers = false
	field.CharLimit = 0
	field.SetHeight(5)
	field.SetWidth(60)
	field.KeyMap.InsertNewline.SetEnabled(false)
	field.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = recStyle

	return tuiModel{
		ctrl:       ctrl,
		cues:       cues,
		field:      field,
		spin:       spin,
		available:  true,
		modeLine:   info.modeLine,
		deviceLine: info.deviceLine,
		hotkeyLine: info.hotkeyLine,
	}
}

func NewTUIProgram(m tuiModel) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spin.Tick)
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.field.SetWidth(max(msg.Width-4, 20))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.ctrl.Close()
			return m, tea.Quit
		case "ctrl+r":
			return m.toggle()
		case "ctrl+p":
			m.ctrl.Play()
			return m, nil
		case "ctrl+s":
			m.ctrl.StopPlayback()
			return m, nil
		case "ctrl+y":
			return m.copyText()
		}
		var cmd tea.Cmd
		m.field, cmd = m.field.Update(msg)
		if v := m.field.Value(); v != m.ctrl.View().Text {
			m.ctrl.EditText(v)
		}
		return m, cmd

	case ToggleMsg:
		return m.toggle()

	case auth.StatusMsg:
		m.status = msg.Status
		m.ctrl.Authorize(msg.Status)
		return m, nil

	case audio.AvailabilityMsg:
		m.available = msg.Available
		m.ctrl.SetAvailable(msg.Available)
		return m, nil

	case recorder.ResultMsg:
		done := m.ctrl.Recordings()
		m.ctrl.HandleResult(msg)
		if m.ctrl.Recordings() != done {
			if msg.Update.Err != nil {
				m.cues.Error()
				m = m.withNotice("recognition failed: "+msg.Update.Err.Error(), true)
			} else {
				m.cues.End()
			}
		}
		m.syncField()
		return m, m.noticeTimeout()

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.field, cmd = m.field.Update(msg)
	return m, cmd
}

func (m tuiModel) toggle() (tea.Model, tea.Cmd) {
	before := m.ctrl.View().State
	if err := m.ctrl.Toggle(); err != nil {
		m.fatal = err
		m.ctrl.Close()
		return m, tea.Quit
	}
	if before == recorder.Idle && m.ctrl.View().State == recorder.Recording {
		m.started = time.Now()
		m.cues.Start()
	}
	m.syncField()
	return m, nil
}

func (m tuiModel) copyText() (tea.Model, tea.Cmd) {
	copied, err := clipboard.Copy(m.ctrl.View().Text)
	switch {
	case err != nil:
		log.Warnf("clipboard: %v", err)
		m = m.withNotice("copy failed: "+err.Error(), true)
	case copied:
		m = m.withNotice("✓ copied", false)
	default:
		m = m.withNotice("nothing to copy", true)
	}
	return m, m.noticeTimeout()
}

func (m tuiModel) withNotice(text string, isErr bool) tuiModel {
	m.notice = text
	m.noticeErr = isErr
	m.noticeSeq++
	return m
}

func (m tuiModel) noticeTimeout() tea.Cmd {
	if m.notice == "" {
		return nil
	}
	seq := m.noticeSeq
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return clearNoticeMsg{seq: seq}
	})
}

// syncField mirrors the transcript into the text field after the
// controller changed it.
func (m *tuiModel) syncField() {
	if text := m.ctrl.View().Text; text != m.field.Value() {
		m.field.SetValue(text)
	}
}

// disabledReason explains why the record button cannot be pressed.
func (m tuiModel) disabledReason() string {
	switch {
	case m.status != auth.Authorized:
		return m.status.Reason()
	case !m.available:
		return "No microphone available"
	default:
		return "Finishing transcription"
	}
}

func (m tuiModel) View() string {
	v := m.ctrl.View()
	var b strings.Builder

	header := titleStyle.Render("hark")
	if m.modeLine != "" {
		header += " " + modeStyle.Render(m.modeLine)
	}
	b.WriteString(header + "\n")
	if m.deviceLine != "" {
		b.WriteString(dimStyle.Render(m.deviceLine) + "\n")
	}
	b.WriteString("\n")

	switch {
	case v.State == recorder.Recording:
		elapsed := time.Since(m.started).Seconds()
		b.WriteString(m.spin.View() + recStyle.Render(fmt.Sprintf(" REC %.1fs", elapsed)) + "\n")
	case !v.Enabled:
		b.WriteString(warnStyle.Render("○ "+m.disabledReason()) + "\n")
	default:
		b.WriteString(dimStyle.Render("○ STANDBY") + "\n")
	}
	b.WriteString("\n")

	button := buttonStyle
	switch {
	case !v.Enabled:
		button = buttonOff
	case v.State == recorder.Recording:
		button = buttonRec
	}
	b.WriteString(button.Render(v.Label) + "\n\n")

	field := fieldStyle
	if v.State == recorder.Recording {
		field = fieldRecStyle
	}
	b.WriteString(field.Render(m.field.View()) + "\n")

	if m.notice != "" {
		style := okStyle
		if m.noticeErr {
			style = warnStyle
		}
		b.WriteString(style.Render(m.notice) + "\n")
	} else {
		b.WriteString("\n")
	}

	b.WriteString(helpLine(
		"ctrl+r", "record",
		"ctrl+p", "play",
		"ctrl+s", "stop",
		"ctrl+y", "copy",
		"ctrl+c", "quit",
	) + "\n")
	if m.hotkeyLine != "" {
		b.WriteString(helpKeyStyle.Render(m.hotkeyLine) + helpStyle.Render(" to record from anywhere") + "\n")
	}
	b.WriteString(helpStyle.Render("hark " + version))
	return b.String()
}

func helpLine(pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, helpKeyStyle.Render(pairs[i])+helpStyle.Render(" "+pairs[i+1]))
	}
	return strings.Join(parts, helpStyle.Render(" · "))
}
