package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"hark/audio"
	"hark/auth"
	"hark/config"
	"hark/encoder"
	"hark/hotkey"
	"hark/log"
	"hark/recorder"
	"hark/shutdown"
	"hark/speaker"
	"hark/synth"
	"hark/transcriber"
)

var version = "dev"

// run wires everything together and returns the process exit code.
func run() int {
	configFlag := flag.String("config", "", "config file (default: $XDG_CONFIG_HOME/hark/config.yaml)")
	envFlag := flag.String("env", "", "file with API keys in KEY=value form (default: ./.env if present)")
	providerFlag := flag.String("provider", "", "recognition provider: deepgram, groq, openai or fake (default: whichever API key is set)")
	langFlag := flag.String("lang", "", "language code for recognition (e.g., en, es, fr)")
	deviceFlag := flag.String("device", "", "use the microphone whose name contains this text")
	setupFlag := flag.Bool("setup", false, "select microphone device interactively")
	captureModeFlag := flag.String("capture-mode", "", "capture mode: measurement or default")
	ttsFlag := flag.String("tts", "", "speech engine for playback: aura, command or fake")
	hotkeyFlag := flag.String("hotkey", "", "global hotkey that toggles recording (e.g., ctrl+shift+space)")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	testFlag := flag.Bool("test", false, "test mode (headless, stdin-driven): hark -test <wav-file>")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("hark %s\n", version)
		return 0
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	if crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if err := config.LoadEnv(*envFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "provider":
			cfg.Provider = *providerFlag
		case "lang":
			cfg.Language = *langFlag
		case "device":
			cfg.Device = *deviceFlag
		case "capture-mode":
			cfg.CaptureMode = *captureModeFlag
		case "tts":
			cfg.TTS.Engine = *ttsFlag
		case "hotkey":
			cfg.Hotkey = *hotkeyFlag
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	mode, err := audio.ParseMode(cfg.CaptureMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	tr, err := transcriber.New(cfg.Provider, transcriber.Keys{
		Deepgram: cfg.DeepgramKey,
		Groq:     cfg.GroqKey,
		OpenAI:   cfg.OpenAIKey,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	tr.SetLanguage(cfg.Language)

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()
	log.SessionStart(tr.Name(), cfg.Language, cfg.TTS.Engine)

	if *testFlag {
		args := flag.Args()
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: hark -test <wav-file>")
			return 1
		}
		return runTestMode(args[0], cfg, tr, mode)
	}

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio context: %v\n", err)
		return 1
	}
	defer actx.Close()

	selected, err := resolveDevice(actx, cfg.Device, *setupFlag)
	if err != nil {
		if errors.Is(err, audio.ErrCanceled) {
			return 0
		}
		log.Errorf("device: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	captureDevice, err := actx.NewCapture(selected, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		log.Errorf("capture device init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing capture device: %v\n", err)
		return 1
	}
	defer captureDevice.Close()

	voice, cues, err := newSpeech(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer voice.Close()

	ctrl := recorder.New(recorder.Config{
		Context:     ctx,
		Capture:     captureDevice,
		Mode:        mode,
		Inputs:      actx,
		Transcriber: tr,
		Session:     transcriber.SessionConfig{Partials: true, Language: tr.GetLanguage()},
		Speaker:     voice,
		Dispatch:    func(msg any) { tuiSend(msg) },
	})

	hk := registerHotkey(cfg.Hotkey)
	hotkeyLine := ""
	if hk != nil {
		defer hk.Unregister()
		hotkeyLine = cfg.Hotkey
	}

	p := NewTUIProgram(newTUIModel(ctrl, cues, screenInfo{
		modeLine:   modeLineText(tr, mode, cfg.TTS.Engine),
		deviceLine: deviceLineText(selected),
		hotkeyLine: hotkeyLine,
	}))
	tuiMu.Lock()
	tuiProgram = p
	tuiMu.Unlock()

	auth.Request(ctx, tr, func(msg any) { tuiSend(msg) })
	go audio.WatchAvailability(ctx, actx, cfg.AvailabilityPoll, func(available bool) {
		tuiSend(audio.AvailabilityMsg{Available: available})
	})
	if hk != nil {
		go forwardHotkey(ctx, hk)
	}
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	final, runErr := p.Run()
	stop()
	ctrl.Close()
	log.SessionEnd(ctrl.Recordings())

	if runErr != nil {
		log.Errorf("TUI error: %v", runErr)
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		return 1
	}
	if m, ok := final.(tuiModel); ok && m.fatal != nil {
		log.Errorf("fatal: %v", m.fatal)
		fmt.Fprintf(os.Stderr, "Error: %v\n", m.fatal)
		return 1
	}
	return 0
}

// newSpeech builds the playback voice and the recording cues. A machine
// without an output device still runs, silently.
func newSpeech(cfg config.Config) (*synth.Voice, *speaker.Cues, error) {
	s, err := synth.New(synth.Config{
		Engine:     cfg.TTS.Engine,
		Voice:      cfg.TTS.Voice,
		Command:    cfg.TTS.Command,
		SampleRate: cfg.TTS.SampleRate,
		APIKey:     cfg.DeepgramKey,
	})
	if err != nil {
		return nil, nil, err
	}

	var voicePlayer, cuePlayer speaker.Player = speaker.Nop{}, speaker.Nop{}
	if p, err := speaker.New(); err != nil {
		log.Warnf("playback unavailable: %v", err)
	} else {
		voicePlayer = p
	}
	// cues get their own output so they never queue behind speech
	if p, err := speaker.New(); err == nil {
		cuePlayer = p
	}
	return synth.NewVoice(s, voicePlayer), speaker.NewCues(cuePlayer), nil
}

// registerHotkey returns nil when no hotkey is configured or it could not
// be registered; recording stays available from the keyboard.
func registerHotkey(keys string) hotkey.Hotkey {
	if keys == "" {
		return nil
	}
	combo, err := hotkey.Parse(keys)
	if err != nil {
		log.Warnf("hotkey: %v", err)
		return nil
	}
	hk, err := hotkey.New(combo)
	if err != nil {
		log.Warnf("hotkey: %v", err)
		return nil
	}
	if err := hk.Register(); err != nil {
		log.Warnf("hotkey register error: %v", err)
		return nil
	}
	log.Info("hotkey_registered: " + combo.String())
	return hk
}

func forwardHotkey(ctx context.Context, hk hotkey.Hotkey) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hk.Keydown():
			log.Info("hotkey_toggle")
			tuiSend(ToggleMsg{})
		}
	}
}
