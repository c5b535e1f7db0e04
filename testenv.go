package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"hark/audio"
	"hark/auth"
	"hark/config"
	"hark/encoder"
	"hark/hotkey"
	"hark/log"
	"hark/recorder"
	"hark/speaker"
	"hark/synth"
	"hark/transcriber"
)

// testCmd is one stdin line. done is closed once the UI loop has handled it.
type testCmd struct {
	line string
	done chan struct{}
}

// runTestMode drives the controller headlessly: a WAV file stands in for
// the microphone and stdin stands in for the keyboard. Each line is one of
// RECORD, TYPE <text>, PLAY, STOP, PRINT, WAIT, WAIT_AUDIO_DONE,
// SLEEP <ms> or QUIT.
func runTestMode(wavPath string, cfg config.Config, tr transcriber.Transcriber, mode audio.Mode) int {
	fakeCtx, err := audio.NewFakeContext(wavPath, tr.Name() == "deepgram")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		return 1
	}
	capture, err := fakeCtx.NewCapture(nil, audio.CaptureConfig{
		SampleRate: encoder.SampleRate, Channels: encoder.Channels,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating capture: %v\n", err)
		return 1
	}
	defer capture.Close()
	fakeCapture := capture.(*audio.FakeCapture)

	s, err := synth.New(synth.Config{
		Engine:     cfg.TTS.Engine,
		Voice:      cfg.TTS.Voice,
		Command:    cfg.TTS.Command,
		SampleRate: cfg.TTS.SampleRate,
		APIKey:     cfg.DeepgramKey,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	voice := synth.NewVoice(s, speaker.Nop{})
	defer voice.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs := make(chan any, 64)
	dispatch := func(msg any) {
		select {
		case msgs <- msg:
		case <-ctx.Done():
		}
	}

	ctrl := recorder.New(recorder.Config{
		Context:     ctx,
		Capture:     capture,
		Mode:        mode,
		Inputs:      fakeCtx,
		Transcriber: tr,
		Session:     transcriber.SessionConfig{Partials: true, Language: tr.GetLanguage()},
		Speaker:     voice,
		Dispatch:    dispatch,
	})
	defer ctrl.Close()

	auth.Request(ctx, tr, dispatch)
	go audio.WatchAvailability(ctx, fakeCtx, cfg.AvailabilityPoll, func(available bool) {
		dispatch(audio.AvailabilityMsg{Available: available})
	})

	// the first authorization and availability results arrive before any
	// command is read, as they would before a user could click
	for gotAuth, gotAvail := false, false; !gotAuth || !gotAvail; {
		switch msg := (<-msgs).(type) {
		case auth.StatusMsg:
			ctrl.Authorize(msg.Status)
			gotAuth = true
		case audio.AvailabilityMsg:
			ctrl.SetAvailable(msg.Available)
			gotAvail = true
		}
	}

	hk := hotkey.NewFake()
	if err := hk.Register(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer hk.Unregister()

	cmds := make(chan testCmd)
	toggled := make(chan struct{}, 1)
	go readTestCommands(os.Stdin, cmds, hk, toggled, fakeCapture)

	var waiters []chan struct{}
	waitTarget := 0
	release := func() {
		if len(waiters) > 0 && ctrl.Recordings() >= waitTarget {
			for _, w := range waiters {
				close(w)
			}
			waiters = nil
		}
	}

	for {
		select {
		case msg := <-msgs:
			switch msg := msg.(type) {
			case recorder.ResultMsg:
				ctrl.HandleResult(msg)
			case audio.AvailabilityMsg:
				ctrl.SetAvailable(msg.Available)
			case auth.StatusMsg:
				ctrl.Authorize(msg.Status)
			}
			release()

		case <-hk.Keydown():
			if ctrl.View().State == recorder.Idle {
				waitTarget = ctrl.Recordings() + 1
			}
			if err := ctrl.Toggle(); err != nil {
				log.Errorf("fatal: %v", err)
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return 1
			}
			select {
			case toggled <- struct{}{}:
			default:
			}

		case cmd, ok := <-cmds:
			if !ok {
				log.SessionEnd(ctrl.Recordings())
				return 0
			}
			verb, arg, _ := strings.Cut(cmd.line, " ")
			switch verb {
			case "TYPE":
				ctrl.EditText(arg)
			case "PLAY":
				ctrl.Play()
			case "STOP":
				ctrl.StopPlayback()
			case "PRINT":
				v := ctrl.View()
				fmt.Printf("state=%s enabled=%t label=%q text=%q\n", v.State, v.Enabled, v.Label, v.Text)
			case "WAIT":
				waiters = append(waiters, cmd.done)
				release()
				continue
			case "QUIT":
				ctrl.Close()
				log.SessionEnd(ctrl.Recordings())
				close(cmd.done)
				return 0
			}
			close(cmd.done)
		}
	}
}

// readTestCommands turns stdin lines into commands. RECORD presses the
// hotkey and waits until the press was handled; SLEEP and WAIT_AUDIO_DONE
// block the reader only.
func readTestCommands(r io.Reader, cmds chan<- testCmd, hk *hotkey.FakeHotkey, toggled <-chan struct{}, capture *audio.FakeCapture) {
	defer close(cmds)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "RECORD":
			hk.SimKeydown()
			<-toggled
		case line == "WAIT_AUDIO_DONE":
			<-capture.AudioDone()
		case strings.HasPrefix(line, "SLEEP "):
			if ms, err := strconv.Atoi(line[6:]); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		default:
			done := make(chan struct{})
			cmds <- testCmd{line: line, done: done}
			<-done
			if line == "QUIT" {
				return
			}
		}
	}
}
