// Package transcriber talks to hosted speech recognition services.
//
// A Session accepts raw PCM16 mono audio at encoder.SampleRate and reports
// its progress on Updates: zero or more partial transcripts followed by
// exactly one Update that is Final or carries an Err. Updates is closed
// after that, or right away without a final when the session is canceled.
package transcriber

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"hark/auth"
)

// Update is one delivery from a recognition session. Text, when non-empty,
// is the best transcription of everything heard so far.
type Update struct {
	Text  string
	Final bool
	Err   error
}

// Terminal reports whether nothing follows u.
func (u Update) Terminal() bool { return u.Final || u.Err != nil }

type SessionConfig struct {
	// Partials asks the provider for interim hypotheses where it supports
	// them.
	Partials bool
	Language string
}

type Session interface {
	// Feed forwards captured audio. It is safe to call from the capture
	// thread and drops audio once the session has ended.
	Feed(pcm []byte)
	Updates() <-chan Update
	// EndAudio signals that no more audio follows; the session still
	// delivers its final result.
	EndAudio()
	// Cancel abandons the session without a final result.
	Cancel()
}

type Transcriber interface {
	auth.Authorizer
	Name() string
	SetLanguage(lang string)
	GetLanguage() string
	NewSession(ctx context.Context, cfg SessionConfig) (Session, error)
}

// Keys holds provider credentials.
type Keys struct {
	Deepgram string
	Groq     string
	OpenAI   string
}

type baseTranscriber struct {
	client *http.Client
	apiKey string
	lang   string
}

func (b *baseTranscriber) SetLanguage(lang string) { b.lang = lang }

func (b *baseTranscriber) GetLanguage() string { return b.lang }

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        4,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		},
	}
}

// New returns the named provider. An empty name picks the first of
// Deepgram, Groq and OpenAI whose key is set, and falls back to Deepgram so
// that authorization reports the missing credentials.
func New(provider string, keys Keys) (Transcriber, error) {
	switch provider {
	case "":
		switch {
		case keys.Deepgram == "" && keys.Groq != "":
			return NewGroq(keys.Groq), nil
		case keys.Deepgram == "" && keys.OpenAI != "":
			return NewOpenAI(keys.OpenAI), nil
		}
		return NewDeepgram(keys.Deepgram), nil
	case "deepgram":
		return NewDeepgram(keys.Deepgram), nil
	case "groq":
		return NewGroq(keys.Groq), nil
	case "openai":
		return NewOpenAI(keys.OpenAI), nil
	case "fake":
		return NewFake("hello", "hello world"), nil
	}
	return nil, fmt.Errorf("unknown provider %q (use deepgram, groq, openai or fake)", provider)
}

// authorize probes an account endpoint; a missing key never leaves the
// machine.
func authorize(ctx context.Context, client *http.Client, apiKey, url, scheme string) (auth.Status, error) {
	if apiKey == "" {
		return auth.NotDetermined, auth.ErrNoCredentials
	}
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return auth.NotDetermined, err
	}
	req.Header.Set("Authorization", scheme+" "+apiKey)
	return auth.Probe(client, req)
}
