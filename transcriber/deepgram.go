package transcriber

import (
	"context"

	"hark/auth"
	"hark/encoder"
)

const (
	deepgramAPIURL    = "https://api.deepgram.com"
	deepgramStreamURL = "wss://api.deepgram.com/v1/listen"
	deepgramModel     = "nova-3"
)

// Deepgram streams audio over a websocket and reports interim results.
type Deepgram struct {
	baseTranscriber
	apiURL    string
	streamURL string
}

func NewDeepgram(apiKey string) *Deepgram {
	return &Deepgram{
		baseTranscriber: baseTranscriber{
			client: newHTTPClient(),
			apiKey: apiKey,
		},
		apiURL:    deepgramAPIURL,
		streamURL: deepgramStreamURL,
	}
}

func (d *Deepgram) Name() string { return "deepgram" }

// Authorize lists the key's projects, which any valid key may do.
func (d *Deepgram) Authorize(ctx context.Context) (auth.Status, error) {
	return authorize(ctx, d.client, d.apiKey, d.apiURL+"/v1/projects", "Token")
}

func (d *Deepgram) NewSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	lang := cfg.Language
	if lang == "" {
		lang = d.lang
	}
	scfg := streamSessionConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
		Language:   lang,
		Model:      deepgramModel,
		Interim:    cfg.Partials,
	}
	if _, err := d.streamEndpoint(scfg); err != nil {
		return nil, err
	}
	return newStreamSession(ctx, func(ctx context.Context) (rawStreamSession, error) {
		return d.startStream(ctx, scfg)
	}), nil
}
