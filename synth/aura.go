package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	auraAPIURL     = "https://api.deepgram.com"
	auraVoice      = "aura-2-thalia-en"
	auraSampleRate = 24000
)

// Aura synthesizes with Deepgram's text-to-speech endpoint.
type Aura struct {
	apiKey     string
	voice      string
	sampleRate int
	apiURL     string
	client     *http.Client
}

func NewAura(apiKey, voice string, sampleRate int) *Aura {
	if voice == "" {
		voice = auraVoice
	}
	if sampleRate <= 0 {
		sampleRate = auraSampleRate
	}
	return &Aura{
		apiKey:     apiKey,
		voice:      voice,
		sampleRate: sampleRate,
		apiURL:     auraAPIURL,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *Aura) Name() string { return "aura" }

func (a *Aura) Synthesize(ctx context.Context, text string) (Audio, error) {
	q := url.Values{}
	q.Set("model", a.voice)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(a.sampleRate))
	q.Set("container", "none")

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Audio{}, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", a.apiURL+"/v1/speak?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return Audio{}, err
	}
	req.Header.Set("Authorization", "Token "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return Audio{}, err
	}
	defer resp.Body.Close()

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return Audio{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Audio{}, fmt.Errorf("aura API error %d: %s", resp.StatusCode, string(pcm))
	}
	return Audio{PCM: pcm, SampleRate: a.sampleRate}, nil
}
