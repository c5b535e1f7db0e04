package transcriber

import (
	"context"

	"hark/auth"
)

const (
	groqAPIURL = "https://api.groq.com/openai/v1"
	groqModel  = "whisper-large-v3-turbo"
)

// Groq uploads the whole recording as FLAC once audio ends. It never
// reports partial results.
type Groq struct {
	baseTranscriber
	apiURL string
}

func NewGroq(apiKey string) *Groq {
	return &Groq{
		baseTranscriber: baseTranscriber{
			client: newHTTPClient(),
			apiKey: apiKey,
		},
		apiURL: groqAPIURL,
	}
}

func (g *Groq) Name() string { return "groq" }

func (g *Groq) Authorize(ctx context.Context) (auth.Status, error) {
	return authorize(ctx, g.client, g.apiKey, g.apiURL+"/models", "Bearer")
}

func (g *Groq) NewSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	lang := cfg.Language
	if lang == "" {
		lang = g.lang
	}
	return newBatchSession(ctx, g.Name(), func(ctx context.Context, audio []byte) (string, error) {
		return g.transcribe(ctx, audio, lang)
	})
}

func (g *Groq) transcribe(ctx context.Context, audioData []byte, lang string) (string, error) {
	return uploadRecording(ctx, g.client, upload{
		provider: g.Name(),
		url:      g.apiURL + "/audio/transcriptions",
		apiKey:   g.apiKey,
		model:    groqModel,
		lang:     lang,
	}, audioData)
}

// baseLanguage strips a region suffix; whisper wants ISO-639-1 codes.
func baseLanguage(lang string) string {
	for i := 0; i < len(lang); i++ {
		if lang[i] == '-' || lang[i] == '_' {
			return lang[:i]
		}
	}
	return lang
}
