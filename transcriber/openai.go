package transcriber

import (
	"context"

	"hark/auth"
)

const (
	openAIAPIURL = "https://api.openai.com/v1"
	openAIModel  = "gpt-4o-transcribe"
)

// OpenAI is a batch provider like Groq: one FLAC upload after the user
// stops, one final result.
type OpenAI struct {
	baseTranscriber
	apiURL string
}

func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{
		baseTranscriber: baseTranscriber{
			client: newHTTPClient(),
			apiKey: apiKey,
		},
		apiURL: openAIAPIURL,
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Authorize(ctx context.Context) (auth.Status, error) {
	return authorize(ctx, o.client, o.apiKey, o.apiURL+"/models", "Bearer")
}

func (o *OpenAI) NewSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	lang := cfg.Language
	if lang == "" {
		lang = o.lang
	}
	return newBatchSession(ctx, o.Name(), func(ctx context.Context, audio []byte) (string, error) {
		return uploadRecording(ctx, o.client, upload{
			provider: o.Name(),
			url:      o.apiURL + "/audio/transcriptions",
			apiKey:   o.apiKey,
			model:    openAIModel,
			lang:     lang,
		}, audio)
	})
}
