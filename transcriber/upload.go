package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// upload describes one request to an OpenAI-compatible
// /audio/transcriptions endpoint.
type upload struct {
	provider string
	url      string
	apiKey   string
	model    string
	lang     string
}

type uploadResponse struct {
	Text string `json:"text"`
}

type uploadError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// uploadRecording posts a FLAC recording as multipart form data and returns
// the recognized text.
func uploadRecording(ctx context.Context, client *http.Client, u upload, audioData []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.flac")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audioData); err != nil {
		return "", err
	}

	writer.WriteField("model", u.model)
	writer.WriteField("response_format", "json")
	if u.lang != "" {
		writer.WriteField("language", baseLanguage(u.lang))
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", u.url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+u.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr uploadError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("%s API error %d: %s", u.provider, resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("%s API error %d: %s", u.provider, resp.StatusCode, string(respBody))
	}

	var out uploadResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("%s response parse error: %w", u.provider, err)
	}
	return out.Text, nil
}
