// Package elevenlabs provides an ElevenLabs-backed synthesizer using the
// HTTP text-to-speech endpoint. It implements the tts.Synthesizer interface
// so it can sit behind a tts.KeyPool for credential failover.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/vikram-capsitech/hirevox/pkg/provider/tts"
)

const (
	defaultModel     = "eleven_flash_v2_5"
	defaultOutputFmt = "mp3_44100_128"
)

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for synthesis requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBaseURL overrides the ElevenLabs API base URL. Used in tests.
func WithBaseURL(base string) Option {
	return func(cl *Client) {
		cl.baseURL = base
	}
}

// Client implements tts.Synthesizer backed by the ElevenLabs HTTP API.
// The API key is supplied per call by the key pool, not held by the client.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

var _ tts.Synthesizer = (*Client)(nil)

// New creates a new ElevenLabs Client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    "https://api.elevenlabs.io",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// synthesizeBody is the JSON payload for POST /v1/text-to-speech/{voice}.
type synthesizeBody struct {
	Text          string             `json:"text"`
	ModelID       string             `json:"model_id"`
	VoiceSettings *tts.VoiceSettings `json:"voice_settings,omitempty"`
}

// errorBody is the error envelope returned on non-2xx responses.
type errorBody struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

// Synthesize implements tts.Synthesizer. It posts req to the ElevenLabs
// text-to-speech endpoint with apiKey and returns the binary audio payload.
//
// HTTP 429 and quota_exceeded error bodies are returned as *tts.QuotaError
// so the key pool rotates past the credential.
func (c *Client) Synthesize(ctx context.Context, apiKey string, req tts.Request) ([]byte, error) {
	if req.VoiceID == "" {
		return nil, fmt.Errorf("elevenlabs: voice ID must not be empty")
	}
	model := req.Model
	if model == "" {
		model = defaultModel
	}
	format := req.OutputFormat
	if format == "" {
		format = defaultOutputFmt
	}

	body := synthesizeBody{
		Text:    req.Text,
		ModelID: model,
	}
	if req.Settings != (tts.VoiceSettings{}) {
		body.VoiceSettings = &req.Settings
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: encode request: %w", err)
	}

	endpoint := c.baseURL + "/v1/text-to-speech/" + url.PathEscape(req.VoiceID) +
		"?output_format=" + url.QueryEscape(format)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: synthesize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read audio: %w", err)
	}
	return audio, nil
}

// decodeError turns a non-2xx response into an error, classifying rate-limit
// and quota conditions as *tts.QuotaError.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var eb errorBody
	_ = json.Unmarshal(raw, &eb)

	if resp.StatusCode == http.StatusTooManyRequests || eb.Detail.Status == "quota_exceeded" {
		return &tts.QuotaError{StatusCode: resp.StatusCode, Status: eb.Detail.Status}
	}
	if eb.Detail.Message != "" {
		return fmt.Errorf("elevenlabs: synthesize: status %d: %s", resp.StatusCode, eb.Detail.Message)
	}
	return fmt.Errorf("elevenlabs: synthesize: unexpected status %d", resp.StatusCode)
}
