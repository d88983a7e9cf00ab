// Package tts defines the Text-to-Speech provider surface for interviewer
// voice playback, including the failover-aware credential key pool.
//
// A Synthesizer wraps a speech synthesis service (e.g. ElevenLabs) and
// performs one synthesis call with one credential. The KeyPool rotates a
// fixed, ordered set of credentials across Synthesize calls, skipping keys
// that are quota-exhausted or unreachable.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"errors"
	"fmt"
)

// ErrPoolExhausted is returned by KeyPool.Synthesize when every credential in
// the pool failed for one request. The pool's rotation state is left
// unchanged in that case.
var ErrPoolExhausted = errors.New("tts: key pool exhausted")

// VoiceSettings tunes the synthesized voice.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Request carries one synthesis call.
type Request struct {
	// Text is the utterance to synthesize.
	Text string

	// VoiceID is the provider-specific voice identifier.
	VoiceID string

	// Model selects the synthesis model (e.g. "eleven_flash_v2_5").
	Model string

	// OutputFormat selects the audio encoding (e.g. "mp3_44100_128").
	OutputFormat string

	// Settings tunes the voice. The zero value means provider defaults.
	Settings VoiceSettings
}

// Synthesizer performs a single synthesis call using the given credential.
// Quota and rate-limit failures must be reported as a *QuotaError so the
// KeyPool can rotate past the key.
type Synthesizer interface {
	Synthesize(ctx context.Context, apiKey string, req Request) ([]byte, error)
}

// QuotaError reports that a credential is rate-limited or out of quota.
type QuotaError struct {
	// StatusCode is the HTTP status that triggered the error (usually 429).
	StatusCode int

	// Status is the provider-specific error code from the response body,
	// e.g. "quota_exceeded". May be empty.
	Status string
}

// Error implements the error interface.
func (e *QuotaError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("tts: quota error: status %d (%s)", e.StatusCode, e.Status)
	}
	return fmt.Sprintf("tts: quota error: status %d", e.StatusCode)
}

// IsQuota reports whether err is (or wraps) a *QuotaError.
func IsQuota(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}
