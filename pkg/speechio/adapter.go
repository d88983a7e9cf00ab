// Package speechio defines the speech capture/playback boundary of an
// interview session.
//
// Capture (speech to text) happens on the candidate's client; the service
// only steers it — start, stop — and receives recognized utterances through
// the gateway. Playback (text to speech) is synthesized server-side through
// the voice key pool and shipped to the client, which reports completion.
// The turn coordinator drives both sides through the Adapter interface and
// never listens while it is speaking.
package speechio

import (
	"context"
	"fmt"
	"sync"

	"github.com/vikram-capsitech/hirevox/pkg/provider/tts"
)

// Adapter is the speech I/O boundary used by the turn coordinator.
//
// Implementations must guarantee that the done callback passed to Speak is
// invoked exactly once — with nil after playback completes, or with an error
// if synthesis or playback fails. CancelPlayback suppresses the pending done
// callback.
type Adapter interface {
	// StartCapture asks the client to begin speech recognition. Recognized
	// utterances arrive out of band (through the gateway event stream).
	StartCapture(ctx context.Context) error

	// StopCapture asks the client to stop speech recognition and discard any
	// partial recognition buffer. Safe to call when capture is not running.
	StopCapture()

	// Speak synthesizes text and plays it on the client. done is invoked
	// after the client reports playback completion.
	Speak(ctx context.Context, text string, done func(err error)) error

	// CancelPlayback stops any in-flight synthesis or playback. Safe to call
	// when nothing is playing.
	CancelPlayback()
}

// Voice selects the synthesis voice for a session.
type Voice struct {
	VoiceID      string
	Model        string
	OutputFormat string
	Settings     tts.VoiceSettings
}

// Player synthesizes utterances through a tts.KeyPool, pinning all calls of
// one session to the key that first succeeded so a session's audio keeps a
// consistent provider account. Safe for concurrent use.
type Player struct {
	pool  *tts.KeyPool
	voice Voice

	mu     sync.Mutex
	pinned int // key index to start from; -1 until the first success
}

// NewPlayer creates a Player over pool with the given voice.
func NewPlayer(pool *tts.KeyPool, voice Voice) (*Player, error) {
	if pool == nil {
		return nil, fmt.Errorf("speechio: player: key pool must not be nil")
	}
	if voice.VoiceID == "" {
		return nil, fmt.Errorf("speechio: player: voice ID must not be empty")
	}
	return &Player{pool: pool, voice: voice, pinned: -1}, nil
}

// Synthesize renders text as audio. The first successful call pins the pool
// key used; subsequent calls start from that key.
func (p *Player) Synthesize(ctx context.Context, text string) ([]byte, error) {
	p.mu.Lock()
	start := p.pinned
	p.mu.Unlock()

	audio, idx, err := p.pool.Synthesize(ctx, tts.Request{
		Text:         text,
		VoiceID:      p.voice.VoiceID,
		Model:        p.voice.Model,
		OutputFormat: p.voice.OutputFormat,
		Settings:     p.voice.Settings,
	}, start)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.pinned = idx
	p.mu.Unlock()
	return audio, nil
}
