// Package wire implements the chat-content envelope contract between the
// interview service and the AI turn generator.
//
// Both sides of the conversation smuggle structured data inside free-text
// chat messages: candidate utterances travel as a JSON envelope carrying the
// recognized text plus the remaining interview time, and interviewer replies
// come back as a JSON payload carrying the reply text plus an end-of-interview
// flag. Models occasionally wrap their JSON output in Markdown code fences, so
// decoding strips those before parsing. All encode/decode logic for this
// contract lives here and nowhere else.
package wire

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CandidateEnvelope wraps a single recognized candidate utterance together
// with the remaining interview time at the moment it was captured.
type CandidateEnvelope struct {
	// CandidateResponse is the raw recognized utterance text.
	CandidateResponse string `json:"candidateResponse"`

	// RemainingTime is the wall-clock time left in the interview,
	// formatted as "MM:SS".
	RemainingTime string `json:"remainingTime"`
}

// InterviewerPayload is the structured reply returned by the AI turn
// generator inside the assistant message content.
type InterviewerPayload struct {
	// AIResponse is the interviewer's next utterance.
	AIResponse string `json:"aiResponse"`

	// IsEnded signals that the interviewer considers the interview complete.
	IsEnded bool `json:"isEnded"`
}

// EncodeCandidate renders text and the remaining interview time as the
// candidate envelope string sent to the generator. Both new utterances and
// replayed history entries use this same shape.
func EncodeCandidate(text string, remaining time.Duration) string {
	env := CandidateEnvelope{
		CandidateResponse: text,
		RemainingTime:     FormatRemaining(remaining),
	}
	b, _ := json.Marshal(env)
	return string(b)
}

// DecodeCandidate parses a candidate envelope string. Content that is not a
// valid envelope is returned as-is in CandidateResponse so that legacy or
// hand-written records still surface their text.
func DecodeCandidate(content string) CandidateEnvelope {
	var env CandidateEnvelope
	if err := json.Unmarshal([]byte(stripFences(content)), &env); err != nil || env.CandidateResponse == "" {
		return CandidateEnvelope{CandidateResponse: content}
	}
	return env
}

// DecodeInterviewer parses the assistant content returned by the generator
// into an InterviewerPayload. Markdown code fences are stripped first.
// Empty or non-JSON content is a generator error.
func DecodeInterviewer(content string) (InterviewerPayload, error) {
	cleaned := stripFences(content)
	if cleaned == "" {
		return InterviewerPayload{}, fmt.Errorf("wire: empty interviewer content")
	}
	var p InterviewerPayload
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		return InterviewerPayload{}, fmt.Errorf("wire: decode interviewer payload: %w", err)
	}
	if p.AIResponse == "" {
		return InterviewerPayload{}, fmt.Errorf("wire: interviewer payload has no aiResponse")
	}
	return p, nil
}

// EncodeInterviewer renders p as the assistant content string. Used by tests
// and by tools that need to fabricate generator output.
func EncodeInterviewer(p InterviewerPayload) string {
	b, _ := json.Marshal(p)
	return string(b)
}

// FormatRemaining renders d as "MM:SS", clamping negative durations to 00:00.
// Durations of an hour or more keep accumulating minutes (e.g. "90:00").
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// stripFences removes a single surrounding Markdown code fence, with or
// without a "json" language tag, and trims whitespace.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
