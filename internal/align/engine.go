// Package align reconstructs an ordered interviewer/candidate dialogue from
// raw conversation records whose question/answer pairing may be off by one.
//
// The repair is heuristic best-effort, not a guaranteed-correct pairing: the
// mismatch rules model the capture artifacts actually observed, and anything
// they miss passes through unchanged.
package align

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vikram-capsitech/hirevox/internal/record"
	"github.com/vikram-capsitech/hirevox/internal/wire"
)

// Speaker identifies who an aligned entry belongs to.
type Speaker string

const (
	SpeakerInterviewer Speaker = "interviewer"
	SpeakerCandidate   Speaker = "candidate"
)

// Sentinel values used in aligned output.
const (
	// NoResponse marks a question that received no captured answer.
	NoResponse = "[No response provided]"

	// Unmatched tags trailing candidate responses that could not be paired
	// with any question.
	Unmatched = "[Unmatched response]"
)

// ErrNoDialogue is returned when no interviewer entries could be parsed from
// the records. There is nothing to analyze; callers report it rather than
// retry.
var ErrNoDialogue = errors.New("align: no interviewer entries parsed")

// AlignedDialogueEntry is one line of the reconstructed dialogue. Never
// mutated after creation.
type AlignedDialogueEntry struct {
	Speaker        Speaker `json:"speaker"`
	Message        string  `json:"message"`
	QuestionNumber string  `json:"questionNumber"`
}

// Engine pairs interviewer questions with candidate responses.
type Engine struct {
	matcher Matcher
}

// NewEngine creates an engine using matcher for mismatch detection; nil
// selects the default keyword matcher.
func NewEngine(matcher Matcher) *Engine {
	if matcher == nil {
		matcher = NewKeywordMatcher()
	}
	return &Engine{matcher: matcher}
}


// Align reconstructs the dialogue from records in their stored order.
//
// Interviewer payloads are parsed out of each record; every parsed question
// becomes an interviewer entry numbered Q1, Q2, … in emission order. Candidate
// responses are re-paired to the questions with a lookahead-1 correction:
// when the matcher flags a response as off-topic for its question and a later
// response is pending, the off-topic one is skipped, modeling a one-step
// misalignment between capture and question. Questions left without a
// response get the NoResponse sentinel; responses left over after all
// questions are drained as trailing entries tagged Unmatched.
//
// Returns ErrNoDialogue when no interviewer entry could be parsed.
func (e *Engine) Align(records []record.Record) ([]AlignedDialogueEntry, error) {
	questions, pending := e.flatten(records)
	if len(questions) == 0 {
		return nil, ErrNoDialogue
	}

	entries := make([]AlignedDialogueEntry, 0, len(questions)*2)
	ptr := 0
	for _, q := range questions {
		entries = append(entries, q)

		if ptr >= len(pending) {
			entries = append(entries, AlignedDialogueEntry{
				Speaker:        SpeakerCandidate,
				Message:        NoResponse,
				QuestionNumber: q.QuestionNumber,
			})
			continue
		}

		resp := pending[ptr]
		if !e.matcher.Matches(q.Message, resp) && ptr+1 < len(pending) {
			// Lookahead-1: consume the off-topic response and take the next.
			ptr++
			resp = pending[ptr]
		}
		ptr++
		entries = append(entries, AlignedDialogueEntry{
			Speaker:        SpeakerCandidate,
			Message:        resp,
			QuestionNumber: q.QuestionNumber,
		})
	}

	// Drain remainder.
	for ; ptr < len(pending); ptr++ {
		entries = append(entries, AlignedDialogueEntry{
			Speaker:        SpeakerCandidate,
			Message:        pending[ptr],
			QuestionNumber: Unmatched,
		})
	}

	return entries, nil
}

// flatten extracts the interviewer entries and the pending candidate
// responses from records. Candidate text is stashed even when its record's
// interviewer payload is unparsable — that is exactly the capture skew the
// re-pair and drain steps exist to repair.
func (e *Engine) flatten(records []record.Record) ([]AlignedDialogueEntry, []string) {
	var questions []AlignedDialogueEntry
	var pending []string

	for _, rec := range records {
		payload, err := wire.DecodeInterviewer(rec.InterviewerResponse)
		if err == nil && strings.TrimSpace(payload.AIResponse) != "" {
			questions = append(questions, AlignedDialogueEntry{
				Speaker:        SpeakerInterviewer,
				Message:        payload.AIResponse,
				QuestionNumber: fmt.Sprintf("Q%d", len(questions)+1),
			})
		}

		// Candidate content may be raw text or a full envelope; the decoder
		// handles both.
		if text := strings.TrimSpace(wire.DecodeCandidate(rec.CandidateResponse).CandidateResponse); text != "" {
			pending = append(pending, text)
		}
	}
	return questions, pending
}
