package turn

import (
	"context"
	"fmt"
	"strings"

	"github.com/vikram-capsitech/hirevox/internal/wire"
	"github.com/vikram-capsitech/hirevox/pkg/provider/llm"
)

// Generator is the AI turn generator boundary: given the full conversation
// context it returns the next interviewer utterance plus the end-of-interview
// signal, together with the raw assistant content for persistence.
type Generator interface {
	NextTurn(ctx context.Context, messages []llm.Message) (wire.InterviewerPayload, string, error)
}

// Metadata describes the interview and application the generator is
// conducting, used to derive the system prompt.
type Metadata struct {
	// JobTitle is the position being interviewed for.
	JobTitle string

	// JobDescription summarizes the role's responsibilities.
	JobDescription string

	// CandidateName is the applicant's display name.
	CandidateName string

	// CandidateProfile summarizes the applicant's background.
	CandidateProfile string

	// DurationMinutes is the scheduled interview length.
	DurationMinutes int
}

// LLMGenerator implements Generator on top of an llm.Provider.
type LLMGenerator struct {
	provider     llm.Provider
	systemPrompt string
}

var _ Generator = (*LLMGenerator)(nil)

// NewLLMGenerator creates a generator for the given interview metadata.
func NewLLMGenerator(provider llm.Provider, meta Metadata) (*LLMGenerator, error) {
	if provider == nil {
		return nil, fmt.Errorf("turn: generator: provider must not be nil")
	}
	return &LLMGenerator{
		provider:     provider,
		systemPrompt: buildSystemPrompt(meta),
	}, nil
}

// NextTurn implements Generator. The assistant content is parsed as an
// interviewer payload; empty or non-JSON content is a generator error so the
// coordinator's retry policy applies.
func (g *LLMGenerator) NextTurn(ctx context.Context, messages []llm.Message) (wire.InterviewerPayload, string, error) {
	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: g.systemPrompt,
		Messages:     messages,
	})
	if err != nil {
		return wire.InterviewerPayload{}, "", fmt.Errorf("turn: generate: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return wire.InterviewerPayload{}, "", fmt.Errorf("turn: generate: empty assistant content")
	}

	payload, err := wire.DecodeInterviewer(resp.Content)
	if err != nil {
		return wire.InterviewerPayload{}, "", fmt.Errorf("turn: generate: %w", err)
	}
	return payload, resp.Content, nil
}

// buildSystemPrompt renders the interviewer instructions from meta. Candidate
// messages arrive as JSON envelopes carrying the remaining time, and the
// model must answer with an interviewer payload, so the contract is spelled
// out explicitly.
func buildSystemPrompt(meta Metadata) string {
	var sb strings.Builder
	sb.WriteString("You are a professional interviewer conducting a structured, spoken job interview.\n")
	if meta.JobTitle != "" {
		fmt.Fprintf(&sb, "Position: %s.\n", meta.JobTitle)
	}
	if meta.JobDescription != "" {
		fmt.Fprintf(&sb, "Role summary: %s\n", meta.JobDescription)
	}
	if meta.CandidateName != "" {
		fmt.Fprintf(&sb, "Candidate: %s.\n", meta.CandidateName)
	}
	if meta.CandidateProfile != "" {
		fmt.Fprintf(&sb, "Candidate background: %s\n", meta.CandidateProfile)
	}
	if meta.DurationMinutes > 0 {
		fmt.Fprintf(&sb, "The interview is scheduled for %d minutes.\n", meta.DurationMinutes)
	}
	sb.WriteString("\n")
	sb.WriteString(`Each user message is a JSON object {"candidateResponse": string, "remainingTime": "MM:SS"}. `)
	sb.WriteString("Use remainingTime to pace the interview and wrap up before it reaches 00:00.\n")
	sb.WriteString("Ask one question at a time. Keep questions concise and conversational.\n")
	sb.WriteString(`Always reply with a single JSON object {"aiResponse": string, "isEnded": boolean} and nothing else. `)
	sb.WriteString("Set isEnded to true only when the interview is finished and aiResponse contains your closing statement.")
	return sb.String()
}
