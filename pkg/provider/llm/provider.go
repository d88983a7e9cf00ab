// Package llm defines the Provider interface for Large Language Model
// backends used as the interview turn generator.
//
// A provider wraps a remote model API (OpenAI, Anthropic via any-llm, a local
// Ollama instance, ...) behind a uniform non-streaming completion interface.
// Interviewer replies are structured JSON payloads that must be parsed whole
// before anything can act on them, so the interview pipeline has no use for
// token streaming.
//
// Implementations must be safe for concurrent use and must honour context
// cancellation on every call.
package llm

import "context"

// Message is a single entry in the chat history sent to the model.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// CompletionRequest carries everything the model needs to produce a reply.
type CompletionRequest struct {
	// SystemPrompt is a high-priority instruction injected before Messages.
	SystemPrompt string

	// Messages is the ordered conversation history. The final message is the
	// candidate envelope that drives the reply.
	Messages []Message

	// Temperature controls output randomness. Zero means provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// Usage holds token accounting returned by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionResponse is the model's full reply.
type CompletionResponse struct {
	// Content is the raw assistant content. For the interview generator this
	// is expected to be a JSON interviewer payload, possibly code-fenced.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// Complete sends req to the model and waits for the full reply. Returns
	// a non-nil error if the request fails, the response carries no choices,
	// or ctx is cancelled before the completion arrives.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
