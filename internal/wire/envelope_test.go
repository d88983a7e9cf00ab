package wire

import (
	"strings"
	"testing"
	"time"
)

func TestEncodeCandidateRoundTrip(t *testing.T) {
	t.Parallel()

	content := EncodeCandidate(`I said "yes"`, 95*time.Second)
	env := DecodeCandidate(content)
	if env.CandidateResponse != `I said "yes"` {
		t.Fatalf("candidate response = %q", env.CandidateResponse)
	}
	if env.RemainingTime != "01:35" {
		t.Fatalf("remaining time = %q, want 01:35", env.RemainingTime)
	}
}

func TestDecodeCandidatePlainText(t *testing.T) {
	t.Parallel()

	// Non-envelope content surfaces verbatim.
	env := DecodeCandidate("just some words")
	if env.CandidateResponse != "just some words" {
		t.Fatalf("candidate response = %q", env.CandidateResponse)
	}
	if env.RemainingTime != "" {
		t.Fatalf("remaining time = %q, want empty", env.RemainingTime)
	}
}

func TestDecodeInterviewer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    InterviewerPayload
		wantErr bool
	}{
		{
			name:    "plain JSON",
			content: `{"aiResponse":"What is your name?","isEnded":false}`,
			want:    InterviewerPayload{AIResponse: "What is your name?"},
		},
		{
			name:    "fenced with language tag",
			content: "```json\n{\"aiResponse\":\"Thank you.\",\"isEnded\":true}\n```",
			want:    InterviewerPayload{AIResponse: "Thank you.", IsEnded: true},
		},
		{
			name:    "fenced without language tag",
			content: "```\n{\"aiResponse\":\"Next question.\"}\n```",
			want:    InterviewerPayload{AIResponse: "Next question."},
		},
		{
			name:    "empty content",
			content: "   ",
			wantErr: true,
		},
		{
			name:    "non-JSON content",
			content: "I will now ask you a question.",
			wantErr: true,
		},
		{
			name:    "JSON without aiResponse",
			content: `{"isEnded":false}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := DecodeInterviewer(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("want error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("payload = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFormatRemaining(t *testing.T) {
	t.Parallel()

	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{-5 * time.Second, "00:00"},
		{59 * time.Second, "00:59"},
		{10 * time.Minute, "10:00"},
		{90 * time.Minute, "90:00"},
		{61500 * time.Millisecond, "01:02"}, // rounds to nearest second
	}
	for _, tt := range tests {
		if got := FormatRemaining(tt.d); got != tt.want {
			t.Errorf("FormatRemaining(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestEncodeInterviewerIsParseable(t *testing.T) {
	t.Parallel()

	content := EncodeInterviewer(InterviewerPayload{AIResponse: "Why this role?", IsEnded: false})
	if !strings.Contains(content, "aiResponse") {
		t.Fatalf("encoded payload missing aiResponse field: %s", content)
	}
	p, err := DecodeInterviewer(content)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.AIResponse != "Why this role?" {
		t.Fatalf("aiResponse = %q", p.AIResponse)
	}
}
