package turn

import (
	"testing"
)

func TestStoreAppend_AssignsIncreasingSequences(t *testing.T) {
	t.Parallel()
	s := NewStore()

	first, err := s.Append(RoleInterviewer, "Tell me about yourself.")
	if err != nil {
		t.Fatalf("Append interviewer: %v", err)
	}
	second, err := s.Append(RoleCandidate, "I am a backend engineer.")
	if err != nil {
		t.Fatalf("Append candidate: %v", err)
	}
	third, err := s.Append(RoleInterviewer, "What drew you to this role?")
	if err != nil {
		t.Fatalf("Append interviewer: %v", err)
	}

	if first.Sequence >= second.Sequence || second.Sequence >= third.Sequence {
		t.Errorf("sequences not strictly increasing: %d, %d, %d",
			first.Sequence, second.Sequence, third.Sequence)
	}
	if got := s.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
}

func TestStoreAppend_RejectsCandidateOpening(t *testing.T) {
	t.Parallel()
	s := NewStore()

	if _, err := s.Append(RoleCandidate, "Hello?"); err == nil {
		t.Fatal("expected error appending candidate turn to empty log")
	}
}

func TestStoreAppend_RejectsConsecutiveSameRole(t *testing.T) {
	t.Parallel()
	s := NewStore()

	if _, err := s.Append(RoleInterviewer, "First question."); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := s.Append(RoleInterviewer, "Second question."); err == nil {
		t.Fatal("expected error appending consecutive interviewer turns")
	}

	if _, err := s.Append(RoleCandidate, "An answer."); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := s.Append(RoleCandidate, "Another answer."); err == nil {
		t.Fatal("expected error appending consecutive candidate turns")
	}
}

func TestStoreTurns_ReturnsSnapshot(t *testing.T) {
	t.Parallel()
	s := NewStore()
	if _, err := s.Append(RoleInterviewer, "Question."); err != nil {
		t.Fatalf("Append: %v", err)
	}

	snap := s.Turns()
	snap[0].Content = "mutated"

	again := s.Turns()
	if again[0].Content != "Question." {
		t.Errorf("snapshot mutation leaked into the store: %q", again[0].Content)
	}
}

func TestStoreDropLast(t *testing.T) {
	t.Parallel()
	s := NewStore()
	if _, err := s.Append(RoleInterviewer, "Question."); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := s.Append(RoleCandidate, "Answer."); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if !s.DropLast(RoleCandidate) {
		t.Fatal("DropLast(RoleCandidate) = false, want true")
	}
	if got := s.Len(); got != 1 {
		t.Fatalf("Len() after drop = %d, want 1", got)
	}
	// The remaining turn is the interviewer's; dropping a candidate is a no-op.
	if s.DropLast(RoleCandidate) {
		t.Error("DropLast on interviewer tail removed a turn")
	}

	// Re-appending a candidate turn after a drop keeps alternation valid.
	if _, err := s.Append(RoleCandidate, "Second attempt."); err != nil {
		t.Fatalf("Append after DropLast: %v", err)
	}
}

func TestStoreLast(t *testing.T) {
	t.Parallel()
	s := NewStore()

	if _, ok := s.Last(); ok {
		t.Fatal("Last() on empty log reported a turn")
	}

	if _, err := s.Append(RoleInterviewer, "Question."); err != nil {
		t.Fatalf("Append: %v", err)
	}
	last, ok := s.Last()
	if !ok || last.Role != RoleInterviewer || last.Content != "Question." {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
}
