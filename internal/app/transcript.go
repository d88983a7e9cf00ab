package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/vikram-capsitech/hirevox/internal/align"
	"github.com/vikram-capsitech/hirevox/internal/observe"
)

// finalizeTimeout bounds the end-of-session transcript reconstruction.
const finalizeTimeout = 30 * time.Second

// finalize reconstructs the aligned transcript once a session has ended and
// records alignment telemetry. Scoring consumers read the same alignment
// through the transcript endpoint.
func (a *App) finalize(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	entries, err := a.alignSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, align.ErrNoDialogue) {
			slog.Info("session ended with no analyzable dialogue", "session_id", sessionID)
			return
		}
		slog.Error("transcript reconstruction failed", "session_id", sessionID, "err", err)
		return
	}

	slog.Info("transcript reconstructed",
		"session_id", sessionID, "entries", len(entries))
}

// alignSession loads a session's records and runs the alignment engine over
// them, recording duration and per-kind entry counts.
func (a *App) alignSession(ctx context.Context, sessionID string) ([]align.AlignedDialogueEntry, error) {
	ctx, span := observe.StartSpan(ctx, "align.session")
	defer span.End()

	records, err := a.records.Conversations(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	entries, err := a.aligner.Align(records)
	if err != nil {
		return nil, err
	}
	a.metrics.AlignmentDuration.Record(ctx, time.Since(start).Seconds())

	var paired, unanswered, unmatched int64
	for _, entry := range entries {
		if entry.Speaker != align.SpeakerCandidate {
			continue
		}
		switch {
		case entry.Message == align.NoResponse:
			unanswered++
		case entry.QuestionNumber == align.Unmatched:
			unmatched++
		default:
			paired++
		}
	}
	a.metrics.AlignmentEntries.Add(ctx, paired,
		metric.WithAttributes(observe.Attr("kind", "paired")))
	a.metrics.AlignmentEntries.Add(ctx, unanswered,
		metric.WithAttributes(observe.Attr("kind", "unanswered")))
	a.metrics.AlignmentEntries.Add(ctx, unmatched,
		metric.WithAttributes(observe.Attr("kind", "unmatched")))

	return entries, nil
}

// handleTranscript serves GET /api/sessions/{id}/transcript: the aligned
// question/answer dialogue for one session as JSON.
func (a *App) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		http.Error(w, "session id is required", http.StatusBadRequest)
		return
	}

	entries, err := a.alignSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, align.ErrNoDialogue) {
			http.Error(w, "no dialogue recorded for session", http.StatusNotFound)
			return
		}
		slog.Error("transcript request failed", "session_id", sessionID, "err", err)
		http.Error(w, "transcript unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"sessionId": sessionID,
		"dialogue":  entries,
	}); err != nil {
		slog.Warn("transcript response write failed", "session_id", sessionID, "err", err)
	}
}
