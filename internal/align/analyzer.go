package align

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrAnalysisUnavailable signals that the external analytics collaborator
// could not produce a scoring document. Callers surface it as "analysis
// unavailable" rather than a broken transcript.
var ErrAnalysisUnavailable = errors.New("align: analysis unavailable")

// Analyzer scores an aligned dialogue. The scoring document's shape is owned
// by the external collaborator, so it is carried opaquely.
type Analyzer interface {
	Analyze(ctx context.Context, entries []AlignedDialogueEntry) (json.RawMessage, error)
}
