package gateway

// Client and server exchange JSON text frames, one event per frame,
// discriminated by the "type" field.

// Inbound event types (client → server).
const (
	eventBegin        = "begin"
	eventPermission   = "permission"
	eventUtterance    = "utterance"
	eventPlaybackDone = "playback-done"
	eventEnd          = "end"
)

// Outbound event types (server → client).
const (
	eventPhase             = "phase"
	eventCountdown         = "countdown"
	eventCaptureStart      = "capture-start"
	eventCaptureStop       = "capture-stop"
	eventSpeak             = "speak"
	eventPlaybackCancel    = "playback-cancel"
	eventPermissionRequest = "permission-request"
	eventRemaining         = "remaining"
	eventError             = "error"
	eventEnded             = "ended"
)

// inboundEvent is the union of all client → server events.
type inboundEvent struct {
	Type string `json:"type"`

	// begin
	SessionID        string `json:"sessionId,omitempty"`
	ApplicationID    string `json:"applicationId,omitempty"`
	JobTitle         string `json:"jobTitle,omitempty"`
	JobDescription   string `json:"jobDescription,omitempty"`
	CandidateName    string `json:"candidateName,omitempty"`
	CandidateProfile string `json:"candidateProfile,omitempty"`

	// permission
	Granted bool `json:"granted,omitempty"`

	// utterance
	Text string `json:"text,omitempty"`

	// permission / playback-done failure detail
	Error string `json:"error,omitempty"`
}

// outboundEvent is the union of all server → client events.
type outboundEvent struct {
	Type string `json:"type"`

	Phase     string `json:"phase,omitempty"`
	TicksLeft int    `json:"ticksLeft,omitempty"`

	// speak
	Text  string `json:"text,omitempty"`
	Audio []byte `json:"audio,omitempty"` // base64 in JSON

	// remaining
	Remaining string `json:"remaining,omitempty"`

	// error / ended
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`
}
