package domain

import "time"

// Intent classifies an emitted event's role within a conversation turn.
// The orchestrator guarantees each intent is forwarded at most once per turn.
type Intent string

const (
	// IntentAck is the fast-track acknowledgment.
	IntentAck Intent = "ack"
	// IntentProgress is a slow-track status update.
	IntentProgress Intent = "progress"
	// IntentFinal is the resolved answer; always emitted last.
	IntentFinal Intent = "final"
	// IntentError signals a user-visible failure for the turn.
	IntentError Intent = "error"
)

// InboundMessage is one conversational message from the transport collaborator.
type InboundMessage struct {
	TurnID    string    `json:"turn_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Emission is one outbound event for the transport collaborator. Delivery,
// edit semantics, and rate limiting are the transport's concern.
type Emission struct {
	TurnID   string `json:"turn_id"`
	Intent   Intent `json:"intent"`
	Text     string `json:"text"`
	AudioRef string `json:"audio_ref,omitempty"`
}

// TrackStatus is the lifecycle state of a generation track.
type TrackStatus int32

const (
	// TrackPending means the track has not terminated yet.
	TrackPending TrackStatus = iota
	// TrackDone means the track completed its output.
	TrackDone
	// TrackCancelled means the track was cancelled before completing.
	TrackCancelled
	// TrackFailed means the track errored or exceeded its deadline.
	TrackFailed
)

func (s TrackStatus) String() string {
	switch s {
	case TrackPending:
		return "pending"
	case TrackDone:
		return "done"
	case TrackCancelled:
		return "cancelled"
	case TrackFailed:
		return "failed"
	default:
		return "unknown"
	}
}
