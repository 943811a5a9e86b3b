package domain

import "context"

// EventType classifies a generator stream event.
type EventType string

const (
	// EventAck is a short acknowledgment, produced once by the fast track.
	EventAck EventType = "ack"
	// EventProgress is an intermediate status update from the slow track.
	EventProgress EventType = "progress"
	// EventFinal is the resolved answer; the slow track produces at most one.
	EventFinal EventType = "final"
)

// GenEvent is one output event from a generation track.
type GenEvent struct {
	Type EventType
	Text string
}

// Generator is a response-generation collaborator (fast or slow LLM backend).
// Generate streams events through emit until the stream ends; a returned error
// marks the track failed, but events already passed to emit stand. Generators
// must honor ctx cancellation at their suspension points.
type Generator interface {
	Generate(ctx context.Context, text string, emit func(GenEvent)) error
}

// Synthesizer produces an audio payload reference for text on demand. The
// orchestrator invokes it only after a confirmed matcher miss.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}
