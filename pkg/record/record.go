// Package record defines the event log record types written by a session.
// Every line of a JSON lines log is one Envelope.
package record

import "encoding/json"

// Kind identifies the payload of an Envelope.
type Kind string

const (
	KindSession Kind = "session"
	KindStep    Kind = "step"
	KindTrigger Kind = "trigger"
)

// Envelope wraps one record with its position in the log.
type Envelope struct {
	Kind      Kind            `json:"kind"`
	Seq       uint64          `json:"seq"`
	SessionID string          `json:"session_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Session phases.
const (
	SessionStart = "start"
	SessionEnd   = "end"
)

// SessionRecord marks the start and end of a session.
type SessionRecord struct {
	Phase      string `json:"phase"`
	Experiment string `json:"experiment"`
	Driver     string `json:"driver"`
	Port       string `json:"port,omitempty"`
	// WallTime is RFC 3339 with nanoseconds; only for orientation, all
	// other times are monotonic offsets.
	WallTime string `json:"wall_time"`
	Error    string `json:"error,omitempty"`
}

// StepRecord is one step lifecycle event. Times are microseconds since the
// session clock started.
type StepRecord struct {
	Path    string  `json:"path"`
	Event   string  `json:"event"`
	AtUS    int64   `json:"at_us"`
	Index   *int64  `json:"index,omitempty"`
	Indices []int64 `json:"indices,omitempty"`
}

// TriggerRecord is one completed trigger cycle: the intended onset next to
// the instants the lines were actually set and cleared.
type TriggerRecord struct {
	Mask      uint8  `json:"mask"`
	FireAtUS  int64  `json:"fire_at_us"`
	StartUS   int64  `json:"start_us"`
	FinishUS  int64  `json:"finish_us"`
	HoldUS    int64  `json:"hold_us"`
	LatencyUS int64  `json:"latency_us"`
	Error     string `json:"error,omitempty"`
}

// NewEnvelope creates an Envelope with the given kind and payload.
func NewEnvelope(kind Kind, sessionID string, seq uint64, payload any) (*Envelope, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		var err error
		payloadBytes, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return &Envelope{
		Kind:      kind,
		Seq:       seq,
		SessionID: sessionID,
		Payload:   payloadBytes,
	}, nil
}

// ParsePayload unmarshals the envelope payload into v.
func (e *Envelope) ParsePayload(v any) error {
	if e.Payload == nil {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}
