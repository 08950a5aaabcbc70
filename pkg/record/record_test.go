package record_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/psykit/pkg/record"
)

func TestNewEnvelope_AllKinds(t *testing.T) {
	idx := int64(3)
	tests := []struct {
		name    string
		kind    record.Kind
		payload any
	}{
		{name: "Session", kind: record.KindSession, payload: record.SessionRecord{Phase: record.SessionStart, Experiment: "demo", Driver: "memory"}},
		{name: "Step", kind: record.KindStep, payload: record.StepRecord{Path: "exp/block/trial", Event: "activate", AtUS: 5000, Index: &idx}},
		{name: "Trigger", kind: record.KindTrigger, payload: record.TriggerRecord{Mask: 0xFF, FireAtUS: 5000, StartUS: 5012, FinishUS: 6015, HoldUS: 1000, LatencyUS: 12}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := record.NewEnvelope(tt.kind, "sess-1", 7, tt.payload)

			require.NoError(t, err)
			assert.Equal(t, tt.kind, env.Kind)
			assert.Equal(t, uint64(7), env.Seq)
			assert.Equal(t, "sess-1", env.SessionID)
			assert.NotNil(t, env.Payload)
		})
	}
}

func TestNewEnvelope_NilPayload(t *testing.T) {
	env, err := record.NewEnvelope(record.KindSession, "sess-1", 0, nil)

	require.NoError(t, err)
	assert.Nil(t, env.Payload)

	var target record.SessionRecord
	require.NoError(t, env.ParsePayload(&target))
	assert.Empty(t, target.Phase)
}

func TestEnvelopeWireFormat(t *testing.T) {
	env, err := record.NewEnvelope(record.KindTrigger, "abc", 1, record.TriggerRecord{
		Mask: 1, FireAtUS: 10, StartUS: 11, FinishUS: 1011, HoldUS: 1000, LatencyUS: 1,
	})
	require.NoError(t, err)

	b, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"kind": "trigger", "seq": 1, "session_id": "abc",
		"payload": {"mask": 1, "fire_at_us": 10, "start_us": 11, "finish_us": 1011, "hold_us": 1000, "latency_us": 1}
	}`, string(b))

	var decoded record.Envelope
	require.NoError(t, json.Unmarshal(b, &decoded))
	var tr record.TriggerRecord
	require.NoError(t, decoded.ParsePayload(&tr))
	assert.Equal(t, int64(1), tr.LatencyUS)
}

func TestStepRecordOmitsEmptyIndex(t *testing.T) {
	b, err := json.Marshal(record.StepRecord{Path: "exp", Event: "enter", AtUS: 0})
	require.NoError(t, err)
	assert.JSONEq(t, `{"path": "exp", "event": "enter", "at_us": 0}`, string(b))
}
