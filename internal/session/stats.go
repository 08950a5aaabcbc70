package session

import (
	"github.com/aelexs/psykit/internal/timing"
	"github.com/aelexs/psykit/internal/trigger"
)

// LatencyStats summarises trigger completions.
type LatencyStats struct {
	Count  int
	Failed int
	// Onset latency (actual - requested) of successful cycles.
	MinOnset  timing.Duration
	MaxOnset  timing.Duration
	MeanOnset timing.Duration
	// Time the lines were actually held, for successful cycles.
	MeanHeld timing.Duration

	sumOnset timing.Duration
	sumHeld  timing.Duration
}

// Add accounts for one completion.
func (s *LatencyStats) Add(c trigger.Completion) {
	s.Count++
	if c.Err != nil {
		s.Failed++
		return
	}
	onset := c.OnsetLatency()
	ok := s.Count - s.Failed
	if ok == 1 || onset < s.MinOnset {
		s.MinOnset = onset
	}
	if ok == 1 || onset > s.MaxOnset {
		s.MaxOnset = onset
	}
	s.sumOnset += onset
	s.sumHeld += c.Held()
	s.MeanOnset = s.sumOnset.Div(int64(ok))
	s.MeanHeld = s.sumHeld.Div(int64(ok))
}
