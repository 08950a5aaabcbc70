package session

import (
	"fmt"
	"io"
)

// WriteReport prints a human readable latency summary.
func WriteReport(w io.Writer, title string, s LatencyStats) error {
	_, err := fmt.Fprintf(w,
		"%s\n  cycles:       %d (%d failed)\n  onset min:    %s\n  onset mean:   %s\n  onset max:    %s\n  held mean:    %s\n",
		title, s.Count, s.Failed, s.MinOnset, s.MeanOnset, s.MaxOnset, s.MeanHeld)
	return err
}
