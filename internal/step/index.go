package step

import (
	"fmt"

	"github.com/aelexs/psykit/internal/domain"
)

// LoopIndex returns the index of the nth loop enclosing s, counting s itself
// if it is a Loop. nth 0 is the innermost loop.
func LoopIndex(s Step, nth int) (int64, error) {
	seen := 0
	for cur := s; cur != nil; cur = cur.Parent() {
		l, ok := cur.(*Loop)
		if !ok {
			continue
		}
		if seen == nth {
			return l.Index(), nil
		}
		seen++
	}
	return 0, fmt.Errorf("loop %d around %q (found %d): %w", nth, s.Name(), seen, domain.ErrNoSuchLoop)
}

// LoopIndices returns the indices of all loops enclosing s, outermost first.
func LoopIndices(s Step) []int64 {
	var indices []int64
	for cur := s; cur != nil; cur = cur.Parent() {
		if l, ok := cur.(*Loop); ok {
			indices = append(indices, l.Index())
		}
	}
	for i, j := 0, len(indices)-1; i < j; i, j = i+1, j-1 {
		indices[i], indices[j] = indices[j], indices[i]
	}
	return indices
}

// Path returns the names from the root down to s, joined by "/".
func Path(s Step) string {
	if p := s.Parent(); p != nil {
		return Path(p) + "/" + s.Name()
	}
	return s.Name()
}

// Walk calls fn for s and every step below it, parents before children.
// Children created later by a Loop child factory are not visited.
func Walk(s Step, fn func(Step)) {
	fn(s)
	switch v := s.(type) {
	case *Loop:
		if c := v.Child(); c != nil {
			Walk(c, fn)
		}
	case *SteppingStones:
		for _, c := range v.steps {
			Walk(c, fn)
		}
	}
}
