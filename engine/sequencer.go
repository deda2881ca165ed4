package engine

// OrderingSequencer reorders completed Contexts back into sequence
// order before they reach the writer. It backs both OrderStrict and
// OrderSync: OrderSync only requires strict ordering in the vicinity
// of a sync event, but a full reorder buffer trivially satisfies that
// weaker requirement, and the writer is single-consumer regardless
// (spec.md §4.6), so there is no correctness reason to special-case
// the gap between the two modes (see DESIGN.md, Open Question 3).
type OrderingSequencer struct {
	in, out *workQueue

	next    uint64
	pending map[uint64]*Context
}

// NewOrderingSequencer builds a sequencer reading completed Contexts
// from in and emitting them, in ascending Seq order starting at 1, to
// out.
func NewOrderingSequencer(in, out *workQueue) *OrderingSequencer {
	return &OrderingSequencer{
		in:      in,
		out:     out,
		next:    1,
		pending: make(map[uint64]*Context),
	}
}

// Run drains in, buffering out-of-order arrivals, until in is closed
// and every pending Context has been forwarded, then closes out.
func (s *OrderingSequencer) Run() {
	defer s.out.Close()
	for {
		ctx, ok := s.in.WaitAndPop()
		if !ok {
			s.flushRemaining()
			return
		}
		s.pending[ctx.Seq] = ctx
		for {
			ready, found := s.pending[s.next]
			if !found {
				break
			}
			delete(s.pending, s.next)
			s.out.Push(ready)
			s.next++
		}
	}
}

// flushRemaining emits whatever is left in pending once the input
// side has closed, in ascending seq order. The reader numbers the
// events it dispatches contiguously from 1 and every one of them
// reaches the sequencer, so pending is normally empty here; this only
// does work if some Context never arrived, leaving a gap that will
// never be filled.
func (s *OrderingSequencer) flushRemaining() {
	for len(s.pending) > 0 {
		ready, found := s.pending[s.next]
		if !found {
			// A gap exists that will never be filled; emit the lowest
			// remaining seq instead of stalling forever.
			var lowestSeq uint64
			first := true
			for seq := range s.pending {
				if first || seq < lowestSeq {
					lowestSeq = seq
					first = false
				}
			}
			s.next = lowestSeq
			continue
		}
		delete(s.pending, s.next)
		s.out.Push(ready)
		s.next++
	}
}
