package engine

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/hallaphys/ppar/decode"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// MaxEventSize bounds a single event record's declared total length
// (spec.md §4.3), so a corrupted or adversarial length word is
// rejected as a framing error instead of driving an unbounded
// allocation.
const MaxEventSize = 1024 * 4

// EventReader pulls length-prefixed event records from an input
// stream and hands each one, wrapped in a borrowed Context, to the
// worker pool. It is the pipeline's only producer of Contexts onto
// the work queue, and the only place event numbers are assigned
// (spec.md §4.3).
//
// When barrier is non-nil (OrderSync mode), the reader also peeks the
// sync-event bit straight out of the raw event-info word, without
// waiting for decode, so it can drain in-flight work around a sync
// event before dispatching past it (spec.md §4.7).
type EventReader struct {
	r    *bufio.Reader
	pool *ContextPool
	work *workQueue

	barrier *SyncBarrier

	nevMax     int
	nread      int
	markStride int

	log *zap.SugaredLogger
}

// NewEventReader builds a reader over r that draws free Contexts from
// pool and pushes loaded ones onto work. nevMax caps the number of
// events read; 0 means unlimited (spec.md §6, the -n flag). barrier
// may be nil; pass one only for OrderSync mode. markStride, if > 0,
// logs progress every markStride events (the -m flag).
func NewEventReader(r io.Reader, pool *ContextPool, work *workQueue, barrier *SyncBarrier, nevMax, markStride int, log *zap.SugaredLogger) *EventReader {
	return &EventReader{
		r:          bufio.NewReaderSize(r, 1<<20),
		pool:       pool,
		work:       work,
		barrier:    barrier,
		nevMax:     nevMax,
		markStride: markStride,
		log:        log,
	}
}

// Run reads events until EOF, the nevMax cap is reached, or a decode
// framing error occurs, then closes work to signal the worker pool
// that no further events are coming. Run returns the number of events
// read and the first framing error encountered, if any.
func (er *EventReader) Run() (int, error) {
	defer er.work.Close()

	var lenBuf [4]byte
	for {
		if er.nevMax > 0 && er.nread >= er.nevMax {
			return er.nread, nil
		}

		if _, err := io.ReadFull(er.r, lenBuf[:]); err != nil {
			if err == io.EOF {
				return er.nread, nil
			}
			return er.nread, xerrors.Errorf("reader: reading event length at event %d: %w", er.nread+1, err)
		}
		totalLen := binary.LittleEndian.Uint32(lenBuf[:])
		if totalLen < 8 || totalLen > MaxEventSize {
			return er.nread, xerrors.Errorf("reader: event %d declares out-of-range length %d (want 8..%d)", er.nread+1, totalLen, MaxEventSize)
		}

		payload := make([]byte, totalLen-4)
		if _, err := io.ReadFull(er.r, payload); err != nil {
			return er.nread, xerrors.Errorf("reader: reading event %d payload: %w", er.nread+1, err)
		}

		isSync := len(payload) >= 4 && binary.LittleEndian.Uint32(payload[0:4])&decode.SyncEventBit != 0

		if er.barrier != nil && isSync {
			// Drain every event dispatched so far before letting the
			// sync event itself into the pipeline.
			er.barrier.Wait()
		}

		ctx, ok := er.pool.Acquire()
		if !ok {
			return er.nread, nil
		}
		er.nread++
		ctx.Reset(uint64(er.nread), payload)

		if er.log != nil && er.markStride > 0 && er.nread%er.markStride == 0 {
			er.log.Infof("reader: loaded event %d", er.nread)
		}

		if er.barrier != nil {
			er.barrier.Enter()
		}
		er.work.Push(ctx)

		if er.barrier != nil && isSync {
			// And don't let anything past the sync event until it has
			// completed in turn.
			er.barrier.Wait()
		}
	}
}
