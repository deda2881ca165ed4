package engine

import (
	"bufio"
	"compress/gzip"
	"io"

	"github.com/hallaphys/ppar/variable"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// Writer is the pipeline's single consumer: it takes completed
// Contexts off the final queue, writes their bound output variables in
// the wire format spec.md §6 defines, and returns each Context to the
// free pool. Exactly one goroutine runs a Writer, so no locking is
// needed around the output stream itself (spec.md §4.6).
type Writer struct {
	raw io.Writer
	gz  *gzip.Writer
	w   *bufio.Writer

	in      *workQueue
	pool    *ContextPool
	barrier *SyncBarrier

	log *zap.SugaredLogger

	headerWritten bool
	NumWritten    int
	NumFailed     int
}

// NewWriter builds a Writer over raw. If gzip is true, output passes
// through a gzip.Writer first (spec.md §6, the -z flag). barrier may
// be nil; pass one only for OrderSync mode, matching the reader that
// feeds the same pipeline run.
func NewWriter(raw io.Writer, gzipOutput bool, in *workQueue, pool *ContextPool, barrier *SyncBarrier, log *zap.SugaredLogger) *Writer {
	w := &Writer{raw: raw, in: in, pool: pool, barrier: barrier, log: log}
	if gzipOutput {
		w.gz = gzip.NewWriter(raw)
		w.w = bufio.NewWriter(w.gz)
	} else {
		w.w = bufio.NewWriter(raw)
	}
	return w
}

// Run drains in until it closes, writing the output header on the
// first Context seen and one record per successfully analyzed
// Context thereafter. Run flushes and closes any gzip wrapper before
// returning.
func (wr *Writer) Run() error {
	defer func() {
		if wr.pool != nil {
			wr.pool.Close()
		}
	}()

	for {
		ctx, ok := wr.in.WaitAndPop()
		if !ok {
			break
		}

		if err := wr.writeOne(ctx); err != nil {
			return err
		}

		wr.pool.Release(ctx)
		if wr.barrier != nil {
			wr.barrier.Leave()
		}
	}

	if err := wr.w.Flush(); err != nil {
		return xerrors.Errorf("writer: flush: %w", err)
	}
	if wr.gz != nil {
		if err := wr.gz.Close(); err != nil {
			return xerrors.Errorf("writer: closing gzip stream: %w", err)
		}
	}
	return nil
}

func (wr *Writer) writeOne(ctx *Context) error {
	if !wr.headerWritten {
		if err := variable.WriteHeader(wr.w, ctx.OutVars); err != nil {
			return xerrors.Errorf("writer: writing header: %w", err)
		}
		wr.headerWritten = true
	}

	if ctx.Failed {
		wr.NumFailed++
		if wr.log != nil {
			wr.log.Warnf("writer: skipping event %d: %v", ctx.EventNo, ctx.FailErr)
		}
		return nil
	}

	if err := variable.WriteRecord(wr.w, ctx.OutVars); err != nil {
		return xerrors.Errorf("writer: writing event %d: %w", ctx.EventNo, err)
	}
	wr.NumWritten++
	return nil
}
