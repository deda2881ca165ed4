package engine

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/hallaphys/ppar/detect"
	"github.com/hallaphys/ppar/outdef"
	"github.com/hallaphys/ppar/paramdb"
	"github.com/hallaphys/ppar/queue"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// Report summarizes one completed Run.
type Report struct {
	EventsRead    int
	EventsWritten int
	EventsFailed  int
}

// OpenInputError wraps a failure to open cfg.InputFile, distinct from
// other Run errors so callers (cmd/ppar) can map it to its own exit
// code (spec.md §6).
type OpenInputError struct {
	Path string
	Err  error
}

func (e *OpenInputError) Error() string {
	return xerrors.Errorf("engine: opening input %q: %w", e.Path, e.Err).Error()
}

func (e *OpenInputError) Unwrap() error { return e.Err }

// Run executes one full pass over cfg.InputFile: it loads the
// parameter database and output-definition file, builds a context
// pool sized to exactly cfg.NumThreads (spec.md §4.2), and drives
// reader -> workers -> [sequencer] -> writer to completion.
func Run(cfg Config, detectors []detect.Config, log *zap.SugaredLogger) (Report, error) {
	cfg.DefaultNames()

	if log != nil {
		// A per-run id so concurrent ppar invocations sharing a log
		// sink can be told apart.
		log = log.With("run_id", uuid.New().String())
	}

	db, err := paramdb.Open(cfg.DBFile, log)
	if err != nil {
		return Report{}, xerrors.Errorf("engine: loading parameter database: %w", err)
	}
	detectors = applyParams(detectors, db)

	patterns, err := outdef.ParsePatterns(cfg.OdefFile)
	if err != nil {
		return Report{}, xerrors.Errorf("engine: loading output definitions: %w", err)
	}

	nthreads := cfg.NumThreads
	if nthreads < 1 {
		nthreads = 1
	}
	// spec.md §4.2: the orchestrator pre-allocates exactly N contexts,
	// N = worker count.
	pool, err := NewContextPool(nthreads, detectors, patterns)
	if err != nil {
		return Report{}, xerrors.Errorf("engine: building context pool: %w", err)
	}

	in, err := os.Open(cfg.InputFile)
	if err != nil {
		return Report{}, &OpenInputError{Path: cfg.InputFile, Err: err}
	}
	defer in.Close()

	out, err := os.Create(cfg.OutputFile)
	if err != nil {
		return Report{}, xerrors.Errorf("engine: creating output: %w", err)
	}
	defer out.Close()

	return run(cfg, pool, in, out, nthreads, log)
}

func run(cfg Config, pool *ContextPool, in io.Reader, out io.Writer, nthreads int, log *zap.SugaredLogger) (Report, error) {
	var barrier *SyncBarrier
	if cfg.OrderMode == OrderSync {
		barrier = NewSyncBarrier()
	}

	toWorkers := newWorkQueue()
	fromWorkers := newWorkQueue()

	reader := NewEventReader(in, pool, toWorkers, barrier, cfg.NumEventsMax, cfg.MarkStride, log)
	workers := NewWorkerPool(nthreads, toWorkers, fromWorkers).WithJitter(cfg.JitterMicros)

	var finalQueue *workQueue
	var sequencer *OrderingSequencer
	if cfg.OrderMode == OrderStrict || cfg.OrderMode == OrderSync {
		toWriter := newWorkQueue()
		sequencer = NewOrderingSequencer(fromWorkers, toWriter)
		finalQueue = toWriter
	} else {
		finalQueue = fromWorkers
	}

	writer := NewWriter(out, cfg.Gzip, finalQueue, pool, barrier, log)

	var readErr error
	var nread int
	done := make(chan struct{})
	go func() {
		nread, readErr = reader.Run()
		close(done)
	}()

	workersDone := make(chan struct{})
	go func() {
		workers.Run()
		close(workersDone)
	}()

	var seqDone chan struct{}
	if sequencer != nil {
		seqDone = make(chan struct{})
		go func() {
			sequencer.Run()
			close(seqDone)
		}()
	}

	writeErr := writer.Run()

	<-done
	<-workersDone
	if seqDone != nil {
		<-seqDone
	}

	report := Report{
		EventsRead:    nread,
		EventsWritten: writer.NumWritten,
		EventsFailed:  writer.NumFailed,
	}

	var result *multierror.Error
	if readErr != nil {
		result = multierror.Append(result, xerrors.Errorf("reader: %w", readErr))
	}
	if writeErr != nil {
		result = multierror.Append(result, xerrors.Errorf("writer: %w", writeErr))
	}
	return report, result.ErrorOrNil()
}

func newWorkQueue() *workQueue {
	return queue.New[*Context]()
}

// applyParams overrides each detector config's tunable fields from the
// parameter database, keyed by detector name (original_source/
// ppodd-tbb.cxx reads "<name>.scale" the same way at startup).
func applyParams(configs []detect.Config, db *paramdb.DB) []detect.Config {
	out := make([]detect.Config, len(configs))
	for i, cfg := range configs {
		if scale, ok := db.Get(cfg.Name, "scale"); ok {
			cfg.DigitScale = scale
		}
		out[i] = cfg
	}
	return out
}
