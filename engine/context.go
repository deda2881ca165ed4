package engine

import (
	"time"

	"github.com/hallaphys/ppar/decode"
	"github.com/hallaphys/ppar/detect"
	"github.com/hallaphys/ppar/outdef"
	"github.com/hallaphys/ppar/variable"
	"golang.org/x/xerrors"
)

// Context is a per-worker mutable state container: the event in
// flight, its decoded view, this worker's detector instances, and the
// derived output variables. Exactly one worker goroutine touches a
// Context at a time; Contexts are never aliased across workers
// (spec.md §3).
type Context struct {
	// EventNo is the logical event number assigned by the reader
	// (monotone from 1).
	EventNo uint64
	// Seq is the sequence number used for output ordering; equal to
	// EventNo in practice (spec.md §3).
	Seq uint64
	// ID is this context's stable diagnostic identifier, assigned at
	// construction.
	ID int

	// EvBuf is the raw event payload (everything after the outer
	// length word), owned exclusively by this Context while in
	// flight.
	EvBuf []byte

	table     decode.ModuleTable
	detectors []detect.Detector

	// variables is the full set of output variables every detector
	// defines, populated once at Init.
	variables []variable.Variable
	// OutVars is the ordered, odef-bound subset emitted per event; the
	// event number is always first (spec.md §6).
	OutVars []variable.Variable

	IsInit   bool
	IsActive bool

	// Failed marks that decode or analysis failed for the current
	// event; the worker still routes the Context onward so buffers
	// and contexts stay balanced (spec.md §4.4 error policy).
	Failed bool
	// FailErr records why, for diagnostics.
	FailErr error

	// TimeSpent accumulates this Context's analysis wall-time across
	// every event it has processed.
	TimeSpent time.Duration
}

// NewContext allocates an uninitialized Context with the given
// diagnostic id. Call Init before using it in the pipeline.
func NewContext(id int) *Context {
	return &Context{ID: id}
}

// Init constructs this Context's detectors from configs, collects
// their output variables, and binds the subset selected by patterns
// (spec.md §4.8, §6). Init must be called exactly once, before the
// Context enters the free-context queue.
func (c *Context) Init(configs []detect.Config, patterns []string) error {
	c.detectors = detect.BuildAll(configs)

	c.variables = c.variables[:0]
	for _, d := range c.detectors {
		c.variables = append(c.variables, d.DefineVariables()...)
	}

	bound, err := outdef.Bind(patterns, c.variables)
	if err != nil {
		return xerrors.Errorf("context %d: binding output variables: %w", c.ID, err)
	}
	if len(bound) == 0 {
		return xerrors.Errorf("context %d: no output variables matched by %v", c.ID, patterns)
	}

	c.OutVars = make([]variable.Variable, 0, len(bound)+1)
	c.OutVars = append(c.OutVars, &variable.EventNumberVar{Loc: &c.EventNo})
	c.OutVars = append(c.OutVars, bound...)

	c.IsInit = true
	return nil
}

// Reset loads a fresh event buffer and event number into this Context
// and clears its failure state. It does not touch detector scratch
// state: Analyze clears that at entry (not at exit), matching spec.md
// §3's invariant: "A Context returned to the free pool has detectors'
// per-event state cleared on next reuse (cleared at entry, not exit)."
func (c *Context) Reset(eventNo uint64, evbuf []byte) {
	c.EventNo = eventNo
	c.Seq = eventNo
	c.EvBuf = evbuf
	c.Failed = false
	c.FailErr = nil
}

// Analyze decodes the current event buffer and runs every detector's
// Clear -> Decode -> Analyze chain in order (spec.md §4.4). A failure
// anywhere marks the Context failed and stops the chain; the caller is
// still responsible for routing the Context onward.
func (c *Context) Analyze() {
	for _, d := range c.detectors {
		d.Clear()
	}

	if err := decode.Decode(c.EvBuf, &c.table); err != nil {
		c.Failed = true
		c.FailErr = xerrors.Errorf("decode error at event %d: %w", c.EventNo, err)
		return
	}

	for _, d := range c.detectors {
		if err := d.Decode(&c.table); err != nil {
			c.Failed = true
			c.FailErr = xerrors.Errorf("analyze error at event %d: %w", c.EventNo, err)
			return
		}
		if err := d.Analyze(); err != nil {
			c.Failed = true
			c.FailErr = xerrors.Errorf("analyze error at event %d: %w", c.EventNo, err)
			return
		}
	}
}

// IsSyncEvent reports whether the currently loaded event carries the
// sync-event flag (spec.md §4.7). Valid only after a successful
// Analyze call in the same event.
func (c *Context) IsSyncEvent() bool {
	return c.table.IsSync()
}
