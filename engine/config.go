// Package engine implements the core parallel execution pipeline:
// reader -> worker pool -> optional sequencer -> writer, the
// context-recycling allocator discipline, and the sync-event barrier.
// This is the package spec.md calls out as the interesting ~60% of
// the system; everything else in this module is a collaborator it
// drives.
package engine

import (
	"path/filepath"
	"strings"
)

// OrderMode selects how the writer receives completed contexts.
type OrderMode int

const (
	// OrderNone emits results in completion order (spec.md §4.5/§5:
	// "without ordering mode").
	OrderNone OrderMode = iota
	// OrderStrict reorders results by iseq before they reach the
	// writer (spec.md §4.5, the -e strict flag).
	OrderStrict
	// OrderSync drains in-flight work before and after each sync event
	// (spec.md §4.7, the -e sync flag). Results also pass through the
	// same reorder buffer as OrderStrict, so output is in iseq order
	// throughout, not only around sync events.
	OrderSync
)

// Config is threaded from the CLI, through the Orchestrator, into
// every worker. It replaces the original prototype's file-scope
// mutable globals (spec.md §9 redesign flag).
type Config struct {
	InputFile  string
	OdefFile   string
	OutputFile string
	DBFile     string

	NumThreads   int
	NumEventsMax int // 0 means unlimited
	OrderMode    OrderMode
	Gzip         bool
	JitterMicros int
	MarkStride   int
	DebugLevel   int
}

// DefaultNames fills in OdefFile, OutputFile and DBFile from
// InputFile's basename when they are unset, matching
// original_source/ppodd-tbb.cxx's Config::default_names.
func (c *Config) DefaultNames() {
	if c.InputFile == "" {
		return
	}
	if c.OdefFile != "" && c.OutputFile != "" && c.DBFile != "" {
		return
	}
	base := filepath.Base(c.InputFile)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if c.OdefFile == "" {
		c.OdefFile = base + ".odef"
	}
	if c.OutputFile == "" {
		c.OutputFile = base + ".out"
	}
	if c.DBFile == "" {
		c.DBFile = base + ".db"
	}
}
