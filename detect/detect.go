// Package detect implements the closed set of per-event analyzers
// ("detectors") that the engine runs against each decoded event.
// Per spec.md §9's redesign flag, this is a closed tagged-variant set
// rather than an open inheritance hierarchy: detectors are constructed
// directly into each worker Context from a shared []Config, and there
// is no Clone/prototype machinery.
package detect

import (
	"github.com/hallaphys/ppar/decode"
	"github.com/hallaphys/ppar/variable"
)

// Kind names the closed set of detector variants.
type Kind string

const (
	KindStats     Kind = "stats"
	KindLinearFit Kind = "linearfit"
	KindPiDigits  Kind = "pidigits"
)

// Config describes one detector to instantiate into every Context: its
// diagnostic name, its kind, and the module id it reads raw data from
// (original_source/ppodd-tbb.cxx binds each detector to a single
// module number at construction time).
type Config struct {
	Name     string
	Kind     Kind
	ModuleID int
	// DigitScale, used only by KindPiDigits, scales the raw input
	// value before it is interpreted as a digit count
	// (original_source/DetectorTypeC.cxx's m_scale).
	DigitScale float64
}

// Detector is the shared capability interface every kind implements.
type Detector interface {
	// Clear resets per-event scratch state; called once per event
	// before Decode, even on contexts pulled fresh from the free pool.
	Clear()
	// Decode extracts this detector's raw input from the event's
	// module table.
	Decode(tbl *decode.ModuleTable) error
	// Analyze computes this detector's derived results from the data
	// extracted by Decode.
	Analyze() error
	// DefineVariables returns this detector's output variable
	// bindings. Called once, at Context Init.
	DefineVariables() []variable.Variable
}

// New constructs a Detector instance from cfg. It never returns a
// shared/prototype object; each call produces independent scratch
// state, so a []Config cloned across N contexts yields N fully
// distinct Detector instances with no aliasing (spec.md §3 invariant).
func New(cfg Config) Detector {
	switch cfg.Kind {
	case KindStats:
		return &Stats{name: cfg.Name, moduleID: cfg.ModuleID}
	case KindLinearFit:
		return &LinearFit{name: cfg.Name, moduleID: cfg.ModuleID}
	case KindPiDigits:
		scale := cfg.DigitScale
		if scale == 0 {
			scale = 1.0
		}
		return &PiDigits{name: cfg.Name, moduleID: cfg.ModuleID, scale: scale}
	default:
		panic("detect: unknown detector kind " + string(cfg.Kind))
	}
}

// BuildAll constructs one Detector per entry in configs, in order.
func BuildAll(configs []Config) []Detector {
	dets := make([]Detector, len(configs))
	for i, cfg := range configs {
		dets[i] = New(cfg)
	}
	return dets
}
