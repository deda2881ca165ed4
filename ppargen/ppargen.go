// Package ppargen synthesizes event files in the same wire format the
// engine's decoder reads, for self-test and benchmarking use. Grounded
// on original_source/generate.cxx.
package ppargen

import (
	"encoding/binary"
	"io"
	"math"
	"math/rand"

	"golang.org/x/xerrors"
)

const (
	maxData    = 16
	maxModules = 8

	eventHeaderSize  = 8
	moduleHeaderSize = 8
)

// Config controls synthetic event generation.
type Config struct {
	NumEvents int
	NumDets   int // number of simulated detector modules per event, 1..maxModules

	// MarkStride, if > 0, sets the sync-event bit on every MarkStride'th
	// event (spec.md §4.7). 0 disables sync events entirely.
	MarkStride int

	Seed int64
}

// Generate writes cfg.NumEvents synthetic events to w and returns the
// count actually written.
func Generate(w io.Writer, cfg Config) (int, error) {
	if cfg.NumDets < 1 {
		cfg.NumDets = 1
	}
	if cfg.NumDets > maxModules {
		return 0, xerrors.Errorf("ppargen: too many detectors requested: %d (max %d)", cfg.NumDets, maxModules)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	for iev := 0; iev < cfg.NumEvents; iev++ {
		eventInfo := uint32(cfg.NumDets)
		if cfg.MarkStride > 0 && (iev+1)%cfg.MarkStride == 0 {
			eventInfo |= 1 << 16
		}

		buf := make([]byte, 4, 256)
		binary.LittleEndian.PutUint32(buf, eventInfo)

		for idet := 0; idet < cfg.NumDets; idet++ {
			data := moduleData(rng, idet)
			hdr := make([]byte, moduleHeaderSize)
			modLen := uint32(moduleHeaderSize + 8*len(data))
			binary.LittleEndian.PutUint32(hdr[0:4], modLen)
			binary.LittleEndian.PutUint16(hdr[4:6], uint16(idet+1))
			binary.LittleEndian.PutUint16(hdr[6:8], uint16(len(data)))
			buf = append(buf, hdr...)
			for _, v := range data {
				var b [8]byte
				binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
				buf = append(buf, b[:]...)
			}
		}

		totalLen := uint32(4 + len(buf))
		var lenWord [4]byte
		binary.LittleEndian.PutUint32(lenWord[:], totalLen)
		if _, err := w.Write(lenWord[:]); err != nil {
			return iev, xerrors.Errorf("ppargen: writing event %d length: %w", iev+1, err)
		}
		if _, err := w.Write(buf); err != nil {
			return iev, xerrors.Errorf("ppargen: writing event %d body: %w", iev+1, err)
		}
	}

	return cfg.NumEvents, nil
}

// moduleData fabricates one module's raw data, matching
// original_source/generate.cxx's per-slot shapes: module slot 0
// simulates a linear-fit detector's (x, y) pairs, slot 1 simulates a
// pi-digit detector's single precision word, and every other slot
// simulates generic statistics input.
func moduleData(rng *rand.Rand, idet int) []float64 {
	switch idet {
	case 0:
		n := int(5.*rng.Float64()) + 4
		slope := 2.0*rng.Float64() - 1.0
		inter := 2.0*rng.Float64() - 1.0
		data := make([]float64, 0, 2*n)
		for i := 0; i < n; i++ {
			x := float64(i) - 3.5 + rng.Float64()
			y1, _ := gauss(rng)
			y := y1/20. + inter + slope*x
			data = append(data, x, y)
		}
		return data
	case 1:
		precision := 0.0
		for precision < 1000. {
			precision = 10000. + 2000.*rng.Float64()
		}
		return []float64{precision}
	default:
		n := int(float64(maxData)*rng.Float64()) + 1
		data := make([]float64, n)
		for i := range data {
			data[i] = 20.0*rng.Float64() - 10.0
		}
		return data
	}
}

// gauss returns a pair of Gaussian-distributed random numbers via the
// polar Box-Muller method, matching original_source/generate.cxx's
// gauss().
func gauss(rng *rand.Rand) (float64, float64) {
	var x1, x2, w float64
	for {
		x1 = 2.0*rng.Float64() - 1.0
		x2 = 2.0*rng.Float64() - 1.0
		w = x1*x1 + x2*x2
		if w < 1.0 {
			break
		}
	}
	w = math.Sqrt(-2.0 * math.Log(w) / w)
	return x1 * w, x2 * w
}
