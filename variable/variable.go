// Package variable implements the analysis-result bindings ("global
// variables") that detectors expose and the engine's writer emits, per
// the binary output format in spec.md §6.
package variable

import (
	"encoding/binary"
	"io"
	"math"

	"golang.org/x/xerrors"
)

// Kind is the high-3-bit type category of an output variable's type
// code.
type Kind byte

const (
	KindInt Kind = iota
	KindUint
	KindFloat
	KindString
)

// TypeCode packs kind into the high 3 bits and byteWidth into the low
// 5 bits of a single byte, per spec.md §6's header format.
func TypeCode(kind Kind, byteWidth int) byte {
	return byte(kind)<<5 | byte(byteWidth&0x1F)
}

// Variable is a named, typed, extractable scalar result. Detectors
// produce Variables at Init time (spec.md §3: "variables: a mapping
// from name -> pointer-to-value"); the output-definition binder
// selects an ordered subset into a Context's outvars.
type Variable interface {
	Name() string
	TypeCode() byte
	// WriteValue appends this variable's current value, little-endian,
	// to w.
	WriteValue(w io.Writer) error
}

// Float64Var binds a name to a live *float64 inside a detector's
// scratch state. The pointer must stay valid for the lifetime of the
// owning Context; its value is read fresh on every WriteValue call, so
// no copying is needed between Analyze and the writer (the spec's
// "value-extractor" binding, spec.md §3).
type Float64Var struct {
	VarName string
	Loc     *float64
}

func (v *Float64Var) Name() string     { return v.VarName }
func (v *Float64Var) TypeCode() byte   { return TypeCode(KindFloat, 8) }
func (v *Float64Var) WriteValue(w io.Writer) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(*v.Loc))
	_, err := w.Write(buf[:])
	return err
}

// EventNumberVar is always the first output variable bound in a
// Context (spec.md §6: "The first output variable is always the event
// number (signed integer, 4 bytes)").
type EventNumberVar struct {
	Loc *uint64
}

func (v *EventNumberVar) Name() string   { return "event_no" }
func (v *EventNumberVar) TypeCode() byte { return TypeCode(KindInt, 4) }
func (v *EventNumberVar) WriteValue(w io.Writer) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(*v.Loc))
	_, err := w.Write(buf[:])
	return err
}

// WriteHeader writes the output file header: nvars, then one type
// code per variable, then each variable's null-terminated name, per
// spec.md §6.
func WriteHeader(w io.Writer, vars []Variable) error {
	var nbuf [4]byte
	binary.LittleEndian.PutUint32(nbuf[:], uint32(len(vars)))
	if _, err := w.Write(nbuf[:]); err != nil {
		return xerrors.Errorf("write header nvars: %w", err)
	}
	for _, v := range vars {
		if _, err := w.Write([]byte{v.TypeCode()}); err != nil {
			return xerrors.Errorf("write header type code for %q: %w", v.Name(), err)
		}
	}
	for _, v := range vars {
		if _, err := io.WriteString(w, v.Name()); err != nil {
			return xerrors.Errorf("write header name %q: %w", v.Name(), err)
		}
		if _, err := w.Write([]byte{0}); err != nil {
			return xerrors.Errorf("write header name terminator for %q: %w", v.Name(), err)
		}
	}
	return nil
}

// WriteRecord writes one per-event record: each variable's value, in
// declaration order, little-endian.
func WriteRecord(w io.Writer, vars []Variable) error {
	for _, v := range vars {
		if err := v.WriteValue(w); err != nil {
			return xerrors.Errorf("write value for %q: %w", v.Name(), err)
		}
	}
	return nil
}
