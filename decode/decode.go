// Package decode parses one raw event buffer, as read by the engine's
// reader, into a lookup table of per-module raw data.
package decode

import (
	"encoding/binary"
	"math"

	"golang.org/x/xerrors"
)

const (
	// EventHeaderSize is the size in bytes of the fixed event header:
	// total length (u32) + event info (u32).
	EventHeaderSize = 8

	// ModuleHeaderSize is the size in bytes of the fixed module header:
	// module length (u32) + module id (u16) + ndata (u16).
	ModuleHeaderSize = 8

	// MaxModules bounds the module id space; a decoded module id must
	// fall within [1, MaxModules].
	MaxModules = 64

	// SyncEventBit is bit 16 of the event-info word: when set, the
	// event is a synchronization barrier event (spec.md §4.7).
	SyncEventBit = 1 << 16
)

// Module is one module record's header plus its raw float64 payload.
type Module struct {
	ID   uint16
	Data []float64
}

// ModuleTable is the decoded view of one event: a lookup from module
// id to its raw data, plus the event-level metadata carried in the
// header.
type ModuleTable struct {
	EventInfo uint32
	modules   [MaxModules]*Module
}

// NModules returns the module count the event header declares (the
// low 16 bits of event_info).
func (t *ModuleTable) NModules() int { return int(t.EventInfo & 0xFFFF) }

// IsSync reports whether the event carries the sync-event flag.
func (t *ModuleTable) IsSync() bool { return t.EventInfo&SyncEventBit != 0 }

// Module returns the module with the given 1-based id, or nil if the
// event did not carry that module.
func (t *ModuleTable) Module(id int) *Module {
	if id < 1 || id > MaxModules {
		return nil
	}
	return t.modules[id-1]
}

// reset clears the table for reuse, so repeated Decode calls into the
// same *ModuleTable don't leak stale module pointers from a prior
// event (mirrors Decoder::Clear in original_source/Decoder.cxx).
func (t *ModuleTable) reset() {
	for i := range t.modules {
		t.modules[i] = nil
	}
	t.EventInfo = 0
}

// Decode parses buf, which must be exactly the event payload that
// follows the outer event-length word (i.e. it starts at the event
// info field), into tbl. tbl is reset first so it may be reused across
// events.
func Decode(buf []byte, tbl *ModuleTable) error {
	tbl.reset()

	if len(buf) < EventHeaderSize-4 {
		return xerrors.Errorf("decode: buffer too short for event header: %d bytes", len(buf))
	}
	tbl.EventInfo = binary.LittleEndian.Uint32(buf[0:4])

	nmod := tbl.NModules()
	offset := 4
	for i := 0; i < nmod; i++ {
		if offset+ModuleHeaderSize > len(buf) {
			return xerrors.Errorf("decode: truncated module header at module %d", i)
		}
		modLen := binary.LittleEndian.Uint32(buf[offset : offset+4])
		modID := binary.LittleEndian.Uint16(buf[offset+4 : offset+6])
		ndata := binary.LittleEndian.Uint16(buf[offset+6 : offset+8])

		if modLen < ModuleHeaderSize {
			return xerrors.Errorf("decode: module %d declares impossible length %d", i, modLen)
		}
		if offset+int(modLen) > len(buf) {
			return xerrors.Errorf("decode: module %d overruns event buffer", i)
		}
		if modID < 1 || int(modID) > MaxModules {
			return xerrors.Errorf("decode: module id %d out of range", modID)
		}

		dataStart := offset + ModuleHeaderSize
		dataEnd := offset + int(modLen)
		wantBytes := int(ndata) * 8
		if dataEnd-dataStart < wantBytes {
			return xerrors.Errorf("decode: module %d declares %d values but only has %d bytes", modID, ndata, dataEnd-dataStart)
		}

		data := make([]float64, ndata)
		for j := 0; j < int(ndata); j++ {
			bits := binary.LittleEndian.Uint64(buf[dataStart+8*j : dataStart+8*j+8])
			data[j] = math.Float64frombits(bits)
		}

		tbl.modules[modID-1] = &Module{ID: modID, Data: data}
		offset += int(modLen)
	}

	return nil
}
