package engine

import (
	"bytes"
	"encoding/binary"

	"github.com/hallaphys/ppar/detect"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(OrchestratorTestSuite))

type OrchestratorTestSuite struct{}

// buildRecord prepends the outer self-inclusive length word to a raw
// event payload built by buildEvent.
func buildRecord(eventInfo uint32, mods map[uint16][]float64) []byte {
	payload := buildEvent(eventInfo, mods)
	rec := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(rec[0:4], uint32(4+len(payload)))
	copy(rec[4:], payload)
	return rec
}

func parseHeader(buf []byte) (names []string, widths []int, consumed int) {
	nvars := int(binary.LittleEndian.Uint32(buf[0:4]))
	pos := 4
	typeCodes := buf[pos : pos+nvars]
	pos += nvars
	for _, tc := range typeCodes {
		widths = append(widths, int(tc&0x1F))
	}
	for i := 0; i < nvars; i++ {
		start := pos
		for buf[pos] != 0 {
			pos++
		}
		names = append(names, string(buf[start:pos]))
		pos++
	}
	return names, widths, pos
}

func (s *OrchestratorTestSuite) TestRunOrderNoneWritesAllEvents(c *gc.C) {
	var input bytes.Buffer
	for i := 1; i <= 10; i++ {
		input.Write(buildRecord(1, map[uint16][]float64{1: {float64(i)}}))
	}

	cfg := Config{NumThreads: 4, OrderMode: OrderNone}
	pool, err := NewContextPool(cfg.NumThreads, statsConfigs(), []string{"detA.*"})
	c.Assert(err, gc.IsNil)

	var out bytes.Buffer
	report, err := run(cfg, pool, &input, &out, cfg.NumThreads, nil)
	c.Assert(err, gc.IsNil)
	c.Assert(report.EventsRead, gc.Equals, 10)
	c.Assert(report.EventsWritten, gc.Equals, 10)
	c.Assert(report.EventsFailed, gc.Equals, 0)
}

func (s *OrchestratorTestSuite) TestRunOrderStrictPreservesEventOrder(c *gc.C) {
	var input bytes.Buffer
	const n = 25
	for i := 1; i <= n; i++ {
		input.Write(buildRecord(1, map[uint16][]float64{1: {float64(i)}}))
	}

	cfg := Config{NumThreads: 6, OrderMode: OrderStrict}
	pool, err := NewContextPool(cfg.NumThreads, statsConfigs(), []string{"detA.*"})
	c.Assert(err, gc.IsNil)

	var out bytes.Buffer
	report, err := run(cfg, pool, &input, &out, cfg.NumThreads, nil)
	c.Assert(err, gc.IsNil)
	c.Assert(report.EventsWritten, gc.Equals, n)

	buf := out.Bytes()
	_, widths, pos := parseHeader(buf)
	recSize := 0
	for _, w := range widths {
		recSize += w
	}

	for i := 0; i < n; i++ {
		evno := int32(binary.LittleEndian.Uint32(buf[pos : pos+4]))
		c.Assert(int(evno), gc.Equals, i+1)
		pos += recSize
	}
}

func (s *OrchestratorTestSuite) TestRunRespectsNumEventsMax(c *gc.C) {
	var input bytes.Buffer
	for i := 1; i <= 20; i++ {
		input.Write(buildRecord(1, map[uint16][]float64{1: {float64(i)}}))
	}

	cfg := Config{NumThreads: 2, OrderMode: OrderNone, NumEventsMax: 5}
	pool, err := NewContextPool(cfg.NumThreads, statsConfigs(), []string{"detA.*"})
	c.Assert(err, gc.IsNil)

	var out bytes.Buffer
	report, err := run(cfg, pool, &input, &out, cfg.NumThreads, nil)
	c.Assert(err, gc.IsNil)
	c.Assert(report.EventsRead, gc.Equals, 5)
}

func (s *OrchestratorTestSuite) TestRunOrderSyncCompletesAroundBarrier(c *gc.C) {
	var input bytes.Buffer
	for i := 1; i <= 5; i++ {
		input.Write(buildRecord(1, map[uint16][]float64{1: {float64(i)}}))
	}
	input.Write(buildRecord(1|(1<<16), map[uint16][]float64{1: {99}}))
	for i := 6; i <= 10; i++ {
		input.Write(buildRecord(1, map[uint16][]float64{1: {float64(i)}}))
	}

	cfg := Config{NumThreads: 4, OrderMode: OrderSync}
	pool, err := NewContextPool(cfg.NumThreads, statsConfigs(), []string{"detA.*"})
	c.Assert(err, gc.IsNil)

	var out bytes.Buffer
	report, err := run(cfg, pool, &input, &out, cfg.NumThreads, nil)
	c.Assert(err, gc.IsNil)
	c.Assert(report.EventsWritten, gc.Equals, 11)
}
