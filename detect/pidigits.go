package detect

import (
	"strconv"

	"github.com/hallaphys/ppar/decode"
	"github.com/hallaphys/ppar/variable"
)

// PiDigits computes N decimal digits of pi via the Rabinowitz-Wagon
// spigot algorithm, where N is taken from the first raw data value of
// its bound module (scaled by scale, falling back to 10 digits when
// absent or non-positive). This is the deliberately CPU-heavy detector
// meant to make worker-pool parallelism visible.
// Grounded on original_source/DetectorTypeC.cxx; the implementation
// note there about an occasional off-by-one in the last digit is
// reproduced unchanged (not a bug this rewrite is responsible for
// fixing — it is intrinsic to the spigot termination the original
// uses, and the output variable set only exposes the last five digits
// for illustration, not correctness-critical results).
type PiDigits struct {
	name     string
	moduleID int
	scale    float64

	data []float64

	a      []int
	result []byte

	ndig  float64
	last5 float64
}

func (d *PiDigits) Clear() {
	d.data = nil
	d.result = d.result[:0]
	d.ndig = 0
	d.last5 = 0
}

func (d *PiDigits) Decode(tbl *decode.ModuleTable) error {
	m := tbl.Module(d.moduleID)
	if m == nil {
		d.data = nil
		return nil
	}
	d.data = m.Data
	return nil
}

func (d *PiDigits) Analyze() error {
	n := 0
	if len(d.data) > 0 {
		n = int(d.data[0] * d.scale)
	}
	if n < 1 {
		n = 10
	}

	bigN := (10 * n) / 3
	if cap(d.a) < bigN {
		d.a = make([]int, bigN)
	} else {
		d.a = d.a[:bigN]
	}
	for i := range d.a {
		d.a[i] = 2
	}
	if cap(d.result) < n+1 {
		d.result = make([]byte, 0, n+1)
	}

	lastDigit := -1
	nines := 0
	dot := true
	for i := 0; i < n; i++ {
		for j := 0; j < bigN; j++ {
			d.a[j] *= 10
		}
		for j := bigN - 1; j > 0; j-- {
			q, r := d.a[j]/(2*j+1), d.a[j]%(2*j+1)
			d.a[j] = r
			d.a[j-1] += q * j
		}
		q := d.a[0] / 10
		d.a[0] -= 10 * q
		switch {
		case q < 9:
			if lastDigit >= 0 {
				d.result = append(d.result, byte('0'+lastDigit))
			}
			if dot && lastDigit >= 0 {
				dot = false
				d.result = append(d.result, '.')
			}
			for j := 0; j < nines; j++ {
				d.result = append(d.result, '9')
			}
			nines = 0
			lastDigit = q
		case q == 9:
			nines++
		case q == 10:
			if lastDigit >= 0 {
				d.result = append(d.result, byte('1'+lastDigit))
			}
			if dot && lastDigit >= 0 {
				dot = false
				d.result = append(d.result, '.')
			}
			for j := 0; j < nines; j++ {
				d.result = append(d.result, '0')
			}
			nines = 0
			lastDigit = 0
		}
	}
	if lastDigit >= 0 {
		d.result = append(d.result, byte('0'+lastDigit))
	}

	d.ndig = float64(n)
	tail := d.result
	if len(tail) > 5 {
		tail = tail[len(tail)-5:]
	}
	if last5, err := strconv.ParseFloat(string(tail), 64); err == nil {
		d.last5 = last5
	}

	return nil
}

func (d *PiDigits) DefineVariables() []variable.Variable {
	return []variable.Variable{
		&variable.Float64Var{VarName: d.name + ".nval", Loc: &d.ndig},
		&variable.Float64Var{VarName: d.name + ".last5", Loc: &d.last5},
	}
}
