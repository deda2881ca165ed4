package detect

import (
	"math"

	"github.com/hallaphys/ppar/decode"
	"github.com/hallaphys/ppar/variable"
)

// Stats computes basic statistics (count, sum, min, max, arithmetic
// and geometric mean) over its bound module's raw data.
// Grounded on original_source/DetectorTypeA.cxx.
type Stats struct {
	name     string
	moduleID int

	data []float64

	nval float64
	sum  float64
	min  float64
	max  float64
	mean float64
	geom float64
}

func (d *Stats) Clear() {
	d.data = nil
	d.nval = 0
	d.sum, d.mean, d.geom = 0, 0, 0
	d.min = math.MaxFloat64
	d.max = -math.MaxFloat64
}

func (d *Stats) Decode(tbl *decode.ModuleTable) error {
	m := tbl.Module(d.moduleID)
	if m == nil {
		d.data = nil
		return nil
	}
	d.data = m.Data
	d.nval = float64(len(d.data))
	return nil
}

func (d *Stats) Analyze() error {
	if len(d.data) == 0 {
		return nil
	}
	var geomLog float64
	for _, x := range d.data {
		d.sum += x
		if x < d.min {
			d.min = x
		}
		if x > d.max {
			d.max = x
		}
		geomLog += math.Log(math.Abs(x))
	}
	n := float64(len(d.data))
	d.mean = d.sum / n
	d.geom = math.Exp(geomLog / n)
	return nil
}

func (d *Stats) DefineVariables() []variable.Variable {
	return []variable.Variable{
		&variable.Float64Var{VarName: d.name + ".nval", Loc: &d.nval},
		&variable.Float64Var{VarName: d.name + ".sum", Loc: &d.sum},
		&variable.Float64Var{VarName: d.name + ".min", Loc: &d.min},
		&variable.Float64Var{VarName: d.name + ".max", Loc: &d.max},
		&variable.Float64Var{VarName: d.name + ".mean", Loc: &d.mean},
		&variable.Float64Var{VarName: d.name + ".geom", Loc: &d.geom},
	}
}
