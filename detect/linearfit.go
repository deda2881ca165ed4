package detect

import (
	"github.com/hallaphys/ppar/decode"
	"github.com/hallaphys/ppar/variable"
	"golang.org/x/xerrors"
)

// LinearFit treats its bound module's data as interleaved (x, y) pairs
// and performs an ordinary least-squares fit when at least 3 pairs are
// present. Grounded on original_source/DetectorTypeB.cxx.
type LinearFit struct {
	name     string
	moduleID int

	data []float64

	slope, inter       float64
	cov11, cov22, cov12 float64
	ndof, chi2         float64
}

func (d *LinearFit) Clear() {
	d.data = nil
	d.ndof = 0
	d.slope, d.inter = 1e38, 1e38
	d.cov11, d.cov22, d.cov12 = 1e38, 1e38, 1e38
	d.chi2 = 1e38
}

func (d *LinearFit) Decode(tbl *decode.ModuleTable) error {
	m := tbl.Module(d.moduleID)
	if m == nil {
		d.data = nil
		return nil
	}
	d.data = m.Data
	if len(d.data)%2 != 0 {
		return xerrors.Errorf("%s: data size %d is not an even number of (x,y) pairs", d.name, len(d.data))
	}
	return nil
}

func (d *LinearFit) Analyze() error {
	n := len(d.data) / 2
	if n < 3 {
		return nil
	}
	var s11, s12, s22, g1, g2 float64
	for i := 0; i < n; i++ {
		x, y := d.data[2*i], d.data[2*i+1]
		s11 += 1.0
		s12 += x
		s22 += x * x
		g1 += y
		g2 += x * y
	}
	det := 1.0 / (s11*s22 - s12*s12)
	d.inter = (g1*s22 - g2*s12) * det
	d.slope = (g2*s11 - g1*s12) * det
	d.cov11 = s11 * det
	d.cov22 = s22 * det
	d.cov12 = -s12 * det

	var chi2 float64
	for i := 0; i < n; i++ {
		x, y := d.data[2*i], d.data[2*i+1]
		r := y - (d.inter + d.slope*x)
		chi2 += r * r
	}
	d.chi2 = chi2
	d.ndof = float64(n) - 2.0
	return nil
}

func (d *LinearFit) DefineVariables() []variable.Variable {
	return []variable.Variable{
		&variable.Float64Var{VarName: d.name + ".slope", Loc: &d.slope},
		&variable.Float64Var{VarName: d.name + ".inter", Loc: &d.inter},
		&variable.Float64Var{VarName: d.name + ".cov11", Loc: &d.cov11},
		&variable.Float64Var{VarName: d.name + ".cov22", Loc: &d.cov22},
		&variable.Float64Var{VarName: d.name + ".cov12", Loc: &d.cov12},
		&variable.Float64Var{VarName: d.name + ".ndof", Loc: &d.ndof},
		&variable.Float64Var{VarName: d.name + ".chi2", Loc: &d.chi2},
	}
}
