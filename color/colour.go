package color

import (
	"fmt"
	"math"
	"sync"

	"github.com/medview/medview/dataset"
	"github.com/medview/medview/elem"
	"github.com/medview/medview/geom"
	"github.com/medview/medview/mat"
	"github.com/medview/medview/parallel"
)

// ValueFunc reduces the components of one field sample to a scalar.
type ValueFunc func(comps []float64) float64

// UnitFunc reshapes a clamped unit value before the spectrum lookup.
type UnitFunc func(t float64) float64

var (
	valueFuncMu sync.RWMutex
	valueFuncs  = map[string]ValueFunc{
		"identity":  func(c []float64) float64 { return c[0] },
		"magnitude": magnitude,
		"x":         component(0),
		"y":         component(1),
		"z":         component(2),
		"mean":      mean,
	}

	unitFuncs = map[string]UnitFunc{
		"linear":    func(t float64) float64 { return t },
		"one-minus": func(t float64) float64 { return 1 - t },
		"step":      stepUnit,
		"cubic":     cubicUnit,
	}
)

func magnitude(c []float64) float64 {
	sum := 0.0
	for _, v := range c {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func component(i int) ValueFunc {
	return func(c []float64) float64 {
		if i >= len(c) {
			return 0
		}
		return c[i]
	}
}

func mean(c []float64) float64 {
	if len(c) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range c {
		sum += v
	}
	return sum / float64(len(c))
}

func stepUnit(t float64) float64 {
	if t < 0.5 {
		return 0
	}
	return 1
}

// cubicUnit is the smooth Hermite ramp 3t^2 - 2t^3.
func cubicUnit(t float64) float64 {
	return t * t * (3 - 2*t)
}

// RegisterValueFunc adds or replaces a named user value function.
func RegisterValueFunc(name string, fn ValueFunc) {
	valueFuncMu.Lock()
	defer valueFuncMu.Unlock()
	valueFuncs[name] = fn
}

// ValueFuncByName looks up a built-in or registered value function.
func ValueFuncByName(name string) (ValueFunc, error) {
	valueFuncMu.RLock()
	defer valueFuncMu.RUnlock()
	fn, ok := valueFuncs[name]
	if !ok {
		return nil, fmt.Errorf("color: unknown value function %q", name)
	}
	return fn, nil
}

// UnitFuncByName looks up one of the built-in unit functions.
func UnitFuncByName(name string) (UnitFunc, error) {
	fn, ok := unitFuncs[name]
	if !ok {
		return nil, fmt.Errorf("color: unknown unit function %q", name)
	}
	return fn, nil
}

// Params configures one colouring run.
type Params struct {
	// Value reduces field components to a scalar; nil means identity.
	Value ValueFunc
	// Unit reshapes the normalised value; nil means linear.
	Unit UnitFunc
	// Min and Max span the field range mapped onto [0, 1]. Equal values
	// map everything to 0.
	Min, Max float64
	// Material supplies the spectrum and the GPU-lookup flag.
	Material *Material
	Procs    int
	Task     parallel.Task
}

// ColourNodes interpolates the named field at every refined node and maps
// it through the material's spectrum. nodeElem and nodeXi are the per-node
// parent element and local coordinate recorded by the refiner; indexName is
// the geometry topology they refer to. Non-finite samples colour black with
// zero alpha.
func ColourNodes(ds *dataset.DataSet, fieldName, indexName string,
	nodeElem []int32, nodeXi []geom.Vec, p Params) (*mat.ColMatrix, error) {

	field, ok := ds.Field(fieldName)
	if !ok {
		return nil, fmt.Errorf("color: no field %q in dataset %q", fieldName, ds.Name)
	}
	perElem := field.Meta(mat.MetaPerElem) == "true"

	// The field may interpolate over its own topology rather than the
	// geometry's.
	topoName := field.Meta(mat.MetaTopology)
	if topoName == "" {
		topoName = indexName
	}
	topo, ok := ds.Index(topoName)
	if !ok {
		return nil, dataset.ErrFieldTopologyMissing
	}
	et, err := elem.Get(topo.ElemType())
	if err != nil {
		return nil, err
	}

	if p.Value == nil {
		p.Value = valueFuncs["identity"]
	}
	if p.Unit == nil {
		p.Unit = unitFuncs["linear"]
	}
	spec := p.Material.ActiveSpectrum()
	gpuLookup := p.Material != nil && p.Material.SpectrumOnGPU &&
		p.Material.FragmentProgram != ""

	cols := mat.NewCol("node colours", len(nodeElem), 1)
	span := p.Max - p.Min

	results := parallel.RunRanged(len(nodeElem), p.Procs, p.Task,
		func(worker int, rows parallel.Range) error {
			comps := make([]float64, field.Cols())
			basis := make([]float64, et.NumNodes())
			for i := rows.Start; i < rows.End; i++ {
				if p.Task != nil && p.Task.Cancelled() {
					return parallel.ErrCancelled
				}
				ei := int(nodeElem[i])

				var sampleErr error
				if perElem {
					sampleErr = sampleRow(field, ei, comps)
				} else {
					sampleErr = sampleNodal(field, topo, et, ei, nodeXi[i],
						basis, comps)
				}
				if sampleErr != nil {
					return sampleErr
				}

				v := p.Value(comps)
				if math.IsNaN(v) || math.IsInf(v, 0) {
					cols.Set(i, 0, mat.Col{0, 0, 0, 0})
					continue
				}

				t := 0.0
				if span != 0 {
					t = (v - p.Min) / span
				}
				if t < 0 {
					t = 0
				} else if t > 1 {
					t = 1
				}
				t = p.Unit(t)

				if gpuLookup {
					cols.Set(i, 0, mat.Col{float32(t), 0, 0, 1})
				} else {
					cols.Set(i, 0, spec.At(t))
				}
			}
			return nil
		})
	if err := parallel.CheckResultMap(results); err != nil {
		return nil, err
	}
	return cols, nil
}

func sampleRow(field *mat.RealMatrix, row int, comps []float64) error {
	vals, err := field.Row(row)
	if err != nil {
		return err
	}
	copy(comps, vals)
	return nil
}

func sampleNodal(field *mat.RealMatrix, topo *mat.IndexMatrix, et elem.Type,
	ei int, xi geom.Vec, basis, comps []float64) error {

	nodes, err := topo.Row(ei)
	if err != nil {
		return err
	}
	et.Basis(float64(xi[0]), float64(xi[1]), float64(xi[2]), basis)

	for c := range comps {
		comps[c] = 0
	}
	for j, n := range nodes {
		row, err := field.Row(int(n))
		if err != nil {
			return err
		}
		for c := range comps {
			comps[c] += basis[j] * row[c]
		}
	}
	return nil
}
