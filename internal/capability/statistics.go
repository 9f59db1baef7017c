package capability

import (
	"math"
	"math/big"

	"github.com/roach88/stepwise/internal/value"
)

// StatisticsError is raised by the statistics module for empty or too
// small data sets. It derives from ValueError.
var StatisticsError = value.NewExceptionClass("StatisticsError", value.ValueError)

func statisticsModule() *value.Module {
	return value.NewModule("statistics", []value.Member{
		{Name: "StatisticsError", Value: StatisticsError},
		fn("mean", statsMean),
		fn("fmean", statsFmean),
		fn("geometric_mean", statsGeometricMean),
		fn("median", statsMedian("median")),
		fn("median_low", statsMedian("median_low")),
		fn("median_high", statsMedian("median_high")),
		fn("mode", statsMode),
		fn("multimode", statsMultimode),
		fn("variance", statsVariance("variance", 1)),
		fn("pvariance", statsVariance("pvariance", 0)),
		fn("stdev", statsStdev("stdev", 1)),
		fn("pstdev", statsStdev("pstdev", 0)),
	})
}

// dataset is a numeric sample. When every element is an int (or bool) the
// exact integers are kept alongside the float view so that results which
// are whole numbers come back as int.
type dataset struct {
	vals   []value.Value
	floats []float64
	ints   []int64
	allInt bool
}

func collectData(th value.Thread, fname string, args []value.Value, kwargs []value.Kwarg) (*dataset, error) {
	data, err := oneArg(fname, args, kwargs)
	if err != nil {
		return nil, err
	}
	vals, err := value.Collect(th, data)
	if err != nil {
		return nil, err
	}
	return newDataset(vals)
}

func newDataset(vals []value.Value) (*dataset, error) {
	ds := &dataset{vals: vals, allInt: true}
	for _, v := range vals {
		if !value.IsNumber(v) {
			return nil, value.Errorf(value.TypeError, "can't convert type '%s' to numerator/denominator", value.TypeName(v))
		}
		f, _ := value.AsFloat(v)
		ds.floats = append(ds.floats, f)
		if n, err := value.AsInt(v); err == nil && ds.allInt {
			ds.ints = append(ds.ints, n)
		} else {
			ds.allInt = false
		}
	}
	return ds, nil
}

// ratValue converts an exact result back to a script value: int when it
// is whole, float otherwise.
func ratValue(r *big.Rat) value.Value {
	if r.IsInt() && r.Num().IsInt64() {
		return value.Int(r.Num().Int64())
	}
	f, _ := r.Float64()
	return value.Float(f)
}

func (ds *dataset) exactMean() *big.Rat {
	sum := new(big.Rat)
	for _, n := range ds.ints {
		sum.Add(sum, new(big.Rat).SetInt64(n))
	}
	return sum.Quo(sum, new(big.Rat).SetInt64(int64(len(ds.ints))))
}

func (ds *dataset) floatMean() float64 {
	return neumaierSum(ds.floats) / float64(len(ds.floats))
}

func neumaierSum(xs []float64) float64 {
	var sum, c float64
	for _, x := range xs {
		t := sum + x
		if math.Abs(sum) >= math.Abs(x) {
			c += (sum - t) + x
		} else {
			c += (x - t) + sum
		}
		sum = t
	}
	return sum + c
}

func statsMean(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	ds, err := collectData(th, "mean", args, kwargs)
	if err != nil {
		return nil, err
	}
	if len(ds.vals) == 0 {
		return nil, value.Errorf(StatisticsError, "mean requires at least one data point")
	}
	if ds.allInt {
		return ratValue(ds.exactMean()), nil
	}
	return value.Float(ds.floatMean()), nil
}

func statsFmean(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	ds, err := collectData(th, "fmean", args, kwargs)
	if err != nil {
		return nil, err
	}
	if len(ds.vals) == 0 {
		return nil, value.Errorf(StatisticsError, "fmean requires at least one data point")
	}
	return value.Float(ds.floatMean()), nil
}

func statsGeometricMean(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	ds, err := collectData(th, "geometric_mean", args, kwargs)
	if err != nil {
		return nil, err
	}
	logs := make([]float64, len(ds.floats))
	for i, f := range ds.floats {
		if f <= 0 {
			return nil, value.Errorf(StatisticsError, "geometric mean requires a non-empty dataset containing positive numbers")
		}
		logs[i] = math.Log(f)
	}
	if len(logs) == 0 {
		return nil, value.Errorf(StatisticsError, "geometric mean requires a non-empty dataset containing positive numbers")
	}
	return value.Float(math.Exp(neumaierSum(logs) / float64(len(logs)))), nil
}

func statsMedian(name string) value.BuiltinFunc {
	return func(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
		ds, err := collectData(th, name, args, kwargs)
		if err != nil {
			return nil, err
		}
		n := len(ds.vals)
		if n == 0 {
			return nil, value.Errorf(StatisticsError, "no median for empty data")
		}
		sorted := append([]value.Value(nil), ds.vals...)
		if err := value.SortValues(th, sorted, nil, false); err != nil {
			return nil, err
		}
		switch {
		case n%2 == 1:
			return sorted[n/2], nil
		case name == "median_low":
			return sorted[n/2-1], nil
		case name == "median_high":
			return sorted[n/2], nil
		}
		sum, err := value.Binary(th, "+", sorted[n/2-1], sorted[n/2])
		if err != nil {
			return nil, err
		}
		return value.Binary(th, "/", sum, value.Int(2))
	}
}

// counts tallies hashable values, keeping first-seen order.
func counts(vals []value.Value) (*value.Dict, error) {
	d := value.NewDict()
	for _, v := range vals {
		prev, ok, err := d.Get(v)
		if err != nil {
			return nil, err
		}
		n := value.Int(1)
		if ok {
			n = prev.(value.Int) + 1
		}
		if err := d.Set(v, n); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func modes(th value.Thread, name string, args []value.Value, kwargs []value.Kwarg) ([]value.Value, error) {
	data, err := oneArg(name, args, kwargs)
	if err != nil {
		return nil, err
	}
	vals, err := value.Collect(th, data)
	if err != nil {
		return nil, err
	}
	d, err := counts(vals)
	if err != nil {
		return nil, err
	}
	var best value.Int
	var out []value.Value
	for i := 0; i < d.Len(); i++ {
		k, v := d.Entry(i)
		switch n := v.(value.Int); {
		case n > best:
			best, out = n, []value.Value{k}
		case n == best:
			out = append(out, k)
		}
	}
	return out, nil
}

func statsMode(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	out, err := modes(th, "mode", args, kwargs)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, value.Errorf(StatisticsError, "no mode for empty data")
	}
	return out[0], nil
}

func statsMultimode(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	out, err := modes(th, "multimode", args, kwargs)
	if err != nil {
		return nil, err
	}
	return value.NewList(out), nil
}

// variance computes the sum of squared deviations divided by n-ddof.
// Integer data is computed exactly.
func (ds *dataset) variance(ddof int) value.Value {
	n := len(ds.vals)
	if ds.allInt {
		mean := ds.exactMean()
		ss := new(big.Rat)
		for _, x := range ds.ints {
			d := new(big.Rat).Sub(new(big.Rat).SetInt64(x), mean)
			ss.Add(ss, d.Mul(d, d))
		}
		return ratValue(ss.Quo(ss, new(big.Rat).SetInt64(int64(n-ddof))))
	}
	mean := ds.floatMean()
	sq := make([]float64, n)
	for i, x := range ds.floats {
		sq[i] = (x - mean) * (x - mean)
	}
	return value.Float(neumaierSum(sq) / float64(n-ddof))
}

func varianceData(th value.Thread, name string, ddof int, args []value.Value, kwargs []value.Kwarg) (*dataset, error) {
	ds, err := collectData(th, name, args, kwargs)
	if err != nil {
		return nil, err
	}
	if len(ds.vals) < 1+ddof {
		if ddof == 1 {
			return nil, value.Errorf(StatisticsError, "%s requires at least two data points", name)
		}
		return nil, value.Errorf(StatisticsError, "%s requires at least one data point", name)
	}
	return ds, nil
}

func statsVariance(name string, ddof int) value.BuiltinFunc {
	return func(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
		ds, err := varianceData(th, name, ddof, args, kwargs)
		if err != nil {
			return nil, err
		}
		return ds.variance(ddof), nil
	}
}

func statsStdev(name string, ddof int) value.BuiltinFunc {
	return func(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
		ds, err := varianceData(th, name, ddof, args, kwargs)
		if err != nil {
			return nil, err
		}
		v, _ := value.AsFloat(ds.variance(ddof))
		return value.Float(math.Sqrt(v)), nil
	}
}
