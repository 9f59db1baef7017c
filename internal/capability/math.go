package capability

import (
	"math"

	"github.com/roach88/stepwise/internal/value"
)

func mathModule() *value.Module {
	unary := func(name string, f func(float64) float64) value.Member {
		return fn(name, func(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
			var x float64
			if err := value.UnpackArgs(name, args, kwargs, param("x", &x)); err != nil {
				return nil, err
			}
			return checkFloat(f(x), x)
		})
	}
	predicate := func(name string, f func(float64) bool) value.Member {
		return fn(name, func(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
			var x float64
			if err := value.UnpackArgs(name, args, kwargs, param("x", &x)); err != nil {
				return nil, err
			}
			return value.Bool(f(x)), nil
		})
	}
	return value.NewModule("math", []value.Member{
		{Name: "pi", Value: value.Float(math.Pi)},
		{Name: "e", Value: value.Float(math.E)},
		{Name: "tau", Value: value.Float(2 * math.Pi)},
		{Name: "inf", Value: value.Float(math.Inf(1))},
		{Name: "nan", Value: value.Float(math.NaN())},

		unary("sqrt", math.Sqrt),
		unary("exp", math.Exp),
		unary("log2", math.Log2),
		unary("log10", math.Log10),
		unary("fabs", math.Abs),
		unary("sin", math.Sin),
		unary("cos", math.Cos),
		unary("tan", math.Tan),
		unary("asin", math.Asin),
		unary("acos", math.Acos),
		unary("atan", math.Atan),
		unary("sinh", math.Sinh),
		unary("cosh", math.Cosh),
		unary("tanh", math.Tanh),
		unary("degrees", func(x float64) float64 { return x * 180 / math.Pi }),
		unary("radians", func(x float64) float64 { return x * math.Pi / 180 }),
		predicate("isfinite", func(x float64) bool { return !math.IsInf(x, 0) && !math.IsNaN(x) }),
		predicate("isinf", func(x float64) bool { return math.IsInf(x, 0) }),
		predicate("isnan", math.IsNaN),

		fn("floor", integral("floor", math.Floor)),
		fn("ceil", integral("ceil", math.Ceil)),
		fn("trunc", integral("trunc", math.Trunc)),
		fn("log", mathLog),
		fn("pow", binaryFloat("pow", math.Pow)),
		fn("atan2", binaryFloat("atan2", math.Atan2)),
		fn("copysign", binaryFloat("copysign", math.Copysign)),
		fn("fmod", binaryFloat("fmod", math.Mod)),
		fn("hypot", mathHypot),
		fn("isclose", mathIsclose),
		fn("factorial", mathFactorial),
		fn("gcd", mathGcd),
		fn("lcm", mathLcm),
		fn("isqrt", mathIsqrt),
		fn("comb", mathComb),
		fn("perm", mathPerm),
		fn("prod", mathProd),
		fn("fsum", mathFsum),
	})
}

func fn(name string, f value.BuiltinFunc) value.Member {
	return value.Member{Name: name, Value: value.NewBuiltin(name, f)}
}

func domainError() error { return value.Errorf(value.ValueError, "math domain error") }

// checkFloat maps a NaN result from a finite argument to a domain error
// and an infinite one to a range error.
func checkFloat(r, x float64) (value.Value, error) {
	switch {
	case math.IsNaN(r) && !math.IsNaN(x):
		return nil, domainError()
	case math.IsInf(r, 0) && !math.IsInf(x, 0):
		if r < 0 && x == 0 {
			return nil, domainError()
		}
		return nil, value.Errorf(value.OverflowError, "math range error")
	}
	return value.Float(r), nil
}

func integral(name string, f func(float64) float64) value.BuiltinFunc {
	return func(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
		var x value.Value
		if err := value.UnpackArgs(name, args, kwargs, param("x", &x)); err != nil {
			return nil, err
		}
		switch v := x.(type) {
		case value.Int, value.Bool:
			n, _ := value.AsInt(v)
			return value.Int(n), nil
		}
		fx, err := value.AsFloat(x)
		if err != nil {
			return nil, err
		}
		return value.FloatToInt(f(fx))
	}
}

func binaryFloat(name string, f func(x, y float64) float64) value.BuiltinFunc {
	return func(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
		var x, y float64
		if err := value.UnpackArgs(name, args, kwargs, param("x", &x), param("y", &y)); err != nil {
			return nil, err
		}
		r := f(x, y)
		if math.IsNaN(r) && !math.IsNaN(x) && !math.IsNaN(y) {
			return nil, domainError()
		}
		if math.IsInf(r, 0) && !math.IsInf(x, 0) && !math.IsInf(y, 0) {
			return nil, value.Errorf(value.OverflowError, "math range error")
		}
		return value.Float(r), nil
	}
}

func mathLog(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	var x float64
	var base value.Value
	if err := value.UnpackArgs("log", args, kwargs, param("x", &x), param("base?", &base)); err != nil {
		return nil, err
	}
	if x <= 0 {
		return nil, domainError()
	}
	if value.IsNone(base) {
		return value.Float(math.Log(x)), nil
	}
	b, err := value.AsFloat(base)
	if err != nil {
		return nil, err
	}
	if b <= 0 {
		return nil, domainError()
	}
	if b == 1 {
		return nil, value.Errorf(value.ZeroDivisionError, "float division by zero")
	}
	return value.Float(math.Log(x) / math.Log(b)), nil
}

func mathHypot(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	if err := value.NoKwargs("hypot", kwargs); err != nil {
		return nil, err
	}
	var sum float64
	for _, a := range args {
		f, err := value.AsFloat(a)
		if err != nil {
			return nil, err
		}
		sum = math.Hypot(sum, f)
	}
	return value.Float(sum), nil
}

func mathIsclose(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	var a, b float64
	relTol, absTol := 1e-9, 0.0
	if err := value.UnpackArgs("isclose", args, kwargs, param("a", &a), param("b", &b), param("rel_tol?", &relTol), param("abs_tol?", &absTol)); err != nil {
		return nil, err
	}
	if relTol < 0 || absTol < 0 {
		return nil, value.Errorf(value.ValueError, "tolerances must be non-negative")
	}
	if a == b {
		return value.True, nil
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return value.False, nil
	}
	diff := math.Abs(b - a)
	return value.Bool(diff <= math.Abs(relTol*b) || diff <= math.Abs(relTol*a) || diff <= absTol), nil
}

func intArg(v value.Value) (int64, error) {
	if _, ok := v.(value.Float); ok {
		return 0, value.Errorf(value.TypeError, "'float' object cannot be interpreted as an integer")
	}
	return value.AsInt(v)
}

func mathFactorial(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	x, err := oneArg("factorial", args, kwargs)
	if err != nil {
		return nil, err
	}
	n, err := intArg(x)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, value.Errorf(value.ValueError, "factorial() not defined for negative values")
	}
	var acc value.Value = value.Int(1)
	for i := int64(2); i <= n; i++ {
		if acc, err = value.Binary(nil, "*", acc, value.Int(i)); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func intArgs(fname string, args []value.Value, kwargs []value.Kwarg) ([]int64, error) {
	if err := value.NoKwargs(fname, kwargs); err != nil {
		return nil, err
	}
	out := make([]int64, len(args))
	for i, a := range args {
		n, err := intArg(a)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func mathGcd(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	ns, err := intArgs("gcd", args, kwargs)
	if err != nil {
		return nil, err
	}
	var g int64
	for _, n := range ns {
		g = gcd(g, n)
	}
	return value.Int(g), nil
}

func mathLcm(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	ns, err := intArgs("lcm", args, kwargs)
	if err != nil {
		return nil, err
	}
	var acc value.Value = value.Int(1)
	for _, n := range ns {
		a, _ := value.AsInt(acc)
		if a == 0 || n == 0 {
			acc = value.Int(0)
			continue
		}
		if acc, err = value.Binary(nil, "*", value.Int(a/gcd(a, n)), value.Int(n)); err != nil {
			return nil, err
		}
		if v, _ := value.AsInt(acc); v < 0 {
			acc = value.Int(-v)
		}
	}
	return acc, nil
}

func mathIsqrt(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	x, err := oneArg("isqrt", args, kwargs)
	if err != nil {
		return nil, err
	}
	n, err := intArg(x)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, value.Errorf(value.ValueError, "isqrt() argument must be nonnegative")
	}
	r := int64(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n && (r+1)*(r+1) > 0 {
		r++
	}
	return value.Int(r), nil
}

func combPermArgs(fname string, args []value.Value, kwargs []value.Kwarg, kOptional bool) (n, k int64, err error) {
	least := 2
	if kOptional {
		least = 1
	}
	if err := value.ArgCount(fname, args, least, 2); err != nil {
		return 0, 0, err
	}
	ns, err := intArgs(fname, args, kwargs)
	if err != nil {
		return 0, 0, err
	}
	n, k = ns[0], ns[0]
	if len(ns) == 2 {
		k = ns[1]
	}
	if n < 0 {
		return 0, 0, value.Errorf(value.ValueError, "n must be a non-negative integer")
	}
	if k < 0 {
		return 0, 0, value.Errorf(value.ValueError, "k must be a non-negative integer")
	}
	return n, k, nil
}

func mathComb(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	n, k, err := combPermArgs("comb", args, kwargs, false)
	if err != nil {
		return nil, err
	}
	if k > n {
		return value.Int(0), nil
	}
	if k > n-k {
		k = n - k
	}
	var acc value.Value = value.Int(1)
	for i := int64(1); i <= k; i++ {
		if acc, err = value.Binary(nil, "*", acc, value.Int(n-k+i)); err != nil {
			return nil, err
		}
		if acc, err = value.Binary(nil, "//", acc, value.Int(i)); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func mathPerm(_ value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	n, k, err := combPermArgs("perm", args, kwargs, true)
	if err != nil {
		return nil, err
	}
	if k > n {
		return value.Int(0), nil
	}
	var acc value.Value = value.Int(1)
	for i := n - k + 1; i <= n; i++ {
		if acc, err = value.Binary(nil, "*", acc, value.Int(i)); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func mathProd(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	var iterable value.Value
	var acc value.Value = value.Int(1)
	if err := value.UnpackArgs("prod", args, kwargs, param("iterable", &iterable), param("start?", &acc)); err != nil {
		return nil, err
	}
	elems, err := value.Collect(th, iterable)
	if err != nil {
		return nil, err
	}
	for _, e := range elems {
		if acc, err = value.Binary(th, "*", acc, e); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// mathFsum uses Neumaier compensated summation.
func mathFsum(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	x, err := oneArg("fsum", args, kwargs)
	if err != nil {
		return nil, err
	}
	elems, err := value.Collect(th, x)
	if err != nil {
		return nil, err
	}
	fs := make([]float64, len(elems))
	for i, e := range elems {
		if fs[i], err = value.AsFloat(e); err != nil {
			return nil, err
		}
	}
	return value.Float(neumaierSum(fs)), nil
}
