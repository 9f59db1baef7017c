package capability

import (
	"github.com/roach88/stepwise/internal/value"
)

// randomModule draws from the execution's seeded generator, so a trace
// replays exactly when the recorded seed is reused.
func randomModule() *value.Module {
	return value.NewModule("random", []value.Member{
		fn("seed", randomSeed),
		fn("random", randomRandom),
		fn("uniform", randomUniform),
		fn("gauss", randomGauss),
		fn("randint", randomRandint),
		fn("randrange", randomRandrange),
		fn("choice", randomChoice),
		fn("choices", randomChoices),
		fn("shuffle", randomShuffle),
		fn("sample", randomSample),
	})
}

func randomSeed(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	var a value.Value = value.None
	if err := value.UnpackArgs("seed", args, kwargs, param("a?", &a)); err != nil {
		return nil, err
	}
	var seed int64
	switch v := a.(type) {
	case value.NoneType:
		seed = th.Rand().Int63()
	case value.Int, value.Bool:
		seed, _ = value.AsInt(v)
	default:
		h, err := value.Hash(v)
		if err != nil {
			return nil, err
		}
		seed = int64(h)
	}
	th.Rand().Seed(seed)
	return value.None, nil
}

func randomRandom(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	if err := value.UnpackArgs("random", args, kwargs); err != nil {
		return nil, err
	}
	return value.Float(th.Rand().Float64()), nil
}

func randomUniform(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	var a, b float64
	if err := value.UnpackArgs("uniform", args, kwargs, param("a", &a), param("b", &b)); err != nil {
		return nil, err
	}
	return value.Float(a + (b-a)*th.Rand().Float64()), nil
}

func randomGauss(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	mu, sigma := 0.0, 1.0
	if err := value.UnpackArgs("gauss", args, kwargs, param("mu?", &mu), param("sigma?", &sigma)); err != nil {
		return nil, err
	}
	return value.Float(mu + sigma*th.Rand().NormFloat64()), nil
}

// randrange returns a uniformly chosen element of range(start, stop, step).
func randrange(th value.Thread, start, stop, step int64) (value.Value, error) {
	if step == 0 {
		return nil, value.Errorf(value.ValueError, "zero step for randrange()")
	}
	n := value.Range{Start: start, Stop: stop, Step: step}.Len()
	if n <= 0 {
		if step == 1 {
			return nil, value.Errorf(value.ValueError, "empty range in randrange(%d, %d)", start, stop)
		}
		return nil, value.Errorf(value.ValueError, "empty range in randrange(%d, %d, %d)", start, stop, step)
	}
	return value.Int(start + step*th.Rand().Int63n(n)), nil
}

func randomRandint(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	var a, b int64
	if err := value.UnpackArgs("randint", args, kwargs, param("a", &a), param("b", &b)); err != nil {
		return nil, err
	}
	if b < a {
		return nil, value.Errorf(value.ValueError, "empty range in randrange(%d, %d)", a, b+1)
	}
	return randrange(th, a, b+1, 1)
}

func randomRandrange(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	var start int64
	var stop value.Value = value.None
	step := int64(1)
	if err := value.UnpackArgs("randrange", args, kwargs, param("start", &start), param("stop?", &stop), param("step?", &step)); err != nil {
		return nil, err
	}
	if value.IsNone(stop) {
		return randrange(th, 0, start, 1)
	}
	hi, err := value.AsInt(stop)
	if err != nil {
		return nil, err
	}
	return randrange(th, start, hi, step)
}

func randomChoice(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	seq, err := oneArg("choice", args, kwargs)
	if err != nil {
		return nil, err
	}
	n, err := value.Len(seq)
	if err != nil {
		return nil, err
	}
	if _, ok := seq.(*value.Set); ok {
		return nil, value.Errorf(value.TypeError, "'set' object is not subscriptable")
	}
	if n == 0 {
		return nil, value.Errorf(value.IndexError, "Cannot choose from an empty sequence")
	}
	return value.GetItem(th, seq, value.Int(th.Rand().Intn(n)))
}

func randomChoices(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	var population value.Value
	var weights value.Value = value.None
	k := int64(1)
	if err := value.UnpackArgs("choices", args, kwargs, param("population", &population), param("weights?", &weights), param("k?", &k)); err != nil {
		return nil, err
	}
	pop, err := value.Collect(th, population)
	if err != nil {
		return nil, err
	}
	if len(pop) == 0 {
		return nil, value.Errorf(value.IndexError, "Cannot choose from an empty population")
	}
	if k > value.MaxContainerLen {
		return nil, value.Errorf(value.MemoryError, "container exceeds %d elements", value.MaxContainerLen)
	}
	var cum []float64
	if !value.IsNone(weights) {
		ws, err := value.Collect(th, weights)
		if err != nil {
			return nil, err
		}
		if len(ws) != len(pop) {
			return nil, value.Errorf(value.ValueError, "The number of weights does not match the population")
		}
		total := 0.0
		for _, w := range ws {
			f, err := value.AsFloat(w)
			if err != nil {
				return nil, err
			}
			total += f
			cum = append(cum, total)
		}
		if total <= 0 {
			return nil, value.Errorf(value.ValueError, "Total of weights must be greater than zero")
		}
	}
	out := make([]value.Value, 0, max(k, 0))
	for i := int64(0); i < k; i++ {
		if cum == nil {
			out = append(out, pop[th.Rand().Intn(len(pop))])
			continue
		}
		x := th.Rand().Float64() * cum[len(cum)-1]
		j := 0
		for j < len(cum)-1 && cum[j] <= x {
			j++
		}
		out = append(out, pop[j])
	}
	return value.NewList(out), nil
}

func randomShuffle(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	x, err := oneArg("shuffle", args, kwargs)
	if err != nil {
		return nil, err
	}
	l, ok := x.(*value.List)
	if !ok {
		return nil, value.Errorf(value.TypeError, "'%s' object does not support item assignment", value.TypeName(x))
	}
	th.Rand().Shuffle(len(l.Elems), func(i, j int) {
		l.Elems[i], l.Elems[j] = l.Elems[j], l.Elems[i]
	})
	return value.None, nil
}

func randomSample(th value.Thread, _ value.Value, args []value.Value, kwargs []value.Kwarg) (value.Value, error) {
	var population value.Value
	var k int
	if err := value.UnpackArgs("sample", args, kwargs, param("population", &population), param("k", &k)); err != nil {
		return nil, err
	}
	if _, ok := population.(*value.Set); ok {
		return nil, value.Errorf(value.TypeError, "Population must be a sequence.  For dicts or sets, use sorted(d).")
	}
	pool, err := value.Collect(th, population)
	if err != nil {
		return nil, err
	}
	if k < 0 || k > len(pool) {
		return nil, value.Errorf(value.ValueError, "Sample larger than population or is negative")
	}
	for i := 0; i < k; i++ {
		j := i + th.Rand().Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return value.NewList(pool[:k]), nil
}
