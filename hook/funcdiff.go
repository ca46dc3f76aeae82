package hook

import (
	"errors"
	"fmt"
	"reflect"
)

type funcDifferences struct {
	In       []*argDifference
	Out      []*argDifference
	Variadic bool
}

func (d *funcDifferences) Error() error {
	errs := []error{}
	for i, arg := range d.In {
		if arg != nil {
			errs = append(errs, fmt.Errorf("argument %d: %v != %v", i, arg.A, arg.B))
		}
	}
	for i, out := range d.Out {
		if out != nil {
			errs = append(errs, fmt.Errorf("output %d: %v != %v", i, out.A, out.B))
		}
	}
	if d.Variadic {
		errs = append(errs, errors.New("only one function is variadic"))
	}

	return errors.Join(errs...)
}

type argDifference struct {
	A reflect.Type
	B reflect.Type
}

func diffFuncs(at, bt reflect.Type) *funcDifferences {
	return &funcDifferences{
		In:       diffArgs(at.NumIn(), bt.NumIn(), at.In, bt.In),
		Out:      diffArgs(at.NumOut(), bt.NumOut(), at.Out, bt.Out),
		Variadic: at.IsVariadic() != bt.IsVariadic(),
	}
}

// diffArgs compares two argument lists position by position. A missing
// argument is reported as a nil type.
func diffArgs(na, nb int, a, b func(int) reflect.Type) []*argDifference {
	diff := make([]*argDifference, max(na, nb))
	for i := range diff {
		var ta, tb reflect.Type
		if i < na {
			ta = a(i)
		}
		if i < nb {
			tb = b(i)
		}
		if ta != tb {
			diff[i] = &argDifference{A: ta, B: tb}
		}
	}
	return diff
}
