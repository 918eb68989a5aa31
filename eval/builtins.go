package eval

import (
	"math"
	"strings"

	"github.com/teranos/kalc/formula"
)

// registerBuiltins installs the built-in function table. Names are
// registered uppercase; lookup is case-insensitive.
func registerBuiltins(e *Engine) {
	e.RegisterFunction("SUM", fnSum)
	e.RegisterFunction("AVERAGE", fnAverage)
	e.RegisterFunction("COUNT", fnCount)
	e.RegisterFunction("COUNTA", fnCountA)
	e.RegisterFunction("MIN", fnMin)
	e.RegisterFunction("MAX", fnMax)
	e.RegisterFunction("IF", fnIf)
	e.RegisterFunction("ABS", fnAbs)
	e.RegisterFunction("ROUND", fnRound)
	e.RegisterFunction("SQRT", fnSqrt)
	e.RegisterFunction("CONCATENATE", fnConcatenate)
	e.RegisterFunction("LEN", fnLen)
	e.RegisterFunction("UPPER", fnUpper)
	e.RegisterFunction("LOWER", fnLower)
	e.RegisterFunction("NA", fnNA)
}

// numericInputs collects the numeric view of an argument list for the
// pure-number reducers. Direct scalars coerce like operators do (null=0,
// bool=1/0, string is a mismatch); range-expanded values are filtered to
// well-typed numbers, so stray text or errors inside a range are skipped
// rather than poisoning the aggregate.
func numericInputs(args []Arg) ([]float64, formula.Value) {
	var nums []float64
	for _, arg := range args {
		if arg.FromRange {
			if arg.Value.IsNumber() {
				nums = append(nums, arg.Value.Num())
			}
			continue
		}
		if arg.Value.IsNull() {
			continue
		}
		f, ok := asNumber(arg.Value)
		if !ok {
			return nil, formula.ErrorValue(formula.ErrValue)
		}
		nums = append(nums, f)
	}
	return nums, formula.Value{}
}

func fnSum(args []Arg) formula.Value {
	nums, errV := numericInputs(args)
	if errV.IsError() {
		return errV
	}
	total := 0.0
	for _, f := range nums {
		total += f
	}
	return formula.Number(total)
}

func fnAverage(args []Arg) formula.Value {
	nums, errV := numericInputs(args)
	if errV.IsError() {
		return errV
	}
	if len(nums) == 0 {
		return formula.ErrorValue(formula.ErrDiv0)
	}
	total := 0.0
	for _, f := range nums {
		total += f
	}
	return formula.Number(total / float64(len(nums)))
}

// fnCount counts the numeric view of its arguments: direct scalars coerce
// like operators do (booleans as 1/0, null skipped), range-expanded values
// count only when they are well-typed numbers.
func fnCount(args []Arg) formula.Value {
	count := 0
	for _, arg := range args {
		if arg.FromRange {
			if arg.Value.IsNumber() {
				count++
			}
			continue
		}
		if arg.Value.IsNull() {
			continue
		}
		if _, ok := asNumber(arg.Value); ok {
			count++
		}
	}
	return formula.Number(float64(count))
}

func fnCountA(args []Arg) formula.Value {
	count := 0
	for _, arg := range args {
		if !arg.Value.IsNull() {
			count++
		}
	}
	return formula.Number(float64(count))
}

func fnMin(args []Arg) formula.Value {
	nums, errV := numericInputs(args)
	if errV.IsError() {
		return errV
	}
	if len(nums) == 0 {
		return formula.Number(0)
	}
	min := nums[0]
	for _, f := range nums[1:] {
		if f < min {
			min = f
		}
	}
	return formula.Number(min)
}

func fnMax(args []Arg) formula.Value {
	nums, errV := numericInputs(args)
	if errV.IsError() {
		return errV
	}
	if len(nums) == 0 {
		return formula.Number(0)
	}
	max := nums[0]
	for _, f := range nums[1:] {
		if f > max {
			max = f
		}
	}
	return formula.Number(max)
}

// fnIf selects between two branches on a truthy condition: booleans as
// themselves, numbers by non-zero, null as false. Text conditions are a
// type mismatch. The else branch defaults to FALSE when omitted.
func fnIf(args []Arg) formula.Value {
	if len(args) < 2 || len(args) > 3 {
		return formula.ErrorValue(formula.ErrNA)
	}
	cond := args[0].Value
	var truthy bool
	switch cond.Kind() {
	case formula.KindBool:
		truthy = cond.Bool()
	case formula.KindNumber:
		truthy = cond.Num() != 0
	case formula.KindNull:
		truthy = false
	default:
		return formula.ErrorValue(formula.ErrValue)
	}
	if truthy {
		return args[1].Value
	}
	if len(args) == 3 {
		return args[2].Value
	}
	return formula.Boolean(false)
}

func fnAbs(args []Arg) formula.Value {
	f, errV := singleNumber(args)
	if errV.IsError() {
		return errV
	}
	return formula.Number(math.Abs(f))
}

func fnRound(args []Arg) formula.Value {
	if len(args) < 1 || len(args) > 2 {
		return formula.ErrorValue(formula.ErrNA)
	}
	f, ok := asNumber(args[0].Value)
	if !ok {
		return formula.ErrorValue(formula.ErrValue)
	}
	digits := 0.0
	if len(args) == 2 {
		d, ok := asNumber(args[1].Value)
		if !ok {
			return formula.ErrorValue(formula.ErrValue)
		}
		digits = math.Trunc(d)
	}
	scale := math.Pow(10, digits)
	return formula.Number(math.Round(f*scale) / scale)
}

func fnSqrt(args []Arg) formula.Value {
	f, errV := singleNumber(args)
	if errV.IsError() {
		return errV
	}
	if f < 0 {
		return formula.ErrorValue(formula.ErrNum)
	}
	return formula.Number(math.Sqrt(f))
}

func fnConcatenate(args []Arg) formula.Value {
	var sb strings.Builder
	for _, arg := range args {
		sb.WriteString(arg.Value.Format())
	}
	return formula.Str(sb.String())
}

func fnLen(args []Arg) formula.Value {
	if len(args) != 1 {
		return formula.ErrorValue(formula.ErrNA)
	}
	text := args[0].Value.Format()
	return formula.Number(float64(len([]rune(text))))
}

func fnUpper(args []Arg) formula.Value {
	if len(args) != 1 {
		return formula.ErrorValue(formula.ErrNA)
	}
	return formula.Str(strings.ToUpper(args[0].Value.Format()))
}

func fnLower(args []Arg) formula.Value {
	if len(args) != 1 {
		return formula.ErrorValue(formula.ErrNA)
	}
	return formula.Str(strings.ToLower(args[0].Value.Format()))
}

func fnNA(args []Arg) formula.Value {
	return formula.ErrorValue(formula.ErrNA)
}

func singleNumber(args []Arg) (float64, formula.Value) {
	if len(args) != 1 {
		return 0, formula.ErrorValue(formula.ErrNA)
	}
	f, ok := asNumber(args[0].Value)
	if !ok {
		return 0, formula.ErrorValue(formula.ErrValue)
	}
	return f, formula.Value{}
}
