package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/kalc/formula"
	"github.com/teranos/kalc/provider"
	"github.com/teranos/kalc/sheet"
)

func addr(ref string) sheet.Address {
	a, err := sheet.ParseAddress(ref)
	if err != nil {
		panic(err)
	}
	return a
}

// evalAt evaluates formulaText as the formula of a scratch cell against the
// grid.
func evalAt(e *Engine, grid *sheet.Grid, formulaText string) formula.Value {
	return e.Evaluate(formulaText, NewContext(grid, addr("Z99")))
}

func TestEvaluateScalars(t *testing.T) {
	e := NewEngine()
	grid := sheet.NewGrid()

	tests := []struct {
		name     string
		src      string
		expected formula.Value
	}{
		{"number", "=42", formula.Number(42)},
		{"string", `="hi"`, formula.Str("hi")},
		{"bool", "=TRUE", formula.Boolean(true)},
		{"arithmetic precedence", "=1+2*3", formula.Number(7)},
		{"parens", "=(1+2)*3", formula.Number(9)},
		{"exponent", "=2^10", formula.Number(1024)},
		{"unary minus before exponent", "=-2^2", formula.Number(4)},
		{"division", "=10/4", formula.Number(2.5)},
		{"division by zero", "=1/0", formula.ErrorValue(formula.ErrDiv0)},
		{"string in arithmetic", `="a"+1`, formula.ErrorValue(formula.ErrValue)},
		{"bool coerces in arithmetic", "=TRUE+1", formula.Number(2)},
		{"concatenation", `="a"&"b"`, formula.Str("ab")},
		{"concat coerces number", `="n="&5`, formula.Str("n=5")},
		{"concat binds loosest", `=1+1&"x"`, formula.Str("2x")},
		{"numeric comparison", "=2>1", formula.Boolean(true)},
		{"string comparison is case-insensitive", `="ABC"="abc"`, formula.Boolean(true)},
		{"mixed-kind equality is false", `=1="1"`, formula.Boolean(false)},
		{"mixed-kind inequality is true", `=1<>"1"`, formula.Boolean(true)},
		{"mixed-kind ordering is a mismatch", `=1<"a"`, formula.ErrorValue(formula.ErrValue)},
		{"unknown function", "=NOPE(1)", formula.ErrorValue(formula.ErrName)},
		{"malformed formula", "=1+", formula.ErrorValue(formula.ErrName)},
		{"unknown name", "=bogus", formula.ErrorValue(formula.ErrName)},
		{"bare range", "=A1:B2", formula.ErrorValue(formula.ErrValue)},
		{"empty formula", "=", formula.Null()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalAt(e, grid, tt.src)
			assert.True(t, tt.expected.Equal(got), "want %s, got %s", tt.expected, got)
		})
	}
}

func TestCellReferences(t *testing.T) {
	e := NewEngine()
	grid := sheet.NewGrid()
	grid.SetValue(addr("A1"), formula.Number(5))
	grid.SetValue(addr("A2"), formula.Str("x"))

	assert.Equal(t, formula.Number(15), evalAt(e, grid, "=A1+10"))
	assert.Equal(t, formula.Str("x!"), evalAt(e, grid, `=A2&"!"`))

	// Missing cell reads as null: zero in arithmetic, empty in concat.
	assert.Equal(t, formula.Number(10), evalAt(e, grid, "=B7+10"))
	assert.Equal(t, formula.Str("<>"), evalAt(e, grid, `="<"&B7&">"`))
}

func TestFormulaCellsEvaluateRecursively(t *testing.T) {
	e := NewEngine()
	grid := sheet.NewGrid()
	grid.SetValue(addr("A1"), formula.Number(2))
	grid.SetFormula(addr("B1"), "=A1*10")
	grid.SetFormula(addr("C1"), "=B1+1")

	assert.Equal(t, formula.Number(21), evalAt(e, grid, "=C1"))
}

func TestCircularReferences(t *testing.T) {
	e := NewEngine()
	grid := sheet.NewGrid()

	// Self-reference.
	grid.SetFormula(addr("A1"), "=A1")
	got := e.Evaluate("=A1", NewContext(grid, addr("A1")))
	assert.True(t, got.IsErrorCode(formula.ErrCirc), "got %s", got)

	// Mutual cycle through an intermediate.
	grid2 := sheet.NewGrid()
	grid2.SetFormula(addr("A1"), "=B1+1")
	grid2.SetFormula(addr("B1"), "=A1+1")
	got = e.Evaluate("=B1+1", NewContext(grid2, addr("A1")))
	assert.True(t, got.IsErrorCode(formula.ErrCirc), "got %s", got)
}

func TestEntityDisplayDuality(t *testing.T) {
	e := NewEngine()
	grid := sheet.NewGrid()

	// Entity with display 420.50; ordinary arithmetic sees the display.
	stock := formula.MustEntity("stock", formula.Number(420.50), map[string]formula.Value{
		"Price": formula.Number(420.50),
	})
	grid.SetEntity(addr("A1"), stock)
	assert.Equal(t, formula.Number(430.5), evalAt(e, grid, "=A1+10"))

	// Display and field diverge: =A1+1 uses display, =A1.Price+1 the field.
	split := formula.MustEntity("stock", formula.Number(5), map[string]formula.Value{
		"Price": formula.Number(10),
	})
	grid.SetEntity(addr("B1"), split)
	assert.Equal(t, formula.Number(6), evalAt(e, grid, "=B1+1"))
	assert.Equal(t, formula.Number(11), evalAt(e, grid, "=B1.Price+1"))

	// Display drives comparison, concatenation, and truthiness uniformly.
	assert.Equal(t, formula.Boolean(true), evalAt(e, grid, "=B1>4"))
	assert.Equal(t, formula.Str("v5"), evalAt(e, grid, `="v"&B1`))
	assert.Equal(t, formula.Str("yes"), evalAt(e, grid, `=IF(B1,"yes","no")`))
}

func TestMemberAccessDecisionTable(t *testing.T) {
	e := NewEngine()
	grid := sheet.NewGrid()

	entity := formula.MustEntity("stock", formula.Number(5), map[string]formula.Value{
		"Price":    formula.Number(10),
		"Dividend": formula.Null(),
	})
	grid.SetEntity(addr("A1"), entity)
	grid.SetValue(addr("B1"), formula.Number(42))
	grid.SetValue(addr("C1"), formula.Str("text"))

	tests := []struct {
		name     string
		src      string
		expected formula.Value
	}{
		{"local field present", "=A1.Price", formula.Number(10)},
		{"explicitly stored null field", "=A1.Dividend", formula.Null()},
		{"local field absent", "=A1.Missing", formula.ErrorValue(formula.ErrField)},
		{"number base", "=B1.Price", formula.ErrorValue(formula.ErrValue)},
		{"string base", "=C1.Price", formula.ErrorValue(formula.ErrValue)},
		{"null base", "=D9.Price", formula.ErrorValue(formula.ErrRef)},
		{"chained access on primitive result", "=A1.Price.Currency", formula.ErrorValue(formula.ErrValue)},
		{"bracket form", `=A1["Price"]`, formula.Number(10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalAt(e, grid, tt.src)
			assert.True(t, tt.expected.Equal(got), "want %s, got %s", tt.expected, got)
		})
	}
}

func TestProviderPriorityOverLocalFields(t *testing.T) {
	e := NewEngine()
	grid := sheet.NewGrid()

	entity := formula.MustEntity("stock", formula.Str("AAPL"), map[string]formula.Value{
		"Price": formula.Number(1), // stale local copy
	})
	grid.SetEntity(addr("A1"), entity)

	e.Registry().Register(provider.FuncProvider{
		ProviderType: "stock",
		Fn: func(id, field string, _ *formula.Entity) (formula.Value, bool) {
			if id == "AAPL" && field == "Price" {
				return formula.Number(178.5), true
			}
			return formula.Value{}, false
		},
	})

	// Provider wins over the local field.
	assert.Equal(t, formula.Number(178.5), evalAt(e, grid, "=A1.Price"))

	// Provider miss on the field is #REF!, not #FIELD!.
	got := evalAt(e, grid, "=A1.Volume")
	assert.True(t, got.IsErrorCode(formula.ErrRef), "got %s", got)
}

func TestErrorPropagationThroughOperators(t *testing.T) {
	e := NewEngine()
	grid := sheet.NewGrid()
	grid.SetFormula(addr("A1"), "=1/0")

	tests := []struct {
		name string
		src  string
		code formula.ErrorCode
	}{
		{"error operand in addition", "=A1+1", formula.ErrDiv0},
		{"error operand in comparison", "=A1>1", formula.ErrDiv0},
		{"error operand in concat", `=A1&"x"`, formula.ErrDiv0},
		{"error operand in unary", "=-A1", formula.ErrDiv0},
		{"left error wins over right", "=A1+SQRT(-1)", formula.ErrDiv0},
		{"direct scalar error short-circuits function", "=SUM(A1, 5)", formula.ErrDiv0},
		{"error in member base propagates", "=A1.Price", formula.ErrDiv0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalAt(e, grid, tt.src)
			assert.True(t, got.IsErrorCode(tt.code), "want %s, got %s", tt.code, got)
		})
	}
}

func TestFunctions(t *testing.T) {
	e := NewEngine()
	grid := sheet.NewGrid()
	grid.SetValue(addr("A1"), formula.Number(1))
	grid.SetValue(addr("A2"), formula.Number(2))
	grid.SetValue(addr("A3"), formula.Number(3))
	grid.SetValue(addr("B1"), formula.Str("skip me"))
	grid.SetFormula(addr("B2"), "=1/0")
	grid.SetValue(addr("B3"), formula.Number(10))
	grid.SetValue(addr("D1"), formula.Boolean(true))
	grid.SetValue(addr("D2"), formula.Number(2))

	tests := []struct {
		name     string
		src      string
		expected formula.Value
	}{
		{"sum over range", "=SUM(A1:A3)", formula.Number(6)},
		{"sum mixes range and scalar", "=SUM(A1:A3, 4)", formula.Number(10)},
		{"case-insensitive lookup", "=sum(A1:A3)", formula.Number(6)},
		{"range filters non-numeric and errors", "=SUM(B1:B3)", formula.Number(10)},
		{"average", "=AVERAGE(A1:A3)", formula.Number(2)},
		{"average of empty range", "=AVERAGE(C1:C3)", formula.ErrorValue(formula.ErrDiv0)},
		{"count numbers only", "=COUNT(A1:B3)", formula.Number(4)},
		{"count coerces direct booleans", "=COUNT(TRUE, FALSE, 1)", formula.Number(3)},
		{"count skips booleans inside ranges", "=COUNT(D1:D2)", formula.Number(1)},
		{"min", "=MIN(A1:A3)", formula.Number(1)},
		{"max mixes scalar", "=MAX(A1:A3, 99)", formula.Number(99)},
		{"if true branch", `=IF(1<2,"yes","no")`, formula.Str("yes")},
		{"if false branch", `=IF(1>2,"yes","no")`, formula.Str("no")},
		{"if default else", "=IF(FALSE, 1)", formula.Boolean(false)},
		{"if text condition", `=IF("x",1,2)`, formula.ErrorValue(formula.ErrValue)},
		{"abs", "=ABS(-4)", formula.Number(4)},
		{"round to digits", "=ROUND(3.14159, 2)", formula.Number(3.14)},
		{"sqrt", "=SQRT(16)", formula.Number(4)},
		{"sqrt of negative", "=SQRT(-1)", formula.ErrorValue(formula.ErrNum)},
		{"concatenate", `=CONCATENATE("a",1,TRUE)`, formula.Str("a1TRUE")},
		{"len counts runes", `=LEN("héllo")`, formula.Number(5)},
		{"upper", `=UPPER("ab")`, formula.Str("AB")},
		{"lower", `=LOWER("AB")`, formula.Str("ab")},
		{"na", "=NA()", formula.ErrorValue(formula.ErrNA)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalAt(e, grid, tt.src)
			assert.True(t, tt.expected.Equal(got), "want %s, got %s", tt.expected, got)
		})
	}
}

func TestRangeExpansionFlattensEntities(t *testing.T) {
	e := NewEngine()
	grid := sheet.NewGrid()
	grid.SetEntity(addr("A1"), formula.MustEntity("stock", formula.Number(5), nil))
	grid.SetValue(addr("A2"), formula.Number(7))

	// Entities in a range contribute their display value to aggregation.
	assert.Equal(t, formula.Number(12), evalAt(e, grid, "=SUM(A1:A2)"))
}

func TestRegisterFunction(t *testing.T) {
	e := NewEngine()
	grid := sheet.NewGrid()

	e.RegisterFunction("double", func(args []Arg) formula.Value {
		if len(args) != 1 || !args[0].Value.IsNumber() {
			return formula.ErrorValue(formula.ErrValue)
		}
		return formula.Number(args[0].Value.Num() * 2)
	})

	assert.Equal(t, formula.Number(14), evalAt(e, grid, "=DOUBLE(7)"))
	assert.Equal(t, formula.Number(14), evalAt(e, grid, "=double(7)"))
}

func TestEvaluatePanicMapsToInternalError(t *testing.T) {
	e := NewEngine()
	grid := sheet.NewGrid()

	e.RegisterFunction("BOOM", func(args []Arg) formula.Value {
		panic("deliberate")
	})

	got := evalAt(e, grid, "=BOOM()")
	require.True(t, got.IsErrorCode(formula.ErrInternal), "got %s", got)
}

func TestDependencyEdgesRebuildOnReEvaluation(t *testing.T) {
	e := NewEngine()
	grid := sheet.NewGrid()
	grid.SetValue(addr("A1"), formula.Number(1))
	grid.SetValue(addr("B1"), formula.Number(2))

	grid.SetFormula(addr("C1"), "=A1+1")
	e.Evaluate("=A1+1", NewContext(grid, addr("C1")))
	assert.Equal(t, []sheet.Address{addr("A1")}, e.Graph().Dependencies(addr("C1")))

	// Edit: C1 now reads B1 instead. The A1 edge must not linger.
	grid.SetFormula(addr("C1"), "=B1+1")
	e.Evaluate("=B1+1", NewContext(grid, addr("C1")))
	assert.Equal(t, []sheet.Address{addr("B1")}, e.Graph().Dependencies(addr("C1")))
	assert.Empty(t, e.Graph().Dependents(addr("A1")))
}
