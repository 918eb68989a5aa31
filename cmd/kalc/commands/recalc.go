package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/kalc/errors"
	"github.com/teranos/kalc/eval"
	"github.com/teranos/kalc/formula"
	"github.com/teranos/kalc/sheet"
)

var (
	recalcCells    []string
	recalcFormulas []string
	recalcSet      string
)

// RecalcCmd represents the recalc command
var RecalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Recalculate a worksheet after a cell change",
	Long: `Seed a worksheet, apply one cell change, and recalculate every affected
formula cell in dependency order.

Formula cells are evaluated once up front to build the dependency graph, then
--set changes a cell and the recalculation pass runs.

Examples:
  kalc recalc --cell A1=1 --formula B1="=A1*2" --formula C1="=B1+1" --set A1=10
  kalc recalc --cell A1=1 --formula B1="=A1+1" --formula C1="=A1*2" --formula D1="=B1+C1" --set A1=5`,
	RunE: runRecalcCommand,
}

func init() {
	RecalcCmd.Flags().StringArrayVar(&recalcCells, "cell", nil, "Seed a cell: ADDR=VALUE (repeatable)")
	RecalcCmd.Flags().StringArrayVar(&recalcFormulas, "formula", nil, "Seed a formula cell: ADDR==EXPR (repeatable)")
	RecalcCmd.Flags().StringVar(&recalcSet, "set", "", "The change to apply: ADDR=VALUE")
	RecalcCmd.MarkFlagRequired("set")
}

func runRecalcCommand(cmd *cobra.Command, args []string) error {
	grid := sheet.NewGrid()
	engine := eval.NewEngine()

	for _, spec := range recalcCells {
		addr, v, err := parseAssignment(spec, "--cell")
		if err != nil {
			return err
		}
		grid.SetValue(addr, v)
	}

	var formulaAddrs []sheet.Address
	for _, spec := range recalcFormulas {
		addrStr, text, ok := cutAssignment(spec)
		if !ok {
			return errors.Newf("malformed --formula %q, want ADDR==EXPR", spec)
		}
		addr, err := sheet.ParseAddress(addrStr)
		if err != nil {
			return errors.Wrapf(err, "malformed --formula %q", spec)
		}
		grid.SetFormula(addr, text)
		formulaAddrs = append(formulaAddrs, addr)
	}

	// Initial pass: evaluate every formula cell so the dependency graph
	// holds the edges the recalculation will walk.
	for _, addr := range formulaAddrs {
		cell, _ := grid.Cell(addr)
		v := engine.Evaluate(cell.Formula, eval.NewContext(grid, addr))
		if !v.IsError() {
			grid.SetValue(addr, v)
		}
	}

	changed, v, err := parseAssignment(recalcSet, "--set")
	if err != nil {
		return err
	}
	grid.SetValue(changed, v)

	recalculated := engine.Recalculate(grid, changed)
	if len(recalculated) == 0 {
		pterm.Info.Printfln("no formula cells depend on %s", changed.String())
		return nil
	}

	rows := pterm.TableData{{"Cell", "Formula", "Value"}}
	for _, addr := range recalculated {
		cell, _ := grid.Cell(addr)
		rows = append(rows, []string{addr.String(), cell.Formula, cell.Value.Format()})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

// parseAssignment parses ADDR=VALUE with a scalar right-hand side.
func parseAssignment(spec, flag string) (sheet.Address, formula.Value, error) {
	addrStr, valStr, ok := cutAssignment(spec)
	if !ok {
		return sheet.Address{}, formula.Value{}, errors.Newf("malformed %s %q, want ADDR=VALUE", flag, spec)
	}
	addr, err := sheet.ParseAddress(addrStr)
	if err != nil {
		return sheet.Address{}, formula.Value{}, errors.Wrapf(err, "malformed %s %q", flag, spec)
	}
	return addr, parseScalar(valStr), nil
}

// cutAssignment splits ADDR=REST on the first '=', so formula bodies keep
// their own leading '='.
func cutAssignment(spec string) (addr, rest string, ok bool) {
	for i := 0; i < len(spec); i++ {
		if spec[i] == '=' {
			return spec[:i], spec[i+1:], true
		}
	}
	return "", "", false
}
