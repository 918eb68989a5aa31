package commands

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/kalc/config"
	"github.com/teranos/kalc/errors"
	"github.com/teranos/kalc/eval"
	"github.com/teranos/kalc/formula"
	"github.com/teranos/kalc/provider"
	"github.com/teranos/kalc/sheet"
)

var (
	evalCells    []string
	evalEntities []string
	evalData     []string
)

// EvalCmd represents the eval command
var EvalCmd = &cobra.Command{
	Use:   "eval FORMULA",
	Short: "Evaluate a formula against an in-memory worksheet",
	Long: `Evaluate a formula against an in-memory worksheet.

Cells are seeded with --cell ADDR=VALUE; entity cells with
--entity 'ADDR=type:id:display'; provider data with --data 'type|id|field=value'.
When --data is given, a static batch resolver backs field access for every
entity type present.

Examples:
  kalc eval "=1+2*3"
  kalc eval "=A1+10" --cell A1=420.5
  kalc eval "=SUM(B1:B3)" --cell B1=1 --cell B2=2 --cell B3=3
  kalc eval "=A1.Price" --entity 'A1=stock:AAPL:178.5' --data 'stock|AAPL|Price=178.5'`,
	Args: cobra.ExactArgs(1),
	RunE: runEvalCommand,
}

func init() {
	EvalCmd.Flags().StringArrayVar(&evalCells, "cell", nil, "Seed a cell: ADDR=VALUE (repeatable)")
	EvalCmd.Flags().StringArrayVar(&evalEntities, "entity", nil, "Seed an entity cell: ADDR=type:id:display (repeatable)")
	EvalCmd.Flags().StringArrayVar(&evalData, "data", nil, "Provider backing data: 'type|id|field=value' (repeatable)")
}

func runEvalCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	grid := sheet.NewGrid()
	engine := eval.NewEngine()

	if err := seedCells(grid); err != nil {
		return err
	}
	if err := seedEntities(grid, engine); err != nil {
		return err
	}

	formulaText := args[0]
	addr := pickFreeAddress(grid)
	ectx := eval.NewContext(grid, addr)

	var result formula.Value
	if len(evalData) > 0 {
		resolver, err := buildResolver(cfg)
		if err != nil {
			return err
		}
		result, err = engine.EvaluateWithProviders(context.Background(), formulaText, ectx, resolver)
		if err != nil {
			pterm.Warning.Printfln("resolver degraded: %v", err)
		}
	} else {
		result = engine.Evaluate(formulaText, ectx)
	}

	if result.IsError() {
		pterm.Error.Printfln("%s", result.Format())
		return nil
	}
	pterm.Success.Printfln("%s", result.Format())
	return nil
}

func seedCells(grid *sheet.Grid) error {
	for _, spec := range evalCells {
		addrStr, valStr, ok := strings.Cut(spec, "=")
		if !ok {
			return errors.Newf("malformed --cell %q, want ADDR=VALUE", spec)
		}
		addr, err := sheet.ParseAddress(addrStr)
		if err != nil {
			return errors.Wrapf(err, "malformed --cell %q", spec)
		}
		grid.SetValue(addr, parseScalar(valStr))
	}
	return nil
}

// seedEntities populates entity cells and registers a pass-through provider
// type for each distinct entity type, so provider-backed field access is
// exercised when --data supplies values.
func seedEntities(grid *sheet.Grid, engine *eval.Engine) error {
	for _, spec := range evalEntities {
		addrStr, entStr, ok := strings.Cut(spec, "=")
		if !ok {
			return errors.Newf("malformed --entity %q, want ADDR=type:id:display", spec)
		}
		addr, err := sheet.ParseAddress(addrStr)
		if err != nil {
			return errors.Wrapf(err, "malformed --entity %q", spec)
		}
		parts := strings.SplitN(entStr, ":", 3)
		if len(parts) != 3 {
			return errors.Newf("malformed --entity %q, want ADDR=type:id:display", spec)
		}
		entity, err := formula.NewEntityWithMetadata(
			parts[0],
			parseScalar(parts[2]),
			nil,
			map[string]interface{}{"id": parts[1]},
		)
		if err != nil {
			return errors.Wrapf(err, "invalid entity in %q", spec)
		}
		grid.SetEntity(addr, entity)

		// Type-only provider: routes field access through the registry so
		// batch-resolved values (and misses, as #REF!) apply uniformly.
		if len(evalData) > 0 && !engine.Registry().HasProvider(entity.Type()) {
			engine.Registry().Register(provider.FuncProvider{ProviderType: entity.Type()})
		}
	}
	return nil
}

// buildResolver assembles the static resolver plus the middleware the config
// asks for (timeout, rate limit).
func buildResolver(cfg *config.Config) (provider.BatchResolver, error) {
	data := make(map[string]formula.Value, len(evalData))
	for _, spec := range evalData {
		key, valStr, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, errors.Newf("malformed --data %q, want 'type|id|field=value'", spec)
		}
		if _, err := provider.ParseKey(key); err != nil {
			return nil, errors.Wrapf(err, "malformed --data %q", spec)
		}
		data[key] = parseScalar(valStr)
	}

	static := provider.NewStaticResolver(data)
	static.Delay = time.Duration(cfg.Eval.ArtificialDelayMS) * time.Millisecond
	static.TTL = time.Duration(cfg.Resolver.DefaultTTLMS) * time.Millisecond

	var resolver provider.BatchResolver = static
	if cfg.Resolver.RatePerSecond > 0 {
		resolver = provider.NewRateLimitedResolver(resolver, cfg.Resolver.RatePerSecond, cfg.Resolver.Burst)
	}
	if cfg.Resolver.TimeoutMS > 0 {
		resolver = provider.NewTimeoutResolver(resolver, time.Duration(cfg.Resolver.TimeoutMS)*time.Millisecond)
	}
	return resolver, nil
}

// parseScalar interprets a CLI value: number, TRUE/FALSE, or string.
func parseScalar(s string) formula.Value {
	if s == "" {
		return formula.Null()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return formula.Number(f)
	}
	switch strings.ToUpper(s) {
	case "TRUE":
		return formula.Boolean(true)
	case "FALSE":
		return formula.Boolean(false)
	}
	return formula.Str(s)
}

// pickFreeAddress finds an address outside the seeded cells to host the
// ad-hoc formula.
func pickFreeAddress(grid *sheet.Grid) sheet.Address {
	maxRow := 0
	for _, addr := range grid.Addresses() {
		if addr.Row > maxRow {
			maxRow = addr.Row
		}
	}
	return sheet.Address{Row: maxRow + 1, Col: 26} // e.g. Z below the data
}
