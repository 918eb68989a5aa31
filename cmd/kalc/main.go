package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/kalc/cmd/kalc/commands"
	"github.com/teranos/kalc/logger"
)

var rootCmd = &cobra.Command{
	Use:   "kalc",
	Short: "kalc - spreadsheet formula evaluation engine",
	Long: `kalc - spreadsheet formula evaluation engine.

Evaluates formulas against an in-memory worksheet: operators, built-in
functions, cell references and ranges, entity values with provider-backed
field access, and dependency-driven recalculation.

Examples:
  kalc eval "=1+2*3"
  kalc eval "=SUM(A1:A3)" --cell A1=1 --cell A2=2 --cell A3=3
  kalc eval "=A1.Price+10" --entity 'A1=stock:AAPL:178.5' --data 'stock|AAPL|Price=178.5'
  kalc version`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.InitializeWithLevel(false, logger.VerbosityToLevel(verbosity)); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")

	rootCmd.AddCommand(commands.EvalCmd)
	rootCmd.AddCommand(commands.RecalcCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
