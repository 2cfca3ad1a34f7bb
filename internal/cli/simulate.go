package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulatePrevious float64
	simulateCurrent  float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-movement",
	Short: "Run one movement detection pass over two synthetic prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePrevious <= 0 || simulateCurrent <= 0 {
			return errors.New("--previous and --current must be greater than zero")
		}

		previous := decimal.NewFromFloat(simulatePrevious)
		current := decimal.NewFromFloat(simulateCurrent)
		return getApp().SimulateMovement(cmd.Context(), previous, current)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulatePrevious, "previous", 0, "Earlier price in USD")
	simulateCmd.Flags().Float64Var(&simulateCurrent, "current", 0, "Latest price in USD")
}
