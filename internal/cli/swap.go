package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var swapEthAmount string

var swapCmd = &cobra.Command{
	Use:   "swap",
	Short: "Quote an ETH to BTC conversion",
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := decimal.NewFromString(swapEthAmount)
		if err != nil {
			return fmt.Errorf("invalid --eth value: %w", err)
		}
		if !amount.IsPositive() {
			return fmt.Errorf("--eth must be greater than zero")
		}

		return getApp().SwapQuote(cmd.Context(), amount)
	},
}

func init() {
	swapCmd.Flags().StringVar(&swapEthAmount, "eth", "", "ETH amount to convert")
	_ = swapCmd.MarkFlagRequired("eth")
}
