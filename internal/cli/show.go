package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"token-price-watcher/internal/app"
)

var (
	showChain string
	showLimit int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent price observations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Chain: showChain,
			Limit: showLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showChain, "chain", "", "Restrict output to one chain")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of observations to display")
}
