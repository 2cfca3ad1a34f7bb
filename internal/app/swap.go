package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
)

// SwapQuote computes and prints one ETH to BTC conversion. The stored ETH
// price comes from the database, so without a configured DSN the conversion
// degrades to zero.
func (a *App) SwapQuote(ctx context.Context, ethAmount decimal.Decimal) error {
	st, closeStores, err := a.openStores(ctx)
	if err != nil {
		return err
	}
	defer closeStores()

	calc := a.newCalculator(a.newGateway(), st)
	quote, err := calc.Rate(ctx, ethAmount)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "ETH amount\t%s\n", ethAmount.String())
	fmt.Fprintf(writer, "BTC amount\t%s\n", quote.BtcAmount.String())
	fmt.Fprintf(writer, "Fee (ETH)\t%s\n", quote.FeeInEth.String())
	fmt.Fprintf(writer, "Fee (USD)\t%s\n", quote.FeeInUsd.String())
	return writer.Flush()
}
