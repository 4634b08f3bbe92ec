package cmd

import (
	"math/big"

	"github.com/michaelpento.lv/tokenswap/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	quoteAmount    string
	quoteDirection string
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Estimate swap amounts without settling anything",
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.GetLogger()

		w, err := buildWiring(log)
		if err != nil {
			log.Fatal("Failed to assemble facade", zap.Error(err))
		}

		amount, ok := new(big.Int).SetString(quoteAmount, 10)
		if !ok {
			log.Fatal("Invalid --amount", zap.String("value", quoteAmount))
		}

		switch quoteDirection {
		case "exactin":
			out, err := w.facade.QuoteExactInput(cmd.Context(), w.router, amount)
			if err != nil {
				log.Fatal("Quote failed", zap.Error(err))
			}
			log.Info("Quote", zap.String("amount_in", amount.String()), zap.String("amount_out", out.String()))
		case "exactout":
			in, err := w.facade.QuoteExactOutput(cmd.Context(), w.router, amount)
			if err != nil {
				log.Fatal("Quote failed", zap.Error(err))
			}
			log.Info("Quote", zap.String("amount_out", amount.String()), zap.String("amount_in", in.String()))
		default:
			log.Fatal("Invalid --direction, want exactin or exactout", zap.String("value", quoteDirection))
		}
	},
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	quoteCmd.Flags().StringVar(&quoteAmount, "amount", "", "amount in base units")
	quoteCmd.Flags().StringVar(&quoteDirection, "direction", "exactin", "quote direction: exactin or exactout")
	_ = quoteCmd.MarkFlagRequired("amount")
}
