package cmd

import (
	"math/big"
	"time"

	"github.com/michaelpento.lv/tokenswap/swap"
	"github.com/michaelpento.lv/tokenswap/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	amountIn     string
	minAmountOut string
	amountOut    string
	maxAmountIn  string
	deadlineSecs int64
)

var exactInCmd = &cobra.Command{
	Use:   "exactin",
	Short: "Swap an exact input amount for as much output as the router achieves",
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.GetLogger()

		w, err := buildWiring(log)
		if err != nil {
			log.Fatal("Failed to assemble facade", zap.Error(err))
		}

		in, ok := new(big.Int).SetString(amountIn, 10)
		if !ok {
			log.Fatal("Invalid --amount-in", zap.String("value", amountIn))
		}
		minOut, ok := new(big.Int).SetString(minAmountOut, 10)
		if !ok {
			log.Fatal("Invalid --min-out", zap.String("value", minAmountOut))
		}

		result, err := w.facade.ExactInputSwap(cmd.Context(), swap.ExactInputParams{
			Caller:       w.opts.From,
			AmountIn:     in,
			MinAmountOut: minOut,
			Deadline:     deadline(),
		})
		if err != nil {
			log.Fatal("Exact-input swap failed", zap.Error(err))
		}

		log.Info("Swap settled", zap.String("amount_out", result.String()))
	},
}

var exactOutCmd = &cobra.Command{
	Use:   "exactout",
	Short: "Swap up to a maximum input amount for an exact output amount",
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.GetLogger()

		w, err := buildWiring(log)
		if err != nil {
			log.Fatal("Failed to assemble facade", zap.Error(err))
		}

		out, ok := new(big.Int).SetString(amountOut, 10)
		if !ok {
			log.Fatal("Invalid --amount-out", zap.String("value", amountOut))
		}
		maxIn, ok := new(big.Int).SetString(maxAmountIn, 10)
		if !ok {
			log.Fatal("Invalid --max-in", zap.String("value", maxAmountIn))
		}

		result, err := w.facade.ExactOutputSwap(cmd.Context(), swap.ExactOutputParams{
			Caller:          w.opts.From,
			AmountOut:       out,
			AmountInMaximum: maxIn,
			Deadline:        deadline(),
		})
		if err != nil {
			log.Fatal("Exact-output swap failed", zap.Error(err))
		}

		log.Info("Swap settled", zap.String("amount_in", result.String()))
	},
}

// deadline converts the --deadline flag to an absolute time, zero meaning
// "use the configured TTL".
func deadline() time.Time {
	if deadlineSecs <= 0 {
		return time.Time{}
	}
	return time.Now().Add(time.Duration(deadlineSecs) * time.Second)
}

func init() {
	rootCmd.AddCommand(exactInCmd)
	rootCmd.AddCommand(exactOutCmd)

	exactInCmd.Flags().StringVar(&amountIn, "amount-in", "", "input amount in base units")
	exactInCmd.Flags().StringVar(&minAmountOut, "min-out", "0", "minimum acceptable output in base units")
	exactInCmd.Flags().Int64Var(&deadlineSecs, "deadline", 0, "swap validity window in seconds (0 = configured default)")
	_ = exactInCmd.MarkFlagRequired("amount-in")

	exactOutCmd.Flags().StringVar(&amountOut, "amount-out", "", "desired output amount in base units")
	exactOutCmd.Flags().StringVar(&maxAmountIn, "max-in", "", "maximum input to spend in base units")
	exactOutCmd.Flags().Int64Var(&deadlineSecs, "deadline", 0, "swap validity window in seconds (0 = configured default)")
	_ = exactOutCmd.MarkFlagRequired("amount-out")
	_ = exactOutCmd.MarkFlagRequired("max-in")
}
