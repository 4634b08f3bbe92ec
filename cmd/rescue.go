package cmd

import (
	"github.com/michaelpento.lv/tokenswap/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rescueToken string

var rescueCmd = &cobra.Command{
	Use:   "rescue",
	Short: "Sweep a stranded token balance from the facade back to the signer",
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.GetLogger()

		w, err := buildWiring(log)
		if err != nil {
			log.Fatal("Failed to assemble facade", zap.Error(err))
		}

		if !common.IsHexAddress(rescueToken) {
			log.Fatal("Invalid --token address", zap.String("value", rescueToken))
		}

		amount, err := w.facade.Rescue(cmd.Context(), common.HexToAddress(rescueToken), w.opts.From)
		if err != nil {
			log.Fatal("Rescue failed", zap.Error(err))
		}

		log.Info("Rescue complete", zap.String("amount", amount.String()))
	},
}

func init() {
	rootCmd.AddCommand(rescueCmd)
	rescueCmd.Flags().StringVar(&rescueToken, "token", "", "token contract address to sweep")
	_ = rescueCmd.MarkFlagRequired("token")
}
