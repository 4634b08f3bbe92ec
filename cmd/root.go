package cmd

import (
	"context"

	"github.com/michaelpento.lv/tokenswap/utils"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "tokenswap",
	Short: "A CLI facade for settling token swaps through an exchange router",
	Long: `A CLI facade that pulls tokens from a caller, delegates exact-input or
exact-output swaps to a V2-compatible exchange router, and refunds any
unspent input.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tokenswap.json)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func initConfig() {
	utils.InitLogger(debug)
}
