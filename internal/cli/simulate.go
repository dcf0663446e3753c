package cli

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateJetChange float64
	simulateUSDChange float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Classify literal deltas and exercise the alert channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		jet := decimal.NewFromFloat(simulateJetChange)
		usd := decimal.NewFromFloat(simulateUSDChange)
		return getApp().SimulateSignals(cmd.Context(), jet, usd)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateJetChange, "jet-change", 0, "Simulated jet fuel percentage change")
	simulateCmd.Flags().Float64Var(&simulateUSDChange, "usd-change", 0, "Simulated USD/INR percentage change")
}
