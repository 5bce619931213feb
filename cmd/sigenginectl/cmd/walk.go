package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftwood-labs/sigengine/backtest"
	"github.com/driftwood-labs/sigengine/eventbus"
	"github.com/driftwood-labs/sigengine/persistence"
	"github.com/driftwood-labs/sigengine/risk"
	"github.com/driftwood-labs/sigengine/signal"
	"github.com/driftwood-labs/sigengine/walker"
)

var (
	wkSymbol     string
	wkDays       int
	wkStartPrice float64
	wkVolatility float64
	wkSeed       int64
)

var walkCmd = &cobra.Command{
	Use:   "walk",
	Short: "Run several take-profit/stop-loss variants and report the best",
	Long: `Walk runs the open-once demo strategy across a small grid of
take-profit/stop-loss percent combinations, each against its own synthetic
random walk, and reports which variant scored the best win rate.`,
	RunE: runWalk,
}

func init() {
	rootCmd.AddCommand(walkCmd)

	walkCmd.Flags().StringVar(&wkSymbol, "symbol", "BTCUSDT", "symbol to simulate")
	walkCmd.Flags().IntVar(&wkDays, "days", 3, "length of each synthetic frame, in days")
	walkCmd.Flags().Float64Var(&wkStartPrice, "start-price", 50_000, "synthetic exchange starting price")
	walkCmd.Flags().Float64Var(&wkVolatility, "volatility", 15, "synthetic exchange per-minute price step stddev")
	walkCmd.Flags().Int64Var(&wkSeed, "seed", 1, "synthetic exchange random seed (shared across variants)")
}

func runWalk(cmd *cobra.Command, args []string) error {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	frame := backtest.UniformFrame{Start: base, End: base.Add(time.Duration(wkDays) * 24 * time.Hour), Interval: time.Minute}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	bus := eventbus.New()

	variants := []struct {
		name           string
		takeProfitPct  float64
		stopLossPct    float64
	}{
		{"tight", 0.01, 0.01},
		{"wide-target", 0.03, 0.01},
		{"wide-stop", 0.01, 0.03},
	}

	candidates := make([]walker.Candidate, 0, len(variants))
	for _, v := range variants {
		exchange := newRandomWalkExchange(base, wkStartPrice, wkVolatility, wkSeed)
		strategy := &openOnceStrategy{
			position: signal.Long, takeProfitPct: v.takeProfitPct, stopLossPct: v.stopLossPct,
			minuteEstimatedTime: 240, riskName: "conservative",
		}
		candidates = append(candidates, walker.Candidate{
			Name: v.name, Symbol: wkSymbol, StrategyName: "open-once-" + v.name, ExchangeName: "synthetic",
			Strategy: strategy, Exchange: exchange, Persist: persistence.NoopAdapter{},
			Gate: &risk.Gate{Portfolio: risk.NewPortfolio(), Registry: demoRiskRegistry()}, Frame: frame,
		})
	}

	fmt.Printf("Walking %d variants over %d days\n\n", len(candidates), wkDays)

	d := walker.New(cfg, bus, nil)
	summaries, best, err := d.Run(context.Background(), candidates, func(name string, r signal.TickResult) {
		if r.Kind == signal.KindClosed {
			fmt.Printf("[%s] closed %s reason=%s pnl=%.2f%%\n", name, r.Signal.ID, r.CloseReason, r.PnLPercent)
		}
	})
	if err != nil {
		return fmt.Errorf("walk: %w", err)
	}

	fmt.Println()
	for i, s := range summaries {
		marker := "  "
		if i == best {
			marker = "* "
		}
		fmt.Printf("%s%-12s trades=%d wins=%d losses=%d winRate=%.2f\n",
			marker, s.Name, s.Result.Trades, s.Result.Wins, s.Result.Losses, s.Score)
	}
	return nil
}
