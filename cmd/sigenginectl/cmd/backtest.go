package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftwood-labs/sigengine/adapters/sqlitelog"
	"github.com/driftwood-labs/sigengine/backtest"
	"github.com/driftwood-labs/sigengine/engine"
	"github.com/driftwood-labs/sigengine/eventbus"
	"github.com/driftwood-labs/sigengine/persistence"
	"github.com/driftwood-labs/sigengine/risk"
	"github.com/driftwood-labs/sigengine/signal"
)

var (
	btSymbol        string
	btPosition      string
	btDays          int
	btTakeProfitPct float64
	btStopLossPct   float64
	btMinutes       int
	btStartPrice    float64
	btVolatility    float64
	btSeed          int64
	btDBPath        string
	btRiskName      string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a single strategy against a synthetic random-walk exchange",
	Long: `Backtest runs the open-once demo strategy through a synthetic,
seeded random-walk exchange for the requested number of days, and prints a
trade/win/loss summary.

Example:
  sigenginectl backtest --symbol BTCUSDT --position long --take-profit-pct 0.02 --stop-loss-pct 0.01`,
	RunE: runBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&btSymbol, "symbol", "BTCUSDT", "symbol to simulate")
	backtestCmd.Flags().StringVar(&btPosition, "position", "long", "position side: long or short")
	backtestCmd.Flags().IntVar(&btDays, "days", 3, "length of the synthetic frame, in days")
	backtestCmd.Flags().Float64Var(&btTakeProfitPct, "take-profit-pct", 0.02, "take-profit distance as a fraction of entry price")
	backtestCmd.Flags().Float64Var(&btStopLossPct, "stop-loss-pct", 0.01, "stop-loss distance as a fraction of entry price")
	backtestCmd.Flags().IntVar(&btMinutes, "minutes", 240, "minuteEstimatedTime for the proposed signal")
	backtestCmd.Flags().Float64Var(&btStartPrice, "start-price", 50_000, "synthetic exchange starting price")
	backtestCmd.Flags().Float64Var(&btVolatility, "volatility", 15, "synthetic exchange per-minute price step stddev")
	backtestCmd.Flags().Int64Var(&btSeed, "seed", 1, "synthetic exchange random seed")
	backtestCmd.Flags().StringVar(&btDBPath, "db", "", "optional SQLite path to journal closed/cancelled signals to")
	backtestCmd.Flags().StringVar(&btRiskName, "risk-name", "default", "risk.Registry validator set to run: default or conservative")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	position := signal.Long
	if btPosition == "short" {
		position = signal.Short
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	frame := backtest.UniformFrame{Start: base, End: base.Add(time.Duration(btDays) * 24 * time.Hour), Interval: time.Minute}

	exchange := newRandomWalkExchange(base, btStartPrice, btVolatility, btSeed)
	strategy := &openOnceStrategy{
		position: position, takeProfitPct: btTakeProfitPct, stopLossPct: btStopLossPct,
		minuteEstimatedTime: btMinutes, riskName: btRiskName,
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	bus := eventbus.New()

	var sink *sqlitelog.Sink
	if btDBPath != "" {
		var err error
		sink, err = sqlitelog.Open(btDBPath)
		if err != nil {
			return fmt.Errorf("open journal db: %w", err)
		}
		defer sink.Close()
		unsub := sink.Subscribe(bus)
		defer unsub()
	}

	gate := &risk.Gate{Portfolio: risk.NewPortfolio(), Registry: demoRiskRegistry()}
	eng := engine.New(cfg, btSymbol, "open-once", "synthetic", "", true,
		strategy, exchange, persistence.NoopAdapter{}, gate, bus)

	driver, err := backtest.New(cfg, eng, exchange, frame, bus, btSymbol, backtest.Options{})
	if err != nil {
		return fmt.Errorf("build driver: %w", err)
	}

	fmt.Printf("Running backtest: symbol=%s position=%s days=%d tp=%.2f%% sl=%.2f%%\n\n",
		btSymbol, btPosition, btDays, btTakeProfitPct*100, btStopLossPct*100)

	result, err := driver.Run(context.Background(), func(r signal.TickResult) {
		switch r.Kind {
		case signal.KindClosed:
			fmt.Printf("closed  %s at %s  reason=%s pnl=%.2f%%\n", r.Signal.ID, r.Time.Format(time.RFC3339), r.CloseReason, r.PnLPercent)
		case signal.KindCancelled:
			fmt.Printf("cancelled %s at %s  reason=%s\n", r.Signal.ID, r.Time.Format(time.RFC3339), r.CancelReason)
		}
	})
	if err != nil {
		return fmt.Errorf("run backtest: %w", err)
	}

	fmt.Printf("\nBacktest complete: trades=%d wins=%d losses=%d\n", result.Trades, result.Wins, result.Losses)
	return nil
}
