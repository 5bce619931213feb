package backtest

import "time"

// UniformFrame is the default engine.FrameProvider: an ordered,
// interval-aligned tick timeline between Start and End (inclusive of Start,
// exclusive of any tick past End), the same for every symbol.
type UniformFrame struct {
	Start, End time.Time
	Interval   time.Duration
}

// GetTimeframe implements engine.FrameProvider.
func (f UniformFrame) GetTimeframe(symbol string) ([]time.Time, error) {
	if f.Interval <= 0 {
		return nil, errIntervalNotPositive
	}
	if !f.End.After(f.Start) {
		return nil, errEndNotAfterStart
	}

	var out []time.Time
	for t := f.Start; !t.After(f.End); t = t.Add(f.Interval) {
		out = append(out, t)
	}
	return out, nil
}

var (
	errIntervalNotPositive = frameError("interval must be positive")
	errEndNotAfterStart    = frameError("end must be after start")
)

type frameError string

func (e frameError) Error() string { return "backtest: " + string(e) }
