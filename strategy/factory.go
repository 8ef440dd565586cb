package strategy

import "fmt"

// Default parameter sets per strategy name. Windows follow the common
// charting conventions; entry/exit thresholds match the tuned values
// the simulator ships with.
const (
	DefaultRSIPeriod  = 14
	DefaultOversold   = 30.0
	DefaultOverbought = 70.0

	DefaultFastPeriod   = 12
	DefaultSlowPeriod   = 26
	DefaultSignalPeriod = 9

	DefaultShortWindow = 50
	DefaultLongWindow  = 200
	DefaultMAType      = "SMA"

	DefaultBollingerPeriod = 20
	DefaultBollingerStdDev = 2.0

	DefaultLookback = 20
	DefaultZEntry   = 2.0
	DefaultZExit    = 0.5
)

// Default builds the named strategy with its default parameters.
func Default(name string) (Strategy, error) {
	switch name {
	case "rsi":
		return NewRSIStrategy(DefaultRSIPeriod, DefaultOversold, DefaultOverbought)
	case "macd":
		return NewMACDStrategy(DefaultFastPeriod, DefaultSlowPeriod, DefaultSignalPeriod)
	case "ma-crossover":
		return NewMACrossoverStrategy(DefaultShortWindow, DefaultLongWindow, DefaultMAType)
	case "bollinger":
		return NewBollingerStrategy(DefaultBollingerPeriod, DefaultBollingerStdDev)
	case "mean-reversion":
		return NewMeanReversionStrategy(DefaultLookback, DefaultZEntry, DefaultZExit)
	default:
		return nil, fmt.Errorf("unknown strategy: %q", name)
	}
}
