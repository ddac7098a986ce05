package strategy

import (
	"fmt"
)

func NewStrategy(strategyType string, config map[string]interface{}) (Strategy, error) {
	switch strategyType {
	case "macd_trend":
		return NewMACDTrend(), nil
	case "ema_cross":
		short, ok1 := config["short_period"].(float64)
		long, ok2 := config["long_period"].(float64)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("invalid config for ema_cross: need short_period and long_period")
		}
		return NewEMACross(int(short), int(long)), nil
	default:
		return nil, fmt.Errorf("unknown strategy type: %s", strategyType)
	}
}
