package forecast

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

const (
	// A projected score below this triggers the negative dip alert.
	dipThreshold = -0.2
	// A day-over-day jump above this triggers the surge alert.
	surgeThreshold = 0.4
)

// Alerts derives notification messages from a forecast. The dip and surge
// rules scan only the horizon tail (the last horizon points); the trend and
// average lines always fire when enough points exist.
func Alerts(points []Point, horizon int) []string {
	if len(points) == 0 {
		return nil
	}

	var messages []string

	tail := points
	if horizon > 0 && horizon < len(points) {
		tail = points[len(points)-horizon:]
	}

	for _, p := range tail {
		if p.YHat < dipThreshold {
			messages = append(messages, fmt.Sprintf(
				"Negative sentiment predicted around %s (yhat=%.2f)",
				p.Date.Format("2006-01-02"), p.YHat))
			break
		}
	}

	for i := 1; i < len(tail); i++ {
		delta := tail[i].YHat - tail[i-1].YHat
		if delta > surgeThreshold {
			messages = append(messages, fmt.Sprintf(
				"Sentiment surge expected around %s (+%.2f)",
				tail[i].Date.Format("2006-01-02"), delta))
			break
		}
	}

	if len(points) >= 2 {
		change := points[len(points)-1].YHat - points[len(points)-2].YHat
		switch {
		case change > 0:
			messages = append(messages, fmt.Sprintf(
				"Sentiment slightly improving (+%.2f). AI coverage showing mild optimism.", change))
		case change < 0:
			messages = append(messages, fmt.Sprintf(
				"Sentiment slightly declining (%.2f). Monitor AI trends closely.", change))
		default:
			messages = append(messages, fmt.Sprintf(
				"Sentiment stable (change %.2f). No major fluctuations.", change))
		}
	}

	yhats := make([]float64, len(points))
	for i, p := range points {
		yhats[i] = p.YHat
	}
	messages = append(messages, fmt.Sprintf(
		"Forecast complete. Average sentiment level: %.2f", stat.Mean(yhats, nil)))

	return messages
}
