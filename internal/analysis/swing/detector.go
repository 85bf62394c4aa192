package swing

import (
	"levelscope/internal/domain/levels"
	"levelscope/internal/domain/market_data"
)

// Detector finds pivot highs and lows
type Detector struct {
	window int
}

// NewDetector creates a detector comparing each bar with `window` bars on each side
func NewDetector(window int) *Detector {
	if window < 1 {
		window = 1
	}
	return &Detector{window: window}
}

// Find returns swing points ordered by index.
// A bar is a swing high when its high beats every high `window` bars to the
// left and is not beaten by any high `window` bars to the right, so on a
// plateau the earliest bar wins. Swing lows are symmetric. A single bar can
// be both.
func (d *Detector) Find(bars []market_data.Bar) []levels.SwingPoint {
	points := make([]levels.SwingPoint, 0)
	w := d.window

	for i := w; i < len(bars)-w; i++ {
		bar := bars[i]

		if d.isSwingHigh(bars, i) {
			points = append(points, levels.SwingPoint{
				Index: i,
				Time:  bar.Time,
				Price: bar.High,
				Kind:  levels.SwingHigh,
			})
		}
		if d.isSwingLow(bars, i) {
			points = append(points, levels.SwingPoint{
				Index: i,
				Time:  bar.Time,
				Price: bar.Low,
				Kind:  levels.SwingLow,
			})
		}
	}

	return points
}

func (d *Detector) isSwingHigh(bars []market_data.Bar, i int) bool {
	high := bars[i].High
	for j := 1; j <= d.window; j++ {
		if bars[i-j].High >= high || bars[i+j].High > high {
			return false
		}
	}
	return true
}

func (d *Detector) isSwingLow(bars []market_data.Bar, i int) bool {
	low := bars[i].Low
	for j := 1; j <= d.window; j++ {
		if bars[i-j].Low <= low || bars[i+j].Low < low {
			return false
		}
	}
	return true
}

// Leg is a move between a swing high and a swing low
type Leg struct {
	High      levels.SwingPoint
	Low       levels.SwingPoint
	Direction levels.LegDirection
}

// MovePct is the leg size relative to the low, in percent
func (l Leg) MovePct() float64 {
	return (l.High.Price - l.Low.Price) / l.Low.Price * 100
}

// SelectLeg picks the most recent high→low or low→high leg whose move is at
// least minMovePct. Walking back from the latest swing, each swing is paired
// with the closest earlier swing of the opposite kind.
func SelectLeg(points []levels.SwingPoint, minMovePct float64) (Leg, bool) {
	for end := len(points) - 1; end > 0; end-- {
		last := points[end]
		for start := end - 1; start >= 0; start-- {
			first := points[start]
			if first.Kind == last.Kind || first.Index >= last.Index {
				continue
			}

			leg := Leg{Direction: levels.LegUp, High: last, Low: first}
			if first.Kind == levels.SwingHigh {
				leg = Leg{Direction: levels.LegDown, High: first, Low: last}
			}
			if leg.Low.Price > 0 && leg.High.Price > leg.Low.Price && leg.MovePct() >= minMovePct {
				return leg, true
			}
			break
		}
	}
	return Leg{}, false
}
