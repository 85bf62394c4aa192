package indicators

import (
	"math"

	"levelscope/internal/domain/levels"
	"levelscope/pkg/optional"
)

const signalNone = "none"

// computeOverextension measures the stretch of price away from EMA21.
// Absent when EMA21 is.
func (e *Engine) computeOverextension(price float64, ema21 optional.Value[float64], atr levels.ATR) optional.Value[levels.Overextension] {
	ema, ok := ema21.Get()
	if !ok || ema <= 0 {
		return optional.None[levels.Overextension]()
	}

	distance := (price - ema) / ema * 100
	out := levels.Overextension{
		DistancePct:           distance,
		ATRNormalizedDistance: optional.None[float64](),
		Status:                levels.ExtensionNormal,
		Direction:             levels.ExtensionAt,
		SignalType:            signalNone,
	}

	switch {
	case distance > 0:
		out.Direction = levels.ExtensionAbove
	case distance < 0:
		out.Direction = levels.ExtensionBelow
	}

	if pct, ok := atr.Percent.Get(); ok && pct > 0 {
		normalized := math.Abs(distance) / pct
		out.ATRNormalizedDistance = optional.Some(normalized)
		out.Status = e.extensionStatus(normalized)
	}
	out.SignalType = extensionSignal(out.Status, out.Direction)

	return optional.Some(out)
}

func (e *Engine) extensionStatus(normalized float64) levels.ExtensionStatus {
	switch {
	case normalized >= e.cfg.ExtensionExtremeFrom:
		return levels.ExtensionExtreme
	case normalized >= e.cfg.ExtensionOverFrom:
		return levels.ExtensionOverextend
	case normalized >= e.cfg.ExtensionModerateFrom:
		return levels.ExtensionModerate
	default:
		return levels.ExtensionNormal
	}
}

func extensionSignal(status levels.ExtensionStatus, direction levels.ExtensionDirection) string {
	if direction == levels.ExtensionAt {
		return signalNone
	}
	above := direction == levels.ExtensionAbove

	switch status {
	case levels.ExtensionModerate:
		if above {
			return "watch_pullback"
		}
		return "watch_bounce"
	case levels.ExtensionOverextend, levels.ExtensionExtreme:
		if above {
			return "pullback_likely"
		}
		return "bounce_likely"
	default:
		return signalNone
	}
}
