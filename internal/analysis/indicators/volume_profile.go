package indicators

import (
	"math"

	"levelscope/internal/domain/levels"
	"levelscope/internal/domain/market_data"
	"levelscope/pkg/optional"
)

// computeVolumeProfile distributes each bar's volume into the price bin of
// its typical price, then derives POC, value area and high-volume nodes.
func (e *Engine) computeVolumeProfile(bars []market_data.Bar) levels.VolumeProfile {
	profile := levels.VolumeProfile{
		POC:           optional.None[float64](),
		ValueAreaHigh: optional.None[float64](),
		ValueAreaLow:  optional.None[float64](),
		Nodes:         make([]levels.VolumeNode, 0),
	}

	minPrice, maxPrice := bars[0].Low, bars[0].High
	for _, bar := range bars {
		if bar.Low < minPrice {
			minPrice = bar.Low
		}
		if bar.High > maxPrice {
			maxPrice = bar.High
		}
	}

	bins := e.cfg.VolumeBins
	priceRange := maxPrice - minPrice
	if priceRange <= 0 {
		bins = 1
	}
	binSize := priceRange / float64(bins)
	profile.Bins = bins

	volumeByPrice := make([]float64, bins)
	for _, bar := range bars {
		binIndex := 0
		if binSize > 0 {
			binIndex = int((bar.TypicalPrice() - minPrice) / binSize)
		}
		if binIndex < 0 {
			binIndex = 0
		}
		if binIndex >= bins {
			binIndex = bins - 1
		}
		volumeByPrice[binIndex] += bar.Volume
		profile.TotalVolume += bar.Volume
	}

	// Volumes near MaxFloat64 overflow the sum; no profile is better than NaN intensities.
	if math.IsInf(profile.TotalVolume, 0) {
		profile.TotalVolume = 0
		return profile
	}
	if profile.TotalVolume <= 0 {
		return profile
	}

	binLow := func(i int) float64 { return minPrice + float64(i)*binSize }
	binMid := func(i int) float64 { return minPrice + (float64(i)+0.5)*binSize }

	// Point of Control: first bin with the highest volume
	pocIndex := 0
	for i, vol := range volumeByPrice {
		if vol > volumeByPrice[pocIndex] {
			pocIndex = i
		}
	}
	pocVolume := volumeByPrice[pocIndex]
	profile.POC = optional.Some(binMid(pocIndex))

	// Value Area: expand from POC toward the heavier neighbour
	targetVolume := profile.TotalVolume * e.cfg.ValueAreaPct
	valueAreaVolume := pocVolume
	vaHigh, vaLow := pocIndex, pocIndex
	for valueAreaVolume < targetVolume && (vaHigh < bins-1 || vaLow > 0) {
		nextHighVol := -1.0
		if vaHigh < bins-1 {
			nextHighVol = volumeByPrice[vaHigh+1]
		}
		nextLowVol := -1.0
		if vaLow > 0 {
			nextLowVol = volumeByPrice[vaLow-1]
		}

		if nextHighVol >= nextLowVol {
			vaHigh++
			valueAreaVolume += nextHighVol
		} else {
			vaLow--
			valueAreaVolume += nextLowVol
		}
	}
	profile.ValueAreaHigh = optional.Some(binLow(vaHigh + 1))
	profile.ValueAreaLow = optional.Some(binLow(vaLow))

	meanVolume := profile.TotalVolume / float64(bins)
	for i, vol := range volumeByPrice {
		if vol <= 0 || vol < e.cfg.HighVolumeNodeRatio*meanVolume {
			continue
		}
		profile.Nodes = append(profile.Nodes, levels.VolumeNode{
			Price:     binMid(i),
			Low:       binLow(i),
			High:      binLow(i + 1),
			Volume:    vol,
			Intensity: vol / pocVolume,
		})
	}

	return profile
}
