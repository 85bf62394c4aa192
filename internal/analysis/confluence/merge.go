package confluence

import (
	"sort"
	"strconv"
	"strings"

	"levelscope/internal/domain/levels"
)

// cluster is a group of overlapping candidates
type cluster struct {
	zone   levels.Zone
	prices []float64
	tags   map[levels.FactorKind]levels.FactorTag
}

func (c *cluster) absorb(cand levels.CandidateLevel) {
	c.zone = c.zone.Union(cand.Zone)
	c.prices = append(c.prices, cand.Price)
	for _, tag := range cand.Tags {
		c.tags[tag.Kind] = maxTag(c.tags, tag)
	}
}

// price is the mean of member prices
func (c *cluster) price() float64 {
	sum := 0.0
	for _, p := range c.prices {
		sum += p
	}
	return sum / float64(len(c.prices))
}

// sortedTags returns tags in a stable kind order
func (c *cluster) sortedTags() []levels.FactorTag {
	tags := make([]levels.FactorTag, 0, len(c.tags))
	for _, t := range c.tags {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Kind < tags[j].Kind })
	return tags
}

func tagKey(cand levels.CandidateLevel) string {
	parts := make([]string, 0, len(cand.Tags))
	for _, t := range cand.Tags {
		parts = append(parts, string(t.Kind)+":"+t.Label+":"+strconv.FormatFloat(t.Intensity, 'g', -1, 64))
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// mergeCandidates sorts candidates into a total order and sweeps once,
// folding every candidate whose zone touches the running cluster into it.
// Bounds are inclusive. The result does not depend on input order.
func mergeCandidates(cands []levels.CandidateLevel) []*cluster {
	sorted := make([]levels.CandidateLevel, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		switch {
		case a.Zone.Low != b.Zone.Low:
			return a.Zone.Low < b.Zone.Low
		case a.Zone.High != b.Zone.High:
			return a.Zone.High < b.Zone.High
		case a.Price != b.Price:
			return a.Price < b.Price
		default:
			return tagKey(a) < tagKey(b)
		}
	})

	clusters := make([]*cluster, 0, len(sorted))
	var current *cluster
	for _, cand := range sorted {
		if current != nil && cand.Zone.Low <= current.zone.High {
			current.absorb(cand)
			continue
		}
		current = &cluster{
			zone: cand.Zone,
			tags: make(map[levels.FactorKind]levels.FactorTag, len(cand.Tags)),
		}
		current.absorb(cand)
		clusters = append(clusters, current)
	}

	return clusters
}

// maxTag keeps the stronger of two same-kind tags, breaking ties by label
func maxTag(tags map[levels.FactorKind]levels.FactorTag, tag levels.FactorTag) levels.FactorTag {
	existing, ok := tags[tag.Kind]
	if !ok || tag.Intensity > existing.Intensity ||
		(tag.Intensity == existing.Intensity && tag.Label < existing.Label) {
		return tag
	}
	return existing
}
