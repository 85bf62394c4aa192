package confluence

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"levelscope/internal/domain/levels"
)

var levelNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("levelscope/levels"))

// levelID is stable for the same symbol, interval, side and price
func levelID(symbol, interval string, side levels.Side, price float64) string {
	name := strings.Join([]string{symbol, interval, string(side), strconv.FormatFloat(price, 'f', 8, 64)}, "|")
	return uuid.NewSHA1(levelNamespace, []byte(name)).String()
}

func formatPrice(p float64) string {
	return humanize.CommafWithDigits(p, 4)
}

// describe renders a one-line summary, e.g.
// "Strong support at 95 (94.6 to 95.4): 3 touches, swing low #21"
func describe(l levels.ScoredLevel) string {
	labels := make([]string, 0, len(l.Breakdown.Factors))
	for _, f := range l.Breakdown.Factors {
		labels = append(labels, f.Label)
	}

	strength := string(l.Strength)
	if strength != "" {
		strength = strings.ToUpper(strength[:1]) + strength[1:]
	}

	return fmt.Sprintf("%s %s at %s (%s to %s): %s",
		strength,
		l.Side,
		formatPrice(l.Price),
		formatPrice(l.Zone.Low),
		formatPrice(l.Zone.High),
		strings.Join(labels, ", "),
	)
}
