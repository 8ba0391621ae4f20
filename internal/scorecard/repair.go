package scorecard

// QuickWinFillers backfill missing quick wins by list position.
var QuickWinFillers = []string{
	"Review item descriptions for upselling",
	"Update menu layout for better flow",
	"Audit seasonal pricing strategy",
	"Introduce a signature high-margin special",
	"Streamline underperforming menu sections",
}

// fallbackQuickWin is used for any position past the end of QuickWinFillers.
const fallbackQuickWin = "Optimize high-margin visibility"

const (
	minComplexity = 1
	maxComplexity = 10
)

// Repair fixes the two fields the model is known to get wrong and returns raw.
// metrics.complexityScore is clamped into [1,10] when it is a number, and
// quickWins is padded to QuickWinCount entries. Nothing else is touched.
func Repair(raw map[string]interface{}) map[string]interface{} {
	if raw == nil {
		return raw
	}

	if metrics, ok := raw["metrics"].(map[string]interface{}); ok {
		if score, ok := metrics["complexityScore"].(float64); ok {
			metrics["complexityScore"] = ClampComplexity(score)
		}
	}

	switch wins := raw["quickWins"].(type) {
	case nil:
		raw["quickWins"] = PadQuickWins(nil)
	case []interface{}:
		raw["quickWins"] = PadQuickWins(wins)
	}

	return raw
}

// ClampComplexity bounds a complexity score to [1,10].
func ClampComplexity(score float64) float64 {
	if score < minComplexity {
		return minComplexity
	}
	if score > maxComplexity {
		return maxComplexity
	}
	return score
}

// PadQuickWins appends fillers until wins has QuickWinCount entries. Existing
// entries keep their positions; the filler for position i is QuickWinFillers[i].
func PadQuickWins(wins []interface{}) []interface{} {
	out := make([]interface{}, len(wins), max(len(wins), QuickWinCount))
	copy(out, wins)
	for len(out) < QuickWinCount {
		out = append(out, fillerAt(len(out)))
	}
	return out
}

func fillerAt(i int) string {
	if i < len(QuickWinFillers) {
		return QuickWinFillers[i]
	}
	return fallbackQuickWin
}
