package results

import "math"

// Percentile returns the share of prior scores strictly below score, rounded
// to a whole percent. It reports false when there is nothing to compare with.
func Percentile(score int, prior []int) (int, bool) {
	if len(prior) == 0 {
		return 0, false
	}
	lower := 0
	for _, p := range prior {
		if p < score {
			lower++
		}
	}
	return int(math.Round(float64(lower) * 100 / float64(len(prior)))), true
}
