package w2

import "math"

// Completeness weights. Required fields dominate.
const (
	RequiredWeight  = 0.7
	ImportantWeight = 0.3
)

// Score rates how complete c is, in [0, 1].
func Score(c Candidate) float64 {
	if c == nil {
		return 0
	}
	req := countPresent(c, RequiredFields)
	imp := countPresent(c, ImportantFields)
	score := RequiredWeight*float64(req)/float64(len(RequiredFields)) +
		ImportantWeight*float64(imp)/float64(len(ImportantFields))
	return math.Max(0, math.Min(1, score))
}

func countPresent(c Candidate, fields []string) int {
	n := 0
	for _, f := range fields {
		if c.Has(f) {
			n++
		}
	}
	return n
}
