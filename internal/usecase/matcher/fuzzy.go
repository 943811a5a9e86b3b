package matcher

// tokenSetRatio returns the Sørensen-Dice similarity of two token sets in
// [0, 1]. Token order and multiplicity are ignored, so reordered phrasings of
// the same words score 1.0.
func tokenSetRatio(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}

	var inter int
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}

	return 2 * float64(inter) / float64(len(setA)+len(setB))
}
