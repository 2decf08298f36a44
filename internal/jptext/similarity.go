package jptext

// Similarity computes the Sørensen–Dice coefficient over character bigrams
// of a and b, in [0, 1]. The result is symmetric: Similarity(a, b) ==
// Similarity(b, a). Inputs are compared as given; callers normalize first.
func Similarity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	ba := bigrams(a)
	bb := bigrams(b)
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}
	overlap := 0
	for gram, count := range ba {
		if other, ok := bb[gram]; ok {
			overlap += min(count, other)
		}
	}
	if overlap == 0 {
		return 0
	}
	sizeA := 0
	for _, count := range ba {
		sizeA += count
	}
	sizeB := 0
	for _, count := range bb {
		sizeB += count
	}
	return 2 * float64(overlap) / float64(sizeA+sizeB)
}

func bigrams(s string) map[string]int {
	runes := []rune(s)
	if len(runes) < 2 {
		return nil
	}
	grams := make(map[string]int, len(runes)-1)
	for i := 0; i+1 < len(runes); i++ {
		grams[string(runes[i:i+2])]++
	}
	return grams
}
