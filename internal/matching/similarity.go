package matching

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity scores two normalized names in [0, 1]. It takes the better of the
// plain edit-distance ratio and the ratio over alphabetically sorted tokens, so
// reordered words score as well as the original order.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	plain := ratio(a, b)
	sorted := ratio(tokenSort(a), tokenSort(b))
	return max(plain, sorted)
}

func ratio(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

func tokenSort(s string) string {
	tokens := strings.Fields(s)
	slices.Sort(tokens)
	return strings.Join(tokens, " ")
}

// epithetDistance is the edit distance between everything after the genus.
func epithetDistance(a, b string) int {
	_, restA, _ := strings.Cut(a, " ")
	_, restB, _ := strings.Cut(b, " ")
	return levenshtein.ComputeDistance(restA, restB)
}

// withinLengthBound reports whether two lengths can still reach minScore. The
// edit distance is at least the length difference.
func withinLengthBound(la, lb int, minScore float64) bool {
	longest := max(la, lb)
	if longest == 0 {
		return true
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) <= (1-minScore)*float64(longest)+1e-9
}
