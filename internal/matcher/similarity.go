package matcher

import (
	"math"
	"sort"
	"strings"
)

// tokenSet is the sorted, deduplicated token list of a name
type tokenSet []string

func newTokenSet(s string) tokenSet {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return nil
	}

	sort.Strings(fields)
	set := fields[:1]
	for _, f := range fields[1:] {
		if f != set[len(set)-1] {
			set = append(set, f)
		}
	}
	return set
}

// TokenSetRatio scores two names from 0 to 100 by comparing their token sets.
// The score ignores token order and repetition and is symmetric. Names sharing
// tokens where one set contains the other score 100; an empty side scores 0.
func TokenSetRatio(a, b string) int {
	return tokenSetRatio(newTokenSet(a), newTokenSet(b))
}

func tokenSetRatio(a, b tokenSet) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var sect, onlyA, onlyB []string
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			sect = append(sect, a[i])
			i++
			j++
		case a[i] < b[j]:
			onlyA = append(onlyA, a[i])
			i++
		default:
			onlyB = append(onlyB, b[j])
			j++
		}
	}
	onlyA = append(onlyA, a[i:]...)
	onlyB = append(onlyB, b[j:]...)

	if len(sect) > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 100
	}

	sectStr := strings.Join(sect, " ")
	combinedA := joinNonEmpty(sectStr, strings.Join(onlyA, " "))
	combinedB := joinNonEmpty(sectStr, strings.Join(onlyB, " "))

	best := ratio(combinedA, combinedB)
	if sectStr != "" {
		best = math.Max(best, ratio(sectStr, combinedA))
		best = math.Max(best, ratio(sectStr, combinedB))
	}

	return int(math.RoundToEven(best))
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

// ratio is the normalized insertion/deletion similarity of two strings:
// twice the longest common subsequence over the combined length, as a percentage.
func ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	return float64(200*longestCommonSubsequence(ra, rb)) / float64(total)
}

func longestCommonSubsequence(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
