package match

import (
	"fmt"
	"math"
	"path"
	"strings"
)

// Similarity scores how alike two keys are: the number of equal leading path
// segments plus the number of equal trailing segments, never counting a
// segment twice. Identical keys score math.MaxInt.
func Similarity(a, b string) int {
	if a == b {
		return math.MaxInt
	}
	as := segments(a)
	bs := segments(b)
	limit := min(len(as), len(bs))

	prefix := 0
	for prefix < limit && as[prefix] == bs[prefix] {
		prefix++
	}

	suffix := 0
	for suffix < limit-prefix && as[len(as)-1-suffix] == bs[len(bs)-1-suffix] {
		suffix++
	}

	return prefix + suffix
}

// BestMatch returns the index of the candidate key most similar to target.
// Ties are broken by input order (first seen wins); -1 means no candidates.
func BestMatch(target string, candidates []string) int {
	best, bestScore := -1, -1
	for i, c := range candidates {
		if score := Similarity(target, c); score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

func segments(key string) []string {
	var result []string
	for _, s := range strings.Split(key, "/") {
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}

// AlternativeName returns "stem (n).ext" for the smallest n >= 1 that is not in used
func AlternativeName(name string, used map[string]bool) string {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		// dot files such as ".drive-meta" keep the whole name as stem
		stem, ext = name, ""
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if !used[candidate] {
			return candidate
		}
	}
}
