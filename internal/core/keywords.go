// ABOUTME: Keyword extraction for summarized and chat digests
// ABOUTME: Case-folds, tokenizes, drops stopwords and ranks by frequency
package core

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

var tokenSplitPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

var stopwords = func() map[string]struct{} {
	words := strings.Fields(`
		a about above after again against all also am an and any are aren as at
		be because been before being below between both but by can cannot could
		did do does doing done don down during each else even ever every few for
		from further get gets getting go going gone got had has have having he her
		here hers herself him himself his how however i if in into is isn it its
		itself just know like lot make many may me might more most much must my
		myself need no nor not now of off on once one only or other our ours
		ourselves out over own really right said same say says see she should so
		some such than that the their theirs them themselves then there these they
		thing things think this those though through to too under until up us very
		want was wasn way we well were weren what when where which while who whom
		why will with would yeah yes yet you your yours yourself yourselves okay
		speaker recording break truncated gonna kind sort actually maybe
	`)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}()

// Tokenize splits text into case-folded tokens of at least three runes
func Tokenize(text string) []string {
	folded := cases.Fold().String(text)
	raw := tokenSplitPattern.Split(folded, -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		if utf8.RuneCountInString(token) < 3 {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// TopKeywords returns up to k non-stopword terms by descending frequency,
// ties broken alphabetically. Purely numeric tokens are skipped.
func TopKeywords(text string, k int) []string {
	if k <= 0 {
		return []string{}
	}
	counts := make(map[string]int)
	for _, tok := range Tokenize(text) {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if isNumeric(tok) {
			continue
		}
		counts[tok]++
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > k {
		terms = terms[:k]
	}
	return terms
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
