package insights

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/kernel/mindmap/internal/outline"
	"github.com/samber/lo"
)

const (
	maxKeywords    = 10
	maxBranches    = 8
	maxConnections = 5
	maxMissing     = 4
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true, "should": true,
	"could": true, "can": true, "may": true, "might": true, "must": true,
	"this": true, "that": true, "these": true, "those": true,
}

var suggestions = []string{
	"Implementation challenges",
	"Best practices",
	"Future considerations",
	"Related technologies",
	"Common pitfalls",
	"Success metrics",
	"Timeline considerations",
	"Resource requirements",
}

var punctuation = regexp.MustCompile(`[^\w\s]`)

// Local analyzes doc without a model. texts are the distinct labels of doc;
// nil derives them.
func Local(doc outline.Document, texts []string) Insights {
	if texts == nil {
		texts = topics(doc)
	}
	if len(texts) == 0 {
		return Fallback()
	}
	keywords := Keywords(texts)
	branches := mainBranches(doc)
	return Insights{
		MainBranches:         branches,
		SuggestedConnections: connections(texts, keywords),
		MissingTopics:        missing(keywords),
		Summary: fmt.Sprintf(
			"This mind map contains %d nodes across %d main branches. Key themes include: %s. The map covers %d primary topics with varying levels of detail.",
			len(texts), len(branches), strings.Join(lo.Slice(keywords, 0, 3), ", "), len(branches)),
		Source: SourceLocal,
	}
}

// Keywords returns the most frequent words longer than two letters that
// are not stop words, most frequent first; ties keep first appearance.
func Keywords(texts []string) []string {
	counts := map[string]int{}
	var order []string
	for _, text := range texts {
		for _, w := range strings.Fields(punctuation.ReplaceAllString(strings.ToLower(text), "")) {
			if len(w) <= 2 || stopWords[w] {
				continue
			}
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}
	slices.SortStableFunc(order, func(a, b string) int { return counts[b] - counts[a] })
	return lo.Slice(order, 0, maxKeywords)
}

func mainBranches(doc outline.Document) []string {
	branches := lo.FilterMap(doc, func(e outline.Entry, _ int) (string, bool) {
		return e.Label, e.Depth <= 1 && strings.TrimSpace(e.Label) != ""
	})
	return lo.Slice(lo.Uniq(branches), 0, maxBranches)
}

func connections(texts, keywords []string) []Connection {
	out := []Connection{}
	for i := 0; i < len(texts) && len(out) < maxConnections; i++ {
		for j := i + 1; j < len(texts) && len(out) < maxConnections; j++ {
			if common := commonKeywords(texts[i], texts[j], keywords); len(common) > 0 {
				out = append(out, Connection{
					From:   texts[i],
					To:     texts[j],
					Reason: "Share common concepts: " + strings.Join(common, ", "),
				})
			}
		}
	}
	return out
}

func commonKeywords(a, b string, keywords []string) []string {
	wa := lo.Keyify(strings.Fields(strings.ToLower(a)))
	wb := lo.Keyify(strings.Fields(strings.ToLower(b)))
	return lo.Filter(keywords, func(k string, _ int) bool {
		_, inA := wa[k]
		_, inB := wb[k]
		return inA && inB
	})
}

// missing suggests generic topics whose lead word is not already a keyword.
func missing(keywords []string) []string {
	have := lo.Keyify(keywords)
	out := lo.Filter(suggestions, func(s string, _ int) bool {
		_, ok := have[strings.ToLower(strings.Fields(s)[0])]
		return !ok
	})
	return lo.Slice(out, 0, maxMissing)
}
