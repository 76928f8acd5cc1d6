// Package topics maps cluster labels onto persistable topic groups: it
// regroups the flat labeled corpus by label, derives a browsable title from
// each group's first record, and distills a keyword summary from the group's
// texts.
package topics

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/orsinium-labs/stopwords"

	"github.com/topiary-kb/topiary/pkg/export"
)

// Ellipsis marks a truncated topic title.
const Ellipsis = "…"

// maxSummaryKeywords caps the keyword digest stored as a topic's summary.
const maxSummaryKeywords = 8

var englishStopwords = stopwords.MustGet("en")

// Group is all records sharing one topic label, in their original corpus
// order, with their embedding vectors kept aligned for persistence.
type Group struct {
	Label   int
	Records []export.Record
	Vectors [][]float32
}

// ByLabel partitions labeled records into groups ordered ascending by label,
// so the noise group (-1), when present, comes first. Record order within a
// group preserves the corpus order. Vectors may be nil when embeddings are
// not being persisted.
func ByLabel(records []export.Record, vectors [][]float32, labels []int) ([]Group, error) {
	if len(labels) != len(records) {
		return nil, fmt.Errorf("got %d labels for %d records", len(labels), len(records))
	}
	if vectors != nil && len(vectors) != len(records) {
		return nil, fmt.Errorf("got %d vectors for %d records", len(vectors), len(records))
	}

	byLabel := make(map[int]*Group)
	var order []int
	for i, label := range labels {
		g, ok := byLabel[label]
		if !ok {
			g = &Group{Label: label}
			byLabel[label] = g
			order = append(order, label)
		}
		g.Records = append(g.Records, records[i])
		if vectors != nil {
			g.Vectors = append(g.Vectors, vectors[i])
		}
	}

	sort.Ints(order)
	groups := make([]Group, 0, len(order))
	for _, label := range order {
		groups = append(groups, *byLabel[label])
	}
	return groups, nil
}

// Title derives a topic title from text: the text verbatim when it fits,
// otherwise the first maxRunes runes followed by an ellipsis. Truncation
// counts runes, not bytes, so multi-byte text is never split mid-character.
func Title(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + Ellipsis
}

// Summary distills a keyword digest from a group's texts: the most frequent
// non-stopword tokens of length > 2, most frequent first, ties broken by
// first appearance. Returns "" when nothing qualifies (stored as NULL).
func Summary(texts []string) string {
	counts := make(map[string]int)
	var order []string

	for _, text := range texts {
		for _, token := range tokenize(text) {
			if len(token) <= 2 || englishStopwords.Contains(token) {
				continue
			}
			if counts[token] == 0 {
				order = append(order, token)
			}
			counts[token]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > maxSummaryKeywords {
		order = order[:maxSummaryKeywords]
	}
	return strings.Join(order, ", ")
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
