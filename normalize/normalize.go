// Package normalize canonicalizes query text into stable cache keys. The
// same logical question phrased with different casing, spacing or common
// abbreviations must map to the same key, so normalization runs on the hot
// path of every cache operation and is kept allocation-light.
package normalize

import (
	"sort"
	"strings"
)

// defaultAbbreviations is the built-in expansion table. Keys are matched
// against whitespace-delimited tokens after lowercasing; multi-word keys are
// matched as phrases, longest phrase first.
var defaultAbbreviations = map[string]string{
	"abt":    "about",
	"b/c":    "because",
	"bc":     "because",
	"btw":    "by the way",
	"cfg":    "configuration",
	"config": "configuration",
	"db":     "database",
	"dbs":    "databases",
	"docs":   "documentation",
	"e.g.":   "for example",
	"env":    "environment",
	"faq":    "frequently asked questions",
	"fn":     "function",
	"fns":    "functions",
	"i.e.":   "that is",
	"impl":   "implementation",
	"info":   "information",
	"k8s":    "kubernetes",
	"lang":   "language",
	"libs":   "libraries",
	"msg":    "message",
	"pls":    "please",
	"plz":    "please",
	"repo":   "repository",
	"vs":     "versus",
	"w/":     "with",
	"w/o":    "without",
}

// Normalizer produces canonical text for cache keys. It is immutable after
// construction and safe for concurrent use.
type Normalizer struct {
	phrases   map[string]string // space-joined phrase → expansion
	maxPhrase int               // longest phrase length in words
}

// New creates a Normalizer with the built-in abbreviation table.
func New() *Normalizer {
	return NewWithTable(defaultAbbreviations)
}

// NewWithTable creates a Normalizer with a custom abbreviation table. Keys
// may contain spaces to expand multi-word phrases. Keys are compared after
// lowercasing, so the table itself should use lowercase keys.
func NewWithTable(table map[string]string) *Normalizer {
	n := &Normalizer{phrases: make(map[string]string, len(table))}
	for k, v := range table {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		n.phrases[k] = v
		if words := strings.Count(k, " ") + 1; words > n.maxPhrase {
			n.maxPhrase = words
		}
	}
	return n
}

// Normalize canonicalizes text: trim, ordinal lowercase, collapse interior
// whitespace runs, then expand abbreviations longest-match-first. It is
// total, deterministic and idempotent.
func (n *Normalizer) Normalize(text string) string {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return ""
	}
	return n.expand(words)
}

// expand walks the token stream greedily, trying the longest candidate
// phrase at each position first so that a multi-word abbreviation always
// wins over any of its single-word prefixes.
func (n *Normalizer) expand(words []string) string {
	var b strings.Builder
	for i := 0; i < len(words); {
		matched := false
		limit := min(n.maxPhrase, len(words)-i)
		for span := limit; span >= 1; span-- {
			phrase := strings.Join(words[i:i+span], " ")
			if exp, ok := n.phrases[phrase]; ok {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(exp)
				i += span
				matched = true
				break
			}
		}
		if !matched {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(words[i])
			i++
		}
	}
	return b.String()
}

// Table returns the expansion table entries sorted by key, mainly for
// diagnostics and table golden tests.
func (n *Normalizer) Table() []string {
	keys := make([]string, 0, len(n.phrases))
	for k := range n.phrases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
