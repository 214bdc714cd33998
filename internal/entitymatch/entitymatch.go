// Package entitymatch implements the Aho-Corasick-backed entity-name
// scanner shared by internal/contextbuild (subject resolution for prompt
// enhancement, spec §4.11 step 1) and internal/extract/rule (known-entity
// lookups for numeric-delta subject resolution, spec §9/§4 SUPPLEMENTED
// FEATURES), so the two call sites compile the same automaton logic
// against the current graph's node set instead of diverging.
package entitymatch

import (
	"sort"
	"strings"
	"unicode"

	"github.com/coregx/ahocorasick"

	"storyweave/internal/graph"
)

// Canonicalize lowercases and collapses runs of non-alphanumeric
// characters to a single space, the normalization applied to both
// patterns and scanned text so offsets stay comparable, grounded on
// KittClouds-Go-Machine-n's implicit-matcher.CanonicalizeForMatch.
func Canonicalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
		} else if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Matcher scans text for node-name substrings using an Aho-Corasick
// automaton rebuilt from a graph's node set, since the node set changes
// turn over turn (unlike the teacher's once-compiled RuntimeDictionary).
type Matcher struct {
	ac              *ahocorasick.Automaton
	patternToNodeID []string
}

// Build compiles an automaton over every non-deleted node's name and id
// as surface forms.
func Build(g *graph.KnowledgeGraph) (*Matcher, error) {
	var patterns []string
	var nodeIDs []string
	seen := map[string]bool{}

	add := func(surface, nodeID string) {
		key := Canonicalize(surface)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		patterns = append(patterns, key)
		nodeIDs = append(nodeIDs, nodeID)
	}

	if g != nil {
		for _, n := range g.AllNodes() {
			if n.Deleted {
				continue
			}
			add(n.Name, n.ID)
			add(n.ID, n.ID)
		}
	}

	if len(patterns) == 0 {
		return &Matcher{}, nil
	}

	ac, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}
	return &Matcher{ac: ac, patternToNodeID: nodeIDs}, nil
}

// span is a suppressed-overlap match in canonicalized coordinates.
type span struct {
	start, end int
	nodeID     string
}

// Scan returns the distinct node IDs mentioned in text, longest match
// first with overlapping matches suppressed, per spec §4.11 step 1.
func (m *Matcher) Scan(text string) []string {
	if m == nil || m.ac == nil {
		return nil
	}
	haystack := []byte(Canonicalize(text))
	raw := m.ac.FindAllOverlapping(haystack)

	spans := make([]span, 0, len(raw))
	for _, r := range raw {
		if r.PatternID < 0 || r.PatternID >= len(m.patternToNodeID) {
			continue
		}
		spans = append(spans, span{start: r.Start, end: r.End, nodeID: m.patternToNodeID[r.PatternID]})
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end-spans[i].start > spans[j].end-spans[j].start // longest first
	})

	var result []string
	seenID := map[string]bool{}
	lastEnd := -1
	for _, s := range spans {
		if s.start < lastEnd {
			continue // overlaps a previously accepted, longer match
		}
		lastEnd = s.end
		if !seenID[s.nodeID] {
			seenID[s.nodeID] = true
			result = append(result, s.nodeID)
		}
	}
	return result
}
