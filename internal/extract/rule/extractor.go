// Package rule implements the rule-based Extractor variant of spec §4.6:
// a closed pattern taxonomy over the combined turn text, with no
// external service call and no failure mode other than "found nothing".
// It is also the fallback path when the LLM extractor is unavailable or
// errors, per spec §4.6's selection rule.
package rule

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"storyweave/internal/entitymatch"
	"storyweave/internal/graph"
	"storyweave/internal/plan"
)

// Extractor is the rule-based Extractor implementation. It holds no
// state across calls; a single instance may be shared across sessions.
type Extractor struct{}

// New returns a ready-to-use rule Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Analyze never errors: an unrecognized turn simply produces an empty
// plan, matching spec §4.7/§7's "best-effort, degrade gracefully"
// requirement for extraction.
func (e *Extractor) Analyze(_ context.Context, userText, assistantText string, g *graph.KnowledgeGraph, _ string) (*plan.UpdatePlan, error) {
	p := plan.New()
	text := userText + "\n" + assistantText

	characterMentions := scanCharacterMentions(text, g)
	upserted := map[string]struct{}{}

	addUpsert := func(id, kind string, attrs map[string]interface{}) {
		if _, ok := upserted[id]; ok {
			return
		}
		upserted[id] = struct{}{}
		p.NodesToUpsert = append(p.NodesToUpsert, plan.NodeUpsert{ID: id, Type: kind, Attributes: attrs})
	}

	for _, ep := range entityPatterns {
		for _, m := range ep.re.FindAllStringSubmatch(text, -1) {
			name := strings.TrimSpace(m[len(m)-1])
			if ep.kind == "character" {
				name = strings.TrimSpace(m[1])
			}
			if name == "" {
				continue
			}
			id := slugify(name, ep.kind)
			attrs := map[string]interface{}{"name": name}
			if ep.kind == "character" && len(m) > 2 {
				attrs["class"] = m[2]
			}
			addUpsert(id, ep.kind, attrs)
		}
	}

	applyNumericDeltas(p, text, characterMentions, addUpsert)
	applyRelations(p, text, g, addUpsert)
	applyDeletions(p, text)

	return p, nil
}

// mention is one character name found in text, at a byte offset, used
// for subject resolution on numeric deltas per spec §9's recommendation.
type mention struct {
	name   string
	offset int
}

// scanCharacterMentions finds candidate character names: known character
// nodes from the graph (via the shared Aho-Corasick entity matcher, the
// same automaton internal/contextbuild uses for subject scanning), plus
// "<Name> the <Class>" introductions. The slice is not sorted; each
// mention carries its byte offset for nearestSubjectBefore.
func scanCharacterMentions(text string, g *graph.KnowledgeGraph) []mention {
	var mentions []mention

	if g != nil {
		if matcher, err := entitymatch.Build(g); err == nil {
			lower := strings.ToLower(text)
			for _, id := range matcher.Scan(text) {
				n := g.GetNode(id)
				if n == nil || n.Type != graph.KindCharacter || n.Name == "" {
					continue
				}
				if offset := strings.Index(lower, strings.ToLower(n.Name)); offset >= 0 {
					mentions = append(mentions, mention{name: n.Name, offset: offset})
				}
			}
		}
	}

	for _, m := range entityPatterns[0].re.FindAllStringSubmatchIndex(text, -1) {
		mentions = append(mentions, mention{name: text[m[2]:m[3]], offset: m[0]})
	}
	return mentions
}

// nearestSubjectBefore returns the character name most recently
// mentioned before offset, or "self" if none was mentioned — the
// resolved subject-resolution behavior from spec §9/§4 (SPEC_FULL).
func nearestSubjectBefore(mentions []mention, offset int) string {
	best := ""
	bestOffset := -1
	for _, m := range mentions {
		if m.offset <= offset && m.offset > bestOffset {
			best = m.name
			bestOffset = m.offset
		}
	}
	if best == "" {
		return "self"
	}
	return best
}

func applyNumericDeltas(p *plan.UpdatePlan, text string, mentions []mention, addUpsert func(id, kind string, attrs map[string]interface{})) {
	for _, dp := range numericDeltaPatterns {
		for _, m := range dp.re.FindAllStringSubmatchIndex(text, -1) {
			subject := nearestSubjectBefore(mentions, m[0])
			id := slugify(subject, "character")
			// The amount is the pattern's last capture group; "level up"
			// phrasing may omit it, which counts as 1.
			amount := 1.0
			if last := len(m) - 2; last >= 2 && m[last] != -1 {
				if v, err := strconv.Atoi(text[m[last]:m[last+1]]); err == nil {
					amount = float64(v)
				}
			}
			delta := dp.sign * amount
			addUpsert(id, "character", map[string]interface{}{"name": subject})
			p.NodesToUpsert = append(p.NodesToUpsert, plan.NodeUpsert{
				ID: id, Type: "character",
				Attributes: map[string]interface{}{dp.attribute: delta, "_delta": true},
			})
		}
	}
}

func applyRelations(p *plan.UpdatePlan, text string, g *graph.KnowledgeGraph, addUpsert func(id, kind string, attrs map[string]interface{})) {
	for _, rp := range relationPatterns {
		for _, m := range rp.re.FindAllStringSubmatch(text, -1) {
			subject := strings.TrimSpace(m[1])
			object := strings.TrimSpace(m[2])
			if subject == "" || object == "" {
				continue
			}
			subjectID := slugify(subject, "character")
			objectKind := inferObjectKind(rp.label)
			objectID := slugify(object, objectKind)
			addUpsert(subjectID, "character", map[string]interface{}{"name": subject})
			addUpsert(objectID, objectKind, map[string]interface{}{"name": object})
			p.EdgesToAdd = append(p.EdgesToAdd, plan.EdgeAdd{Source: subjectID, Target: objectID, Label: rp.label})
		}
	}
}

func inferObjectKind(label string) string {
	switch label {
	case "member_of", "leader_of":
		return "organization"
	case "located_in", "guards":
		return "location"
	case "equipped_with":
		return "item"
	default:
		return "character"
	}
}

func applyDeletions(p *plan.UpdatePlan, text string) {
	for _, dp := range deletionPatterns {
		for _, m := range dp.re.FindAllStringSubmatch(text, -1) {
			switch dp.kind {
			case deletionCharacterDeath:
				id := slugify(m[1], "character")
				p.NodesToDelete = append(p.NodesToDelete, plan.NodeDelete{ID: id, Mode: plan.DeleteSoft, Reason: "death"})
			case deletionItemLost:
				id := slugify(m[2], "item")
				p.NodesToDelete = append(p.NodesToDelete, plan.NodeDelete{ID: id, Mode: plan.DeleteHard, Reason: "lost"})
			case deletionItemStolen:
				itemID := slugify(m[2], "item")
				p.EdgesToDelete = append(p.EdgesToDelete, plan.EdgeDelete{
					Source: plan.Wildcard, Target: itemID, Label: "equipped_with", Reason: "stolen",
				})
				thiefID := slugify(m[1], "character")
				p.EdgesToAdd = append(p.EdgesToAdd, plan.EdgeAdd{Source: thiefID, Target: itemID, Label: "equipped_with"})
			case deletionRelationshipBroken:
				aID, bID := slugify(m[1], "character"), slugify(m[2], "character")
				p.EdgesToDelete = append(p.EdgesToDelete,
					plan.EdgeDelete{Source: aID, Target: bID, Label: plan.Wildcard, Reason: "relationship broken"},
					plan.EdgeDelete{Source: bID, Target: aID, Label: plan.Wildcard, Reason: "relationship broken"},
				)
			case deletionLeftOrganization:
				aID, orgID := slugify(m[1], "character"), slugify(m[2], "organization")
				p.EdgesToDelete = append(p.EdgesToDelete, plan.EdgeDelete{Source: aID, Target: orgID, Label: "member_of", Reason: "left organization"})
			case deletionLeftLocation:
				aID, locID := slugify(m[1], "character"), slugify(m[2], "location")
				p.EdgesToDelete = append(p.EdgesToDelete, plan.EdgeDelete{Source: aID, Target: locID, Label: "located_in", Reason: "left location"})
			}
		}
	}
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9_]+`)

// slugify derives a deterministic ID from the matched phrase alone,
// stabilizing cross-turn identity. No type prefix is added: kind is used
// only as the ID when the phrase slugs to an empty string, so entities
// of different kinds with the same name share one ID.
func slugify(name, kind string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "'", "")
	s = nonSlugChars.ReplaceAllString(s, "")
	s = strings.Trim(s, "_")
	if s == "" {
		s = kind
	}
	return s
}
