package llm

import (
	"encoding/json"
	"strings"

	"storyweave/internal/plan"
)

// wireUpdatePlan is the JSON shape requested from the model; fields are
// parsed permissively (missing arrays are simply nil) since malformed
// individual entries, not the whole response, should be dropped.
type wireUpdatePlan struct {
	NodesToUpsert []struct {
		ID         string                 `json:"id"`
		Type       string                 `json:"type"`
		Attributes map[string]interface{} `json:"attributes"`
	} `json:"nodes_to_upsert"`
	EdgesToAdd []struct {
		Source     string                 `json:"source"`
		Target     string                 `json:"target"`
		Label      string                 `json:"label"`
		Attributes map[string]interface{} `json:"attributes"`
	} `json:"edges_to_add"`
	NodesToDelete []struct {
		ID     string `json:"id"`
		Mode   string `json:"mode"`
		Reason string `json:"reason"`
	} `json:"nodes_to_delete"`
	EdgesToDelete []struct {
		Source string `json:"source"`
		Target string `json:"target"`
		Label  string `json:"label"`
		Reason string `json:"reason"`
	} `json:"edges_to_delete"`
}

// stripCodeFence trims surrounding whitespace and a ```json ... ```
// (or bare ```) wrapper, mirroring the teacher's llm.Service response
// cleanup before json.Unmarshal.
func stripCodeFence(response string) string {
	s := strings.TrimSpace(response)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractJSONObject finds the first top-level {...} span in s, tolerant
// of surrounding prose the model may have added despite instructions.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

// parsePlan defensively decodes response into an UpdatePlan, dropping
// malformed individual operations with a warning rather than failing
// the whole parse, per spec §4.6.
func parsePlan(response string) (*plan.UpdatePlan, error) {
	cleaned := extractJSONObject(stripCodeFence(response))

	var wire wireUpdatePlan
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return nil, err
	}

	p := plan.New()
	for _, n := range wire.NodesToUpsert {
		if n.ID == "" {
			p.Warn("dropped node upsert missing id")
			continue
		}
		p.NodesToUpsert = append(p.NodesToUpsert, plan.NodeUpsert{ID: n.ID, Type: n.Type, Attributes: n.Attributes})
	}
	for _, e := range wire.EdgesToAdd {
		if e.Source == "" || e.Target == "" {
			p.Warn("dropped edge missing source/target")
			continue
		}
		p.EdgesToAdd = append(p.EdgesToAdd, plan.EdgeAdd{Source: e.Source, Target: e.Target, Label: e.Label, Attributes: e.Attributes})
	}
	for _, n := range wire.NodesToDelete {
		if n.ID == "" {
			p.Warn("dropped node delete missing id")
			continue
		}
		mode := plan.DeleteSoft
		if n.Mode == string(plan.DeleteHard) {
			mode = plan.DeleteHard
		}
		p.NodesToDelete = append(p.NodesToDelete, plan.NodeDelete{ID: n.ID, Mode: mode, Reason: n.Reason})
	}
	for _, e := range wire.EdgesToDelete {
		if e.Source == "" && e.Target == "" && e.Label == "" {
			p.Warn("dropped edge delete with no fields")
			continue
		}
		p.EdgesToDelete = append(p.EdgesToDelete, plan.EdgeDelete{
			Source: orWildcard(e.Source), Target: orWildcard(e.Target), Label: orWildcard(e.Label), Reason: e.Reason,
		})
	}
	return p, nil
}

func orWildcard(s string) string {
	if s == "" {
		return plan.Wildcard
	}
	return s
}
