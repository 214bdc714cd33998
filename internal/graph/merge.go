package graph

// mergeResult carries the log-worthy overwrites (location/status
// changes per the conflict-resolution table in spec.md §4.1) of one
// merge; the merged attribute map itself is returned separately.
type mergeResult struct {
	attrs []logEntry
}

type logEntry struct {
	key      string
	oldValue interface{}
	newValue interface{}
}

var healthLikeKeys = map[string]struct{}{
	"health":  {},
	"hp":      {},
	"current_hp": {},
	"current_health": {},
}

var maxGrowthKeys = map[string]struct{}{
	"max_health": {},
	"level":      {},
	"experience": {},
}

var lastWriteWinsLoggedKeys = map[string]struct{}{
	"location": {},
	"status":   {},
}

// mergeAttributes combines an existing node's attributes with an
// incoming set per spec.md §4.1's per-attribute conflict-resolution
// table. existing is never mutated; the returned map is new.
func mergeAttributes(existing, incoming map[string]interface{}) (map[string]interface{}, []logEntry) {
	merged := make(map[string]interface{}, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}

	var logs []logEntry
	for key, newVal := range incoming {
		oldVal, hadOld := existing[key]
		if !hadOld {
			merged[key] = newVal
			continue
		}

		switch {
		case isHealthLike(key):
			merged[key] = clampHealth(newVal, incoming["max_health"], existing["max_health"])
		case isMaxGrowth(key):
			merged[key] = maxNumeric(oldVal, newVal)
		case isListValued(oldVal, newVal):
			merged[key] = unionStringList(oldVal, newVal)
		case isLastWriteWinsLogged(key):
			merged[key] = newVal
			if !equalScalar(oldVal, newVal) {
				logs = append(logs, logEntry{key: key, oldValue: oldVal, newValue: newVal})
			}
		default:
			merged[key] = newVal
		}
	}
	return merged, logs
}

func isHealthLike(key string) bool {
	_, ok := healthLikeKeys[key]
	return ok
}

func isMaxGrowth(key string) bool {
	_, ok := maxGrowthKeys[key]
	return ok
}

func isLastWriteWinsLogged(key string) bool {
	_, ok := lastWriteWinsLoggedKeys[key]
	return ok
}

func isListValued(old, new interface{}) bool {
	_, oldIsList := toStringList(old)
	_, newIsList := toStringList(new)
	return oldIsList && newIsList
}

func toStringList(v interface{}) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// unionStringList set-unions two list-valued attributes, preserving
// first-seen order and removing duplicates.
func unionStringList(old, new interface{}) []string {
	oldList, _ := toStringList(old)
	newList, _ := toStringList(new)
	seen := make(map[string]struct{}, len(oldList)+len(newList))
	out := make([]string, 0, len(oldList)+len(newList))
	for _, v := range append(append([]string{}, oldList...), newList...) {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func maxNumeric(old, new interface{}) interface{} {
	oldF, oldOK := toFloat(old)
	newF, newOK := toFloat(new)
	if !oldOK {
		return new
	}
	if !newOK {
		return old
	}
	if newF > oldF {
		return new
	}
	return old
}

// clampHealth returns newVal clamped to [0, maxHealth] when a
// max_health value is available from either the incoming plan entry or
// the existing node; otherwise it passes newVal through unclamped.
func clampHealth(newVal, incomingMax, existingMax interface{}) interface{} {
	newF, ok := toFloat(newVal)
	if !ok {
		return newVal
	}
	maxF, hasMax := toFloat(incomingMax)
	if !hasMax {
		maxF, hasMax = toFloat(existingMax)
	}
	if newF < 0 {
		newF = 0
	}
	if hasMax && newF > maxF {
		newF = maxF
	}
	return sameNumericType(newVal, newF)
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

// sameNumericType mirrors the original value's numeric representation so
// callers round-tripping through JSON see a stable type (float64).
func sameNumericType(original interface{}, f float64) interface{} {
	switch original.(type) {
	case int, int64:
		return int64(f)
	default:
		return f
	}
}

func equalScalar(a, b interface{}) bool {
	return a == b
}
