package session

import "encoding/json"

// flatKeys returns the set of leaf key names in a JSON object, descending
// into nested objects. Arrays and nulls count as leaves; parent keys of
// nested objects are not recorded. Non-object input yields an empty set.
func flatKeys(raw []byte) map[string]struct{} {
	keys := make(map[string]struct{})
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return keys
	}
	collectKeys(obj, keys)
	return keys
}

func collectKeys(obj map[string]any, keys map[string]struct{}) {
	for name, value := range obj {
		if nested, ok := value.(map[string]any); ok {
			collectKeys(nested, keys)
			continue
		}
		keys[name] = struct{}{}
	}
}

func keysEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for name := range a {
		if _, ok := b[name]; !ok {
			return false
		}
	}
	return true
}
