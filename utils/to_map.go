package utils

import "encoding/json"

// ToMap converts a payload struct into the generic body map the dispatcher
// consumes, honoring json tags and omitempty.
func ToMap(v any) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
