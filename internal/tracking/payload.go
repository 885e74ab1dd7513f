package tracking

import "strconv"

// Payload producers are inconsistent about nesting: the same field may
// arrive at the top level or tucked under metadata, formData, or raw.
// All lookups go through ResolveField so the fallback chain lives in
// exactly one place.
var nestedPayloadKeys = []string{"metadata", "formData", "raw"}

// ResolveField returns the first defined value for key, probing the top
// level and then each known nesting container in order. Returns nil when
// the key is absent everywhere, including when Data itself is nil.
func ResolveField(event RawEvent, key string) any {
	if event.Data == nil {
		return nil
	}
	if value, ok := event.Data[key]; ok && value != nil {
		return value
	}
	for _, container := range nestedPayloadKeys {
		nested, ok := event.Data[container].(map[string]any)
		if !ok {
			continue
		}
		if value, ok := nested[key]; ok && value != nil {
			return value
		}
	}
	return nil
}

// ResolveString resolves key and coerces it to a string. Non-string
// values and absent keys yield "".
func ResolveString(event RawEvent, key string) string {
	value, _ := ResolveField(event, key).(string)
	return value
}

// ResolveFloat resolves key and coerces it to a float64. JSON decoding
// yields float64 for all numbers, but producers occasionally send
// numeric strings, so those are parsed too. Absent or unparseable
// values yield (0, false).
func ResolveFloat(event RawEvent, key string) (float64, bool) {
	switch value := ResolveField(event, key).(type) {
	case float64:
		return value, true
	case int:
		return float64(value), true
	case string:
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// ResolveBool resolves key as a boolean. Absent or non-bool values
// yield false.
func ResolveBool(event RawEvent, key string) bool {
	value, _ := ResolveField(event, key).(bool)
	return value
}

// HasAnyField reports whether any of the given keys resolves to a
// defined value.
func HasAnyField(event RawEvent, keys ...string) bool {
	for _, key := range keys {
		if ResolveField(event, key) != nil {
			return true
		}
	}
	return false
}

// resolveStringSlice resolves key as a list of strings, tolerating the
// []any shape JSON decoding produces.
func resolveStringSlice(event RawEvent, key string) []string {
	switch value := ResolveField(event, key).(type) {
	case []string:
		return value
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
