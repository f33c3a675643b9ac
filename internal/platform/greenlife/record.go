package greenlife

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record is one upstream entity. The backend owns the schema, so records are
// kept as decoded JSON objects.
type Record map[string]any

// ID returns the record identifier as text.
func (r Record) ID() string {
	for _, key := range []string{"id", "_id", "ID"} {
		if v := r.String(key); v != "" {
			return v
		}
	}
	return ""
}

// String renders the value under key for display. Nested objects show their
// name, so {"region": {"id": 1, "name": "Coast"}} renders as "Coast".
func (r Record) String(key string) string {
	if r == nil {
		return ""
	}
	return stringify(r[key])
}

// Float returns the numeric value under key, or zero.
func (r Record) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	case int:
		return float64(v)
	}
	return 0
}

// Bool reports the truthiness of the value under key.
func (r Record) Bool(key string) bool {
	return truthy(r[key])
}

// Nested returns the object under key, if any.
func (r Record) Nested(key string) Record {
	if m, ok := r[key].(map[string]any); ok {
		return Record(m)
	}
	return nil
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case map[string]any:
		for _, key := range []string{"name", "businessName", "description", "groupName", "code", "id"} {
			if s := stringify(val[key]); s != "" {
				return s
			}
		}
		return ""
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		return err == nil && b
	case float64:
		return val != 0
	case int:
		return val != 0
	}
	return false
}
