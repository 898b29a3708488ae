package check

import "time"

// Params carries check-type-specific parameters from a resource definition.
// Values come straight from YAML, so numbers may arrive as int or float64.
type Params map[string]any

// String returns the string value for key, or "" when absent or not a string.
func (p Params) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// StringOr returns the string value for key, or def when absent.
func (p Params) StringOr(key, def string) string {
	if s, ok := p[key].(string); ok && s != "" {
		return s
	}
	return def
}

// Int returns the integer value for key, or def when absent or untyped.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Float returns the float value for key, or def when absent or untyped.
func (p Params) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

// Bool returns the boolean value for key, or def when absent.
func (p Params) Bool(key string, def bool) bool {
	if b, ok := p[key].(bool); ok {
		return b
	}
	return def
}

// Duration parses the value for key as a duration string like "500ms",
// returning def when absent or unparseable.
func (p Params) Duration(key string, def time.Duration) time.Duration {
	s, ok := p[key].(string)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// StringMap returns the nested string map for key, or nil when absent.
// YAML decodes nested mappings as map[string]any, so values are stringified
// only when they already are strings.
func (p Params) StringMap(key string) map[string]string {
	raw, ok := p[key].(map[string]any)
	if !ok {
		return nil
	}
	m := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			m[k] = s
		}
	}
	return m
}
