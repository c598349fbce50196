package retrieval

import "math"

// Config holds strategy-specific settings. Values may arrive as native Go
// types or as decoded JSON, so numeric lookups tolerate float64.
type Config map[string]any

// Int returns the integer at key. The second result is false when the key
// is absent or not an integral number.
func (c Config) Int(key string) (int, bool) {
	switch v := c[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
	}
	return 0, false
}

// String returns the string at key, or "" when absent or not a string.
func (c Config) String(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

// merged overlays overrides onto defaults; overrides win on key collision.
func merged(defaults, overrides Config) Config {
	out := make(Config, len(defaults)+len(overrides))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

var sensitiveKeys = []string{"cohere_api_key", "api_key", "password", "token"}

// sanitized copies the config with credential values masked, for logging.
func sanitized(c Config) Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	for _, k := range sensitiveKeys {
		if v, ok := out[k]; ok && v != "" && v != nil {
			out[k] = "***REDACTED***"
		}
	}
	return out
}
