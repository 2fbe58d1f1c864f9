package dispatch

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/jorge-barreto/docgen/internal/sharedstate"
)

// statePrefix selects a shared-state value in prompt templates:
// ${STATE_file_tree} expands to the JSON of the file_tree key.
const statePrefix = "STATE_"

const maxStateExpansion = 256 * 1024

// ExpandVars substitutes variables in template using STATE_ lookups against
// st, then the vars map, falling back to environment variables. Unknown
// state keys expand to the empty string.
func ExpandVars(template string, vars map[string]string, st sharedstate.Reader) string {
	return os.Expand(template, func(key string) string {
		if name, ok := strings.CutPrefix(key, statePrefix); ok && st != nil {
			return stateValue(st, name)
		}
		if v, ok := vars[key]; ok {
			return v
		}
		return os.Getenv(key)
	})
}

func stateValue(st sharedstate.Reader, key string) string {
	v, ok := st.Lookup(key)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	if len(data) > maxStateExpansion {
		return string(data[:maxStateExpansion]) + "\n... (truncated)"
	}
	return string(data)
}
