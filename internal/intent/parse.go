package intent

import (
	"encoding/json"
	"strings"

	"github.com/stupiduntilnot/studbot/internal/tool"
)

type routingReply struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
	Params     map[string]any `json:"params"`
	Confidence *float64       `json:"confidence"`
}

// parseRoutingReply decodes the model's routing JSON, first strictly and
// then from the first balanced object embedded in prose.
func parseRoutingReply(content string) (routingReply, bool) {
	var parsed routingReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &parsed); err == nil {
		return parsed, true
	}
	jsonObj, ok := extractJSONObject(content)
	if !ok {
		return routingReply{}, false
	}
	if err := json.Unmarshal([]byte(jsonObj), &parsed); err != nil {
		return routingReply{}, false
	}
	return parsed, true
}

func (r routingReply) toolName() string {
	return strings.ToLower(strings.TrimSpace(r.Tool))
}

// params merges the accepted parameter keys and drops null values.
func (r routingReply) params() tool.Params {
	src := r.Parameters
	if src == nil {
		src = r.Params
	}
	out := make(tool.Params, len(src))
	for k, v := range src {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

func extractJSONObject(content string) (string, bool) {
	s := strings.TrimSpace(content)
	if s == "" {
		return "", false
	}
	start := strings.Index(s, "{")
	if start < 0 {
		return "", false
	}
	inString := false
	escapeNext := false
	depth := 0
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			if escapeNext {
				escapeNext = false
				continue
			}
			if ch == '\\' {
				escapeNext = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
			continue
		}
		if ch == '{' {
			depth++
			continue
		}
		if ch == '}' {
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
