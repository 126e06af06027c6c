package recovery

import (
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Repair is a last-resort strategy for truncated or sloppy objects
// (missing closing braces, single quotes, trailing commas).
// It first repairs everything from the first '{' to the end of the reply,
// then the outer '{'..'}' span.
func Repair(reply string) (map[string]any, bool) {
	start := strings.IndexByte(reply, '{')
	if start < 0 {
		return nil, false
	}

	candidates := []string{reply[start:]}
	if end := strings.LastIndexByte(reply, '}'); end > start && end < len(reply)-1 {
		candidates = append(candidates, reply[start:end+1])
	}

	for _, c := range candidates {
		repaired, err := jsonrepair.JSONRepair(c)
		if err != nil {
			continue
		}
		if obj, ok := parseObject(repaired); ok {
			return obj, true
		}
	}
	return nil, false
}
