// Package recovery carves a well-formed JSON object out of free-form model
// output. Replies may wrap the object in prose or code fences, truncate it,
// or contain several objects; recovery never fails loudly, it either finds a
// parseable object or reports that none exists.
package recovery

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Strategy names reported in Result
const (
	StrategyOuterSpan    = "outer_span"
	StrategyFencedBlock  = "fenced_block"
	StrategyBalancedScan = "balanced_scan"
	StrategyRepair       = "repair"
)

// FindFunc returns the object a strategy carved out of reply, if any
type FindFunc func(reply string) (map[string]any, bool)

// Strategy is one named recovery attempt
type Strategy struct {
	Name string
	Find FindFunc
}

// Result is a recovered object and the strategy that produced it
type Result struct {
	Object   map[string]any
	Strategy string
}

var (
	taggedFence   = regexp.MustCompile("(?is)```json\\s*(\\{.*?\\})\\s*```")
	untaggedFence = regexp.MustCompile("(?s)```\\s*(\\{.*?\\})\\s*```")
)

// DefaultStrategies returns the three core strategies in priority order
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: StrategyOuterSpan, Find: OuterSpan},
		{Name: StrategyFencedBlock, Find: FencedBlock},
		{Name: StrategyBalancedScan, Find: BalancedScan},
	}
}

// Recoverer tries its strategies in order and stops at the first success.
// Results of different strategies are never blended.
type Recoverer struct {
	strategies []Strategy
}

// NewRecoverer creates a recoverer. With no strategies it uses DefaultStrategies.
func NewRecoverer(strategies ...Strategy) *Recoverer {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Recoverer{strategies: strategies}
}

// WithRepair returns a recoverer that falls back to jsonrepair after its own strategies
func (r *Recoverer) WithRepair() *Recoverer {
	strategies := make([]Strategy, 0, len(r.strategies)+1)
	strategies = append(strategies, r.strategies...)
	strategies = append(strategies, Strategy{Name: StrategyRepair, Find: Repair})
	return &Recoverer{strategies: strategies}
}

// Strategies returns the strategy names in the order they are tried
func (r *Recoverer) Strategies() []string {
	names := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.Name
	}
	return names
}

// Recover returns the first object any strategy accepts
func (r *Recoverer) Recover(reply string) (*Result, bool) {
	for _, s := range r.strategies {
		if obj, ok := s.Find(reply); ok {
			return &Result{Object: obj, Strategy: s.Name}, true
		}
	}
	return nil, false
}

// Recover runs the default strategies over reply
func Recover(reply string) (map[string]any, bool) {
	res, ok := NewRecoverer().Recover(reply)
	if !ok {
		return nil, false
	}
	return res.Object, true
}

// OuterSpan parses everything from the first '{' to the last '}'
func OuterSpan(reply string) (map[string]any, bool) {
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end <= start {
		return nil, false
	}
	return parseObject(reply[start : end+1])
}

// FencedBlock parses the object inside a ```json fence, falling back to an
// untagged ``` fence
func FencedBlock(reply string) (map[string]any, bool) {
	for _, re := range []*regexp.Regexp{taggedFence, untaggedFence} {
		for _, m := range re.FindAllStringSubmatch(reply, -1) {
			if obj, ok := parseObject(m[1]); ok {
				return obj, true
			}
		}
	}
	return nil, false
}

// BalancedScan depth-counts every unconsumed '{' to its matching '}',
// ignoring braces inside strings, and returns the longest span that
// parses. Ties keep the first span seen.
func BalancedScan(reply string) (map[string]any, bool) {
	var best map[string]any
	bestLen := -1
	for _, span := range BalancedSpans(reply) {
		obj, ok := parseObject(span)
		if !ok {
			continue
		}
		if n := utf8.RuneCountInString(span); n > bestLen {
			best, bestLen = obj, n
		}
	}
	return best, best != nil
}

// BalancedSpans lists the brace-balanced spans of reply, left to right.
// A closed span consumes its region; a '{' that never closes is skipped.
func BalancedSpans(reply string) []string {
	var spans []string
	for pos := 0; pos < len(reply); {
		open := strings.IndexByte(reply[pos:], '{')
		if open < 0 {
			break
		}
		open += pos
		end := matchingBrace(reply, open)
		if end < 0 {
			pos = open + 1
			continue
		}
		spans = append(spans, reply[open:end+1])
		pos = end + 1
	}
	return spans
}

// matchingBrace returns the index of the '}' closing the '{' at open, or -1.
// Braces inside JSON strings are not counted.
func matchingBrace(s string, open int) int {
	depth := 0
	inString, escaped := false, false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func parseObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}
