package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ppiankov/cvtriage/internal/model"
	"github.com/ppiankov/cvtriage/internal/score"
)

// Keys the model is asked for; everything else is passed through in Extra
var recordKeys = map[string]bool{
	"perfil":           true,
	"skills":           true,
	"experiencia":      true,
	"seniority":        true,
	"area_profesional": true,
	"match":            true,
}

// Keys that never pass through: identity comes from the document and
// error/raw belong to failed records only
var reservedKeys = map[string]bool{
	"nombre": true,
	"email":  true,
	"error":  true,
	"raw":    true,
}

const recordSchemaURL = "mem://cvtriage/record.json"

// recordSchema constrains the structured fields. Prose fields accept any
// JSON value and are flattened to text on decode; match is left to
// score.Normalize.
var recordSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"skills": map[string]any{
			"type":  []any{"array", "string", "null"},
			"items": map[string]any{"type": []any{"string", "number", "object"}},
		},
		"seniority": map[string]any{"type": []any{"string", "null"}},
	},
}

func compileRecordSchema() (*jsonschema.Schema, error) {
	b, err := json.Marshal(recordSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(recordSchemaURL, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(recordSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// decodeRecord validates obj and maps it onto a Record. Identity and
// metadata are left for the caller.
func decodeRecord(schema *jsonschema.Schema, obj map[string]any) (*model.Record, error) {
	if err := schema.Validate(obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedValue, err)
	}

	rec := &model.Record{
		Perfil:          toText(obj["perfil"]),
		Skills:          toSkills(obj["skills"]),
		Experiencia:     toText(obj["experiencia"]),
		Seniority:       canonicalSeniority(toText(obj["seniority"])),
		AreaProfesional: toText(obj["area_profesional"]),
		Match:           score.Normalize(obj["match"]),
	}

	for k, v := range obj {
		if recordKeys[k] || reservedKeys[k] {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]any)
		}
		rec.Extra[k] = v
	}

	return rec, nil
}

// toText flattens a JSON value: lists are joined with ", ", objects are
// re-encoded, null is empty
func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := toText(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// toSkills accepts a list or a comma-separated string. Object items are
// reduced to their name.
func toSkills(v any) []string {
	var raw []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			raw = append(raw, skillText(item))
		}
	case string:
		raw = strings.Split(t, ",")
	}

	skills := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	return skills
}

// skillText names a skill item; objects use their "name" (or "skill")
// field and fall back to their JSON form
func skillText(v any) string {
	obj, ok := v.(map[string]any)
	if !ok {
		return toText(v)
	}
	for _, key := range []string{"name", "skill", "nombre"} {
		if name, ok := obj[key].(string); ok && strings.TrimSpace(name) != "" {
			return name
		}
	}
	return toText(obj)
}

// canonicalSeniority maps common spellings onto the three tiers and keeps
// anything else as written
func canonicalSeniority(s string) string {
	key := strings.ToLower(strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), ""))
	switch key {
	case "junior", "jr":
		return model.SeniorityJunior
	case "semisenior", "ssr", "mid", "midlevel":
		return model.SenioritySemiSenior
	case "senior", "sr":
		return model.SenioritySenior
	default:
		return s
	}
}

// extraKeys returns the sorted pass-through keys, for logging
func extraKeys(rec *model.Record) []string {
	keys := make([]string, 0, len(rec.Extra))
	for k := range rec.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
