package pipeline

import (
	"strings"
	"testing"
)

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		contains []string
		absent   []string
	}{
		{
			name:     "no role",
			role:     "",
			contains: []string{"no specific target role", `"match": "100"`, "### CV ###\nsome cv"},
			absent:   []string{"Percentage (0-100)"},
		},
		{
			name:     "whitespace role is no role",
			role:     "   ",
			contains: []string{"no specific target role"},
		},
		{
			name:     "with role",
			role:     "Data Engineer",
			contains: []string{`specific role: "Data Engineer"`, `"match": "Percentage (0-100)"`},
			absent:   []string{"no specific target role"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt := BuildPrompt("some cv", tt.role)
			for _, want := range tt.contains {
				if !strings.Contains(prompt, want) {
					t.Errorf("prompt missing %q", want)
				}
			}
			for _, bad := range tt.absent {
				if strings.Contains(prompt, bad) {
					t.Errorf("prompt should not contain %q", bad)
				}
			}
			for _, key := range []string{"perfil", "skills", "experiencia", "seniority", "area_profesional", "match"} {
				if !strings.Contains(prompt, `"`+key+`"`) {
					t.Errorf("prompt missing key %s", key)
				}
			}
		})
	}
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{"short", "hola", 10, "hola"},
		{"exact", "hola", 4, "hola"},
		{"cut", "hola mundo", 4, "hola" + TruncationMarker},
		{"multibyte", "ñandú año", 5, "ñandú" + TruncationMarker},
		{"disabled", "hola mundo", 0, "hola mundo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateText(tt.text, tt.max); got != tt.want {
				t.Errorf("TruncateText(%q, %d) = %q, want %q", tt.text, tt.max, got, tt.want)
			}
		})
	}
}

func TestTruncateRaw(t *testing.T) {
	if got := truncateRaw("abcdef", 3); got != "abc..." {
		t.Errorf("got %q", got)
	}
	if got := truncateRaw("abc", 3); got != "abc" {
		t.Errorf("got %q", got)
	}
	if got := truncateRaw("", 3); got != "" {
		t.Errorf("got %q", got)
	}
}
