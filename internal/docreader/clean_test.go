package docreader

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "Ana López\nDesarrolladora", "Ana López\nDesarrolladora"},
		{"windows-1252 mojibake", "JosÃ© PÃ©rez, GarcÃ\u00ada, EspaÃ±a", "José Pérez, García, España"},
		{"latin-1 capital lands on C1", "Ã\u0081lvaro", "Álvaro"},
		{"control characters dropped", "Ana\x00 L\x07ópez\x1b", "Ana López"},
		{"tabs and newlines kept", "a\tb\nc", "a\tb\nc"},
		{"crlf normalized", "a\r\nb", "a\nb"},
		{"C1 controls dropped", "x\u0085y", "xy"},
		{"invalid utf-8 replaced", "ok \xff done", "ok � done"},
		{"decomposed accents composed", "Jose\u0301", "Jos\u00e9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
