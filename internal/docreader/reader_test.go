package docreader

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestReadFile_Text(t *testing.T) {
	path := writeFile(t, "ana.txt", []byte("Ana López\r\nana@example.com\x00\n"))

	text, err := ReadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if text != "Ana López\nana@example.com\n" {
		t.Errorf("Unexpected text: %q", text)
	}
}

func TestReadFile_HTML(t *testing.T) {
	page := `<html><head><title>CV</title><style>h1{color:red}</style></head>
<body><h1>Ana  López</h1><p>Backend <b>engineer</b></p><script>var x = 1;</script>
<ul><li>Go</li><li>Kubernetes</li></ul></body></html>`
	path := writeFile(t, "ana.html", []byte(page))

	text, err := ReadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	want := "CV\nAna López\nBackend engineer\nGo\nKubernetes"
	if text != want {
		t.Errorf("Unexpected text:\n%q\nwant:\n%q", text, want)
	}
}

func TestReadFile_DOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/document.xml")
	_, _ = w.Write([]byte(`<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>Ana López</w:t></w:r></w:p>
<w:p><w:r><w:t>Go</w:t><w:tab/><w:t>Kubernetes</w:t></w:r></w:p>
</w:body></w:document>`))
	_ = zw.Close()

	path := writeFile(t, "ana.docx", buf.Bytes())

	text, err := ReadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.HasPrefix(text, "Ana López\n") || !strings.Contains(text, "Go\tKubernetes") {
		t.Errorf("Unexpected text: %q", text)
	}
}

func TestReadFile_Unsupported(t *testing.T) {
	path := writeFile(t, "photo.png", []byte{0x89, 'P', 'N', 'G'})

	_, err := ReadFile(context.Background(), path)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
}

func TestReadFile_MalformedPDF(t *testing.T) {
	path := writeFile(t, "broken.pdf", []byte("%PDF-1.4 this is not really a pdf"))

	if _, err := ReadFile(context.Background(), path); err == nil {
		t.Error("Expected error for malformed pdf")
	}
}

func TestReadFile_Missing(t *testing.T) {
	if _, err := ReadFile(context.Background(), filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestParse_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Parse(ctx, []byte("x"), KindText); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestKindForContentType(t *testing.T) {
	tests := []struct {
		contentType string
		data        []byte
		want        Kind
	}{
		{"application/pdf", nil, KindPDF},
		{"text/html; charset=utf-8", nil, KindHTML},
		{"text/plain", nil, KindText},
		{"application/octet-stream", []byte("%PDF-1.7\n"), KindPDF},
		{"", []byte("<!DOCTYPE html><html></html>"), KindHTML},
		{"image/png", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			if got := KindForContentType(tt.contentType, tt.data); got != tt.want {
				t.Errorf("KindForContentType(%q) = %q, want %q", tt.contentType, got, tt.want)
			}
		})
	}
}

func TestSupported(t *testing.T) {
	for _, p := range []string{"a.pdf", "b.PDF", "c.docx", "d.htm", "e.md", "f.txt"} {
		if !Supported(p) {
			t.Errorf("Expected %s to be supported", p)
		}
	}
	for _, p := range []string{"a.png", "b", "c.doc"} {
		if Supported(p) {
			t.Errorf("Expected %s to be unsupported", p)
		}
	}
}
