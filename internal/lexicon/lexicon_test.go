package lexicon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultLoads(t *testing.T) {
	lex := Default()
	if lex.Version() == "" {
		t.Error("expected embedded lexicon to carry a version")
	}
	if lex.Size() == 0 {
		t.Error("expected embedded lexicon to have common words")
	}
}

func TestIsCoined(t *testing.T) {
	lex := Default()

	tests := []struct {
		mark string
		want bool
	}{
		{"xqzpvy", true},
		{"XQZPVY", true},
		{"examplia", true},
		{"chax", true},
		{"royal", false},
		{"  Royal  ", false},
		{"kool", false},
		{"royal vista", false},
		{"royal xqzpvy", true},
		{"mountain view", false},
		{"bcdf", true},
		{"brr", true},
		{"by", false},
		{"of", false},
		{"the dragon", true},
		{"dragon of", false},
		{"zephyrix", true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.mark, func(t *testing.T) {
			if got := lex.IsCoined(tt.mark); got != tt.want {
				t.Errorf("IsCoined(%q) = %v, want %v", tt.mark, got, tt.want)
			}
		})
	}
}

func TestLoadCustomLexicon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	data := []byte(`version: "test-1"
overrides:
  coined: [acme]
  dictionary: [zorblax]
common_words: [acme, widget]
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write lexicon: %v", err)
	}

	lex, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if lex.Version() != "test-1" {
		t.Errorf("Version() = %q, want test-1", lex.Version())
	}
	if !lex.IsCoined("acme") {
		t.Error("expected coined override to win over the common-word set")
	}
	if lex.IsCoined("zorblax") {
		t.Error("expected dictionary override to win over the token rule")
	}
	if lex.IsCoined("widget") {
		t.Error("expected common word to not be coined")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid yaml", "version: [unterminated"},
		{"missing version", "common_words: [a]"},
		{"conflicting overrides", "version: x\noverrides:\n  coined: [foo]\n  dictionary: [FOO]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	lex, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault(\"\") error = %v", err)
	}
	if lex.Version() != Default().Version() {
		t.Errorf("expected embedded lexicon, got version %q", lex.Version())
	}

	if _, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
