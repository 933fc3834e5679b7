// Package lexicon decides whether a wordmark is a coined (invented) term.
//
// Coined marks have no dictionary meaning, so their conceptual similarity to
// any other mark is zero and no model call is needed. The word lists live in a
// versioned YAML asset that is embedded at build time and can be replaced at
// runtime with Load.
package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed data/lexicon.yaml
var defaultData []byte

// minVowellessLength is the shortest mark that is coined just for having no vowels.
const minVowellessLength = 4

// maxIgnoredTokenLength is the longest token skipped by the common-word check
// ("of", "in", ...).
const maxIgnoredTokenLength = 2

// file mirrors the YAML layout of a lexicon asset.
type file struct {
	Version   string `yaml:"version"`
	Overrides struct {
		Coined     []string `yaml:"coined"`
		Dictionary []string `yaml:"dictionary"`
	} `yaml:"overrides"`
	CommonWords []string `yaml:"common_words"`
}

// Lexicon is an immutable set of word lists. It is safe for concurrent use.
type Lexicon struct {
	version    string
	coined     map[string]struct{}
	dictionary map[string]struct{}
	common     map[string]struct{}
}

// Parse builds a Lexicon from YAML bytes. A word listed as both coined and
// dictionary is rejected, since the override would be ambiguous.
func Parse(data []byte) (*Lexicon, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	if f.Version == "" {
		return nil, fmt.Errorf("lexicon is missing a version")
	}

	lex := &Lexicon{
		version:    f.Version,
		coined:     toSet(f.Overrides.Coined),
		dictionary: toSet(f.Overrides.Dictionary),
		common:     toSet(f.CommonWords),
	}
	for w := range lex.coined {
		if _, ok := lex.dictionary[w]; ok {
			return nil, fmt.Errorf("lexicon %s: %q is both a coined and a dictionary override", f.Version, w)
		}
	}
	return lex, nil
}

// Load reads a lexicon asset from disk.
func Load(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the lexicon embedded in the binary.
// It panics if the embedded asset is malformed, which the package tests rule out.
func Default() *Lexicon {
	lex, err := Parse(defaultData)
	if err != nil {
		panic(err)
	}
	return lex
}

// LoadOrDefault loads path when it is set and falls back to the embedded asset otherwise.
func LoadOrDefault(path string) (*Lexicon, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Version identifies the word lists, for logs and diagnostics.
func (l *Lexicon) Version() string {
	return l.version
}

// Size returns the number of common words.
func (l *Lexicon) Size() int {
	return len(l.common)
}

// IsCoined reports whether mark looks like an invented term. The rules apply
// in order:
//  1. exact override match (coined or dictionary) decides outright;
//  2. four or more characters without a vowel is coined;
//  3. any whitespace token longer than two characters missing from the
//     common-word set makes the whole mark coined;
//  4. otherwise the mark is treated as meaningful.
func (l *Lexicon) IsCoined(mark string) bool {
	m := strings.ToLower(strings.TrimSpace(mark))

	if _, ok := l.coined[m]; ok {
		return true
	}
	if _, ok := l.dictionary[m]; ok {
		return false
	}

	if utf8.RuneCountInString(m) >= minVowellessLength && !strings.ContainsAny(m, "aeiou") {
		return true
	}

	for _, token := range strings.Fields(m) {
		if utf8.RuneCountInString(token) <= maxIgnoredTokenLength {
			continue
		}
		if _, ok := l.common[token]; !ok {
			return true
		}
	}
	return false
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}
