// Package reflow implements the text post-processing layer: dictionary-backed
// unhyphenation of line endings and the cross-box merge that joins
// flow-linked text regions for export.
package reflow

import (
	"bufio"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Dictionary answers whether a candidate token is a known word. Check must be
// side-effect free: reflow results are only deterministic for a fixed
// dictionary state.
type Dictionary interface {
	Check(word string) bool
}

// Wordlist is an immutable, case-folded word set loaded from a language
// wordlist. Lookup keys are folded with the locale's casing rules, so
// "Rennpferde" and "rennpferde" resolve identically.
type Wordlist struct {
	words map[string]struct{}
	caser cases.Caser
}

// NewWordlist builds a dictionary for the given language from the word slice.
func NewWordlist(tag language.Tag, words []string) *Wordlist {
	w := &Wordlist{
		words: make(map[string]struct{}, len(words)),
		caser: cases.Lower(tag),
	}
	for _, word := range words {
		word = strings.TrimSpace(word)
		if word != "" {
			w.words[w.caser.String(word)] = struct{}{}
		}
	}
	return w
}

// LoadWordlist reads one word per line from r.
func LoadWordlist(tag language.Tag, r io.Reader) (*Wordlist, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		words = append(words, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewWordlist(tag, words), nil
}

// LoadWordlistFile reads a wordlist file from disk.
func LoadWordlistFile(tag language.Tag, path string) (*Wordlist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadWordlist(tag, f)
}

// Check reports whether word (case-folded, stripped of non-alphanumerics) is
// in the list.
func (w *Wordlist) Check(word string) bool {
	_, ok := w.words[w.caser.String(stripNonAlnum(word))]
	return ok
}

// Empty is a dictionary that knows no words; every hyphen stays.
type Empty struct{}

// Check always reports false.
func (Empty) Check(string) bool { return false }

// stripNonAlnum removes everything but letters and digits, producing the
// lookup form of a merge candidate.
func stripNonAlnum(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
