// Package moderation rewrites censored words in message bodies before
// they are stored. Matching is resilient to casing, punctuation and
// common leet substitutions; replacement preserves the body length so
// surrounding text keeps its shape.
package moderation

import (
	"bufio"
	"embed"
	"io/fs"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

//go:embed wordlists/*.txt
var wordlists embed.FS

type Moderator struct {
	machine     *goahocorasick.Machine
	replacement rune
}

// New builds the Aho-Corasick automaton over the normalized word list.
func New(words []string, replacement rune) (*Moderator, error) {
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		if pattern := fold([]rune(word)); len(pattern) > 0 {
			patterns = append(patterns, pattern)
		}
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{machine: machine, replacement: replacement}, nil
}

// NewFromEmbedded builds a moderator from the word lists compiled into
// the binary.
func NewFromEmbedded(replacement rune) (*Moderator, error) {
	words, err := EmbeddedWords()
	if err != nil {
		return nil, err
	}
	return New(words, replacement)
}

// EmbeddedWords returns the union of all embedded word lists, one word
// per line, '#' starting a comment.
func EmbeddedWords() ([]string, error) {
	var words []string
	err := fs.WalkDir(wordlists, "wordlists", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		file, err := wordlists.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			words = append(words, line)
		}
		return scanner.Err()
	})
	return words, err
}

// Censor replaces every match in body with the replacement rune. The
// returned string always has the same rune count as the input.
func (m *Moderator) Censor(body string) string {
	runes := []rune(body)
	folded, origin := foldIndexed(runes)
	if len(folded) == 0 {
		return body
	}

	matches := m.machine.MultiPatternSearch(folded, false)
	if len(matches) == 0 {
		return body
	}

	for _, match := range matches {
		start := match.Pos
		end := start + len(match.Word)
		if start < 0 || end > len(origin) {
			continue
		}
		// Blank the original span covered by the folded match,
		// punctuation in between included.
		for i := origin[start]; i <= origin[end-1]; i++ {
			runes[i] = m.replacement
		}
	}
	return string(runes)
}

// fold lowercases, undoes leet substitutions and drops separator runes.
func fold(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if folded, keep := foldRune(r); keep {
			out = append(out, folded)
		}
	}
	return out
}

// foldIndexed is fold plus a mapping from folded positions back to the
// original rune positions, used to censor the original text.
func foldIndexed(input []rune) (folded []rune, origin []int) {
	for i, r := range input {
		if f, keep := foldRune(r); keep {
			folded = append(folded, f)
			origin = append(origin, i)
		}
	}
	return folded, origin
}

var leet = map[rune]rune{
	'4': 'a', '@': 'a',
	'3': 'e', '€': 'e',
	'1': 'i', '!': 'i', '|': 'i',
	'0': 'o',
	'5': 's', '$': 's',
}

func foldRune(r rune) (rune, bool) {
	if simple, ok := leet[r]; ok {
		return simple, true
	}
	if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
		return 0, false
	}
	return unicode.ToLower(r), true
}
