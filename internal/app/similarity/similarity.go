// Package similarity compares free-text guesses with catalog metadata.
//
// Both inputs are normalized before comparison:
//   - accents are folded ("Beyoncé" becomes "beyonce")
//   - text is lowercased and trimmed
//   - version decorations such as "- 2011 Remaster", "(Live)" or
//     "(feat. X)" are removed
//   - "&" becomes "and", then every rune that is not a letter, digit or
//     space is dropped
//   - whitespace runs collapse to one space
//   - a leading "the", "a" or "an" is dropped when more words follow
//
// The ratio is one minus the Levenshtein distance of the normalized strings
// divided by the rune length of the longer one.
package similarity

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// "(Remastered 2009)", "[Live]", "(feat. Someone)", "(Single Version)"
	decoratedGroup = regexp.MustCompile(`\s*[\(\[][^\)\]]*\b(remaster(ed)?|live|version|edit|mono|stereo|mix|feat|ft|with)\b[^\)\]]*[\)\]]`)
	// "- 2011 Remaster", "- Live at Wembley", "- Radio Edit"
	decoratedSuffix = regexp.MustCompile(`\s+-\s+.*\b(remaster(ed)?|live|version|edit|mono|stereo|mix)\b.*$`)
	whitespace      = regexp.MustCompile(`\s+`)
)

var articles = map[string]bool{
	"the": true,
	"a":   true,
	"an":  true,
}

// Normalize returns the canonical form of s used for comparison.
func Normalize(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err == nil {
		s = folded
	}

	s = strings.TrimSpace(strings.ToLower(s))
	s = decoratedGroup.ReplaceAllString(s, "")
	s = decoratedSuffix.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&", " and ")

	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		if unicode.IsSpace(r) {
			return ' '
		}
		return -1
	}, s)

	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))

	words := strings.Split(s, " ")
	if len(words) > 1 && articles[words[0]] {
		s = strings.Join(words[1:], " ")
	}

	return s
}

// Similarity returns how close a and b are, in [0, 1].
// It is symmetric and returns 1 for identical non-empty inputs.
// Two inputs that normalize to nothing are equal only if their lowercased
// text is equal and non-empty, so Similarity("", "") is 0.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)

	if na == "" && nb == "" {
		ra := strings.ToLower(strings.TrimSpace(a))
		rb := strings.ToLower(strings.TrimSpace(b))
		if ra != "" && ra == rb {
			return 1
		}
		return 0
	}
	if na == nb {
		return 1
	}
	if na == "" || nb == "" {
		return 0
	}

	longest := max(utf8.RuneCountInString(na), utf8.RuneCountInString(nb))
	ratio := 1 - float64(levenshtein.ComputeDistance(na, nb))/float64(longest)
	if ratio < 0 {
		return 0
	}
	return ratio
}
