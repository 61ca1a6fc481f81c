package lexicon

import "unicode"

// normalize lower-cases the input, folds common leet-speak characters, drops
// punctuation and symbols, and collapses whitespace into single spaces.
// "Y0u are an 1.d.i.o.t!" becomes "you are an idiot".
func normalize(input string) []rune {
	out := make([]rune, 0, len(input))
	pendingSpace := false

	for _, r := range input {
		r = foldLeet(r)
		switch {
		case unicode.IsSpace(r):
			pendingSpace = len(out) > 0
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			continue
		default:
			if pendingSpace {
				out = append(out, ' ')
				pendingSpace = false
			}
			out = append(out, unicode.ToLower(r))
		}
	}
	return out
}

// foldLeet maps characters commonly substituted for letters back to the
// letter. Punctuation such as '!' is left alone so trailing punctuation does
// not turn into letters.
func foldLeet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	case '7':
		return 't'
	default:
		return r
	}
}
