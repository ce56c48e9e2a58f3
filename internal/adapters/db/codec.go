package db

import "strings"

const (
	quotedChars = ",: '\t"
	escapedChars = "\"\\$!"
)

// escapeString renders s verbatim if it contains none of the characters
// that would make it ambiguous in the `.remake` grammar, and as a
// backslash-escaped double-quoted string otherwise (spec §4.4).
func escapeString(s string) string {
	needQuotes := false
	nb := len(s)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(quotedChars, c) >= 0 {
			needQuotes = true
		}
		if strings.IndexByte(escapedChars, c) >= 0 {
			nb++
		}
	}
	if nb != len(s) {
		needQuotes = true
	}
	if !needQuotes {
		return s
	}
	var b strings.Builder
	b.Grow(nb + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(escapedChars, c) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return b.String()
}

// readWord reads one (possibly double-quoted, backslash-escaped) token
// from the front of s, skipping leading whitespace. ok is false if s holds
// no more tokens before a ':' or end of string.
func readWord(s string) (word, rest string, ok bool) {
	s = strings.TrimLeft(s, " \t")
	if s == "" || s[0] == ':' {
		return "", s, false
	}
	if s[0] == '"' {
		var b strings.Builder
		i := 1
		for i < len(s) {
			c := s[i]
			if c == '\\' && i+1 < len(s) {
				b.WriteByte(s[i+1])
				i += 2
				continue
			}
			if c == '"' {
				i++
				break
			}
			b.WriteByte(c)
			i++
		}
		return b.String(), s[i:], true
	}
	i := 0
	for i < len(s) && !strings.ContainsRune(" \t:", rune(s[i])) {
		i++
	}
	return s[:i], s[i:], true
}

// readWords reads every token from the front of s until a ':' or the end
// of the string.
func readWords(s string) (words []string, rest string) {
	for {
		w, r, ok := readWord(s)
		if !ok {
			return words, r
		}
		words = append(words, w)
		s = r
	}
}
