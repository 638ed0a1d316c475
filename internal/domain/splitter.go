package domain

import (
	"strings"
	"unicode/utf8"
)

// splitLongParagraphs splits paragraphs longer than maxLength at sentence
// boundaries. Each new section after a split starts with up to overlap
// runes from the end of the previous one, cut at a word boundary.
func splitLongParagraphs(paragraphs []string, maxLength, overlap int) []string {
	var result []string

	for _, para := range paragraphs {
		if utf8.RuneCountInString(para) <= maxLength {
			result = append(result, para)
			continue
		}

		var section string
		for _, sentence := range splitIntoSentences(para, maxLength) {
			sectionLen := utf8.RuneCountInString(section)
			if sectionLen > 0 && sectionLen+1+utf8.RuneCountInString(sentence) > maxLength {
				result = append(result, section)
				tail := overlapTail(section, overlap)
				if tail != "" && utf8.RuneCountInString(tail)+1+utf8.RuneCountInString(sentence) <= maxLength {
					section = tail + " " + sentence
				} else {
					section = sentence
				}
				continue
			}
			if section != "" {
				section += " "
			}
			section += sentence
		}
		if section != "" {
			result = append(result, section)
		}
	}

	return result
}

// overlapTail returns at most the last n runes of s, starting at a word
// boundary. Text without a boundary in that window yields "".
func overlapTail(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return ""
	}
	tail := string(runes[len(runes)-n:])
	i := strings.IndexAny(tail, " \n")
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(tail[i+1:])
}

// splitIntoSentences splits on . ! ? and 。 followed by whitespace or end of
// text. Sentences longer than maxLength are cut into maxLength rune pieces.
func splitIntoSentences(text string, maxLength int) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' && r != '。' {
			continue
		}
		if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	var bounded []string
	for _, s := range sentences {
		r := []rune(s)
		for len(r) > maxLength {
			bounded = append(bounded, string(r[:maxLength]))
			r = r[maxLength:]
		}
		if len(r) > 0 {
			bounded = append(bounded, string(r))
		}
	}
	return bounded
}
