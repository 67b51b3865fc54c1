// Package normalize turns raw llama.cpp output into clean, user-facing prose.
//
// Clean is deterministic and idempotent: Clean(Clean(x)) == Clean(x). It is
// safe to re-apply to a growing stream buffer on every increment because a
// marker that is only partially written at the end of the buffer is dropped
// until it completes.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// Llama-3 role header, e.g. <|start_header_id|>assistant<|end_header_id|>.
	headerFull    = regexp.MustCompile(`<\|start_header_id\|>[^<\n]*<\|end_header_id\|>`)
	headerPartial = regexp.MustCompile(`<\|start_header_id\|>[^\n]*$`)
	// ChatML turn opener including its role tag; a partial opener at the end of
	// the buffer is removed up to the end.
	imStart = regexp.MustCompile(`<\|im_start\|>[^\n]*(?:\n|$)`)
	// Any other special token (<|im_end|>, <|eot_id|>, <|endoftext|>, ...) and
	// sentencepiece BOS/EOS.
	special = regexp.MustCompile(`<\|[A-Za-z0-9_]*\|>|</?s>`)
	// A marker cut off at the buffer edge: "<", "<|", "<|im_e", "<|eot_id|", "</", "</s".
	// The trailing class matches everything unicode.IsSpace does, since
	// strings.Fields trims those later.
	trailingPartial = regexp.MustCompile(`<(?:\|[A-Za-z0-9_]*\|?|/?s?)[\s\v\x{85}\p{Z}]*$`)
)

// Clean applies, in order: markup removal, spacing after sentence
// punctuation, whitespace collapsing and trimming. The pipeline repeats until
// its output stops changing.
func Clean(raw string) string {
	if raw == "" {
		return ""
	}
	s := raw
	for {
		next := strings.Join(strings.Fields(spaceAfterPunct(StripMarkup(s))), " ")
		if next == s {
			return next
		}
		s = next
	}
}

// StripMarkup removes role and turn-delimiter markup. Removal repeats until
// nothing changes, so markup assembled from the remains of an inner removal
// is removed as well.
func StripMarkup(s string) string {
	for {
		prev := s
		s = headerFull.ReplaceAllString(s, "")
		s = headerPartial.ReplaceAllString(s, "")
		s = imStart.ReplaceAllString(s, "")
		s = special.ReplaceAllString(s, "")
		s = trailingPartial.ReplaceAllString(s, "")
		if s == prev {
			return s
		}
	}
}

func isPunct(r rune) bool {
	return r == ',' || r == '.' || r == '!' || r == '?'
}

// spaceAfterPunct inserts one space after , . ! ? when the next rune is not
// whitespace. Every punctuation rune is checked on its own, so "a!!b" becomes
// "a! ! b".
func spaceAfterPunct(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i, r := range rs {
		b.WriteRune(r)
		if isPunct(r) && i+1 < len(rs) && !unicode.IsSpace(rs[i+1]) {
			b.WriteByte(' ')
		}
	}
	return b.String()
}
