package chunker

import (
	"strings"
	"unicode/utf8"
)

// Separators are tried in order, from paragraph break down to single characters.
var Separators = []string{"\n\n", "\n", ". ", " ", ""}

// Split divides text into overlapping chunks of at most chunkSize characters.
//
// Text is split on the highest-priority separator it contains. Pieces that fit
// are merged greedily; pieces that do not are split again with the finer
// separators, ending with a hard split between characters. Separators stay
// attached to the piece before them so no characters are lost.
//
// Every chunk after the first is prefixed with the last overlap characters of
// the chunk before it. Reconstruct reverses this. Lengths are counted in runes.
func Split(text string, chunkSize, overlap int) []string {
	if text == "" {
		return nil
	}
	if chunkSize < 1 {
		chunkSize = 1
	}
	if overlap < 0 {
		overlap = 0
	}

	budget := chunkSize - overlap
	if budget < 1 {
		budget = 1
	}

	pieces := splitRecursive(text, Separators, budget)
	chunks := make([]string, len(pieces))
	for i, piece := range pieces {
		if i == 0 || overlap == 0 {
			chunks[i] = piece
			continue
		}
		chunks[i] = tail(chunks[i-1], overlap) + piece
	}
	return chunks
}

// Reconstruct joins chunks produced by Split with the same overlap,
// dropping the overlap prefix of every chunk after the first.
func Reconstruct(chunks []string, overlap int) string {
	if overlap < 0 {
		overlap = 0
	}

	var b strings.Builder
	for i, c := range chunks {
		if i == 0 {
			b.WriteString(c)
			continue
		}
		n := overlap
		if prev := utf8.RuneCountInString(chunks[i-1]); prev < n {
			n = prev
		}
		b.WriteString(skip(c, n))
	}
	return b.String()
}

func splitRecursive(text string, separators []string, budget int) []string {
	if utf8.RuneCountInString(text) <= budget {
		return []string{text}
	}

	sep, finer := pickSeparator(text, separators)
	if sep == "" {
		return hardSplit(text, budget)
	}

	var (
		out    []string
		cur    strings.Builder
		curLen int
	)
	flush := func() {
		if curLen > 0 {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, piece := range strings.SplitAfter(text, sep) {
		if piece == "" {
			continue
		}
		n := utf8.RuneCountInString(piece)
		if n > budget {
			flush()
			out = append(out, splitRecursive(piece, finer, budget)...)
			continue
		}
		if curLen+n > budget {
			flush()
		}
		cur.WriteString(piece)
		curLen += n
	}
	flush()

	return out
}

// pickSeparator returns the first separator present in text and the
// separators finer than it.
func pickSeparator(text string, separators []string) (string, []string) {
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			return sep, separators[i+1:]
		}
	}
	return "", nil
}

func hardSplit(text string, budget int) []string {
	var out []string
	for text != "" {
		end := offset(text, budget)
		out = append(out, text[:end])
		text = text[end:]
	}
	return out
}

// offset returns the byte offset after the first n runes of s.
func offset(s string, n int) int {
	i := 0
	for ; n > 0 && i < len(s); n-- {
		_, w := utf8.DecodeRuneInString(s[i:])
		i += w
	}
	return i
}

func skip(s string, n int) string {
	return s[offset(s, n):]
}

// tail returns the last n runes of s.
func tail(s string, n int) string {
	i := len(s)
	for ; n > 0 && i > 0; n-- {
		_, w := utf8.DecodeLastRuneInString(s[:i])
		i -= w
	}
	return s[i:]
}
