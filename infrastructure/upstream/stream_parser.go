package upstream

import (
	"regexp"
	"strings"

	"phrasely-backend/domain/core/valueobjects"
)

// tokenPattern matches either a brace-delimited freeze marker or a run
// of non-space characters. Freeze markers must survive as single tokens
// even when the wrapped phrase contains spaces.
var tokenPattern = regexp.MustCompile(`\{[^{}]*\}|\S+`)

// StreamParser incrementally splits a chunked rephrase response into
// complete sentences. Bytes arrive in arbitrary chunk boundaries, so
// the parser buffers until it sees a sentence terminator for the run's
// language.
type StreamParser struct {
	terminators map[rune]bool
	buffer      strings.Builder
}

// NewStreamParser creates a parser for one streamed response
func NewStreamParser(language valueobjects.Language) *StreamParser {
	terminators := make(map[rune]bool)
	for _, r := range language.SentenceTerminators() {
		terminators[r] = true
	}
	return &StreamParser{terminators: terminators}
}

// Feed appends a chunk and returns any sentences completed by it.
// A sentence inside an unclosed freeze marker is held back until the
// closing brace arrives.
func (p *StreamParser) Feed(chunk string) []string {
	p.buffer.WriteString(chunk)
	text := p.buffer.String()

	var sentences []string
	start := 0
	braceDepth := 0
	for i, r := range text {
		switch {
		case r == '{':
			braceDepth++
		case r == '}':
			if braceDepth > 0 {
				braceDepth--
			}
		case p.terminators[r] && braceDepth == 0:
			sentence := strings.TrimSpace(text[start : i+len(string(r))])
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			start = i + len(string(r))
		}
	}

	p.buffer.Reset()
	p.buffer.WriteString(text[start:])
	return sentences
}

// Flush returns whatever is buffered as a final partial sentence
func (p *StreamParser) Flush() string {
	remainder := strings.TrimSpace(p.buffer.String())
	p.buffer.Reset()
	return remainder
}

// Tokens splits a sentence into its word tokens, keeping each
// brace-delimited freeze marker intact as one token.
func Tokens(sentence string) []string {
	return tokenPattern.FindAllString(sentence, -1)
}
