package services

import (
	"strings"

	"phrasely-backend/domain/core/entities"
	"phrasely-backend/domain/core/valueobjects"
)

// Segmenter re-derives the segment sequence from an accumulating raw
// text buffer. The split runs in full after every chunk; incremental
// splitting is not worth the bookkeeping at a handful of sentences per
// run.
type Segmenter struct{}

// NewSegmenter creates a segmenter.
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Split breaks raw streamed text into segments. Blank-line boundaries
// become newline segments; everything else is split on the language's
// terminal punctuation. Trailing text without a terminator still forms
// a sentence, since the stream may end mid-chunk.
func (s *Segmenter) Split(text string, language valueobjects.Language) []*entities.Segment {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	terminators := make(map[rune]bool)
	for _, r := range language.SentenceTerminators() {
		terminators[r] = true
	}

	var segments []*entities.Segment
	for i, para := range strings.Split(text, "\n") {
		if i > 0 {
			segments = append(segments, entities.NewLineBreak())
		}
		if strings.TrimSpace(para) == "" {
			continue
		}
		for _, sentence := range splitSentences(para, terminators) {
			tokens := Tokenize(sentence)
			if len(tokens) == 0 {
				continue
			}
			seg, err := entities.NewSentence(tokens)
			if err != nil {
				continue
			}
			segments = append(segments, seg)
		}
	}
	return segments
}

// splitSentences cuts a paragraph at terminal punctuation, keeping the
// terminator with its sentence.
func splitSentences(para string, terminators map[rune]bool) []string {
	var (
		sentences []string
		current   strings.Builder
	)
	for _, r := range para {
		current.WriteRune(r)
		if terminators[r] {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// Tokenize splits a sentence into word tokens. Trailing punctuation is
// peeled off into its own token so the projection can attach it without
// a preceding space. Brace-delimited freeze markers survive as part of
// the word; NewWordToken strips the braces and tags the token.
func Tokenize(sentence string) []valueobjects.WordToken {
	var tokens []valueobjects.WordToken
	for _, field := range strings.Fields(sentence) {
		word, punct := splitTrailingPunct(field)
		if word != "" {
			tokens = append(tokens, valueobjects.NewWordToken(word, valueobjects.TagNone))
		}
		if punct != "" {
			tokens = append(tokens, valueobjects.NewWordToken(punct, valueobjects.TagPunctuation))
		}
	}
	return tokens
}

func splitTrailingPunct(field string) (word, punct string) {
	runes := []rune(field)
	i := len(runes)
	for i > 0 && isPunctRune(runes[i-1]) {
		i--
	}
	return string(runes[:i]), string(runes[i:])
}

func isPunctRune(r rune) bool {
	switch r {
	case '.', ',', '!', '?', ';', ':', '。', '！', '？', '।', '、', '，':
		return true
	}
	return false
}
