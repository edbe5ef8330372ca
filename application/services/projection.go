package services

import (
	"strings"

	"phrasely-backend/domain/core/aggregates"
	"phrasely-backend/domain/core/valueobjects"
	pkgerrors "phrasely-backend/pkg/errors"
)

// BlockKind discriminates the rendered block types.
type BlockKind string

const (
	BlockParagraph BlockKind = "paragraph"
	BlockHeading   BlockKind = "heading"
)

// TokenSpan is one clickable rendered token. ClickIndex counts only
// sentence segments that render as clickable spans (newlines and
// headings are skipped); BackendIndex counts all real sentences and is
// what the replacement endpoints accept.
type TokenSpan struct {
	Text         string   `json:"text"`
	ClickIndex   int      `json:"clickIndex"`
	BackendIndex int      `json:"backendIndex"`
	WordIndex    int      `json:"wordIndex"`
	Synonyms     []string `json:"synonyms,omitempty"`
	Classes      []string `json:"classes,omitempty"`
	SpaceBefore  bool     `json:"spaceBefore"`
}

// Block is one paragraph or heading of the rendered document.
type Block struct {
	Kind    BlockKind   `json:"kind"`
	Heading string      `json:"heading,omitempty"`
	Spans   []TokenSpan `json:"spans,omitempty"`
}

// ProjectionDocument is the renderable form of a document, pushed to
// connected clients after every mutation.
type ProjectionDocument struct {
	Revision int     `json:"revision"`
	Blocks   []Block `json:"blocks"`
}

// ProjectionOptions toggles the three independent visual channels.
// They compose: a token can carry a tag color, a changed underline and
// an unchanged highlight at once.
type ProjectionOptions struct {
	ShowTagColors     bool `json:"showTagColors"`
	ShowStructural    bool `json:"showStructural"`
	ShowUnchangedRuns bool `json:"showUnchangedRuns"`
}

// DefaultProjectionOptions enables all three channels.
func DefaultProjectionOptions() ProjectionOptions {
	return ProjectionOptions{
		ShowTagColors:     true,
		ShowStructural:    true,
		ShowUnchangedRuns: true,
	}
}

// Projector renders documents into projection trees and resolves click
// coordinates back onto tokens.
type Projector struct{}

// NewProjector creates a projector.
func NewProjector() *Projector {
	return &Projector{}
}

// Project renders the document. Newline segments close the current
// paragraph block; heading segments become heading blocks and are
// excluded from the click-index count.
func (p *Projector) Project(doc *aggregates.Document, opts ProjectionOptions) *ProjectionDocument {
	out := &ProjectionDocument{Revision: doc.Revision()}

	var current *Block
	clickIndex := 0
	backendIndex := 0

	flush := func() {
		if current != nil && len(current.Spans) > 0 {
			out.Blocks = append(out.Blocks, *current)
		}
		current = nil
	}

	for _, seg := range doc.Segments() {
		switch {
		case seg.IsLineBreak():
			flush()

		case seg.IsHeading():
			flush()
			out.Blocks = append(out.Blocks, Block{
				Kind:    BlockHeading,
				Heading: headingText(seg.Tokens()),
			})
			backendIndex++

		default:
			if current == nil {
				current = &Block{Kind: BlockParagraph}
			}
			for wordIndex, tok := range seg.Tokens() {
				current.Spans = append(current.Spans, TokenSpan{
					Text:         tok.Word,
					ClickIndex:   clickIndex,
					BackendIndex: backendIndex,
					WordIndex:    wordIndex,
					Synonyms:     tok.Synonyms,
					Classes:      spanClasses(tok, opts),
					SpaceBefore:  wordIndex > 0 && !tok.IsPunctuation(),
				})
			}
			clickIndex++
			backendIndex++
		}
	}
	flush()
	return out
}

// ResolveClick maps a rendered click coordinate back to its token and
// the backend sentence index the replacement endpoints expect.
func (p *Projector) ResolveClick(doc *aggregates.Document, clickIndex, wordIndex int) (valueobjects.WordToken, int, error) {
	if clickIndex < 0 || wordIndex < 0 {
		return valueobjects.WordToken{}, 0, pkgerrors.NewValidationError("click indices must be non-negative")
	}

	current := 0
	backendIndex := 0
	for _, seg := range doc.Segments() {
		if seg.IsLineBreak() {
			continue
		}
		if seg.IsHeading() {
			backendIndex++
			continue
		}
		if current == clickIndex {
			tok, ok := seg.Token(wordIndex)
			if !ok {
				return valueobjects.WordToken{}, 0, pkgerrors.NewNotFoundError("word token")
			}
			return tok, backendIndex, nil
		}
		current++
		backendIndex++
	}
	return valueobjects.WordToken{}, 0, pkgerrors.NewNotFoundError("sentence")
}

// spanClasses derives the style classes for one token from the three
// toggleable channels.
func spanClasses(tok valueobjects.WordToken, opts ProjectionOptions) []string {
	var classes []string
	if opts.ShowTagColors && tok.Tag != valueobjects.TagNone && tok.Tag != valueobjects.TagPunctuation {
		classes = append(classes, "tag-"+string(tok.Tag))
	}
	if opts.ShowStructural && tok.StructuralChange {
		classes = append(classes, "changed")
	}
	if opts.ShowUnchangedRuns && tok.UnchangedLongest {
		classes = append(classes, "unchanged-run")
	}
	return classes
}

// headingText joins a heading segment's tokens after the marker.
func headingText(tokens []valueobjects.WordToken) string {
	words := make([]string, 0, len(tokens))
	for i, tok := range tokens {
		if i == 0 {
			continue
		}
		words = append(words, tok.Word)
	}
	return strings.Join(words, " ")
}
