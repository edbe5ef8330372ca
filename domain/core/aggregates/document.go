package aggregates

import (
	"strings"

	"phrasely-backend/domain/config"
	"phrasely-backend/domain/core/entities"
	"phrasely-backend/domain/core/valueobjects"
	pkgerrors "phrasely-backend/pkg/errors"
)

// Document is the aggregate root for one paraphrase run's output text:
// an ordered sequence of segments where insertion order is reading
// order. The subsequence of non-newline segments corresponds 1:1 and
// in-order to the upstream service's zero-based sentence index space;
// every mutation must preserve that invariant.
type Document struct {
	segments []*entities.Segment
	history  [][]*entities.Segment
	revision int
	maxUndo  int
}

// NewDocument creates an empty document using default configuration.
func NewDocument() *Document {
	return NewDocumentWithConfig(config.DefaultDomainConfig())
}

// NewDocumentWithConfig creates an empty document with configuration.
func NewDocumentWithConfig(cfg *config.DomainConfig) *Document {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &Document{maxUndo: cfg.MaxUndoDepth}
}

// Revision returns a counter incremented on every mutation. The push
// layer uses it to order projection updates.
func (d *Document) Revision() int {
	return d.revision
}

// SegmentCount returns the number of segments, newline placeholders
// included.
func (d *Document) SegmentCount() int {
	return len(d.segments)
}

// Segment returns the segment at the given document index.
func (d *Document) Segment(index int) (*entities.Segment, bool) {
	if index < 0 || index >= len(d.segments) {
		return nil, false
	}
	return d.segments[index], true
}

// Segments returns the segments in reading order. The slice is a copy;
// the segments themselves are the live entities.
func (d *Document) Segments() []*entities.Segment {
	return append([]*entities.Segment(nil), d.segments...)
}

// SentenceCount returns the number of real (non-newline) segments, the
// size of the upstream sentence index space so far.
func (d *Document) SentenceCount() int {
	n := 0
	for _, seg := range d.segments {
		if !seg.IsLineBreak() {
			n++
		}
	}
	return n
}

// MapSentenceIndex translates an upstream sentence index (which counts
// only real sentences) into a document index (which also counts newline
// placeholders). Deliberately an O(n) rescan on every call: newline
// segments are interleaved unpredictably as streamed text arrives, so a
// cached slot table would go stale between chunks. A miss means "wait
// for more streamed text", never an error.
func (d *Document) MapSentenceIndex(sentenceIndex int) (int, bool) {
	if sentenceIndex < 0 {
		return 0, false
	}
	seen := 0
	for i, seg := range d.segments {
		if seg.IsLineBreak() {
			continue
		}
		if seen == sentenceIndex {
			return i, true
		}
		seen++
	}
	return 0, false
}

// AppendSegment appends a segment, keeping insertion order.
func (d *Document) AppendSegment(seg *entities.Segment) {
	if seg == nil {
		return
	}
	d.segments = append(d.segments, seg)
	d.revision++
}

// SetSegments replaces the whole segment list. The streaming assembler
// re-derives segments from the raw buffer after every plain chunk, so
// this is the hot mutation path. Enrichment already applied to earlier
// sentences is carried over by the caller.
func (d *Document) SetSegments(segments []*entities.Segment) {
	d.segments = append([]*entities.Segment(nil), segments...)
	d.revision++
}

// OverwriteSentence replaces the tokens of the sentence at the given
// upstream index. Used by the assembler when tagging or synonym results
// arrive. Returns false when the index has no mapping yet.
func (d *Document) OverwriteSentence(sentenceIndex int, tokens []valueobjects.WordToken) (bool, error) {
	docIndex, ok := d.MapSentenceIndex(sentenceIndex)
	if !ok {
		return false, nil
	}
	if err := d.segments[docIndex].SetTokens(tokens); err != nil {
		return false, err
	}
	d.revision++
	return true, nil
}

// ReplaceWord overwrites a single token's word in the sentence at the
// given upstream index. Tags, synonyms and annotation flags survive
// untouched, and no history snapshot is taken.
func (d *Document) ReplaceWord(sentenceIndex, wordIndex int, newWord string) error {
	docIndex, ok := d.MapSentenceIndex(sentenceIndex)
	if !ok {
		return pkgerrors.NewNotFoundError("sentence")
	}
	seg := d.segments[docIndex]
	tok, ok := seg.Token(wordIndex)
	if !ok {
		return pkgerrors.NewNotFoundError("word token")
	}
	if err := seg.ReplaceToken(wordIndex, tok.WithWord(newWord)); err != nil {
		return err
	}
	d.revision++
	return nil
}

// ReplaceSentence replaces the segment at the given upstream sentence
// index wholesale, pushing the previous document state onto the undo
// history first. Freeze markers are stripped from incoming words.
func (d *Document) ReplaceSentence(sentenceIndex int, tokens []valueobjects.WordToken) error {
	docIndex, ok := d.MapSentenceIndex(sentenceIndex)
	if !ok {
		return pkgerrors.NewNotFoundError("sentence")
	}
	clean := make([]valueobjects.WordToken, len(tokens))
	for i, tok := range tokens {
		clean[i] = tok.WithWord(valueobjects.StripFreezeMarkers(tok.Word))
	}
	d.pushHistory()
	if err := d.segments[docIndex].SetTokens(clean); err != nil {
		d.popHistory()
		return err
	}
	d.revision++
	return nil
}

// Undo restores the most recent history snapshot. Returns false when
// there is nothing to undo.
func (d *Document) Undo() bool {
	if len(d.history) == 0 {
		return false
	}
	last := d.history[len(d.history)-1]
	d.history = d.history[:len(d.history)-1]
	d.segments = last
	d.revision++
	return true
}

// PlainText reconstructs the document's text, one sentence per line
// break boundary.
func (d *Document) PlainText() string {
	var b strings.Builder
	for i, seg := range d.segments {
		if seg.IsLineBreak() {
			b.WriteByte('\n')
			continue
		}
		if i > 0 && !d.segments[i-1].IsLineBreak() {
			b.WriteByte(' ')
		}
		b.WriteString(seg.Text())
	}
	return b.String()
}

// Clone returns a deep copy of the document. The annotator works on
// clones so memoized results stay immutable.
func (d *Document) Clone() *Document {
	clone := &Document{
		revision: d.revision,
		maxUndo:  d.maxUndo,
		segments: make([]*entities.Segment, len(d.segments)),
	}
	for i, seg := range d.segments {
		clone.segments[i] = seg.Clone()
	}
	return clone
}

func (d *Document) pushHistory() {
	snapshot := make([]*entities.Segment, len(d.segments))
	for i, seg := range d.segments {
		snapshot[i] = seg.Clone()
	}
	d.history = append(d.history, snapshot)
	if d.maxUndo > 0 && len(d.history) > d.maxUndo {
		d.history = d.history[1:]
	}
}

func (d *Document) popHistory() {
	if len(d.history) > 0 {
		d.history = d.history[:len(d.history)-1]
	}
}
