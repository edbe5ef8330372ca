package services

import (
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"phrasely-backend/domain/config"
	"phrasely-backend/domain/core/aggregates"
	"phrasely-backend/domain/core/entities"
	"phrasely-backend/domain/core/valueobjects"
	"phrasely-backend/pkg/observability"
)

// Annotator computes change annotations for a paraphrased document
// against the original input text. Annotate is a pure function of its
// inputs and is memoized on the (input, output) text pair.
type Annotator struct {
	cache   *AnnotationCache
	cfg     *config.DomainConfig
	metrics *observability.Collector
	dmp     *diffmatchpatch.DiffMatchPatch
}

// NewAnnotator creates an annotator. The metrics collector may be nil
// in tests.
func NewAnnotator(cache *AnnotationCache, cfg *config.DomainConfig, metrics *observability.Collector) *Annotator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &Annotator{
		cache:   cache,
		cfg:     cfg,
		metrics: metrics,
		dmp:     diffmatchpatch.New(),
	}
}

// Annotate returns a copy of the document with structuralChange and
// unchangedLongest flags set, using the text-only heuristic: each
// output sentence is matched to the input sentence with the highest
// word-set overlap, then classified against the thresholds.
func (a *Annotator) Annotate(doc *aggregates.Document, inputText string) *aggregates.Document {
	key := a.cache.Key(inputText, doc.PlainText())
	if cached, ok := a.cache.Get(key); ok {
		if a.metrics != nil {
			a.metrics.CacheHits.Inc()
		}
		return overlayFlags(doc, cached)
	}
	if a.metrics != nil {
		a.metrics.CacheMisses.Inc()
	}

	start := time.Now()
	annotated := doc.Clone()
	inputSentences := naiveSentences(inputText)

	for _, seg := range annotated.Segments() {
		if seg.IsLineBreak() {
			continue
		}
		a.annotateSegment(seg, inputSentences)
	}

	if a.metrics != nil {
		a.metrics.AnnotateDuration.Observe(time.Since(start).Seconds())
	}
	a.cache.Put(key, annotated)
	return annotated
}

// overlayFlags copies the memoized annotation flags onto a clone of the
// live document. Tags and synonyms keep streaming in after the text
// stops changing, so the live tokens stay authoritative for everything
// except the two flags.
func overlayFlags(doc, memo *aggregates.Document) *aggregates.Document {
	out := doc.Clone()
	memoSegs := memo.Segments()
	for i, seg := range out.Segments() {
		if i >= len(memoSegs) {
			break
		}
		tokens := seg.Tokens()
		memoTokens := memoSegs[i].Tokens()
		for j := range tokens {
			if j >= len(memoTokens) {
				break
			}
			tokens[j] = tokens[j].
				WithStructuralChange(memoTokens[j].StructuralChange).
				WithUnchangedLongest(memoTokens[j].UnchangedLongest)
		}
		seg.SetTokens(tokens)
	}
	return out
}

// AnnotateStructured sets structuralChange using per-sentence original
// tokens: a token is changed when its tag differs from the token at the
// same position in the original, or when the original has no
// counterpart. Used when the caller kept the pre-replacement tokens.
func (a *Annotator) AnnotateStructured(doc *aggregates.Document, original [][]valueobjects.WordToken) *aggregates.Document {
	annotated := doc.Clone()
	sentence := 0
	for _, seg := range annotated.Segments() {
		if seg.IsLineBreak() {
			continue
		}
		var origTokens []valueobjects.WordToken
		if sentence < len(original) {
			origTokens = original[sentence]
		}
		tokens := seg.Tokens()
		for i, tok := range tokens {
			changed := i >= len(origTokens) || tokens[i].Tag != origTokens[i].Tag
			tokens[i] = tok.WithStructuralChange(changed)
		}
		seg.SetTokens(tokens)
		sentence++
	}
	return annotated
}

func (a *Annotator) annotateSegment(seg *entities.Segment, inputSentences []string) {
	outWords := seg.Words()
	if len(outWords) == 0 {
		return
	}

	matched, ratio := bestMatch(outWords, inputSentences)
	tokens := seg.Tokens()

	if matched == "" || ratio < a.cfg.SentenceOverlapThreshold {
		// No input sentence is close enough: the whole segment was
		// added or rewritten wholesale.
		for i, tok := range tokens {
			if !tok.IsPunctuation() {
				tokens[i] = tok.WithStructuralChange(true)
			}
		}
		seg.SetTokens(tokens)
		return
	}

	inWords := normalizedWords(matched)
	inSet := make(map[string]bool, len(inWords))
	for _, w := range inWords {
		inSet[w] = true
	}

	for i, tok := range tokens {
		if tok.IsPunctuation() {
			continue
		}
		words := normalizedWords(tok.Word)
		if len(words) == 0 {
			continue
		}
		present := 0
		for _, w := range words {
			if inSet[w] {
				present++
			}
		}
		ratio := float64(present) / float64(len(words))
		tokens[i] = tok.WithStructuralChange(ratio < a.cfg.WordOverlapThreshold)
	}

	a.markUnchangedRuns(tokens, inWords, outWords)
	seg.SetTokens(tokens)
}

// markUnchangedRuns diffs the matched input sentence against the output
// words and flags every token covered by an equal run of at least the
// configured minimum word count.
func (a *Annotator) markUnchangedRuns(tokens []valueobjects.WordToken, inWords, outWords []string) {
	runs := a.equalRuns(inWords, outWords)
	if len(runs) == 0 {
		return
	}

	pos := 0
	for i, tok := range tokens {
		n := len(normalizedWords(tok.Word))
		if n == 0 {
			continue
		}
		for _, run := range runs {
			if pos >= run[0] && pos+n <= run[1] {
				tokens[i] = tok.WithUnchangedLongest(true)
				break
			}
		}
		pos += n
	}
}

// equalRuns returns [start, end) ranges in output word positions whose
// diff operation is "equal" and whose length meets the minimum run.
func (a *Annotator) equalRuns(inWords, outWords []string) [][2]int {
	// Encode each distinct word as one rune so the character diff
	// becomes a word diff. Private-use plane keeps the encoding clear
	// of surrogates.
	lookup := make(map[string]rune)
	next := rune(0xE000)
	encode := func(words []string) string {
		var b strings.Builder
		for _, w := range words {
			r, ok := lookup[w]
			if !ok {
				r = next
				next++
				lookup[w] = r
			}
			b.WriteRune(r)
		}
		return b.String()
	}

	encodedIn := encode(inWords)
	encodedOut := encode(outWords)
	diffs := a.dmp.DiffMain(encodedIn, encodedOut, false)

	var runs [][2]int
	pos := 0
	for _, d := range diffs {
		n := len([]rune(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			if n >= a.cfg.MinUnchangedRunWords {
				runs = append(runs, [2]int{pos, pos + n})
			}
			pos += n
		case diffmatchpatch.DiffInsert:
			pos += n
		case diffmatchpatch.DiffDelete:
			// Input-only words do not advance the output position.
		}
	}
	return runs
}

// bestMatch finds the input sentence with the highest word-set overlap
// ratio against the output words: |intersection| / min(|a|, |b|).
func bestMatch(outWords []string, inputSentences []string) (string, float64) {
	outSet := make(map[string]bool, len(outWords))
	for _, w := range outWords {
		outSet[w] = true
	}

	best := ""
	bestRatio := 0.0
	for _, sentence := range inputSentences {
		inWords := normalizedWords(sentence)
		if len(inWords) == 0 {
			continue
		}
		inSet := make(map[string]bool, len(inWords))
		for _, w := range inWords {
			inSet[w] = true
		}
		shared := 0
		for w := range outSet {
			if inSet[w] {
				shared++
			}
		}
		denom := len(outSet)
		if len(inSet) < denom {
			denom = len(inSet)
		}
		if denom == 0 {
			continue
		}
		ratio := float64(shared) / float64(denom)
		if ratio > bestRatio {
			bestRatio = ratio
			best = sentence
		}
	}
	return best, bestRatio
}

// naiveSentences splits input text on terminal punctuation across all
// supported scripts, preserving the punctuation with its sentence.
func naiveSentences(text string) []string {
	terminators := map[rune]bool{
		'.': true, '!': true, '?': true,
		'。': true, '！': true, '？': true, '।': true,
	}
	var sentences []string
	for _, para := range strings.Split(text, "\n") {
		sentences = append(sentences, splitSentences(para, terminators)...)
	}
	return sentences
}

// normalizedWords lowercases and strips punctuation, returning the
// comparable word list of a sentence or token.
func normalizedWords(text string) []string {
	var words []string
	for _, field := range strings.Fields(strings.ToLower(text)) {
		w := strings.TrimFunc(field, isPunctRune)
		w = strings.Trim(w, "\"'()[]{}")
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}
