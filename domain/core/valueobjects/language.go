package valueobjects

// Language identifies the output language of a paraphrase run. The
// sentence splitter uses it to pick the terminal punctuation set.
type Language string

const (
	LanguageEnglish  Language = "en"
	LanguageSpanish  Language = "es"
	LanguageFrench   Language = "fr"
	LanguageGerman   Language = "de"
	LanguageJapanese Language = "ja"
	LanguageChinese  Language = "zh"
	LanguageHindi    Language = "hi"
)

// ParseLanguage maps a raw language code to a supported Language,
// defaulting to English for unknown codes.
func ParseLanguage(code string) Language {
	switch Language(code) {
	case LanguageEnglish, LanguageSpanish, LanguageFrench, LanguageGerman,
		LanguageJapanese, LanguageChinese, LanguageHindi:
		return Language(code)
	default:
		return LanguageEnglish
	}
}

// SentenceTerminators returns the runes that end a sentence in this
// language. CJK languages use the ideographic full stop, Hindi the
// danda; everything else is period-based.
func (l Language) SentenceTerminators() []rune {
	switch l {
	case LanguageJapanese, LanguageChinese:
		return []rune{'。', '！', '？'}
	case LanguageHindi:
		return []rune{'।', '?', '!'}
	default:
		return []rune{'.', '?', '!'}
	}
}

// String returns the language code.
func (l Language) String() string {
	return string(l)
}
