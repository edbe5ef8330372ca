// Package validators holds domain-level validation that cuts across
// value objects: rules about the paraphrase input as a whole rather
// than any single field.
package validators

import (
	"fmt"
	"strings"
	"unicode"

	pkgerrors "phrasely-backend/pkg/errors"
)

// InputValidator validates paraphrase input before a run is started.
// Field-level shape checks (lengths, enums) live on the commands; this
// covers the rules that need the text and freeze words together.
type InputValidator struct {
	maxFreezeWordLength int
}

// NewInputValidator creates a validator with default rules
func NewInputValidator() *InputValidator {
	return &InputValidator{
		maxFreezeWordLength: 60,
	}
}

// ValidateSubmission checks the input text and freeze words as a unit.
// Braces are rejected in both: they delimit freeze markers on the wire,
// so user-supplied braces would corrupt the marker framing.
func (v *InputValidator) ValidateSubmission(text string, freezeWords []string) error {
	if err := v.validateText(text); err != nil {
		return err
	}

	seen := make(map[string]bool, len(freezeWords))
	for _, word := range freezeWords {
		if err := v.validateFreezeWord(word, text); err != nil {
			return err
		}
		lowered := strings.ToLower(word)
		if seen[lowered] {
			return pkgerrors.NewValidationError(
				fmt.Sprintf("duplicate freeze word %q", word))
		}
		seen[lowered] = true
	}

	return nil
}

func (v *InputValidator) validateText(text string) error {
	if strings.ContainsAny(text, "{}") {
		return pkgerrors.NewValidationError("input text may not contain braces")
	}

	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return pkgerrors.NewValidationError("input text contains control characters")
		}
	}

	return nil
}

func (v *InputValidator) validateFreezeWord(word, text string) error {
	trimmed := strings.TrimSpace(word)
	if trimmed == "" {
		return pkgerrors.NewValidationError("freeze word cannot be blank")
	}
	if len(trimmed) > v.maxFreezeWordLength {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("freeze word %q exceeds %d characters", trimmed, v.maxFreezeWordLength))
	}
	if strings.ContainsAny(trimmed, "{},") {
		// Commas would split the word when freeze lists are joined for
		// the upstream request.
		return pkgerrors.NewValidationError(
			fmt.Sprintf("freeze word %q contains reserved characters", trimmed))
	}
	if !strings.Contains(strings.ToLower(text), strings.ToLower(trimmed)) {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("freeze word %q does not appear in the input text", trimmed))
	}
	return nil
}
