package ai

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MaxDraftLen matches the longest message a swap request accepts.
const MaxDraftLen = 500

var ErrEmptyDraft = errors.New("empty draft")

// CleanDraft turns raw model output into a single plain-text message: code
// fences and wrapping quotes are dropped, whitespace is collapsed and the
// result is cut at a word boundary to MaxDraftLen runes.
func CleanDraft(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, `"'“”`)
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyDraft
	}
	if utf8.RuneCountInString(s) <= MaxDraftLen {
		return s, nil
	}
	runes := []rune(s)[:MaxDraftLen]
	cut := string(runes)
	if i := strings.LastIndex(cut, " "); i > MaxDraftLen/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut), nil
}
