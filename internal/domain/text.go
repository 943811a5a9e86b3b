package domain

import (
	"regexp"
	"strings"
	"unicode"
)

// NormalizeText lowercases, trims, and strips punctuation, collapsing runs of
// whitespace to single spaces. Unicode-aware so Turkish and other non-ASCII
// text normalizes correctly.
func NormalizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Tokens splits normalized text into its token set, preserving first-seen
// order and dropping duplicates.
func Tokens(text string) []string {
	fields := strings.Fields(NormalizeText(text))
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Patterns compiled once; CleanForSpeech runs on every synthesized text.
var (
	codeBlockRe  = regexp.MustCompile("```[\\s\\S]*?```")
	inlineCodeRe = regexp.MustCompile("`[^`]+`")
	headerRe     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	emphasisRe   = regexp.MustCompile(`[*_]{1,3}([^*_]+)[*_]{1,3}`)
	mdLinkRe     = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	bareURLRe    = regexp.MustCompile(`https?://\S+`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// CleanForSpeech strips markup that reads badly aloud: code blocks, inline
// code, markdown headers and emphasis, links, and bare URLs. Markdown links
// keep their label text.
func CleanForSpeech(text string) string {
	text = codeBlockRe.ReplaceAllString(text, "")
	text = inlineCodeRe.ReplaceAllString(text, "")
	text = headerRe.ReplaceAllString(text, "")
	text = emphasisRe.ReplaceAllString(text, "$1")
	text = mdLinkRe.ReplaceAllString(text, "$1")
	text = bareURLRe.ReplaceAllString(text, "")
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}
