package text

import (
	"regexp"
	"strings"
	"unicode"
)

// rule rewrites every match of pattern with replacement.
type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// literalRules remove regions whose content is never prose: frontmatter,
// code, comments and math. Order matters where patterns overlap.
var literalRules = []rule{
	// YAML frontmatter
	{regexp.MustCompile(`(?s)\A---\r?\n.*?\r?\n---[ \t]*(?:\r?\n|\z)`), "\n"},
	// fenced code blocks
	{regexp.MustCompile("(?s)```.*?(?:```|\\z)"), " "},
	{regexp.MustCompile(`(?s)~~~.*?(?:~~~|\z)`), " "},
	// inline code
	{regexp.MustCompile("`[^`\n]*`"), " "},
	// %% comments %% and <!-- comments -->
	{regexp.MustCompile(`(?s)%%.*?%%`), " "},
	{regexp.MustCompile(`(?s)<!--.*?-->`), " "},
	// $$ math blocks $$ and $inline math$
	{regexp.MustCompile(`(?s)\$\$.*?\$\$`), " "},
	{regexp.MustCompile(`\$[^$\n]+\$`), " "},
}

// inlineRules run after literalRules. Links are unwrapped before the
// bracket cleanup.
var inlineRules = []rule{
	// dataview inline attributes (key:: value), whole line
	{regexp.MustCompile(`(?m)^[^\n]*?::[^\n]*$`), " "},
	// embeds and markdown links keep their alias text
	{regexp.MustCompile(`!?\[([^\]\n]*)\]\([^)\n]*\)`), "$1"},
	// wikilinks with alias keep the alias, plain wikilinks keep the target
	{regexp.MustCompile(`!?\[\[[^\]|\n]*\|([^\]\n]*)\]\]`), "$1"},
	{regexp.MustCompile(`!?\[\[([^\]\n]*)\]\]`), "$1"},
	// raw URLs
	{regexp.MustCompile(`(?i)\b(?:https?|ftp|obsidian)://\S*`), " "},
	// footnote references [^1] and inline footnotes ^[text]
	{regexp.MustCompile(`\[\^[^\]\n]*\]:?`), " "},
	{regexp.MustCompile(`\^\[([^\]\n]*)\]`), "$1"},
	// block references ^block-id at end of line
	{regexp.MustCompile(`(?m)\s\^[A-Za-z0-9-]+\s*$`), " "},
	// task checkboxes
	{regexp.MustCompile(`(?m)^\s*[-*+]\s*\[.?\]`), " "},
	// HTML tags
	{regexp.MustCompile(`<("[^"]*"|'[^']*'|[^'">])*>`), " "},
}

// applyRules strips document level markup from s.
func applyRules(s string) string {
	return apply(apply(s, literalRules), inlineRules)
}

func apply(s string, rules []rule) string {
	for _, r := range rules {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}

// cleanWord drops punctuation, symbols and emphasis markers from a single
// whitespace-delimited word and lowercases the remainder.
func cleanWord(word string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsControl(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, word)

	if n := len([]rune(cleaned)); n == 1 {
		r := []rune(cleaned)[0]
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return ""
		}
	}
	return cleaned
}
