package interpret

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	headerPattern     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	rulePattern       = regexp.MustCompile(`(?m)^[ \t]*[-*_]{3,}[ \t]*$`)
	boldPattern       = regexp.MustCompile(`\*\*(\S(?:[^\n]*?\S)?)\*\*`)
	italicPattern     = regexp.MustCompile(`\*([^\s*](?:[^*\n]*?[^\s*])?)\*`)
	inlineCodePattern = regexp.MustCompile("`([^`\n]*)`")
	blankRunPattern   = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)
)

// StripMarkdown removes decorative markdown so text reads cleanly in a
// terminal: headers, horizontal rules, bold/italic markers, fence lines and
// inline code ticks. The bodies of fenced blocks are kept as written. Runs of
// blank lines collapse to one.
func StripMarkdown(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		out     []string
		prose   []string
		inBlock bool
	)
	flush := func() {
		if len(prose) > 0 {
			out = append(out, stripProse(strings.Join(prose, "\n")))
			prose = prose[:0]
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if !inBlock {
				flush()
			}
			inBlock = !inBlock
			continue
		}
		if inBlock {
			out = append(out, line)
			continue
		}
		prose = append(prose, line)
	}
	flush()

	return strings.TrimSpace(blankRunPattern.ReplaceAllString(strings.Join(out, "\n"), "\n\n"))
}

func stripProse(text string) string {
	text = headerPattern.ReplaceAllString(text, "")
	text = rulePattern.ReplaceAllString(text, "")
	text = stripDelimited(text, boldPattern)
	text = stripDelimited(text, italicPattern)
	text = inlineCodePattern.ReplaceAllString(text, "$1")
	return text
}

// stripDelimited replaces each match of pattern with its first group, but
// only where the markers stand apart from surrounding words, so 2*3*4 and
// globs like *.go stay intact.
func stripDelimited(text string, pattern *regexp.Regexp) string {
	var b strings.Builder
	pos := 0
	for pos < len(text) {
		loc := pattern.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if !markerBoundary(text, start, end) {
			b.WriteString(text[pos : start+1])
			pos = start + 1
			continue
		}
		b.WriteString(text[pos:start])
		b.WriteString(text[pos+loc[2] : pos+loc[3]])
		pos = end
	}
	b.WriteString(text[pos:])
	return b.String()
}

func markerBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || r == '*' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
