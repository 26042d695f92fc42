package utils

import (
	"strings"

	"golang.org/x/net/html"
)

// Elements whose text content is never readable page content.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"iframe":   true,
	"svg":      true,
}

// Block-level elements that should force a line break in the extracted text.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "header": true, "footer": true,
	"blockquote": true, "pre": true, "table": true, "ul": true, "ol": true,
}

// ExtractText walks an HTML document and returns its readable text content
// plus the page title. Script/style subtrees are dropped and runs of
// whitespace are collapsed so the result is suitable as LLM context.
func ExtractText(htmlSource string) (content string, title string) {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlSource))

	var builder strings.Builder
	var skipDepth int
	var inTitle bool

	for {
		tokenType := tokenizer.Next()
		switch tokenType {
		case html.ErrorToken:
			// io.EOF or malformed input; either way we keep what we have
			return normalizeWhitespace(builder.String()), title

		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if skippedElements[tag] {
				skipDepth++
			}
			if tag == "title" {
				inTitle = true
			}
			if blockElements[tag] {
				builder.WriteByte('\n')
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if skippedElements[tag] && skipDepth > 0 {
				skipDepth--
			}
			if tag == "title" {
				inTitle = false
			}
			if blockElements[tag] {
				builder.WriteByte('\n')
			}

		case html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if blockElements[string(name)] {
				builder.WriteByte('\n')
			}

		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := string(tokenizer.Text())
			if inTitle {
				if t := strings.TrimSpace(text); t != "" && title == "" {
					title = t
				}
				continue
			}
			builder.WriteString(text)
			builder.WriteByte(' ')
		}
	}
}

// normalizeWhitespace collapses runs of spaces/tabs within lines and runs of
// blank lines down to single separators.
func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		out = append(out, strings.Join(fields, " "))
	}
	return strings.Join(out, "\n")
}
