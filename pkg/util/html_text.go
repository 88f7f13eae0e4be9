package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	lineBreakPattern  = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</div>|</li>`)
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	multiSpacePattern = regexp.MustCompile(`\s+`)
	headingPattern    = regexp.MustCompile(`(?is)<h[23][^>]*>(.*?)</h[23]>`)
)

const titleMarker = "@@TITLE@@"

// CategoryBlock is the normalized text that follows one heading.
type CategoryBlock struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// StripToText converts a markup fragment into single-spaced plain text.
// It is idempotent on input that contains neither markup nor entities.
func StripToText(html string) string {
	if html == "" {
		return ""
	}
	s := lineBreakPattern.ReplaceAllString(html, "\n")
	s = htmlTagPattern.ReplaceAllString(s, " ")
	s = decodeEntities(s)
	s = multiSpacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// SplitIntoCategoryBlocks segments a page by its h2/h3 headings. Each block
// holds the text between its heading and the next one. A page without
// headings yields a single block labelled "all".
func SplitIntoCategoryBlocks(html string) []CategoryBlock {
	marked := headingPattern.ReplaceAllStringFunc(html, func(h string) string {
		m := headingPattern.FindStringSubmatch(h)
		return "\n" + titleMarker + StripToText(m[1]) + titleMarker + "\n"
	})
	text := StripToText(marked)

	parts := strings.Split(text, titleMarker)
	if len(parts) < 3 {
		return []CategoryBlock{{Category: "all", Text: text}}
	}

	// parts alternates: preamble, title, body, title, body...
	blocks := make([]CategoryBlock, 0, len(parts)/2)
	for i := 1; i+1 < len(parts); i += 2 {
		title := strings.TrimSpace(parts[i])
		if title == "" {
			title = "category"
		}
		blocks = append(blocks, CategoryBlock{
			Category: title,
			Text:     strings.TrimSpace(parts[i+1]),
		})
	}
	return blocks
}

// FoldText lower-cases s and removes diacritics so "Vérifier" matches "verifier".
func FoldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&amp;", "&",
)

// decodeEntities decodes in a single pass; replaced text is never rescanned,
// so "&amp;lt;" yields the literal "&lt;".
func decodeEntities(s string) string {
	return entityReplacer.Replace(s)
}
