package media

import (
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/desertthunder/folio/internal/models"
)

var htmlTag = regexp.MustCompile(`<(p|br|div|span|b|i|u|strong|em|a|ul|ol|li|h[1-6]|blockquote|img|hr)[\s>/]`)

// ContainsHTML reports whether s looks like editor HTML rather than plain text.
func ContainsHTML(s string) bool {
	return htmlTag.MatchString(strings.ToLower(s))
}

// ToMarkdown converts HTML to Markdown. Plain text and unconvertible input pass through.
func ToMarkdown(s string) string {
	if s == "" || !ContainsHTML(s) {
		return s
	}
	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(md)
}

// EpisodeMarkdown renders an episode as a standalone Markdown document.
func EpisodeMarkdown(book string, ep models.Episode) string {
	var b strings.Builder
	if book != "" {
		fmt.Fprintf(&b, "# %s\n\n## %s\n\n", book, ep.Title)
	} else {
		fmt.Fprintf(&b, "# %s\n\n", ep.Title)
	}
	if !ep.ReleaseDate.IsZero() {
		fmt.Fprintf(&b, "_Released %s_\n\n", ep.ReleaseDate.Format("January 2, 2006"))
	}
	body := ToMarkdown(ep.ContentText)
	if body == "" {
		body = "_No text content._"
	}
	b.WriteString(body)
	b.WriteString("\n")
	return b.String()
}
