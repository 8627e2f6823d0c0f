// ABOUTME: Renders model output markdown into Telegram's restricted HTML subset
// ABOUTME: Goldmark does the parsing, then block-level tags are folded away

package markdown

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Telegram only accepts a handful of inline tags (b, i, s, u, code, pre, a,
// blockquote). Everything block-level that goldmark produces has to be
// folded into plain text with newlines.
var (
	md = goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough),
	)

	headingOpen  = regexp.MustCompile(`<h[1-6][^>]*>`)
	headingClose = regexp.MustCompile(`</h[1-6]>`)

	blockReplacer = strings.NewReplacer(
		"<p>", "",
		"</p>", "\n\n",
		"<ul>", "",
		"</ul>", "\n",
		"<ol>", "",
		"</ol>", "\n",
		"<li>", "• ",
		"</li>", "\n",
		"<hr>", "\n",
		"<hr/>", "\n",
		"<hr />", "\n",
		"<br>", "\n",
		"<br/>", "\n",
		"<br />", "\n",
	)
)

// Render converts markdown to Telegram-safe HTML. On a parse failure the
// escaped source is returned so the message is still deliverable.
func Render(source string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return Escape(source)
	}

	out := buf.String()
	out = headingOpen.ReplaceAllString(out, "<b>")
	out = headingClose.ReplaceAllString(out, "</b>\n")
	out = blockReplacer.Replace(out)

	return strings.TrimSpace(out)
}

// Escape makes plain text safe for Telegram's HTML parse mode.
func Escape(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}
