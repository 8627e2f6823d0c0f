// ABOUTME: Tests for markdown to Telegram HTML rendering
// ABOUTME: Verifies inline tags survive and block tags are folded away

package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender_InlineFormatting(t *testing.T) {
	out := Render("some **bold** and *italic* and `code`")

	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "<em>italic</em>")
	assert.Contains(t, out, "<code>code</code>")
	assert.NotContains(t, out, "<p>")
}

func TestRender_CodeBlock(t *testing.T) {
	out := Render("```go\nfmt.Println(\"hi\")\n```")

	assert.Contains(t, out, "<pre>")
	assert.Contains(t, out, "fmt.Println(&quot;hi&quot;)")
}

func TestRender_HeadingsBecomeBold(t *testing.T) {
	out := Render("# Title\n\nbody")

	assert.Contains(t, out, "<b>Title</b>")
	assert.NotContains(t, out, "<h1>")
}

func TestRender_ListsBecomeBullets(t *testing.T) {
	out := Render("- first\n- second")

	assert.Contains(t, out, "• first")
	assert.Contains(t, out, "• second")
	assert.NotContains(t, out, "<li>")
	assert.NotContains(t, out, "<ul>")
}

func TestRender_EscapesRawAngleBrackets(t *testing.T) {
	out := Render("compare a < b with c > d")

	assert.NotContains(t, out, "a < b")
	assert.Contains(t, out, "&lt;")
}

func TestRender_PlainTextPassesThrough(t *testing.T) {
	out := Render("just a sentence")

	assert.Equal(t, "just a sentence", strings.TrimSpace(out))
}

func TestEscape(t *testing.T) {
	assert.Equal(t, "&lt;b&gt; &amp; co", Escape("<b> & co"))
}
