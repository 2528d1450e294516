package render

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"gitlab.com/golang-commonmark/markdown"
)

var (
	// latexPattern matches $...$, $$...$$, \(...\) and \[...\] spans so
	// formulas survive the markdown pass untouched.
	latexPattern = regexp.MustCompile(
		`(\$\$[\s\S]+?\$\$)|(\$[^$\n]+?\$)|(\\\[[\s\S]+?\\\])|(\\\([\s\S]+?\\\))`,
	)

	// footnotePattern matches the 【n†(...)】 citation artifacts ChatGPT
	// leaves in browsing answers.
	footnotePattern = regexp.MustCompile(`【\d+†\([^)]+\)】`)

	fenceOpenPattern = regexp.MustCompile(`<pre><code[^>]*>`)
)

// notesMarkdown converts markdown to the restricted HTML vocabulary notes
// apps render natively. Raw HTML in the source is disabled to keep message
// content from injecting markup.
type notesMarkdown struct {
	md *markdown.Markdown
}

func newNotesMarkdown() *notesMarkdown {
	return &notesMarkdown{
		md: markdown.New(
			markdown.HTML(false),
			markdown.Linkify(false),
			markdown.Typographer(false),
			markdown.Tables(true),
		),
	}
}

// tagRewrites maps commonmark output onto the tags notes apps keep:
// paragraphs become divs, semantic emphasis becomes b/i, code becomes tt.
var tagRewrites = strings.NewReplacer(
	"<p>", "<div>",
	"</p>", "</div>",
	"<strong>", "<b>",
	"</strong>", "</b>",
	"<em>", "<i>",
	"</em>", "</i>",
	"<code>", "<tt>",
	"</code>", "</tt>",
)

func (n *notesMarkdown) toHTML(text string) string {
	protected, spans := protectLatex(text)

	out := n.md.RenderToString([]byte(protected))

	// fenced blocks first, so their code tags become the block form
	out = fenceOpenPattern.ReplaceAllString(out, "<div><tt>")
	out = strings.ReplaceAll(out, "</code></pre>", "</tt></div>")
	out = tagRewrites.Replace(out)

	return restoreLatex(out, spans)
}

// placeholder delimiter: a glyph that never occurs in chat text.
const latexDelim = "╣"

func protectLatex(text string) (string, []string) {
	var spans []string

	protected := latexPattern.ReplaceAllStringFunc(text, func(match string) string {
		spans = append(spans, match)

		return fmt.Sprintf("%s%d%s", latexDelim, len(spans)-1, latexDelim)
	})

	return protected, spans
}

func restoreLatex(text string, spans []string) string {
	for i, span := range spans {
		placeholder := fmt.Sprintf("%s%d%s", latexDelim, i, latexDelim)
		text = strings.Replace(text, placeholder, html.EscapeString(span), 1)
	}

	return text
}
