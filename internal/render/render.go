// Package render turns conversations into the HTML dialect notes apps
// digest well: div-based paragraphs, b/i/tt instead of semantic tags, and a
// sync footer as the final element.
package render

import (
	"fmt"
	"html"
	"strings"

	"chat2notes/internal/chatlog"
	"chat2notes/internal/marker"
)

// Renderer produces note bodies from conversations. Safe for reuse across
// records; it holds only the configured markdown converter.
type Renderer struct {
	md *notesMarkdown
}

// New returns a ready Renderer.
func New() *Renderer {
	return &Renderer{md: newNotesMarkdown()}
}

// Full renders the complete conversation: title heading, every visible
// message, and the sync footer.
func (r *Renderer) Full(conv *chatlog.Conversation) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "<div><h1>%s</h1></div>", html.EscapeString(conv.Title))
	b.WriteString("<div><br></div>")

	for i := range conv.Messages {
		r.writeMessage(&b, &conv.Messages[i])
	}

	if last := conv.LastMessageID(); last != "" {
		b.WriteString(marker.Footer(marker.Marker{
			ConversationID: conv.ID,
			LastMessageID:  last,
		}))
	}

	return b.String(), nil
}

// Incremental renders only the messages after afterID, closing with a
// refreshed sync footer. Returns "" when there is nothing new. An afterID
// that no longer exists in the conversation renders everything; callers
// that want overwrite-on-drift must check for drift before calling.
func (r *Renderer) Incremental(conv *chatlog.Conversation, afterID string) (string, error) {
	fresh, found := conv.MessagesAfter(afterID)
	if !found {
		fresh = conv.Messages
	}

	if len(fresh) == 0 {
		return "", nil
	}

	var b strings.Builder

	for i := range fresh {
		r.writeMessage(&b, &fresh[i])
	}

	// The footer is written even when every new message was filtered out,
	// so the watermark still advances and the next run sees no diff.
	b.WriteString(marker.Footer(marker.Marker{
		ConversationID: conv.ID,
		LastMessageID:  fresh[len(fresh)-1].ID,
	}))

	return b.String(), nil
}

func (r *Renderer) writeMessage(b *strings.Builder, msg *chatlog.Message) {
	if !visible(msg) {
		return
	}

	fmt.Fprintf(b, "<div><h2>%s</h2></div>", html.EscapeString(authorLabel(msg)))
	b.WriteString("<div><br></div>")
	b.WriteString(r.messageHTML(msg))
	b.WriteString("<div><br></div>")
}

// visible filters out conversation plumbing: model context blobs, messages
// addressed to a specific tool, and tool output with nothing to show.
func visible(msg *chatlog.Message) bool {
	if msg.Content.ContentType == "model_editable_context" {
		return false
	}

	if msg.Recipient() != "all" {
		return false
	}

	if msg.Author.Role == "tool" && !toolContentVisible(msg) {
		return false
	}

	return true
}

// toolContentVisible reports whether a tool message carries user-facing
// output: generated images or execution output with image results.
func toolContentVisible(msg *chatlog.Message) bool {
	switch msg.Content.ContentType {
	case "multimodal_text":
		return true
	case "execution_output":
		return len(msg.OutputImages()) > 0
	default:
		return false
	}
}

func authorLabel(msg *chatlog.Message) string {
	switch msg.Author.Role {
	case "assistant":
		return "ChatGPT"
	case "user":
		return "You"
	case "tool":
		if msg.Author.Name != "" {
			return "Plugin (" + msg.Author.Name + ")"
		}

		return "Plugin"
	default:
		return capitalize(msg.Author.Role)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}

const unsupportedContent = "[Unsupported content type]"

func (r *Renderer) messageHTML(msg *chatlog.Message) string {
	// User text is shown verbatim: escaped, never run through markdown.
	if msg.Author.Role == "user" {
		return r.userHTML(msg)
	}

	switch msg.Content.ContentType {
	case "text":
		return r.textHTML(msg)
	case "multimodal_text":
		return r.multimodalHTML(&msg.Content, false)
	case "code":
		return codeHTML(msg)
	case "execution_output":
		return executionOutputHTML(msg)
	case "tether_quote":
		return tetherQuoteHTML(msg)
	case "tether_browsing_display":
		return browsingDisplayHTML(msg)
	default:
		return unsupportedContent
	}
}

func (r *Renderer) userHTML(msg *chatlog.Message) string {
	switch msg.Content.ContentType {
	case "text":
		var texts []string

		for _, part := range msg.Content.Parts {
			if part.ContentType == "" && part.Text != "" {
				texts = append(texts, part.Text)
			}
		}

		return escapedLines(strings.Join(texts, "\n"))
	case "multimodal_text":
		return r.multimodalHTML(&msg.Content, true)
	default:
		return "<div>" + html.EscapeString(unsupportedContent) + "</div>"
	}
}

func (r *Renderer) textHTML(msg *chatlog.Message) string {
	var texts []string

	for _, part := range msg.Content.Parts {
		if part.ContentType == "" && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}

	text := footnotePattern.ReplaceAllString(strings.Join(texts, "\n"), "")

	return r.md.toHTML(text)
}

func (r *Renderer) multimodalHTML(content *chatlog.Content, escapeText bool) string {
	var b strings.Builder

	for _, part := range content.Parts {
		switch part.ContentType {
		case "":
			if escapeText {
				b.WriteString(escapedLines(part.Text))
			} else {
				b.WriteString(r.md.toHTML(part.Text))
			}
		case "audio_transcription":
			fmt.Fprintf(&b, `<div><i>"%s"</i></div>`, html.EscapeString(part.Text))
		}
	}

	return b.String()
}

func codeHTML(msg *chatlog.Message) string {
	return "<div><tt>" + html.EscapeString(msg.Content.Text) + "</tt></div>"
}

func executionOutputHTML(msg *chatlog.Message) string {
	images := msg.OutputImages()
	if len(images) > 0 {
		parts := make([]string, 0, len(images))
		for _, url := range images {
			parts = append(parts, fmt.Sprintf(
				`<div><img src="%s" style="max-width: 100%%;"></div>`, html.EscapeString(url),
			))
		}

		return strings.Join(parts, "\n")
	}

	return "<div><tt>Result:\n" + html.EscapeString(msg.Content.Text) + "</tt></div>"
}

func tetherQuoteHTML(msg *chatlog.Message) string {
	quote := msg.Content.Title
	if quote == "" {
		quote = msg.Content.Text
	}

	return "<blockquote>" + html.EscapeString(quote) + "</blockquote>"
}

func browsingDisplayHTML(msg *chatlog.Message) string {
	citations := msg.Citations()
	if len(citations) == 0 {
		return ""
	}

	parts := make([]string, 0, len(citations))
	for _, c := range citations {
		parts = append(parts, fmt.Sprintf(
			`<blockquote><a href="%s">%s</a></blockquote>`,
			html.EscapeString(c.URL), html.EscapeString(c.Title),
		))
	}

	return strings.Join(parts, "\n")
}

// escapedLines escapes text and wraps each line in its own div.
func escapedLines(text string) string {
	lines := strings.Split(html.EscapeString(text), "\n")

	return "<div>" + strings.Join(lines, "</div>\n<div>") + "</div>"
}
