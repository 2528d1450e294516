// Package chatlog loads ChatGPT export files into conversation records.
//
// An export is either a single conversation object per JSON file or a bulk
// conversations.json holding an array of them. The package provides a cheap
// streaming key scan (id + update time only) for ordering decisions and a
// full lazy load keyed by a Locator, so large exports never have to be held
// in memory all at once.
package chatlog

// Author identifies who wrote a message.
type Author struct {
	Role string // "user", "assistant", "system", "tool"
	Name string // tool/plugin name, empty for humans and the model
}

// Part is one element of a multimodal content payload. Plain text parts
// have an empty ContentType.
type Part struct {
	ContentType string
	Text        string
}

// Content is the payload of a single message. Which fields are populated
// depends on ContentType; unknown types carry whatever decoded.
type Content struct {
	ContentType string
	Parts       []Part
	Text        string
	Title       string
	URL         string
	Language    string
}

// Message is one entry in a conversation, ordered by CreateTime.
type Message struct {
	ID         string
	Author     Author
	CreateTime float64
	Content    Content
	Metadata   map[string]any
}

// Conversation is one source record: immutable once parsed, identified by
// the export's conversation UUID, ordered among its peers by UpdateTime.
type Conversation struct {
	ID         string
	Title      string
	CreateTime float64
	UpdateTime float64
	Messages   []Message
}

// Recipient returns who the message is addressed to. Messages directed at
// a specific tool rather than "all" are internal traffic.
func (m *Message) Recipient() string {
	if m.Metadata == nil {
		return "all"
	}

	if r, ok := m.Metadata["recipient"].(string); ok && r != "" {
		return r
	}

	return "all"
}

// OutputImages returns image URLs produced by a code execution run,
// extracted from metadata.aggregate_result.messages.
func (m *Message) OutputImages() []string {
	if m.Metadata == nil {
		return nil
	}

	aggregate, ok := m.Metadata["aggregate_result"].(map[string]any)
	if !ok {
		return nil
	}

	messages, ok := aggregate["messages"].([]any)
	if !ok {
		return nil
	}

	var urls []string

	for _, raw := range messages {
		msg, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		if msg["message_type"] != "image" {
			continue
		}

		if url, ok := msg["image_url"].(string); ok && url != "" {
			urls = append(urls, url)
		}
	}

	return urls
}

// Citation is one browsing result attached to a tether_browsing_display
// message.
type Citation struct {
	Title string
	URL   string
}

// Citations returns the browsing citations recorded in
// metadata._cite_metadata.metadata_list, in order.
func (m *Message) Citations() []Citation {
	if m.Metadata == nil {
		return nil
	}

	cite, ok := m.Metadata["_cite_metadata"].(map[string]any)
	if !ok {
		return nil
	}

	list, ok := cite["metadata_list"].([]any)
	if !ok {
		return nil
	}

	var citations []Citation

	for _, raw := range list {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		var c Citation

		if title, ok := item["title"].(string); ok {
			c.Title = title
		}

		if url, ok := item["url"].(string); ok {
			c.URL = url
		}

		if c.Title != "" || c.URL != "" {
			citations = append(citations, c)
		}
	}

	return citations
}

// LastMessageID returns the ID of the final message, or "" for an empty
// conversation.
func (c *Conversation) LastMessageID() string {
	if len(c.Messages) == 0 {
		return ""
	}

	return c.Messages[len(c.Messages)-1].ID
}

// MessagesAfter returns the messages strictly after the given message ID in
// conversation order. The second return reports whether afterID was found
// at all; callers use a miss to detect that the store has drifted from the
// source and a full rewrite is needed.
func (c *Conversation) MessagesAfter(afterID string) ([]Message, bool) {
	for i, msg := range c.Messages {
		if msg.ID == afterID {
			return c.Messages[i+1:], true
		}
	}

	return nil, false
}
