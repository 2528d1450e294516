package chatlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrMissingID marks a conversation without a usable id field.
	ErrMissingID = errors.New("conversation has no id")
	// ErrMissingUpdateTime marks a conversation that cannot be ordered.
	ErrMissingUpdateTime = errors.New("conversation has no update_time")
)

// Raw export shapes. Only the fields the sync pipeline needs are decoded;
// everything else in the export is ignored.
type rawConversation struct {
	ID         string             `json:"id"`
	ConvID     string             `json:"conversation_id"`
	Title      string             `json:"title"`
	CreateTime float64            `json:"create_time"`
	UpdateTime float64            `json:"update_time"`
	Mapping    map[string]rawNode `json:"mapping"`
}

type rawNode struct {
	Message *rawMessage `json:"message"`
}

type rawMessage struct {
	ID         string         `json:"id"`
	Author     rawAuthor      `json:"author"`
	CreateTime float64        `json:"create_time"`
	Content    *rawContent    `json:"content"`
	Metadata   map[string]any `json:"metadata"`
}

type rawAuthor struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

type rawContent struct {
	ContentType string            `json:"content_type"`
	Parts       []json.RawMessage `json:"parts"`
	Text        string            `json:"text"`
	Title       string            `json:"title"`
	URL         string            `json:"url"`
	Language    string            `json:"language"`
}

type rawPart struct {
	ContentType string `json:"content_type"`
	Text        string `json:"text"`
}

// ParseConversation decodes one exported conversation object. Messages are
// pulled out of the mapping graph, dropped when they have no content, and
// sorted by create time (ties broken by message ID so the order is stable
// across runs, since Go map iteration order is not).
func ParseConversation(data []byte) (*Conversation, error) {
	var raw rawConversation

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("decoding conversation: %w", err)
	}

	return raw.toConversation()
}

func (raw *rawConversation) toConversation() (*Conversation, error) {
	id := raw.ID
	if id == "" {
		id = raw.ConvID
	}

	if id == "" {
		return nil, ErrMissingID
	}

	title := raw.Title
	if title == "" {
		title = "Untitled"
	}

	conv := &Conversation{
		ID:         id,
		Title:      title,
		CreateTime: raw.CreateTime,
		UpdateTime: raw.UpdateTime,
		Messages:   extractMessages(raw.Mapping),
	}

	return conv, nil
}

func extractMessages(mapping map[string]rawNode) []Message {
	messages := make([]Message, 0, len(mapping))

	for nodeID, node := range mapping {
		if node.Message == nil || node.Message.Content == nil {
			continue
		}

		raw := node.Message

		msgID := raw.ID
		if msgID == "" {
			msgID = nodeID
		}

		messages = append(messages, Message{
			ID: msgID,
			Author: Author{
				Role: defaultRole(raw.Author.Role),
				Name: raw.Author.Name,
			},
			CreateTime: raw.CreateTime,
			Content:    decodeContent(raw.Content),
			Metadata:   raw.Metadata,
		})
	}

	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].CreateTime != messages[j].CreateTime {
			return messages[i].CreateTime < messages[j].CreateTime
		}

		return messages[i].ID < messages[j].ID
	})

	return messages
}

func defaultRole(role string) string {
	if role == "" {
		return "unknown"
	}

	return role
}

func decodeContent(raw *rawContent) Content {
	content := Content{
		ContentType: raw.ContentType,
		Text:        raw.Text,
		Title:       raw.Title,
		URL:         raw.URL,
		Language:    raw.Language,
	}

	if content.ContentType == "" {
		content.ContentType = "text"
	}

	for _, rawP := range raw.Parts {
		part, ok := decodePart(rawP)
		if ok {
			content.Parts = append(content.Parts, part)
		}
	}

	return content
}

// decodePart accepts either a bare string or an object part (e.g. audio
// transcriptions). Anything else, image pointers included, is skipped.
func decodePart(raw json.RawMessage) (Part, bool) {
	var text string
	if json.Unmarshal(raw, &text) == nil {
		return Part{Text: text}, true
	}

	var obj rawPart
	if json.Unmarshal(raw, &obj) == nil && obj.ContentType != "" {
		return Part{ContentType: obj.ContentType, Text: obj.Text}, true
	}

	return Part{}, false
}
