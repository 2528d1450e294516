// Package marker encodes the sync watermark embedded in a note body.
//
// The marker is the only state the tool persists: a short
// "conversation-uuid:message-id" token placed in a footer element of each
// managed note. Matching a note back to its conversation and deciding
// where an incremental append resumes both go through this codec, so no
// side database is needed.
package marker

import (
	"fmt"
	"html"
	"regexp"

	"github.com/google/uuid"
)

// Marker links a note to its source conversation and records the last
// message already written into the note.
type Marker struct {
	ConversationID string
	LastMessageID  string
}

// pattern matches "uuid:message-id" anywhere in a body. The message id is
// any run without whitespace, markup or further colons.
var pattern = regexp.MustCompile(
	`([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}):([^\s<>:"]+)`,
)

// Encode renders the marker token.
func Encode(m Marker) string {
	return m.ConversationID + ":" + m.LastMessageID
}

// Footer renders the marker wrapped in the footer element appended to note
// bodies. Kept small and gray so it stays out of the way when reading.
func Footer(m Marker) string {
	return fmt.Sprintf(
		`<div style="font-size: x-small; color: gray;">%s:%s</div>`,
		html.EscapeString(m.ConversationID), html.EscapeString(m.LastMessageID),
	)
}

// Decode finds the sync marker in a note body. Appends stack a refreshed
// footer under the old ones, so the last match is the current watermark.
// Absence is normal: notes without a marker are simply not managed by the
// tool. Decode never fails on arbitrary input.
func Decode(body string) (Marker, bool) {
	matches := pattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return Marker{}, false
	}

	last := matches[len(matches)-1]

	convID := last[1]
	if _, err := uuid.Parse(convID); err != nil {
		return Marker{}, false
	}

	return Marker{ConversationID: convID, LastMessageID: last[2]}, true
}
