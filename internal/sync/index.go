package sync

import (
	"errors"
	"fmt"
	"log/slog"

	"chat2notes/internal/marker"
	"chat2notes/internal/notes"
)

// ErrStoreUnavailable reports that the note store cannot be reached at
// all. Nothing can be reconciled, so this aborts the whole run.
var ErrStoreUnavailable = errors.New("note store unavailable")

// IndexEntry is what one scanned note contributes to the store index: its
// handle and the watermark of the last message written into it.
type IndexEntry struct {
	DocID      notes.DocumentID
	LastSynced string
}

// StoreIndex maps conversation id to the note holding it. Built once per
// run by a single scan of the folder, read-only afterwards; the archiver
// diffs its keys against the processed set without mutating it.
type StoreIndex map[string]IndexEntry

// buildStoreIndex enumerates the folder once and reads each note body once
// to decode its sync marker. Notes without a marker are unmanaged and left
// out. The scan costs one list call plus one read per note regardless of
// how many source records follow, which is what keeps a big sync linear
// instead of records-times-notes.
func buildStoreIndex(store notes.Store, folder string, logger *slog.Logger) (StoreIndex, error) {
	ids, err := store.ListDocuments(folder)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	index := make(StoreIndex, len(ids))

	for _, id := range ids {
		body, err := store.ReadBody(id)
		if err != nil {
			logger.Warn("cannot read note, leaving it unindexed",
				slog.String("note", string(id)),
				slog.String("error", err.Error()),
			)

			continue
		}

		m, ok := marker.Decode(body)
		if !ok {
			continue
		}

		// Duplicate markers mean a corrupt store; keep the last one
		// scanned and shadow the rest rather than guessing a repair.
		if prev, dup := index[m.ConversationID]; dup {
			logger.Warn("duplicate notes for conversation",
				slog.String("conversation", m.ConversationID),
				slog.String("kept", string(id)),
				slog.String("shadowed", string(prev.DocID)),
			)
		}

		index[m.ConversationID] = IndexEntry{DocID: id, LastSynced: m.LastMessageID}
	}

	return index, nil
}
