package sync

import (
	"log/slog"
	"sort"
)

// archiveOrphans moves every indexed note whose conversation was not seen
// this run into the archive subfolder, by document handle so no second
// scan is needed. Individual move failures are logged and skipped. Returns
// the number of notes moved.
func (e *Engine) archiveOrphans(index StoreIndex, processed map[string]struct{}) int {
	orphans := make([]string, 0, len(index))

	for convID := range index {
		if _, ok := processed[convID]; !ok {
			orphans = append(orphans, convID)
		}
	}

	// deterministic move and log order
	sort.Strings(orphans)

	archived := 0

	for _, convID := range orphans {
		entry := index[convID]

		err := e.store.MoveToSubfolder(entry.DocID, e.opts.Folder, e.opts.ArchiveFolder)
		if err != nil {
			e.logger.Warn("cannot archive note",
				slog.String("note", string(entry.DocID)),
				slog.String("conversation", convID),
				slog.String("error", err.Error()),
			)

			continue
		}

		e.logger.Info("archived note",
			slog.String("note", string(entry.DocID)),
			slog.String("conversation", convID),
		)

		archived++
	}

	return archived
}
