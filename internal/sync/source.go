package sync

import (
	"log/slog"
	"sort"

	"chat2notes/internal/chatlog"
)

// Provider supplies source records: a cheap key scan per file and a full
// load per locator. The default implementation reads export files from
// disk; tests substitute fakes.
type Provider interface {
	ScanKeys(path string, skip func(chatlog.Locator, error)) ([]chatlog.RecordKey, error)
	Load(loc chatlog.Locator) (*chatlog.Conversation, error)
}

// FileProvider reads conversations from JSON export files on disk.
type FileProvider struct{}

// ScanKeys implements Provider.
func (FileProvider) ScanKeys(path string, skip func(chatlog.Locator, error)) ([]chatlog.RecordKey, error) {
	return chatlog.ScanKeys(path, skip)
}

// Load implements Provider.
func (FileProvider) Load(loc chatlog.Locator) (*chatlog.Conversation, error) {
	return chatlog.Load(loc)
}

// buildSourceIndex streams the identity fields out of every file and
// returns the record keys sorted ascending by update time, ties keeping
// discovery order. Files that fail to scan and records that lack identity
// fields are logged and skipped; the index build itself never fails.
func buildSourceIndex(files []string, provider Provider, logger *slog.Logger) []chatlog.RecordKey {
	var keys []chatlog.RecordKey

	skip := func(loc chatlog.Locator, reason error) {
		logger.Warn("skipping record",
			slog.String("locator", loc.String()),
			slog.String("reason", reason.Error()),
		)
	}

	for _, file := range files {
		fileKeys, err := provider.ScanKeys(file, skip)
		if err != nil {
			logger.Warn("skipping unreadable source file",
				slog.String("file", file),
				slog.String("error", err.Error()),
			)

			continue
		}

		keys = append(keys, fileKeys...)
	}

	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i].UpdatedAt < keys[j].UpdatedAt
	})

	return keys
}
