package chatlog

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrSourceNotFound reports a source path that does not exist. This is
// fatal for a run: there is nothing to sync.
var ErrSourceNotFound = errors.New("source not found")

// Discover resolves a source path into the list of JSON files to index.
// A directory yields its *.json files sorted by name, a .json file yields
// itself, and a .zip export archive is extracted to a temp directory first.
// Other file types yield an empty list.
func Discover(source string) ([]string, error) {
	info, err := os.Stat(source)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
		}

		return nil, fmt.Errorf("stat source: %w", err)
	}

	if info.IsDir() {
		files, err := filepath.Glob(filepath.Join(source, "*.json"))
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", source, err)
		}

		sort.Strings(files)

		return files, nil
	}

	switch strings.ToLower(filepath.Ext(source)) {
	case ".zip":
		return extractZip(source)
	case ".json":
		return []string{source}, nil
	default:
		return nil, nil
	}
}

// extractZip copies the JSON entries of an export archive into a temp
// directory. Entry paths are flattened to their base name, which also keeps
// hostile archives from escaping the extraction directory.
func extractZip(path string) ([]string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}

	defer func() { _ = archive.Close() }()

	tempDir, err := os.MkdirTemp("", "chat2notes-")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}

	for _, entry := range archive.File {
		if !strings.HasSuffix(entry.Name, ".json") {
			continue
		}

		err := extractEntry(entry, filepath.Join(tempDir, filepath.Base(entry.Name)))
		if err != nil {
			return nil, err
		}
	}

	files, err := filepath.Glob(filepath.Join(tempDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", tempDir, err)
	}

	sort.Strings(files)

	return files, nil
}

func extractEntry(entry *zip.File, target string) error {
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("opening archive entry %s: %w", entry.Name, err)
	}

	defer func() { _ = src.Close() }()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("extracting %s: %w", entry.Name, err)
	}

	_, copyErr := dst.ReadFrom(src)
	closeErr := dst.Close()

	if copyErr != nil {
		return fmt.Errorf("extracting %s: %w", entry.Name, copyErr)
	}

	if closeErr != nil {
		return fmt.Errorf("extracting %s: %w", entry.Name, closeErr)
	}

	return nil
}
