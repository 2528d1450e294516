package notes

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"

	"chat2notes/internal/marker"
)

const (
	dirPerms = 0o750

	noteExt = ".html"
)

// DirStore keeps notes as HTML files under a root directory. Folder names
// map to subdirectories ("Parent/Child" nests), the document handle is the
// file path relative to the root, and every write goes through an atomic
// rename so readers never observe a half-written note.
type DirStore struct {
	root string
}

// NewDirStore returns a store rooted at dir. The directory itself is
// created lazily on first write.
func NewDirStore(dir string) *DirStore {
	return &DirStore{root: dir}
}

// ListDocuments returns the note files directly inside folder. Subfolders
// (the Archive among them) are not descended into.
func (s *DirStore) ListDocuments(folder string) ([]DocumentID, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, filepath.FromSlash(folder)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("listing folder %s: %w", folder, err)
	}

	var ids []DocumentID

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), noteExt) {
			continue
		}

		ids = append(ids, DocumentID(filepath.ToSlash(filepath.Join(folder, entry.Name()))))
	}

	return ids, nil
}

// ReadBody returns the note's stored body.
func (s *DirStore) ReadBody(id DocumentID) (string, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		return "", fmt.Errorf("reading note %s: %w", id, err)
	}

	return string(data), nil
}

// Create writes a new note file into folder. The filename comes from the
// first heading of the body, like a notes app deriving the title from the
// first line; bodies without a usable heading fall back to the sync marker
// conversation id, then to a random name. Name collisions get a numeric
// suffix.
func (s *DirStore) Create(folder, body string) (DocumentID, error) {
	dir := filepath.Join(s.root, filepath.FromSlash(folder))

	err := os.MkdirAll(dir, dirPerms)
	if err != nil {
		return "", fmt.Errorf("creating folder %s: %w", folder, err)
	}

	name := s.uniqueName(dir, noteFilename(body))

	err = atomic.WriteFile(filepath.Join(dir, name), strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("writing note %s: %w", name, err)
	}

	return DocumentID(filepath.ToSlash(filepath.Join(folder, name))), nil
}

// Replace atomically swaps the note's body in place.
func (s *DirStore) Replace(id DocumentID, body string) error {
	path := s.path(id)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		return fmt.Errorf("stat note %s: %w", id, err)
	}

	err := atomic.WriteFile(path, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("replacing note %s: %w", id, err)
	}

	return nil
}

// Append rewrites the note with the fragment concatenated to the old body.
// Read-modify-write is fine here: the engine is the only writer.
func (s *DirStore) Append(id DocumentID, fragment string) error {
	body, err := s.ReadBody(id)
	if err != nil {
		return err
	}

	err = atomic.WriteFile(s.path(id), strings.NewReader(body+fragment))
	if err != nil {
		return fmt.Errorf("appending to note %s: %w", id, err)
	}

	return nil
}

// MoveToSubfolder renames the note file into folder/subfolder, creating the
// subfolder on first use.
func (s *DirStore) MoveToSubfolder(id DocumentID, folder, subfolder string) error {
	targetDir := filepath.Join(s.root, filepath.FromSlash(folder), subfolder)

	err := os.MkdirAll(targetDir, dirPerms)
	if err != nil {
		return fmt.Errorf("creating subfolder %s: %w", subfolder, err)
	}

	src := s.path(id)

	target := filepath.Join(targetDir, s.uniqueName(targetDir, filepath.Base(src)))

	err = os.Rename(src, target)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		return fmt.Errorf("moving note %s: %w", id, err)
	}

	return nil
}

// Delete removes the note file.
func (s *DirStore) Delete(id DocumentID) error {
	err := os.Remove(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		return fmt.Errorf("deleting note %s: %w", id, err)
	}

	return nil
}

func (s *DirStore) path(id DocumentID) string {
	return filepath.Join(s.root, filepath.FromSlash(string(id)))
}

// uniqueName appends -2, -3, ... before the extension until the name is
// free in dir.
func (s *DirStore) uniqueName(dir, name string) string {
	if _, err := os.Stat(filepath.Join(dir, name)); os.IsNotExist(err) {
		return name
	}

	stem := strings.TrimSuffix(name, noteExt)

	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, n, noteExt)
		if _, err := os.Stat(filepath.Join(dir, candidate)); os.IsNotExist(err) {
			return candidate
		}
	}
}

var (
	headingPattern  = regexp.MustCompile(`<h1[^>]*>(.*?)</h1>`)
	tagPattern      = regexp.MustCompile(`<[^>]*>`)
	unsafePattern   = regexp.MustCompile(`[^\w\s-]`)
	collapsePattern = regexp.MustCompile(`[-\s]+`)
)

// noteFilename derives a filesystem-safe name from the body's first h1,
// falling back to the marker conversation id, then to a random one.
func noteFilename(body string) string {
	title := ""

	if m := headingPattern.FindStringSubmatch(body); m != nil {
		title = html.UnescapeString(tagPattern.ReplaceAllString(m[1], ""))
	}

	safe := unsafePattern.ReplaceAllString(title, "")
	safe = strings.Trim(collapsePattern.ReplaceAllString(safe, "_"), "_")

	if safe == "" {
		if m, ok := marker.Decode(body); ok {
			safe = m.ConversationID
		} else {
			safe = uuid.NewString()
		}
	}

	return safe + noteExt
}
