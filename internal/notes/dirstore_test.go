package notes_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat2notes/internal/notes"
)

const folder = "ChatGPT"

func TestDirStoreCreateAndRead(t *testing.T) {
	t.Parallel()

	store := notes.NewDirStore(t.TempDir())

	id, err := store.Create(folder, "<div><h1>My First Chat</h1></div><div>hello</div>")
	require.NoError(t, err)
	assert.Equal(t, notes.DocumentID("ChatGPT/My_First_Chat.html"), id)

	body, err := store.ReadBody(id)
	require.NoError(t, err)
	assert.Contains(t, body, "hello")
}

func TestDirStoreCreateCollision(t *testing.T) {
	t.Parallel()

	store := notes.NewDirStore(t.TempDir())

	first, err := store.Create(folder, "<div><h1>Chat</h1></div>first")
	require.NoError(t, err)

	second, err := store.Create(folder, "<div><h1>Chat</h1></div>second")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, notes.DocumentID("ChatGPT/Chat-2.html"), second)

	body, err := store.ReadBody(first)
	require.NoError(t, err)
	assert.Contains(t, body, "first")
}

func TestDirStoreCreateNameFallbacks(t *testing.T) {
	t.Parallel()

	store := notes.NewDirStore(t.TempDir())

	// no heading, but a sync marker: file is named after the conversation
	id, err := store.Create(folder,
		"<div>text</div><div>aaaabbbb-cccc-dddd-eeee-ffff00001111:m1</div>")
	require.NoError(t, err)
	assert.Equal(t, notes.DocumentID("ChatGPT/aaaabbbb-cccc-dddd-eeee-ffff00001111.html"), id)

	// neither heading nor marker: random name, still created
	id, err = store.Create(folder, "<div>anonymous</div>")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(id), ".html"))
}

func TestDirStoreListDocuments(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := notes.NewDirStore(root)

	t.Run("missing folder is empty, not an error", func(t *testing.T) {
		ids, err := store.ListDocuments("Nowhere")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	_, err := store.Create(folder, "<div><h1>A</h1></div>")
	require.NoError(t, err)
	_, err = store.Create(folder, "<div><h1>B</h1></div>")
	require.NoError(t, err)

	// subfolders and foreign files are not listed
	require.NoError(t, os.MkdirAll(filepath.Join(root, folder, "Archive"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, folder, "stray.txt"), []byte("x"), 0o600))

	ids, err := store.ListDocuments(folder)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestDirStoreReplace(t *testing.T) {
	t.Parallel()

	store := notes.NewDirStore(t.TempDir())

	id, err := store.Create(folder, "<div><h1>Chat</h1></div>old")
	require.NoError(t, err)

	require.NoError(t, store.Replace(id, "<div><h1>Chat</h1></div>new"))

	body, err := store.ReadBody(id)
	require.NoError(t, err)
	assert.Contains(t, body, "new")
	assert.NotContains(t, body, "old")

	assert.ErrorIs(t, store.Replace("ChatGPT/gone.html", "x"), notes.ErrNotFound)
}

func TestDirStoreAppend(t *testing.T) {
	t.Parallel()

	store := notes.NewDirStore(t.TempDir())

	id, err := store.Create(folder, "<div>start</div>")
	require.NoError(t, err)

	require.NoError(t, store.Append(id, "<div>more</div>"))

	body, err := store.ReadBody(id)
	require.NoError(t, err)
	assert.Equal(t, "<div>start</div><div>more</div>", body)

	assert.ErrorIs(t, store.Append("ChatGPT/gone.html", "x"), notes.ErrNotFound)
}

func TestDirStoreMoveToSubfolder(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := notes.NewDirStore(root)

	id, err := store.Create(folder, "<div><h1>Old Chat</h1></div>")
	require.NoError(t, err)

	require.NoError(t, store.MoveToSubfolder(id, folder, "Archive"))

	// gone from the folder listing, present in the archive
	ids, err := store.ListDocuments(folder)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = os.Stat(filepath.Join(root, folder, "Archive", "Old_Chat.html"))
	assert.NoError(t, err)

	assert.ErrorIs(t, store.MoveToSubfolder(id, folder, "Archive"), notes.ErrNotFound)
}

func TestDirStoreDelete(t *testing.T) {
	t.Parallel()

	store := notes.NewDirStore(t.TempDir())

	id, err := store.Create(folder, "<div><h1>Chat</h1></div>")
	require.NoError(t, err)

	require.NoError(t, store.Delete(id))

	_, err = store.ReadBody(id)
	assert.ErrorIs(t, err, notes.ErrNotFound)

	assert.ErrorIs(t, store.Delete(id), notes.ErrNotFound)
}

func TestDirStoreNestedFolder(t *testing.T) {
	t.Parallel()

	store := notes.NewDirStore(t.TempDir())

	id, err := store.Create("Work/AI", "<div><h1>Nested</h1></div>")
	require.NoError(t, err)
	assert.Equal(t, notes.DocumentID("Work/AI/Nested.html"), id)

	ids, err := store.ListDocuments("Work/AI")
	require.NoError(t, err)
	assert.Equal(t, []notes.DocumentID{id}, ids)
}
