package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testConvID  = "11111111-2222-3333-4444-555555555555"
	otherConvID = "66666666-7777-8888-9999-000000000000"
)

func TestRunHelp(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)

	stdout, _, code := cli.Run()
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Usage:")

	stdout, _, code = cli.Run("--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Commands:")
}

func TestRunUnknownCommand(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)

	_, stderr, code := cli.Run("frobnicate")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown command")
}

func TestSyncCreateAppendUnchanged(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)
	cli.WriteFile("export/conv.json", conversationJSON(testConvID, "First Chat", 10,
		[3]string{"n1", "user", "hello"},
		[3]string{"n2", "assistant", "hi there"},
	))

	stdout := cli.MustRun("sync", "export")
	assert.Contains(t, stdout, "Synced 1 conversation(s): 1 created, 0 appended, 0 overwritten, 0 unchanged, 0 failed")

	body := cli.ReadNote("ChatGPT", "First_Chat.html")
	assert.Contains(t, body, "<h1>First Chat</h1>")
	assert.Contains(t, body, "hello")
	assert.Contains(t, body, "hi there")
	assert.Contains(t, body, testConvID+":n2")

	// nothing new: unchanged, no rewrite
	stdout = cli.MustRun("sync", "export")
	assert.Contains(t, stdout, "0 created, 0 appended, 0 overwritten, 1 unchanged")

	// the conversation grows
	cli.WriteFile("export/conv.json", conversationJSON(testConvID, "First Chat", 11,
		[3]string{"n1", "user", "hello"},
		[3]string{"n2", "assistant", "hi there"},
		[3]string{"n3", "user", "one more thing"},
	))

	stdout = cli.MustRun("sync", "export")
	assert.Contains(t, stdout, "0 created, 1 appended")

	body = cli.ReadNote("ChatGPT", "First_Chat.html")
	assert.Contains(t, body, "one more thing")
	assert.Contains(t, body, testConvID+":n3")
}

func TestSyncDryRun(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)
	cli.WriteFile("export/conv.json", conversationJSON(testConvID, "Chat", 10,
		[3]string{"n1", "user", "hello"},
	))

	stdout := cli.MustRun("sync", "--dry-run", "export")
	assert.Contains(t, stdout, "Would sync 1 conversation(s): 1 created")

	_, err := os.Stat(filepath.Join(cli.Dir, "notes"))
	assert.True(t, os.IsNotExist(err), "dry run must not create the notes dir")
}

func TestSyncOverwriteFlag(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)
	cli.WriteFile("export/conv.json", conversationJSON(testConvID, "Chat", 10,
		[3]string{"n1", "user", "original wording"},
	))

	cli.MustRun("sync", "export")

	cli.WriteFile("export/conv.json", conversationJSON(testConvID, "Chat", 11,
		[3]string{"n1", "user", "rewritten wording"},
	))

	stdout := cli.MustRun("sync", "--overwrite", "export")
	assert.Contains(t, stdout, "1 overwritten")

	body := cli.ReadNote("ChatGPT", "Chat.html")
	assert.Contains(t, body, "rewritten wording")
	assert.NotContains(t, body, "original wording")
}

func TestSyncArchiveDeleted(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)
	cli.WriteFile("export/a.json", conversationJSON(testConvID, "Keeper", 10,
		[3]string{"n1", "user", "stays"},
	))
	cli.WriteFile("export/b.json", conversationJSON(otherConvID, "Goner", 20,
		[3]string{"n1", "user", "leaves"},
	))

	cli.MustRun("sync", "export")

	require.NoError(t, os.Remove(filepath.Join(cli.Dir, "export", "b.json")))

	stdout := cli.MustRun("sync", "--archive-deleted", "export")
	assert.Contains(t, stdout, "Archived 1 note(s)")

	_, err := os.Stat(filepath.Join(cli.Dir, "notes", "ChatGPT", "Archive", "Goner.html"))
	assert.NoError(t, err)
}

func TestSyncPartialFailureExitCode(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)
	cli.WriteFile("export/good.json", conversationJSON(testConvID, "Good", 10,
		[3]string{"n1", "user", "fine"},
	))
	// scannable key but a body that fails to parse on load
	cli.WriteFile("export/bad.json",
		`{"id": "`+otherConvID+`", "update_time": 20, "mapping": 42}`)

	stdout, _, code := cli.Run("sync", "export")
	assert.Equal(t, 1, code, "one bad record means partial failure")
	assert.Contains(t, stdout, "1 created")
	assert.Contains(t, stdout, "1 failed")
}

func TestSyncMissingSourceIsFatal(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)

	_, stderr, code := cli.Run("sync", "no-such-dir")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "no-such-dir")
}

func TestSyncRequiresSource(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)

	_, stderr, code := cli.Run("sync")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "source path is required")
}

func TestSyncWatchRejectsDryRun(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)

	_, stderr, code := cli.Run("sync", "--watch", "--dry-run", "export")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "--watch cannot be combined with --dry-run")
}

func TestSyncCCDir(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)
	cli.WriteFile("export/conv.json", conversationJSON(testConvID, "Chat", 10,
		[3]string{"n1", "user", "hello"},
	))

	cli.MustRun("sync", "--cc-dir", "copies", "export")

	data, err := os.ReadFile(filepath.Join(cli.Dir, "copies", "Chat.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestSyncFolderFlagOverridesConfig(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)
	cli.WriteFile(ConfigFileName, `{"folder": "FromConfig"}`)
	cli.WriteFile("export/conv.json", conversationJSON(testConvID, "Chat", 10,
		[3]string{"n1", "user", "hello"},
	))

	cli.MustRun("sync", "--folder", "FromFlag", "export")

	_, err := os.Stat(filepath.Join(cli.Dir, "notes", "FromFlag", "Chat.html"))
	assert.NoError(t, err)
}

func TestLs(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)
	cli.WriteFile("export/conv.json", conversationJSON(testConvID, "Listed Chat", 10,
		[3]string{"n1", "user", "hello"},
		[3]string{"n2", "assistant", "hi"},
	))
	cli.WriteFile(filepath.Join("notes", "ChatGPT", "manual.html"), "<div>handwritten note</div>")

	cli.MustRun("sync", "export")

	stdout := cli.MustRun("ls")
	assert.Contains(t, stdout, "Listed_Chat.html")
	assert.Contains(t, stdout, testConvID+" @ n2")
	assert.Contains(t, stdout, "1 managed note(s), 1 unmanaged")
}

func TestPrintConfig(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)
	cli.WriteFile(ConfigFileName, `{"notes_dir": "elsewhere", "cc_dir": "copies"}`)

	stdout := cli.MustRun("print-config")
	assert.Contains(t, stdout, "notes_dir: elsewhere")
	assert.Contains(t, stdout, "folder:    ChatGPT")
	assert.Contains(t, stdout, "cc_dir:    copies")
	assert.Contains(t, stdout, "project config:")
}

func TestVerboseAndLogFile(t *testing.T) {
	t.Parallel()

	cli := NewCLI(t)
	cli.WriteFile(ConfigFileName, `{"log_file": "sync.log"}`)
	cli.WriteFile("export/conv.json", conversationJSON(testConvID, "Chat", 10,
		[3]string{"n1", "user", "hello"},
	))

	_, stderr, code := cli.Run("-v", "sync", "export")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, "level=DEBUG")

	data, err := os.ReadFile(filepath.Join(cli.Dir, "sync.log"))
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
