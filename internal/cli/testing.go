package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CLI provides a clean interface for running commands in tests. It manages
// a temp work directory and a pinned environment so the developer's own
// global config never leaks into a test run.
type CLI struct {
	t   *testing.T
	Dir string
	Env map[string]string
}

// NewCLI creates a new test CLI with a temp work directory and an isolated
// fake home directory.
func NewCLI(t *testing.T) *CLI {
	t.Helper()

	dir := t.TempDir()
	home := filepath.Join(dir, ".home")

	if err := os.MkdirAll(home, 0o750); err != nil {
		t.Fatalf("cannot create fake home: %v", err)
	}

	return &CLI{
		t:   t,
		Dir: dir,
		Env: map[string]string{
			"HOME":            home,
			"XDG_CONFIG_HOME": filepath.Join(home, ".config"),
		},
	}
}

// Run executes the CLI with the given args and returns stdout, stderr, and
// exit code. Args should not include "chat2notes" or "--cwd" - those are
// added automatically.
func (r *CLI) Run(args ...string) (string, string, int) {
	var outBuf, errBuf bytes.Buffer

	fullArgs := append([]string{"chat2notes", "--cwd", r.Dir}, args...)
	code := Run(nil, &outBuf, &errBuf, fullArgs, r.Env, nil)

	return outBuf.String(), errBuf.String(), code
}

// MustRun executes the CLI and fails the test if the command returns
// non-zero. Returns trimmed stdout.
func (r *CLI) MustRun(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code != 0 {
		r.t.Fatalf("command %v failed with exit code %d\nstderr: %s", args, code, stderr)
	}

	return strings.TrimSpace(stdout)
}

// WriteFile writes a file relative to the work directory, creating parent
// directories as needed, and returns its absolute path.
func (r *CLI) WriteFile(relPath, content string) string {
	r.t.Helper()

	path := filepath.Join(r.Dir, relPath)

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		r.t.Fatalf("cannot create dir for %s: %v", relPath, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		r.t.Fatalf("cannot write %s: %v", relPath, err)
	}

	return path
}

// ReadNote reads a note body from the default notes dir and fails the test
// if it does not exist.
func (r *CLI) ReadNote(folder, name string) string {
	r.t.Helper()

	data, err := os.ReadFile(filepath.Join(r.Dir, "notes", folder, name)) //nolint:gosec // test path
	if err != nil {
		r.t.Fatalf("cannot read note %s/%s: %v", folder, name, err)
	}

	return string(data)
}

// conversationJSON builds a minimal single-conversation export with text
// messages alternating between the given (role, text) pairs.
func conversationJSON(id, title string, updateTime float64, msgs ...[3]string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `{"id": %q, "title": %q, "update_time": %v, "mapping": {`, id, title, updateTime)

	for i, msg := range msgs {
		if i > 0 {
			b.WriteString(",")
		}

		fmt.Fprintf(&b,
			`%q: {"id": %q, "message": {"id": %q, "author": {"role": %q}, "create_time": %d, `+
				`"content": {"content_type": "text", "parts": [%q]}}}`,
			msg[0], msg[0], msg[0], msg[1], i+1, msg[2])
	}

	b.WriteString("}}")

	return b.String()
}
