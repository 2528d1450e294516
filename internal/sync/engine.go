package sync

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"chat2notes/internal/chatlog"
	"chat2notes/internal/notes"
)

// DefaultArchiveFolder is where orphaned notes are moved unless configured
// otherwise.
const DefaultArchiveFolder = "Archive"

// Renderer turns a conversation into note markup: the whole thing, or only
// the messages after a watermark (empty string when there is nothing new).
type Renderer interface {
	Full(conv *chatlog.Conversation) (string, error)
	Incremental(conv *chatlog.Conversation, afterID string) (string, error)
}

// Options configures one run. Carried explicitly so every knob is visible
// at the call site.
type Options struct {
	Folder         string // target note folder
	ArchiveFolder  string // subfolder for orphans, DefaultArchiveFolder if empty
	Overwrite      bool   // replace note bodies instead of appending
	DryRun         bool   // classify outcomes without touching the store
	ArchiveDeleted bool   // move orphaned notes after reconciling
	CCDir          string // optional directory for copies of rendered bodies
}

// Engine reconciles conversation records against the note store. One
// engine per run configuration; Run may be called repeatedly (watch mode
// does) and each call is a complete, independent pipeline.
type Engine struct {
	store    notes.Store
	provider Provider
	renderer Renderer
	opts     Options
	logger   *slog.Logger
}

// New wires an engine. The logger must not be nil.
func New(store notes.Store, provider Provider, renderer Renderer, opts Options, logger *slog.Logger) *Engine {
	if opts.ArchiveFolder == "" {
		opts.ArchiveFolder = DefaultArchiveFolder
	}

	return &Engine{
		store:    store,
		provider: provider,
		renderer: renderer,
		opts:     opts,
		logger:   logger,
	}
}

// Run executes one full sync over the given source files. The returned
// error is reserved for fatal conditions (store unreachable); per-record
// trouble is absorbed into Result.Failed.
func (e *Engine) Run(files []string) (Result, error) {
	var result Result

	keys := buildSourceIndex(files, e.provider, e.logger)
	if len(keys) == 0 {
		e.logger.Warn("no conversations found in source")

		return result, nil
	}

	e.logger.Info("indexed source", slog.Int("conversations", len(keys)))

	index, err := buildStoreIndex(e.store, e.opts.Folder, e.logger)
	if err != nil {
		return result, err
	}

	e.logger.Info("indexed folder",
		slog.String("folder", e.opts.Folder),
		slog.Int("notes", len(index)),
	)

	processed := make(map[string]struct{}, len(keys))

	for _, key := range keys {
		if _, seen := processed[key.ID]; seen {
			e.logger.Warn("duplicate conversation in source, skipping",
				slog.String("conversation", key.ID),
				slog.String("locator", key.Loc.String()),
			)

			continue
		}

		outcome := e.reconcile(key, index)
		result.record(outcome)

		if outcome != OutcomeFailed {
			processed[key.ID] = struct{}{}
		}
	}

	if e.opts.ArchiveDeleted && !e.opts.DryRun {
		result.Archived = e.archiveOrphans(index, processed)
	}

	return result, nil
}

// reconcile settles one record: load it, match it against the index, and
// create, overwrite or append as needed. Every failure path logs the
// locator and title so the offending input can be found without a verbose
// re-run.
func (e *Engine) reconcile(key chatlog.RecordKey, index StoreIndex) Outcome {
	conv, err := e.provider.Load(key.Loc)
	if err != nil {
		e.fail(key, err)

		return OutcomeFailed
	}

	entry, exists := index[conv.ID]

	var outcome Outcome

	switch {
	case !exists:
		outcome, err = e.create(conv)
	case e.opts.Overwrite:
		outcome, err = e.overwrite(conv, entry)
	default:
		outcome, err = e.appendNew(conv, entry)
	}

	if err != nil {
		e.fail(key, err)

		return OutcomeFailed
	}

	e.logger.Debug("reconciled",
		slog.String("conversation", conv.ID),
		slog.String("title", conv.Title),
		slog.String("outcome", outcome.String()),
	)

	return outcome
}

func (e *Engine) fail(key chatlog.RecordKey, err error) {
	e.logger.Error("sync failed for conversation",
		slog.String("locator", key.Loc.String()),
		slog.String("title", key.Title),
		slog.String("error", err.Error()),
	)
}

func (e *Engine) create(conv *chatlog.Conversation) (Outcome, error) {
	body, err := e.renderer.Full(conv)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("rendering %s: %w", conv.ID, err)
	}

	if e.opts.DryRun {
		return OutcomeCreated, nil
	}

	e.saveCopy(conv, body)

	if _, err := e.store.Create(e.opts.Folder, body); err != nil {
		return OutcomeFailed, err
	}

	return OutcomeCreated, nil
}

func (e *Engine) overwrite(conv *chatlog.Conversation, entry IndexEntry) (Outcome, error) {
	body, err := e.renderer.Full(conv)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("rendering %s: %w", conv.ID, err)
	}

	if e.opts.DryRun {
		return OutcomeOverwritten, nil
	}

	e.saveCopy(conv, body)

	err = e.store.Replace(entry.DocID, body)
	if errors.Is(err, notes.ErrReplaceUnsupported) {
		err = e.replaceByRecreate(entry.DocID, body)
	}

	if err != nil {
		return OutcomeFailed, err
	}

	return OutcomeOverwritten, nil
}

// replaceByRecreate handles stores without in-place replacement: delete the
// old note, then create the new body.
func (e *Engine) replaceByRecreate(id notes.DocumentID, body string) error {
	if err := e.store.Delete(id); err != nil {
		return err
	}

	_, err := e.store.Create(e.opts.Folder, body)

	return err
}

func (e *Engine) appendNew(conv *chatlog.Conversation, entry IndexEntry) (Outcome, error) {
	fresh, found := conv.MessagesAfter(entry.LastSynced)
	if !found {
		// The note's watermark points at a message the conversation no
		// longer contains. A full rewrite beats a stuck watermark.
		e.logger.Warn("watermark not found in conversation, overwriting",
			slog.String("conversation", conv.ID),
			slog.String("watermark", entry.LastSynced),
		)

		return e.overwrite(conv, entry)
	}

	if len(fresh) == 0 {
		return OutcomeUnchanged, nil
	}

	fragment, err := e.renderer.Incremental(conv, entry.LastSynced)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("rendering %s: %w", conv.ID, err)
	}

	if fragment == "" {
		return OutcomeUnchanged, nil
	}

	if e.opts.DryRun {
		return OutcomeAppended, nil
	}

	if err := e.store.Append(entry.DocID, fragment); err != nil {
		return OutcomeFailed, err
	}

	return OutcomeAppended, nil
}

var unsafeFilename = regexp.MustCompile(`[^\w-]+`)

// saveCopy drops a copy of a rendered body into the cc directory when one
// is configured. Best effort: a failed copy is a warning, not a failed
// record.
func (e *Engine) saveCopy(conv *chatlog.Conversation, body string) {
	if e.opts.CCDir == "" {
		return
	}

	name := unsafeFilename.ReplaceAllString(strings.TrimSpace(conv.Title), "_")
	if name == "" || name == "_" {
		name = conv.ID
	}

	path := filepath.Join(e.opts.CCDir, name+".html")

	if err := os.MkdirAll(e.opts.CCDir, 0o750); err != nil {
		e.logger.Warn("cannot create cc dir", slog.String("error", err.Error()))

		return
	}

	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		e.logger.Warn("cannot save cc copy",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
