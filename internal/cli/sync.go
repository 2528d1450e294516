package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"chat2notes/internal/chatlog"
	"chat2notes/internal/notes"
	"chat2notes/internal/render"
	"chat2notes/internal/sync"
)

type syncOptions struct {
	folder         string
	notesDir       string
	ccDir          string
	dryRun         bool
	overwrite      bool
	archiveDeleted bool
	watch          bool
}

func cmdSync(r *runEnv) *Command {
	flags := flag.NewFlagSet("sync", flag.ContinueOnError)

	var opts syncOptions

	flags.StringVar(&opts.folder, "folder", "", "Target folder (default from config)")
	flags.StringVar(&opts.notesDir, "notes-dir", "", "Note store root (default from config)")
	flags.StringVar(&opts.ccDir, "cc-dir", "", "Save copies of rendered HTML here")
	flags.BoolVarP(&opts.dryRun, "dry-run", "n", false, "Report what would happen without writing")
	flags.BoolVar(&opts.overwrite, "overwrite", false, "Replace existing notes instead of appending")
	flags.BoolVar(&opts.archiveDeleted, "archive-deleted", false, "Move notes for deleted conversations to the Archive subfolder")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "Keep running and re-sync when the source changes")

	return &Command{
		Flags: flags,
		Usage: "sync <source> [flags]",
		Short: "Sync conversations into the notes folder",
		Long: "Sync conversations from a JSON file, a directory of JSON files, or a\n" +
			"ZIP export archive into the configured notes folder. Existing notes are\n" +
			"matched by the sync marker in their body and only new messages are\n" +
			"appended; conversations without a note get one created.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errSourceRequired
			}

			if opts.watch && opts.dryRun {
				return errWatchWithDryRun
			}

			return r.runSync(ctx, o, args[0], opts)
		},
	}
}

func (r *runEnv) runSync(ctx context.Context, o *IO, source string, opts syncOptions) error {
	cfg := r.cfg

	if opts.folder != "" {
		cfg.Folder = opts.folder
	}

	if opts.notesDir != "" {
		cfg.NotesDir = opts.notesDir
	}

	if opts.ccDir != "" {
		cfg.CCDir = opts.ccDir
	}

	engine := sync.New(
		notes.NewDirStore(r.resolveDir(cfg.NotesDir)),
		sync.FileProvider{},
		render.New(),
		sync.Options{
			Folder:         cfg.Folder,
			Overwrite:      opts.overwrite,
			DryRun:         opts.dryRun,
			ArchiveDeleted: opts.archiveDeleted,
			CCDir:          ccDir(r, cfg),
		},
		r.logger,
	)

	run := func() error {
		files, err := chatlog.Discover(r.resolveDir(source))
		if err != nil {
			return exitWithCode(sync.StatusFatal.ExitCode(), err)
		}

		result, err := engine.Run(files)
		if err != nil {
			return exitWithCode(sync.StatusFatal.ExitCode(), err)
		}

		printSummary(o, opts.dryRun, result)

		if status := result.Status(); status != sync.StatusSuccess {
			return exitWithCode(status.ExitCode(), nil)
		}

		return nil
	}

	if !opts.watch {
		return run()
	}

	return r.watchAndSync(ctx, o, r.resolveDir(source), run)
}

func ccDir(r *runEnv, cfg Config) string {
	if cfg.CCDir == "" {
		return ""
	}

	return r.resolveDir(cfg.CCDir)
}

func printSummary(o *IO, dryRun bool, result sync.Result) {
	prefix := "Synced"
	if dryRun {
		prefix = "Would sync"
	}

	o.Printf("%s %d conversation(s): %d created, %d appended, %d overwritten, %d unchanged, %d failed\n",
		prefix, result.Processed,
		result.Created, result.Appended, result.Overwritten, result.Unchanged, result.Failed,
	)

	if result.Archived > 0 {
		o.Printf("Archived %d note(s)\n", result.Archived)
	}
}
