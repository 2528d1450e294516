package cli

import (
	"context"
	"sort"

	flag "github.com/spf13/pflag"

	"chat2notes/internal/marker"
	"chat2notes/internal/notes"
)

func cmdLs(r *runEnv) *Command {
	flags := flag.NewFlagSet("ls", flag.ContinueOnError)

	var (
		folder   string
		notesDir string
	)

	flags.StringVar(&folder, "folder", "", "Folder to list (default from config)")
	flags.StringVar(&notesDir, "notes-dir", "", "Note store root (default from config)")

	return &Command{
		Flags: flags,
		Usage: "ls [flags]",
		Short: "List managed notes and their watermarks",
		Long: "List the notes in the folder that carry a sync marker, with the\n" +
			"conversation they belong to and the last message synced into them.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			if folder == "" {
				folder = r.cfg.Folder
			}

			if notesDir == "" {
				notesDir = r.cfg.NotesDir
			}

			return r.runLs(o, notes.NewDirStore(r.resolveDir(notesDir)), folder)
		},
	}
}

type lsRow struct {
	doc          notes.DocumentID
	conversation string
	watermark    string
}

func (r *runEnv) runLs(o *IO, store notes.Store, folder string) error {
	ids, err := store.ListDocuments(folder)
	if err != nil {
		return err
	}

	var (
		rows      []lsRow
		unmanaged int
	)

	for _, id := range ids {
		body, readErr := store.ReadBody(id)
		if readErr != nil {
			o.ErrPrintln("warning: cannot read note:", id)

			continue
		}

		m, ok := marker.Decode(body)
		if !ok {
			unmanaged++

			continue
		}

		rows = append(rows, lsRow{doc: id, conversation: m.ConversationID, watermark: m.LastMessageID})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].doc < rows[j].doc })

	for _, row := range rows {
		o.Printf("%-50s %s @ %s\n", row.doc, row.conversation, row.watermark)
	}

	o.Printf("%d managed note(s), %d unmanaged\n", len(rows), unmanaged)

	return nil
}
