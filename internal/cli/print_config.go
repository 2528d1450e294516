package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

func cmdPrintConfig(r *runEnv) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show the effective configuration",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			o.Println("notes_dir:", r.cfg.NotesDir)
			o.Println("folder:   ", r.cfg.Folder)

			if r.cfg.CCDir != "" {
				o.Println("cc_dir:   ", r.cfg.CCDir)
			}

			if r.cfg.LogFile != "" {
				o.Println("log_file: ", r.cfg.LogFile)
			}

			if r.sources.Global != "" {
				o.Println("global config:", r.sources.Global)
			}

			if r.sources.Project != "" {
				o.Println("project config:", r.sources.Project)
			}

			return nil
		},
	}
}
