package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pkt.systems/dropterm/internal/completion"
	"pkt.systems/dropterm/schema"
	"pkt.systems/pslog"
)

func newCompleteCmd(cfgPath *string) *cobra.Command {
	var dir string
	var isCommand bool
	cmd := &cobra.Command{
		Use:   "complete [--dir D] [--command] WORD",
		Short: "Print completion candidates for a partial word",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			workdir, err := resolveDir(dir)
			if err != nil {
				return err
			}
			partial := ""
			if len(args) == 1 {
				partial = args[0]
			}
			engine := completion.New(completion.Config{
				SearchPath:    cfg.Completion.SearchPath,
				Builtins:      cfg.Completion.Builtins,
				MaxCandidates: cfg.Completion.MaxCandidates,
				Logger:        pslog.Ctx(cmd.Context()),
			})
			result := engine.Complete(schema.CompletionRequest{
				Partial:    partial,
				IsCommand:  isCommand,
				WorkingDir: workdir,
			})
			return printCandidates(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "working directory (default current directory)")
	cmd.Flags().BoolVar(&isCommand, "command", false, "complete in command position")
	return cmd
}

// printCandidates writes one candidate per line; the default is marked
// with an asterisk.
func printCandidates(w io.Writer, result schema.CompletionResult) error {
	for i, cand := range result.Candidates {
		mark := " "
		if i == result.Selected {
			mark = "*"
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", mark, cand.Text); err != nil {
			return err
		}
	}
	return nil
}
