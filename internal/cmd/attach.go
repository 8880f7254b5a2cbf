package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var attachCmd = &cobra.Command{
	Use:     "attach <target>",
	GroupID: GroupControl,
	Short:   "Attach to an operation's live agent session",
	Args:    cobra.ExactArgs(1),
	RunE:    runAttach,
}

func init() {
	rootCmd.AddCommand(attachCmd)
}

func runAttach(cmd *cobra.Command, args []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}

	name := args[0]
	op, err := d.store.Read(name)
	if err != nil {
		return fmt.Errorf("%w: operation %q", errNotFound, name)
	}
	if op.TmuxSession == "" {
		return fmt.Errorf("%s has no live session to attach to", name)
	}
	if alive, _ := d.tmux.HasSession(op.TmuxSession); !alive {
		return fmt.Errorf("%s's session %s is no longer running", name, op.TmuxSession)
	}
	return d.tmux.AttachSession(op.TmuxSession)
}
