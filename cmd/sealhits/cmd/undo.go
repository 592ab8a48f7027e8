package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sealhits/internal/adapters/tui/views"
	"sealhits/internal/application/commands"
)

var undoCmd = &cobra.Command{
	Use:   "undo <source-name>",
	Short: "Remove everything one disk contributed",
	Long: `Delete the groups, tracks and points of one ingested source, then the
detection logs, image logs and frames no other source still uses.

Examples:
  sealhits undo PamGuard.sqlite3
  sealhits sources    # list the names that can be undone`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx, true)
		if err != nil {
			return err
		}

		undoCommand := commands.NewUndoCommand(newEngine(s), args[0])
		result, err := undoCommand.Execute(ctx)
		if err != nil {
			return err
		}

		fmt.Println(views.RenderSummary("Undo", result.Summary))
		fmt.Println(views.RenderMessage(result.Message, false))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(undoCmd)
}
