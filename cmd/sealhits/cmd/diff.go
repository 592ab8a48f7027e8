package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sealhits/internal/adapters/tui/views"
	"sealhits/internal/application/commands"
)

var diffOpts ingestFlags

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show what ingesting a disk would change",
	Long: `Run a full ingest of one survey disk and roll it back, reporting what
would be created and deleted. No frame artifacts are written.

Examples:
  sealhits diff -s /media/disk1/PamGuard.sqlite3 -p /media/disk1/pgdf -g /media/disk1/glf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx, true)
		if err != nil {
			return err
		}

		diffCommand := commands.NewDiffCommand(newEngine(s), diffOpts.request())
		diffCommand.SetCheckPaths(!diffOpts.noCheck)
		result, err := diffCommand.Execute(ctx)
		if err != nil {
			return err
		}

		fmt.Println(views.RenderSummary("Diff", result.Summary))
		fmt.Println(views.RenderMessage(result.Message, false))
		return nil
	},
}

func init() {
	diffOpts.register(diffCmd)
	rootCmd.AddCommand(diffCmd)
}
