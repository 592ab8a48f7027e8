package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sealhits/internal/adapters/tui/views"
	"sealhits/internal/application/commands"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List ingested sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx, true)
		if err != nil {
			return err
		}

		sources, err := commands.NewListSourcesCommand(s).Execute(ctx)
		if err != nil {
			return err
		}
		fmt.Println(views.RenderSources(sources))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
