package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sealhits/internal/adapters/filesystem"
	"sealhits/internal/adapters/tui/views"
	"sealhits/internal/application/commands"
	"sealhits/internal/application/ingest"
	"sealhits/internal/config"
)

// ingestFlags are shared by ingest and diff.
type ingestFlags struct {
	session string
	pgdf    string
	glf     string
	name    string
	alias   string
	skipGLF bool
	noCheck bool
}

func (f *ingestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.session, "sqlite", "s", "", "PAMGuard session database of the disk")
	cmd.Flags().StringVarP(&f.pgdf, "pgdf", "p", "", "directory holding the detection logs (searched recursively)")
	cmd.Flags().StringVarP(&f.glf, "glf", "g", "", "directory holding the sonar image logs (searched recursively)")
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "source name to record (default: session database file name)")
	cmd.Flags().StringVar(&f.alias, "sql-alias", "", "name the disk was ingested under before, for renames")
	cmd.Flags().BoolVar(&f.skipGLF, "skip-glf", false, "skip image logs and keep the stored frames")
	cmd.Flags().BoolVar(&f.noCheck, "no-path-check", false, "do not check that the inputs exist before starting")

	cmd.Flags().StringP("outpath", "o", ".", "directory frame artifacts are written below")
	cmd.Flags().Float64("buffer", config.DefaultBufferSeconds, "seconds of padding around split segments and the largest gap within one")
	cmd.Flags().Float64("max-secs", config.DefaultMaxGroupSeconds, "groups longer than this many seconds are rejected")
	cmd.Flags().Float64("max-image-secs", 0, "groups longer than this many seconds get no frames (default: --max-secs)")
	cmd.Flags().Int("workers", 0, "frame extraction workers (default: number of CPUs)")

	_ = cmd.MarkFlagRequired("sqlite")
	_ = cmd.MarkFlagRequired("pgdf")
}

// request builds the engine request from the flags and the loaded config.
func (f *ingestFlags) request() ingest.Request {
	return ingest.Request{
		SourceName:       f.name,
		SourceAlias:      f.alias,
		SessionDBPath:    filesystem.ExpandHome(f.session),
		DetectionLogDir:  filesystem.ExpandHome(f.pgdf),
		ImageLogDir:      filesystem.ExpandHome(f.glf),
		OutputDir:        filesystem.ExpandHome(cfg.Ingest.OutPath),
		MaxGroupDuration: cfg.Ingest.MaxGroupDuration(),
		MaxImageDuration: cfg.Ingest.MaxImageDuration(),
		SplitBuffer:      cfg.Ingest.SplitBuffer(),
		SkipImageLogs:    f.skipGLF,
		Workers:          cfg.Ingest.Workers,
	}
}

var ingestOpts ingestFlags

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest one survey disk",
	Long: `Ingest the session database, detection logs and image logs of one
survey disk in a single transaction.

Groups are split wherever their detections pause for longer than the
buffer, and frame artifacts are written below --outpath. Anything the disk
produced on an earlier ingest but no longer does is deleted.

Examples:
  sealhits ingest -s /media/disk1/PamGuard.sqlite3 -p /media/disk1/pgdf -g /media/disk1/glf -o ~/frames
  sealhits ingest -s PamGuard.sqlite3 -p pgdf --skip-glf
  sealhits ingest -s disk1.sqlite3 -p pgdf -g glf --sql-alias PamGuard.sqlite3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx, true)
		if err != nil {
			return err
		}

		ingestCommand := commands.NewIngestCommand(newEngine(s), ingestOpts.request())
		ingestCommand.CheckPaths = !ingestOpts.noCheck
		result, err := ingestCommand.Execute(ctx)
		if err != nil {
			return err
		}

		fmt.Println(views.RenderSummary("Ingest", result.Summary))
		fmt.Println(views.RenderMessage(result.Message, false))
		return nil
	},
}

func init() {
	ingestOpts.register(ingestCmd)
	rootCmd.AddCommand(ingestCmd)
}
