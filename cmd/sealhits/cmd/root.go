package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"sealhits/internal/adapters/binlog"
	"sealhits/internal/adapters/filesystem"
	"sealhits/internal/adapters/fitslz4"
	"sealhits/internal/adapters/pamguard"
	"sealhits/internal/adapters/sqlstore"
	"sealhits/internal/application/ingest"
	"sealhits/internal/config"
	"sealhits/internal/logging"
)

var (
	cfgPath string
	cfg     *config.Config
	logger  *zap.Logger
	store   *sqlstore.Store
)

// flagKeys maps config keys onto the flags that override them. Flags a
// command does not define are skipped.
var flagKeys = map[string]string{
	"database.driver":       "db-driver",
	"database.dsn":          "db",
	"log.level":             "log-level",
	"log.file":              "log-file",
	"ingest.buffer":         "buffer",
	"ingest.max_secs":       "max-secs",
	"ingest.max_image_secs": "max-image-secs",
	"ingest.workers":        "workers",
	"ingest.outpath":        "outpath",
}

var rootCmd = &cobra.Command{
	Use:   "sealhits",
	Short: "Ingest sonar survey disks into the sealhits database",
	Long: `sealhits reconciles the exports of a sonar survey disk with the
sealhits database.

An export holds a PAMGuard session database of detection groups, the binary
detection logs behind their tracks and the sonar image logs covering them.
Ingesting the same disk again only applies what changed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		c, err := config.Load(cfgPath, func(v *viper.Viper) error {
			for key, name := range flagKeys {
				if f := cmd.Flags().Lookup(name); f != nil {
					if err := v.BindPFlag(key, f); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		cfg = c

		logger, err = logging.New(logging.Options{
			Level:      cfg.Log.Level,
			File:       filesystem.ExpandHome(cfg.Log.File),
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Console:    os.Stderr,
		})
		return err
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	closeResources()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./sealhits.yaml or ~/.config/sealhits/sealhits.yaml)")
	rootCmd.PersistentFlags().String("db-driver", config.DefaultDriver, "database driver: sqlite or postgres")
	rootCmd.PersistentFlags().String("db", config.DefaultDSN, "database file (sqlite) or connection string (postgres)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-file", config.DefaultLogFile, "rotating JSON log file, empty to disable")
}

// openStore connects to the configured database. With migrate set, pending
// schema migrations are applied first.
func openStore(ctx context.Context, migrate bool) (*sqlstore.Store, error) {
	dsn := cfg.Database.DSN
	if cfg.Database.Driver == sqlstore.DriverSQLite {
		dsn = filesystem.ExpandHome(dsn)
	}
	s, err := sqlstore.Open(ctx, sqlstore.Options{
		Driver:  cfg.Database.Driver,
		DSN:     dsn,
		Migrate: migrate,
	}, logger)
	if err != nil {
		return nil, err
	}
	store = s
	return s, nil
}

// newEngine wires the ingest engine to the on-disk adapters.
func newEngine(s *sqlstore.Store) *ingest.Engine {
	return ingest.NewEngine(ingest.Deps{
		Store:      s,
		Session:    pamguard.NewSessionReader(logger),
		Detections: binlog.NewDetectionReader(),
		Images:     binlog.NewImageReader(),
		Locator:    filesystem.NewLocator(),
		Artifacts:  fitslz4.NewArtifactStore(),
	}, logger)
}

func closeResources() {
	if store != nil {
		if err := store.Close(); err != nil && logger != nil {
			logger.Warn("Failed to close database", zap.Error(err))
		}
	}
	if logger != nil {
		_ = logger.Sync()
	}
}
