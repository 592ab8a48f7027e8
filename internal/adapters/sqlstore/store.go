package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"sealhits/internal/domain"
	"sealhits/internal/ports"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Options configures Open.
type Options struct {
	Driver  string
	DSN     string
	Migrate bool // apply pending migrations after connecting
}

// Store implements ports.Store on SQLite or PostgreSQL
type Store struct {
	db     *sqlx.DB
	driver string
	flavor sqlbuilder.Flavor
	logger *zap.Logger
}

// Ensure Store implements ports.Store
var _ ports.Store = (*Store)(nil)

// Open connects to the database described by opts
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := opts.DSN
	var flavor sqlbuilder.Flavor
	switch opts.Driver {
	case DriverSQLite:
		var err error
		if dsn, err = sqliteDSN(dsn); err != nil {
			return nil, err
		}
		flavor = sqlbuilder.SQLite
	case DriverPostgres:
		flavor = sqlbuilder.PostgreSQL
	default:
		return nil, fmt.Errorf("unsupported driver: %q", opts.Driver)
	}

	db, err := sqlx.Open(opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if opts.Driver == DriverSQLite {
		// One writer; the ingest transaction holds the connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, driver: opts.Driver, flavor: flavor, logger: logger.Named("store")}
	if opts.Migrate {
		if err := s.MigrateUp(); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// sqliteDSN turns a plain file path into a modernc DSN with foreign keys on.
func sqliteDSN(dsn string) (string, error) {
	if dsn == "" {
		return "", fmt.Errorf("sqlite database path is required")
	}
	if strings.HasPrefix(dsn, "file:") || strings.Contains(dsn, "?") {
		return dsn, nil
	}
	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return "", fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return "file:" + dsn + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Driver returns the database driver name
func (s *Store) Driver() string {
	return s.driver
}

// Begin starts the single transaction of an ingest or undo run
func (s *Store) Begin(ctx context.Context) (ports.StoreTx, error) {
	var txOpts *sql.TxOptions
	if s.driver == DriverPostgres {
		txOpts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	tx, err := s.db.BeginTxx(ctx, txOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &storeTx{tx: tx, flavor: s.flavor}, nil
}

type sourceRow struct {
	Name   string `db:"name"`
	Groups int    `db:"n_groups"`
	Tracks int    `db:"n_tracks"`
	Points int    `db:"n_points"`
	Frames int    `db:"n_frames"`
	Start  int64  `db:"time_start"`
	End    int64  `db:"time_end"`
}

// ListSources summarises every ingested source
func (s *Store) ListSources(ctx context.Context) ([]domain.SourceSummary, error) {
	query := `
		SELECT g.source AS name,
			COUNT(*) AS n_groups,
			MIN(g.time_start) AS time_start,
			MAX(g.time_end) AS time_end,
			(SELECT COUNT(*) FROM tracks t
				JOIN detection_groups tg ON tg.uid = t.group_uid
				WHERE tg.source = g.source) AS n_tracks,
			(SELECT COUNT(*) FROM points p
				JOIN detection_groups pg ON pg.uid = p.group_uid
				WHERE pg.source = g.source) AS n_points,
			(SELECT COUNT(DISTINCT gf.frame_uid) FROM group_frames gf
				JOIN detection_groups fg ON fg.uid = gf.group_uid
				WHERE fg.source = g.source) AS n_frames
		FROM detection_groups g
		GROUP BY g.source
		ORDER BY g.source`

	var rows []sourceRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}

	out := make([]domain.SourceSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.SourceSummary{
			Name:   r.Name,
			Groups: r.Groups,
			Tracks: r.Tracks,
			Points: r.Points,
			Frames: r.Frames,
			Start:  fromNanos(r.Start),
			End:    fromNanos(r.End),
		})
	}
	return out, nil
}

func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
