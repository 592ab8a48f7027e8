package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"sealhits/internal/adapters/binlog"
	"sealhits/internal/adapters/filesystem"
	"sealhits/internal/adapters/fitslz4"
	mcpadapter "sealhits/internal/adapters/mcp"
	"sealhits/internal/adapters/pamguard"
	"sealhits/internal/adapters/sqlstore"
	"sealhits/internal/application/ingest"
	"sealhits/internal/config"
	"sealhits/internal/logging"
)

func main() {
	configFlag := flag.String("config", "", "config file (default ./sealhits.yaml or ~/.config/sealhits/sealhits.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configFlag, nil)
	if err != nil {
		log.Fatalf("sealhits-mcp: %v", err)
	}

	// stdout carries the protocol; console logs go to stderr.
	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       filesystem.ExpandHome(cfg.Log.File),
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Console:    os.Stderr,
	})
	if err != nil {
		log.Fatalf("sealhits-mcp: %v", err)
	}
	defer logger.Sync()

	dsn := cfg.Database.DSN
	if cfg.Database.Driver == sqlstore.DriverSQLite {
		dsn = filesystem.ExpandHome(dsn)
	}
	store, err := sqlstore.Open(context.Background(), sqlstore.Options{
		Driver:  cfg.Database.Driver,
		DSN:     dsn,
		Migrate: true,
	}, logger)
	if err != nil {
		log.Fatalf("sealhits-mcp: %v", err)
	}
	defer store.Close()

	engine := ingest.NewEngine(ingest.Deps{
		Store:      store,
		Session:    pamguard.NewSessionReader(logger),
		Detections: binlog.NewDetectionReader(),
		Images:     binlog.NewImageReader(),
		Locator:    filesystem.NewLocator(),
		Artifacts:  fitslz4.NewArtifactStore(),
	}, logger)

	defaults := ingest.Request{
		OutputDir:        filesystem.ExpandHome(cfg.Ingest.OutPath),
		MaxGroupDuration: cfg.Ingest.MaxGroupDuration(),
		MaxImageDuration: cfg.Ingest.MaxImageDuration(),
		SplitBuffer:      cfg.Ingest.SplitBuffer(),
		Workers:          cfg.Ingest.Workers,
	}

	mcpServer := server.NewMCPServer(
		"sealhits-mcp",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(
		mcp.NewTool("ping",
			mcp.WithDescription("Health check, returns pong"),
		),
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("pong"), nil
		},
	)

	mcpadapter.RegisterReadTools(mcpServer, store)
	mcpadapter.RegisterWriteTools(mcpServer, engine, defaults)

	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Sync()
		log.Fatalf("sealhits-mcp: %v", err)
	}
}
