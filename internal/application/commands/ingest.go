package commands

import (
	"context"
	"fmt"

	"sealhits/internal/application"
	"sealhits/internal/application/ingest"
)

// Engine runs ingest and undo operations. *ingest.Engine implements it.
type Engine interface {
	Ingest(ctx context.Context, req ingest.Request) (*ingest.Summary, error)
	Undo(ctx context.Context, source string) (*ingest.Summary, error)
}

var _ Engine = (*ingest.Engine)(nil)

// IngestResult contains the result of an ingest
type IngestResult struct {
	Summary *ingest.Summary
	Message string
}

// IngestCommand reconciles one source disk with the store
type IngestCommand struct {
	engine  Engine
	Request ingest.Request

	// CheckPaths makes Validate stat the session database and log
	// directories before the engine opens them.
	CheckPaths bool
}

// NewIngestCommand creates a new IngestCommand
func NewIngestCommand(engine Engine, req ingest.Request) *IngestCommand {
	return &IngestCommand{
		engine:     engine,
		Request:    req,
		CheckPaths: true,
	}
}

// Validate checks the request and, with CheckPaths, that its inputs exist
func (c *IngestCommand) Validate() error {
	req := c.Request.WithDefaults()
	if err := req.Validate(); err != nil {
		return err
	}
	if !c.CheckPaths {
		return nil
	}

	if err := application.ValidateFile("sessionDBPath", req.SessionDBPath); err != nil {
		return err
	}
	if err := application.ValidateDir("detectionLogDir", req.DetectionLogDir); err != nil {
		return err
	}
	if !req.SkipImageLogs {
		if err := application.ValidateDir("imageLogDir", req.ImageLogDir); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs the ingest command
func (c *IngestCommand) Execute(ctx context.Context) (*IngestResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	sum, err := c.engine.Ingest(ctx, c.Request)
	if err != nil {
		return nil, fmt.Errorf("failed to ingest: %w", err)
	}

	verb := "Ingested"
	if sum.DryRun {
		verb = "Dry run of"
	}
	return &IngestResult{
		Summary: sum,
		Message: fmt.Sprintf("%s %s: %d groups, %d points, %d frames (%d new, %d deleted, %d diagnostics)",
			verb, sum.Source, sum.Model.Groups, sum.Model.Points, sum.Model.Frames,
			sum.Created.Total(), sum.Deleted.Total(), len(sum.Diagnostics)),
	}, nil
}
