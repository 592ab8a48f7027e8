package commands

import (
	"context"
	"fmt"

	"sealhits/internal/application"
	"sealhits/internal/application/ingest"
)

// UndoResult contains the result of undoing an ingest
type UndoResult struct {
	Summary *ingest.Summary
	Message string
}

// UndoCommand removes everything one source contributed
type UndoCommand struct {
	engine     Engine
	SourceName string
}

// NewUndoCommand creates a new UndoCommand
func NewUndoCommand(engine Engine, sourceName string) *UndoCommand {
	return &UndoCommand{
		engine:     engine,
		SourceName: sourceName,
	}
}

// Validate checks if the undo can run
func (c *UndoCommand) Validate() error {
	return application.ValidateRequired("sourceName", c.SourceName)
}

// Execute runs the undo command
func (c *UndoCommand) Execute(ctx context.Context) (*UndoResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	sum, err := c.engine.Undo(ctx, c.SourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to undo ingest: %w", err)
	}

	d := sum.Deleted
	return &UndoResult{
		Summary: sum,
		Message: fmt.Sprintf("Removed %s: %d groups, %d tracks, %d points, %d frames, %d image logs, %d detection logs",
			c.SourceName, d.Groups, d.Tracks, d.Points, d.Frames, d.ImageLogs, d.DetectionLogs),
	}, nil
}
