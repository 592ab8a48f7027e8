package commands

import (
	"context"
	"fmt"

	"sealhits/internal/application/ingest"
)

// DiffResult reports what an ingest would change without committing it
type DiffResult struct {
	Summary *ingest.Summary
	Message string
}

// DiffCommand runs a full ingest computation and rolls it back
type DiffCommand struct {
	ingest *IngestCommand
}

// NewDiffCommand creates a new DiffCommand. The request is forced into a
// dry run.
func NewDiffCommand(engine Engine, req ingest.Request) *DiffCommand {
	req.DryRun = true
	return &DiffCommand{ingest: NewIngestCommand(engine, req)}
}

// Request returns the dry-run request the command will execute.
func (c *DiffCommand) Request() ingest.Request {
	return c.ingest.Request
}

// SetCheckPaths controls whether Validate stats the inputs.
func (c *DiffCommand) SetCheckPaths(check bool) {
	c.ingest.CheckPaths = check
}

// Validate checks the underlying ingest request
func (c *DiffCommand) Validate() error {
	return c.ingest.Validate()
}

// Execute runs the diff command
func (c *DiffCommand) Execute(ctx context.Context) (*DiffResult, error) {
	c.ingest.Request.DryRun = true
	res, err := c.ingest.Execute(ctx)
	if err != nil {
		return nil, err
	}

	sum := res.Summary
	return &DiffResult{
		Summary: sum,
		Message: fmt.Sprintf("Re-ingesting %s would create %d and delete %d entities (%d groups, %d points, %d frames deleted)",
			sum.Source, sum.Created.Total(), sum.Deleted.Total(),
			sum.Deleted.Groups, sum.Deleted.Points, sum.Deleted.Frames),
	}, nil
}
