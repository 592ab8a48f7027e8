package commands

import (
	"context"
	"fmt"

	"sealhits/internal/domain"
	"sealhits/internal/ports"
)

// ListSourcesCommand lists the ingested sources with their entity counts
type ListSourcesCommand struct {
	store ports.Store
}

// NewListSourcesCommand creates a new ListSourcesCommand
func NewListSourcesCommand(store ports.Store) *ListSourcesCommand {
	return &ListSourcesCommand{store: store}
}

// Execute runs the list sources command
func (c *ListSourcesCommand) Execute(ctx context.Context) ([]domain.SourceSummary, error) {
	sources, err := c.store.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return sources, nil
}
