package query

import "context"

// Engine is the remote search service as seen by a session.
// The HTTP client in internal/remote is the production implementation;
// querytest.MockEngine serves tests.
type Engine interface {
	// DatasetConfig fetches dataset and table metadata.
	DatasetConfig(ctx context.Context) (*DatasetConfig, error)

	// Categories lists the categories available for a table.
	Categories(ctx context.Context, tableID string) ([]string, error)

	// Search runs q and returns the results in server order.
	Search(ctx context.Context, q SearchQuery) (ResultSet, error)

	// Close releases any resources held by the engine.
	Close() error
}
